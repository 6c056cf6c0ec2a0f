package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"mistraltools/internal/logger"
	"mistraltools/internal/mistral"
)

const (
	// DefaultRequirementsInput is the text file the requirements command reads
	// when REQUIREMENTS_INPUT_FILE is not set.
	DefaultRequirementsInput = "data/requirements.md"

	// DefaultRequirementsOutput is where the extracted CSV is written.
	DefaultRequirementsOutput = "output/requirements.csv"

	// ConfigFileEnv names an explicit YAML config file. Without it,
	// mistral-tools.yaml is looked up in the working directory and in
	// ~/.config/mistral-tools.
	ConfigFileEnv = "MISTRAL_TOOLS_CONFIG"

	configName = "mistral-tools"
)

type Config struct {
	// Mistral API Configuration
	MistralAPIKey    string
	MistralBaseURL   string
	MistralOCRModel  string
	MistralChatModel string

	// Requirement Extraction Configuration
	RequirementsInputFile  string
	RequirementsOutputFile string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string

	// File is the config file that was read, empty when none was found.
	File string
}

// Load reads configuration from the environment, then the optional config file,
// then built-in defaults. A non-empty environment variable always wins.
func Load() (*Config, error) {
	v, err := newViper(os.Getenv(ConfigFileEnv))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{
		MistralAPIKey:          getEnv(v, "MISTRALAI_API_KEY", ""),
		MistralBaseURL:         getEnv(v, "MISTRAL_BASE_URL", mistral.DefaultBaseURL),
		MistralOCRModel:        getEnv(v, "MISTRAL_OCR_MODEL", mistral.DefaultOCRModel),
		MistralChatModel:       getEnv(v, "MISTRAL_CHAT_MODEL", mistral.DefaultChatModel),
		RequirementsInputFile:  getEnv(v, "REQUIREMENTS_INPUT_FILE", DefaultRequirementsInput),
		RequirementsOutputFile: getEnv(v, "REQUIREMENTS_OUTPUT_FILE", DefaultRequirementsOutput),
		LogLevel:               getEnv(v, "LOG_LEVEL", "info"),
		LogFormat:              getEnv(v, "LOG_FORMAT", "console"),
		LogTimeFormat:          getEnv(v, "LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:              getEnv(v, "LOG_OUTPUT", "stderr"),
		File:                   v.ConfigFileUsed(),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// newViper prepares a fresh viper instance. An explicit file must exist; the
// default search locations are optional.
func newViper(file string) (*viper.Viper, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, err
	}
	return v, nil
}

func (c *Config) validate() error {
	if c.MistralAPIKey == "" {
		return fmt.Errorf("MISTRALAI_API_KEY is required: %w", mistral.ErrMissingAPIKey)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// MistralConfig returns the API client configuration
func (c *Config) MistralConfig() mistral.Config {
	return mistral.Config{
		APIKey:  c.MistralAPIKey,
		BaseURL: c.MistralBaseURL,
	}
}

// getEnv resolves one setting. Config file keys are the lower-cased variable
// names, e.g. mistral_chat_model.
func getEnv(v *viper.Viper, key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := v.GetString(key); value != "" {
		return value
	}
	return defaultValue
}
