package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"mistraltools/cmd"
	"mistraltools/internal/config"
	"mistraltools/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration. A missing API key is reported by the command that needs it.
	cfg, err := config.Load()
	if err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting Mistral Tools CLI")

	cmd.Execute()

	log.Debug().Msg("Mistral Tools CLI shutdown")
	os.Exit(0)
}
