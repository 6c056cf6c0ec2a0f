package requirements

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"mistraltools/pkg/models"
)

var (
	codeKeys        = []string{"code", "id", "identifier", "requirement_id"}
	descriptionKeys = []string{"description", "text", "requirement"}
	categoryKeys    = []string{"category", "type"}
)

// ParseResponse parses a model reply into requirement records. The reply must be a
// JSON array of objects, or an object holding that array under "requirements".
// Markdown code fences around the JSON are ignored.
func ParseResponse(content string) ([]models.Requirement, error) {
	const op = "ParseResponse"

	cleaned := stripCodeFence(content)

	var decoded interface{}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}

	var items []interface{}
	switch v := decoded.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		list, ok := v["requirements"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %w: object has no \"requirements\" array", op, ErrMalformedResponse)
		}
		items = list
	default:
		return nil, fmt.Errorf("%s: %w: expected an array, got %T", op, ErrMalformedResponse, decoded)
	}

	reqs := make([]models.Requirement, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %w: element %d is %T, not an object", op, ErrMalformedResponse, i, item)
		}
		reqs = append(reqs, models.Requirement{
			Code:        getString(obj, codeKeys...),
			Description: getString(obj, descriptionKeys...),
			Category:    getString(obj, categoryKeys...),
		})
	}

	return reqs, nil
}

// stripCodeFence removes a surrounding ``` block. Any info string on the opening
// fence line (json, JSON, javascript) is dropped with it.
func stripCodeFence(content string) string {
	cleaned := strings.TrimSpace(content)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimLeftFunc(cleaned, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// getString returns the first key with a non-empty value as a string. Numbers are
// formatted without a trailing ".0" so numeric codes survive.
func getString(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		val, ok := obj[key]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Sprint(v)
			}
			return string(data)
		}
	}
	return ""
}
