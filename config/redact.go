package config

import (
	"encoding/json"
	"strings"
)

var sensitiveKeys = []string{"password", "api_key", "apikey", "secret", "token", "credential", "dsn"}

// Sanitized returns the settings as a map with secret values replaced by
// "[REDACTED]".
func (s *Settings) Sanitized() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	redactSensitiveFields(result)
	return result
}

func redactSensitiveFields(data map[string]any) {
	for key, value := range data {
		lowerKey := strings.ToLower(key)
		for _, sensitive := range sensitiveKeys {
			if strings.Contains(lowerKey, sensitive) {
				if str, ok := value.(string); ok && str != "" {
					data[key] = "[REDACTED]"
				}
				break
			}
		}

		if nested, ok := value.(map[string]any); ok {
			redactSensitiveFields(nested)
		}
	}
}
