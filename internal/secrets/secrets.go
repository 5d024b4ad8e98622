package secrets

import (
	"os"
	"strings"
)

// Get retrieves a secret value, supporting both direct env vars and
// file-based secrets (Docker secrets pattern via the _FILE suffix).
func Get(envKey string) (string, bool) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", false
		}
		return strings.TrimSpace(string(data)), true
	}

	if value := os.Getenv(envKey); value != "" {
		return value, true
	}

	return "", false
}

// GetOptional retrieves a secret with a default value, never fails
func GetOptional(envKey string, defaultValue string) string {
	if value, ok := Get(envKey); ok {
		return value
	}
	return defaultValue
}
