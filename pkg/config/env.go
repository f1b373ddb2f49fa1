package config

import (
	"os"
	"strconv"
	"strings"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value)
	}
	return defaultValue
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// parseStringList splits a comma separated env value, dropping blanks
func parseStringList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyEnv overwrites the pointed-to fields for every env key that is set.
// Unparseable numbers leave the field untouched.
func applyEnv(mappings map[string]interface{}) {
	for key, target := range mappings {
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			continue
		}
		switch ptr := target.(type) {
		case *string:
			*ptr = value
		case *int:
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				*ptr = n
			}
		case *float64:
			if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				*ptr = f
			}
		case *bool:
			*ptr = parseBool(value)
		case *[]string:
			*ptr = parseStringList(value)
		}
	}
}
