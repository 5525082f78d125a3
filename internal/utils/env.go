package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "env_var", key, "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "env_var", key, "providedVal", valStr, "default", defaultVal, "error", err)
		}
		return defaultVal
	}
	return i
}

// GetEnvAsBool accepts the same truthy/falsy spellings the ingestion
// pipeline accepts for its own flags.
func GetEnvAsBool(key string, defaultVal bool, log *logger.Logger) bool {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	switch strings.TrimSpace(strings.ToLower(valStr)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		if log != nil {
			log.Debug("Environment variable could not be parsed as bool, using default", "env_var", key, "providedVal", valStr, "default", defaultVal)
		}
		return defaultVal
	}
}
