package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default value", "defaultValue", defaultVal)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("Environment variable found (string), using environment variable value", "value", val)
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default int", "defaultVal", defaultVal)
		}
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "providedVal", valStr, "defaultVal", defaultVal, "error", err)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("Environment variable found (int), using environment variable value", "value", i)
	}
	return i
}

// GetEnvAsDuration reads an integer number of milliseconds from the environment.
func GetEnvAsDuration(key string, defaultVal time.Duration, log *logger.Logger) time.Duration {
	ms := GetEnvAsInt(key, int(defaultVal/time.Millisecond), log)
	return time.Duration(ms) * time.Millisecond
}
