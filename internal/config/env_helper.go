package config

import (
	"os"
	"strconv"

	"go.uber.org/zap"
)

// envReader reads typed environment variables, falling back to the current
// value and warning when a variable is set but malformed.
type envReader struct {
	log *zap.Logger
}

func (r envReader) getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func (r envReader) getEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	val, err := strconv.Atoi(valueStr)
	if err != nil {
		r.log.Warn("Invalid int for config, using default",
			zap.String("key", key), zap.String("value", valueStr), zap.Int("default", fallback))
		return fallback
	}
	return val
}

// Helper to get float64 env with default
func (r envReader) getEnvAsFloat64(key string, fallback float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	val, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		r.log.Warn("Invalid float64 for config, using default",
			zap.String("key", key), zap.String("value", valueStr), zap.Float64("default", fallback))
		return fallback
	}
	return val
}

func (r envReader) getEnvAsBool(key string, fallback bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}
	val, err := strconv.ParseBool(valueStr)
	if err != nil {
		r.log.Warn("Invalid bool for config, using default",
			zap.String("key", key), zap.String("value", valueStr), zap.Bool("default", fallback))
		return fallback
	}
	return val
}
