// Package config reads server settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	MessageTTL      time.Duration
	SweepInterval   time.Duration
	MessageCooldown time.Duration
	UploadCooldown  time.Duration
	MaxBlobBytes    int64
	IPRequests      int
	IPWindow        time.Duration
}

func Load() Config {
	return Config{
		Port:            getEnv("PORT", "8080"),
		MessageTTL:      getEnvAsDuration("MESSAGE_TTL", 10*time.Minute),
		SweepInterval:   getEnvAsDuration("SWEEP_INTERVAL", 30*time.Second),
		MessageCooldown: getEnvAsDuration("MESSAGE_COOLDOWN", 3*time.Second),
		UploadCooldown:  getEnvAsDuration("UPLOAD_COOLDOWN", 5*time.Second),
		MaxBlobBytes:    getEnvAsInt64("MAX_BLOB_BYTES", 1<<20),
		IPRequests:      getEnvAsInt("IP_RATE_REQUESTS", 120),
		IPWindow:        getEnvAsDuration("IP_RATE_WINDOW", time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
