package config

import (
	"os"
	"strconv"
)

// Runtime holds process settings read from the environment.
type Runtime struct {
	ConfigPath   string
	Environment  string
	LogLevel     string
	OpsPort      int
	OpsEnabled   bool
	OTelEnabled  bool
	OTLPEndpoint string
}

// RuntimeFromEnv creates a Runtime from environment variables.
func RuntimeFromEnv() Runtime {
	port, err := strconv.Atoi(getEnvOrDefault("OPS_PORT", "8080"))
	if err != nil || port <= 0 {
		port = 8080
	}
	opsEnabled, err := strconv.ParseBool(getEnvOrDefault("OPS_ENABLED", "true"))
	if err != nil {
		opsEnabled = true
	}
	otelEnabled, _ := strconv.ParseBool(getEnvOrDefault("OTEL_ENABLED", "false"))

	return Runtime{
		ConfigPath:   getEnvOrDefault("CONFIG_PATH", "config.yml"),
		Environment:  getEnvOrDefault("APP_ENV", "development"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "debug"),
		OpsPort:      port,
		OpsEnabled:   opsEnabled,
		OTelEnabled:  otelEnabled,
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
