package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the client reads from the environment.
type Config struct {
	Backend BackendConfig
	Client  ClientConfig
	Logging LoggingConfig
}

// Load builds a Config from environment variables.
func Load() (*Config, error) {
	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	logging, err := loadLoggingConfig(client.StateDir)
	if err != nil {
		return nil, err
	}

	return &Config{Backend: backend, Client: client, Logging: logging}, nil
}

// BackendConfig describes how to reach the chat backend.
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	HealthInterval time.Duration
}

func loadBackendConfig() (BackendConfig, error) {
	baseURL := getEnvOrDefault("CHAT_BASE_URL", "http://localhost:8080/api")
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return BackendConfig{}, fmt.Errorf("invalid CHAT_BASE_URL value: %q", baseURL)
	}

	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("CHAT_REQUEST_TIMEOUT"); err != nil {
		return BackendConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return BackendConfig{}, fmt.Errorf("CHAT_REQUEST_TIMEOUT must be positive, got %d", *override)
		}
		timeoutSeconds = *override
	}

	// 0 disables the periodic probe; a manual re-check is always available.
	healthSeconds := 30
	if override, err := parseOptionalIntEnv("CHAT_HEALTH_INTERVAL"); err != nil {
		return BackendConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return BackendConfig{}, fmt.Errorf("CHAT_HEALTH_INTERVAL must not be negative, got %d", *override)
		}
		healthSeconds = *override
	}

	return BackendConfig{
		BaseURL:        baseURL,
		RequestTimeout: time.Duration(timeoutSeconds) * time.Second,
		HealthInterval: time.Duration(healthSeconds) * time.Second,
	}, nil
}

// ClientConfig describes local behavior of the client itself.
type ClientConfig struct {
	ReconcileDelay time.Duration
	StateDir       string
}

func loadClientConfig() (ClientConfig, error) {
	delayMillis := 500
	if override, err := parseOptionalIntEnv("CHAT_RECONCILE_DELAY"); err != nil {
		return ClientConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return ClientConfig{}, fmt.Errorf("CHAT_RECONCILE_DELAY must not be negative, got %d", *override)
		}
		delayMillis = *override
	}

	stateDir := strings.TrimSpace(os.Getenv("CHAT_STATE_DIR"))
	if stateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("resolve user config dir: %w", err)
		}
		stateDir = filepath.Join(base, "chat-assistant")
	}

	return ClientConfig{
		ReconcileDelay: time.Duration(delayMillis) * time.Millisecond,
		StateDir:       stateDir,
	}, nil
}

// LoggingConfig describes where diagnostics go. The TUI owns the terminal, so
// logs are written to a file.
type LoggingConfig struct {
	File  string
	Level string
}

func loadLoggingConfig(stateDir string) (LoggingConfig, error) {
	level := strings.ToLower(getEnvOrDefault("CHAT_LOG_LEVEL", "info"))
	switch level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return LoggingConfig{}, fmt.Errorf("invalid CHAT_LOG_LEVEL value: %q", level)
	}

	return LoggingConfig{
		File:  getEnvOrDefault("CHAT_LOG_FILE", filepath.Join(stateDir, "chat.log")),
		Level: level,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
