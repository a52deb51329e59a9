package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig configures the command-line client
type ClientConfig struct {
	BaseURL        string
	SessionID      string
	RefreshTimeout time.Duration
	Redis          RedisConfig
	LogLevel       string
}

// RedisConfig selects where the client keeps its credentials.
// An empty Addr keeps them in memory for the life of the process.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoadClient reads the client configuration from the environment
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load(".env")

	cfg := &ClientConfig{
		BaseURL:        getEnv("BOOKTRACKER_URL", "http://localhost:8080"),
		SessionID:      getEnv("BOOKTRACKER_SESSION", "default"),
		RefreshTimeout: getEnvAsDuration("BOOKTRACKER_REFRESH_TIMEOUT", 10*time.Second),
		LogLevel:       getEnv("LOG_LEVEL", "warn"),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "booktracker"),
		},
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.RefreshTimeout <= 0 {
		return nil, fmt.Errorf("refresh timeout must be positive")
	}
	return cfg, nil
}
