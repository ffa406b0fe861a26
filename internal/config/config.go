package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds everything the service reads from the environment. It is
// built once in main and never mutated afterwards; components receive it (or
// pieces of it) by value.
type Config struct {
	AppName string
	Port    string
	Env     string

	// The single configured third-party client.
	ClientID             string
	ClientName           string
	ClientSecret         string
	AllowedRedirectHosts []string

	// Collaborator stores.
	DatabaseURL string
	RedisURL    string

	// LoginURL is the identity system's login entry point, used when an
	// authorization request arrives without a session.
	LoginURL string
}

// Load reads the configuration from the environment, after loading a local
// .env file when one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      GetEnv("APP_NAME", "Pollverse Connect"),
		Port:         listenPort(),
		Env:          GetEnv("ENV", "DEV"),
		ClientID:     os.Getenv("OAUTH_CLIENT_ID"),
		ClientName:   GetEnv("OAUTH_CLIENT_NAME", "Third-party application"),
		ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     GetEnv("REDIS_URL", "redis://localhost:6379/0"),
		LoginURL:     GetEnv("LOGIN_URL", "/login"),
	}
	for _, host := range strings.Split(os.Getenv("OAUTH_ALLOWED_REDIRECT_HOSTS"), ",") {
		host = strings.TrimSpace(host)
		if host != "" {
			cfg.AllowedRedirectHosts = append(cfg.AllowedRedirectHosts, host)
		}
	}

	if cfg.ClientID == "" {
		return Config{}, errors.New("[config.Load] OAUTH_CLIENT_ID is required")
	}
	if len(cfg.AllowedRedirectHosts) == 0 {
		return Config{}, errors.New("[config.Load] OAUTH_ALLOWED_REDIRECT_HOSTS is required")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("[config.Load] DATABASE_URL is required")
	}
	return cfg, nil
}

func listenPort() string {
	port := GetEnv("PORT", "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

// GetEnv returns the environment variable's value or a default when unset.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
