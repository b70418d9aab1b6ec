package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port    string
	GinMode string

	// Request Execution
	RequestTimeout  time.Duration
	MaxResponseSize int64
	MaxRedirects    int
	StrictURLScheme bool

	// SSRF Protection
	AllowLocalhost  bool
	AllowPrivateIPs bool

	// CORS
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "5000"),
		GinMode:            getEnv("GIN_MODE", "release"),
		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		CORSAllowedMethods: getList("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE"),
		CORSAllowedHeaders: getList("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// Parse durations, integers and flags
	var err error
	cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: must be positive, got %s", cfg.RequestTimeout)
	}

	cfg.MaxResponseSize, err = strconv.ParseInt(getEnv("MAX_RESPONSE_SIZE", "52428800"), 10, 64) // 50MB
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_RESPONSE_SIZE: %w", err)
	}

	cfg.MaxRedirects, err = strconv.Atoi(getEnv("MAX_REDIRECTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_REDIRECTS: %w", err)
	}

	cfg.StrictURLScheme, err = strconv.ParseBool(getEnv("STRICT_URL_SCHEME", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid STRICT_URL_SCHEME: %w", err)
	}

	cfg.AllowLocalhost, err = strconv.ParseBool(getEnv("ALLOW_LOCALHOST", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOW_LOCALHOST: %w", err)
	}

	cfg.AllowPrivateIPs, err = strconv.ParseBool(getEnv("ALLOW_PRIVATE_IPS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOW_PRIVATE_IPS: %w", err)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q (expected text or json)", cfg.LogFormat)
	}

	return cfg, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Port:               "5000",
		GinMode:            "release",
		RequestTimeout:     30 * time.Second,
		MaxResponseSize:    52428800,
		MaxRedirects:       5,
		StrictURLScheme:    true,
		AllowLocalhost:     true,
		AllowPrivateIPs:    true,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		CORSAllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

func (c *Config) Address() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getList(key, defaultValue string) []string {
	var list []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
