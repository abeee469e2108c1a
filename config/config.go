package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	APIBaseURL     string `json:"api_base_url" env:"PR_API_BASE_URL" env-default:"http://localhost:8080"` // e.g., http://localhost:8080
	TimeoutSeconds int    `json:"timeout_seconds" env:"PR_API_TIMEOUT_SECONDS" env-default:"30"`
	SprintsFile    string `json:"sprints_file" env:"SPRINTS_FILE"` // empty uses the built-in sprint list
	Port           string `json:"port" env:"PORT" env-default:"8081"`
	LogLevel       string `json:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// Timeout returns the per-request timeout for the pull request API
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks the values LoadConfig cannot default
func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_base_url %q", c.APIBaseURL)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	return nil
}

// LoadConfig loads configuration from file or environment variables.
// A .env file in the working directory is loaded first when present;
// environment variables override values from the file.
func LoadConfig(filename string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env: %w", err)
	}

	var config Config

	// Try loading from file first
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			if err := cleanenv.ReadConfig(filename, &config); err != nil {
				return Config{}, fmt.Errorf("error reading %s: %w", filename, err)
			}
			return config, config.Validate()
		}
	}

	// Fall back to environment variables
	if err := cleanenv.ReadEnv(&config); err != nil {
		return Config{}, fmt.Errorf("error reading environment: %w", err)
	}
	return config, config.Validate()
}

// CreateSampleConfig creates a sample configuration file
func CreateSampleConfig() error {
	config := Config{
		APIBaseURL:     "http://localhost:8080",
		TimeoutSeconds: 30,
		SprintsFile:    "sprints.json",
		Port:           "8081",
		LogLevel:       "info",
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile("config.sample.json", data, 0644)
}
