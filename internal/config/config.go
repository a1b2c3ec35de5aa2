// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment
// variables. Scoring weights and limits live in the Constitution,
// which is loaded separately and validated at startup.
type Config struct {
	DataDir          string // Base directory for all databases
	ClassifierURL    string // Probability model sidecar base URL ("" disables it)
	LogLevel         string
	Port             int
	DevMode          bool
	RefreshSchedule  string // Cron spec for the score refresh job ("" disables it)
	ConstitutionPath string // Optional YAML overriding the compiled constitution
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := os.Getenv("VANTAGE_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	port := 8090
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		port = p
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	refresh := os.Getenv("SCORE_REFRESH_SCHEDULE")
	if refresh == "" {
		refresh = "@every 15m"
	}

	return &Config{
		DataDir:          absDataDir,
		ClassifierURL:    os.Getenv("CLASSIFIER_URL"),
		LogLevel:         logLevel,
		Port:             port,
		DevMode:          os.Getenv("DEV_MODE") == "true",
		RefreshSchedule:  refresh,
		ConstitutionPath: os.Getenv("CONSTITUTION_PATH"),
	}, nil
}

// DatabasePath returns the path for a named database file
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}
