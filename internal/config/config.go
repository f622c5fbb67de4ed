package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process configuration
type Config struct {
	DataDir        string
	PolicyPath     string
	SettingsPath   string
	RatesPath      string
	HistoryDBPath  string
	BackupDir      string
	ExportDir      string
	ExportPrefix   string
	Countries      []string
	Schedule       string
	Workers        int
	LookbackDays   int
	NewProductDays int
	LogLevel       string
	LogPretty      bool
}

// Load reads configuration from environment variables, after loading the
// given .env files. Missing .env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	dataDir := getEnv("AUTOPRICING_DATA_DIR", "./data")
	cfg := &Config{
		DataDir:        dataDir,
		PolicyPath:     getEnv("AUTOPRICING_POLICY", ""),
		SettingsPath:   getEnv("AUTOPRICING_SETTINGS", ""),
		RatesPath:      getEnv("AUTOPRICING_RATES", ""),
		HistoryDBPath:  getEnv("AUTOPRICING_HISTORY_DB", filepath.Join(dataDir, "history.db")),
		BackupDir:      getEnv("AUTOPRICING_BACKUP_DIR", filepath.Join(dataDir, "backup")),
		ExportDir:      getEnv("AUTOPRICING_EXPORT_DIR", filepath.Join(dataDir, "export")),
		ExportPrefix:   getEnv("AUTOPRICING_EXPORT_PREFIX", "shop"),
		Countries:      getEnvAsList("AUTOPRICING_COUNTRIES", nil),
		Schedule:       getEnv("AUTOPRICING_SCHEDULE", "10 2 * * 1-6"),
		Workers:        getEnvAsInt("AUTOPRICING_WORKERS", 0),
		LookbackDays:   getEnvAsInt("AUTOPRICING_LOOKBACK_DAYS", 3),
		NewProductDays: getEnvAsInt("AUTOPRICING_NEW_PRODUCT_DAYS", 14),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("LOG_PRETTY", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("AUTOPRICING_DATA_DIR is required")
	}
	if c.HistoryDBPath == "" {
		return fmt.Errorf("AUTOPRICING_HISTORY_DB is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("AUTOPRICING_WORKERS must not be negative, got %d", c.Workers)
	}
	if c.LookbackDays < 0 {
		return fmt.Errorf("AUTOPRICING_LOOKBACK_DAYS must not be negative, got %d", c.LookbackDays)
	}
	if c.NewProductDays < 0 {
		return fmt.Errorf("AUTOPRICING_NEW_PRODUCT_DAYS must not be negative, got %d", c.NewProductDays)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
