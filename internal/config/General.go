package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// DBHost is the PostgreSQL host.
	DBHost string
	// DBPort is the PostgreSQL port.
	DBPort string
	// DBUser is the PostgreSQL user.
	DBUser string
	// DBPassword is the PostgreSQL password.
	DBPassword string
	// DBName is the PostgreSQL database name.
	DBName string
	// DBSSLMode is the PostgreSQL SSL mode (e.g. "disable", "require").
	DBSSLMode string

	// WebPort is the port the dashboard/API server listens on.
	WebPort string

	// ReportIntervalSeconds is how often the engine polls the yield manager
	// and submits a report.
	ReportIntervalSeconds uint64

	// TreasuryMode selects live operation ("live") or a dry halt after
	// startup checks (anything else). A safety latch against accidentally
	// running the mutating loop with production credentials.
	TreasuryMode string
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	DBHost, err = getEnv("DB_HOST")
	if err != nil {
		return err
	}

	DBPort, err = getEnv("DB_PORT")
	if err != nil {
		return err
	}

	DBUser, err = getEnv("DB_USER")
	if err != nil {
		return err
	}

	DBPassword, err = getEnv("DB_PASSWORD")
	if err != nil {
		return err
	}

	DBName, err = getEnv("DB_NAME")
	if err != nil {
		return err
	}

	DBSSLMode, err = getEnv("DB_SSLMODE")
	if err != nil {
		return err
	}

	WebPort, err = getEnv("WEB_PORT")
	if err != nil {
		return err
	}

	ReportIntervalSeconds, err = getEnvAsUint64("REPORT_INTERVAL_SECONDS")
	if err != nil {
		return err
	}

	TreasuryMode, err = getEnv("TREASURY_MODE")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("DBHost", DBHost).
		Str("DBName", DBName).
		Str("WebPort", WebPort).
		Uint64("ReportIntervalSeconds", ReportIntervalSeconds).
		Str("TreasuryMode", TreasuryMode).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
