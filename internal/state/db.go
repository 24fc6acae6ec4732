// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
// Amounts are stored as NUMERIC(40, 0): raw integer base units at full
// precision, never floats.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS protocol_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			fee_ppm BIGINT NOT NULL,
			buffer_target_ppm BIGINT NOT NULL,
			buffer_renewal_ppm BIGINT NOT NULL,
			max_leverage_ppm BIGINT NOT NULL,
			withdraw_fee_ppm BIGINT NOT NULL,
			maturity_period_seconds BIGINT NOT NULL,
			epoch_length_seconds BIGINT NOT NULL,
			CONSTRAINT uq_protocol_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_protocol_parameters_config_active_timestamp ON protocol_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS report_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			report_number INTEGER NOT NULL,
			trace_id VARCHAR(64) NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			params_id INTEGER REFERENCES protocol_parameters(params_id),

			path VARCHAR(10) NOT NULL,
			routing JSONB NOT NULL,

			previous_manager_balance NUMERIC(40, 0) NOT NULL,
			new_manager_balance NUMERIC(40, 0) NOT NULL,

			peg_before NUMERIC(60, 18) NOT NULL,
			peg_after NUMERIC(60, 18) NOT NULL,
			status VARCHAR(20) NOT NULL,
			epoch BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_report_snapshots_timestamp ON report_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_report_snapshots_report ON report_snapshots(report_number DESC);
		CREATE INDEX IF NOT EXISTS idx_report_snapshots_path ON report_snapshots(path);

		CREATE TABLE IF NOT EXISTS withdrawal_requests (
			request_id BIGINT PRIMARY KEY,
			requester VARCHAR(255) NOT NULL,
			amount NUMERIC(40, 0) NOT NULL,
			request_time TIMESTAMPTZ NOT NULL,
			request_epoch BIGINT NOT NULL,
			claimed BOOLEAN NOT NULL DEFAULT FALSE,
			claimed_at TIMESTAMPTZ,
			fee NUMERIC(40, 0) NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_requester ON withdrawal_requests(requester);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_claimed ON withdrawal_requests(claimed);

		-- Report counter table for persistent global report tracking
		CREATE TABLE IF NOT EXISTS report_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_report INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO report_counter (id, current_report)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
