/*

This file manages the persistent global report counter for the treasury
service. The counter is stored in the database to ensure continuity across
restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ensureReportCounterTable creates the report_counter table if it doesn't exist
func ensureReportCounterTable() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	createTableSQL := `
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

	_, err := DB.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create report_counter table: %w", err)
	}

	log.Debug().Msg("Ensured report_counter table exists")
	return nil
}

// GetCurrentReportNumber retrieves the current report number from the database
func GetCurrentReportNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	// Ensure the table exists
	if err := ensureReportCounterTable(); err != nil {
		return 0, err
	}

	query := `SELECT current_report FROM report_counter WHERE id = 1;`

	var currentReport int
	row := DB.QueryRow(query)
	err := row.Scan(&currentReport)

	if err != nil {
		if err == sql.ErrNoRows {
			// This should not happen due to the INSERT in ensureReportCounterTable
			log.Warn().Msg("No report counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current report number: %w", err)
	}

	log.Debug().Int("currentReport", currentReport).Msg("Retrieved current report number")
	return currentReport, nil
}

// IncrementReportNumber increments the report counter and returns the new value
func IncrementReportNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	// Ensure the table exists
	if err := ensureReportCounterTable(); err != nil {
		return 0, err
	}

	updateQuery := `
		UPDATE report_counter
		SET current_report = current_report + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_report;`

	var newReport int
	row := DB.QueryRow(updateQuery)
	err := row.Scan(&newReport)

	if err != nil {
		return 0, fmt.Errorf("failed to increment report number: %w", err)
	}

	log.Info().Int("newReport", newReport).Msg("Incremented report counter")
	return newReport, nil
}

// ResetReportNumber resets the report counter to a specific value (for testing/maintenance)
func ResetReportNumber(reportNumber int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Ensure the table exists
	if err := ensureReportCounterTable(); err != nil {
		return err
	}

	if reportNumber < 0 {
		return fmt.Errorf("report number cannot be negative: %d", reportNumber)
	}

	updateQuery := `
		UPDATE report_counter
		SET current_report = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.Exec(updateQuery, reportNumber)
	if err != nil {
		return fmt.Errorf("failed to reset report number to %d: %w", reportNumber, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting report number")
	}

	log.Warn().Int("reportNumber", reportNumber).Msg("Reset report counter")
	return nil
}
