package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/usxprotocol/treasury/internal/types"
)

// ReportMetrics represents aggregated waterfall data over all reports.
type ReportMetrics struct {
	TotalReports int    `json:"total_reports"`
	ProfitCount  int    `json:"profit_count"`
	LossCount    int    `json:"loss_count"`
	FirstReport  string `json:"first_report,omitempty"`
	LastReport   string `json:"last_report,omitempty"`
}

// GetRecentReports retrieves recent report snapshots with pagination.
func GetRecentReports(limit int) ([]types.ReportSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT
			snapshot_id, report_number, trace_id, snapshot_timestamp, params_id,
			path, routing,
			previous_manager_balance, new_manager_balance,
			peg_before, peg_after, status, epoch
		FROM report_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent reports")
		return nil, fmt.Errorf("failed to query recent reports: %w", err)
	}
	defer rows.Close()

	var snapshots []types.ReportSnapshot
	for rows.Next() {
		snapshot, err := scanReportSnapshot(rows.Scan)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan report snapshot row")
			continue // Skip this row and continue with others
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error occurred during row iteration")
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Info().Int("count", len(snapshots)).Int("limit", limit).Msg("Retrieved recent reports")
	return snapshots, nil
}

// GetReportByID retrieves a specific report snapshot by its ID.
func GetReportByID(snapshotID int64) (*types.ReportSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			snapshot_id, report_number, trace_id, snapshot_timestamp, params_id,
			path, routing,
			previous_manager_balance, new_manager_balance,
			peg_before, peg_after, status, epoch
		FROM report_snapshots
		WHERE snapshot_id = $1
	`

	row := DB.QueryRow(query, snapshotID)
	snapshot, err := scanReportSnapshot(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report with ID %d not found", snapshotID)
		}
		log.Error().Err(err).Int64("snapshot_id", snapshotID).Msg("Failed to query report by ID")
		return nil, fmt.Errorf("failed to query report by ID: %w", err)
	}

	log.Info().Int64("snapshot_id", snapshotID).Int("report_number", snapshot.ReportNumber).Msg("Retrieved report by ID")
	return &snapshot, nil
}

// scanReportSnapshot reads one report_snapshots row through the given scan
// function, shared by single-row and multi-row queries.
func scanReportSnapshot(scan func(dest ...any) error) (types.ReportSnapshot, error) {
	var snapshot types.ReportSnapshot
	var routingJSON []byte

	err := scan(
		&snapshot.SnapshotID, &snapshot.ReportNumber, &snapshot.TraceID, &snapshot.Timestamp, &snapshot.ParamsID,
		&snapshot.Path, &routingJSON,
		&snapshot.PreviousManagerBalance, &snapshot.NewManagerBalance,
		&snapshot.PegBefore, &snapshot.PegAfter, &snapshot.Status, &snapshot.Epoch,
	)
	if err != nil {
		return types.ReportSnapshot{}, err
	}

	if len(routingJSON) > 0 {
		if err := json.Unmarshal(routingJSON, &snapshot.Routing); err != nil {
			return types.ReportSnapshot{}, fmt.Errorf("failed to unmarshal routing breakdown: %w", err)
		}
	}
	return snapshot, nil
}

// GetReportMetrics retrieves aggregated waterfall statistics.
func GetReportMetrics() (*ReportMetrics, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	metrics := &ReportMetrics{}

	query := `
		SELECT
			COUNT(*) as total_reports,
			COUNT(CASE WHEN path = 'PROFIT' THEN 1 END) as profit_count,
			COUNT(CASE WHEN path = 'LOSS' THEN 1 END) as loss_count,
			COALESCE(MIN(snapshot_timestamp)::text, '') as first_report,
			COALESCE(MAX(snapshot_timestamp)::text, '') as last_report
		FROM report_snapshots
	`

	err := DB.QueryRow(query).Scan(
		&metrics.TotalReports,
		&metrics.ProfitCount,
		&metrics.LossCount,
		&metrics.FirstReport,
		&metrics.LastReport,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get report metrics: %w", err)
	}

	log.Info().
		Int("totalReports", metrics.TotalReports).
		Int("profitCount", metrics.ProfitCount).
		Int("lossCount", metrics.LossCount).
		Msg("Retrieved report metrics")

	return metrics, nil
}
