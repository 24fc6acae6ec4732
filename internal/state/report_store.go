// ./internal/state/report_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/usxprotocol/treasury/internal/types"
)

// SaveReportSnapshot saves the full audit record of one report cycle.
func SaveReportSnapshot(snapshot types.ReportSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	routingJSON, err := json.Marshal(snapshot.Routing)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal routing breakdown: %w", err)
	}

	query := `
		INSERT INTO report_snapshots (
			report_number, trace_id, snapshot_timestamp, params_id,
			path, routing,
			previous_manager_balance, new_manager_balance,
			peg_before, peg_after, status, epoch
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.ReportNumber, snapshot.TraceID, snapshot.Timestamp, snapshot.ParamsID,
		snapshot.Path, routingJSON,
		snapshot.PreviousManagerBalance, snapshot.NewManagerBalance,
		snapshot.PegBefore, snapshot.PegAfter, snapshot.Status, snapshot.Epoch,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save report snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("report_number", snapshot.ReportNumber).
		Str("path", string(snapshot.Path)).
		Msg("Report snapshot saved to database")

	return snapshotID, nil
}
