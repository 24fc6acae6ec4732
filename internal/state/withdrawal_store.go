// ./internal/state/withdrawal_store.go
package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/usxprotocol/treasury/internal/types"
)

// WithdrawalRow is the persisted shape of a withdrawal request. Amounts stay
// decimal strings end to end; the in-memory sdkmath form never touches SQL.
type WithdrawalRow struct {
	ID          uint64  `json:"id"`
	Requester   string  `json:"requester"`
	Amount      string  `json:"amount"`
	RequestTime string  `json:"request_time"`
	Epoch       uint64  `json:"epoch"`
	Claimed     bool    `json:"claimed"`
	ClaimedAt   *string `json:"claimed_at,omitempty"`
	Fee         string  `json:"fee"`
}

// UpsertWithdrawalRequest writes the current state of a request to the audit
// table. Requests are never deleted; a claim updates the row in place.
func UpsertWithdrawalRequest(req types.WithdrawalRequest) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO withdrawal_requests (
			request_id, requester, amount, request_time, request_epoch, claimed, claimed_at, fee
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (request_id) DO UPDATE SET
			claimed = EXCLUDED.claimed,
			claimed_at = EXCLUDED.claimed_at,
			fee = EXCLUDED.fee;
	`

	_, err := DB.Exec(
		query,
		req.ID, req.Requester, req.Amount.String(), req.RequestTime, req.Epoch,
		req.Claimed, req.ClaimedAt, req.Fee.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert withdrawal request %d: %w", req.ID, err)
	}

	log.Debug().
		Uint64("request_id", req.ID).
		Bool("claimed", req.Claimed).
		Msg("Withdrawal request persisted")
	return nil
}

// GetWithdrawalRequests retrieves the most recent withdrawal requests.
func GetWithdrawalRequests(limit int) ([]WithdrawalRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 500 {
		limit = 50 // Default limit
	}

	query := `
		SELECT request_id, requester, amount, request_time::text, request_epoch, claimed, claimed_at::text, fee
		FROM withdrawal_requests
		ORDER BY request_id DESC
		LIMIT $1
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawal requests: %w", err)
	}
	defer rows.Close()

	var out []WithdrawalRow
	for rows.Next() {
		var row WithdrawalRow
		var claimedAt sql.NullString
		if err := rows.Scan(
			&row.ID, &row.Requester, &row.Amount, &row.RequestTime, &row.Epoch,
			&row.Claimed, &claimedAt, &row.Fee,
		); err != nil {
			log.Error().Err(err).Msg("Failed to scan withdrawal request row")
			continue
		}
		if claimedAt.Valid {
			row.ClaimedAt = &claimedAt.String
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}
