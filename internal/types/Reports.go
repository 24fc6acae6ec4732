/*

This file contains the types describing a single allocator report and the
persisted snapshot of how the profit/loss waterfall routed it.

Amounts are serialized as decimal strings: report snapshots outlive process
restarts and must not lose precision through float conversion.

*/

package types

import "time"

// ReportPath says which branch of the waterfall a report took.
type ReportPath string

const (
	ReportPathProfit ReportPath = "PROFIT"
	ReportPathLoss   ReportPath = "LOSS"
)

// RoutingBreakdown is the full accounting of a single report. Profit fields
// are zero on a loss report and vice versa. All values are deposit-token
// units (18 decimals) except the manager balances, which are reserve units.
type RoutingBreakdown struct {
	GrossProfit      string `json:"gross_profit"`
	InsuranceAccrual string `json:"insurance_accrual"`
	ProtocolFee      string `json:"protocol_fee"`
	StakerShare      string `json:"staker_share"`

	GrossLoss     string `json:"gross_loss"`
	BufferSlashed string `json:"buffer_slashed"`
	VaultBurned   string `json:"vault_burned"`
	Unabsorbed    string `json:"unabsorbed"`
}

// ReportOutcome is what Treasury.Report returns to its caller: the routing
// breakdown plus the resulting engine state. The engine persists this as a
// ReportSnapshot.
type ReportOutcome struct {
	Path            ReportPath
	Routing         RoutingBreakdown
	PegBefore       string
	PegAfter        string
	Status          TreasuryStatus
	Epoch           uint64
	PreviousBalance string
	NewBalance      string
}

// ReportSnapshot is the persisted audit record of one report cycle.
type ReportSnapshot struct {
	SnapshotID   int64            `json:"snapshot_id,omitempty"`
	ReportNumber int              `json:"report_number"`
	TraceID      string           `json:"trace_id"`
	Timestamp    time.Time        `json:"timestamp"`
	ParamsID     *int64           `json:"params_id,omitempty"`
	Path         ReportPath       `json:"path"`
	Routing      RoutingBreakdown `json:"routing"`

	PreviousManagerBalance string `json:"previous_manager_balance"`
	NewManagerBalance      string `json:"new_manager_balance"`

	PegBefore string         `json:"peg_before"`
	PegAfter  string         `json:"peg_after"`
	Status    TreasuryStatus `json:"status"`
	Epoch     uint64         `json:"epoch"`
}
