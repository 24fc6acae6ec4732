package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/usxprotocol/treasury/internal/logger"
	"github.com/usxprotocol/treasury/internal/manager"
	"github.com/usxprotocol/treasury/internal/state"
	"github.com/usxprotocol/treasury/internal/treasury"
	"github.com/usxprotocol/treasury/internal/types"
)

const (
	// Export constants for use in main.go
	DEFAULT_PARAMS_CONFIG_NAME    = "default_treasury_policy"
	DEFAULT_PARAMS_CONFIG_VERSION = 1
)

// Engine drives the report cycle: poll the yield manager's balance, feed it
// to the treasury's profit/loss waterfall, persist the audit snapshot.
type Engine struct {
	// Core dependencies
	logger   zerolog.Logger
	manager  manager.YieldManager
	treasury *treasury.Treasury

	// ReporterID is the identity the engine reports under; it must hold the
	// reporter role on the treasury's access gate.
	reporterID string

	// Configuration
	configName    string
	configVersion int

	// Runtime state
	cycleCount int
}

// Config holds the configuration for creating a new Engine instance
type Config struct {
	Manager       manager.YieldManager
	Treasury      *treasury.Treasury
	ReporterID    string
	ConfigName    string
	ConfigVersion int
}

// NewEngine creates a new engine instance with dependency injection
func NewEngine(cfg Config) (*Engine, error) {
	// Validate required dependencies
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:        logger.GetForComponent("report_engine"),
		manager:       cfg.Manager,
		treasury:      cfg.Treasury,
		reporterID:    cfg.ReporterID,
		configName:    cfg.ConfigName,
		configVersion: cfg.ConfigVersion,
		cycleCount:    0,
	}

	e.logger.Info().
		Str("configName", e.configName).
		Int("configVersion", e.configVersion).
		Msg("Engine instance created successfully with dependency injection")

	return e, nil
}

// validateEngineConfig validates the engine configuration
func validateEngineConfig(cfg Config) error {
	if cfg.Manager == nil {
		return fmt.Errorf("yield manager cannot be nil")
	}
	if cfg.Treasury == nil {
		return fmt.Errorf("treasury cannot be nil")
	}
	if cfg.ReporterID == "" {
		return fmt.Errorf("reporter identity cannot be empty")
	}
	if cfg.ConfigName == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	if cfg.ConfigVersion <= 0 {
		return fmt.Errorf("config version must be positive")
	}
	return nil
}

// RunLoop starts the main report loop with the specified interval
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	e.logger.Info().
		Dur("interval", interval).
		Msg("Starting report engine main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	e.cycleCount++
	e.logger.Info().Int("cycle", e.cycleCount).Msg("Initiating report cycle")
	e.RunCycle(ctx)
	e.logger.Info().Int("cycle", e.cycleCount).Msg("Report cycle completed")

	// Continue with ticker
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Report loop stopped due to context cancellation")
			return
		case <-ticker.C:
			e.cycleCount++
			e.logger.Info().Int("cycle", e.cycleCount).Msg("Initiating report cycle")
			e.RunCycle(ctx)
			e.logger.Info().Int("cycle", e.cycleCount).Msg("Report cycle completed")
		}
	}
}

// RunCycle executes one complete report cycle
func (e *Engine) RunCycle(ctx context.Context) {
	cycleStartTime := time.Now()

	// Generate unique trace ID for tracing logs across the entire cycle
	traceID := uuid.New().String()
	cycleLogger := e.logger.With().Str("trace_id", traceID).Logger()

	cycleLogger.Info().Msg("--- Starting report cycle ---")

	// --- Step 1: Fetch the manager's balance ---
	balance, err := e.manager.Balance(ctx)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to fetch manager balance.")
		return
	}

	previous := e.treasury.AllocatedToManager()
	cycleLogger.Info().
		Str("balance", balance.String()).
		Str("previous", previous.String()).
		Msg("Step 1: Manager balance fetched.")

	// An unchanged balance is a caller error at the treasury, so the engine
	// withholds the report instead of submitting a guaranteed rejection. It
	// still warns: a manager balance frozen across many cycles usually means
	// the manager is stalled.
	if balance.Equal(previous) {
		cycleLogger.Warn().
			Str("balance", balance.String()).
			Msg("Manager balance unchanged since last report; withholding report this cycle.")
		return
	}

	// --- Step 2: Route the delta through the waterfall ---
	outcome, err := e.treasury.Report(e.reporterID, balance)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: treasury rejected the report.")
		return
	}

	cycleLogger.Info().
		Str("path", string(outcome.Path)).
		Str("status", string(outcome.Status)).
		Uint64("epoch", outcome.Epoch).
		Msg("Step 2: Report routed.")

	// --- Step 3: Persist the audit snapshot ---
	snapshot := types.ReportSnapshot{
		ReportNumber:           e.getReportNumber(),
		TraceID:                traceID,
		Timestamp:              cycleStartTime,
		ParamsID:               e.getParamsID(),
		Path:                   outcome.Path,
		Routing:                outcome.Routing,
		PreviousManagerBalance: outcome.PreviousBalance,
		NewManagerBalance:      outcome.NewBalance,
		PegBefore:              outcome.PegBefore,
		PegAfter:               outcome.PegAfter,
		Status:                 outcome.Status,
		Epoch:                  outcome.Epoch,
	}
	e.saveReportSnapshot(snapshot, cycleLogger)

	cycleLogger.Info().
		Dur("duration", time.Since(cycleStartTime)).
		Msg("--- Report cycle finished ---")
}

// getReportNumber returns the next global report number, falling back to the
// in-process cycle counter if the database is unavailable.
func (e *Engine) getReportNumber() int {
	number, err := state.IncrementReportNumber()
	if err != nil {
		e.logger.Warn().Err(err).Int("fallback", e.cycleCount).Msg("Failed to increment persistent report counter, using in-process count")
		return e.cycleCount
	}
	return number
}

// getParamsID returns the active parameter version's database ID, or nil.
func (e *Engine) getParamsID() *int64 {
	paramsID, err := state.GetActiveProtocolParametersID(e.configName)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to look up active parameters ID for snapshot")
		return nil
	}
	return paramsID
}

// saveReportSnapshot persists the snapshot; persistence is best-effort and
// never fails the cycle, since the treasury has already committed.
func (e *Engine) saveReportSnapshot(snapshot types.ReportSnapshot, cycleLogger zerolog.Logger) {
	snapshotID, err := state.SaveReportSnapshot(snapshot)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to save report snapshot (report remains committed)")
		return
	}
	cycleLogger.Info().
		Int64("snapshot_id", snapshotID).
		Int("report_number", snapshot.ReportNumber).
		Msg("Step 3: Report snapshot saved.")
}
