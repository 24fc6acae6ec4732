package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/usxprotocol/treasury/internal/auth"
	"github.com/usxprotocol/treasury/internal/clock"
	"github.com/usxprotocol/treasury/internal/config"
	"github.com/usxprotocol/treasury/internal/engine"
	"github.com/usxprotocol/treasury/internal/ledger"
	"github.com/usxprotocol/treasury/internal/logger"
	"github.com/usxprotocol/treasury/internal/manager"
	"github.com/usxprotocol/treasury/internal/state"
	"github.com/usxprotocol/treasury/internal/treasury"
	"github.com/usxprotocol/treasury/internal/vault"
	"github.com/usxprotocol/treasury/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	// Ledger account names. The reserve and deposit ledgers are keyed by these
	// throughout the service; changing one is a migration, not a config tweak.
	reserveAccount = "treasury_reserve"
	managerAccount = "external_manager"
	bufferAccount  = "insurance_buffer"
	feeSinkAccount = "fee_sink"
	escrowAccount  = "withdrawal_escrow"
	vaultAccount   = "staking_vault"

	// Identities granted roles on the access gate at startup.
	governanceIdentity = "governance"
	reporterIdentity   = "report_engine"
)

// main is the entry point for the treasury service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Treasury Core Starting...")

	// Initialize Database Connection (audit trail and parameter versions)
	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: mustAtoi(config.DBPort, 5432),
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Protocol Parameters
	params, err := state.LoadActiveProtocolParameters(engine.DEFAULT_PARAMS_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active protocol parameters, using defaults and saving.")
		defaultParams := config.DefaultProtocolParameters
		if _, err := state.SaveProtocolParameters(defaultParams, engine.DEFAULT_PARAMS_CONFIG_NAME, engine.DEFAULT_PARAMS_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default protocol parameters.")
		}
		params = &defaultParams
	}
	log.Info().Msg("Protocol parameters loaded successfully.")

	// --- 2. Yield Manager Initialization (with Safety Switch) ---
	var ym manager.YieldManager
	if config.TreasuryMode == "live" {
		log.Warn().Msg("Initializing treasury in LIVE mode. Reports will move real balances.")
		client, err := manager.NewClient(config.ManagerAPI)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize yield manager client")
		}
		ym = client
	} else {
		log.Fatal().Msg("TREASURY_MODE is not set to 'live'. Halting to prevent accidental execution. Set TREASURY_MODE=live to run.")
	}

	// --- 3. Create Treasury Instance with Dependency Injection ---
	log.Info().Msg("Creating treasury instance with dependency injection...")

	reserveLedger := ledger.NewInMemoryLedger("usdc")
	depositLedger := ledger.NewInMemoryLedger("usx")
	shareLedger := ledger.NewInMemoryLedger("susx")

	gate := auth.NewStaticGate()
	gate.Grant(governanceIdentity, auth.RoleGovernance)
	gate.Grant(reporterIdentity, auth.RoleReporter)

	stakingVault, err := vault.NewStakingVault(vault.Config{
		Assets:              depositLedger,
		Shares:              shareLedger,
		Account:             vaultAccount,
		StreamPeriodSeconds: params.EpochLengthSeconds,
		Clock:               clock.System{},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create staking vault")
	}

	treasuryInstance, err := treasury.New(treasury.Config{
		Reserve: reserveLedger,
		Deposit: depositLedger,
		Vault:   stakingVault,
		Manager: ym,
		Gate:    gate,
		Clock:   clock.System{},
		Accounts: treasury.Accounts{
			Reserve: reserveAccount,
			Manager: managerAccount,
			Buffer:  bufferAccount,
			FeeSink: feeSinkAccount,
			Escrow:  escrowAccount,
		},
		Params: *params,
		Bounds: config.DefaultParameterBounds,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create treasury instance")
	}

	log.Info().Msg("Treasury instance created successfully")

	// --- Start Web Server ---
	webPort := config.WebPort
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, treasuryInstance)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting treasury API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Start Report Engine Main Loop ---
	engineInstance, err := engine.NewEngine(engine.Config{
		Manager:       ym,
		Treasury:      treasuryInstance,
		ReporterID:    reporterIdentity,
		ConfigName:    engine.DEFAULT_PARAMS_CONFIG_NAME,
		ConfigVersion: engine.DEFAULT_PARAMS_CONFIG_VERSION,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create report engine")
	}

	interval := time.Duration(config.ReportIntervalSeconds) * time.Second
	log.Info().Str("interval", interval.String()).Msg("Starting report engine main loop")

	// Create context for graceful shutdown
	ctx := context.Background()

	// Start the report loop (this will run indefinitely)
	engineInstance.RunLoop(ctx, interval)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
