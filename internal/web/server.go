package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/usxprotocol/treasury/internal/logger"
	"github.com/usxprotocol/treasury/internal/state"
	"github.com/usxprotocol/treasury/internal/treasury"
	"github.com/usxprotocol/treasury/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for treasury data and the withdrawal queue
type WebServer struct {
	router   *mux.Router
	port     string
	treasury *treasury.Treasury
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, t *treasury.Treasury) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:   mux.NewRouter(),
		port:     port,
		treasury: t,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/treasury/summary", ws.handleGetSummary).Methods("GET")
	api.HandleFunc("/peg", ws.handleGetPeg).Methods("GET")
	api.HandleFunc("/buffer", ws.handleGetBuffer).Methods("GET")
	api.HandleFunc("/rewards", ws.handleGetRewards).Methods("GET")
	api.HandleFunc("/reports", ws.handleGetReports).Methods("GET")
	api.HandleFunc("/reports/latest", ws.handleGetLatestReport).Methods("GET")
	api.HandleFunc("/reports/metrics", ws.handleGetReportMetrics).Methods("GET")
	api.HandleFunc("/reports/{id}", ws.handleGetReport).Methods("GET")
	api.HandleFunc("/parameters", ws.handleGetParameters).Methods("GET")
	api.HandleFunc("/withdrawals", ws.handleGetWithdrawals).Methods("GET")
	api.HandleFunc("/withdrawals/history", ws.handleGetWithdrawalHistory).Methods("GET")
	api.HandleFunc("/withdrawals", ws.handleRequestWithdrawal).Methods("POST")
	api.HandleFunc("/withdrawals/{id}/claim", ws.handleClaimWithdrawal).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns comprehensive server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Get runtime memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false

	// Get database connection status
	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	// A frozen treasury is alive but degraded: the engine refuses reports
	// and all deposit-token flows until governance unfreezes it.
	status := ws.treasury.Status()
	summary, err := ws.treasury.Summarize()
	if err != nil {
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors || status == "FROZEN" {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "usx-treasury",
			"version": "1.0.0",
		},
		"treasury_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"engine_status":    status,
			"epoch":            summary.Epoch,
		},
	}

	// Set appropriate HTTP status code
	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetSummary returns the full treasury dashboard view
func (ws *WebServer) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := ws.treasury.Summarize()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to build treasury summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve treasury summary")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetPeg returns the canonical peg ratio
func (ws *WebServer) handleGetPeg(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"peg":       ws.treasury.Peg().String(),
		"status":    ws.treasury.Status(),
		"timestamp": time.Now().UTC(),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetBuffer returns insurance buffer state
func (ws *WebServer) handleGetBuffer(w http.ResponseWriter, r *http.Request) {
	target, err := ws.treasury.BufferTarget()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to compute buffer target")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve buffer state")
		return
	}

	balance := ws.treasury.BufferBalance()
	response := map[string]interface{}{
		"balance":   balance.String(),
		"target":    target.String(),
		"timestamp": time.Now().UTC(),
	}
	if display, err := utils.AmountToFloat64(balance, treasury.DepositDecimals); err == nil {
		response["balance_display"] = display
	}
	if display, err := utils.AmountToFloat64(target, treasury.DepositDecimals); err == nil {
		response["target_display"] = display
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetRewards returns the vested/unvested reward stream split
func (ws *WebServer) handleGetRewards(w http.ResponseWriter, r *http.Request) {
	distributed, undistributed := ws.treasury.PendingRewards()

	response := map[string]interface{}{
		"distributed":   distributed.String(),
		"undistributed": undistributed.String(),
		"timestamp":     time.Now().UTC(),
	}
	if display, err := utils.AmountToFloat64(undistributed, treasury.DepositDecimals); err == nil {
		response["undistributed_display"] = display
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetReports returns paginated report snapshots
func (ws *WebServer) handleGetReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	reports, err := state.GetRecentReports(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent reports")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve reports")
		return
	}

	response := map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
		"limit":   limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetReport returns a specific report snapshot by ID
func (ws *WebServer) handleGetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idStr := vars["id"]

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid report ID")
		return
	}

	report, err := state.GetReportByID(id)
	if err != nil {
		webLogger.Error().Err(err).Int64("reportId", id).Msg("Failed to get report")
		ws.writeErrorResponse(w, http.StatusNotFound, "Report not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, report)
}

// handleGetLatestReport returns the most recent report snapshot
func (ws *WebServer) handleGetLatestReport(w http.ResponseWriter, r *http.Request) {
	reports, err := state.GetRecentReports(1)
	if err != nil || len(reports) == 0 {
		webLogger.Error().Err(err).Msg("Failed to get latest report")
		ws.writeErrorResponse(w, http.StatusNotFound, "No reports found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, reports[0])
}

// handleGetReportMetrics returns aggregated waterfall statistics
func (ws *WebServer) handleGetReportMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := state.GetReportMetrics()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get report metrics")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve report metrics")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, metrics)
}

// handleGetParameters returns the active protocol parameters and bounds
func (ws *WebServer) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"parameters": ws.treasury.Params(),
		"bounds":     ws.treasury.Bounds(),
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetWithdrawals returns the in-memory withdrawal audit trail
func (ws *WebServer) handleGetWithdrawals(w http.ResponseWriter, r *http.Request) {
	requests := ws.treasury.Withdrawals()

	response := map[string]interface{}{
		"withdrawals": requests,
		"count":       len(requests),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// The withdrawal endpoints take the requester identity from the request body.
// This API is an operator surface fronting in-process ledgers: it must be
// deployed behind the operator's own authentication layer, which is the party
// that vouches for the requester named in the body. Claims are additionally
// bound to the original requester by the treasury itself.
type withdrawalRequestBody struct {
	Requester string `json:"requester"`
	Amount    string `json:"amount"`
}

// handleRequestWithdrawal records a new withdrawal request
func (ws *WebServer) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var body withdrawalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, ok := sdkmath.NewIntFromString(body.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	id, err := ws.treasury.RequestWithdrawal(body.Requester, amount)
	if err != nil {
		ws.writeTreasuryError(w, err, "Failed to request withdrawal")
		return
	}

	ws.persistWithdrawal(id)

	ws.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"id":     id,
		"amount": amount.String(),
	})
}

type claimRequestBody struct {
	Requester string `json:"requester"`
}

// handleClaimWithdrawal claims a matured withdrawal request
func (ws *WebServer) handleClaimWithdrawal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid withdrawal ID")
		return
	}

	var body claimRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payout, err := ws.treasury.ClaimWithdrawal(body.Requester, id)
	if err != nil {
		ws.writeTreasuryError(w, err, "Failed to claim withdrawal")
		return
	}

	ws.persistWithdrawal(id)

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"payout": payout.String(),
	})
}

// persistWithdrawal mirrors a request's current state into the database audit
// table. Persistence is best-effort; the in-memory trail is authoritative.
func (ws *WebServer) persistWithdrawal(id uint64) {
	req, err := ws.treasury.WithdrawalByID(id)
	if err != nil {
		webLogger.Error().Err(err).Uint64("id", id).Msg("Failed to read withdrawal for persistence")
		return
	}
	if err := state.UpsertWithdrawalRequest(req); err != nil {
		webLogger.Error().Err(err).Uint64("id", id).Msg("Failed to persist withdrawal request")
	}
}

// handleGetWithdrawalHistory returns the persisted withdrawal audit trail
func (ws *WebServer) handleGetWithdrawalHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	rows, err := state.GetWithdrawalRequests(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get withdrawal history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve withdrawal history")
		return
	}

	response := map[string]interface{}{
		"withdrawals": rows,
		"count":       len(rows),
		"limit":       limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeTreasuryError maps treasury errors onto HTTP status codes.
func (ws *WebServer) writeTreasuryError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, treasury.ErrUnknownRequest):
		ws.writeErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, treasury.ErrFrozen),
		errors.Is(err, treasury.ErrAlreadyClaimed),
		errors.Is(err, treasury.ErrNotMatured),
		errors.Is(err, treasury.ErrEpochNotAdvanced),
		errors.Is(err, treasury.ErrNotRequester):
		ws.writeErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, treasury.ErrZeroAmount):
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	default:
		webLogger.Error().Err(err).Msg(fallback)
		ws.writeErrorResponse(w, http.StatusInternalServerError, fallback)
	}
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
