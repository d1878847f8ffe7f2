package web

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/metrics"
	"github.com/elys-network/reservevault/internal/monitor"
	"github.com/elys-network/reservevault/internal/rebalancer"
	"github.com/elys-network/reservevault/internal/state"
	"github.com/elys-network/reservevault/internal/types"
	"github.com/elys-network/reservevault/internal/utils"
)

// VaultReader is the read-only view of the vault the dashboard serves.
type VaultReader interface {
	Config(ctx context.Context) (types.VaultConfig, error)
	TotalValueLocked(ctx context.Context, env types.Env) (*types.TotalValueLockedResponse, error)
	PlanRebalance(ctx context.Context, env types.Env, target sdkmath.Int) (rebalancer.Plan, error)
}

// HeightSource returns the current block height.
type HeightSource interface {
	LatestHeight(ctx context.Context) (int64, error)
}

// HeightFunc adapts a function to HeightSource.
type HeightFunc func(ctx context.Context) (int64, error)

func (f HeightFunc) LatestHeight(ctx context.Context) (int64, error) { return f(ctx) }

// Options holds the dependencies of a WebServer.
type Options struct {
	Port           string
	VaultAddress   string
	StableDecimals int
	Vault          VaultReader
	Heights        HeightSource
	Journal        state.Journal    // optional
	Monitor        *monitor.Monitor // optional
	// DBCheck reports database health; nil when no database is configured.
	DBCheck func() error
}

// WebServer handles HTTP requests for vault data
type WebServer struct {
	router *mux.Router
	opts   Options
	logger zerolog.Logger
}

// NewWebServer creates a new web server instance
func NewWebServer(opts Options) *WebServer {
	if opts.Port == "" {
		opts.Port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		opts:   opts,
		logger: logger.GetForComponent("web_server"),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/config", ws.handleGetConfig).Methods("GET")
	api.HandleFunc("/status", ws.handleGetStatus).Methods("GET")
	api.HandleFunc("/plan", ws.handleGetPlan).Methods("GET")
	api.HandleFunc("/executions", ws.handleGetExecutions).Methods("GET")
	api.HandleFunc("/monitor", ws.handleGetMonitor).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler returns the configured router.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	ws.logger.Info().Str("port", ws.opts.Port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.opts.Port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		ws.logger.Info().Msg("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// handleHealth reports process and dependency health
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	healthy := true
	deps := map[string]interface{}{}

	if _, err := ws.opts.Heights.LatestHeight(r.Context()); err != nil {
		healthy = false
		deps["node"] = err.Error()
	} else {
		deps["node"] = "ok"
	}
	if ws.opts.DBCheck != nil {
		if err := ws.opts.DBCheck(); err != nil {
			healthy = false
			deps["database"] = err.Error()
		} else {
			deps["database"] = "ok"
		}
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !healthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
		},
		"dependencies": deps,
	})
}

// handleGetConfig returns the stored vault config
func (ws *WebServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := ws.opts.Vault.Config(r.Context())
	if err != nil {
		ws.logger.Error().Err(err).Msg("Failed to get vault config")
		ws.writeErrorResponse(w, http.StatusNotFound, "Vault config not found")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, cfg)
}

// handleGetStatus returns TVL, config and journal summary read concurrently
func (ws *WebServer) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	env, err := ws.env(r.Context())
	if err != nil {
		ws.logger.Error().Err(err).Msg("Failed to get block height")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to read block height")
		return
	}

	var (
		tvl     *types.TotalValueLockedResponse
		cfg     types.VaultConfig
		summary *state.ExecutionSummary
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		tvl, err = ws.opts.Vault.TotalValueLocked(ctx, env)
		return err
	})
	g.Go(func() error {
		var err error
		cfg, err = ws.opts.Vault.Config(ctx)
		return err
	})
	if ws.opts.Journal != nil {
		g.Go(func() error {
			var err error
			summary, err = ws.opts.Journal.Summary(ctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		ws.logger.Error().Err(err).Str("class", string(types.Classify(err))).Msg("Failed to read vault status")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to read vault status")
		return
	}

	if err := metrics.ObserveTVL(tvl.TVL, ws.opts.StableDecimals); err != nil {
		ws.logger.Warn().Err(err).Msg("Failed to record TVL metric")
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"height":          env.BlockHeight,
		"vault":           env.VaultAddress,
		"tvl":             tvl,
		"tvl_display":     utils.FormatAmount(tvl.TVL, ws.opts.StableDecimals),
		"minimum_reserve": cfg.MinimumStableReserved,
		"stable_denom":    cfg.StableDenom,
		"executions":      summary,
	})
}

// handleGetPlan returns a dry-run rebalance plan to ?target= (base units),
// defaulting to the minimum reserve
func (ws *WebServer) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	env, err := ws.env(r.Context())
	if err != nil {
		ws.logger.Error().Err(err).Msg("Failed to get block height")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to read block height")
		return
	}

	var target sdkmath.Int
	if targetStr := r.URL.Query().Get("target"); targetStr != "" {
		if target, err = utils.ParseAmount(targetStr); err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid target")
			return
		}
	} else {
		cfg, err := ws.opts.Vault.Config(r.Context())
		if err != nil {
			ws.writeErrorResponse(w, http.StatusNotFound, "Vault config not found")
			return
		}
		target = cfg.MinimumStableReserved
	}

	plan, err := ws.opts.Vault.PlanRebalance(r.Context(), env, target)
	if err != nil {
		ws.logger.Error().Err(err).Str("target", target.String()).Msg("Failed to plan rebalance")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Failed to plan rebalance")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"height": env.BlockHeight,
		"target": target,
		"plan":   plan,
	})
}

// handleGetExecutions returns the most recent journaled chains
func (ws *WebServer) handleGetExecutions(w http.ResponseWriter, r *http.Request) {
	if ws.opts.Journal == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Execution journal not configured")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	records, err := ws.opts.Journal.RecentExecutions(r.Context(), limit)
	if err != nil {
		ws.logger.Error().Err(err).Msg("Failed to get recent executions")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve executions")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"executions": records,
		"count":      len(records),
		"limit":      limit,
	})
}

// handleGetMonitor returns the reserve monitor's latest sample
func (ws *WebServer) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	if ws.opts.Monitor == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Reserve monitor not running")
		return
	}
	sample := ws.opts.Monitor.Last()
	if sample == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "No sample taken yet")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"cycles": ws.opts.Monitor.Cycles(),
		"sample": sample,
	})
}

func (ws *WebServer) env(ctx context.Context) (types.Env, error) {
	height, err := ws.opts.Heights.LatestHeight(ctx)
	if err != nil {
		return types.Env{}, err
	}
	return types.Env{BlockHeight: height, VaultAddress: ws.opts.VaultAddress}, nil
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		ws.logger.Error().Err(err).Msg("Failed to encode JSON response")
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
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
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

		ws.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
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
