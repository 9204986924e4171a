package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/elys-network/lgevault/internal/app"
	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/logger"
	"github.com/elys-network/lgevault/internal/metrics"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 16

// Config configures the HTTP API.
type Config struct {
	Port           string
	JWTSecret      string
	RateLimitRPS   float64 // Zero disables rate limiting
	RateLimitBurst int
}

// WebServer exposes the ledger over HTTP: read-only views, caller-signed operations, the receipt
// history and a websocket feed of new receipts.
type WebServer struct {
	router  *mux.Router
	port    string
	app     *app.App
	secret  []byte
	limiter *RateLimiter
	server  *http.Server
	log     zerolog.Logger
	started time.Time

	// quit ends websocket feeds, which Shutdown does not track.
	quit     chan struct{}
	quitOnce sync.Once
}

// NewWebServer creates a new web server instance
func NewWebServer(cfg Config, a *app.App) *WebServer {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	ws := &WebServer{
		router:  mux.NewRouter(),
		port:    cfg.Port,
		app:     a,
		secret:  []byte(cfg.JWTSecret),
		log:     logger.GetForComponent("web_server"),
		started: time.Now(),
		quit:    make(chan struct{}),
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		ws.limiter = NewRateLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	ws.setupRoutes()
	ws.server = &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return ws
}

// Handler returns the root handler, middleware included.
func (ws *WebServer) Handler() http.Handler { return ws.router }

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")
	api.HandleFunc("/events", ws.handleEvents).Methods("GET")

	ws.registerVaultRoutes(api.PathPrefix("/vault").Subrouter())
	ws.registerLGERoutes(api.PathPrefix("/lge").Subrouter())
	ws.registerBankRoutes(api.PathPrefix("/bank").Subrouter())

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
	if ws.limiter != nil {
		ws.router.Use(ws.rateLimitMiddleware)
	}
}

// Start serves until Shutdown is called. It returns nil after a graceful shutdown.
func (ws *WebServer) Start() error {
	ws.log.Info().Str("port", ws.port).Msg("Starting web server")

	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.quitOnce.Do(func() { close(ws.quit) })
	ws.log.Info().Msg("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// handleHealth reports store reachability, the ledger head and runtime statistics.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	storeHealthy := ws.app.Ledger.Store().Ping(r.Context()) == nil
	head, headErr := ws.app.Ledger.Head(r.Context())

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !storeHealthy || headErr != nil {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"ledger": map[string]interface{}{
			"store_healthy": storeHealthy,
			"height":        head.Height,
			"time":          head.Time,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetReceipts returns the most recent committed receipts, newest first.
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	var receipts []types.Receipt
	err := ws.app.Ledger.View(r.Context(), func(tx *ledger.Tx) error {
		var err error
		receipts, err = tx.RecentReceipts(limit)
		return err
	})
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	})
}

// view runs fn against committed state and writes its result.
func (ws *WebServer) view(w http.ResponseWriter, r *http.Request, fn func(tx *ledger.Tx) (interface{}, error)) {
	var result interface{}
	err := ws.app.Ledger.View(r.Context(), func(tx *ledger.Tx) error {
		var err error
		result, err = fn(tx)
		return err
	})
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, result)
}

// execute runs op as the authenticated caller and writes the receipt.
func (ws *WebServer) execute(w http.ResponseWriter, r *http.Request, op string, call ledger.Call, fn ledger.OpFunc) {
	call.Op = op
	call.Sender = senderFrom(r.Context())
	receipt, err := ws.app.Ledger.Execute(r.Context(), call, fn)
	if err != nil {
		if tag := types.Tag(err); tag != "" {
			ws.writeJSONResponse(w, statusForTag(tag), map[string]interface{}{
				"error":   tag,
				"message": err.Error(),
				"receipt": receipt,
			})
			return
		}
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

func statusForTag(tag string) int {
	switch tag {
	case types.ErrNotOwner.Tag, types.ErrNotSuperAdmin.Tag:
		return http.StatusForbidden
	case types.ErrUnknownPool.Tag, types.ErrNotInitialized.Tag:
		return http.StatusNotFound
	case types.ErrInvalidAmount.Tag, types.ErrInvalidAddress.Tag:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

// writeLedgerError maps a view or infrastructure error to a response.
func (ws *WebServer) writeLedgerError(w http.ResponseWriter, err error) {
	if tag := types.Tag(err); tag != "" {
		ws.writeErrorResponse(w, statusForTag(tag), tag, err.Error())
		return
	}
	ws.log.Error().Err(err).Msg("Ledger request failed")
	ws.writeErrorResponse(w, http.StatusInternalServerError, "Internal", "internal error")
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		ws.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, tag, message string) {
	ws.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":   tag,
		"message": message,
	})
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and records request metrics by route template.
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapper.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration.Seconds())

		ws.log.Info().
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

// Hijack lets the websocket upgrader take over the connection.
func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
