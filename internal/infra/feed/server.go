package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"dex_sim/internal/domain"
	"dex_sim/internal/engine"
	"dex_sim/internal/infra"
	"dex_sim/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Deps are the components the feed exposes.
type Deps struct {
	Sequencer *engine.Sequencer
	Quotes    *service.QuoteService
	Mev       *service.MevSimulator
	Executor  domain.Executor
	Metrics   *infra.Metrics
	Charts    *infra.ChartRenderer
	TradeSize decimal.Decimal
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr         string
	CommandRate  float64
	CommandBurst int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server is the HTTP and websocket surface of the simulator.
type Server struct {
	deps   Deps
	router *mux.Router
	server *http.Server
	hub    *Hub
}

// NewServer creates a server and subscribes it to quote and MEV updates.
func NewServer(cfg ServerConfig, deps Deps) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if deps.TradeSize.IsZero() {
		deps.TradeSize = decimal.NewFromInt(1)
	}

	s := &Server{
		deps:   deps,
		router: mux.NewRouter(),
	}
	s.hub = NewHub(s.handleCommand, deps.Metrics, cfg.CommandRate, cfg.CommandBurst)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	deps.Quotes.Subscribe(s.onBatch)
	if deps.Mev != nil {
		deps.Mev.Subscribe(func(v service.MevView) {
			s.hub.Broadcast("mev", v)
		})
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Pair symbols contain a slash and arrive escaped.
	s.router.UseEncodedPath()
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.hub.ServeWS).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/pairs", s.handlePairs).Methods(http.MethodGet)
	api.HandleFunc("/venues", s.handleVenues).Methods(http.MethodGet)
	api.HandleFunc("/strategies", s.handleStrategies).Methods(http.MethodGet)
	api.HandleFunc("/insights/{pair}", s.handleInsights).Methods(http.MethodGet)
	api.HandleFunc("/quotes/{pair}", s.handleQuotes).Methods(http.MethodGet)
	api.HandleFunc("/history/{pair}", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/arbitrage/{pair}", s.handleArbitrage).Methods(http.MethodGet)
	api.HandleFunc("/arbitrage/{pair}/execute", s.handleExecute).Methods(http.MethodPost)
	api.HandleFunc("/mev", s.handleMev).Methods(http.MethodGet)
	api.HandleFunc("/chart/{pair}.png", s.handleChart).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
}

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs all requests with structured format
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		slog.Debug("REQ",
			slog.Any("request_id", r.Context().Value(requestIDKey)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapper.statusCode),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// onBatch pushes the active pair's updates to clients.
func (s *Server) onBatch(b domain.QuoteBatch, opps []domain.ArbitrageOpportunity) {
	if b.Pair != s.deps.Sequencer.ActivePair() {
		return
	}
	if d, ok := s.deps.Quotes.Dashboard(b.Pair); ok && d.Batch.Seq == b.Seq {
		s.hub.Broadcast("quotes", d)
	} else {
		s.hub.Broadcast("quotes", b)
	}
	s.hub.Broadcast("arbitrage", arbitrageView{
		Pair:          b.Pair,
		Seq:           b.Seq,
		Opportunities: opps,
		Summary:       service.Summarize(opps),
	})
}

// Start serves until Shutdown. It returns nil on a clean shutdown.
func (s *Server) Start() error {
	slog.Info("Feed server listening", slog.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("feed server: %w", err)
	}
	return nil
}

// Shutdown disconnects clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down feed server")
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

func (w *responseWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
