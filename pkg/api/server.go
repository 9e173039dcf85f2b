package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/crossbook/pkg/app/spot"
	"github.com/uhyunpark/crossbook/pkg/metrics"
)

const (
	defaultTradesLimit = 100
	maxTradesLimit     = 1000
	maxBodyBytes       = 1 << 20
)

// Config holds the optional collaborators of a Server
type Config struct {
	CORSOrigins []string // empty allows any origin
	Metrics     *metrics.Metrics
	Logger      *zap.SugaredLogger
}

// Server handles REST API and WebSocket connections
type Server struct {
	engine  *spot.Engine
	router  *mux.Router
	hub     *Hub
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
	origins []string
}

// NewServer creates the API server and subscribes it to the engine's trades
// so that WebSocket clients see every submission.
func NewServer(engine *spot.Engine, cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		engine:  engine,
		router:  mux.NewRouter(),
		hub:     NewHub(log),
		metrics: cfg.Metrics,
		log:     log,
		origins: origins,
	}
	s.hub.initial = s.initialMessage

	s.setupRoutes()
	engine.OnTrades(s.broadcast)
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods(http.MethodPost)
	api.HandleFunc("/orderbook/{instrument}", s.handleGetOrderBook).Methods(http.MethodGet)
	api.HandleFunc("/trades/{instrument}", s.handleGetTrades).Methods(http.MethodGet)
	api.HandleFunc("/instruments", s.handleGetInstruments).Methods(http.MethodGet)
	api.HandleFunc("/price_data/{instrument}", s.handleGetPriceData).Methods(http.MethodGet)

	// paths served by the first version of the demo page
	legacy := s.router.PathPrefix("/api").Subrouter()
	legacy.HandleFunc("/add_order", s.handleSubmitOrder).Methods(http.MethodPost)
	legacy.HandleFunc("/order_book/{instrument}", s.handleGetOrderBook).Methods(http.MethodGet)
	legacy.HandleFunc("/price_data/{instrument}", s.handleGetPriceData).Methods(http.MethodGet)

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Hub exposes the WebSocket hub so callers can run it alongside a custom
// http.Server.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr until ctx is done, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("api_server_starting", "addr", addr, "cors_origins", s.origins)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	s.log.Infow("api_server_stopping", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	order, err := req.toOrder()
	if err != nil {
		s.log.Infow("order_request_rejected", "order_id", req.OrderID, "instrument", req.Instrument, "err", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	trades, book, err := s.engine.SubmitAndSnapshot(r.Context(), order)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if trades == nil {
		trades = []orderbook.Trade{}
	}

	respondJSON(w, http.StatusOK, SubmitOrderResponse{
		Status:    "success",
		OrderID:   order.ID,
		Trades:    trades,
		OrderBook: newBookView(book),
	})
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]
	if _, err := orderbook.ParseSymbol(instrument); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, OrderBookResponse{
		Status:    "success",
		OrderBook: newBookView(s.engine.Snapshot(r.Context(), instrument)),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]
	sym, err := orderbook.ParseSymbol(instrument)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := defaultTradesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxTradesLimit)
	}

	trades, err := s.engine.RecentTrades(r.Context(), sym.String(), limit)
	if err != nil {
		s.log.Errorw("recent_trades_failed", "instrument", sym, "err", err)
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, TradesResponse{
		Status:     "success",
		Instrument: sym.String(),
		Trades:     trades,
	})
}

func (s *Server) handleGetInstruments(w http.ResponseWriter, r *http.Request) {
	symbols := s.engine.Instruments()
	names := make([]string, len(symbols))
	for i, sym := range symbols {
		names[i] = sym.String()
	}
	respondJSON(w, http.StatusOK, InstrumentsResponse{Status: "success", Instruments: names})
}

func (s *Server) handleGetPriceData(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]
	series, ok := spot.LookupPrices(instrument)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no price data for %s", strings.ToUpper(instrument)))
		return
	}
	respondJSON(w, http.StatusOK, PriceDataResponse{
		Status: "success",
		Labels: series.Labels,
		Prices: series.Prices,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast
// ==============================

// broadcast pushes the book and the trades of a submission to WebSocket
// subscribers. Runs as an engine trade hook.
func (s *Server) broadcast(ctx context.Context, sym orderbook.Symbol, trades []orderbook.Trade) {
	s.hub.BroadcastToChannel(WSMessage{
		Type:    "orderbook",
		Channel: channelOrderbook + sym.String(),
		Data:    newBookView(s.engine.Snapshot(ctx, sym.String())),
	})
	if len(trades) > 0 {
		s.hub.BroadcastToChannel(WSMessage{
			Type:    "trades",
			Channel: channelTrades + sym.String(),
			Data:    trades,
		})
	}
}

// initialMessage gives new orderbook subscribers the current book
func (s *Server) initialMessage(channel string) (WSMessage, bool) {
	instrument, ok := strings.CutPrefix(channel, channelOrderbook)
	if !ok {
		return WSMessage{}, false
	}
	if _, err := orderbook.ParseSymbol(instrument); err != nil {
		return WSMessage{}, false
	}
	return WSMessage{
		Type:    "orderbook",
		Channel: channel,
		Data:    newBookView(s.engine.Snapshot(context.Background(), instrument)),
	}, true
}

// ==============================
// Helper Functions
// ==============================

func statusFor(err error) int {
	switch {
	case errors.Is(err, orderbook.ErrInvalidOrder),
		errors.Is(err, orderbook.ErrInvalidSide),
		errors.Is(err, orderbook.ErrInvalidInstrument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Status: "error", Message: message})
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades through the logging middleware
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debugw("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"latency", time.Since(start))
	})
}
