// Package gateway is the HTTP surface of the trading service: the queue
// and confirm endpoints, status and log reads, on-demand scans, and a
// WebSocket event stream for dashboards.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"daytrader-systemv1/internal/engine"
	"daytrader-systemv1/internal/logger"
	"daytrader-systemv1/internal/model"
	"daytrader-systemv1/internal/risk"
	"daytrader-systemv1/internal/scanner"
)

// quoter serves last-traded prices for the /api/ltp endpoint.
type quoter interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}

// Config wires the gateway's collaborators and scan defaults.
type Config struct {
	Engine    *engine.Engine
	Scanner   *scanner.Scanner
	Quotes    quoter
	Watchlist model.Watchlist
	Hub       *Hub

	// Defaults applied to /api/scan requests that omit fields.
	ScanDefaults scanner.Config
}

// Server handles the REST and WebSocket API.
type Server struct {
	engine    *engine.Engine
	scanner   *scanner.Scanner
	quotes    quoter
	watchlist model.Watchlist
	hub       *Hub
	scanDef   scanner.Config
}

// NewServer creates the API server.
func NewServer(cfg Config) *Server {
	return &Server{
		engine:    cfg.Engine,
		scanner:   cfg.Scanner,
		quotes:    cfg.Quotes,
		watchlist: cfg.Watchlist,
		hub:       cfg.Hub,
		scanDef:   cfg.ScanDefaults,
	}
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/queue_order", s.withTrace(s.handleQueueOrder))
	mux.HandleFunc("/api/pending", s.withTrace(s.handlePending))
	mux.HandleFunc("/api/confirm", s.withTrace(s.handleConfirm))
	mux.HandleFunc("/api/status", s.withTrace(s.handleStatus))
	mux.HandleFunc("/api/ltp", s.withTrace(s.handleLTP))
	mux.HandleFunc("/api/scan", s.withTrace(s.handleScan))
	mux.HandleFunc("/api/watchlist", s.withTrace(s.handleWatchlist))
	mux.HandleFunc("/api/logs", s.withTrace(s.handleLogs))
	if s.hub != nil {
		mux.HandleFunc("/ws/events", s.hub.ServeWS)
	}
}

// withTrace stamps each request with a trace ID and handles CORS
// preflight.
func (s *Server) withTrace(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		ctx := logger.WithTraceID(r.Context(), logger.GenerateTraceID("req", time.Now()))
		next(w, r.WithContext(ctx))
	}
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// handleQueueOrder accepts an entry candidate into the pending queue.
// Symbols outside the configured watchlist are rejected here, before the
// engine sees them.
func (s *Server) handleQueueOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var sig model.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sig.Normalize()
	if sig.Symbol != "" && !s.watchlist.Contains(sig.Symbol) {
		writeError(w, http.StatusBadRequest, "symbol not in watchlist: "+sig.Symbol)
		return
	}

	po, err := s.engine.Enqueue(r.Context(), sig)
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "queued", "order": po})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pending": s.engine.Pending()})
}

type confirmRequest struct {
	Token string `json:"token"`
}

// handleConfirm pops and places the queue head. The confirm token comes
// from the JSON body or, for curl convenience, the "token" query param.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req confirmRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Token == "" {
		req.Token = r.URL.Query().Get("token")
	}

	res, err := s.engine.Confirm(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid confirm token")
		case errors.Is(err, engine.ErrPositionOpen):
			writeError(w, http.StatusConflict, err.Error())
		case isRiskError(err):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case engine.IsBrokerError(err):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	if res.Empty {
		writeJSON(w, http.StatusOK, map[string]any{"status": "empty"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "placed",
		"order_id": res.OrderID,
		"position": res.Position,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleLTP(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query param required")
		return
	}
	price, err := s.quotes.Quote(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "ltp": price})
}

// scanRequest overrides scan defaults per call. Zero values fall back to
// the configured defaults.
type scanRequest struct {
	Symbols      []string `json:"symbols,omitempty"`
	Interval     string   `json:"interval,omitempty"`
	InvestAmount float64  `json:"invest_amount,omitempty"`
	TPPct        float64  `json:"tp_pct,omitempty"`
	SLPct        float64  `json:"sl_pct,omitempty"`
	EntryType    string   `json:"entry_type,omitempty"`
	ExitPref     string   `json:"exit_pref,omitempty"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	cfg := s.scanDef
	var req scanRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if len(req.Symbols) > 0 {
		cfg.Symbols = req.Symbols
	}
	if req.Interval != "" {
		cfg.Interval = req.Interval
	}
	if req.InvestAmount > 0 {
		cfg.InvestAmount = req.InvestAmount
	}
	if req.TPPct > 0 {
		cfg.TPPct = req.TPPct
	}
	if req.SLPct > 0 {
		cfg.SLPct = req.SLPct
	}
	if req.EntryType != "" {
		cfg.EntryType = model.OrderType(req.EntryType)
	}
	if req.ExitPref != "" {
		cfg.ExitPref = model.ExitPreference(req.ExitPref)
	}

	start := time.Now()
	res := s.scanner.Scan(r.Context(), cfg)
	log.Printf("[gateway] scan of %d symbols took %s", len(cfg.Symbols), time.Since(start).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"symbols": s.scanDef.Symbols})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "trade"
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "entries": s.engine.Logs(kind, limit)})
}

func isRiskError(err error) bool {
	var re *risk.LimitError
	return errors.As(err, &re)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
