// Package server exposes the holdings computation over HTTP, mirroring the
// dashboard workflow: ingest a tradebook and a batch of contract notes,
// preview the computed holdings, then commit them as the served state.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ravisk/folio"
	"github.com/ravisk/folio/contractnote"
)

// stagingTTL is how long a previewed ingest stays committable.
const stagingTTL = 30 * time.Minute

// Server holds the committed trade history plus the staged ingests awaiting
// commit. All state is in memory; restarting the server starts empty.
type Server struct {
	log      *zap.Logger
	currency string

	mu      sync.Mutex
	trades  []folio.Trade
	charges folio.Charges
	aliases map[string]string
	staged  map[string]*staging
}

// staging is one previewed ingest waiting for a commit.
type staging struct {
	trades  []folio.Trade
	charges folio.Charges
	created time.Time
}

// New creates a server with no committed state.
func New(log *zap.Logger, currency string) *Server {
	return &Server{
		log:      log,
		currency: currency,
		charges:  folio.NewCharges(),
		aliases:  make(map[string]string),
		staged:   make(map[string]*staging),
	}
}

// Load replaces the committed state, typically at startup from configured
// data files.
func (s *Server) Load(trades []folio.Trade, charges folio.Charges) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = trades
	s.charges = charges
}

// Router returns the chi router with all routes registered and request
// logging.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLogging)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/dashboard", s.handleDashboard)
	r.Get("/reports/realized", s.handleRealized)
	r.Get("/reports/summary", s.handleSummary)
	r.Post("/symbols/aliases", s.handleAliases)
	r.Post("/ingest/preview", s.handleIngestPreview)
	r.Post("/ingest/commit", s.handleIngestCommit)

	return r
}

// requestLogging logs every request with its duration and starts a span per
// request when tracing is enabled.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := StartSpan(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// snapshot returns the committed state under the lock, with the symbol
// aliases already applied to the trades.
func (s *Server) snapshot() ([]folio.Trade, folio.Charges, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades := s.trades
	if len(s.aliases) > 0 {
		trades = make([]folio.Trade, len(s.trades))
		for i, t := range s.trades {
			if to, ok := s.aliases[t.Symbol]; ok {
				t.Symbol = to
			}
			trades[i] = t
		}
	}
	return trades, s.charges, maps.Clone(s.aliases)
}

type dashboardResponse struct {
	Holdings      []folio.SecurityHolding `json:"holdings"`
	Invested      folio.Money             `json:"invested"`
	RealizedPnL   folio.Money             `json:"realized_pnl"`
	FYList        []string                `json:"fy_list"`
	Currency      string                  `json:"currency"`
	SymbolAliases map[string]string       `json:"symbol_aliases"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	trades, charges, aliases := s.snapshot()

	holdings, err := folio.ComputeHoldings(trades, charges)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report := folio.NewHoldingReport(folio.Today(), holdings)
	invested := folio.M(0, s.currency)
	for _, sec := range report.Securities {
		invested = invested.Add(sec.Invested)
	}

	// The realized figure is scoped to the requested financial year, the
	// dashboard's FY selector; without the parameter it is the all-time total.
	realized := folio.M(0, s.currency)
	for _, row := range folio.RealizedReport(holdings, r.URL.Query().Get("fy")) {
		realized = realized.Add(row.Gain)
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Holdings:      report.Securities,
		Invested:      invested,
		RealizedPnL:   realized,
		FYList:        folio.FinancialYears(trades),
		Currency:      s.currency,
		SymbolAliases: aliases,
	})
}

func (s *Server) handleRealized(w http.ResponseWriter, r *http.Request) {
	trades, charges, _ := s.snapshot()

	holdings, err := folio.ComputeHoldings(trades, charges)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rows := folio.RealizedReport(holdings, r.URL.Query().Get("fy"))
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	_, charges, _ := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"charges_by_fy": folio.ChargesByYear(charges)})
}

// handleAliases merges symbol aliases into the store. An alias renames a
// tradebook symbol to its current ticker, so a history spanning a rename is
// replayed as one instrument.
func (s *Server) handleAliases(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Aliases []struct {
			From string `json:"from_symbol"`
			To   string `json:"to_symbol"`
		} `json:"aliases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	merged := make(map[string]string, len(req.Aliases))
	for _, a := range req.Aliases {
		from := strings.ToUpper(strings.TrimSpace(a.From))
		to := strings.ToUpper(strings.TrimSpace(a.To))
		if from == "" || to == "" {
			s.writeError(w, &folio.InputShapeError{Field: "aliases", Reason: "from_symbol and to_symbol must not be empty"})
			return
		}
		merged[from] = to
	}

	s.mu.Lock()
	maps.Copy(s.aliases, merged)
	s.mu.Unlock()

	s.log.Info("symbol aliases saved", zap.Int("aliases", len(req.Aliases)))
	writeJSON(w, http.StatusOK, map[string]string{"message": "aliases saved"})
}

type previewResponse struct {
	StagingID string               `json:"staging_id"`
	Trades    int                  `json:"trades"`
	Notes     int                  `json:"notes"`
	Holdings  *folio.HoldingReport `json:"holdings"`
}

// handleIngestPreview parses a multipart upload holding one "tradebook" file
// and any number of "contracts" files, computes the resulting holdings, and
// stages the parsed data under a fresh staging id. Nothing is committed: the
// served state only changes on commit.
func (s *Server) handleIngestPreview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid multipart form: " + err.Error()})
		return
	}

	tradebooks := r.MultipartForm.File["tradebook"]
	if len(tradebooks) != 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "exactly one tradebook file is required"})
		return
	}
	tb, err := tradebooks[0].Open()
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer tb.Close()

	trades, err := folio.ImportTrades(tb)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var notes []io.Reader
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for _, header := range r.MultipartForm.File["contracts"] {
		f, err := header.Open()
		if err != nil {
			s.writeError(w, err)
			return
		}
		closers = append(closers, f)
		notes = append(notes, f)
	}

	summaries, err := contractnote.DefaultSchema.ParseAll(notes...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	charges := contractnote.Aggregate(summaries)

	// Compute now so a broken upload is rejected at preview time.
	holdings, err := folio.ComputeHoldings(trades, charges)
	if err != nil {
		s.writeError(w, err)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	// Abandoned previews expire, only the commit window keeps them alive.
	for old, st := range s.staged {
		if time.Since(st.created) > stagingTTL {
			delete(s.staged, old)
		}
	}
	s.staged[id] = &staging{trades: trades, charges: charges, created: time.Now()}
	s.mu.Unlock()

	s.log.Info("ingest staged",
		zap.String("staging_id", id),
		zap.Int("trades", len(trades)),
		zap.Int("notes", len(summaries)),
	)

	writeJSON(w, http.StatusOK, previewResponse{
		StagingID: id,
		Trades:    len(trades),
		Notes:     len(summaries),
		Holdings:  folio.NewHoldingReport(folio.Today(), holdings),
	})
}

func (s *Server) handleIngestCommit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StagingID string `json:"staging_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	s.mu.Lock()
	staged, ok := s.staged[req.StagingID]
	if ok {
		delete(s.staged, req.StagingID)
		s.trades = staged.trades
		s.charges = staged.charges
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "unknown staging id"})
		return
	}

	s.log.Info("ingest committed", zap.String("staging_id", req.StagingID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "ingest committed"})
}

// writeError maps computation errors to HTTP statuses: bad input is 422,
// anything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var overSell *folio.OverSellError
	var inputShape *folio.InputShapeError
	var parseErr *contractnote.ParseError

	status := http.StatusInternalServerError
	if errors.As(err, &overSell) || errors.As(err, &inputShape) || errors.As(err, &parseErr) {
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
