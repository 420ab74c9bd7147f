package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dex_sim/internal/domain"
	"dex_sim/internal/infra"
	"dex_sim/internal/service"
	"dex_sim/internal/strategy"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type arbitrageView struct {
	Pair          string                        `json:"pair"`
	Seq           uint64                        `json:"seq"`
	Threshold     string                        `json:"threshold,omitempty"`
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
	Summary       domain.ArbitrageSummary       `json:"summary"`
}

type healthView struct {
	Status     string                `json:"status"`
	ActivePair string                `json:"active_pair"`
	Paused     bool                  `json:"paused"`
	IntervalMS int64                 `json:"interval_ms"`
	Clients    int                   `json:"clients"`
	Metrics    infra.MetricsSnapshot `json:"metrics"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownPair), errors.Is(err, domain.ErrUnknownVenue):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyExecuted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// NormalizePair accepts ETH/USDC, ETH%2FUSDC, ETH-USDC and eth_usdc.
func NormalizePair(raw string) string {
	if p, err := url.PathUnescape(raw); err == nil {
		raw = p
	}
	raw = strings.NewReplacer("-", "/", "_", "/").Replace(raw)
	return strings.ToUpper(strings.TrimSpace(raw))
}

// pairParam resolves the {pair} route variable against the configured pairs.
func (s *Server) pairParam(r *http.Request) (string, error) {
	return s.resolvePair(mux.Vars(r)["pair"])
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthView{
		Status:     "ok",
		ActivePair: s.deps.Sequencer.ActivePair(),
		Paused:     s.deps.Sequencer.Paused(),
		IntervalMS: s.deps.Sequencer.Interval().Milliseconds(),
		Clients:    s.hub.ClientCount(),
		Metrics:    s.deps.Metrics.Snapshot(),
	})
}

func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Sequencer.Pairs())
}

func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Sequencer.Venues())
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, strategy.All())
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	pair, err := s.pairParam(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	insights, err := s.deps.Sequencer.Insights(pair)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

// handleQuotes returns the pair's dashboard, generating a first batch when
// the pair has never been quoted.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	pair, err := s.pairParam(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	if _, ok := s.deps.Quotes.Latest(pair); !ok {
		batch, err := s.deps.Sequencer.GenerateQuotes(pair, time.Now())
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		s.deps.Quotes.ProcessBatch(r.Context(), batch)
	}

	d, ok := s.deps.Quotes.Dashboard(pair)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errors.New("no quotes yet"))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	pair, err := s.pairParam(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	points := s.deps.Quotes.History(pair)
	if points == nil {
		points = []service.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleArbitrage(w http.ResponseWriter, r *http.Request) {
	pair, err := s.pairParam(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	view := arbitrageView{Pair: pair}
	if b, ok := s.deps.Quotes.Latest(pair); ok {
		view.Seq = b.Seq
	}

	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err := decimal.NewFromString(raw)
		if err != nil || threshold.IsNegative() {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid threshold %q", raw))
			return
		}
		view.Threshold = threshold.String()
		view.Opportunities = s.deps.Quotes.Rescan(pair, threshold)
	} else {
		view.Threshold = s.deps.Quotes.Threshold().String()
		view.Opportunities = s.deps.Quotes.Opportunities(pair)
	}
	if view.Opportunities == nil {
		view.Opportunities = []domain.ArbitrageOpportunity{}
	}
	view.Summary = service.Summarize(view.Opportunities)
	writeJSON(w, http.StatusOK, view)
}

// handleExecute paper executes the opportunity at ?rank= (1 is best) from
// the pair's latest scan.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	pair, err := s.pairParam(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	rank := 1
	if raw := r.URL.Query().Get("rank"); raw != "" {
		if rank, err = strconv.Atoi(raw); err != nil || rank < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid rank %q", raw))
			return
		}
	}
	size := s.deps.TradeSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		if size, err = decimal.NewFromString(raw); err != nil || !size.IsPositive() {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid size %q", raw))
			return
		}
	}

	opps := s.deps.Quotes.Opportunities(pair)
	if rank > len(opps) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no opportunity at rank %d (have %d)", rank, len(opps)))
		return
	}

	report, err := s.deps.Executor.Execute(r.Context(), opps[rank-1], size)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMev(w http.ResponseWriter, r *http.Request) {
	if s.deps.Mev == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("mev simulator disabled"))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Mev.View())
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	pair, err := s.pairParam(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	series := SeriesFromHistory(s.deps.Quotes.History(pair), s.deps.Sequencer.Venues())
	var buf bytes.Buffer
	if err := s.deps.Charts.Render(&buf, series); err != nil {
		if errors.Is(err, infra.ErrNoSeries) {
			writeError(w, http.StatusNotFound, fmt.Errorf("%s: no history yet", pair))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// SeriesFromHistory turns history points into one price line per venue.
func SeriesFromHistory(points []service.HistoryPoint, venues []domain.Venue) []infra.Series {
	if len(points) == 0 {
		return nil
	}
	series := make([]infra.Series, 0, len(venues))
	for _, v := range venues {
		s := infra.Series{Name: v.Name, Color: v.Color, Values: make([]float64, 0, len(points))}
		for _, p := range points {
			if price, ok := p.Prices[v.Name]; ok {
				s.Values = append(s.Values, price.InexactFloat64())
			}
		}
		if len(s.Values) > 0 {
			series = append(series, s)
		}
	}
	return series
}
