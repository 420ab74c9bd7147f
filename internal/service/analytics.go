package service

import (
	"dex_sim/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultHistorySize is the number of batches kept per pair.
const DefaultHistorySize = 50

// HistoryPoint is one batch reduced to per-venue series values.
type HistoryPoint struct {
	Seq       uint64                     `json:"seq"`
	Timestamp int64                      `json:"timestamp"`
	Prices    map[string]decimal.Decimal `json:"prices"`
	Spreads   map[string]decimal.Decimal `json:"spreads"`
	Volumes   map[string]int64           `json:"volumes"`
}

// NewHistoryPoint reduces a batch to a history point.
func NewHistoryPoint(b domain.QuoteBatch) HistoryPoint {
	p := HistoryPoint{
		Seq:       b.Seq,
		Timestamp: b.Timestamp.UnixMilli(),
		Prices:    make(map[string]decimal.Decimal, len(b.Quotes)),
		Spreads:   make(map[string]decimal.Decimal, len(b.Quotes)),
		Volumes:   make(map[string]int64, len(b.Quotes)),
	}
	for i := range b.Quotes {
		q := &b.Quotes[i]
		p.Prices[q.Venue] = q.Price
		p.Spreads[q.Venue] = q.Spread
		p.Volumes[q.Venue] = q.Volume24h
	}
	return p
}

// History is a fixed-size ring buffer of history points.
type History struct {
	buf   []HistoryPoint
	head  int
	count int
}

// NewHistory creates a ring holding size points.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: make([]HistoryPoint, size)}
}

// Push appends p, overwriting the oldest point when full.
func (h *History) Push(p HistoryPoint) {
	h.buf[h.head] = p
	h.head = (h.head + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Len returns the number of stored points.
func (h *History) Len() int { return h.count }

// Cap returns the ring size.
func (h *History) Cap() int { return len(h.buf) }

// Points returns stored points oldest first.
func (h *History) Points() []HistoryPoint {
	out := make([]HistoryPoint, 0, h.count)
	start := (h.head - h.count + len(h.buf)) % len(h.buf)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(start+i)%len(h.buf)])
	}
	return out
}

// At returns the point back steps before the newest (0 is newest).
func (h *History) At(back int) (HistoryPoint, bool) {
	if back < 0 || back >= h.count {
		return HistoryPoint{}, false
	}
	idx := (h.head - 1 - back + 2*len(h.buf)) % len(h.buf)
	return h.buf[idx], true
}

// Clear drops every point.
func (h *History) Clear() {
	clear(h.buf)
	h.head = 0
	h.count = 0
}

// SpreadSummary is the spread distribution across venues for one tick.
type SpreadSummary struct {
	Avg decimal.Decimal `json:"avg"`
	Max decimal.Decimal `json:"max"`
	Min decimal.Decimal `json:"min"`
}

// SpreadStats computes average, max and min spread. Empty input yields zeros.
func SpreadStats(quotes []domain.Quote) SpreadSummary {
	if len(quotes) == 0 {
		return SpreadSummary{Avg: decimal.Zero, Max: decimal.Zero, Min: decimal.Zero}
	}
	sum := decimal.Zero
	lo, hi := quotes[0].Spread, quotes[0].Spread
	for i := range quotes {
		s := quotes[i].Spread
		sum = sum.Add(s)
		lo = decimal.Min(lo, s)
		hi = decimal.Max(hi, s)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(quotes)))).Round(domain.PricePrecision)
	return SpreadSummary{Avg: avg, Max: hi, Min: lo}
}

// BestBuy returns the quote with the lowest ask.
func BestBuy(quotes []domain.Quote) (domain.Quote, bool) {
	if len(quotes) == 0 {
		return domain.Quote{}, false
	}
	best := 0
	for i := 1; i < len(quotes); i++ {
		if quotes[i].Ask.LessThan(quotes[best].Ask) {
			best = i
		}
	}
	return quotes[best], true
}

// BestSell returns the quote with the highest bid.
func BestSell(quotes []domain.Quote) (domain.Quote, bool) {
	if len(quotes) == 0 {
		return domain.Quote{}, false
	}
	best := 0
	for i := 1; i < len(quotes); i++ {
		if quotes[i].Bid.GreaterThan(quotes[best].Bid) {
			best = i
		}
	}
	return quotes[best], true
}

// PriceRange returns the lowest and highest mid price.
func PriceRange(quotes []domain.Quote) (lo, hi decimal.Decimal) {
	if len(quotes) == 0 {
		return decimal.Zero, decimal.Zero
	}
	lo, hi = quotes[0].Price, quotes[0].Price
	for i := 1; i < len(quotes); i++ {
		lo = decimal.Min(lo, quotes[i].Price)
		hi = decimal.Max(hi, quotes[i].Price)
	}
	return lo, hi
}

// TotalVolume sums 24h volume across venues.
func TotalVolume(quotes []domain.Quote) int64 {
	var total int64
	for i := range quotes {
		total += quotes[i].Volume24h
	}
	return total
}

// PriceChanges returns each venue's percent change against prev.
// Venues absent from prev, or priced at zero there, are omitted.
func PriceChanges(quotes []domain.Quote, prev HistoryPoint) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(quotes))
	for i := range quotes {
		old, ok := prev.Prices[quotes[i].Venue]
		if !ok || old.IsZero() {
			continue
		}
		out[quotes[i].Venue] = quotes[i].Price.Sub(old).Div(old).Mul(hundred).Round(4)
	}
	return out
}
