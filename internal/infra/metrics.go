package infra

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics keeps atomic counters for in-process reads and mirrors them into a
// private Prometheus registry for /metrics.
type Metrics struct {
	// Counters
	ticksProcessed atomic.Uint64
	marketEvents   atomic.Uint64
	opportunities  atomic.Uint64
	mevResults     atomic.Uint64
	mevSuccesses   atomic.Uint64
	droppedBatches atomic.Uint64
	errorsTotal    atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeClients atomic.Int32

	registry      *prometheus.Registry
	tickLatency   *prometheus.HistogramVec
	eventsByKind  *prometheus.CounterVec
	oppsByPair    *prometheus.GaugeVec
	mevByStrategy *prometheus.CounterVec
	mevProfit     *prometheus.CounterVec
	commands      *prometheus.CounterVec
	rateLimited   prometheus.Counter
	dropped       prometheus.Counter
	errors        prometheus.Counter
	clients       prometheus.Gauge
}

// NewMetrics creates a metrics set with its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tickLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dexsim_tick_duration_seconds",
				Help:    "Time to generate one quote batch",
				Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01},
			},
			[]string{"pair"},
		),
		eventsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexsim_market_events_total",
				Help: "Market events fired by kind",
			},
			[]string{"pair", "kind"},
		),
		oppsByPair: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dexsim_arbitrage_opportunities",
				Help: "Opportunities found in the latest scan",
			},
			[]string{"pair"},
		),
		mevByStrategy: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexsim_mev_results_total",
				Help: "MEV strategy runs by outcome",
			},
			[]string{"strategy", "result"},
		),
		mevProfit: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexsim_mev_profit_total",
				Help: "Profit captured by successful MEV runs",
			},
			[]string{"strategy"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexsim_feed_commands_total",
				Help: "Feed client commands by type",
			},
			[]string{"type"},
		),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dexsim_feed_commands_rate_limited_total",
			Help: "Feed client commands rejected by the rate limiter",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dexsim_dropped_batches_total",
			Help: "Quote batches dropped because a consumer was behind",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dexsim_errors_total",
			Help: "Errors raised while generating quotes",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dexsim_feed_clients",
			Help: "Connected websocket clients",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.tickLatency, m.eventsByKind, m.oppsByPair,
		m.mevByStrategy, m.mevProfit, m.commands,
		m.rateLimited, m.dropped, m.errors, m.clients,
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTick records one generated batch with latency.
func (m *Metrics) RecordTick(pair string, latency time.Duration) {
	m.ticksProcessed.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
	m.tickLatency.WithLabelValues(pair).Observe(latency.Seconds())
}

// RecordMarketEvent records a fired market event.
func (m *Metrics) RecordMarketEvent(pair, kind string) {
	m.marketEvents.Add(1)
	m.eventsByKind.WithLabelValues(pair, kind).Inc()
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
	m.errors.Inc()
}

// RecordOpportunities records the size of the latest scan.
func (m *Metrics) RecordOpportunities(pair string, n int) {
	m.opportunities.Add(uint64(n))
	m.oppsByPair.WithLabelValues(pair).Set(float64(n))
}

// RecordDroppedBatch records a batch a consumer could not keep up with.
func (m *Metrics) RecordDroppedBatch() {
	m.droppedBatches.Add(1)
	m.dropped.Inc()
}

// RecordMevResult records one strategy run.
func (m *Metrics) RecordMevResult(strategy string, success bool, profit float64) {
	m.mevResults.Add(1)
	result := "failed"
	if success {
		m.mevSuccesses.Add(1)
		result = "success"
		m.mevProfit.WithLabelValues(strategy).Add(profit)
	}
	m.mevByStrategy.WithLabelValues(strategy, result).Inc()
}

// RecordCommand records a feed client command.
func (m *Metrics) RecordCommand(kind string) {
	m.commands.WithLabelValues(kind).Inc()
}

// RecordRateLimited records a command dropped by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

// IncrementConnections increments active clients by 1.
func (m *Metrics) IncrementConnections() {
	m.clients.Set(float64(m.activeClients.Add(1)))
}

// DecrementConnections decrements active clients by 1.
func (m *Metrics) DecrementConnections() {
	m.clients.Set(float64(m.activeClients.Add(-1)))
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksProcessed uint64    `json:"ticks_processed"`
	MarketEvents   uint64    `json:"market_events"`
	Opportunities  uint64    `json:"opportunities"`
	MevResults     uint64    `json:"mev_results"`
	MevSuccesses   uint64    `json:"mev_successes"`
	DroppedBatches uint64    `json:"dropped_batches"`
	ErrorsTotal    uint64    `json:"errors_total"`
	AvgLatencyNs   int64     `json:"avg_latency_ns"`
	ActiveClients  int32     `json:"active_clients"`
	Timestamp      time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksProcessed: m.ticksProcessed.Load(),
		MarketEvents:   m.marketEvents.Load(),
		Opportunities:  m.opportunities.Load(),
		MevResults:     m.mevResults.Load(),
		MevSuccesses:   m.mevSuccesses.Load(),
		DroppedBatches: m.droppedBatches.Load(),
		ErrorsTotal:    m.errorsTotal.Load(),
		AvgLatencyNs:   avgLatency,
		ActiveClients:  m.activeClients.Load(),
		Timestamp:      time.Now(),
	}
}
