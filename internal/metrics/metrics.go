package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the envelope service updates.
type Metrics struct {
	UpdateTotal       *prometheus.CounterVec // result=ok|replay|validation|not_found|conflict|busy|out_of_stock|store_error
	AllocationTotal   *prometheus.CounterVec // prize=<id>
	AllocationLatency prometheus.Histogram   // whole critical section, including queue wait
	StoreErrorsTotal  *prometheus.CounterVec // op=find|patch|count
	PrizeRemaining    *prometheus.GaugeVec   // prize=<id>
	CacheRefreshTotal prometheus.Counter
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpdateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelope_update_total",
				Help: "Status update requests by result",
			},
			[]string{"result"},
		),
		AllocationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelope_allocation_total",
				Help: "Prizes committed by prize id",
			},
			[]string{"prize"},
		),
		AllocationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "envelope_allocation_latency_ms",
			Help:    "Latency of the allocation critical section including queue wait (ms)",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1ms .. ~2048ms
		}),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envelope_store_errors_total",
				Help: "Record store failures by operation",
			},
			[]string{"op"},
		),
		PrizeRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "envelope_prize_remaining",
			Help: "Remaining units per prize as last seen by the allocator",
		}, []string{"prize"}),
		CacheRefreshTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envelope_prize_cache_refresh_total",
			Help: "Prize count snapshots fetched from the record store",
		}),
	}

	reg.MustRegister(
		m.UpdateTotal,
		m.AllocationTotal,
		m.AllocationLatency,
		m.StoreErrorsTotal,
		m.PrizeRemaining,
		m.CacheRefreshTotal,
	)

	return m
}

// The helpers below accept a nil *Metrics so callers and tests can run
// without a registry.

// Update counts one UpdateStatus outcome.
func (m *Metrics) Update(result string) {
	if m == nil {
		return
	}
	m.UpdateTotal.WithLabelValues(result).Inc()
}

// Allocated counts one granted unit of prizeID.
func (m *Metrics) Allocated(prizeID string) {
	if m == nil {
		return
	}
	m.AllocationTotal.WithLabelValues(prizeID).Inc()
}

// AllocationDone observes the time since start in milliseconds.
func (m *Metrics) AllocationDone(start time.Time) {
	if m == nil {
		return
	}
	m.AllocationLatency.Observe(float64(time.Since(start).Milliseconds()))
}

// StoreError counts a failed store call for op.
func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.WithLabelValues(op).Inc()
}

// Remaining sets the remaining stock gauge for prizeID.
func (m *Metrics) Remaining(prizeID string, n int) {
	if m == nil {
		return
	}
	m.PrizeRemaining.WithLabelValues(prizeID).Set(float64(n))
}

// CacheRefreshed counts one prize count refresh.
func (m *Metrics) CacheRefreshed() {
	if m == nil {
		return
	}
	m.CacheRefreshTotal.Inc()
}
