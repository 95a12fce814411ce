package history

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts store activity. A nil *Metrics records nothing.
type Metrics struct {
	Saves             prometheus.Counter
	Evictions         prometheus.Counter
	Migrations        prometheus.Counter
	CorruptLogs       prometheus.Counter
	SubstrateFailures *prometheus.CounterVec
}

// NewMetrics creates the store counters and registers them with reg when
// reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Saves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "t2v",
			Subsystem: "history",
			Name:      "saves_total",
			Help:      "Records saved.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "t2v",
			Subsystem: "history",
			Name:      "evictions_total",
			Help:      "Records dropped to stay within capacity.",
		}),
		Migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "t2v",
			Subsystem: "history",
			Name:      "migrations_total",
			Help:      "Legacy namespaces merged into a handle namespace.",
		}),
		CorruptLogs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "t2v",
			Subsystem: "history",
			Name:      "corrupt_logs_total",
			Help:      "Stored logs that could not be decoded.",
		}),
		SubstrateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "t2v",
			Subsystem: "history",
			Name:      "substrate_failures_total",
			Help:      "Substrate operations that failed, by operation.",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.Saves, m.Evictions, m.Migrations, m.CorruptLogs, m.SubstrateFailures)
	}
	return m
}

func (m *Metrics) saved() {
	if m != nil {
		m.Saves.Inc()
	}
}

func (m *Metrics) evicted(n int) {
	if m != nil && n > 0 {
		m.Evictions.Add(float64(n))
	}
}

func (m *Metrics) migrated() {
	if m != nil {
		m.Migrations.Inc()
	}
}

func (m *Metrics) corrupt() {
	if m != nil {
		m.CorruptLogs.Inc()
	}
}

func (m *Metrics) failed(op string) {
	if m != nil {
		m.SubstrateFailures.WithLabelValues(op).Inc()
	}
}
