package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the dispatch collectors. A nil *Metrics records nothing.
type Metrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	providerInit *prometheus.CounterVec
	wallets      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "dispatch",
			Name:      "operations_total",
			Help:      "Dispatch operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Subsystem: "dispatch",
			Name:      "operation_duration_seconds",
			Help:      "Duration of dispatch operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		providerInit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "dispatch",
			Name:      "provider_init_total",
			Help:      "Provider initializations by provider and outcome.",
		}, []string{"provider", "outcome"}),
		wallets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "dispatch",
			Name:      "wallets",
			Help:      "Wallet connections currently in the session store.",
		}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.duration, m.providerInit, m.wallets} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) providerInitDone(id string, err error) {
	if m == nil {
		return
	}
	m.providerInit.WithLabelValues(id, outcome(err)).Inc()
}

func (m *Metrics) setWallets(n int) {
	if m == nil {
		return
	}
	m.wallets.Set(float64(n))
}
