package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

type Metrics struct {
	registry    *prometheus.Registry
	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	rewrites    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upmyfee_rpc_calls_total",
			Help: "The total number of JSON-RPC calls made to the node",
		}, []string{"method", "outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "upmyfee_rpc_call_duration_seconds",
			Help:    "Duration of JSON-RPC calls made to the node",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upmyfee_rewrites_total",
			Help: "The total number of fee rewrites by final outcome",
		}, []string{"outcome"}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	m.registry.MustRegister(m.rpcCalls)
	m.registry.MustRegister(m.rpcDuration)
	m.registry.MustRegister(m.rewrites)
}

// ObserveRPCCall is safe to call on a nil *Metrics.
func (m *Metrics) ObserveRPCCall(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(method, outcome).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) IncrementRewrites(outcome string) {
	if m == nil {
		return
	}
	m.rewrites.WithLabelValues(outcome).Inc()
}

// Push sends the collected metrics to a Prometheus Pushgateway once.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}
