// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics is a private registry plus the collectors registered on it. The
// zero value is not usable; use New.
type Metrics struct {
	Registry *prometheus.Registry

	chatRequests       *prometheus.CounterVec
	chatDuration       prometheus.Histogram
	snippetFetches     *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cura",
			Name:      "chat_requests_total",
			Help:      "Chat requests handled, by HTTP status code.",
		}, []string{"code"}),
		chatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cura",
			Name:      "chat_request_duration_seconds",
			Help:      "End to end latency of POST /api/chat.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		snippetFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cura",
			Name:      "snippet_fetches_total",
			Help:      "Gateway fetches, by outcome.",
		}, []string{"outcome"}),
		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cura",
			Name:      "completion_duration_seconds",
			Help:      "Latency of completion service calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"result"}),
	}

	reg.MustRegister(m.chatRequests, m.chatDuration, m.snippetFetches, m.completionDuration)
	return m
}

// ObserveChat records one finished chat request.
func (m *Metrics) ObserveChat(code int, elapsed time.Duration) {
	m.chatRequests.WithLabelValues(strconv.Itoa(code)).Inc()
	m.chatDuration.Observe(elapsed.Seconds())
}

// ObserveFetch records the outcome of one gateway fetch.
func (m *Metrics) ObserveFetch(outcome string) {
	m.snippetFetches.WithLabelValues(outcome).Inc()
}

// ObserveCompletion records one completion service call.
func (m *Metrics) ObserveCompletion(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.completionDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}
