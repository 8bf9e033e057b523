package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the domain Metrics port on Prometheus.
type Recorder struct {
	analyses    *prometheus.CounterVec
	consensus   *prometheus.CounterVec
	confidence  prometheus.Histogram
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	events      *prometheus.CounterVec
	billing     *prometheus.CounterVec
	streamPeers prometheus.Gauge
	rateLimited *prometheus.CounterVec
}

// New registers on the default registry. Call it once per process.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yoforex_analyses_total",
			Help: "Analyses generated by kind and recommendation",
		}, []string{"kind", "recommendation"}),
		consensus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yoforex_consensus_total",
			Help: "Multi-model consensus outcomes",
		}, []string{"label"}),
		confidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "yoforex_analysis_confidence",
			Help:    "Confidence of generated analyses",
			Buckets: prometheus.LinearBuckets(0.6, 0.05, 8),
		}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yoforex_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yoforex_operation_duration_seconds",
			Help:    "Duration of domain operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yoforex_events_total",
			Help: "Analysis events by sink and result",
		}, []string{"sink", "result"}),
		billing: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yoforex_billing_events_total",
			Help: "Billing events by type",
		}, []string{"type"}),
		streamPeers: f.NewGauge(prometheus.GaugeOpts{
			Name: "yoforex_market_stream_clients",
			Help: "Connected market stream clients",
		}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yoforex_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"route"}),
	}
}

func (r *Recorder) RecordAnalysis(kind, recommendation string, confidence float64) {
	r.analyses.WithLabelValues(kind, recommendation).Inc()
	r.confidence.Observe(confidence)
}

func (r *Recorder) RecordConsensus(label string) {
	r.consensus.WithLabelValues(label).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordEvent(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.events.WithLabelValues(sink, result).Inc()
}

func (r *Recorder) RecordBillingEvent(eventType string) {
	r.billing.WithLabelValues(eventType).Inc()
}

func (r *Recorder) StreamClients(delta int) {
	r.streamPeers.Add(float64(delta))
}

func (r *Recorder) RecordRateLimited(route string) {
	r.rateLimited.WithLabelValues(route).Inc()
}
