package runtime

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes recorded by the engine.
const (
	OutcomeSucceeded     = "succeeded"
	OutcomeFailed        = "failed"
	OutcomeDiscarded     = "discarded"
	OutcomePublishFailed = "publish_failed"
)

// Failure envelope publish results.
const (
	FailureEnvelopePublished = "published"
	FailureEnvelopeDropped   = "dropped"
)

// Metrics tracks per-delivery engine statistics.
type Metrics struct {
	mu sync.Mutex

	deliveriesTotal       *prometheus.CounterVec
	processingSeconds     *prometheus.HistogramVec
	inFlight              *prometheus.GaugeVec
	failureEnvelopesTotal *prometheus.CounterVec
	publishRetriesTotal   *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

// newEngineCounterVec creates a new counter vec with standard phaseflow/engine namespace.
func newEngineCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phaseflow",
			Subsystem: "engine",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newEngineGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "phaseflow",
			Subsystem: "engine",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newEngineHistogramVec(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phaseflow",
			Subsystem: "engine",
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// NewMetrics creates a new engine metrics collector.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer:            registerer,
		deliveriesTotal:       newEngineCounterVec("deliveries_total", "Total number of deliveries handled, by outcome", []string{"service", "outcome"}),
		processingSeconds:     newEngineHistogramVec("processing_seconds", "Wall-clock time spent in the phase transform", []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}, []string{"service"}),
		inFlight:              newEngineGaugeVec("in_flight", "Deliveries currently being processed", []string{"service"}),
		failureEnvelopesTotal: newEngineCounterVec("failure_envelopes_total", "Failure envelopes emitted, by publish result", []string{"service", "result"}),
		publishRetriesTotal:   newEngineCounterVec("publish_retries_total", "Retried publishes of transform results", []string{"service"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.deliveriesTotal,
		m.processingSeconds,
		m.inFlight,
		m.failureEnvelopesTotal,
		m.publishRetriesTotal,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordDelivery counts a finished delivery.
func (m *Metrics) RecordDelivery(service, outcome string) {
	m.deliveriesTotal.WithLabelValues(service, outcome).Inc()
}

// ObserveProcessing records how long the transform ran.
func (m *Metrics) ObserveProcessing(service string, d time.Duration) {
	m.processingSeconds.WithLabelValues(service).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func (m *Metrics) TrackInFlight(service string) func() {
	g := m.inFlight.WithLabelValues(service)
	g.Inc()
	return g.Dec
}

func (m *Metrics) RecordFailureEnvelope(service string, published bool) {
	result := FailureEnvelopeDropped
	if published {
		result = FailureEnvelopePublished
	}
	m.failureEnvelopesTotal.WithLabelValues(service, result).Inc()
}

func (m *Metrics) RecordPublishRetry(service string) {
	m.publishRetriesTotal.WithLabelValues(service).Inc()
}

// Reset clears all recorded series.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deliveriesTotal.Reset()
	m.processingSeconds.Reset()
	m.inFlight.Reset()
	m.failureEnvelopesTotal.Reset()
	m.publishRetriesTotal.Reset()
}
