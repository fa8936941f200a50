package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Commit outcomes
const (
	OutcomeCommitted   = "committed"
	OutcomeConflict    = "conflict"
	OutcomeRejected    = "rejected"
	OutcomeStoreFailed = "store_failed"
)

var latencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// Metrics holds the transfer-service collectors. Every series carries a constant
// service label.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpInFlight    prometheus.Gauge
	kafkaPublished  *prometheus.CounterVec
	kafkaDuration   *prometheus.HistogramVec
	mongoOperations *prometheus.CounterVec
	mongoDuration   *prometheus.HistogramVec

	designatedCommits   *prometheus.CounterVec
	transferredQuantity prometheus.Counter
	residualConfirms    *prometheus.CounterVec
	residualQuantity    prometheus.Counter
	slotConflicts       *prometheus.CounterVec
	slotsReserved       *prometheus.GaugeVec
	overTransfers       *prometheus.CounterVec
	dispatchFailures    *prometheus.CounterVec

	breakerState *prometheus.GaugeVec
	breakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a Metrics instance backed by its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(registry)
	constLabels := prometheus.Labels{"service": config.ServiceName}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: config.Namespace, Name: name, Help: help, ConstLabels: constLabels}, labels)
	}
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Namespace: config.Namespace, Name: name, Help: help, ConstLabels: constLabels, Buckets: latencyBuckets}, labels)
	}
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return f.NewGaugeVec(prometheus.GaugeOpts{Namespace: config.Namespace, Name: name, Help: help, ConstLabels: constLabels}, labels)
	}

	return &Metrics{
		registry: registry,

		httpRequests: counter("http_requests_total", "Total number of HTTP requests", "method", "path", "status"),
		httpDuration: histogram("http_request_duration_seconds", "HTTP request duration in seconds", "method", "path"),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace, Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed", ConstLabels: constLabels,
		}),
		kafkaPublished:  counter("kafka_events_published_total", "Total number of Kafka events published", "topic", "event_type", "status"),
		kafkaDuration:   histogram("kafka_publish_duration_seconds", "Kafka publish duration in seconds", "topic"),
		mongoOperations: counter("mongodb_operations_total", "Total number of MongoDB operations", "collection", "operation", "status"),
		mongoDuration:   histogram("mongodb_operation_duration_seconds", "MongoDB operation duration in seconds", "collection", "operation"),

		designatedCommits: counter("designated_transfer_commits_total", "Designated transfer commit attempts by outcome", "outcome"),
		transferredQuantity: f.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Name: "designated_transferred_quantity_total",
			Help: "Units committed through designated transfers", ConstLabels: constLabels,
		}),
		residualConfirms: counter("residual_batches_confirmed_total", "Residual batches confirmed", "first_batch"),
		residualQuantity: f.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Name: "residual_quantity_total",
			Help: "Units moved through residual outbound", ConstLabels: constLabels,
		}),
		slotConflicts:    counter("slot_reservation_conflicts_total", "Slot reservations rejected because a slot was occupied or held", "zone"),
		slotsReserved:    gauge("slots_reserved", "Slots currently reserved by transfers", "owner_kind"),
		overTransfers:    counter("over_transfers_total", "Operations that left an order line over-transferred", "operation"),
		dispatchFailures: counter("robot_dispatch_failures_total", "Robot dispatch commands that could not be delivered", "command"),

		breakerState: gauge("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)", "name"),
		breakerTrips: counter("circuit_breaker_trips_total", "Total number of circuit breaker trips", "name"),
	}
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncrementHTTPRequestsInFlight() { m.httpInFlight.Inc() }
func (m *Metrics) DecrementHTTPRequestsInFlight() { m.httpInFlight.Dec() }

// RecordKafkaPublish records a Kafka publish attempt
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.kafkaPublished.WithLabelValues(topic, eventType, statusLabel(success)).Inc()
	m.kafkaDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.mongoOperations.WithLabelValues(collection, operation, statusLabel(success)).Inc()
	m.mongoDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// RecordDesignatedCommit records a commit attempt; quantity is only counted on success
func (m *Metrics) RecordDesignatedCommit(outcome string, quantity int) {
	m.designatedCommits.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCommitted {
		m.transferredQuantity.Add(float64(quantity))
	}
}

// RecordResidualConfirm records a confirmed residual batch
func (m *Metrics) RecordResidualConfirm(firstBatch bool, quantity int) {
	m.residualConfirms.WithLabelValues(strconv.FormatBool(firstBatch)).Inc()
	m.residualQuantity.Add(float64(quantity))
}

// RecordSlotConflict records a rejected reservation in a zone
func (m *Metrics) RecordSlotConflict(zone string) {
	m.slotConflicts.WithLabelValues(zone).Inc()
}

// AddSlotsReserved adjusts the reserved-slot gauge; delta may be negative
func (m *Metrics) AddSlotsReserved(ownerKind string, delta int) {
	m.slotsReserved.WithLabelValues(ownerKind).Add(float64(delta))
}

// RecordOverTransfer records an operation that left a line over-transferred
func (m *Metrics) RecordOverTransfer(operation string) {
	m.overTransfers.WithLabelValues(operation).Inc()
}

// RecordDispatchFailure records an undelivered robot command
func (m *Metrics) RecordDispatchFailure(command string) {
	m.dispatchFailures.WithLabelValues(command).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state gauge
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker opening
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.breakerTrips.WithLabelValues(name).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
