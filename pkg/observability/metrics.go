package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline
type Metrics struct {
	registry *prometheus.Registry

	// Collection metrics
	EventsTrackedTotal  *prometheus.CounterVec
	EventsRejectedTotal *prometheus.CounterVec

	// Queue metrics
	QueueDepth    prometheus.Gauge
	FlushesTotal  *prometheus.CounterVec
	BackupRecords prometheus.Gauge

	// Delivery metrics
	DeliveryAttemptsTotal *prometheus.CounterVec
	DeliveryFailuresTotal *prometheus.CounterVec
	DeliveryDuration      *prometheus.HistogramVec

	// Change feed metrics
	NotificationsTotal prometheus.Counter
	SubscribersActive  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		EventsTrackedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_events_tracked_total",
				Help: "Total number of events accepted by the collector",
			},
			[]string{"event_type"},
		),
		EventsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_events_rejected_total",
				Help: "Total number of events rejected by local validation",
			},
			[]string{"reason"},
		),

		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_queue_depth",
				Help: "Current number of records buffered in the batch queue",
			},
		),
		FlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_flushes_total",
				Help: "Total number of queue flushes by trigger (size, timer, force)",
			},
			[]string{"trigger"},
		),
		BackupRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_backup_records",
				Help: "Current number of records mirrored in durable backup",
			},
		),

		DeliveryAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_delivery_attempts_total",
				Help: "Total number of delivery attempts by tier",
			},
			[]string{"tier"},
		),
		DeliveryFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_delivery_failures_total",
				Help: "Total number of delivery failures by tier and error kind",
			},
			[]string{"tier", "kind"},
		),
		DeliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_delivery_duration_seconds",
				Help:    "Delivery attempt duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tier"},
		),

		NotificationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulse_change_notifications_total",
				Help: "Total number of change-feed notifications dispatched",
			},
		),
		SubscribersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_change_subscribers_active",
				Help: "Current number of change-feed subscribers",
			},
		),
	}

	registry.MustRegister(
		m.EventsTrackedTotal,
		m.EventsRejectedTotal,
		m.QueueDepth,
		m.FlushesTotal,
		m.BackupRecords,
		m.DeliveryAttemptsTotal,
		m.DeliveryFailuresTotal,
		m.DeliveryDuration,
		m.NotificationsTotal,
		m.SubscribersActive,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this metric set
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
