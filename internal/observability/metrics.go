package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	QueueDepth        prometheus.Gauge
	StreamSubscribers prometheus.Gauge
	PendingInputs     prometheus.Gauge
	TaskEvents        *prometheus.CounterVec
	TaskOutcomes      *prometheus.CounterVec
	TaskDuration      prometheus.Histogram
	InputWait         prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of tasks waiting for the worker.",
		}),
		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Number of live event stream subscribers.",
		}),
		PendingInputs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_inputs",
			Help:      "Number of tasks blocked on user input.",
		}),
		TaskEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_events_total",
			Help:      "Task lifecycle events by type.",
		}, []string{"event"}),
		TaskOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_outcomes_total",
			Help:      "Finished tasks by terminal status.",
		}, []string{"status"}),
		TaskDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time from submission to terminal status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		InputWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_wait_seconds",
			Help:      "Time tasks spend blocked waiting for user input.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 300, 900},
		}),
	}
}

func (m *Metrics) ObserveTaskDuration(d time.Duration) {
	m.TaskDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveInputWait(d time.Duration) {
	m.InputWait.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
