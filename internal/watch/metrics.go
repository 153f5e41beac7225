package watch

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the document watcher.
type Metrics struct {
	EventsTotal  *prometheus.CounterVec
	DroppedTotal prometheus.Counter
	ErrorsTotal  prometheus.Counter
	WatchedDirs  prometheus.Gauge
}

// NewMetrics returns the process-wide watcher metrics, registering them with
// the default registry on first use.
//
// Metrics:
//   - studydocs_watch_events_total{op} - document changes observed
//   - studydocs_watch_dropped_events_total - changes dropped because the
//     consumer was not keeping up
//   - studydocs_watch_errors_total - errors reported by the watcher
//   - studydocs_watch_directories - directories currently watched
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			EventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "studydocs_watch_events_total",
					Help: "Total number of document changes observed",
				},
				[]string{"op"}, // "created", "modified" or "removed"
			),
			DroppedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "studydocs_watch_dropped_events_total",
					Help: "Total number of document changes dropped because the consumer was busy",
				},
			),
			ErrorsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "studydocs_watch_errors_total",
					Help: "Total number of filesystem watcher errors",
				},
			),
			WatchedDirs: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "studydocs_watch_directories",
					Help: "Number of directories currently watched",
				},
			),
		}
	})
	return globalMetrics
}
