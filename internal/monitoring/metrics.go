package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Simulation metrics
	simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walkforward_simulations_total",
			Help: "Total number of simulation runs executed",
		},
		[]string{"phase"},
	)

	tradesSimulated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "walkforward_trades_simulated_total",
			Help: "Total number of trades produced across all simulation runs",
		},
	)

	// Fold metrics
	foldsExcluded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walkforward_folds_excluded_total",
			Help: "Folds excluded from aggregation, by reason",
		},
		[]string{"reason"},
	)

	gridSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walkforward_grid_search_duration_seconds",
			Help:    "Wall-clock duration of one in-sample grid search",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scenario"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walkforward_errors_total",
			Help: "Total number of errors, by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(simulationsTotal)
	prometheus.MustRegister(tradesSimulated)
	prometheus.MustRegister(foldsExcluded)
	prometheus.MustRegister(gridSearchDuration)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint.
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordSimulation records one completed simulation run. Phase is either
// "optimize" (in-sample grid point) or "evaluate" (out-of-sample fold).
func RecordSimulation(phase string, trades int) {
	simulationsTotal.WithLabelValues(phase).Inc()
	tradesSimulated.Add(float64(trades))
}

// RecordFoldExclusion records a fold dropped from aggregation.
func RecordFoldExclusion(reason string) {
	foldsExcluded.WithLabelValues(reason).Inc()
}

// RecordGridSearchDuration records the wall-clock time of one grid search.
func RecordGridSearchDuration(scenario string, d time.Duration) {
	gridSearchDuration.WithLabelValues(scenario).Observe(d.Seconds())
}

// RecordError records an error metric by taxonomy category.
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
