package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	documentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paintscheme",
			Name:      "documents_processed_total",
			Help:      "Total source documents processed by result",
		},
		[]string{"result"},
	)

	pagesRendered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paintscheme",
			Name:      "pages_rendered_total",
			Help:      "Total pages rasterized from source documents",
		},
	)

	pagesFiltered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paintscheme",
			Name:      "pages_filtered_total",
			Help:      "Pages excluded by the relevance filter",
		},
	)

	stageCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paintscheme",
			Name:      "stage_calls_total",
			Help:      "Pipeline stage calls by stage and result",
		},
		[]string{"stage", "result"},
	)

	stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paintscheme",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stage calls by stage",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paintscheme",
			Name:      "active_sessions",
			Help:      "Sessions currently alive in the session store",
		},
	)

	sessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paintscheme",
			Name:      "sessions_expired_total",
			Help:      "Sessions removed by the TTL sweeper",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(documentsProcessed, pagesRendered, pagesFiltered, stageCalls, stageLatency, activeSessions, sessionsExpired)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveStage(stage, result string, dur time.Duration) {
	stageCalls.WithLabelValues(stage, result).Inc()
	stageLatency.WithLabelValues(stage).Observe(dur.Seconds())
}

func IncDocument(result string) { documentsProcessed.WithLabelValues(result).Inc() }

func AddPagesRendered(n int) { pagesRendered.Add(float64(n)) }
func AddPagesFiltered(n int) { pagesFiltered.Add(float64(n)) }

func SetActiveSessions(v int64) { activeSessions.Set(float64(v)) }
func IncSessionsExpired()       { sessionsExpired.Inc() }
