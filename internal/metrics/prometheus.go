package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogsync_runs_total",
		Help: "Sync runs by final status.",
	}, []string{"status"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalogsync_stage_duration_seconds",
		Help:    "Duration of each pipeline stage.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"stage", "outcome"})

	catalogItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalogsync_catalog_items",
		Help: "Number of priced entries produced by the last run.",
	})

	notificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogsync_notification_failures_total",
		Help: "Notifications that could not be delivered.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogsync_http_requests_total",
		Help: "Inbound API requests.",
	}, []string{"method", "route", "status"})
)

// RecordRun counts a finished run.
func RecordRun(status string, items int) {
	runsTotal.WithLabelValues(status).Inc()
	catalogItems.Set(float64(items))
}

// ObserveStage records how long a stage took and whether it failed.
func ObserveStage(stage string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	stageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

func NotificationFailed() { notificationFailures.Inc() }

// RecordRequest counts an inbound API request.
func RecordRequest(method, route string, statusCode int) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
