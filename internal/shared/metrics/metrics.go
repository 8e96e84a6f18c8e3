package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed by Handler.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	analysisStartedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_started_total",
		Help: "Total analyses started",
	})
	analysisCompletedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_completed_total",
		Help: "Total analyses completed",
	})
	analysisFailedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_failed_total",
		Help: "Total analyses failed",
	}, []string{"retryable"})
	analysisDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_ms",
		Help:    "Analysis duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 240000},
	})

	jobsReceivedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_jobs_received_total",
		Help: "Total queue messages received by workers",
	})
	jobsCompletedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_jobs_completed_total",
		Help: "Total queue messages processed and deleted",
	})
	jobsFailedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_jobs_failed_total",
		Help: "Total queue messages whose processing returned an error",
	})
	jobsRetriedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_jobs_retried_total",
		Help: "Total queue messages scheduled for a delayed retry",
	})
	jobsDeletedUnrecoverableTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "analysis_jobs_deleted_unrecoverable_total",
		Help: "Total queue messages deleted without a successful run",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Inc()
}

// IncAnalysisFailed increments the failed counter for the given retry class.
func IncAnalysisFailed(retryable bool) {
	analysisFailedTotal.WithLabelValues(strconv.FormatBool(retryable)).Inc()
}

// ObserveAnalysisDuration records an analysis duration.
func ObserveAnalysisDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(float64(d) / float64(time.Millisecond))
}

// IncAnalysisJobsReceived counts a received queue message.
func IncAnalysisJobsReceived() {
	jobsReceivedTotal.Inc()
}

// IncAnalysisJobsCompleted counts a message deleted after a clean run.
func IncAnalysisJobsCompleted() {
	jobsCompletedTotal.Inc()
}

// IncAnalysisJobsFailed counts a message whose handler returned an error.
func IncAnalysisJobsFailed() {
	jobsFailedTotal.Inc()
}

// IncAnalysisJobsRetried counts a message whose visibility was changed for backoff.
func IncAnalysisJobsRetried() {
	jobsRetriedTotal.Inc()
}

// IncAnalysisJobsDeletedUnrecoverable counts a message dropped without success.
func IncAnalysisJobsDeletedUnrecoverable() {
	jobsDeletedUnrecoverableTotal.Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
