package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "satpam_reports_submitted_total",
		Help: "Check-area reports accepted.",
	})

	ReportsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satpam_reports_rejected_total",
		Help: "Check-area reports rejected, by reason.",
	}, []string{"reason"})

	ScheduleRowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "satpam_schedule_rows_inserted_total",
		Help: "Schedule rows written by the planner.",
	})

	ScheduleEntriesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satpam_schedule_entries_skipped_total",
		Help: "Roster entries the planner skipped, by reason.",
	}, []string{"reason"})

	RosterImports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satpam_roster_imports_total",
		Help: "Roster import attempts, by result.",
	}, []string{"result"})

	EvidenceUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satpam_evidence_uploads_total",
		Help: "Evidence photo uploads, by backend and result.",
	}, []string{"backend", "result"})

	SelfieChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "satpam_selfie_checks_total",
		Help: "Selfie face checks run by the worker, by outcome.",
	}, []string{"outcome"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "satpam_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// GinMiddleware records request latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
