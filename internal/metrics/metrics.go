// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccessDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundraiser_access_denied_total",
		Help: "Total number of requests rejected by the access evaluator",
	}, []string{"resource"})

	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundraiser_pipeline_runs_total",
		Help: "Total number of pipeline executions by outcome",
	}, []string{"pipeline", "outcome"})

	CascadeDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundraiser_cascade_deleted_total",
		Help: "Total number of dependent records removed by cascade deletes",
	}, []string{"collection"})

	CascadeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundraiser_cascade_failures_total",
		Help: "Total number of cascade deletes that left dependents behind",
	}, []string{"collection"})

	RateLimitRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundraiser_rate_limit_rejected_total",
		Help: "Total number of creations rejected by a rate limit",
	}, []string{"resource"})

	ResolverRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fundraiser_resolver_request_duration_seconds",
		Help:    "Resolver latency by field",
		Buckets: prometheus.DefBuckets,
	}, []string{"field", "status"})
)
