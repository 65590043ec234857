// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExportDecisions counts PDF export attempts, labelled by outcome:
	// allowed, denied_plan, denied_quota, error.
	ExportDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoicestudio_export_decisions_total",
		Help: "Total number of PDF export gate decisions, labelled by outcome.",
	}, []string{"outcome"})

	// PlanLookups counts plan derivations, labelled by the resulting state.
	PlanLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoicestudio_plan_lookups_total",
		Help: "Total number of plan status lookups, labelled by derived plan.",
	}, []string{"plan"})

	// UpstreamQueryFailures counts monday API query failures seen by the
	// policy layer.
	UpstreamQueryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoicestudio_upstream_query_failures_total",
		Help: "Total number of failed monday API queries.",
	})
)
