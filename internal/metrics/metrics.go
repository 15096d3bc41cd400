package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pgparser_jobs_enqueued_total",
		Help: "Total number of translation jobs placed on the queue.",
	})

	JobsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pgparser_jobs_dropped_total",
		Help: "Total number of translation jobs rejected due to a full queue.",
	})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgparser_jobs_processed_total",
		Help: "Total number of jobs processed, labelled by kind and outcome (ok or error kind).",
	}, []string{"kind", "outcome"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pgparser_job_duration_ms",
		Help:    "Translation job latency in milliseconds, labelled by kind.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
	}, []string{"kind"})

	GraphNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pgparser_graph_nodes",
		Help:    "Number of nodes in translated process graphs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	ValidationProblems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgparser_validation_problems_total",
		Help: "Total number of validation problems reported, labelled by problem kind.",
	}, []string{"kind"})

	CatalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgparser_catalog_reloads_total",
		Help: "Total number of catalog reloads, labelled by status.",
	}, []string{"status"})

	CatalogProcesses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pgparser_catalog_processes",
		Help: "Number of process definitions in the active catalog.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pgparser_queue_utilization_ratio",
		Help: "Current job queue utilization (0-1).",
	})
)
