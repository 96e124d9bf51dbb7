// Package metrics holds the Prometheus collectors shared by tvilling packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tvilling"

// Rendering
var (
	Renders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Total number of images rendered, by pipeline",
		},
		[]string{"pipeline"},
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Render time distribution, by pipeline",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"pipeline"},
	)
)

// Project and export
var (
	ProjectSaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "project_saves_total",
			Help:      "Total number of project snapshots written",
		},
	)

	ExportPhotos = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_photos_total",
			Help:      "Total number of photos handled by export, by result",
		},
		[]string{"result"},
	)
)

// Analysis
var AnalysisRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_requests_total",
		Help:      "Total number of analysis requests, by outcome",
	},
	[]string{"outcome"},
)
