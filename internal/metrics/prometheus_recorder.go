package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	registry       *prom.Registry
	stageDuration  *prom.HistogramVec
	buildDuration  prom.Histogram
	stageResults   *prom.CounterVec
	buildOutcome   *prom.CounterVec
	pageInjections prom.Counter
	fetchOutcomes  *prom.CounterVec
	fetchRetries   prom.Counter
	servedRequests *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "wheelsite",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "wheelsite",
			Name:      "build_duration_seconds",
			Help:      "Total site build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wheelsite",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wheelsite",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.pageInjections = prom.NewCounter(prom.CounterOpts{
			Namespace: "wheelsite",
			Name:      "page_injections_total",
			Help:      "Count of search-page loader injections",
		})
		pr.fetchOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wheelsite",
			Name:      "artifact_fetch_outcomes_total",
			Help:      "Database artifact fetch outcomes (remote, fallback, failed)",
		}, []string{"outcome"})
		pr.fetchRetries = prom.NewCounter(prom.CounterOpts{
			Namespace: "wheelsite",
			Name:      "artifact_fetch_retries_total",
			Help:      "Total artifact download retries (transient failures)",
		})
		pr.servedRequests = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wheelsite",
			Name:      "served_requests_total",
			Help:      "Preview server requests by status code",
		}, []string{"status"})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
			pr.pageInjections, pr.fetchOutcomes, pr.fetchRetries, pr.servedRequests)
	})
	return pr
}

// Handler returns an http.Handler serving the recorder's registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncPageInjection() {
	if p == nil || p.pageInjections == nil {
		return
	}
	p.pageInjections.Inc()
}

func (p *PrometheusRecorder) IncFetchOutcome(outcome FetchOutcome) {
	if p == nil || p.fetchOutcomes == nil {
		return
	}
	p.fetchOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncFetchRetry() {
	if p == nil || p.fetchRetries == nil {
		return
	}
	p.fetchRetries.Inc()
}

func (p *PrometheusRecorder) IncServedRequest(status int) {
	if p == nil || p.servedRequests == nil {
		return
	}
	p.servedRequests.WithLabelValues(fmt.Sprintf("%d", status)).Inc()
}
