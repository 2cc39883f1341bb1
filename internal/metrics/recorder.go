package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// FetchOutcome enumerates how a database artifact was obtained.
type FetchOutcome string

const (
	FetchRemote   FetchOutcome = "remote"
	FetchFallback FetchOutcome = "fallback"
	FetchFailed   FetchOutcome = "failed"
)

// Recorder defines observability hooks for build, injection, and fetch metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the zero value NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|warning|failed|canceled
	IncPageInjection()
	IncFetchOutcome(outcome FetchOutcome)
	IncFetchRetry()
	IncServedRequest(status int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) IncPageInjection()                          {}
func (NoopRecorder) IncFetchOutcome(FetchOutcome)               {}
func (NoopRecorder) IncFetchRetry()                             {}
func (NoopRecorder) IncServedRequest(int)                       {}
