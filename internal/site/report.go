package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// StageCount tracks per-stage result classification counts.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// BuildReport captures high-level metrics about a site build run.
type BuildReport struct {
	SchemaVersion   int
	BuildID         string
	Start           time.Time
	End             time.Time
	Pages           int // pages discovered
	RenderedPages   int // pages rendered and written
	InjectedPages   int // pages modified by plugin content hooks
	Errors          []error
	Warnings        []error
	StageDurations  map[string]time.Duration
	StageErrorKinds map[string]string
	StageCounts     map[string]StageCount
	Outcome         BuildOutcome
}

// NewBuildReport creates an initialized report.
func NewBuildReport(buildID string) *BuildReport {
	return &BuildReport{
		SchemaVersion:   1,
		BuildID:         buildID,
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageErrorKinds: make(map[string]string),
		StageCounts:     make(map[string]StageCount),
	}
}

// Finalize stamps the end time and derives the overall outcome.
func (r *BuildReport) Finalize() {
	r.End = time.Now()
	switch {
	case len(r.Errors) > 0:
		r.Outcome = OutcomeFailed
		for _, err := range r.Errors {
			if se, ok := err.(*StageError); ok && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				break
			}
		}
	case len(r.Warnings) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

// reportSerializable mirrors BuildReport with JSON-friendly error strings.
type reportSerializable struct {
	SchemaVersion   int                      `json:"schema_version"`
	BuildID         string                   `json:"build_id"`
	Start           time.Time                `json:"start"`
	End             time.Time                `json:"end"`
	DurationSeconds float64                  `json:"duration_seconds"`
	Pages           int                      `json:"pages"`
	RenderedPages   int                      `json:"rendered_pages"`
	InjectedPages   int                      `json:"injected_pages"`
	Errors          []string                 `json:"errors,omitempty"`
	Warnings        []string                 `json:"warnings,omitempty"`
	StageDurations  map[string]float64       `json:"stage_durations_seconds"`
	StageErrorKinds map[string]string        `json:"stage_error_kinds,omitempty"`
	StageCounts     map[string]StageCount    `json:"stage_counts"`
	Outcome         BuildOutcome             `json:"outcome"`
}

// MarshalJSON serializes the report with stringified errors and float seconds.
func (r *BuildReport) MarshalJSON() ([]byte, error) {
	s := reportSerializable{
		SchemaVersion:   r.SchemaVersion,
		BuildID:         r.BuildID,
		Start:           r.Start,
		End:             r.End,
		DurationSeconds: r.End.Sub(r.Start).Seconds(),
		Pages:           r.Pages,
		RenderedPages:   r.RenderedPages,
		InjectedPages:   r.InjectedPages,
		StageDurations:  make(map[string]float64, len(r.StageDurations)),
		StageErrorKinds: r.StageErrorKinds,
		StageCounts:     r.StageCounts,
		Outcome:         r.Outcome,
	}
	for k, v := range r.StageDurations {
		s.StageDurations[k] = v.Seconds()
	}
	for _, e := range r.Errors {
		s.Errors = append(s.Errors, e.Error())
	}
	for _, w := range r.Warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	return json.Marshal(s)
}

// Persist writes the report as build-report.json in the site dir.
func (r *BuildReport) Persist(siteDir string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build report: %w", err)
	}
	path := filepath.Join(siteDir, "build-report.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write build report: %w", err)
	}
	return nil
}
