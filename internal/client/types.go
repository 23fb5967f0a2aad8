package client

import "time"

// Run states as reported by the server.
const (
	RunStateOpen     = "open"
	RunStateFinished = "finished"
)

// Run is one tracked lifecycle record on the run-tracking server. The ID is
// assigned by the server at creation and is the only handle that can resume
// the run later.
type Run struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	URL       string         `json:"url"`
	State     string         `json:"state"`
	Project   string         `json:"project"`
	Entity    string         `json:"entity,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Summary   map[string]any `json:"summary,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// CreateRunRequest is the input for creating a run.
type CreateRunRequest struct {
	Project string         `json:"project"`
	Entity  string         `json:"entity,omitempty"`
	Name    string         `json:"name,omitempty"`
	Config  map[string]any `json:"config,omitempty"`
	Tags    []string       `json:"tags,omitempty"`
}

// resumeRunRequest asks the server to reopen an existing run. The only
// supported policy is "must": fail rather than create a new run.
type resumeRunRequest struct {
	Policy string `json:"policy"`
}

// logMetricsRequest carries a batch of metric values for a run.
type logMetricsRequest struct {
	Metrics map[string]float64 `json:"metrics"`
}

// setSummaryRequest replaces the run's summary mapping.
type setSummaryRequest struct {
	Summary map[string]any `json:"summary"`
}

// RunEvent is one message on a run's watch stream.
type RunEvent struct {
	Type      string             `json:"type"` // "state" or "metrics"
	State     string             `json:"state,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}
