// Package recorder correlates the two halves of a batch job's lifecycle —
// submission and completion — into a single run on the run-tracking server.
//
// The two phases execute in separate process invocations, possibly on
// different machines. RecordSubmission returns the run id; the caller must
// carry it to the matching RecordCompletion call, which resumes that exact
// run. There is no reverse index from the scheduler's job id back to the
// run id, so a lost run id cannot be recovered.
package recorder

import (
	"context"

	"github.com/condortrack/condortrack/internal/client"
)

// Backend is the run-tracking capability the recorder needs. *client.Client
// implements it; tests substitute a fake.
type Backend interface {
	// CreateRun opens a new run and returns its server-assigned handle.
	CreateRun(ctx context.Context, req client.CreateRunRequest) (*client.Run, error)

	// ResumeRun reopens an existing run, failing rather than creating a
	// new one when the id cannot be located.
	ResumeRun(ctx context.Context, id string) (*client.Run, error)

	// LogMetrics records metric values on an open run.
	LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error

	// AttachArtifact uploads files as one named, typed bundle on the run.
	AttachArtifact(ctx context.Context, runID, name, kind string, files []string) error

	// SetSummary replaces the run's summary mapping.
	SetSummary(ctx context.Context, runID string, summary map[string]any) error

	// FinishRun closes the run. Finishing a finished run is a no-op.
	FinishRun(ctx context.Context, runID string) error
}
