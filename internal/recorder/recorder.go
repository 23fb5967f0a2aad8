package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/condortrack/condortrack/internal/client"
	"github.com/condortrack/condortrack/internal/condor"
)

// trackerTag marks every run created by this tool, on top of caller tags.
const trackerTag = "condor"

// Recorder records job submissions and completions as runs on the backend.
type Recorder struct {
	backend Backend
}

// New creates a Recorder on top of the given backend.
func New(backend Backend) *Recorder {
	return &Recorder{backend: backend}
}

// SubmissionParams are the inputs for RecordSubmission.
type SubmissionParams struct {
	// Project the run is created under.
	Project string

	// JobID is the scheduler's job identifier (e.g. "123.0"). Used to
	// derive the run name when Name is empty, and recorded in the run
	// config as scheduler_job_id. Not a uniqueness key.
	JobID string

	// SubmitFile is the path to the submit description file. Resource
	// requests are extracted from it and the file itself is attached.
	SubmitFile string

	// Name overrides the derived run name.
	Name string

	// Config is merged into the run config on top of the fields extracted
	// from the submit file; caller values win on collision.
	Config map[string]any

	// Tags are added to the run alongside the tracker tag.
	Tags []string
}

// RecordSubmission opens a new run for a freshly submitted job, records the
// submit file's resource requests in the run config, attaches the submit
// file, and closes the run until completion. Returns the server-assigned
// run id, which the caller must keep for RecordCompletion — it is the only
// handle to the run.
func (r *Recorder) RecordSubmission(ctx context.Context, p SubmissionParams) (runID string, err error) {
	submitCfg := condor.ParseSubmitFile(p.SubmitFile)

	runCfg := make(map[string]any, len(submitCfg)+len(p.Config)+1)
	for k, v := range submitCfg {
		runCfg[k] = v
	}
	for k, v := range p.Config {
		runCfg[k] = v
	}
	if p.JobID != "" {
		runCfg["scheduler_job_id"] = p.JobID
	}

	name := p.Name
	if name == "" && p.JobID != "" {
		name = "condor-job-" + p.JobID
	}

	run, err := r.backend.CreateRun(ctx, client.CreateRunRequest{
		Project: p.Project,
		Name:    name,
		Config:  runCfg,
		Tags:    append(append([]string{}, p.Tags...), trackerTag),
	})
	if err != nil {
		return "", fmt.Errorf("record submission: create run: %w", err)
	}

	session := newRunSession(r.backend, run)
	defer func() {
		if ferr := session.finish(ctx); ferr != nil && err == nil {
			err = fmt.Errorf("record submission: %w", ferr)
		}
	}()

	bundle := "submit-" + run.ID
	if p.JobID != "" {
		bundle = "submit-" + p.JobID
	}
	if err := r.attach(ctx, run.ID, bundle, "submit_file", []string{p.SubmitFile}); err != nil {
		return "", fmt.Errorf("record submission: %w", err)
	}

	return run.ID, nil
}

// CompletionParams are the inputs for RecordCompletion.
type CompletionParams struct {
	// RunID is the id returned by RecordSubmission.
	RunID string

	// LogFile is the path to the scheduler's job event log. Optional;
	// when present, resource usage is extracted from it and the file is
	// attached.
	LogFile string

	// OutputFiles are job outputs to attach as a results bundle.
	OutputFiles []string

	// Metrics are caller-supplied values logged in addition to whatever
	// the event log yields.
	Metrics map[string]float64
}

// RecordCompletion resumes the run opened at submission time, logs the
// resource usage found in the event log plus any caller metrics, attaches
// the log and output files, and closes the run for good. Fails with
// ErrRunNotResumable — before writing anything — when the run id cannot be
// resumed.
func (r *Recorder) RecordCompletion(ctx context.Context, p CompletionParams) (err error) {
	run, rerr := r.backend.ResumeRun(ctx, p.RunID)
	if rerr != nil {
		if client.IsNotFound(rerr) {
			return fmt.Errorf("record completion: run %q: %w", p.RunID, ErrRunNotResumable)
		}
		return fmt.Errorf("record completion: resume run %q: %w", p.RunID, rerr)
	}

	session := newRunSession(r.backend, run)
	defer func() {
		if ferr := session.finish(ctx); ferr != nil && err == nil {
			err = fmt.Errorf("record completion: %w", ferr)
		}
	}()

	if p.LogFile != "" {
		if _, statErr := os.Stat(p.LogFile); statErr != nil {
			slog.Warn("event log missing, skipping resource extraction", "file", p.LogFile, "error", statErr)
		} else {
			if usage := condor.ParseEventLog(p.LogFile); len(usage) > 0 {
				if err := r.backend.LogMetrics(ctx, run.ID, usage); err != nil {
					return fmt.Errorf("record completion: log resource usage: %w", err)
				}
			}
			if err := r.attach(ctx, run.ID, "logs-"+run.ID, "logs", []string{p.LogFile}); err != nil {
				return fmt.Errorf("record completion: %w", err)
			}
		}
	}

	if len(p.Metrics) > 0 {
		if err := r.backend.LogMetrics(ctx, run.ID, p.Metrics); err != nil {
			return fmt.Errorf("record completion: log metrics: %w", err)
		}
	}

	if len(p.OutputFiles) > 0 {
		if err := r.attach(ctx, run.ID, "outputs-"+run.ID, "results", p.OutputFiles); err != nil {
			return fmt.Errorf("record completion: %w", err)
		}
	}

	if err := r.backend.SetSummary(ctx, run.ID, map[string]any{"condor_status": "completed"}); err != nil {
		return fmt.Errorf("record completion: set summary: %w", err)
	}

	return nil
}

// runSession tracks local finish state so that the deferred finish in each
// record operation closes the run exactly once, including on error paths.
type runSession struct {
	backend  Backend
	run      *client.Run
	finished bool
}

func newRunSession(backend Backend, run *client.Run) *runSession {
	return &runSession{backend: backend, run: run}
}

// finish closes the run. Idempotent: the second and later calls are no-ops.
func (s *runSession) finish(ctx context.Context) error {
	if s.finished {
		return nil
	}
	if err := s.backend.FinishRun(ctx, s.run.ID); err != nil {
		return fmt.Errorf("finish run %q: %w", s.run.ID, err)
	}
	s.finished = true
	return nil
}
