package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/condortrack/condortrack/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records every call so tests can assert on order and content.
type fakeBackend struct {
	calls []string

	createReq  client.CreateRunRequest
	createErr  error
	resumeErr  error
	metricsErr error
	attachErr  error
	finishErr  error

	metrics   []map[string]float64
	artifacts []artifactCall
	summaries []map[string]any
	finishes  int
}

type artifactCall struct {
	runID string
	name  string
	kind  string
	files []string
}

func (f *fakeBackend) CreateRun(ctx context.Context, req client.CreateRunRequest) (*client.Run, error) {
	f.calls = append(f.calls, "CreateRun")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createReq = req
	return &client.Run{ID: "run-1", Name: req.Name, State: client.RunStateOpen}, nil
}

func (f *fakeBackend) ResumeRun(ctx context.Context, id string) (*client.Run, error) {
	f.calls = append(f.calls, "ResumeRun")
	if f.resumeErr != nil {
		return nil, f.resumeErr
	}
	return &client.Run{ID: id, State: client.RunStateOpen}, nil
}

func (f *fakeBackend) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	f.calls = append(f.calls, "LogMetrics")
	if f.metricsErr != nil {
		return f.metricsErr
	}
	f.metrics = append(f.metrics, metrics)
	return nil
}

func (f *fakeBackend) AttachArtifact(ctx context.Context, runID, name, kind string, files []string) error {
	f.calls = append(f.calls, "AttachArtifact")
	if f.attachErr != nil {
		return f.attachErr
	}
	f.artifacts = append(f.artifacts, artifactCall{runID: runID, name: name, kind: kind, files: files})
	return nil
}

func (f *fakeBackend) SetSummary(ctx context.Context, runID string, summary map[string]any) error {
	f.calls = append(f.calls, "SetSummary")
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeBackend) FinishRun(ctx context.Context, runID string) error {
	f.calls = append(f.calls, "FinishRun")
	if f.finishErr != nil {
		return f.finishErr
	}
	f.finishes++
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRecordSubmission(t *testing.T) {
	submitFile := writeFile(t, "train.sub",
		"universe = vanilla\nexecutable = /bin/run.sh\nrequest_cpus = 4\nrequest_memory = 8GB\n")

	backend := &fakeBackend{}
	rec := New(backend)

	runID, err := rec.RecordSubmission(context.Background(), SubmissionParams{
		Project:    "mnist",
		JobID:      "123.0",
		SubmitFile: submitFile,
		Config:     map[string]any{"request_cpus": "16", "learning_rate": 0.01},
		Tags:       []string{"gpu"},
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	// Caller config wins over submit file fields; job id is injected.
	assert.Equal(t, "mnist", backend.createReq.Project)
	assert.Equal(t, "condor-job-123.0", backend.createReq.Name)
	assert.Equal(t, "16", backend.createReq.Config["request_cpus"])
	assert.Equal(t, "/bin/run.sh", backend.createReq.Config["executable"])
	assert.Equal(t, 0.01, backend.createReq.Config["learning_rate"])
	assert.Equal(t, "123.0", backend.createReq.Config["scheduler_job_id"])
	assert.Equal(t, []string{"gpu", "condor"}, backend.createReq.Tags)

	require.Len(t, backend.artifacts, 1)
	assert.Equal(t, "submit-123.0", backend.artifacts[0].name)
	assert.Equal(t, "submit_file", backend.artifacts[0].kind)
	assert.Equal(t, []string{submitFile}, backend.artifacts[0].files)

	assert.Equal(t, 1, backend.finishes)
	assert.Empty(t, backend.metrics, "submission logs no metrics")
}

func TestRecordSubmissionExplicitName(t *testing.T) {
	backend := &fakeBackend{}
	rec := New(backend)

	_, err := rec.RecordSubmission(context.Background(), SubmissionParams{
		Project:    "mnist",
		JobID:      "123.0",
		Name:       "sweep-7-baseline",
		SubmitFile: writeFile(t, "train.sub", "request_cpus = 1\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sweep-7-baseline", backend.createReq.Name)
}

func TestRecordSubmissionMissingSubmitFile(t *testing.T) {
	backend := &fakeBackend{}
	rec := New(backend)

	// An unreadable submit file degrades to an empty config and an empty
	// artifact bundle; the run is still created and finished.
	runID, err := rec.RecordSubmission(context.Background(), SubmissionParams{
		Project:    "mnist",
		JobID:      "123.0",
		SubmitFile: filepath.Join(t.TempDir(), "missing.sub"),
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	assert.Equal(t, map[string]any{"scheduler_job_id": "123.0"}, backend.createReq.Config)
	require.Len(t, backend.artifacts, 1)
	assert.Empty(t, backend.artifacts[0].files)
	assert.Equal(t, 1, backend.finishes)
}

func TestRecordSubmissionFinishesOnAttachFailure(t *testing.T) {
	backend := &fakeBackend{attachErr: &client.Error{StatusCode: 503, Message: "storage down"}}
	rec := New(backend)

	_, err := rec.RecordSubmission(context.Background(), SubmissionParams{
		Project:    "mnist",
		SubmitFile: writeFile(t, "train.sub", "request_cpus = 1\n"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record submission")

	// The run must not be left open on the backend.
	assert.Equal(t, "FinishRun", backend.calls[len(backend.calls)-1])
}

func TestRecordCompletion(t *testing.T) {
	logFile := writeFile(t, "job.log",
		"005 Job terminated.\n\tRun Time: total run time was 01:02:03\n"+
			"\t   Disk (KB)            :   512000  1048576   1203503\n"+
			"\t   Memory (MB)          :     2048     4096      4096\n")
	outFile := writeFile(t, "out.csv", "a,b\n")
	missing := filepath.Join(t.TempDir(), "never-written.csv")

	backend := &fakeBackend{}
	rec := New(backend)

	err := rec.RecordCompletion(context.Background(), CompletionParams{
		RunID:       "run-9",
		LogFile:     logFile,
		OutputFiles: []string{outFile, missing},
		Metrics:     map[string]float64{"final_accuracy": 0.97},
	})
	require.NoError(t, err)

	require.Len(t, backend.metrics, 2)
	assert.Equal(t, map[string]float64{
		"runtime_seconds": 3723,
		"memory_mb":       2048,
		"disk_kb":         512000,
	}, backend.metrics[0])
	assert.Equal(t, map[string]float64{"final_accuracy": 0.97}, backend.metrics[1])

	require.Len(t, backend.artifacts, 2)
	assert.Equal(t, "logs-run-9", backend.artifacts[0].name)
	assert.Equal(t, "logs", backend.artifacts[0].kind)
	assert.Equal(t, "outputs-run-9", backend.artifacts[1].name)
	assert.Equal(t, "results", backend.artifacts[1].kind)
	// Only the file that exists makes it into the results bundle.
	assert.Equal(t, []string{outFile}, backend.artifacts[1].files)

	require.Len(t, backend.summaries, 1)
	assert.Equal(t, map[string]any{"condor_status": "completed"}, backend.summaries[0])
	assert.Equal(t, 1, backend.finishes)
}

func TestRecordCompletionNotResumable(t *testing.T) {
	backend := &fakeBackend{resumeErr: &client.Error{StatusCode: 404, Code: "run_not_found", Message: "no such run"}}
	rec := New(backend)

	err := rec.RecordCompletion(context.Background(), CompletionParams{
		RunID:   "gone",
		LogFile: writeFile(t, "job.log", "Memory (MB) : 2048\n"),
		Metrics: map[string]float64{"final_accuracy": 0.97},
	})
	require.ErrorIs(t, err, ErrRunNotResumable)

	// Fail fast: nothing may be written after a failed resume.
	assert.Equal(t, []string{"ResumeRun"}, backend.calls)
}

func TestRecordCompletionTransportErrorPassesThrough(t *testing.T) {
	backend := &fakeBackend{resumeErr: context.DeadlineExceeded}
	rec := New(backend)

	err := rec.RecordCompletion(context.Background(), CompletionParams{RunID: "run-9"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrRunNotResumable)
}

func TestRecordCompletionEmptyLog(t *testing.T) {
	logFile := writeFile(t, "job.log", "000 Job submitted\n")

	backend := &fakeBackend{}
	rec := New(backend)

	err := rec.RecordCompletion(context.Background(), CompletionParams{
		RunID:   "run-9",
		LogFile: logFile,
	})
	require.NoError(t, err)

	// No extracted fields and no extra metrics: nothing is logged at all,
	// but the log file is still attached.
	assert.Empty(t, backend.metrics)
	require.Len(t, backend.artifacts, 1)
	assert.Equal(t, "logs-run-9", backend.artifacts[0].name)
	assert.Equal(t, 1, backend.finishes)
}

func TestRecordCompletionMissingLogFile(t *testing.T) {
	backend := &fakeBackend{}
	rec := New(backend)

	err := rec.RecordCompletion(context.Background(), CompletionParams{
		RunID:   "run-9",
		LogFile: filepath.Join(t.TempDir(), "missing.log"),
	})
	require.NoError(t, err)

	assert.Empty(t, backend.metrics)
	assert.Empty(t, backend.artifacts)
	assert.Equal(t, 1, backend.finishes)
}

func TestRunSessionFinishIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	session := newRunSession(backend, &client.Run{ID: "run-1"})

	require.NoError(t, session.finish(context.Background()))
	require.NoError(t, session.finish(context.Background()))

	assert.Equal(t, 1, backend.finishes)
}

func TestEndToEnd(t *testing.T) {
	submitFile := writeFile(t, "submit.txt", "executable = /bin/run.sh\nrequest_cpus = 2\n")
	logFile := writeFile(t, "job.log", "005 Job terminated.\n\ttotal run time was 00:10:00\n")
	outFile := writeFile(t, "out.csv", "loss\n0.1\n")

	backend := &fakeBackend{}
	rec := New(backend)

	runID, err := rec.RecordSubmission(context.Background(), SubmissionParams{
		Project:    "proj",
		JobID:      "123.0",
		SubmitFile: submitFile,
	})
	require.NoError(t, err)

	err = rec.RecordCompletion(context.Background(), CompletionParams{
		RunID:       runID,
		LogFile:     logFile,
		OutputFiles: []string{outFile},
	})
	require.NoError(t, err)

	// One run, created once and finished twice (once per phase).
	assert.Equal(t, "123.0", backend.createReq.Config["scheduler_job_id"])
	assert.Equal(t, map[string]float64{"runtime_seconds": 600}, backend.metrics[0])

	var results *artifactCall
	for i := range backend.artifacts {
		if backend.artifacts[i].kind == "results" {
			results = &backend.artifacts[i]
		}
	}
	require.NotNil(t, results)
	assert.Equal(t, []string{outFile}, results.files)
}
