package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/condortrack/condortrack/internal/recorder"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	submitProject    string
	submitFile       string
	submitJobID      string
	submitName       string
	submitConfigFile string
	submitTags       []string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Record a job submission as a new run",
	Long: `Record a job submission as a new run on the tracking server.

Parses the submit description file for resource requests, opens a run tagged
with the scheduler job id, attaches the submit file, and prints the run id
to stdout.

The printed run id is the only handle to the run: there is no lookup from
the job id back to it, so the submitting script must capture it and pass it
to 'condortrack complete' when the job finishes.

Examples:
  RUN_ID=$(condortrack submit --project mnist --submit-file train.sub --job-id 123.0)
  condortrack submit --project mnist --submit-file train.sub --job-id 123.0 \
      --config hyperparams.yaml --tag gpu --tag sweep-7`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitProject, "project", "p", "", "project to create the run under (required)")
	submitCmd.Flags().StringVarP(&submitFile, "submit-file", "f", "", "path to the submit description file (required)")
	submitCmd.Flags().StringVarP(&submitJobID, "job-id", "j", "", "scheduler job id (default $CONDORTRACK_JOB_ID)")
	submitCmd.Flags().StringVarP(&submitName, "name", "n", "", "run name (default condor-job-<job-id>)")
	submitCmd.Flags().StringVarP(&submitConfigFile, "config", "c", "", "YAML file with extra run config")
	submitCmd.Flags().StringSliceVarP(&submitTags, "tag", "t", nil, "extra tags for the run")
	submitCmd.MarkFlagRequired("project")
	submitCmd.MarkFlagRequired("submit-file")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	jobID := submitJobID
	if jobID == "" {
		jobID = cfg.JobID
	}

	extra, err := loadYAMLMap(submitConfigFile)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}

	rec := recorder.New(apiClient)
	runID, err := rec.RecordSubmission(context.Background(), recorder.SubmissionParams{
		Project:    submitProject,
		JobID:      jobID,
		SubmitFile: submitFile,
		Name:       submitName,
		Config:     extra,
		Tags:       submitTags,
	})
	if err != nil {
		return err
	}

	fmt.Println(runID)
	return nil
}

// loadYAMLMap reads a YAML mapping from path. An empty path yields nil; a
// path that does not exist is skipped with a warning, matching the
// best-effort posture of the rest of the tool. A file that exists but does
// not parse is a hard error.
func loadYAMLMap(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("config file not found, skipping", "file", path)
			return nil, nil
		}
		return nil, err
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}
