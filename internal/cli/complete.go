package cli

import (
	"context"
	"fmt"

	"github.com/condortrack/condortrack/internal/recorder"
	"github.com/spf13/cobra"
)

var (
	completeRunID       string
	completeLogFile     string
	completeOutputFiles []string
	completeMetricsFile string
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Record a job completion on an existing run",
	Long: `Record a job completion on the run opened at submission time.

Resumes the run by id, extracts resource usage (runtime, memory, disk) from
the job event log, logs any extra metrics, attaches the log and output
files, and closes the run.

Fails — without writing anything — when the run id cannot be resumed.

Examples:
  condortrack complete --run-id "$RUN_ID" --log-file job.log
  condortrack complete --run-id "$RUN_ID" --log-file job.log \
      --output-files model.pt,metrics.csv --metrics final.yaml`,
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().StringVarP(&completeRunID, "run-id", "r", "", "run id printed by submit (required)")
	completeCmd.Flags().StringVarP(&completeLogFile, "log-file", "l", "", "path to the job event log")
	completeCmd.Flags().StringSliceVarP(&completeOutputFiles, "output-files", "o", nil, "job output files to attach")
	completeCmd.Flags().StringVarP(&completeMetricsFile, "metrics", "m", "", "YAML file with extra metrics")
	completeCmd.MarkFlagRequired("run-id")
}

func runComplete(cmd *cobra.Command, args []string) error {
	metrics, err := loadYAMLMetrics(completeMetricsFile)
	if err != nil {
		return fmt.Errorf("load metrics file: %w", err)
	}

	rec := recorder.New(apiClient)
	err = rec.RecordCompletion(context.Background(), recorder.CompletionParams{
		RunID:       completeRunID,
		LogFile:     completeLogFile,
		OutputFiles: completeOutputFiles,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Logged completion for run %s\n", completeRunID)
	return nil
}

// loadYAMLMetrics reads a YAML mapping and keeps its numeric values.
// Non-numeric values are rejected: metrics are numbers by contract.
func loadYAMLMetrics(path string) (map[string]float64, error) {
	raw, err := loadYAMLMap(path)
	if err != nil || raw == nil {
		return nil, err
	}

	metrics := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case int:
			metrics[k] = float64(n)
		case int64:
			metrics[k] = float64(n)
		case float64:
			metrics[k] = n
		default:
			return nil, fmt.Errorf("metric %q is not a number (got %T)", k, v)
		}
	}
	return metrics, nil
}
