package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/condortrack/condortrack/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var watchCmd = &cobra.Command{
	Use:   "watch <run-id>",
	Short: "Follow a run's live status",
	Long: `Follow a run's state and metrics as the tracking server reports them.

Renders a live view when stdout is a terminal; otherwise prints one line per
event, suitable for piping into other tools. Exits when the run finishes.

Examples:
  condortrack watch 9f31c2d4
  condortrack watch "$RUN_ID" | tee run-events.log`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	runID := args[0]
	ctx := context.Background()

	run, err := apiClient.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	if run.State == client.RunStateFinished {
		fmt.Printf("run %s already finished\n", run.ID)
		return nil
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return watchInteractive(apiClient, run)
	}
	return watchPlain(ctx, apiClient, run)
}

// watchPlain streams run events as plain lines, one per event.
func watchPlain(ctx context.Context, c *client.Client, run *client.Run) error {
	fmt.Printf("run %s [%s]\n", run.ID, run.State)

	return c.WatchRun(ctx, run.ID, func(event client.RunEvent) error {
		switch event.Type {
		case "state":
			fmt.Printf("run %s [%s]\n", run.ID, event.State)
		case "metrics":
			fmt.Printf("run %s metrics %s\n", run.ID, formatMetrics(event.Metrics))
		}
		return nil
	})
}

// formatMetrics renders a metric map as "k=v" pairs in stable key order.
func formatMetrics(metrics map[string]float64) string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%g", k, metrics[k])
	}
	return out
}
