// Package cli provides the command-line interface for condortrack.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/condortrack/condortrack/internal/client"
	"github.com/condortrack/condortrack/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string
	apiKey    string
	entity    string

	// Global config, logger cleanup, and API client
	cfg        config.Config
	logCleanup func() error
	apiClient  *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "condortrack",
	Short: "Record HTCondor job lifecycles as tracked runs",
	Long: `Condortrack correlates the submission and completion of an HTCondor job
into a single run on a run-tracking server.

At submission time, 'condortrack submit' opens a run, records the resource
requests from the submit file, and prints the run id. At completion time,
'condortrack complete' resumes that exact run, extracts resource usage from
the job event log, and attaches outputs. The run id printed by submit is the
only handle to the run — keep it.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip client setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		if apiKey != "" {
			cfg.APIKey = apiKey
		}
		if entity != "" {
			cfg.Entity = entity
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, cleanup := config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)
		logCleanup = cleanup

		var err error
		apiClient, err = client.New(client.Config{
			BaseURL: cfg.ServerURL,
			APIKey:  cfg.APIKey,
			Entity:  cfg.Entity,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return fmt.Errorf("create client: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "run-tracking server URL (default $CONDORTRACK_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (default $CONDORTRACK_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&entity, "entity", "", "account/namespace for runs (default $CONDORTRACK_ENTITY)")

	// Add subcommands
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(watchCmd)
}
