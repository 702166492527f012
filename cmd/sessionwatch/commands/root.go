// Package commands provides the CLI commands for sessionwatch.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/sessionwatch/internal/logging"
	"github.com/opencode-ai/sessionwatch/internal/monitor"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel   string
	prettyLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "sessionwatch",
	Short: "sessionwatch - background safety monitor for agent sessions",
	Long: `sessionwatch watches AI agent sessions for risky content while turns
are running, and queues safety warnings for injection at turn boundaries.

Run 'sessionwatch demo' to see the monitor catch a destructive command,
or 'sessionwatch serve' to expose the session store over HTTP.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand, show help
		cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load .env before anything reads the environment; missing file is fine
		_ = godotenv.Load()

		logging.Init(logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Pretty: prettyLogs,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty-logs", false, "Human-readable console logs")

	rootCmd.SetVersionTemplate(fmt.Sprintf("sessionwatch %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// applyLogConfig re-initializes the logger from the log section of a loaded
// config file. Flags the user set explicitly keep priority.
func applyLogConfig(cfg *types.Config) {
	if cfg.Log == nil {
		return
	}

	level := logging.ParseLevel(logLevel)
	if cfg.Log.Level != "" && !rootCmd.PersistentFlags().Changed("log-level") {
		level = logging.ParseLevel(cfg.Log.Level)
	}
	pretty := prettyLogs
	if cfg.Log.Pretty && !rootCmd.PersistentFlags().Changed("pretty-logs") {
		pretty = true
	}

	logging.Init(logging.Config{Level: level, Pretty: pretty})
}

// triggerDetectorFromConfig builds a trigger detector from the monitor section
// of a loaded config: trigger list, role filter, and batch matching policy.
func triggerDetectorFromConfig(cfg *types.Config, budget *monitor.Budget) *monitor.TriggerDetector {
	detector := monitor.NewTriggerDetector(budget)
	mc := cfg.Monitor
	if mc == nil {
		return detector
	}

	if len(mc.Triggers) > 0 {
		detector.Triggers = mc.Triggers
	}
	if len(mc.Roles) > 0 {
		roles := make([]types.Role, 0, len(mc.Roles))
		for _, r := range mc.Roles {
			roles = append(roles, types.Role(r))
		}
		detector.Roles = roles
	}
	if mc.FirstMatchOnly != nil {
		detector.FirstMatchOnly = *mc.FirstMatchOnly
	}
	return detector
}

// interventionLimit returns the configured intervention budget, or the
// default of 3.
func interventionLimit(cfg *types.Config) int {
	if cfg.Monitor != nil && cfg.Monitor.MaxInterventions != 0 {
		return cfg.Monitor.MaxInterventions
	}
	return 3
}

// GetWorkDir returns the given directory or the current one.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
