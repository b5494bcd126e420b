package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/ngxvisor/pkg/client"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by every subcommand
type GlobalFlags struct {
	ConfigPath string
	APIUrl     string
	APITimeout time.Duration
}

// buildRoot creates the root command with all subcommands attached
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := createRootCommand(globalFlags)
	cmd := command{flags: globalFlags}

	root.AddCommand(
		createServeCommand(globalFlags),
		createLifecycleCommand("start", "Start the server (no-op when already running)", cmd.Start),
		createLifecycleCommand("stop", "Stop the server", cmd.Stop),
		createLifecycleCommand("restart", "Reload the server configuration", cmd.Restart),
		createTestCommand(cmd),
		createStatusCommand(cmd),
		createInfoCommand(cmd),
		createVersionCommand(cmd),
		createLogsCommand(cmd),
		createClearLogCommand(cmd),
		createLogExistsCommand(cmd),
		createLifecycleCommand("open-logs", "Open the log folder in the desktop file browser", cmd.OpenLogs),
		createEventsCommand(cmd),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "ngxvisor",
		Short: "Local nginx supervisor",
		Long: `ngxvisor supervises one locally installed nginx: start, stop, reload,
config checks, status snapshots and log access through a local daemon.

Examples:
  ngxvisor serve --config=ngxvisor.toml   # Start daemon
  ngxvisor start
  ngxvisor info
  ngxvisor logs --kind=error --lines=50 --level="[error]"
  ngxvisor logs --kind=access -f`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.APIUrl, "api-url", client.DefaultBaseURL, "daemon API URL")
	root.PersistentFlags().DurationVar(&flags.APITimeout, "api-timeout", 30*time.Second, "request timeout")

	return root
}
