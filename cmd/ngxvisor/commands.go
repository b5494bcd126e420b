package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loykin/ngxvisor/pkg/client"
)

// command binds CLI handlers to the daemon API.
type command struct {
	flags *GlobalFlags
	out   io.Writer
}

func (c command) writer() io.Writer {
	if c.out != nil {
		return c.out
	}
	return os.Stdout
}

func (c command) client() *client.Client {
	return client.New(client.Config{BaseURL: c.flags.APIUrl, Timeout: c.flags.APITimeout})
}

// reachable returns a client for a running daemon or a hint to start one.
func (c command) reachable(ctx context.Context) (*client.Client, error) {
	api := c.client()
	if !api.IsReachable(ctx) {
		return nil, fmt.Errorf("daemon not reachable at %s - please start daemon first with 'ngxvisor serve'", c.flags.APIUrl)
	}
	return api, nil
}

func (c command) lifecycle(ctx context.Context, verb string, op func(*client.Client, context.Context) error) error {
	api, err := c.reachable(ctx)
	if err != nil {
		return err
	}
	if err := op(api, ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.writer(), verb)
	return nil
}

func (c command) Start(ctx context.Context) error {
	return c.lifecycle(ctx, "started", (*client.Client).Start)
}

func (c command) Stop(ctx context.Context) error {
	return c.lifecycle(ctx, "stopped", (*client.Client).Stop)
}

func (c command) Restart(ctx context.Context) error {
	return c.lifecycle(ctx, "reloaded", (*client.Client).Restart)
}

func (c command) OpenLogs(ctx context.Context) error {
	return c.lifecycle(ctx, "opened", (*client.Client).OpenLogs)
}

func (c command) Test(ctx context.Context, f TestFlags) error {
	return c.lifecycle(ctx, "configuration test successful", func(api *client.Client, ctx context.Context) error {
		return api.TestConfig(ctx, f.Path)
	})
}

func (c command) Status(ctx context.Context) error {
	api, err := c.reachable(ctx)
	if err != nil {
		return err
	}
	st, err := api.Status(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.writer(), st)
	return nil
}

func (c command) Version(ctx context.Context) error {
	api, err := c.reachable(ctx)
	if err != nil {
		return err
	}
	v, err := api.Version(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.writer(), v)
	return nil
}

func (c command) Info(ctx context.Context, f InfoFlags) error {
	api, err := c.reachable(ctx)
	if err != nil {
		return err
	}
	info, err := api.Info(ctx, f.Cached)
	if err != nil {
		return err
	}
	printJSON(c.writer(), info)
	return nil
}

func (c command) Logs(ctx context.Context, f LogsFlags) error {
	api, err := c.reachable(ctx)
	if err != nil {
		return err
	}
	if f.Follow {
		return api.FollowLog(ctx, f.Kind, func(line string) {
			_, _ = fmt.Fprintln(c.writer(), line)
		})
	}
	out, err := api.Logs(ctx, client.LogsQuery{Kind: f.Kind, Lines: f.Lines, Search: f.Search, Level: f.Level})
	if err != nil {
		return err
	}
	if out != "" {
		_, _ = fmt.Fprintln(c.writer(), out)
	}
	return nil
}

func (c command) ClearLog(ctx context.Context, f LogKindFlags) error {
	return c.lifecycle(ctx, f.Kind+" log cleared", func(api *client.Client, ctx context.Context) error {
		return api.ClearLog(ctx, f.Kind)
	})
}

func (c command) LogExists(ctx context.Context, f LogKindFlags) error {
	api, err := c.reachable(ctx)
	if err != nil {
		return err
	}
	ok, err := api.LogExists(ctx, f.Kind)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.writer(), ok)
	return nil
}

func (c command) Events(ctx context.Context) error {
	api, err := c.reachable(ctx)
	if err != nil {
		return err
	}
	return api.Events(ctx, func(ev client.Event) { printJSON(c.writer(), ev) })
}

// interruptible returns a context cancelled on SIGINT/SIGTERM, for streaming commands.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// --- cobra wiring ---

func createLifecycleCommand(use, short string, run func(context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func createTestCommand(c command) *cobra.Command {
	f := &TestFlags{}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check the configuration syntax",
		Long: `Run the server's configuration check against its default configuration,
or against an absolute config file path with --path.

Examples:
  ngxvisor test
  ngxvisor test --path=/opt/nginx/conf/sites/example.conf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Test(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Path, "path", "", "absolute path of a config file to check")
	return cmd
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print running or stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(cmd.Context())
		},
	}
}

func createVersionCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the supervised server's version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Version(cmd.Context())
		},
	}
}

func createInfoCommand(c command) *cobra.Command {
	f := &InfoFlags{}
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print a status snapshot (version, uptime, cpu, memory, connections)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Info(cmd.Context(), *f)
		},
	}
	cmd.Flags().BoolVar(&f.Cached, "cached", false, "use the daemon monitor's last snapshot")
	return cmd
}

func createLogsCommand(c command) *cobra.Command {
	f := &LogsFlags{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print or follow a log file",
		Long: `Print the last lines of a log, optionally filtered, or follow it with -f.
Kinds: service, error, access.

Examples:
  ngxvisor logs --kind=error --lines=20
  ngxvisor logs --kind=access --search=POST
  ngxvisor logs --kind=error -f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if f.Follow {
				var cancel context.CancelFunc
				ctx, cancel = interruptible(ctx)
				defer cancel()
			}
			return c.Logs(ctx, *f)
		},
	}
	cmd.Flags().StringVar(&f.Kind, "kind", "service", "log kind: service, error or access")
	cmd.Flags().IntVar(&f.Lines, "lines", 100, "number of trailing lines to read")
	cmd.Flags().StringVar(&f.Search, "search", "", "keep lines containing this text")
	cmd.Flags().StringVar(&f.Level, "level", "", "keep lines containing this level marker")
	cmd.Flags().BoolVarP(&f.Follow, "follow", "f", false, "stream appended lines until interrupted")
	return cmd
}

func createClearLogCommand(c command) *cobra.Command {
	f := &LogKindFlags{}
	cmd := &cobra.Command{
		Use:   "clear-log",
		Short: "Truncate a log file in place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ClearLog(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Kind, "kind", "", "log kind: service, error or access (required)")
	if err := cmd.MarkFlagRequired("kind"); err != nil {
		panic(err)
	}
	return cmd
}

func createLogExistsCommand(c command) *cobra.Command {
	f := &LogKindFlags{}
	cmd := &cobra.Command{
		Use:   "log-exists",
		Short: "Print whether a log file exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.LogExists(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Kind, "kind", "", "log kind: service, error or access (required)")
	if err := cmd.MarkFlagRequired("kind"); err != nil {
		panic(err)
	}
	return cmd
}

func createEventsCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream status-change events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()
			err := c.Events(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
