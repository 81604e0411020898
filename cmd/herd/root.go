package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/herd/internal/board"
	"github.com/ShayCichocki/herd/internal/config"
	"github.com/ShayCichocki/herd/internal/logging"
	"github.com/ShayCichocki/herd/internal/orchestrator"
	"github.com/ShayCichocki/herd/internal/org"
	"github.com/ShayCichocki/herd/internal/provider"
)

var (
	flagHome     string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "herd",
	Short: "Agent organization router and task board",
	Long: `herd routes requests through an organization of agents and tracks work
on a task board shared by every herd process using the same home directory.

A message sent to a manager is delegated to the direct report whose manifest
best matches it, then executed through that agent's provider. Every run leaves
a JSON trace under <home>/runs.

Agents are described by <home>/workspaces/<id>/AGENTS.md front matter or by
the "agents" section of the config file.`,
	SilenceUsage: true,
}

// exitCodeError carries a process exit code through cobra.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var ec *exitCodeError
		if errors.As(err, &ec) && ec.code > 0 {
			os.Exit(ec.code)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHome, "home", "", "herd home directory (default $HERD_HOME or ~/.herd)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(taskCmd)
}

// app bundles the loaded configuration and the components built from it.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

// loadApp loads configuration and applies global flag overrides.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagHome != "" {
		cfg.Home = flagHome
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, closeLog: closer}, nil
}

func (a *app) Close() {
	if a.closeLog != nil {
		a.closeLog()
	}
}

// graph reads workspaces first, then config-sourced agents.
func (a *app) graph() *org.Graph {
	src := org.MultiSource{
		org.NewDirSource(a.cfg.WorkspacesDir()),
		org.NewMapSourceFromAny(a.cfg.Agents),
	}
	return org.New(src, a.cfg.Org.RootAgent, org.WithLogger(a.logger))
}

func (a *app) openBoard(ctx context.Context) (*board.Store, error) {
	return board.Open(ctx, a.cfg.BoardDBPath(), a.graph(),
		board.WithLogger(a.logger),
		board.WithReloadRetries(a.cfg.Board.ReloadRetries),
		board.WithBusyTimeout(a.cfg.Board.BusyTimeout),
	)
}

func (a *app) runner() *orchestrator.Runner {
	registry := provider.NewRegistryFromConfig(a.cfg.Providers, a.logger)
	return orchestrator.New(
		orchestrator.RequiredConfig{
			Graph:     a.graph(),
			Providers: registry,
			RunsDir:   a.cfg.RunsDir(),
		},
		orchestrator.WithLogger(a.logger),
		orchestrator.WithDefaultProvider(a.cfg.Providers.Default),
		orchestrator.WithWorkspacesDir(a.cfg.WorkspacesDir()),
	)
}

// withApp adapts a command body that needs the loaded app.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

// withBoard adapts a command body that needs an open board store.
func withBoard(fn func(cmd *cobra.Command, a *app, s *board.Store, args []string) error) func(*cobra.Command, []string) error {
	return withApp(func(cmd *cobra.Command, a *app, args []string) error {
		s, err := a.openBoard(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, a, s, args)
	})
}
