package orchestrator

import (
	"log/slog"
	"time"

	"github.com/ShayCichocki/herd/internal/routing"
)

// RequiredConfig contains the minimal required configuration for a Runner.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Graph supplies manifests for routing and provider bindings.
	Graph Graph
	// Providers builds the provider for the routed target.
	Providers ProviderFactory
	// RunsDir receives one trace file per run.
	RunsDir string
}

// Option configures a Runner. Use With* functions to create Options.
type Option func(*runnerOptions)

type runnerOptions struct {
	logger          *slog.Logger
	engine          *routing.Engine
	defaultProvider string
	workspacesDir   string
	now             func() time.Time
	newRunID        func() string
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *runnerOptions) { o.logger = l }
}

// WithEngine sets a custom routing engine.
func WithEngine(e *routing.Engine) Option {
	return func(o *runnerOptions) { o.engine = e }
}

// WithDefaultProvider sets the provider used when a manifest names none.
func WithDefaultProvider(id string) Option {
	return func(o *runnerOptions) { o.defaultProvider = id }
}

// WithWorkspacesDir sets the directory holding per-agent workspaces. When set,
// a run without an explicit Cwd executes in the target's workspace.
func WithWorkspacesDir(dir string) Option {
	return func(o *runnerOptions) { o.workspacesDir = dir }
}

// WithClock sets the time source (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(o *runnerOptions) { o.now = now }
}

// WithRunIDGenerator sets the run id source (mainly for testing).
func WithRunIDGenerator(f func() string) Option {
	return func(o *runnerOptions) { o.newRunID = f }
}
