package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/herd/internal/logging"
	"github.com/ShayCichocki/herd/internal/provider"
	"github.com/ShayCichocki/herd/internal/routing"
	"github.com/ShayCichocki/herd/pkg/models"
)

// Graph is the organization view a Runner needs.
type Graph interface {
	routing.ManifestLister
	GetManifest(ctx context.Context, agentID string) (models.AgentManifest, error)
}

// ProviderFactory creates providers by id. *provider.Registry implements it.
type ProviderFactory interface {
	Create(id string) (provider.Provider, error)
}

// RunOptions are the caller's invocation options. Everything except Message
// is passed to the provider unchanged.
type RunOptions struct {
	Message      string
	SessionRef   string
	Cwd          string
	SystemPrompt string
	// Stdout and Stderr receive provider output as it streams.
	Stdout io.Writer
	Stderr io.Writer
}

// RunResult is the execution merged with routing metadata.
type RunResult struct {
	models.Execution
	RunID        string
	EntryAgentID string
	Routing      models.RoutingDecision
	TracePath    string
}

// Runner routes a message, executes the target and records a trace.
type Runner struct {
	graph           Graph
	providers       ProviderFactory
	traces          *TraceStore
	engine          *routing.Engine
	logger          *slog.Logger
	defaultProvider string
	workspacesDir   string
	now             func() time.Time
	newRunID        func() string
}

// New creates a Runner.
func New(cfg RequiredConfig, opts ...Option) *Runner {
	o := &runnerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	logger := logging.OrNop(o.logger)
	engine := o.engine
	if engine == nil {
		engine = routing.NewEngine(routing.WithLogger(logger))
	}
	now := o.now
	if now == nil {
		now = time.Now
	}
	newRunID := o.newRunID
	if newRunID == nil {
		newRunID = func() string { return strings.ToLower(uuid.NewString()) }
	}

	return &Runner{
		graph:           cfg.Graph,
		providers:       cfg.Providers,
		traces:          NewTraceStore(cfg.RunsDir, logger),
		engine:          engine,
		logger:          logger,
		defaultProvider: o.defaultProvider,
		workspacesDir:   o.workspacesDir,
		now:             now,
		newRunID:        newRunID,
	}
}

// Traces returns the trace store the runner writes to.
func (r *Runner) Traces() *TraceStore { return r.traces }

// Route decides where message would go without executing anything.
func (r *Runner) Route(ctx context.Context, entryAgentID, message string) (models.RoutingDecision, error) {
	return r.engine.Route(ctx, r.graph, entryAgentID, message)
}

// RunAgent routes opts.Message from entryAgentID, invokes the target and
// writes the run trace.
//
// The result is non-nil whenever routing succeeded. A failed execution is
// reported as *ExecutionError, a failed trace write as *TraceWriteError, and
// both are joined when both occur. The ctx is handed to the provider as is.
func (r *Runner) RunAgent(ctx context.Context, entryAgentID string, opts RunOptions) (*RunResult, error) {
	startedAt := r.now().UTC()

	decision, err := r.Route(ctx, entryAgentID, opts.Message)
	if err != nil {
		return nil, err
	}
	target := decision.TargetAgentID

	exec, execErr := r.execute(ctx, target, opts, decision.RewrittenMessage)

	completedAt := r.now().UTC()
	runID := r.newRunID()

	trace := models.RunTrace{
		SchemaVersion: models.TraceSchemaVersion,
		RunID:         runID,
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
		EntryAgentID:  decision.EntryAgentID,
		UserMessage:   opts.Message,
		Routing:       decision,
		Execution:     exec,
	}
	tracePath, traceErr := r.traces.Write(trace)

	r.logger.Info("agent run finished",
		"run_id", runID,
		"entry", decision.EntryAgentID,
		"target", target,
		"provider", exec.ProviderID,
		"code", exec.ExitCode,
		"duration_ms", exec.DurationMs,
	)
	if traceErr != nil {
		r.logger.Warn("run trace not persisted", "run_id", runID, "error", traceErr)
	}

	result := &RunResult{
		Execution:    exec,
		RunID:        runID,
		EntryAgentID: decision.EntryAgentID,
		Routing:      decision,
		TracePath:    tracePath,
	}
	if execErr == nil && traceErr == nil {
		return result, nil
	}
	return result, errors.Join(execErr, traceErr)
}

// execute invokes target through its provider. The returned Execution is
// always populated, including on failure.
func (r *Runner) execute(ctx context.Context, target string, opts RunOptions, message string) (models.Execution, error) {
	exec := models.Execution{AgentID: target}

	manifest, err := r.graph.GetManifest(ctx, target)
	if err != nil {
		exec.ProviderID = provider.ResolveID("", r.defaultProvider)
		return r.failed(exec, 1, "", err)
	}
	exec.ProviderID = provider.ResolveID(manifest.Provider, r.defaultProvider)

	p, err := r.providers.Create(exec.ProviderID)
	if err != nil {
		return r.failed(exec, 1, "", err)
	}

	req := provider.Request{
		AgentID:      target,
		Message:      message,
		SessionRef:   opts.SessionRef,
		Cwd:          r.workingDir(target, opts.Cwd),
		SystemPrompt: opts.SystemPrompt,
	}

	start := time.Now()
	ch, err := p.Invoke(ctx, req)
	if err != nil {
		exec.DurationMs = time.Since(start).Milliseconds()
		return r.failed(exec, 1, "", err)
	}
	res := provider.Drain(ch, opts.Stdout, opts.Stderr)
	exec.DurationMs = time.Since(start).Milliseconds()
	exec.Stdout = res.Stdout

	if res.Failed() {
		return r.failed(exec, res.ExitCode, res.Stderr, res.Err)
	}
	exec.Stderr = res.Stderr
	return exec, nil
}

func (r *Runner) failed(exec models.Execution, code int, stderr string, cause error) (models.Execution, error) {
	if stderr == "" && cause != nil {
		stderr = cause.Error()
	}
	exec.ExitCode = code
	exec.Stderr = stderr
	return exec, &ExecutionError{
		AgentID:    exec.AgentID,
		ProviderID: exec.ProviderID,
		ExitCode:   code,
		Stderr:     stderr,
		Err:        cause,
	}
}

// workingDir returns the explicit cwd, else the target's workspace when it exists.
func (r *Runner) workingDir(target, cwd string) string {
	if cwd != "" || r.workspacesDir == "" {
		return cwd
	}
	dir := filepath.Join(r.workspacesDir, target)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
