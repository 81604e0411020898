package orchestrator

import (
	"fmt"
	"strings"
)

// ExecutionError reports a failed provider invocation.
type ExecutionError struct {
	AgentID    string
	ProviderID string
	ExitCode   int
	Stderr     string
	Err        error
}

func (e *ExecutionError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if i := strings.IndexByte(detail, '\n'); i >= 0 {
		detail = detail[:i]
	}
	msg := fmt.Sprintf("execution failed for agent %s via %s (exit %d)", e.AgentID, e.ProviderID, e.ExitCode)
	if detail != "" {
		msg += ": " + detail
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// TraceWriteError reports a run trace that could not be persisted.
type TraceWriteError struct {
	Path string
	Err  error
}

func (e *TraceWriteError) Error() string {
	return fmt.Sprintf("write run trace %s: %v", e.Path, e.Err)
}

func (e *TraceWriteError) Unwrap() error { return e.Err }
