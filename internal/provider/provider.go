// Package provider defines the contract for executing an agent turn and the
// adapters that implement it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownProvider is returned when a registry has no factory for an id.
var ErrUnknownProvider = errors.New("unknown provider")

// ChunkKind identifies what a Chunk carries.
type ChunkKind string

const (
	ChunkStdout ChunkKind = "stdout"
	ChunkStderr ChunkKind = "stderr"
	// ChunkExit is always the last chunk on a stream.
	ChunkExit ChunkKind = "exit"
)

// Chunk is one piece of provider output.
type Chunk struct {
	Kind ChunkKind
	Data string
	// ExitCode is set on ChunkExit.
	ExitCode int
	// Err is set on ChunkExit when the invocation failed after starting.
	Err error
}

// Request is one invocation of an agent.
type Request struct {
	AgentID      string
	Message      string
	SessionRef   string
	Cwd          string
	SystemPrompt string
}

// Capabilities describes optional provider features.
type Capabilities struct {
	// Agent means the provider accepts an agent id and routes to it natively.
	Agent bool
}

// Provider executes agent turns.
//
// Invoke returns an error only when the invocation could not be started.
// Otherwise the returned channel yields output chunks followed by exactly one
// ChunkExit, then closes.
type Provider interface {
	ID() string
	Capabilities() Capabilities
	Invoke(ctx context.Context, req Request) (<-chan Chunk, error)
}

// Result is a fully drained invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// Failed reports whether the invocation exited non-zero or errored.
func (r Result) Failed() bool {
	return r.ExitCode != 0 || r.Err != nil
}

// Drain consumes ch until it closes, copying output to the optional sinks.
// A stream that closes without an exit chunk is reported as a failure.
func Drain(ch <-chan Chunk, stdout, stderr io.Writer) Result {
	var (
		res      Result
		out, err strings.Builder
		exited   bool
	)
	for c := range ch {
		switch c.Kind {
		case ChunkStdout:
			out.WriteString(c.Data)
			if stdout != nil {
				_, _ = io.WriteString(stdout, c.Data)
			}
		case ChunkStderr:
			err.WriteString(c.Data)
			if stderr != nil {
				_, _ = io.WriteString(stderr, c.Data)
			}
		case ChunkExit:
			res.ExitCode = c.ExitCode
			res.Err = c.Err
			exited = true
		}
	}
	if !exited {
		res.ExitCode = 1
		res.Err = errors.New("provider stream closed without exit status")
	}
	res.Stdout = out.String()
	res.Stderr = err.String()
	return res
}

// Factory builds a provider instance.
type Factory func() (Provider, error)

// Registry maps provider ids to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalizeID(id)] = f
}

// Create builds the provider registered under id.
func (r *Registry) Create(id string) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[normalizeID(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	p, err := f()
	if err != nil {
		return nil, fmt.Errorf("create provider %s: %w", id, err)
	}
	return p, nil
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
