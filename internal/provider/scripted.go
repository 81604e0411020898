package provider

import (
	"context"
	"fmt"
)

// ScriptedProvider answers deterministically without external calls.
// It is the default provider for dry runs and tests.
type ScriptedProvider struct {
	// ExitCode is reported on every invocation.
	ExitCode int
	// Stderr, when set, is emitted on stderr.
	Stderr string
}

// ID returns "scripted".
func (p *ScriptedProvider) ID() string { return "scripted" }

// Capabilities reports agent support.
func (p *ScriptedProvider) Capabilities() Capabilities { return Capabilities{Agent: true} }

// Invoke emits "handled-by:<agent>" followed by the message.
func (p *ScriptedProvider) Invoke(ctx context.Context, req Request) (<-chan Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan Chunk, 3)
	ch <- Chunk{Kind: ChunkStdout, Data: fmt.Sprintf("handled-by:%s\n%s\n", req.AgentID, req.Message)}
	if p.Stderr != "" {
		ch <- Chunk{Kind: ChunkStderr, Data: p.Stderr}
	}
	ch <- Chunk{Kind: ChunkExit, ExitCode: p.ExitCode}
	close(ch)
	return ch, nil
}

var _ Provider = (*ScriptedProvider)(nil)
