package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/ShayCichocki/herd/internal/logging"
)

// Environment variables set for every exec provider child process.
const (
	EnvAgentID      = "HERD_AGENT_ID"
	EnvSessionRef   = "HERD_SESSION_REF"
	EnvSystemPrompt = "HERD_SYSTEM_PROMPT"
)

// ExecConfig configures a provider that runs a local command per turn.
type ExecConfig struct {
	// ID is the provider id. Defaults to "exec".
	ID string `mapstructure:"id"`
	// Command is the executable to run.
	Command string `mapstructure:"command"`
	// Args are passed before the message.
	Args []string `mapstructure:"args"`
	// AgentFlag, when set, is passed with the agent id and enables the
	// agent capability.
	AgentFlag string `mapstructure:"agent_flag"`
	// MessageViaStdin writes the message to stdin instead of appending it
	// as the final argument.
	MessageViaStdin bool `mapstructure:"stdin"`
}

// ExecProvider runs an external CLI for each invocation.
type ExecProvider struct {
	cfg    ExecConfig
	logger *slog.Logger
}

// NewExecProvider creates an exec provider. It fails when no command is set.
func NewExecProvider(cfg ExecConfig, logger *slog.Logger) (*ExecProvider, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("exec provider command is not configured")
	}
	if cfg.ID == "" {
		cfg.ID = "exec"
	}
	return &ExecProvider{cfg: cfg, logger: logging.OrNop(logger)}, nil
}

// ID returns the provider id.
func (p *ExecProvider) ID() string { return p.cfg.ID }

// Capabilities reports agent support when an agent flag is configured.
func (p *ExecProvider) Capabilities() Capabilities {
	return Capabilities{Agent: p.cfg.AgentFlag != ""}
}

// Args returns the argument list used for req.
func (p *ExecProvider) Args(req Request) []string {
	args := append([]string(nil), p.cfg.Args...)
	if p.cfg.AgentFlag != "" && req.AgentID != "" {
		args = append(args, p.cfg.AgentFlag, req.AgentID)
	}
	if !p.cfg.MessageViaStdin {
		args = append(args, req.Message)
	}
	return args
}

// Invoke starts the command and streams its stdout and stderr.
// A non-zero exit status is reported on the exit chunk, not as an error.
func (p *ExecProvider) Invoke(ctx context.Context, req Request) (<-chan Chunk, error) {
	cmd := exec.CommandContext(ctx, p.cfg.Command, p.Args(req)...)
	if req.Cwd != "" {
		cmd.Dir = req.Cwd
	}
	cmd.Env = append(os.Environ(),
		EnvAgentID+"="+req.AgentID,
		EnvSessionRef+"="+req.SessionRef,
		EnvSystemPrompt+"="+req.SystemPrompt,
	)
	if p.cfg.MessageViaStdin {
		cmd.Stdin = strings.NewReader(req.Message)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("attach stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("attach stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", p.cfg.Command, err)
	}
	p.logger.Debug("provider command started", "provider", p.cfg.ID, "agent", req.AgentID, "pid", cmd.Process.Pid)

	ch := make(chan Chunk, 16)
	go func() {
		defer close(ch)

		var wg sync.WaitGroup
		wg.Add(2)
		go pump(&wg, stdout, ChunkStdout, ch)
		go pump(&wg, stderr, ChunkStderr, ch)
		wg.Wait()

		exit := Chunk{Kind: ChunkExit}
		if err := cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
				exit.ExitCode = exitErr.ExitCode()
			} else {
				exit.ExitCode = 1
				exit.Err = fmt.Errorf("wait for %s: %w", p.cfg.Command, err)
			}
		}
		p.logger.Debug("provider command exited", "provider", p.cfg.ID, "agent", req.AgentID, "code", exit.ExitCode)
		ch <- exit
	}()

	return ch, nil
}

func pump(wg *sync.WaitGroup, r io.Reader, kind ChunkKind, ch chan<- Chunk) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			ch <- Chunk{Kind: kind, Data: string(buf[:n])}
		}
		if err != nil {
			return
		}
	}
}

var _ Provider = (*ExecProvider)(nil)
