package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrain_CollectsAndForwards(t *testing.T) {
	ch := make(chan Chunk, 4)
	ch <- Chunk{Kind: ChunkStdout, Data: "hello "}
	ch <- Chunk{Kind: ChunkStderr, Data: "warn"}
	ch <- Chunk{Kind: ChunkStdout, Data: "world"}
	ch <- Chunk{Kind: ChunkExit, ExitCode: 2}
	close(ch)

	var out, errOut bytes.Buffer
	res := Drain(ch, &out, &errOut)

	assert.Equal(t, "hello world", res.Stdout)
	assert.Equal(t, "warn", res.Stderr)
	assert.Equal(t, 2, res.ExitCode)
	assert.True(t, res.Failed())
	assert.Equal(t, "hello world", out.String())
	assert.Equal(t, "warn", errOut.String())
}

func TestDrain_MissingExitChunk(t *testing.T) {
	ch := make(chan Chunk, 1)
	ch <- Chunk{Kind: ChunkStdout, Data: "partial"}
	close(ch)

	res := Drain(ch, nil, nil)
	assert.Equal(t, "partial", res.Stdout)
	assert.Equal(t, 1, res.ExitCode)
	assert.Error(t, res.Err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("Scripted", func() (Provider, error) { return &ScriptedProvider{}, nil })
	r.Register("broken", func() (Provider, error) { return nil, errors.New("no key") })

	p, err := r.Create(" scripted ")
	require.NoError(t, err)
	assert.Equal(t, "scripted", p.ID())

	_, err = r.Create("missing")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = r.Create("broken")
	assert.ErrorContains(t, err, "no key")

	assert.Equal(t, []string{"broken", "scripted"}, r.IDs())
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	r := NewRegistryFromConfig(Config{}, nil)

	assert.Equal(t, []string{"anthropic", "exec", "scripted"}, r.IDs())

	_, err := r.Create("exec")
	assert.ErrorContains(t, err, "command is not configured")

	_, err = r.Create("anthropic")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestResolveID(t *testing.T) {
	assert.Equal(t, "exec", ResolveID(" Exec ", "anthropic"))
	assert.Equal(t, "anthropic", ResolveID("", "anthropic"))
	assert.Equal(t, DefaultProviderID, ResolveID("", ""))
}

func TestScriptedProvider(t *testing.T) {
	p := &ScriptedProvider{}
	ch, err := p.Invoke(context.Background(), Request{AgentID: "writer", Message: "draft it"})
	require.NoError(t, err)

	res := Drain(ch, nil, nil)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "handled-by:writer\ndraft it\n", res.Stdout)
	assert.True(t, p.Capabilities().Agent)
}

func TestScriptedProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&ScriptedProvider{}).Invoke(ctx, Request{AgentID: "a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecProvider_StreamsAndReportsExitCode(t *testing.T) {
	requireShell(t)
	p, err := NewExecProvider(ExecConfig{
		Command: "sh",
		Args:    []string{"-c", `echo "out:$1 agent:$HERD_AGENT_ID"; echo oops 1>&2; exit 3`, "sh"},
	}, nil)
	require.NoError(t, err)

	ch, err := p.Invoke(context.Background(), Request{AgentID: "cto", Message: "ship"})
	require.NoError(t, err)

	res := Drain(ch, nil, nil)
	assert.Equal(t, 3, res.ExitCode)
	assert.NoError(t, res.Err)
	assert.Equal(t, "out:ship agent:cto\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestExecProvider_MessageViaStdinAndCwd(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	p, err := NewExecProvider(ExecConfig{
		Command:         "sh",
		Args:            []string{"-c", `cat; pwd`},
		MessageViaStdin: true,
	}, nil)
	require.NoError(t, err)

	ch, err := p.Invoke(context.Background(), Request{Message: "from stdin\n", Cwd: dir})
	require.NoError(t, err)

	res := Drain(ch, nil, nil)
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, strings.HasPrefix(res.Stdout, "from stdin\n"))
	assert.Contains(t, res.Stdout, dir)
}

func TestExecProvider_Args(t *testing.T) {
	p, err := NewExecProvider(ExecConfig{Command: "agent-cli", Args: []string{"run"}, AgentFlag: "--agent"}, nil)
	require.NoError(t, err)

	assert.True(t, p.Capabilities().Agent)
	assert.Equal(t, []string{"run", "--agent", "cto", "hello"}, p.Args(Request{AgentID: "cto", Message: "hello"}))
	assert.Equal(t, []string{"run", "hello"}, p.Args(Request{Message: "hello"}))
}

func TestExecProvider_StartFailure(t *testing.T) {
	p, err := NewExecProvider(ExecConfig{Command: "/nonexistent/herd-provider"}, nil)
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), Request{Message: "x"})
	assert.Error(t, err)
}

func TestTranslateModelForBedrock(t *testing.T) {
	assert.Equal(t,
		anthropic.Model("us.anthropic.claude-sonnet-4-20250514-v1:0"),
		translateModelForBedrock(anthropic.ModelClaudeSonnet4_20250514))
	assert.Equal(t, anthropic.Model("custom"), translateModelForBedrock("custom"))
}

func TestAnthropicProvider_Invoke(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "done"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 1}
		}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test", BaseURL: srv.URL, MaxTokens: 256})
	require.NoError(t, err)

	ch, err := p.Invoke(context.Background(), Request{Message: "hi", SystemPrompt: "be brief"})
	require.NoError(t, err)
	res := Drain(ch, nil, nil)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "done", res.Stdout)
	assert.EqualValues(t, 256, got["max_tokens"])
	assert.NotNil(t, got["system"])
}

func TestAnthropicProvider_APIErrorIsExitCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad request"}}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	ch, err := p.Invoke(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	res := Drain(ch, nil, nil)

	assert.Equal(t, 1, res.ExitCode)
	assert.Error(t, res.Err)
	assert.Contains(t, res.Stderr, "API call failed")
}
