package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	t.Setenv("HERD_HOME", "/srv/herd")
	cfg := Default()

	if cfg.Home != "/srv/herd" {
		t.Errorf("expected home from HERD_HOME, got %q", cfg.Home)
	}
	if cfg.Org.RootAgent != "goat" {
		t.Errorf("expected root agent 'goat', got %q", cfg.Org.RootAgent)
	}
	if cfg.Providers.Default != "scripted" {
		t.Errorf("expected default provider 'scripted', got %q", cfg.Providers.Default)
	}
	if cfg.Board.ReloadRetries != 3 {
		t.Errorf("expected 3 reload retries, got %d", cfg.Board.ReloadRetries)
	}
	if cfg.Board.BusyTimeout != 5*time.Second {
		t.Errorf("expected busy timeout 5s, got %v", cfg.Board.BusyTimeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" || cfg.Log.Output != "stderr" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestDefaultHome_FallsBackToUserHome(t *testing.T) {
	t.Setenv("HERD_HOME", "")
	t.Setenv("HOME", "/home/tester")

	if got := DefaultHome(); got != filepath.Join("/home/tester", ".herd") {
		t.Errorf("DefaultHome() = %q", got)
	}
}

func TestPaths(t *testing.T) {
	cfg := &Config{Home: "/data/herd"}

	if got := cfg.BoardDBPath(); got != "/data/herd/boards.sqlite" {
		t.Errorf("BoardDBPath() = %q", got)
	}
	if got := cfg.RunsDir(); got != "/data/herd/runs" {
		t.Errorf("RunsDir() = %q", got)
	}
	if got := cfg.WorkspacesDir(); got != "/data/herd/workspaces" {
		t.Errorf("WorkspacesDir() = %q", got)
	}
	if got := cfg.ConfigPath(); got != "/data/herd/config.yaml" {
		t.Errorf("ConfigPath() = %q", got)
	}
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv("HERD_HOME", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("TEST_HERD_KEY", "sk-ant-from-env-reference")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
home: ` + tmpDir + `
org:
  root_agent: ceo
providers:
  default: exec
  exec:
    command: claude
    args: ["--print"]
    agent_flag: --agent
  anthropic:
    api_key: ${TEST_HERD_KEY}
    max_tokens: 2048
log:
  level: debug
  format: json
board:
  reload_retries: 5
  busy_timeout: 250ms
agents:
  ceo:
    name: Chief Executive
  cto:
    type: manager
    reportsTo: ceo
    tags: [architecture, api]
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Home != tmpDir {
		t.Errorf("expected home %q, got %q", tmpDir, cfg.Home)
	}
	if cfg.Org.RootAgent != "ceo" {
		t.Errorf("expected root agent 'ceo', got %q", cfg.Org.RootAgent)
	}
	if cfg.Providers.Default != "exec" {
		t.Errorf("expected default provider 'exec', got %q", cfg.Providers.Default)
	}
	if cfg.Providers.Exec.Command != "claude" || len(cfg.Providers.Exec.Args) != 1 || cfg.Providers.Exec.AgentFlag != "--agent" {
		t.Errorf("unexpected exec config: %+v", cfg.Providers.Exec)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-ant-from-env-reference" {
		t.Errorf("expected expanded api key, got %q", cfg.Providers.Anthropic.APIKey)
	}
	if cfg.Providers.Anthropic.MaxTokens != 2048 {
		t.Errorf("expected max tokens 2048, got %d", cfg.Providers.Anthropic.MaxTokens)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Log.Output != "stderr" {
		t.Errorf("expected default log output, got %q", cfg.Log.Output)
	}
	if cfg.Board.ReloadRetries != 5 {
		t.Errorf("expected 5 reload retries, got %d", cfg.Board.ReloadRetries)
	}
	if cfg.Board.BusyTimeout != 250*time.Millisecond {
		t.Errorf("expected busy timeout 250ms, got %v", cfg.Board.BusyTimeout)
	}
	if len(cfg.Agents) != 2 {
		t.Errorf("expected 2 configured agents, got %d", len(cfg.Agents))
	}
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-wins")
	t.Setenv("HERD_ORG_ROOT_AGENT", "chief")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "org:\n  root_agent: ceo\nproviders:\n  anthropic:\n    api_key: sk-ant-file\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Org.RootAgent != "chief" {
		t.Errorf("expected env root agent, got %q", cfg.Org.RootAgent)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-ant-env-wins" {
		t.Errorf("expected env api key, got %q", cfg.Providers.Anthropic.APIKey)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_ProjectOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HERD_HOME", home)
	t.Setenv("ANTHROPIC_API_KEY", "")

	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("org:\n  root_agent: ceo\nlog:\n  level: warn\n"), 0644); err != nil {
		t.Fatal(err)
	}

	project := t.TempDir()
	nested := filepath.Join(project, "src", "pkg")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, ".herd.yaml"), []byte("org:\n  root_agent: lead\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Home != home {
		t.Errorf("expected home %q, got %q", home, cfg.Home)
	}
	if cfg.Org.RootAgent != "lead" {
		t.Errorf("expected project override 'lead', got %q", cfg.Org.RootAgent)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected home config log level 'warn', got %q", cfg.Log.Level)
	}
	if got := GetProjectConfigPath(); filepath.Base(got) != ".herd.yaml" {
		t.Errorf("GetProjectConfigPath() = %q", got)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("HERD_HOME", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	home := filepath.Join(t.TempDir(), "home")

	cfg := Default()
	cfg.Home = home
	cfg.Org.RootAgent = "ceo"
	cfg.Providers.Exec.Command = "claude"
	cfg.Board.BusyTimeout = 2 * time.Second

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(cfg.ConfigPath())
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Org.RootAgent != "ceo" || loaded.Providers.Exec.Command != "claude" {
		t.Errorf("saved values not reloaded: %+v", loaded)
	}
	if loaded.Board.BusyTimeout != 2*time.Second {
		t.Errorf("expected busy timeout 2s, got %v", loaded.Board.BusyTimeout)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("HERD_TEST_DIR", "/opt/data")

	tests := []struct {
		in   string
		want string
	}{
		{"~", "/home/tester"},
		{"~/herd", "/home/tester/herd"},
		{"$HERD_TEST_DIR/herd", "/opt/data/herd"},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
