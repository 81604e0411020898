package config

import (
	"errors"
	"testing"
	"time"
)

func TestGetAPIKey(t *testing.T) {
	t.Run("from environment variable", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-key")

		key, err := GetAPIKey(&Config{})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-test-key" {
			t.Errorf("expected 'sk-ant-test-key', got %q", key)
		}
	})

	t.Run("from config", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := Default()
		cfg.Providers.Anthropic.APIKey = "sk-ant-config-key"
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-config-key" {
			t.Errorf("expected 'sk-ant-config-key', got %q", key)
		}
	})

	t.Run("unexpanded reference", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := Default()
		cfg.Providers.Anthropic.APIKey = "${HERD_UNSET_KEY_VAR}"
		if _, err := GetAPIKey(cfg); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("no key configured", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		if _, err := GetAPIKey(&Config{}); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"valid key", "sk-ant-REDACTED", "sk-ant-...wxyz"},
		{"empty key", "", "(not set)"},
		{"short key", "short", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaskAPIKey(tt.key)
			if result != tt.expected {
				t.Errorf("MaskAPIKey() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestGetAPIKeySource(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "test-key")

		if source := GetAPIKeySource(&Config{}); source != KeySourceEnv {
			t.Errorf("expected KeySourceEnv, got %v", source)
		}
	})

	t.Run("from config", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{}
		cfg.Providers.Anthropic.APIKey = "sk-ant-config-key"
		if source := GetAPIKeySource(cfg); source != KeySourceConfig {
			t.Errorf("expected KeySourceConfig, got %v", source)
		}
	})

	t.Run("no key", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		if source := GetAPIKeySource(&Config{}); source != KeySourceNone {
			t.Errorf("expected KeySourceNone, got %v", source)
		}
	})
}

func TestValueAndSetValue(t *testing.T) {
	cfg := Default()

	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"org.root_agent", "ceo", "ceo"},
		{"providers.default", "anthropic", "anthropic"},
		{"providers.exec.args", "--print  --verbose", "--print --verbose"},
		{"providers.exec.stdin", "true", "true"},
		{"providers.anthropic.max_tokens", "1024", "1024"},
		{"providers.anthropic.api_key", "sk-ant-REDACTED", "sk-ant-...wxyz"},
		{"Board.Busy_Timeout", "1500ms", "1.5s"},
		{"board.reload_retries", "4", "4"},
		{"log.level", "debug", "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := cfg.SetValue(tt.key, tt.value); err != nil {
				t.Fatalf("SetValue(%q, %q) failed: %v", tt.key, tt.value, err)
			}
			got, err := cfg.Value(tt.key)
			if err != nil {
				t.Fatalf("Value(%q) failed: %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("Value(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	if cfg.Board.BusyTimeout != 1500*time.Millisecond {
		t.Errorf("busy timeout not set: %v", cfg.Board.BusyTimeout)
	}
}

func TestSetValue_Errors(t *testing.T) {
	cfg := Default()

	if err := cfg.SetValue("defaults.tier", "scout"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
	if _, err := cfg.Value("nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}

	invalid := map[string]string{
		"board.busy_timeout":             "soon",
		"board.reload_retries":           "0",
		"providers.exec.stdin":           "maybe",
		"providers.anthropic.max_tokens": "lots",
	}
	for key, value := range invalid {
		if err := cfg.SetValue(key, value); err == nil {
			t.Errorf("SetValue(%q, %q) succeeded", key, value)
		}
	}
	if cfg.Board.ReloadRetries != 3 {
		t.Errorf("failed SetValue changed reload retries to %d", cfg.Board.ReloadRetries)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) == 0 {
		t.Fatal("no keys")
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("keys not sorted at %d: %q >= %q", i, keys[i-1], keys[i])
		}
	}
}
