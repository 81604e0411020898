package provider

import (
	"log/slog"
	"strings"
)

// DefaultProviderID is used when neither manifest nor config names a provider.
const DefaultProviderID = "scripted"

// Config selects and configures the available providers.
type Config struct {
	Default   string          `mapstructure:"default"`
	Exec      ExecConfig      `mapstructure:"exec"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// NewRegistryFromConfig registers scripted, exec and anthropic providers.
// Construction is deferred, so a misconfigured provider only fails when used.
func NewRegistryFromConfig(cfg Config, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.Register("scripted", func() (Provider, error) {
		return &ScriptedProvider{}, nil
	})

	execCfg := cfg.Exec
	execID := execCfg.ID
	if execID == "" {
		execID = "exec"
	}
	r.Register(execID, func() (Provider, error) {
		return NewExecProvider(execCfg, logger)
	})

	anthropicCfg := cfg.Anthropic
	r.Register("anthropic", func() (Provider, error) {
		return NewAnthropicProvider(anthropicCfg)
	})
	return r
}

// ResolveID picks the provider for an agent: the manifest binding, else the
// configured default, else DefaultProviderID.
func ResolveID(manifestProvider, configDefault string) string {
	if id := strings.ToLower(strings.TrimSpace(manifestProvider)); id != "" {
		return id
	}
	if id := strings.ToLower(strings.TrimSpace(configDefault)); id != "" {
		return id
	}
	return DefaultProviderID
}
