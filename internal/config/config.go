// Package config handles configuration loading and management for herd.
// It supports a home directory config file, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/herd/internal/logging"
	"github.com/ShayCichocki/herd/internal/provider"
)

const (
	// ProjectConfigName is the per-project override file.
	ProjectConfigName = ".herd.yaml"
	// DefaultRootAgent is the root manager id when none is configured.
	DefaultRootAgent = "goat"

	envPrefix = "HERD"
)

// Config holds all configuration for herd.
type Config struct {
	// Home is the directory holding the board file, runs and workspaces.
	Home      string          `mapstructure:"home"`
	Org       OrgConfig       `mapstructure:"org"`
	Providers provider.Config `mapstructure:"providers"`
	Log       logging.Config  `mapstructure:"log"`
	Board     BoardConfig     `mapstructure:"board"`
	// Agents holds config-sourced manifests keyed by agent id.
	Agents map[string]any `mapstructure:"agents"`
}

// OrgConfig holds organization settings.
type OrgConfig struct {
	RootAgent string `mapstructure:"root_agent"`
}

// BoardConfig holds task board store settings.
type BoardConfig struct {
	ReloadRetries int           `mapstructure:"reload_retries"`
	BusyTimeout   time.Duration `mapstructure:"busy_timeout"`
}

// BoardDBPath returns the board database path.
func (c *Config) BoardDBPath() string {
	return filepath.Join(c.Home, "boards.sqlite")
}

// RunsDir returns the run trace directory.
func (c *Config) RunsDir() string {
	return filepath.Join(c.Home, "runs")
}

// WorkspacesDir returns the directory holding one workspace per agent.
func (c *Config) WorkspacesDir() string {
	return filepath.Join(c.Home, "workspaces")
}

// ConfigPath returns the home config file path.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Home, "config.yaml")
}

// Load loads configuration from the home directory, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (HERD_*, ANTHROPIC_API_KEY)
// 2. Project config (.herd.yaml in current directory or parent)
// 3. Home config (<home>/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	home := DefaultHome()

	v := newViper(home)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading home config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file.
// Environment variables still take precedence.
func LoadFromPath(path string) (*Config, error) {
	v := newViper(DefaultHome())

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

// Save writes cfg to <home>/config.yaml.
func Save(cfg *Config) error {
	if err := os.MkdirAll(cfg.Home, 0700); err != nil {
		return fmt.Errorf("creating home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(cfg.ConfigPath())

	v.Set("home", cfg.Home)
	v.Set("org.root_agent", cfg.Org.RootAgent)
	v.Set("providers.default", cfg.Providers.Default)
	v.Set("providers.exec.id", cfg.Providers.Exec.ID)
	v.Set("providers.exec.command", cfg.Providers.Exec.Command)
	v.Set("providers.exec.args", cfg.Providers.Exec.Args)
	v.Set("providers.exec.agent_flag", cfg.Providers.Exec.AgentFlag)
	v.Set("providers.exec.stdin", cfg.Providers.Exec.MessageViaStdin)
	v.Set("providers.anthropic.api_key", cfg.Providers.Anthropic.APIKey)
	v.Set("providers.anthropic.model", cfg.Providers.Anthropic.Model)
	v.Set("providers.anthropic.max_tokens", cfg.Providers.Anthropic.MaxTokens)
	v.Set("providers.anthropic.use_bedrock", cfg.Providers.Anthropic.UseBedrock)
	v.Set("providers.anthropic.aws_region", cfg.Providers.Anthropic.AWSRegion)
	v.Set("providers.anthropic.aws_profile", cfg.Providers.Anthropic.AWSProfile)
	v.Set("providers.anthropic.base_url", cfg.Providers.Anthropic.BaseURL)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.output", cfg.Log.Output)
	v.Set("board.reload_retries", cfg.Board.ReloadRetries)
	v.Set("board.busy_timeout", cfg.Board.BusyTimeout.String())
	if len(cfg.Agents) > 0 {
		v.Set("agents", cfg.Agents)
	}

	return v.WriteConfig()
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultHome returns $HERD_HOME, or ~/.herd.
func DefaultHome() string {
	if home := os.Getenv("HERD_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".herd"
	}
	return filepath.Join(userHome, ".herd")
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Home: DefaultHome(),
		Org: OrgConfig{
			RootAgent: DefaultRootAgent,
		},
		Providers: provider.Config{
			Default: provider.DefaultProviderID,
			Anthropic: provider.AnthropicConfig{
				MaxTokens: provider.DefaultMaxTokens,
			},
		},
		Log: logging.Config{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Board: BoardConfig{
			ReloadRetries: 3,
			BusyTimeout:   5 * time.Second,
		},
		Agents: map[string]any{},
	}
}

func newViper(home string) *viper.Viper {
	v := viper.New()
	setDefaults(v, home)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("providers.anthropic.api_key", "HERD_PROVIDERS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Home = expandPath(cfg.Home)
	cfg.Providers.Anthropic.APIKey = os.ExpandEnv(cfg.Providers.Anthropic.APIKey)
	if cfg.Agents == nil {
		cfg.Agents = map[string]any{}
	}
	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper, home string) {
	d := Default()

	v.SetDefault("home", home)
	v.SetDefault("org.root_agent", d.Org.RootAgent)

	v.SetDefault("providers.default", d.Providers.Default)
	v.SetDefault("providers.exec.id", "")
	v.SetDefault("providers.exec.command", "")
	v.SetDefault("providers.exec.args", []string{})
	v.SetDefault("providers.exec.agent_flag", "")
	v.SetDefault("providers.exec.stdin", false)
	v.SetDefault("providers.anthropic.api_key", "")
	v.SetDefault("providers.anthropic.model", "")
	v.SetDefault("providers.anthropic.max_tokens", d.Providers.Anthropic.MaxTokens)
	v.SetDefault("providers.anthropic.use_bedrock", false)
	v.SetDefault("providers.anthropic.aws_region", "")
	v.SetDefault("providers.anthropic.aws_profile", "")
	v.SetDefault("providers.anthropic.base_url", "")

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)

	v.SetDefault("board.reload_retries", d.Board.ReloadRetries)
	v.SetDefault("board.busy_timeout", d.Board.BusyTimeout.String())
}

// findProjectConfig searches for .herd.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandPath expands environment references and a leading ~.
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if userHome, err := os.UserHomeDir(); err == nil {
			return filepath.Join(userHome, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
