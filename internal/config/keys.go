package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// ErrUnknownKey is returned for a dotted key that Value or SetValue does not know.
var ErrUnknownKey = errors.New("unknown configuration key")

// GetAPIKey returns the Anthropic API key from the configuration.
// It checks in order: environment variable, config file.
func GetAPIKey(cfg *Config) (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}

	if cfg != nil && cfg.Providers.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Providers.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", ErrNoAPIKey
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters (sk-ant-) and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return KeySourceEnv
	}

	if cfg != nil && cfg.Providers.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Providers.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return KeySourceConfig
		}
	}

	return KeySourceNone
}

// field binds one dotted key to a Config field.
type field struct {
	get func(c *Config) string
	set func(c *Config, value string) error
}

var fields = map[string]field{
	"home": {
		get: func(c *Config) string { return c.Home },
		set: func(c *Config, v string) error { c.Home = v; return nil },
	},
	"org.root_agent": {
		get: func(c *Config) string { return c.Org.RootAgent },
		set: func(c *Config, v string) error { c.Org.RootAgent = v; return nil },
	},
	"providers.default": {
		get: func(c *Config) string { return c.Providers.Default },
		set: func(c *Config, v string) error { c.Providers.Default = v; return nil },
	},
	"providers.exec.command": {
		get: func(c *Config) string { return c.Providers.Exec.Command },
		set: func(c *Config, v string) error { c.Providers.Exec.Command = v; return nil },
	},
	"providers.exec.args": {
		get: func(c *Config) string { return strings.Join(c.Providers.Exec.Args, " ") },
		set: func(c *Config, v string) error { c.Providers.Exec.Args = strings.Fields(v); return nil },
	},
	"providers.exec.agent_flag": {
		get: func(c *Config) string { return c.Providers.Exec.AgentFlag },
		set: func(c *Config, v string) error { c.Providers.Exec.AgentFlag = v; return nil },
	},
	"providers.exec.stdin": {
		get: func(c *Config) string { return strconv.FormatBool(c.Providers.Exec.MessageViaStdin) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for providers.exec.stdin: %w", err)
			}
			c.Providers.Exec.MessageViaStdin = b
			return nil
		},
	},
	"providers.anthropic.api_key": {
		get: func(c *Config) string { return MaskAPIKey(c.Providers.Anthropic.APIKey) },
		set: func(c *Config, v string) error { c.Providers.Anthropic.APIKey = v; return nil },
	},
	"providers.anthropic.model": {
		get: func(c *Config) string { return c.Providers.Anthropic.Model },
		set: func(c *Config, v string) error { c.Providers.Anthropic.Model = v; return nil },
	},
	"providers.anthropic.max_tokens": {
		get: func(c *Config) string { return strconv.FormatInt(c.Providers.Anthropic.MaxTokens, 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for providers.anthropic.max_tokens: %w", err)
			}
			c.Providers.Anthropic.MaxTokens = n
			return nil
		},
	},
	"providers.anthropic.use_bedrock": {
		get: func(c *Config) string { return strconv.FormatBool(c.Providers.Anthropic.UseBedrock) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for providers.anthropic.use_bedrock: %w", err)
			}
			c.Providers.Anthropic.UseBedrock = b
			return nil
		},
	},
	"providers.anthropic.aws_region": {
		get: func(c *Config) string { return c.Providers.Anthropic.AWSRegion },
		set: func(c *Config, v string) error { c.Providers.Anthropic.AWSRegion = v; return nil },
	},
	"log.level": {
		get: func(c *Config) string { return c.Log.Level },
		set: func(c *Config, v string) error { c.Log.Level = v; return nil },
	},
	"log.format": {
		get: func(c *Config) string { return c.Log.Format },
		set: func(c *Config, v string) error { c.Log.Format = v; return nil },
	},
	"log.output": {
		get: func(c *Config) string { return c.Log.Output },
		set: func(c *Config, v string) error { c.Log.Output = v; return nil },
	},
	"board.reload_retries": {
		get: func(c *Config) string { return strconv.Itoa(c.Board.ReloadRetries) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid value for board.reload_retries: %q", v)
			}
			c.Board.ReloadRetries = n
			return nil
		},
	},
	"board.busy_timeout": {
		get: func(c *Config) string { return c.Board.BusyTimeout.String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration for board.busy_timeout: %w", err)
			}
			c.Board.BusyTimeout = d
			return nil
		},
	},
}

// Keys returns every dotted key Value and SetValue accept, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the display value for a dotted key. API keys are masked.
func (c *Config) Value(key string) (string, error) {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// SetValue parses value into the field for a dotted key.
func (c *Config) SetValue(key, value string) error {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.set(c, value)
}
