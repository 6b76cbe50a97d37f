package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMRELAY_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (FORMRELAY_*). A double underscore
// separates nesting levels: FORMRELAY_SLACK__BOT_TOKEN -> slack.bot_token.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	applyLegacyEnv(cfg)
	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// applyLegacyEnv fills credentials from the SLACK_TOKEN and SIGNING
// variables older deployments export, without overriding explicit values.
func applyLegacyEnv(cfg *Config) {
	if cfg.Slack.BotToken == "" {
		cfg.Slack.BotToken = os.Getenv("SLACK_TOKEN")
	}
	if cfg.Slack.SigningSecret == "" {
		cfg.Slack.SigningSecret = os.Getenv("SIGNING")
	}
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	// The file carries credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	if c.Slack.BotToken == "" {
		return fmt.Errorf("slack.bot_token is required")
	}
	if c.Slack.Timeout != "" {
		if _, err := time.ParseDuration(c.Slack.Timeout); err != nil {
			return fmt.Errorf("invalid slack.timeout %q: %w", c.Slack.Timeout, err)
		}
	}
	if c.Slack.APIURL != "" {
		if err := checkHTTPURL(c.Slack.APIURL); err != nil {
			return fmt.Errorf("invalid slack.api_url: %w", err)
		}
	}

	if strings.TrimSpace(c.Channels.Approval) == "" {
		return fmt.Errorf("channels.approval is required")
	}
	if strings.TrimSpace(c.Channels.Decision) == "" {
		return fmt.Errorf("channels.decision is required")
	}

	if c.Callbacks.AcceptURL == "" || c.Callbacks.RejectURL == "" {
		return fmt.Errorf("callbacks.accept_url and callbacks.reject_url are required")
	}
	if err := checkHTTPURL(c.Callbacks.AcceptURL); err != nil {
		return fmt.Errorf("invalid callbacks.accept_url: %w", err)
	}
	if err := checkHTTPURL(c.Callbacks.RejectURL); err != nil {
		return fmt.Errorf("invalid callbacks.reject_url: %w", err)
	}

	switch c.Events.Mode {
	case EventsHTTP:
	case EventsSocket:
		if !strings.HasPrefix(c.Slack.AppToken, "xapp-") {
			return fmt.Errorf("events.mode socket requires slack.app_token starting with xapp-")
		}
	default:
		return fmt.Errorf("invalid events.mode %q: must be one of http, socket", c.Events.Mode)
	}

	for _, p := range c.Mirror.Channels {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid mirror.channels pattern %q", p)
		}
	}

	if c.Audit.Enabled {
		if c.Audit.Path == "" {
			return fmt.Errorf("audit.path is required when audit is enabled")
		}
		if c.Audit.Retention != "" {
			d, err := time.ParseDuration(c.Audit.Retention)
			if err != nil {
				return fmt.Errorf("invalid audit.retention %q: %w", c.Audit.Retention, err)
			}
			if d < 0 {
				return fmt.Errorf("audit.retention must be non-negative")
			}
		}
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != LogJSON && c.Log.Format != LogText {
		return fmt.Errorf("invalid log.format %q: must be one of json, text", c.Log.Format)
	}

	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
