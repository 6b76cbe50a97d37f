package config

import (
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Slack.BotToken = "xoxb-test"
	cfg.Callbacks.AcceptURL = "https://relay.example.com/accept-action"
	cfg.Callbacks.RejectURL = "https://relay.example.com/reject-action"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Channels.Approval != "#general" {
		t.Errorf("expected default approval channel %q, got %q", "#general", cfg.Channels.Approval)
	}
	if cfg.Channels.Decision != "#bots" {
		t.Errorf("expected default decision channel %q, got %q", "#bots", cfg.Channels.Decision)
	}
	if cfg.Events.Mode != EventsHTTP {
		t.Errorf("expected default events mode %q, got %q", EventsHTTP, cfg.Events.Mode)
	}
	if !cfg.Mirror.Enabled {
		t.Error("expected mirror to be enabled by default")
	}
	if cfg.SlackTimeout() != 10*time.Second {
		t.Errorf("expected default slack timeout 10s, got %s", cfg.SlackTimeout())
	}
	if cfg.AuditRetention() != 720*time.Hour {
		t.Errorf("expected default retention 720h, got %s", cfg.AuditRetention())
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "")
	t.Setenv("SIGNING", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "test.formrelay.yml")

	saved := validConfig()
	saved.Slack.SigningSecret = "shh"
	saved.Channels.Approval = "#forms"
	saved.Channels.Decision = "C0DECISION"
	saved.Mirror.Channels = []string{"C0*", "G123"}
	saved.Server.Port = 8088

	if err := saved.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Slack.BotToken != saved.Slack.BotToken {
		t.Errorf("bot_token: got %q, want %q", loaded.Slack.BotToken, saved.Slack.BotToken)
	}
	if loaded.Slack.SigningSecret != "shh" {
		t.Errorf("signing_secret: got %q, want %q", loaded.Slack.SigningSecret, "shh")
	}
	if loaded.Channels != saved.Channels {
		t.Errorf("channels: got %+v, want %+v", loaded.Channels, saved.Channels)
	}
	if loaded.Callbacks != saved.Callbacks {
		t.Errorf("callbacks: got %+v, want %+v", loaded.Callbacks, saved.Callbacks)
	}
	if loaded.Server.Port != 8088 {
		t.Errorf("port: got %d, want 8088", loaded.Server.Port)
	}
	if len(loaded.Mirror.Channels) != len(saved.Mirror.Channels) {
		t.Fatalf("mirror.channels length: got %d, want %d", len(loaded.Mirror.Channels), len(saved.Mirror.Channels))
	}
	for i, v := range loaded.Mirror.Channels {
		if v != saved.Mirror.Channels[i] {
			t.Errorf("mirror.channels[%d]: got %q, want %q", i, v, saved.Mirror.Channels[i])
		}
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Channels.Approval != "#general" {
		t.Errorf("expected default approval channel, got %q", cfg.Channels.Approval)
	}
	if cfg.Slack.BotToken != "" {
		t.Errorf("expected empty bot token, got %q", cfg.Slack.BotToken)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	if err := validConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("FORMRELAY_CHANNELS__DECISION", "#decisions")
	t.Setenv("FORMRELAY_SLACK__BOT_TOKEN", "xoxb-from-env")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Channels.Decision != "#decisions" {
		t.Errorf("env override failed: got %q, want %q", loaded.Channels.Decision, "#decisions")
	}
	if loaded.Slack.BotToken != "xoxb-from-env" {
		t.Errorf("env override failed: got %q, want %q", loaded.Slack.BotToken, "xoxb-from-env")
	}
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "xoxb-legacy")
	t.Setenv("SIGNING", "legacy-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Slack.BotToken != "xoxb-legacy" {
		t.Errorf("bot_token: got %q, want %q", cfg.Slack.BotToken, "xoxb-legacy")
	}
	if cfg.Slack.SigningSecret != "legacy-secret" {
		t.Errorf("signing_secret: got %q, want %q", cfg.Slack.SigningSecret, "legacy-secret")
	}
}

func TestLegacyEnvDoesNotOverrideExplicit(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "xoxb-legacy")
	t.Setenv("FORMRELAY_SLACK__BOT_TOKEN", "xoxb-explicit")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Slack.BotToken != "xoxb-explicit" {
		t.Errorf("bot_token: got %q, want %q", cfg.Slack.BotToken, "xoxb-explicit")
	}
}

func TestValidateValid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("validConfig should be valid, got: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Slack.BotToken = "" }},
		{"empty approval channel", func(c *Config) { c.Channels.Approval = " " }},
		{"empty decision channel", func(c *Config) { c.Channels.Decision = "" }},
		{"missing accept url", func(c *Config) { c.Callbacks.AcceptURL = "" }},
		{"relative reject url", func(c *Config) { c.Callbacks.RejectURL = "/reject-action" }},
		{"non-http accept url", func(c *Config) { c.Callbacks.AcceptURL = "ftp://example.com/accept" }},
		{"unknown events mode", func(c *Config) { c.Events.Mode = "webhook" }},
		{"socket without app token", func(c *Config) { c.Events.Mode = EventsSocket }},
		{"bad mirror glob", func(c *Config) { c.Mirror.Channels = []string{"C[0"} }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad timeout", func(c *Config) { c.Slack.Timeout = "soon" }},
		{"negative retention", func(c *Config) { c.Audit.Retention = "-1h" }},
		{"audit without path", func(c *Config) { c.Audit.Path = "" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		cfg := validConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestValidateSocketMode(t *testing.T) {
	cfg := validConfig()
	cfg.Events.Mode = EventsSocket
	cfg.Slack.AppToken = "xapp-1-abc"
	if err := cfg.Validate(); err != nil {
		t.Errorf("socket mode with app token should be valid, got: %v", err)
	}
}

func TestAuditRetentionInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Retention = ""
	if got := cfg.AuditRetention(); got != 0 {
		t.Errorf("AuditRetention() = %s, want 0", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"C0*", []string{"C0*"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
