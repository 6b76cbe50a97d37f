package config

import "time"

// EventsMode selects how Slack event pushes reach the relay.
type EventsMode string

const (
	EventsHTTP   EventsMode = "http"
	EventsSocket EventsMode = "socket"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogJSON LogFormat = "json"
	LogText LogFormat = "text"
)

// Config is the top-level relay configuration, corresponding to .formrelay.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Slack     SlackConfig     `yaml:"slack" koanf:"slack"`
	Channels  ChannelsConfig  `yaml:"channels" koanf:"channels"`
	Callbacks CallbacksConfig `yaml:"callbacks" koanf:"callbacks"`
	Events    EventsConfig    `yaml:"events" koanf:"events"`
	Mirror    MirrorConfig    `yaml:"mirror" koanf:"mirror"`
	Audit     AuditConfig     `yaml:"audit" koanf:"audit"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int      `yaml:"port" koanf:"port"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// SlackConfig holds credentials and client settings for the Slack Web API.
type SlackConfig struct {
	BotToken      string `yaml:"bot_token" koanf:"bot_token"`
	SigningSecret string `yaml:"signing_secret" koanf:"signing_secret"`
	AppToken      string `yaml:"app_token,omitempty" koanf:"app_token"` // xapp- token, socket mode only
	APIURL        string `yaml:"api_url,omitempty" koanf:"api_url"`
	Timeout       string `yaml:"timeout" koanf:"timeout"`
	Debug         bool   `yaml:"debug" koanf:"debug"`
}

// ChannelsConfig names the two channels the relay posts into.
type ChannelsConfig struct {
	Approval string `yaml:"approval" koanf:"approval"`
	Decision string `yaml:"decision" koanf:"decision"`
}

// CallbacksConfig holds the externally reachable URLs behind the
// accept and reject buttons. Tunnel URLs expire, so these usually
// change per deployment.
type CallbacksConfig struct {
	AcceptURL string `yaml:"accept_url" koanf:"accept_url"`
	RejectURL string `yaml:"reject_url" koanf:"reject_url"`
}

// EventsConfig selects the event transport.
type EventsConfig struct {
	Mode EventsMode `yaml:"mode" koanf:"mode"`
}

// MirrorConfig controls the message mirror.
type MirrorConfig struct {
	Enabled  bool     `yaml:"enabled" koanf:"enabled"`
	Channels []string `yaml:"channels" koanf:"channels"` // doublestar globs over channel ids
}

// AuditConfig controls the delivery audit trail.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled" koanf:"enabled"`
	Path          string `yaml:"path" koanf:"path"`
	Retention     string `yaml:"retention" koanf:"retention"`
	PruneSchedule string `yaml:"prune_schedule" koanf:"prune_schedule"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string    `yaml:"level" koanf:"level"`
	Format LogFormat `yaml:"format" koanf:"format"`
}

// SlackTimeout returns the parsed Slack client timeout, falling back to
// the default when unset or invalid.
func (c *Config) SlackTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Slack.Timeout); err == nil && d > 0 {
		return d
	}
	return defaultSlackTimeout
}

// AuditRetention returns how long delivery records are kept. Zero means
// records are never pruned.
func (c *Config) AuditRetention() time.Duration {
	d, err := time.ParseDuration(c.Audit.Retention)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
