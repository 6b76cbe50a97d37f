package config

import "time"

const (
	// DefaultPath is the config file used when --config is not given.
	DefaultPath = ".formrelay.yml"

	defaultSlackTimeout = 10 * time.Second
)

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 5000,
		},
		Slack: SlackConfig{
			Timeout: defaultSlackTimeout.String(),
		},
		Channels: ChannelsConfig{
			Approval: "#general",
			Decision: "#bots",
		},
		Events: EventsConfig{
			Mode: EventsHTTP,
		},
		Mirror: MirrorConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled:       true,
			Path:          "data/formrelay.db",
			Retention:     "720h",
			PruneSchedule: "@daily",
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogJSON,
		},
	}
}
