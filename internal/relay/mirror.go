package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/form-relay/internal/audit"
)

// MessageHandler processes message events.
type MessageHandler interface {
	HandleMessage(ctx context.Context, ev MirrorEvent) error
}

// Mirror re-posts every message not written by the bot itself to the
// channel it came from.
type Mirror struct {
	poster   Poster
	botID    string
	channels []string
	logger   *slog.Logger
}

// NewMirror creates a Mirror. botID is the bot's own user id; messages from
// it are ignored. channels optionally restricts mirroring to channel ids
// matching at least one doublestar pattern.
func NewMirror(poster Poster, botID string, channels []string, logger *slog.Logger) *Mirror {
	return &Mirror{poster: poster, botID: botID, channels: channels, logger: logger}
}

// HandleMessage mirrors ev. Post failures are returned.
func (m *Mirror) HandleMessage(ctx context.Context, ev MirrorEvent) error {
	if ev.User == m.botID {
		return nil
	}
	if ev.Channel == "" || ev.Text == "" {
		m.logger.Debug("skipping message without channel or text", "channel", ev.Channel, "user", ev.User)
		return nil
	}
	if !m.watches(ev.Channel) {
		return nil
	}

	receipt, err := m.poster.Post(ctx, Message{
		Channel: ev.Channel,
		Text:    ev.Text,
		Kind:    audit.KindMirror,
		Actor:   ev.User,
	})
	if err != nil {
		return fmt.Errorf("mirroring message in %s: %w", ev.Channel, err)
	}
	m.logger.Debug("message mirrored", "channel", receipt.Channel, "ts", receipt.Timestamp)
	return nil
}

func (m *Mirror) watches(channel string) bool {
	if len(m.channels) == 0 {
		return true
	}
	for _, pattern := range m.channels {
		if ok, _ := doublestar.Match(pattern, channel); ok {
			return true
		}
	}
	return false
}
