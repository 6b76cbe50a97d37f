package relay

import (
	"context"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// acker acknowledges Socket Mode envelopes.
type acker interface {
	Ack(req socketmode.Request, payload ...any)
}

// SocketListener receives events and interactions over Slack Socket Mode
// and feeds them to the same handlers as the HTTP endpoints.
type SocketListener struct {
	client       *socketmode.Client
	ack          acker
	events       *EventsHandler
	interactions *Interactions
	logger       *slog.Logger
}

// NewSocketListener creates a listener on api, which must carry an
// app-level token.
func NewSocketListener(api *slack.Client, events *EventsHandler, interactions *Interactions, debug bool, logger *slog.Logger) *SocketListener {
	client := socketmode.New(api, socketmode.OptionDebug(debug))
	return &SocketListener{
		client:       client,
		ack:          client,
		events:       events,
		interactions: interactions,
		logger:       logger,
	}
}

// Run connects and processes events until ctx is cancelled.
func (l *SocketListener) Run(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-l.client.Events:
				if !ok {
					return
				}
				l.handle(ctx, evt)
			}
		}
	}()
	return l.client.RunContext(ctx)
}

func (l *SocketListener) handle(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.logger.Info("connecting to slack socket mode")

	case socketmode.EventTypeConnected:
		l.logger.Info("connected to slack socket mode")

	case socketmode.EventTypeConnectionError:
		l.logger.Warn("slack socket mode connection error", "data", evt.Data)

	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			l.ack.Ack(*evt.Request)
		}
		if err := l.events.Dispatch(ctx, apiEvent); err != nil {
			l.logger.Error("handling slack event", "type", apiEvent.InnerEvent.Type, "error", err)
		}

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			return
		}
		if evt.Request != nil {
			l.ack.Ack(*evt.Request)
		}
		user, action, ok := callbackDecision(callback)
		if !ok {
			return
		}
		l.interactions.Decide(ctx, user, action)
	}
}

// callbackDecision pulls the user name and first action value out of an
// interaction callback, covering both attachment buttons and block
// actions.
func callbackDecision(cb slack.InteractionCallback) (user, action string, ok bool) {
	user = cb.User.Name
	if user == "" {
		return "", "", false
	}
	switch {
	case len(cb.ActionCallback.AttachmentActions) > 0:
		return user, cb.ActionCallback.AttachmentActions[0].Value, true
	case len(cb.ActionCallback.BlockActions) > 0:
		return user, cb.ActionCallback.BlockActions[0].Value, true
	}
	return "", "", false
}
