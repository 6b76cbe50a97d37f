package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// EventsHandler serves the Slack Events API endpoint.
type EventsHandler struct {
	messages      MessageHandler
	signingSecret string
	logger        *slog.Logger
}

// NewEventsHandler creates an EventsHandler. messages may be nil, in which
// case events are acknowledged and dropped. An empty signingSecret turns
// off request verification.
func NewEventsHandler(messages MessageHandler, signingSecret string, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		messages:      messages,
		signingSecret: signingSecret,
		logger:        logger,
	}
}

// HandleEvent handles incoming Slack events (HTTP POST).
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if h.signingSecret != "" {
		if err := verifySignature(r.Header, body, h.signingSecret); err != nil {
			h.logger.Warn("rejected slack event", "error", err)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "invalid challenge", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"challenge": challenge.Challenge})

	case slackevents.CallbackEvent:
		if err := h.Dispatch(r.Context(), event); err != nil {
			h.logger.Error("handling slack event", "type", event.InnerEvent.Type, "error", err)
			http.Error(w, "processing error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

// Dispatch routes a callback event to its handler. Only message events
// are handled.
func (h *EventsHandler) Dispatch(ctx context.Context, event slackevents.EventsAPIEvent) error {
	if h.messages == nil || event.Type != slackevents.CallbackEvent {
		return nil
	}
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok || ev == nil {
		return nil
	}
	return h.messages.HandleMessage(ctx, MirrorEvent{
		Channel: ev.Channel,
		User:    ev.User,
		Text:    ev.Text,
	})
}

// verifySignature checks X-Slack-Signature against the body and rejects
// requests whose timestamp is more than five minutes off.
func verifySignature(header http.Header, body []byte, secret string) error {
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}
