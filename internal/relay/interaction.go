package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/ziadkadry99/form-relay/internal/audit"
)

// DecisionText is the line posted to the decision channel.
func DecisionText(user, action string) string {
	switch action {
	case ActionAccept:
		return user + " accepts"
	case ActionReject:
		return user + " rejects"
	default:
		return UnknownActionText
	}
}

// ParseInteraction extracts the acting user's name and the first action
// value. body is either the JSON payload itself or, when contentType is
// application/x-www-form-urlencoded, a form whose payload field holds it.
// Both keys must be present; an empty name is accepted.
func ParseInteraction(contentType string, body []byte) (user, action string, err error) {
	raw := body
	if mt, _, _ := mime.ParseMediaType(contentType); mt == "application/x-www-form-urlencoded" {
		values, qerr := url.ParseQuery(string(body))
		if qerr != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidPayload, qerr)
		}
		raw = []byte(values.Get("payload"))
	}

	var p InteractionPayload
	if jerr := json.Unmarshal(raw, &p); jerr != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidPayload, jerr)
	}
	if p.User.Name == nil {
		return "", "", fmt.Errorf("%w: missing user name", ErrInvalidPayload)
	}
	if len(p.Actions) == 0 {
		return "", "", fmt.Errorf("%w: no actions", ErrInvalidPayload)
	}
	if p.Actions[0].Value == nil {
		return "", "", fmt.Errorf("%w: action has no value", ErrInvalidPayload)
	}
	return *p.User.Name, *p.Actions[0].Value, nil
}

// Interactions posts accept/reject decisions to the decision channel.
type Interactions struct {
	poster  Poster
	channel string
	logger  *slog.Logger
}

// NewInteractions creates an Interactions posting to channel.
func NewInteractions(poster Poster, channel string, logger *slog.Logger) *Interactions {
	return &Interactions{poster: poster, channel: channel, logger: logger}
}

// Decide posts the decision for user and action and returns the posted
// text. Delivery failures are logged, not returned.
func (h *Interactions) Decide(ctx context.Context, user, action string) string {
	text := DecisionText(user, action)

	receipt, err := h.poster.Post(ctx, Message{
		Channel: h.channel,
		Text:    text,
		Kind:    audit.KindDecision,
		Actor:   user,
	})
	switch {
	case err == nil:
		h.logger.Info("decision posted", "channel", receipt.Channel, "user", user, "action", action)
	case IsRejected(err):
		h.logger.Warn("slack refused decision", "channel", h.channel, "user", user, "error", err)
	default:
		h.logger.Error("posting decision", "channel", h.channel, "user", user, "error", err)
	}
	return text
}

// HandleInteraction serves POST /slack-interaction.
func (h *Interactions) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var user, action string
	if err == nil {
		user, action, err = ParseInteraction(r.Header.Get("Content-Type"), body)
	}
	if err != nil {
		h.logger.Error("processing interaction", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": InteractionErrorBody})
		return
	}

	h.Decide(r.Context(), user, action)
	writeJSON(w, http.StatusOK, map[string]string{"message": InteractionOKBody})
}
