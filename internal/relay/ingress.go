package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ziadkadry99/form-relay/internal/audit"
)

// IngressConfig holds where form submissions go and what the buttons open.
type IngressConfig struct {
	Channel   string
	AcceptURL string
	RejectURL string
}

// BuildNotification renders a form payload into the approval message.
// Object key order from the payload is preserved; see renderPayload for
// the canonical form of strings and numbers.
func BuildNotification(payload []byte, cfg IngressConfig) (Message, error) {
	payload = bytes.TrimSpace(payload)
	if !json.Valid(payload) {
		return Message{}, fmt.Errorf("%w: body is not JSON", ErrInvalidPayload)
	}

	pretty, err := renderPayload(payload)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return Message{
		Channel: cfg.Channel,
		Text:    NotificationHeader,
		Attachments: []Attachment{{
			Fallback:   NotificationFallback,
			Text:       "```" + pretty + "```",
			CallbackID: DecisionCallbackID,
			Actions: []Action{
				{Name: ActionAccept, Text: "Accept", Type: "button", Value: ActionAccept, URL: cfg.AcceptURL},
				{Name: ActionReject, Text: "Reject", Type: "button", Value: ActionReject, URL: cfg.RejectURL},
			},
		}},
		Kind: audit.KindNotification,
	}, nil
}

// Ingress accepts form submissions and posts them for approval.
type Ingress struct {
	poster Poster
	cfg    IngressConfig
	logger *slog.Logger
}

// NewIngress creates an Ingress posting through poster.
func NewIngress(poster Poster, cfg IngressConfig, logger *slog.Logger) *Ingress {
	return &Ingress{poster: poster, cfg: cfg, logger: logger}
}

// ReceiveForm posts one approval message for payload. It returns an error
// when the payload is not JSON or the post could not be made; a post
// Slack refuses is only logged.
func (h *Ingress) ReceiveForm(ctx context.Context, payload []byte) error {
	msg, err := BuildNotification(payload, h.cfg)
	if err != nil {
		return err
	}

	receipt, err := h.poster.Post(ctx, msg)
	switch {
	case err == nil:
		h.logger.Info("form submission forwarded", "channel", receipt.Channel, "ts", receipt.Timestamp)
	case IsRejected(err):
		h.logger.Warn("slack refused form submission", "channel", msg.Channel, "error", err)
	default:
		return err
	}
	return nil
}

// HandleReceive serves POST /receive-messages.
func (h *Ingress) HandleReceive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		h.logger.Debug("received form submission", "bytes", len(body))
		err = h.ReceiveForm(r.Context(), body)
	}
	if err != nil {
		h.logger.Error("processing form submission", "error", err)
		writeText(w, http.StatusInternalServerError, ReceiveErrorBody)
		return
	}
	writeText(w, http.StatusOK, ReceivedBody)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
