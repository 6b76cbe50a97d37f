package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/ziadkadry99/form-relay/internal/audit"
)

// Poster sends messages to Slack.
type Poster interface {
	Post(ctx context.Context, msg Message) (Receipt, error)
}

// IdentityResolver looks up the bot's own user id.
type IdentityResolver interface {
	BotUserID(ctx context.Context) (string, error)
}

// ClientOptions configures NewSlackClient.
type ClientOptions struct {
	BotToken string
	AppToken string // only needed for socket mode
	APIURL   string // overrides https://slack.com/api/
	Timeout  time.Duration
	Debug    bool
}

// NewSlackClient builds a slack-go client from opts.
func NewSlackClient(opts ClientOptions) *slack.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	options := []slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: timeout}),
		slack.OptionDebug(opts.Debug),
	}
	if opts.APIURL != "" {
		options = append(options, slack.OptionAPIURL(strings.TrimRight(opts.APIURL, "/")+"/"))
	}
	if opts.AppToken != "" {
		options = append(options, slack.OptionAppLevelToken(opts.AppToken))
	}
	return slack.New(opts.BotToken, options...)
}

// SlackPoster implements Poster and IdentityResolver over the Slack Web API.
type SlackPoster struct {
	client *slack.Client
}

// NewSlackPoster wraps client.
func NewSlackPoster(client *slack.Client) *SlackPoster {
	return &SlackPoster{client: client}
}

// Post calls chat.postMessage.
func (p *SlackPoster) Post(ctx context.Context, msg Message) (Receipt, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Attachments) > 0 {
		opts = append(opts, slack.MsgOptionAttachments(toSlackAttachments(msg.Attachments)...))
	}

	channel, ts, err := p.client.PostMessageContext(ctx, msg.Channel, opts...)
	if err != nil {
		return Receipt{}, fmt.Errorf("posting to %s: %w", msg.Channel, err)
	}
	return Receipt{Channel: channel, Timestamp: ts}, nil
}

// BotUserID calls auth.test and returns the authenticated user id.
func (p *SlackPoster) BotUserID(ctx context.Context) (string, error) {
	resp, err := p.client.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth.test: %w", err)
	}
	return resp.UserID, nil
}

func toSlackAttachments(in []Attachment) []slack.Attachment {
	out := make([]slack.Attachment, 0, len(in))
	for _, a := range in {
		att := slack.Attachment{
			Fallback:   a.Fallback,
			Text:       a.Text,
			CallbackID: a.CallbackID,
		}
		for _, act := range a.Actions {
			att.Actions = append(att.Actions, slack.AttachmentAction{
				Name:  act.Name,
				Text:  act.Text,
				Type:  slack.ActionType(act.Type),
				Value: act.Value,
				URL:   act.URL,
			})
		}
		out = append(out, att)
	}
	return out
}

// ResolveBotIdentity asks Slack who the bot is. Called once at startup.
func ResolveBotIdentity(ctx context.Context, r IdentityResolver) (string, error) {
	id, err := r.BotUserID(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving bot identity: %w", err)
	}
	if id == "" {
		return "", errors.New("resolving bot identity: auth.test returned an empty user id")
	}
	return id, nil
}

// IsRejected reports whether err means Slack answered but refused the
// post, as opposed to the call not completing.
func IsRejected(err error) bool {
	if err == nil {
		return false
	}
	var apiErr slack.SlackErrorResponse
	if errors.As(err, &apiErr) {
		return true
	}
	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		return true
	}
	var rateErr *slack.RateLimitedError
	return errors.As(err, &rateErr)
}

// DeliveryLog records the outcome of each post.
type DeliveryLog interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// AuditedPoster records every post it forwards in a DeliveryLog.
type AuditedPoster struct {
	next   Poster
	log    DeliveryLog
	logger *slog.Logger
}

// NewAuditedPoster wraps next.
func NewAuditedPoster(next Poster, log DeliveryLog, logger *slog.Logger) *AuditedPoster {
	return &AuditedPoster{next: next, log: log, logger: logger}
}

// Post forwards msg and records the outcome. Audit failures are logged,
// never returned.
func (p *AuditedPoster) Post(ctx context.Context, msg Message) (Receipt, error) {
	receipt, err := p.next.Post(ctx, msg)

	entry := audit.Entry{
		Kind:      msg.Kind,
		Channel:   msg.Channel,
		Actor:     msg.Actor,
		Outcome:   outcomeOf(err),
		MessageTS: receipt.Timestamp,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	// The request may already be cancelled; the record should still land.
	if logErr := p.log.Log(context.WithoutCancel(ctx), entry); logErr != nil {
		p.logger.Error("recording delivery", "kind", msg.Kind, "channel", msg.Channel, "error", logErr)
	}

	return receipt, err
}

func outcomeOf(err error) audit.Outcome {
	switch {
	case err == nil:
		return audit.OutcomeDelivered
	case IsRejected(err):
		return audit.OutcomeRejected
	default:
		return audit.OutcomeFailed
	}
}
