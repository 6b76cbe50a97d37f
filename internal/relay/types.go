// Package relay forwards form submissions to Slack, relays accept/reject
// decisions, and mirrors channel messages.
package relay

import (
	"errors"

	"github.com/ziadkadry99/form-relay/internal/audit"
)

// Fixed strings shown in Slack.
const (
	NotificationHeader   = "*Here's the message content and form responses:*"
	NotificationFallback = "You are unable to accept or reject the message"
	DecisionCallbackID   = "accept_or_reject_message"

	ActionAccept = "accept"
	ActionReject = "reject"

	UnknownActionText = "Unknown action"
)

// HTTP response bodies.
const (
	ReceivedBody         = "Message received successfully"
	ReceiveErrorBody     = "Error processing the message"
	InteractionOKBody    = "Interaction handled successfully"
	InteractionErrorBody = "Error processing the interaction"
)

// maxBodyBytes bounds every inbound request body.
const maxBodyBytes = 1 << 20

// ErrInvalidPayload marks inbound bodies that cannot be parsed.
var ErrInvalidPayload = errors.New("invalid payload")

// Message is one outbound post.
type Message struct {
	Channel     string
	Text        string
	Attachments []Attachment

	// Kind and Actor describe the post for the delivery audit; they are
	// not sent to Slack.
	Kind  audit.Kind
	Actor string
}

// Attachment is a legacy Slack message attachment.
type Attachment struct {
	Fallback   string
	Text       string
	CallbackID string
	Actions    []Action
}

// Action is a button on an Attachment.
type Action struct {
	Name  string
	Text  string
	Type  string
	Value string
	URL   string
}

// Receipt identifies a delivered post.
type Receipt struct {
	Channel   string
	Timestamp string
}

// MirrorEvent is a message observed in a channel the bot is in.
type MirrorEvent struct {
	Channel string
	User    string
	Text    string
}

// InteractionPayload is the body of a button click callback. Name and
// Value are pointers so an absent key can be told apart from an empty one.
type InteractionPayload struct {
	User struct {
		ID   string  `json:"id"`
		Name *string `json:"name"`
	} `json:"user"`
	Actions []struct {
		Name  string  `json:"name"`
		Value *string `json:"value"`
	} `json:"actions"`
}
