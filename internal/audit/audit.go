package audit

import "time"

// Kind identifies which flow produced a delivery.
type Kind string

const (
	KindNotification Kind = "notification" // form submission posted to the approval channel
	KindDecision     Kind = "decision"     // accept/reject outcome posted to the decision channel
	KindMirror       Kind = "mirror"       // message re-posted by the mirror
)

// Outcome describes what Slack did with a post.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRejected  Outcome = "rejected" // Slack answered but refused the post
	OutcomeFailed    Outcome = "failed"   // the call did not complete
)

// Entry is a single delivery record. It never carries message content.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Channel   string    `json:"channel"`
	Actor     string    `json:"actor,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	MessageTS string    `json:"message_ts,omitempty"`
}
