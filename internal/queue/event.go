// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// Actions carried by NoteActivityEvent.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// NoteActivityEvent is published when a note is created or deleted. It
// carries enough information for downstream consumers to log or trigger
// analytics without querying the primary database. Username is empty for
// anonymous activity.
type NoteActivityEvent struct {
	Action     string `json:"action"`
	PublicID   string `json:"public_id"`
	Username   string `json:"username,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
