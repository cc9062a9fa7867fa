// Package notify implements push-notification eligibility and the sweep
// orchestrator that turns due cards into pending sprints and batched
// push sends.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// PushMessage is one outbound push notification.
type PushMessage struct {
	// To is the recipient's push token.
	To string `json:"to"`

	Title string `json:"title"`
	Body  string `json:"body"`

	// Data rides along for the client to deep-link into the sprint.
	Data map[string]string `json:"data,omitempty"`
}

// PushResult is the provider's per-message outcome. Results come back in
// the same order as the submitted messages.
type PushResult struct {
	// ID is the provider's receipt ticket, set on accepted messages.
	ID string

	// OK reports whether the provider accepted the message.
	OK bool

	// DeviceNotRegistered reports the one rejection that is permanent:
	// the token is dead and must be cleared so the user drops out of
	// future sweeps.
	DeviceNotRegistered bool

	// Message carries the provider's error detail on rejection.
	Message string
}

// ReceiptResult is the delivery outcome for a previously accepted
// message, fetched asynchronously by ticket ID.
type ReceiptResult struct {
	ID                  string
	OK                  bool
	DeviceNotRegistered bool
	Message             string
}

// PushSender delivers batches of push notifications. Implementations
// must return one PushResult per message, in order, even on partial
// failure.
type PushSender interface {
	// SendBatch submits the messages in one provider call.
	SendBatch(ctx context.Context, messages []PushMessage) ([]PushResult, error)

	// CheckReceipts fetches delivery receipts for previously accepted
	// ticket IDs. Missing receipts are omitted from the result.
	CheckReceipts(ctx context.Context, ids []string) (map[string]ReceiptResult, error)
}

// Candidate pairs a user with the sprint created for them during a
// sweep, carried between the create and reconcile phases.
type Candidate struct {
	UserID   uuid.UUID
	SprintID uuid.UUID
	TicketID string
}
