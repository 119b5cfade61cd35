package notification

import (
	"time"

	"github.com/oklog/ulid/v2"

	id "trustcore/pkg/domain"
)

// Kind names a user-facing event.
type Kind string

const (
	KindEmailConfirmed      Kind = "email_confirmed"
	KindDocumentApproved    Kind = "document_approved"
	KindDocumentRejected    Kind = "document_rejected"
	KindTrustScoreIncreased Kind = "trust_score_increased"
	KindAccountSuspended    Kind = "account_suspended"
	KindAccountActivated    Kind = "account_activated"
)

func (k Kind) String() string {
	return string(k)
}

// Event is a notification queued for delivery.
type Event struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Kind       Kind              `json:"kind"`
	Payload    map[string]string `json:"payload,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func newEvent(userID id.UserID, kind Kind, payload map[string]string, now time.Time) Event {
	var copied map[string]string
	if len(payload) > 0 {
		copied = make(map[string]string, len(payload))
		for k, v := range payload {
			copied[k] = v
		}
	}
	return Event{
		ID:         ulid.Make().String(),
		UserID:     userID.String(),
		Kind:       kind,
		Payload:    copied,
		OccurredAt: now,
	}
}
