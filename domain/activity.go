package domain

import "time"

type ActivityAction string

const (
	ActionCreated   ActivityAction = "created"
	ActionUpdated   ActivityAction = "updated"
	ActionCancelled ActivityAction = "cancelled"
	ActionDeleted   ActivityAction = "deleted"
)

// ActivityEvent is one entry of a subscription's append-only lifecycle log.
type ActivityEvent struct {
	SubscriptionID string            `json:"subscription_id"`
	EventID        string            `json:"event_id"`
	UserID         string            `json:"user_id"`
	Action         ActivityAction    `json:"action"`
	CreatedAt      time.Time         `json:"created_at"`
	Details        map[string]string `json:"details,omitempty"`
}
