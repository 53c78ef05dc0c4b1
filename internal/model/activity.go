package model

import "time"

// ActivityKind names a recorded application transition.
type ActivityKind string

const (
	ActivityCreated         ActivityKind = "APPLICATION_CREATED"
	ActivityStatusChanged   ActivityKind = "STATUS_CHANGED"
	ActivityPriorityChanged ActivityKind = "PRIORITY_CHANGED"
	ActivityPaymentUploaded ActivityKind = "PAYMENT_UPLOADED"
	ActivityPaymentVerified ActivityKind = "PAYMENT_VERIFIED"
	ActivityPaymentRemoved  ActivityKind = "PAYMENT_REMOVED"
)

// Activity is one entry of an application's audit trail.
type Activity struct {
	ID            int64        `json:"id"`
	ApplicationID string       `json:"applicationId"`
	ActorID       int          `json:"actorId"`
	ActorRole     Role         `json:"actorRole"`
	Kind          ActivityKind `json:"kind"`
	From          string       `json:"from,omitempty"`
	To            string       `json:"to,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}
