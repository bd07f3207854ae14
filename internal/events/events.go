// Package events publishes image lifecycle notifications to a durable queue.
// Publishing is best-effort from the caller's point of view: the access
// service logs failures and never fails an operation over them.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeUploaded = "image.uploaded"
	TypeDeleted  = "image.deleted"
)

type Event struct {
	Type       string    `json:"type"`
	ImageID    uuid.UUID `json:"image_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	SizeBytes  int64     `json:"size_bytes"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is the publishing capability the access service depends on.
type Sink interface {
	Publish(ev Event) error
}
