package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a persisted message for one recipient. TargetID points at
// the entity the message is about, an appointment in most cases.
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	TargetID  uuid.UUID `db:"target_id" json:"target_id"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
