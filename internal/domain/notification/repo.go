package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	// Exists reports whether userID already has a notification of the given
	// type referencing targetID. The reminder sweep keys its idempotence
	// guard on this.
	Exists(ctx context.Context, userID uuid.UUID, notifType string, targetID uuid.UUID) (bool, error)
}
