package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
	Counts(ctx context.Context) (Counts, error)
}
