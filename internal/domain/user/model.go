package user

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Verified     bool      `db:"verified" json:"verified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Counts summarizes the user directory for the admin dashboard.
type Counts struct {
	Total    int `json:"total_users"`
	Verified int `json:"verified_users"`
	Doctors  int `json:"total_doctors"`
	Patients int `json:"total_patients"`
}
