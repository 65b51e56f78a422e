package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/fault"
)

var validRoles = map[string]bool{
	auth.RoleAdmin: true, auth.RoleDoctor: true, auth.RolePatient: true,
}

// Service owns registration, login and directory queries.
type Service struct {
	repo   Repository
	tokens *auth.TokenManager
}

func NewService(repo Repository, tokens *auth.TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Register creates a user account. Self-registration is restricted to the
// patient and doctor roles; admins are provisioned out of band.
func (s *Service) Register(ctx context.Context, name, email, password, role string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, fault.Validationf("name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fault.Validationf("a valid email is required")
	}
	if len(password) < 8 {
		return nil, fault.Validationf("password must be at least 8 characters")
	}
	if !validRoles[role] || role == auth.RoleAdmin {
		return nil, fault.Validationf("role must be %q or %q", auth.RoleDoctor, auth.RolePatient)
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fault.Dependencyf(err, "looking up email")
	}
	if existing != nil {
		return nil, fault.Conflictf("email %s is already registered", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fault.Dependencyf(err, "hashing password")
	}

	u := &User{Name: name, Email: email, PasswordHash: string(hash), Role: role}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fault.Dependencyf(err, "creating user")
	}
	return u, nil
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string, now time.Time) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fault.Dependencyf(err, "looking up email")
	}
	if u == nil {
		return "", nil, fault.Forbiddenf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, fault.Forbiddenf("invalid credentials")
	}

	token, err := s.tokens.Issue(u.ID.String(), u.Name, u.Role, now)
	if err != nil {
		return "", nil, fault.Dependencyf(err, "issuing token")
	}
	return token, u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Dependencyf(err, "loading user")
	}
	if u == nil {
		return nil, fault.NotFoundf("user %s not found", id)
	}
	return u, nil
}

// ListDoctors returns the doctor directory.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.ListByRole(ctx, auth.RoleDoctor, limit, offset)
}

// ListPatients returns the patient directory.
func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.ListByRole(ctx, auth.RolePatient, limit, offset)
}

// Admins returns every admin user, used for notification fan-out.
func (s *Service) Admins(ctx context.Context) ([]*User, error) {
	admins, _, err := s.repo.ListByRole(ctx, auth.RoleAdmin, 1000, 0)
	return admins, err
}

// AdminIDs returns the id of every admin account.
func (s *Service) AdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	admins, err := s.Admins(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(admins))
	for i, a := range admins {
		ids[i] = a.ID
	}
	return ids, nil
}

// Contact resolves a user to the name and email used in outbound mail.
func (s *Service) Contact(ctx context.Context, id uuid.UUID) (string, string, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	return u.Name, u.Email, nil
}

// UserCounts returns directory totals for the admin dashboard.
func (s *Service) UserCounts(ctx context.Context) (Counts, error) {
	return s.repo.Counts(ctx)
}
