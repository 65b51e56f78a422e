package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/fault"
)

// Pusher delivers an event to a connected user's sessions. The websocket
// hub satisfies this; pushes to offline users are silent no-ops.
type Pusher interface {
	Push(userID, eventName string, payload any)
	IsOnline(userID string) bool
}

// AdminSource lists the ids of every admin account, for fan-out.
type AdminSource interface {
	AdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// EventNotification is the websocket event name for a pushed notification.
const EventNotification = "notification"

// Service persists notifications and mirrors them onto live sessions.
// Persist first, push second: a pushed event always has a backing record,
// but a record may never be pushed if the recipient is offline.
type Service struct {
	repo   Repository
	pusher Pusher
	admins AdminSource
	logger zerolog.Logger
}

func NewService(repo Repository, pusher Pusher, admins AdminSource, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		pusher: pusher,
		admins: admins,
		logger: logger.With().Str("service", "notification").Logger(),
	}
}

// Notify records a notification for userID and pushes it if they are
// connected. Failures are logged and swallowed: notifying is always a
// secondary effect and must never fail the mutation that triggered it.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, message, notifType string, targetID uuid.UUID) {
	n := &Notification{UserID: userID, Message: message, Type: notifType, TargetID: targetID}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error().Err(err).Stringer("user_id", userID).Msg("persisting notification failed")
		return
	}
	s.pusher.Push(userID.String(), EventNotification, n)
}

// NotifyAdmins fans the message out to every admin. Each recipient is
// handled independently; one failure does not stop the rest.
func (s *Service) NotifyAdmins(ctx context.Context, message, notifType string, targetID uuid.UUID) {
	ids, err := s.admins.AdminIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing admins for fan-out failed")
		return
	}
	for _, id := range ids {
		s.Notify(ctx, id, message, notifType, targetID)
	}
}

// ReminderExists reports whether a reminder for targetID was already
// recorded for userID.
func (s *Service) ReminderExists(ctx context.Context, userID uuid.UUID, reminderType string, targetID uuid.UUID) (bool, error) {
	exists, err := s.repo.Exists(ctx, userID, reminderType, targetID)
	if err != nil {
		return false, fault.Dependencyf(err, "checking reminder notification")
	}
	return exists, nil
}

// ListPage is one page of a user's notifications plus their unread count.
type ListPage struct {
	Notifications []*Notification `json:"notifications"`
	Total         int             `json:"total"`
	Unread        int             `json:"unread"`
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) (*ListPage, error) {
	items, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fault.Dependencyf(err, "listing notifications")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, fault.Dependencyf(err, "counting unread notifications")
	}
	if items == nil {
		items = []*Notification{}
	}
	return &ListPage{Notifications: items, Total: total, Unread: unread}, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return fault.Dependencyf(err, "marking notifications read")
	}
	return nil
}
