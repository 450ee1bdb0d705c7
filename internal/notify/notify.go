// Package notify keeps per-user notifications about proposals, votes and
// delegations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"governance-analytics/internal/address"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("notification not found")

type Kind string

const (
	KindProposal   Kind = "proposal"
	KindVote       Kind = "vote"
	KindDelegation Kind = "delegation"
	KindExecution  Kind = "execution"
	KindSystem     Kind = "system"
)

type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Kind       Kind      `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	Timestamp  time.Time `json:"timestamp"`
	Link       string    `json:"link,omitempty"`
	ProposalID uint64    `json:"proposalId,omitempty"`
}

type ListOptions struct {
	Limit      int
	Kinds      []Kind
	UnreadOnly bool
}

type Store interface {
	InsertNotification(ctx context.Context, n Notification) error
	// ListNotifications returns a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)
	// MarkNotificationRead returns ErrNotFound for unknown ids.
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
}

// Service keys notifications by address.Key of the user id, so a wallet
// address matches whatever its letter case.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Create stores a new unread notification and returns its id.
func (s *Service) Create(ctx context.Context, n Notification) (string, error) {
	n.UserID = address.Key(n.UserID)
	if n.UserID == "" {
		return "", errors.New("notification without user")
	}
	n.ID = uuid.NewString()
	n.Read = false
	n.Timestamp = s.now()
	if err := s.store.InsertNotification(ctx, n); err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	s.logger.Debug("Notification created", zap.String("id", n.ID), zap.String("user", n.UserID))
	return n.ID, nil
}

func (s *Service) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	return s.store.ListNotifications(ctx, address.Key(userID), opts)
}

func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.store.MarkNotificationRead(ctx, id)
}

// MarkAllRead marks every unread notification of a user and returns how
// many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	userID = address.Key(userID)
	n, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("Marked notifications as read", zap.String("user", userID), zap.Int("count", n))
	return n, nil
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnreadNotifications(ctx, address.Key(userID))
}
