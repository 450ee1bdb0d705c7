// Package activity records governance actions into a feed and keeps the
// per-user statistics the leaderboard is built from.
package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"governance-analytics/internal/address"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a user has no recorded activity.
var ErrNotFound = errors.New("not found")

type Type string

const (
	VoteCast         Type = "vote_cast"
	ProposalCreated  Type = "proposal_created"
	ProposalExecuted Type = "proposal_executed"
	Delegation       Type = "delegation"
	TokensClaimed    Type = "tokens_claimed"
	CommentAdded     Type = "comment_added"
)

const (
	DefaultFeedLimit        = 20
	DefaultLeaderboardLimit = 10
	maxLimit                = 200
)

// Points awarded per activity type.
func Points(t Type) int {
	switch t {
	case ProposalCreated:
		return 100
	case VoteCast:
		return 20
	case ProposalExecuted:
		return 50
	case Delegation:
		return 30
	case TokensClaimed:
		return 10
	case CommentAdded:
		return 5
	default:
		return 1
	}
}

var levelThresholds = []int{100, 300, 700, 1500, 3000}

// Level maps accumulated points to a user level from 1 to 6.
func Level(points int) int {
	for i, th := range levelThresholds {
		if points < th {
			return i + 1
		}
	}
	return len(levelThresholds) + 1
}

type Activity struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	UserAddress   string    `json:"userAddress"`
	UserName      string    `json:"userName,omitempty"`
	ProposalID    uint64    `json:"proposalId,omitempty"`
	ProposalTitle string    `json:"proposalTitle,omitempty"`
	TargetAddress string    `json:"targetAddress,omitempty"`
	Description   string    `json:"description"`
	Value         float64   `json:"value,omitempty"`
	Points        int       `json:"points"`
	Timestamp     time.Time `json:"timestamp"`
}

type UserStats struct {
	Address          string    `json:"address"`
	DisplayName      string    `json:"displayName,omitempty"`
	TotalVotes       int       `json:"totalVotes"`
	ProposalsCreated int       `json:"proposalsCreated"`
	ProposalsVoted   int       `json:"proposalsVoted"`
	LastActive       time.Time `json:"lastActive"`
	Level            int       `json:"level"`
	Points           int       `json:"points"`
}

// Ranked is a leaderboard row.
type Ranked struct {
	UserStats
	Rank int `json:"rank"`
}

// FeedQuery filters the activity feed. Zero values mean no filter.
type FeedQuery struct {
	Limit       int
	UserAddress string
	Types       []Type
}

// Store persists activities and user statistics.
type Store interface {
	InsertActivity(ctx context.Context, a Activity) error
	// ListActivities returns matching activities, newest first.
	ListActivities(ctx context.Context, q FeedQuery) ([]Activity, error)
	// GetUserStats returns nil, nil for unknown users. key is address.Key.
	GetUserStats(ctx context.Context, key string) (*UserStats, error)
	SaveUserStats(ctx context.Context, s UserStats) error
	// TopUsers returns users ordered by points, highest first.
	TopUsers(ctx context.Context, limit int) ([]UserStats, error)
}

type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Record stores an activity and credits its points to the user. The ID,
// Points and Timestamp of a are assigned here.
func (s *Service) Record(ctx context.Context, a Activity) (string, error) {
	if a.UserAddress == "" {
		return "", errors.New("activity without user address")
	}
	if normalized, err := address.Normalize(a.UserAddress); err == nil {
		a.UserAddress = normalized
	} else {
		s.logger.Warn("Invalid user address format", zap.String("address", a.UserAddress))
	}

	a.ID = s.newID()
	a.Timestamp = s.now()
	a.Points = Points(a.Type)

	if err := s.store.InsertActivity(ctx, a); err != nil {
		return "", fmt.Errorf("insert activity: %w", err)
	}
	if err := s.credit(ctx, a); err != nil {
		// the feed entry exists; stats catch up on the next activity
		s.logger.Error("Error updating user stats", zap.String("address", a.UserAddress), zap.Error(err))
	}

	s.logger.Debug("Activity recorded", zap.String("id", a.ID), zap.String("type", string(a.Type)))
	return a.ID, nil
}

func (s *Service) credit(ctx context.Context, a Activity) error {
	key := address.Key(a.UserAddress)
	current, err := s.store.GetUserStats(ctx, key)
	if err != nil {
		return err
	}
	stats := UserStats{Address: key}
	if current != nil {
		stats = *current
	}
	if stats.DisplayName == "" {
		stats.DisplayName = a.UserName
	}

	stats.Points += a.Points
	stats.LastActive = a.Timestamp
	switch a.Type {
	case ProposalCreated:
		stats.ProposalsCreated++
	case VoteCast:
		stats.ProposalsVoted++
		stats.TotalVotes++
	}
	stats.Level = Level(stats.Points)

	return s.store.SaveUserStats(ctx, stats)
}

// Feed returns recent activity, newest first.
func (s *Service) Feed(ctx context.Context, q FeedQuery) ([]Activity, error) {
	q.Limit = clampLimit(q.Limit, DefaultFeedLimit)
	if q.UserAddress != "" {
		q.UserAddress = address.Key(q.UserAddress)
	}
	return s.store.ListActivities(ctx, q)
}

// Leaderboard returns the top users by points with 1-based ranks.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Ranked, error) {
	users, err := s.store.TopUsers(ctx, clampLimit(limit, DefaultLeaderboardLimit))
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, len(users))
	for i, u := range users {
		out[i] = Ranked{UserStats: u, Rank: i + 1}
	}
	return out, nil
}

// UserStats returns the statistics of one user or ErrNotFound.
func (s *Service) UserStats(ctx context.Context, addr string) (*UserStats, error) {
	stats, err := s.store.GetUserStats(ctx, address.Key(addr))
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, ErrNotFound
	}
	return stats, nil
}

func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
