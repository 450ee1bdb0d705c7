package db

import (
	"context"
	"errors"
	"fmt"

	"governance-analytics/internal/activity"
	"governance-analytics/internal/models"
	"governance-analytics/internal/notify"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) InsertActivity(ctx context.Context, a activity.Activity) error {
	row := models.Activity{
		ID:            a.ID,
		Type:          string(a.Type),
		UserAddress:   a.UserAddress,
		UserName:      a.UserName,
		ProposalID:    a.ProposalID,
		ProposalTitle: a.ProposalTitle,
		TargetAddress: a.TargetAddress,
		Description:   a.Description,
		Value:         a.Value,
		Points:        a.Points,
		Timestamp:     a.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) ListActivities(ctx context.Context, q activity.FeedQuery) ([]activity.Activity, error) {
	tx := s.db.WithContext(ctx).Model(&models.Activity{})
	if q.UserAddress != "" {
		tx = tx.Where("lower(user_address) = ?", q.UserAddress)
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		tx = tx.Where("type IN ?", types)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []models.Activity
	if err := tx.Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}

	out := make([]activity.Activity, len(rows))
	for i, r := range rows {
		out[i] = activity.Activity{
			ID:            r.ID,
			Type:          activity.Type(r.Type),
			UserAddress:   r.UserAddress,
			UserName:      r.UserName,
			ProposalID:    r.ProposalID,
			ProposalTitle: r.ProposalTitle,
			TargetAddress: r.TargetAddress,
			Description:   r.Description,
			Value:         r.Value,
			Points:        r.Points,
			Timestamp:     r.Timestamp,
		}
	}
	return out, nil
}

func (s *Store) GetUserStats(ctx context.Context, key string) (*activity.UserStats, error) {
	var row models.UserStats
	err := s.db.WithContext(ctx).First(&row, "address = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user stats: %w", err)
	}
	st := statsFromRow(row)
	return &st, nil
}

func (s *Store) SaveUserStats(ctx context.Context, st activity.UserStats) error {
	row := models.UserStats{
		Address:          st.Address,
		DisplayName:      st.DisplayName,
		TotalVotes:       st.TotalVotes,
		ProposalsCreated: st.ProposalsCreated,
		ProposalsVoted:   st.ProposalsVoted,
		LastActive:       st.LastActive,
		Level:            st.Level,
		Points:           st.Points,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (s *Store) TopUsers(ctx context.Context, limit int) ([]activity.UserStats, error) {
	var rows []models.UserStats
	err := s.db.WithContext(ctx).
		Order("points DESC, address ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	out := make([]activity.UserStats, len(rows))
	for i, r := range rows {
		out[i] = statsFromRow(r)
	}
	return out, nil
}

func statsFromRow(r models.UserStats) activity.UserStats {
	return activity.UserStats{
		Address:          r.Address,
		DisplayName:      r.DisplayName,
		TotalVotes:       r.TotalVotes,
		ProposalsCreated: r.ProposalsCreated,
		ProposalsVoted:   r.ProposalsVoted,
		LastActive:       r.LastActive,
		Level:            r.Level,
		Points:           r.Points,
	}
}

func (s *Store) InsertNotification(ctx context.Context, n notify.Notification) error {
	row := models.Notification{
		ID:         n.ID,
		UserID:     n.UserID,
		Kind:       string(n.Kind),
		Title:      n.Title,
		Message:    n.Message,
		IsRead:     n.Read,
		Link:       n.Link,
		ProposalID: n.ProposalID,
		Timestamp:  n.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) ListNotifications(ctx context.Context, userID string, opts notify.ListOptions) ([]notify.Notification, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if opts.UnreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	if len(opts.Kinds) > 0 {
		kinds := make([]string, len(opts.Kinds))
		for i, k := range opts.Kinds {
			kinds[i] = string(k)
		}
		tx = tx.Where("kind IN ?", kinds)
	}
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit)
	}

	var rows []models.Notification
	if err := tx.Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	out := make([]notify.Notification, len(rows))
	for i, r := range rows {
		out[i] = notify.Notification{
			ID:         r.ID,
			UserID:     r.UserID,
			Kind:       notify.Kind(r.Kind),
			Title:      r.Title,
			Message:    r.Message,
			Read:       r.IsRead,
			Timestamp:  r.Timestamp,
			Link:       r.Link,
			ProposalID: r.ProposalID,
		}
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notify.ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return int(n), nil
}
