package db

import (
	"context"
	"errors"
	"fmt"

	"governance-analytics/internal/models"
	"governance-analytics/internal/rollup"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Summaries is the database-backed summary cache, used when Redis is not
// configured.
type Summaries struct {
	db *gorm.DB
}

func NewSummaries(db *gorm.DB) *Summaries {
	return &Summaries{db: db}
}

func (s *Summaries) Get(ctx context.Context, proposalID uint64) (*rollup.Summary, error) {
	var row models.VoteSummary
	err := s.db.WithContext(ctx).First(&row, "proposal_id = ?", proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select summary %d: %w", proposalID, err)
	}
	return &rollup.Summary{
		ProposalID:    row.ProposalID,
		Summary:       row.Summary,
		Insights:      row.Insights,
		VotingTrends:  row.Trends,
		WhaleActivity: row.Whales,
		Timestamp:     row.GeneratedAt,
		LastUpdated:   row.LastUpdated,
	}, nil
}

// Set overwrites the stored summary of a proposal.
func (s *Summaries) Set(ctx context.Context, proposalID uint64, sum rollup.Summary) error {
	row := models.VoteSummary{
		ProposalID:  proposalID,
		Summary:     sum.Summary,
		Insights:    sum.Insights,
		Trends:      sum.VotingTrends,
		Whales:      sum.WhaleActivity,
		GeneratedAt: sum.Timestamp,
		LastUpdated: sum.LastUpdated,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert summary %d: %w", proposalID, err)
	}
	return nil
}
