package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"governance-analytics/internal/activity"
	"governance-analytics/internal/models"
	"governance-analytics/internal/notify"
	"governance-analytics/internal/rollup"
	"governance-analytics/internal/summary"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store reads and writes proposals, votes, activities and notifications.
type Store struct {
	db *gorm.DB
}

var (
	_ summary.ProposalSource = (*Store)(nil)
	_ summary.VoteSource     = (*Store)(nil)
	_ activity.Store         = (*Store)(nil)
	_ notify.Store           = (*Store)(nil)
	_ summary.Cache          = (*Summaries)(nil)
)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FetchProposal returns nil, nil when the proposal is unknown.
func (s *Store) FetchProposal(ctx context.Context, id uint64) (*summary.Proposal, error) {
	var p models.Proposal
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select proposal %d: %w", id, err)
	}
	return &summary.Proposal{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Proposer:    p.Proposer,
		Status:      p.Status,
		Quorum:      p.Quorum,
	}, nil
}

// SaveProposal inserts a proposal or updates the fields the chain owns.
// Off-chain metadata such as the category is kept.
func (s *Store) SaveProposal(ctx context.Context, p summary.Proposal) error {
	row := models.Proposal{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Proposer:    p.Proposer,
		Status:      p.Status,
		Quorum:      p.Quorum,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "proposer", "status", "quorum", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert proposal %d: %w", p.ID, err)
	}
	return nil
}

// ActiveProposalIDs lists proposals whose votes can still change.
func (s *Store) ActiveProposalIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("status IN ?", []string{models.ProposalStatusPending, models.ProposalStatusActive}).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("select active proposals: %w", err)
	}
	return ids, nil
}

// FetchVotes returns the ballots of a proposal in the order they were cast.
func (s *Store) FetchVotes(ctx context.Context, proposalID uint64) ([]rollup.Vote, error) {
	var rows []models.Vote
	err := s.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select votes of proposal %d: %w", proposalID, err)
	}

	votes := make([]rollup.Vote, 0, len(rows))
	for _, r := range rows {
		votes = append(votes, voteFromRow(r))
	}
	return votes, nil
}

// RecordVote stores a ballot once. It reports false when the ballot was
// already known.
func (s *Store) RecordVote(ctx context.Context, proposalID uint64, v rollup.Vote, txHash string, height int64) (bool, error) {
	row := voteToRow(proposalID, v)
	row.TxHash = txHash
	row.Height = height

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("insert vote for proposal %d: %w", proposalID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func voteFromRow(r models.Vote) rollup.Vote {
	v := rollup.Vote{
		Kind:      rollup.KindPublic,
		Voter:     r.Voter,
		Support:   rollup.Support(r.Support),
		Weight:    r.Weight,
		Timestamp: r.Timestamp,
	}
	if r.Kind == rollup.KindPrivate.String() {
		v.Kind = rollup.KindPrivate
		v.Voter = ""
		v.ProofID = r.ProofID
	}
	return v
}

func voteToRow(proposalID uint64, v rollup.Vote) models.Vote {
	row := models.Vote{
		ProposalID: proposalID,
		Kind:       v.Kind.String(),
		Voter:      v.Voter,
		ProofID:    v.ProofID,
		Support:    int16(v.Support),
		Weight:     v.Weight,
		Timestamp:  v.Timestamp,
	}
	if v.Kind == rollup.KindPrivate {
		row.BallotKey = v.ProofID
	} else {
		row.BallotKey = strings.ToLower(v.Voter)
	}
	return row
}
