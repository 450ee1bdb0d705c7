package models

import "time"

// Vote stores one ballot cast on a proposal. BallotKey is the lowercased
// voter address for public ballots and the proof id for private ones, so a
// ballot is recorded once per proposal however often its event is seen.
type Vote struct {
	ID         uint      `gorm:"primaryKey"`
	ProposalID uint64    `gorm:"index:ux_proposal_ballot,unique;index"`
	BallotKey  string    `gorm:"size:128;index:ux_proposal_ballot,unique"`
	Kind       string    `gorm:"size:16"` // "public" or "private"
	Voter      string    `gorm:"size:64;index"`
	ProofID    string    `gorm:"size:128"`
	Support    int16     `gorm:"not null"`
	Weight     float64   `gorm:"not null"`
	TxHash     string    `gorm:"size:128"`
	Height     int64     `gorm:"index"`
	Timestamp  time.Time `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
