// Package models defines the database models of the governance dashboard.
package models

import "time"

const (
	ProposalStatusPending   = "pending"
	ProposalStatusActive    = "active"
	ProposalStatusCanceled  = "canceled"
	ProposalStatusDefeated  = "defeated"
	ProposalStatusSucceeded = "succeeded"
	ProposalStatusQueued    = "queued"
	ProposalStatusExpired   = "expired"
	ProposalStatusExecuted  = "executed"
)

// Proposal mirrors the on-chain proposal with the off-chain metadata shown in
// the dashboard.
type Proposal struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement:false"`
	Title       string  `gorm:"size:256"`
	Description string  `gorm:"type:text"`
	Proposer    string  `gorm:"size:64;index"`
	Status      string  `gorm:"size:16;index"`
	Category    string  `gorm:"size:32"`
	Quorum      float64 // 0 when the chain did not report one
	StartBlock  int64
	EndBlock    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
