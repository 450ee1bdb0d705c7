package models

import (
	"time"

	"governance-analytics/internal/rollup"
)

// VoteSummary is the stored rollup of a proposal, one row per proposal.
type VoteSummary struct {
	ProposalID  uint64               `gorm:"primaryKey;autoIncrement:false"`
	Summary     string               `gorm:"type:text"`
	Insights    []string             `gorm:"type:jsonb;serializer:json"`
	Trends      rollup.Trends        `gorm:"type:jsonb;serializer:json"`
	Whales      rollup.WhaleActivity `gorm:"type:jsonb;serializer:json"`
	GeneratedAt time.Time
	LastUpdated time.Time `gorm:"index"`
}
