package models

import "time"

type Activity struct {
	ID            string `gorm:"primaryKey;size:36"`
	Type          string `gorm:"size:32;index"`
	UserAddress   string `gorm:"size:64;index"`
	UserName      string `gorm:"size:128"`
	ProposalID    uint64 `gorm:"index"`
	ProposalTitle string `gorm:"size:256"`
	TargetAddress string `gorm:"size:64"`
	Description   string `gorm:"type:text"`
	Value         float64
	Points        int
	Timestamp     time.Time `gorm:"index"`
}

// UserStats is keyed by the lowercased address.
type UserStats struct {
	Address          string `gorm:"primaryKey;size:64"`
	DisplayName      string `gorm:"size:128"`
	TotalVotes       int
	ProposalsCreated int
	ProposalsVoted   int
	LastActive       time.Time
	Level            int
	Points           int `gorm:"index"`
}

type Notification struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserID     string `gorm:"size:128;index"`
	Kind       string `gorm:"size:16"`
	Title      string `gorm:"size:256"`
	Message    string `gorm:"type:text"`
	IsRead     bool   `gorm:"index"`
	Link       string `gorm:"size:512"`
	ProposalID uint64
	Timestamp  time.Time `gorm:"index"`
}
