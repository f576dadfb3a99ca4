package model

import (
	"time"

	"github.com/google/uuid"
)

// DecisionRecord is a journal row for a submitted accept/reject decision.
type DecisionRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ContractID int64     `gorm:"not null;index"`
	TaskID     int64     `gorm:"not null"`
	Decision   string    `gorm:"size:16;not null"`
	Comments   string    `gorm:"type:text"`
	UserID     string    `gorm:"size:64"`
	Role       string    `gorm:"size:32"`
	Succeeded  bool      `gorm:"not null"`
	Message    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (DecisionRecord) TableName() string {
	return "review_decision"
}
