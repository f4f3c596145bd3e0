package models

import (
	"time"

	"gorm.io/gorm"
)

// WarmupSchedule is one day of the warmup ramp plan
type WarmupSchedule struct {
	gorm.Model
	Day          int  `gorm:"not null;uniqueIndex" json:"day"`
	TargetEmails int  `gorm:"not null;default:0" json:"target_emails"`
	Enabled      bool `gorm:"not null;default:true" json:"enabled"`
}

// WarmupExecution tracks one actual batch run. The unique date column is the
// idempotency anchor: at most one row may exist per calendar date.
type WarmupExecution struct {
	gorm.Model
	ScheduleDayID uint       `gorm:"not null;index" json:"schedule_day_id"`
	Date          time.Time  `gorm:"type:date;not null;uniqueIndex" json:"date"`
	SentCount     int        `gorm:"not null;default:0" json:"sent_count"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// IsCompleted reports whether the day's batch finished
func (we *WarmupExecution) IsCompleted() bool {
	return we.CompletedAt != nil
}

// EmailAddress manages sender and recipient addresses. Recipient rows carry an
// AES-encrypted IMAP password used by the delivery checker.
type EmailAddress struct {
	gorm.Model
	Email        string     `gorm:"not null;uniqueIndex" json:"email"`
	Type         string     `gorm:"not null;index" json:"type"` // sender, recipient
	Verified     bool       `gorm:"not null;default:false" json:"verified"`
	IMAPPassword string     `gorm:"type:text" json:"-"`
	LastUsedAt   *time.Time `json:"last_used_at"`
}

// Address type values
const (
	AddressTypeSender    = "sender"
	AddressTypeRecipient = "recipient"
)
