package models

import (
	"time"

	"gorm.io/gorm"
)

// Email status values
const (
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
	EmailStatusBounced = "bounced"
)

// Delivery status values (mailbox placement)
const (
	DeliveryPending = "pending"
	DeliveryInbox   = "inbox"
	DeliverySpam    = "spam"
	DeliveryUnknown = "unknown"
	DeliveryFailed  = "failed"
)

// Email represents one dispatched warmup email and its verification lifecycle
type Email struct {
	gorm.Model
	Sender      string `gorm:"not null;index" json:"sender"`
	Recipient   string `gorm:"not null;index" json:"recipient"`
	Subject     string `gorm:"type:text;not null" json:"subject"`
	Body        string `gorm:"type:text;not null" json:"body"`
	ContentType string `gorm:"not null;index" json:"content_type"` // transactional, newsletter, personal, mixed

	// Postal tracking
	PostalMessageID string `gorm:"index" json:"postal_message_id"`

	// Status tracking
	Status         string `gorm:"not null;default:'sent';index" json:"status"`             // sent, failed, bounced
	DeliveryStatus string `gorm:"not null;default:'pending';index" json:"delivery_status"` // pending, inbox, spam, unknown, failed

	// Timestamps
	SentAt           *time.Time `gorm:"index" json:"sent_at"`
	CheckScheduledAt *time.Time `gorm:"index" json:"check_scheduled_at"`
	CheckedAt        *time.Time `json:"checked_at"`

	// Interaction tracking (behavior simulation)
	IsRead        bool   `gorm:"default:false" json:"is_read"`
	MovedToFolder string `json:"moved_to_folder"`
}

// IsInbox reports whether the email landed in the inbox
func (e *Email) IsInbox() bool {
	return e.DeliveryStatus == DeliveryInbox
}

// IsSpam reports whether the email landed in spam
func (e *Email) IsSpam() bool {
	return e.DeliveryStatus == DeliverySpam
}

// IsChecked reports whether the delivery status is terminal
func (e *Email) IsChecked() bool {
	return e.DeliveryStatus != DeliveryPending
}
