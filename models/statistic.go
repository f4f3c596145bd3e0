package models

import (
	"time"

	"gorm.io/gorm"
)

// Statistic aggregates one calendar day of warmup activity. Rows are upserted
// incrementally as emails are sent and as verification results arrive.
type Statistic struct {
	gorm.Model
	Date          time.Time `gorm:"type:date;not null;uniqueIndex" json:"date"`
	EmailsSent    int       `gorm:"not null;default:0" json:"emails_sent"`
	EmailsInbox   int       `gorm:"not null;default:0" json:"emails_inbox"`
	EmailsSpam    int       `gorm:"not null;default:0" json:"emails_spam"`
	EmailsUnknown int       `gorm:"not null;default:0" json:"emails_unknown"`
	EmailsFailed  int       `gorm:"not null;default:0" json:"emails_failed"`
	BounceCount   int       `gorm:"not null;default:0" json:"bounce_count"`

	// Rates are stored for historical tracking
	SuccessRate float64 `gorm:"default:0" json:"success_rate"`
	SpamRate    float64 `gorm:"default:0" json:"spam_rate"`
}

// CalculateRates recomputes the stored inbox/spam percentages
func (s *Statistic) CalculateRates() {
	if s.EmailsSent > 0 {
		s.SuccessRate = float64(s.EmailsInbox) / float64(s.EmailsSent) * 100
		s.SpamRate = float64(s.EmailsSpam) / float64(s.EmailsSent) * 100
	} else {
		s.SuccessRate = 0
		s.SpamRate = 0
	}
}

// StatDelta carries incremental counter updates for one day's Statistic row
type StatDelta struct {
	Sent    int
	Inbox   int
	Spam    int
	Unknown int
	Failed  int
	Bounced int
}
