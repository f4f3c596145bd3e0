package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// DateOnly truncates a timestamp to its UTC calendar date. All date-keyed
// rows (executions, statistics) are stored this way so lookups compare equal.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ScheduleRepository persists the per-day warmup plan
type ScheduleRepository struct {
	DB *gorm.DB
}

// GetDay returns the plan row for a warmup day, or nil when the plan has a gap
func (r *ScheduleRepository) GetDay(ctx context.Context, day int) (*WarmupSchedule, error) {
	var schedule WarmupSchedule
	err := r.DB.WithContext(ctx).Where("day = ?", day).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// MaxDay returns the highest defined plan day, 0 for an empty plan
func (r *ScheduleRepository) MaxDay(ctx context.Context) (int, error) {
	var max *int
	err := r.DB.WithContext(ctx).Model(&WarmupSchedule{}).
		Select("MAX(day)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// List returns the full plan ordered by day
func (r *ScheduleRepository) List(ctx context.Context) ([]WarmupSchedule, error) {
	var schedules []WarmupSchedule
	err := r.DB.WithContext(ctx).Order("day asc").Find(&schedules).Error
	return schedules, err
}

// ScheduleChange is one day's edit in a bulk plan update
type ScheduleChange struct {
	Day          int  `json:"day" validate:"required,min=1"`
	TargetEmails int  `json:"target_emails" validate:"min=0"`
	Enabled      bool `json:"enabled"`
}

// BulkUpdate applies plan edits in one transaction, creating missing days
func (r *ScheduleRepository) BulkUpdate(ctx context.Context, changes []ScheduleChange) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, change := range changes {
			var schedule WarmupSchedule
			err := tx.Where("day = ?", change.Day).First(&schedule).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				schedule = WarmupSchedule{Day: change.Day}
			} else if err != nil {
				return err
			}
			schedule.TargetEmails = change.TargetEmails
			schedule.Enabled = change.Enabled
			if err := tx.Save(&schedule).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ExecutionRepository persists the per-date batch ledger
type ExecutionRepository struct {
	DB *gorm.DB
}

// FindByDate returns the execution row for a calendar date, or nil
func (r *ExecutionRepository) FindByDate(ctx context.Context, date time.Time) (*WarmupExecution, error) {
	var execution WarmupExecution
	err := r.DB.WithContext(ctx).Where("date = ?", DateOnly(date)).First(&execution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

// FirstDate returns the date of the earliest execution; nil before the first run
func (r *ExecutionRepository) FirstDate(ctx context.Context) (*time.Time, error) {
	var execution WarmupExecution
	err := r.DB.WithContext(ctx).Order("date asc").First(&execution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	date := DateOnly(execution.Date)
	return &date, nil
}

// Create inserts a new execution row
func (r *ExecutionRepository) Create(ctx context.Context, execution *WarmupExecution) error {
	execution.Date = DateOnly(execution.Date)
	return r.DB.WithContext(ctx).Create(execution).Error
}

// Update persists changes to an existing execution row
func (r *ExecutionRepository) Update(ctx context.Context, execution *WarmupExecution) error {
	return r.DB.WithContext(ctx).Save(execution).Error
}

// Recent returns the latest executions, newest first
func (r *ExecutionRepository) Recent(ctx context.Context, limit int) ([]WarmupExecution, error) {
	var executions []WarmupExecution
	err := r.DB.WithContext(ctx).Order("date desc").Limit(limit).Find(&executions).Error
	return executions, err
}

// EmailRepository persists dispatched warmup emails
type EmailRepository struct {
	DB *gorm.DB
}

// Create inserts a new email row
func (r *EmailRepository) Create(ctx context.Context, email *Email) error {
	return r.DB.WithContext(ctx).Create(email).Error
}

// Update persists changes to an email row
func (r *EmailRepository) Update(ctx context.Context, email *Email) error {
	return r.DB.WithContext(ctx).Save(email).Error
}

// FindPendingDue returns emails whose check is due, oldest due first, capped
// at limit. Terminal rows are never selected again.
func (r *EmailRepository) FindPendingDue(ctx context.Context, now time.Time, limit int) ([]Email, error) {
	var emails []Email
	err := r.DB.WithContext(ctx).
		Where("delivery_status = ?", DeliveryPending).
		Where("check_scheduled_at <= ?", now).
		Where("checked_at IS NULL").
		Order("check_scheduled_at asc").
		Limit(limit).
		Find(&emails).Error
	return emails, err
}

// FindByPostalMessageID locates an email by its relay-assigned message ID
func (r *EmailRepository) FindByPostalMessageID(ctx context.Context, messageID string) (*Email, error) {
	var email Email
	err := r.DB.WithContext(ctx).Where("postal_message_id = ?", messageID).First(&email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &email, nil
}

// CountByDeliveryStatus tallies emails per placement
func (r *EmailRepository) CountByDeliveryStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&Email{}).
		Where("delivery_status = ?", status).Count(&count).Error
	return count, err
}

// Count returns the total number of tracked emails
func (r *EmailRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&Email{}).Count(&count).Error
	return count, err
}

// StatisticRepository persists daily aggregate counters
type StatisticRepository struct {
	DB *gorm.DB
}

// IncrementDaily applies counter deltas to a date's Statistic row, creating it
// when missing. Increments run as single UPDATE statements so the batch runner
// and the check sweeper can both touch today's row without a read-modify-write
// race; rates are recomputed in SQL from the post-increment counters.
func (r *StatisticRepository) IncrementDaily(ctx context.Context, date time.Time, delta StatDelta) error {
	day := DateOnly(date)
	db := r.DB.WithContext(ctx)

	increments := map[string]interface{}{
		"emails_sent":    gorm.Expr("emails_sent + ?", delta.Sent),
		"emails_inbox":   gorm.Expr("emails_inbox + ?", delta.Inbox),
		"emails_spam":    gorm.Expr("emails_spam + ?", delta.Spam),
		"emails_unknown": gorm.Expr("emails_unknown + ?", delta.Unknown),
		"emails_failed":  gorm.Expr("emails_failed + ?", delta.Failed),
		"bounce_count":   gorm.Expr("bounce_count + ?", delta.Bounced),
	}

	result := db.Model(&Statistic{}).Where("date = ?", day).Updates(increments)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		stat := Statistic{
			Date:          day,
			EmailsSent:    delta.Sent,
			EmailsInbox:   delta.Inbox,
			EmailsSpam:    delta.Spam,
			EmailsUnknown: delta.Unknown,
			EmailsFailed:  delta.Failed,
			BounceCount:   delta.Bounced,
		}
		if err := db.Create(&stat).Error; err != nil {
			// Lost the insert race to a concurrent sweep; fall back to increments
			if retry := db.Model(&Statistic{}).Where("date = ?", day).Updates(increments); retry.Error != nil {
				return retry.Error
			}
		}
	}

	return db.Model(&Statistic{}).Where("date = ?", day).Updates(map[string]interface{}{
		"success_rate": gorm.Expr("CASE WHEN emails_sent > 0 THEN emails_inbox * 100.0 / emails_sent ELSE 0 END"),
		"spam_rate":    gorm.Expr("CASE WHEN emails_sent > 0 THEN emails_spam * 100.0 / emails_sent ELSE 0 END"),
	}).Error
}

// FindByDate returns the Statistic row for a date, or nil
func (r *StatisticRepository) FindByDate(ctx context.Context, date time.Time) (*Statistic, error) {
	var stat Statistic
	err := r.DB.WithContext(ctx).Where("date = ?", DateOnly(date)).First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// Recent returns the latest daily statistics, newest first
func (r *StatisticRepository) Recent(ctx context.Context, limit int) ([]Statistic, error) {
	var stats []Statistic
	err := r.DB.WithContext(ctx).Order("date desc").Limit(limit).Find(&stats).Error
	return stats, err
}

// AddressRepository manages the sender/recipient address book
type AddressRepository struct {
	DB *gorm.DB
}

// FindByEmail returns the address-book row for an email, or nil
func (r *AddressRepository) FindByEmail(ctx context.Context, email string) (*EmailAddress, error) {
	var addr EmailAddress
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// Upsert creates or updates an address-book entry
func (r *AddressRepository) Upsert(ctx context.Context, addr *EmailAddress) error {
	var existing EmailAddress
	err := r.DB.WithContext(ctx).Where("email = ?", addr.Email).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.DB.WithContext(ctx).Create(addr).Error
	}
	if err != nil {
		return err
	}
	addr.ID = existing.ID
	addr.CreatedAt = existing.CreatedAt
	return r.DB.WithContext(ctx).Save(addr).Error
}

// TouchLastUsed stamps an address as used now
func (r *AddressRepository) TouchLastUsed(ctx context.Context, email string, now time.Time) error {
	return r.DB.WithContext(ctx).Model(&EmailAddress{}).
		Where("email = ?", email).
		Update("last_used_at", now).Error
}
