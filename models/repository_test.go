package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&Email{},
		&WarmupSchedule{},
		&WarmupExecution{},
		&EmailAddress{},
		&Statistic{},
	))
	return db
}

func TestDateOnly(t *testing.T) {
	noon := time.Date(2026, 3, 10, 12, 34, 56, 789, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), DateOnly(noon))
}

func TestScheduleGetDayAndMaxDay(t *testing.T) {
	db := openTestDB(t)
	repo := &ScheduleRepository{DB: db}
	ctx := context.Background()

	max, err := repo.MaxDay(ctx)
	require.NoError(t, err)
	assert.Zero(t, max, "empty plan has no max day")

	require.NoError(t, db.Create(&WarmupSchedule{Day: 1, TargetEmails: 5, Enabled: true}).Error)
	require.NoError(t, db.Create(&WarmupSchedule{Day: 3, TargetEmails: 15, Enabled: true}).Error)

	day, err := repo.GetDay(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.Equal(t, 5, day.TargetEmails)

	// Day 2 is a gap, not an error
	day, err = repo.GetDay(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, day)

	max, err = repo.MaxDay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, max)
}

func TestScheduleBulkUpdate(t *testing.T) {
	db := openTestDB(t)
	repo := &ScheduleRepository{DB: db}
	ctx := context.Background()

	require.NoError(t, db.Create(&WarmupSchedule{Day: 1, TargetEmails: 5, Enabled: true}).Error)

	err := repo.BulkUpdate(ctx, []ScheduleChange{
		{Day: 1, TargetEmails: 8, Enabled: false},
		{Day: 2, TargetEmails: 12, Enabled: true},
	})
	require.NoError(t, err)

	day1, err := repo.GetDay(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, day1.TargetEmails)
	assert.False(t, day1.Enabled)

	day2, err := repo.GetDay(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, day2, "missing days are created")
	assert.Equal(t, 12, day2.TargetEmails)
}

func TestSeedDefaultScheduleIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, SeedDefaultSchedule(db))
	require.NoError(t, SeedDefaultSchedule(db))

	var count int64
	require.NoError(t, db.Model(&WarmupSchedule{}).Count(&count).Error)
	assert.EqualValues(t, 15, count)

	repo := &ScheduleRepository{DB: db}
	day15, err := repo.GetDay(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, 100, day15.TargetEmails)
}

func TestExecutionDateNormalization(t *testing.T) {
	db := openTestDB(t)
	repo := &ExecutionRepository{DB: db}
	ctx := context.Background()

	noon := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &WarmupExecution{ScheduleDayID: 1, Date: noon}))

	// Lookup at a different time of the same day still finds the row
	evening := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	found, err := repo.FindByDate(ctx, evening)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, DateOnly(noon), found.Date.UTC())

	missing, err := repo.FindByDate(ctx, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExecutionOneRowPerDate(t *testing.T) {
	db := openTestDB(t)
	repo := &ExecutionRepository{DB: db}
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &WarmupExecution{Date: day}))

	// The unique date index is the idempotency anchor
	err := repo.Create(ctx, &WarmupExecution{Date: day.Add(6 * time.Hour)})
	assert.Error(t, err)
}

func TestExecutionFirstDate(t *testing.T) {
	db := openTestDB(t)
	repo := &ExecutionRepository{DB: db}
	ctx := context.Background()

	first, err := repo.FirstDate(ctx)
	require.NoError(t, err)
	assert.Nil(t, first, "no first date before any execution")

	require.NoError(t, repo.Create(ctx, &WarmupExecution{Date: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, repo.Create(ctx, &WarmupExecution{Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}))

	first, err = repo.FirstDate(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *first)
}

func TestFindPendingDue(t *testing.T) {
	db := openTestDB(t)
	repo := &EmailRepository{DB: db}
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mkEmail := func(subject string, checkAt *time.Time, checkedAt *time.Time, deliveryStatus string) {
		require.NoError(t, repo.Create(ctx, &Email{
			Sender:           "sender@warm.test",
			Recipient:        "inbox@warm.test",
			Subject:          subject,
			Status:           EmailStatusSent,
			DeliveryStatus:   deliveryStatus,
			CheckScheduledAt: checkAt,
			CheckedAt:        checkedAt,
		}))
	}
	at := func(minutesAgo int) *time.Time {
		ts := now.Add(-time.Duration(minutesAgo) * time.Minute)
		return &ts
	}

	mkEmail("oldest due", at(60), nil, DeliveryPending)
	mkEmail("newest due", at(5), nil, DeliveryPending)
	mkEmail("middle due", at(30), nil, DeliveryPending)
	mkEmail("already checked", at(90), at(10), DeliveryInbox)
	mkEmail("not yet due", at(-20), nil, DeliveryPending)
	mkEmail("dispatch failed, never scheduled", nil, nil, DeliveryPending)

	due, err := repo.FindPendingDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, "oldest due", due[0].Subject)
	assert.Equal(t, "middle due", due[1].Subject)
	assert.Equal(t, "newest due", due[2].Subject)

	capped, err := repo.FindPendingDue(ctx, now, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, "oldest due", capped[0].Subject)
}

func TestIncrementDaily(t *testing.T) {
	db := openTestDB(t)
	repo := &StatisticRepository{DB: db}
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	// First increment creates the row
	require.NoError(t, repo.IncrementDaily(ctx, day, StatDelta{Sent: 5, Failed: 1}))

	stat, err := repo.FindByDate(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, stat)
	assert.Equal(t, 5, stat.EmailsSent)
	assert.Equal(t, 1, stat.EmailsFailed)
	assert.Zero(t, stat.SuccessRate)

	// Later sweep on the same date accumulates and recomputes rates
	require.NoError(t, repo.IncrementDaily(ctx, day, StatDelta{Inbox: 3, Spam: 1, Unknown: 1}))

	stat, err = repo.FindByDate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 5, stat.EmailsSent)
	assert.Equal(t, 3, stat.EmailsInbox)
	assert.Equal(t, 1, stat.EmailsSpam)
	assert.Equal(t, 1, stat.EmailsUnknown)
	assert.InDelta(t, 60.0, stat.SuccessRate, 0.001)
	assert.InDelta(t, 20.0, stat.SpamRate, 0.001)

	// A different date gets its own row
	require.NoError(t, repo.IncrementDaily(ctx, day.AddDate(0, 0, 1), StatDelta{Sent: 2}))
	var count int64
	require.NoError(t, db.Model(&Statistic{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestAddressUpsert(t *testing.T) {
	db := openTestDB(t)
	repo := &AddressRepository{DB: db}
	ctx := context.Background()

	addr := &EmailAddress{Email: "inbox@warm.test", Type: AddressTypeRecipient, IMAPPassword: "enc-1"}
	require.NoError(t, repo.Upsert(ctx, addr))

	update := &EmailAddress{Email: "inbox@warm.test", Type: AddressTypeRecipient, IMAPPassword: "enc-2", Verified: true}
	require.NoError(t, repo.Upsert(ctx, update))

	found, err := repo.FindByEmail(ctx, "inbox@warm.test")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "enc-2", found.IMAPPassword)
	assert.True(t, found.Verified)

	var count int64
	require.NoError(t, db.Model(&EmailAddress{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
