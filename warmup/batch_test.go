package warmup

import (
	"context"
	"errors"
	"testing"
	"time"

	"mailwarm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDailyBatchSendsTargetVolume(t *testing.T) {
	f := newTestFixture(Options{
		MinSendDelay: time.Second,
		MaxSendDelay: time.Second,
		CheckDelay:   15 * time.Minute,
	})
	f.planDay(1, 3, true)

	result, err := f.engine.RunDailyBatch(context.Background(), date(2026, 3, 10))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.Day)
	assert.Equal(t, 3, result.TargetCount)
	assert.Equal(t, 3, result.SentCount)
	assert.Zero(t, result.FailedCount)

	require.Len(t, f.emails.created, 3)
	for _, email := range f.emails.created {
		assert.Equal(t, models.EmailStatusSent, email.Status)
		assert.Equal(t, models.DeliveryPending, email.DeliveryStatus)
		assert.Equal(t, "msg-id", email.PostalMessageID)
		require.NotNil(t, email.CheckScheduledAt)
		assert.Equal(t, f.clock.now.Add(15*time.Minute), *email.CheckScheduledAt)
	}

	execution := f.executions.byDate["2026-03-10"]
	require.NotNil(t, execution)
	assert.Equal(t, 3, execution.SentCount)
	assert.True(t, execution.IsCompleted())

	assert.Equal(t, models.StatDelta{Sent: 3}, f.stats.deltas["2026-03-10"])

	// Pacing between sends, none after the last one
	require.Len(t, f.clock.sleeps, 2)
	for _, d := range f.clock.sleeps {
		assert.Equal(t, time.Second, d)
	}
}

func TestRunDailyBatchIdempotentRetrigger(t *testing.T) {
	f := newTestFixture(Options{})
	f.planDay(1, 5, true)

	completedAt := f.clock.now
	f.executions.byDate["2026-03-10"] = &models.WarmupExecution{
		Date:        date(2026, 3, 10),
		SentCount:   5,
		CompletedAt: &completedAt,
	}

	result, err := f.engine.RunDailyBatch(context.Background(), date(2026, 3, 10))
	require.NoError(t, err)

	assert.Equal(t, StatusAlreadyCompleted, result.Status)
	assert.Equal(t, 5, result.SentCount)
	assert.Zero(t, f.dispatcher.calls, "retrigger must not dispatch anything")
	assert.Empty(t, f.emails.created)
}

func TestRunDailyBatchDispatchFailureIsolated(t *testing.T) {
	f := newTestFixture(Options{})
	f.planDay(1, 3, true)

	call := 0
	f.dispatcher.send = func(_, _ string) (string, error) {
		call++
		if call == 2 {
			return "", errors.New("relay refused connection")
		}
		return "msg-id", nil
	}

	result, err := f.engine.RunDailyBatch(context.Background(), date(2026, 3, 10))
	require.NoError(t, err, "per-message dispatch failures must not fail the batch")

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 2, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)

	require.Len(t, f.emails.created, 3)
	failed := f.emails.created[1]
	assert.Equal(t, models.EmailStatusFailed, failed.Status)
	assert.Nil(t, failed.CheckScheduledAt, "failed sends must never become due for checking")

	assert.Equal(t, 2, f.executions.byDate["2026-03-10"].SentCount)
	assert.Equal(t, models.StatDelta{Sent: 2, Failed: 1}, f.stats.deltas["2026-03-10"])
}

func TestRunDailyBatchDisabledDay(t *testing.T) {
	f := newTestFixture(Options{})
	f.planDay(1, 10, false)

	result, err := f.engine.RunDailyBatch(context.Background(), date(2026, 3, 10))
	require.NoError(t, err)

	assert.Equal(t, StatusSkippedDisabled, result.Status)
	assert.Zero(t, f.dispatcher.calls)

	// A zero-volume completed execution pins the date so the trigger never
	// retries it.
	execution := f.executions.byDate["2026-03-10"]
	require.NotNil(t, execution)
	assert.Zero(t, execution.SentCount)
	assert.True(t, execution.IsCompleted())
}

func TestRunDailyBatchPlanGap(t *testing.T) {
	f := newTestFixture(Options{})
	f.planDay(1, 5, true)
	f.planDay(3, 15, true)

	first := date(2026, 3, 1)
	f.executions.firstDate = &first

	// Day 2 has no plan row
	result, err := f.engine.RunDailyBatch(context.Background(), date(2026, 3, 2))
	require.NoError(t, err)

	assert.Equal(t, StatusNoPlan, result.Status)
	assert.Equal(t, 2, result.Day)
	assert.Zero(t, f.dispatcher.calls)
	assert.True(t, f.executions.byDate["2026-03-02"].IsCompleted())
}

func TestRunDailyBatchPlanExhausted(t *testing.T) {
	f := newTestFixture(Options{})
	f.planDay(1, 5, true)
	f.planDay(2, 10, true)

	first := date(2026, 3, 1)
	f.executions.firstDate = &first

	result, err := f.engine.RunDailyBatch(context.Background(), date(2026, 3, 20))
	require.NoError(t, err)

	assert.Equal(t, StatusPlanComplete, result.Status)
	assert.Zero(t, f.dispatcher.calls)
	assert.True(t, f.executions.byDate["2026-03-20"].IsCompleted())
}

func TestRunDailyBatchResumesCrashedRun(t *testing.T) {
	f := newTestFixture(Options{ResumeIncomplete: true})
	f.planDay(1, 5, true)

	// Incomplete execution from a crashed run: 2 of 5 already sent
	f.executions.byDate["2026-03-10"] = &models.WarmupExecution{
		Date:      date(2026, 3, 10),
		SentCount: 2,
	}
	first := date(2026, 3, 10)
	f.executions.firstDate = &first

	result, err := f.engine.RunDailyBatch(context.Background(), date(2026, 3, 10))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 5, result.SentCount)
	assert.Equal(t, 3, f.dispatcher.calls, "only the remainder is dispatched")
	assert.Equal(t, models.StatDelta{Sent: 3}, f.stats.deltas["2026-03-10"])
}

func TestRunDailyBatchForfeitsCrashedRun(t *testing.T) {
	f := newTestFixture(Options{ResumeIncomplete: false})
	f.planDay(1, 5, true)

	f.executions.byDate["2026-03-10"] = &models.WarmupExecution{
		Date:      date(2026, 3, 10),
		SentCount: 2,
	}
	first := date(2026, 3, 10)
	f.executions.firstDate = &first

	result, err := f.engine.RunDailyBatch(context.Background(), date(2026, 3, 10))
	require.NoError(t, err)

	assert.Equal(t, StatusForfeited, result.Status)
	assert.Equal(t, 2, result.SentCount)
	assert.Zero(t, f.dispatcher.calls)
	assert.True(t, f.executions.byDate["2026-03-10"].IsCompleted())
}

func TestRunDailyBatchRotatesAddresses(t *testing.T) {
	f := newTestFixture(Options{
		Senders:    []string{"a@warm.test", "b@warm.test"},
		Recipients: []string{"inbox1@warm.test", "inbox2@warm.test"},
	})
	f.planDay(1, 2, true)

	// Each send draws sender, recipient, content type in that order
	f.rand.ints = []int{0, 1, 0, 1, 0, 1}

	_, err := f.engine.RunDailyBatch(context.Background(), date(2026, 3, 10))
	require.NoError(t, err)

	require.Len(t, f.emails.created, 2)
	assert.Equal(t, "a@warm.test", f.emails.created[0].Sender)
	assert.Equal(t, "inbox2@warm.test", f.emails.created[0].Recipient)
	assert.Equal(t, "transactional", f.emails.created[0].ContentType)
	assert.Equal(t, "b@warm.test", f.emails.created[1].Sender)
	assert.Equal(t, "inbox1@warm.test", f.emails.created[1].Recipient)
}
