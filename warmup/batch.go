package warmup

import (
	"context"
	"fmt"
	"time"

	"mailwarm/models"

	"github.com/sirupsen/logrus"
)

// RunDailyBatch executes (at most once) the warmup batch for a calendar date.
// Retriggering for an already-completed date is a safe no-op returning the
// recorded count. Only storage failures are returned as errors; per-message
// dispatch failures are recorded on the Email rows and the batch continues.
func (e *Engine) RunDailyBatch(ctx context.Context, date time.Time) (*ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	day := models.DateOnly(date)

	execution, err := e.deps.Executions.FindByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to look up execution for %s: %w", day.Format("2006-01-02"), err)
	}
	if execution != nil && execution.IsCompleted() {
		e.log.WithFields(logrus.Fields{
			"date":       day.Format("2006-01-02"),
			"sent_count": execution.SentCount,
		}).Info("Daily batch already completed, skipping")
		return &ExecutionResult{
			Date:      day,
			Status:    StatusAlreadyCompleted,
			SentCount: execution.SentCount,
		}, nil
	}

	planDay, planComplete, err := e.CurrentDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve warmup day: %w", err)
	}

	schedule, err := e.deps.Schedules.GetDay(ctx, planDay)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plan for day %d: %w", planDay, err)
	}

	result := &ExecutionResult{Date: day, Day: planDay}

	// A missing, disabled or exhausted plan still closes out the date with a
	// zero-volume completed execution so the trigger never retries it.
	switch {
	case planComplete:
		result.Status = StatusPlanComplete
	case schedule == nil:
		result.Status = StatusNoPlan
	case !schedule.Enabled || schedule.TargetEmails == 0:
		result.Status = StatusSkippedDisabled
	}
	if result.Status != "" {
		e.log.WithFields(logrus.Fields{
			"date": day.Format("2006-01-02"),
			"day":  planDay,
		}).Infof("No sendable plan for today (%s), recording zero-volume execution", result.Status)
		if err := e.closeExecution(ctx, execution, schedule, day, 0); err != nil {
			return nil, err
		}
		return result, nil
	}

	result.TargetCount = schedule.TargetEmails

	if execution == nil {
		execution = &models.WarmupExecution{
			ScheduleDayID: schedule.ID,
			Date:          day,
		}
		if err := e.deps.Executions.Create(ctx, execution); err != nil {
			return nil, fmt.Errorf("failed to create execution row: %w", err)
		}
	} else if !e.opts.ResumeIncomplete {
		// Crashed batch and resume is disabled: forfeit the day as-is.
		e.log.WithField("date", day.Format("2006-01-02")).
			Warn("Found incomplete execution, forfeiting day (resume disabled)")
		if err := e.completeExecution(ctx, execution); err != nil {
			return nil, err
		}
		result.Status = StatusForfeited
		result.SentCount = execution.SentCount
		return result, nil
	} else if execution.SentCount > 0 {
		e.log.WithFields(logrus.Fields{
			"date":         day.Format("2006-01-02"),
			"already_sent": execution.SentCount,
		}).Warn("Found incomplete execution, resuming remainder")
	}

	remaining := schedule.TargetEmails - execution.SentCount
	e.log.WithFields(logrus.Fields{
		"date":    day.Format("2006-01-02"),
		"day":     planDay,
		"target":  schedule.TargetEmails,
		"to_send": remaining,
	}).Info("Starting daily warmup batch")

	var delta models.StatDelta
	for i := 0; i < remaining; i++ {
		email, fatal := e.sendOne(ctx)
		if fatal != nil {
			// Persist what we have before giving up: the ledger is the
			// crash-recovery anchor.
			_ = e.deps.Executions.Update(ctx, execution)
			return nil, fatal
		}
		if email.Status == models.EmailStatusSent {
			delta.Sent++
			execution.SentCount++
			if err := e.deps.Executions.Update(ctx, execution); err != nil {
				return nil, fmt.Errorf("failed to update execution count: %w", err)
			}
		} else {
			delta.Failed++
			result.FailedCount++
		}

		// Pace sends to avoid burst patterns; no wait after the last one
		if i < remaining-1 {
			e.deps.Clock.Sleep(e.pacingDelay())
		}
	}

	if err := e.completeExecution(ctx, execution); err != nil {
		return nil, err
	}
	if err := e.deps.Stats.IncrementDaily(ctx, day, delta); err != nil {
		return nil, fmt.Errorf("failed to update daily statistics: %w", err)
	}

	result.Status = StatusCompleted
	result.SentCount = execution.SentCount
	e.log.WithFields(logrus.Fields{
		"date":   day.Format("2006-01-02"),
		"sent":   result.SentCount,
		"failed": result.FailedCount,
	}).Info("Daily warmup batch complete")
	return result, nil
}

// sendOne generates, dispatches and records a single warmup email. The
// returned error is only non-nil for storage failures; dispatch errors are
// captured on the Email row.
func (e *Engine) sendOne(ctx context.Context) (*models.Email, error) {
	sender := e.pick(e.opts.Senders)
	recipient := e.pick(e.opts.Recipients)
	contentType := e.pick(contentTypes)

	subject, body := e.deps.Content.Generate(ctx, contentType)

	now := e.deps.Clock.Now()
	email := &models.Email{
		Sender:      sender,
		Recipient:   recipient,
		Subject:     subject,
		Body:        body,
		ContentType: contentType,
		SentAt:      &now,
	}

	messageID, err := e.deps.Dispatcher.Send(ctx, sender, recipient, subject, body)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"sender":    sender,
			"recipient": recipient,
		}).WithError(err).Warn("Dispatch failed")
		email.Status = models.EmailStatusFailed
		email.DeliveryStatus = models.DeliveryPending
	} else {
		checkAt := now.Add(e.opts.CheckDelay)
		email.Status = models.EmailStatusSent
		email.DeliveryStatus = models.DeliveryPending
		email.PostalMessageID = messageID
		email.CheckScheduledAt = &checkAt
	}

	if err := e.deps.Emails.Create(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to record email: %w", err)
	}
	return email, nil
}

// closeExecution records a zero-volume completed run for dates with no
// sendable plan, creating the ledger row when absent.
func (e *Engine) closeExecution(ctx context.Context, execution *models.WarmupExecution, schedule *models.WarmupSchedule, day time.Time, sentCount int) error {
	if execution == nil {
		execution = &models.WarmupExecution{Date: day, SentCount: sentCount}
		if schedule != nil {
			execution.ScheduleDayID = schedule.ID
		}
		if err := e.deps.Executions.Create(ctx, execution); err != nil {
			return fmt.Errorf("failed to create execution row: %w", err)
		}
	}
	return e.completeExecution(ctx, execution)
}

func (e *Engine) completeExecution(ctx context.Context, execution *models.WarmupExecution) error {
	now := e.deps.Clock.Now()
	execution.CompletedAt = &now
	if err := e.deps.Executions.Update(ctx, execution); err != nil {
		return fmt.Errorf("failed to complete execution: %w", err)
	}
	return nil
}
