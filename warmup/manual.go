package warmup

import (
	"context"
	"fmt"

	"mailwarm/models"

	"github.com/sirupsen/logrus"
)

// TriggerManualSend dispatches exactly count emails outside the daily
// schedule: no day resolution, no execution row, same per-message dispatch,
// recording and pacing as the daily batch. Partial failures are returned in
// the structured result instead of as an error.
func (e *Engine) TriggerManualSend(ctx context.Context, count int) (*ManualSendResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("manual send count must be positive, got %d", count)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.WithField("count", count).Info("Manual send triggered")

	result := &ManualSendResult{TotalCount: count}
	var delta models.StatDelta

	for i := 0; i < count; i++ {
		email, fatal := e.sendOne(ctx)
		if fatal != nil {
			return nil, fatal
		}

		outcome := SendOutcome{
			Sender:    email.Sender,
			Recipient: email.Recipient,
			Subject:   email.Subject,
			Success:   email.Status == models.EmailStatusSent,
		}
		if outcome.Success {
			result.SentCount++
			delta.Sent++
		} else {
			outcome.Error = "dispatch failed"
			delta.Failed++
		}
		result.Results = append(result.Results, outcome)

		if i < count-1 {
			e.deps.Clock.Sleep(e.pacingDelay())
		}
	}

	if err := e.deps.Stats.IncrementDaily(ctx, e.deps.Clock.Now(), delta); err != nil {
		return nil, fmt.Errorf("failed to update daily statistics: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"sent":  result.SentCount,
		"total": count,
	}).Info("Manual send complete")
	return result, nil
}
