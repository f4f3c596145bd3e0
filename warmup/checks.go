package warmup

import (
	"context"
	"fmt"
	"time"

	"mailwarm/models"

	"github.com/sirupsen/logrus"
)

// RunPendingChecks sweeps messages whose delivery check is due, oldest due
// first, capped at limit (engine default when limit <= 0). Every selected
// message reaches a terminal delivery status on this sweep: verifier errors
// are recorded as failed and never retried, which keeps flaky mailbox access
// from turning into a retry storm.
func (e *Engine) RunPendingChecks(ctx context.Context, now time.Time, limit int) (*CheckResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if limit <= 0 {
		limit = e.opts.CheckBatchLimit
	}

	due, err := e.deps.Emails.FindPendingDue(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due checks: %w", err)
	}
	if len(due) == 0 {
		return &CheckResult{Checked: 0}, nil
	}

	e.log.WithField("count", len(due)).Info("Checking pending emails")

	var delta models.StatDelta
	for i := range due {
		email := &due[i]
		checkedAt := e.deps.Clock.Now()

		password, ok := e.deps.Credentials.IMAPPassword(ctx, email.Recipient)
		if !ok {
			e.log.WithField("recipient", email.Recipient).Warn("No IMAP credentials for recipient")
			email.DeliveryStatus = models.DeliveryUnknown
		} else {
			sentAfter := checkedAt.Add(-24 * time.Hour)
			if email.SentAt != nil {
				sentAfter = *email.SentAt
			}
			placement, err := e.deps.Verifier.Check(ctx, email.Recipient, password, sentAfter, email.Subject)
			if err != nil {
				e.log.WithFields(logrus.Fields{
					"email_id":  email.ID,
					"recipient": email.Recipient,
				}).WithError(err).Error("Delivery check failed")
				email.DeliveryStatus = models.DeliveryFailed
			} else {
				email.DeliveryStatus = placement
				if placement == models.DeliveryInbox {
					e.simulateBehavior(ctx, email, password)
				}
			}
		}

		email.CheckedAt = &checkedAt
		if err := e.deps.Emails.Update(ctx, email); err != nil {
			return nil, fmt.Errorf("failed to record check result for email %d: %w", email.ID, err)
		}

		switch email.DeliveryStatus {
		case models.DeliveryInbox:
			delta.Inbox++
		case models.DeliverySpam:
			delta.Spam++
		case models.DeliveryFailed:
			delta.Failed++
		default:
			delta.Unknown++
		}
	}

	if err := e.deps.Stats.IncrementDaily(ctx, now, delta); err != nil {
		return nil, fmt.Errorf("failed to update daily statistics: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"checked": len(due),
		"inbox":   delta.Inbox,
		"spam":    delta.Spam,
	}).Info("Pending check sweep complete")
	return &CheckResult{Checked: len(due)}, nil
}

// simulateBehavior applies the human-interaction policy to an inbox-placed
// email. Simulator failures are logged and swallowed: behavior is a reputation
// signal, not a delivery requirement.
func (e *Engine) simulateBehavior(ctx context.Context, email *models.Email, password string) {
	if e.deps.Rand.Float64() >= behaviorActProbability {
		return
	}

	if e.deps.Rand.Float64() < markAsReadProbability {
		if err := e.deps.Simulator.MarkAsRead(ctx, email.Recipient, password, email.Subject); err != nil {
			e.log.WithField("email_id", email.ID).WithError(err).Warn("Failed to mark email as read")
		} else {
			email.IsRead = true
		}
	}

	if e.deps.Rand.Float64() < moveToFolderProbability {
		folder := behaviorFolders[e.deps.Rand.Intn(len(behaviorFolders))]
		if err := e.deps.Simulator.MoveToFolder(ctx, email.Recipient, password, folder, email.Subject); err != nil {
			e.log.WithField("email_id", email.ID).WithError(err).Warn("Failed to move email to folder")
		} else {
			email.MovedToFolder = folder
		}
	}
}
