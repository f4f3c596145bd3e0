package warmup

import (
	"context"
	"time"

	"mailwarm/models"
)

// ResolveDay maps a calendar date onto a warmup plan day: whole days elapsed
// since the first execution, one-based, floored at 1. A nil firstDate means
// nothing has ever run, which resolves to day 1.
func ResolveDay(firstDate *time.Time, today time.Time) int {
	if firstDate == nil {
		return 1
	}
	days := int(models.DateOnly(today).Sub(models.DateOnly(*firstDate)).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// CurrentDay resolves today's warmup day, clamped to the highest defined plan
// day. planComplete reports that the ramp is exhausted (the raw day ran past
// the plan) rather than extrapolating volumes beyond it.
func (e *Engine) CurrentDay(ctx context.Context, today time.Time) (day int, planComplete bool, err error) {
	firstDate, err := e.deps.Executions.FirstDate(ctx)
	if err != nil {
		return 0, false, err
	}
	day = ResolveDay(firstDate, today)

	maxDay, err := e.deps.Schedules.MaxDay(ctx)
	if err != nil {
		return 0, false, err
	}
	if maxDay > 0 && day > maxDay {
		return maxDay, true, nil
	}
	return day, false, nil
}
