package warmup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveDay(t *testing.T) {
	first := date(2026, 3, 1)

	tests := []struct {
		name      string
		firstDate *time.Time
		today     time.Time
		want      int
	}{
		{"no execution history", nil, date(2026, 3, 10), 1},
		{"same day as first run", &first, date(2026, 3, 1), 1},
		{"one day later", &first, date(2026, 3, 2), 2},
		{"two weeks in", &first, date(2026, 3, 15), 15},
		{"clock moved backwards", &first, date(2026, 2, 20), 1},
		{"time of day ignored", &first, time.Date(2026, 3, 3, 23, 59, 0, 0, time.UTC), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDay(tt.firstDate, tt.today))
		})
	}
}

func TestCurrentDayClampsToPlan(t *testing.T) {
	f := newTestFixture(Options{})
	for day := 1; day <= 15; day++ {
		f.planDay(day, day*5, true)
	}
	first := date(2026, 3, 1)
	f.executions.firstDate = &first

	day, planComplete, err := f.engine.CurrentDay(context.Background(), date(2026, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, day)
	assert.False(t, planComplete)

	// Past the last plan day the engine reports the plan as exhausted instead
	// of extrapolating.
	day, planComplete, err = f.engine.CurrentDay(context.Background(), date(2026, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 15, day)
	assert.True(t, planComplete)
}

func TestCurrentDayEmptyPlan(t *testing.T) {
	f := newTestFixture(Options{})

	day, planComplete, err := f.engine.CurrentDay(context.Background(), date(2026, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, day)
	assert.False(t, planComplete)
}
