package worker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mailwarm/warmup"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// WarmupWorker is the periodic trigger for the orchestration engine: a cron
// entry fires the daily batch at the configured send time and a ticker drives
// the pending-check sweeps. The engine itself holds no timers.
type WarmupWorker struct {
	engine        *warmup.Engine
	dailySendTime string
	checkInterval time.Duration
	checkLimit    int
	logger        *logrus.Logger
}

func NewWarmupWorker(engine *warmup.Engine, dailySendTime string, checkInterval time.Duration, checkLimit int, logger *logrus.Logger) *WarmupWorker {
	return &WarmupWorker{
		engine:        engine,
		dailySendTime: dailySendTime,
		checkInterval: checkInterval,
		checkLimit:    checkLimit,
		logger:        logger,
	}
}

// Start blocks until ctx is cancelled, running both triggers
func (ww *WarmupWorker) Start(ctx context.Context) error {
	spec, err := cronSpec(ww.dailySendTime)
	if err != nil {
		return err
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() { ww.runDailyBatch(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule daily batch: %w", err)
	}
	c.Start()

	ww.logger.WithFields(logrus.Fields{
		"daily_send_time": ww.dailySendTime,
		"check_interval":  ww.checkInterval.String(),
	}).Info("Warmup worker started")

	ticker := time.NewTicker(ww.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ww.logger.Info("Warmup worker shutting down...")
			<-c.Stop().Done()
			return nil
		case <-ticker.C:
			ww.runPendingChecks(ctx)
		}
	}
}

func (ww *WarmupWorker) runDailyBatch(ctx context.Context) {
	result, err := ww.engine.RunDailyBatch(ctx, time.Now().UTC())
	if err != nil {
		ww.logger.WithError(err).Error("Daily batch failed")
		sentry.CaptureException(err)
		return
	}
	ww.logger.WithFields(logrus.Fields{
		"status": result.Status,
		"sent":   result.SentCount,
		"failed": result.FailedCount,
	}).Info("Daily batch trigger finished")
}

func (ww *WarmupWorker) runPendingChecks(ctx context.Context) {
	result, err := ww.engine.RunPendingChecks(ctx, time.Now().UTC(), ww.checkLimit)
	if err != nil {
		ww.logger.WithError(err).Error("Pending check sweep failed")
		sentry.CaptureException(err)
		return
	}
	if result.Checked > 0 {
		ww.logger.WithField("checked", result.Checked).Info("Pending check trigger finished")
	}
}

// cronSpec converts "HH:MM" into a daily cron expression
func cronSpec(sendTime string) (string, error) {
	hourStr, minuteStr, ok := strings.Cut(sendTime, ":")
	if !ok {
		return "", fmt.Errorf("invalid DAILY_SEND_TIME %q, expected HH:MM", sendTime)
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in DAILY_SEND_TIME %q", sendTime)
	}
	minute, err := strconv.Atoi(minuteStr)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in DAILY_SEND_TIME %q", sendTime)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
