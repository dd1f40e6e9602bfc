// Package jobs runs the periodic housekeeping of the store
package jobs

import (
	"time"

	"travellog/config"
	"travellog/logger"
	"travellog/mapview"
	"travellog/metrics"
	"travellog/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const viewSweepSchedule = "@every 1m"

// StartCleanup schedules PurgeExpired on CLEANUP_SCHEDULE and the idle view sweep every minute.
// Stop the returned cron on shutdown.
func StartCleanup(views *mapview.Registry) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(config.CLEANUP_SCHEDULE, func() { PurgeExpired(time.Now()) }); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(viewSweepSchedule, func() { SweepIdleViews(views, time.Now()) }); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// PurgeExpired removes sessions and verification tokens that expired before now
func PurgeExpired(now time.Time) (sessions, tokens int64) {
	var err error
	if sessions, err = models.SessionsPurgeExpired(now); err != nil {
		logger.L.Error("purging sessions", zap.Error(err))
	}
	if tokens, err = models.VerificationTokensPurgeExpired(now); err != nil {
		logger.L.Error("purging verification tokens", zap.Error(err))
	}
	metrics.PurgedRowsTotal.WithLabelValues("sessions").Add(float64(sessions))
	metrics.PurgedRowsTotal.WithLabelValues("verificationToken").Add(float64(tokens))
	if sessions > 0 || tokens > 0 {
		logger.L.Info("expired rows purged", zap.Int64("sessions", sessions), zap.Int64("verification_tokens", tokens))
	}
	return
}

// SweepIdleViews unmounts views without a stream that saw no client operation for MAP_VIEW_IDLE_MINUTES
func SweepIdleViews(views *mapview.Registry, now time.Time) int {
	if config.MAP_VIEW_IDLE_MINUTES <= 0 {
		return 0
	}
	swept := views.SweepIdle(now, time.Duration(config.MAP_VIEW_IDLE_MINUTES)*time.Minute)
	if swept > 0 {
		logger.L.Info("idle map views unmounted", zap.Int("views", swept))
	}
	return swept
}
