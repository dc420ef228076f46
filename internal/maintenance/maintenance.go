// Package maintenance runs periodic background tasks as Go tickers: the
// roster sync and the monthly birthday announcement. Both share the Syncer
// used by the HTTP sync trigger, so at most one sync runs at a time.
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	SyncInterval     time.Duration // UpdateMembers
	BirthdayInterval time.Duration // month-change check for birthday posts
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SyncInterval:     30 * time.Minute,
		BirthdayInterval: 1 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, s *Syncer, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"sync", cfg.SyncInterval,
		"birthdays", cfg.BirthdayInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.SyncInterval > 0 {
		t := time.NewTicker(cfg.SyncInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, "sync", func() {
			if _, err := s.Run(ctx); err != nil {
				logger.Warn("Scheduled sync failed", "error", err)
			}
		})
	}

	if cfg.BirthdayInterval > 0 && s.announcer != nil {
		t := time.NewTicker(cfg.BirthdayInterval)
		tickers = append(tickers, t)
		tracker := newMonthTracker(s.now())
		go runLoop(ctx, t.C, "birthdays", func() {
			if tracker.advance(s.now()) {
				if err := s.AnnounceBirthdays(ctx); err != nil {
					logger.Warn("Birthday announcement failed", "error", err)
				}
			}
		})
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// monthTracker reports the first tick of each new calendar month.
type monthTracker struct {
	year  int
	month time.Month
}

func newMonthTracker(now time.Time) *monthTracker {
	return &monthTracker{year: now.Year(), month: now.Month()}
}

func (m *monthTracker) advance(now time.Time) bool {
	if now.Year() == m.year && now.Month() == m.month {
		return false
	}
	m.year, m.month = now.Year(), now.Month()
	return true
}
