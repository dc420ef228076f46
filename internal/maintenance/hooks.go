package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/brawl-club/internal/provider"
	"github.com/albapepper/brawl-club/internal/roster"
)

// ErrSyncInProgress is returned by TryRun while another sync holds the lock.
var ErrSyncInProgress = errors.New("sync already in progress")

// Club is the roster the Syncer drives.
type Club interface {
	UpdateMembers(ctx context.Context) (roster.SyncResult, error)
	MonthBirthdays(ctx context.Context) ([]provider.Member, error)
}

// Invalidator drops cached responses after the roster changes.
type Invalidator interface {
	Clear() int
}

// Announcer posts roster news. Optional.
type Announcer interface {
	AnnounceDepartures(ctx context.Context, former []provider.Member) error
	AnnounceBirthdays(ctx context.Context, members []provider.Member, month time.Month) error
}

// Syncer serialises UpdateMembers across the ticker, the HTTP trigger and the
// CLI, then runs the post-sync hooks.
type Syncer struct {
	mu        sync.Mutex
	club      Club
	cache     Invalidator
	announcer Announcer
	logger    *slog.Logger
	now       func() time.Time
}

// NewSyncer builds a Syncer. cache and announcer may be nil.
func NewSyncer(club Club, cache Invalidator, announcer Announcer, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		club:      club,
		cache:     cache,
		announcer: announcer,
		logger:    logger,
		now:       time.Now,
	}
}

// Run waits for any in-flight sync, then syncs.
func (s *Syncer) Run(ctx context.Context) (roster.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx)
}

// TryRun syncs unless another sync is running.
func (s *Syncer) TryRun(ctx context.Context) (roster.SyncResult, error) {
	if !s.mu.TryLock() {
		return roster.SyncResult{}, ErrSyncInProgress
	}
	defer s.mu.Unlock()
	return s.run(ctx)
}

func (s *Syncer) run(ctx context.Context) (roster.SyncResult, error) {
	start := time.Now()
	result, err := s.club.UpdateMembers(ctx)

	// Storage may have changed even when the run stopped on an error.
	if s.cache != nil && (err == nil || result.Saved > 0 || result.Removed > 0) {
		if n := s.cache.Clear(); n > 0 {
			s.logger.Debug("Response cache cleared after sync", "entries", n)
		}
	}
	if err != nil {
		return result, fmt.Errorf("update members: %w", err)
	}

	s.logger.Info("Sync complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"summary", result.Summary())

	if s.announcer != nil && len(result.Former) > 0 {
		if err := s.announcer.AnnounceDepartures(ctx, result.Former); err != nil {
			s.logger.Warn("Departure announcement failed", "count", len(result.Former), "error", err)
			result.AddErrorf("announce departures: %v", err)
		}
	}
	return result, nil
}

// AnnounceBirthdays posts the current month's birthdays. A nil announcer is a
// no-op.
func (s *Syncer) AnnounceBirthdays(ctx context.Context) error {
	if s.announcer == nil {
		return nil
	}
	members, err := s.club.MonthBirthdays(ctx)
	if err != nil {
		return err
	}
	month := s.now().Month()
	if err := s.announcer.AnnounceBirthdays(ctx, members, month); err != nil {
		return err
	}
	s.logger.Info("Birthdays announced", "month", month, "count", len(members))
	return nil
}
