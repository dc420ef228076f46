package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/albapepper/brawl-club/internal/provider"
	"github.com/albapepper/brawl-club/internal/roster"
)

type fakeClub struct {
	result    roster.SyncResult
	err       error
	birthdays []provider.Member
	syncs     int
}

func (f *fakeClub) UpdateMembers(ctx context.Context) (roster.SyncResult, error) {
	f.syncs++
	return f.result, f.err
}

func (f *fakeClub) MonthBirthdays(ctx context.Context) ([]provider.Member, error) {
	return f.birthdays, nil
}

type fakeCache struct{ clears int }

func (f *fakeCache) Clear() int {
	f.clears++
	return 3
}

type fakeAnnouncer struct {
	departures [][]provider.Member
	birthdays  []time.Month
	err        error
}

func (f *fakeAnnouncer) AnnounceDepartures(ctx context.Context, former []provider.Member) error {
	f.departures = append(f.departures, former)
	return f.err
}

func (f *fakeAnnouncer) AnnounceBirthdays(ctx context.Context, members []provider.Member, month time.Month) error {
	f.birthdays = append(f.birthdays, month)
	return f.err
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSyncerRun(t *testing.T) {
	ctx := context.Background()

	t.Run("clears cache and announces departures", func(t *testing.T) {
		club := &fakeClub{result: roster.SyncResult{Saved: 2, Removed: 1, Former: []provider.Member{{Tag: "#B"}}}}
		cache := &fakeCache{}
		ann := &fakeAnnouncer{}
		s := NewSyncer(club, cache, ann, quiet)

		result, err := s.Run(ctx)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Removed != 1 || cache.clears != 1 {
			t.Errorf("removed=%d clears=%d", result.Removed, cache.clears)
		}
		if len(ann.departures) != 1 || ann.departures[0][0].Tag != "#B" {
			t.Errorf("departures = %v", ann.departures)
		}
	})

	t.Run("no departures, no announcement", func(t *testing.T) {
		ann := &fakeAnnouncer{}
		s := NewSyncer(&fakeClub{result: roster.SyncResult{Saved: 1}}, nil, ann, quiet)
		if _, err := s.Run(ctx); err != nil {
			t.Fatal(err)
		}
		if len(ann.departures) != 0 {
			t.Errorf("unexpected announcement: %v", ann.departures)
		}
	})

	t.Run("announcement failure is recorded, not returned", func(t *testing.T) {
		club := &fakeClub{result: roster.SyncResult{Former: []provider.Member{{Tag: "#B"}}}}
		s := NewSyncer(club, nil, &fakeAnnouncer{err: errors.New("blocked")}, quiet)
		result, err := s.Run(ctx)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(result.Errors) != 1 {
			t.Errorf("Errors = %v", result.Errors)
		}
	})

	t.Run("abort leaves cache alone", func(t *testing.T) {
		cache := &fakeCache{}
		club := &fakeClub{err: &roster.FetchError{Failures: []roster.ClubFailure{{Code: "#F", Err: errors.New("503")}}}}
		s := NewSyncer(club, cache, nil, quiet)

		_, err := s.Run(ctx)
		if !errors.Is(err, roster.ErrFetchFailed) {
			t.Fatalf("error = %v, want ErrFetchFailed", err)
		}
		if cache.clears != 0 {
			t.Errorf("cache cleared %d times after aborted sync", cache.clears)
		}
	})

	t.Run("partial write clears cache", func(t *testing.T) {
		cache := &fakeCache{}
		club := &fakeClub{result: roster.SyncResult{Saved: 3}, err: errors.New("db gone")}
		s := NewSyncer(club, cache, nil, quiet)
		if _, err := s.Run(ctx); err == nil {
			t.Fatal("expected error")
		}
		if cache.clears != 1 {
			t.Errorf("clears = %d, want 1", cache.clears)
		}
	})
}

func TestSyncerTryRun(t *testing.T) {
	club := &fakeClub{}
	s := NewSyncer(club, nil, nil, quiet)

	s.mu.Lock()
	_, err := s.TryRun(context.Background())
	s.mu.Unlock()
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("error = %v, want ErrSyncInProgress", err)
	}
	if club.syncs != 0 {
		t.Errorf("syncs = %d while locked", club.syncs)
	}

	if _, err := s.TryRun(context.Background()); err != nil {
		t.Fatalf("TryRun() error = %v", err)
	}
	if club.syncs != 1 {
		t.Errorf("syncs = %d, want 1", club.syncs)
	}
}

func TestAnnounceBirthdays(t *testing.T) {
	ann := &fakeAnnouncer{}
	s := NewSyncer(&fakeClub{}, nil, ann, quiet)
	s.now = func() time.Time { return time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC) }

	if err := s.AnnounceBirthdays(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ann.birthdays) != 1 || ann.birthdays[0] != time.March {
		t.Errorf("birthdays = %v", ann.birthdays)
	}

	if err := NewSyncer(&fakeClub{}, nil, nil, quiet).AnnounceBirthdays(context.Background()); err != nil {
		t.Errorf("nil announcer error = %v", err)
	}
}

func TestMonthTracker(t *testing.T) {
	start := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)
	m := newMonthTracker(start)

	if m.advance(start.Add(24 * time.Hour)) {
		t.Error("advance within the same month returned true")
	}
	if !m.advance(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("advance into February returned false")
	}
	if m.advance(time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)) {
		t.Error("second February tick returned true")
	}
	if !m.advance(time.Date(2027, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("same month next year returned false")
	}
}
