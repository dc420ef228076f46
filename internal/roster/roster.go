// Package roster reconciles fetched club rosters against stored members and
// computes aggregate views over the stored list.
//
// A WholeClub is one main club plus optional feeder clubs whose members are
// pooled together. Aggregations always re-read storage; nothing is cached.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/albapepper/brawl-club/internal/provider"
)

// ErrNoMainClub is returned by New when the main club code is empty.
var ErrNoMainClub = errors.New("main club code is required")

// Fetcher retrieves the current roster of one club.
type Fetcher interface {
	FetchClub(ctx context.Context, code string) (*provider.Club, error)
}

// Store persists the active roster and the record of former members.
// SaveMember upserts by member tag.
type Store interface {
	GetMembers(ctx context.Context) ([]provider.Member, error)
	SaveMember(ctx context.Context, m provider.Member) error
	RemoveMember(ctx context.Context, m provider.Member) error
	AddFormerMember(ctx context.Context, m provider.Member) error
}

// Config identifies the clubs that make up a WholeClub.
type Config struct {
	Main    string
	Feeders []string
	Policy  Policy
}

// WholeClub is a main club plus its feeders, backed by a Store.
type WholeClub struct {
	main    string
	feeders []string
	policy  Policy
	fetcher Fetcher
	store   Store
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a WholeClub. Club codes may carry a '#' prefix.
func New(cfg Config, fetcher Fetcher, store Store, logger *slog.Logger) (*WholeClub, error) {
	if provider.ParseClubTag(cfg.Main) == "" {
		return nil, ErrNoMainClub
	}
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyPreserve
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown fetch failure policy %q", policy)
	}

	feeders := make([]string, 0, len(cfg.Feeders))
	for _, f := range cfg.Feeders {
		if provider.ParseClubTag(f) != "" {
			feeders = append(feeders, f)
		}
	}

	return &WholeClub{
		main:    cfg.Main,
		feeders: feeders,
		policy:  policy,
		fetcher: fetcher,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Codes returns the main club code followed by the feeder codes, in fetch order.
func (w *WholeClub) Codes() []string {
	codes := make([]string, 0, 1+len(w.feeders))
	codes = append(codes, w.main)
	return append(codes, w.feeders...)
}

// Members returns the stored member list.
func (w *WholeClub) Members(ctx context.Context) ([]provider.Member, error) {
	members, err := w.store.GetMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("get members: %w", err)
	}
	return members, nil
}

// Trophies returns the trophy total across stored members.
func (w *WholeClub) Trophies(ctx context.Context) (int, error) {
	members, err := w.Members(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, m := range members {
		total += m.Trophies
	}
	return total, nil
}

// MonthBirthdays returns members whose birthday falls in the current month.
// Members sharing a real name are reported once, keeping the first in storage
// order.
func (w *WholeClub) MonthBirthdays(ctx context.Context) ([]provider.Member, error) {
	members, err := w.Members(ctx)
	if err != nil {
		return nil, err
	}
	return birthdaysIn(members, w.now().Month()), nil
}

func birthdaysIn(members []provider.Member, month time.Month) []provider.Member {
	seen := make(map[string]struct{})
	result := make([]provider.Member, 0)
	for _, m := range members {
		if m.Birthday == nil || m.Birthday.Month() != month {
			continue
		}
		if _, dup := seen[m.RealName]; dup {
			continue
		}
		seen[m.RealName] = struct{}{}
		result = append(result, m)
	}
	return result
}

// CountryCount is one entry of the country distribution.
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// Countries returns member counts per country, highest count first. Equal
// counts keep the order in which the countries were first seen.
func (w *WholeClub) Countries(ctx context.Context) ([]CountryCount, error) {
	members, err := w.Members(ctx)
	if err != nil {
		return nil, err
	}
	return countCountries(members), nil
}

func countCountries(members []provider.Member) []CountryCount {
	index := make(map[string]int)
	counts := make([]CountryCount, 0)
	for _, m := range members {
		if i, ok := index[m.Country]; ok {
			counts[i].Count++
			continue
		}
		index[m.Country] = len(counts)
		counts = append(counts, CountryCount{Country: m.Country, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
