package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/albapepper/brawl-club/internal/provider"
)

// Policy decides what UpdateMembers does when a club fetch fails.
type Policy string

const (
	// PolicyPreserve upserts whatever was fetched but skips former-member
	// detection, so members of a club that could not be fetched stay put.
	PolicyPreserve Policy = "preserve"
	// PolicyAbort leaves storage untouched unless every fetch succeeded.
	PolicyAbort Policy = "abort"
	// PolicyLenient treats a failed club as empty; its members are moved to
	// the former record.
	PolicyLenient Policy = "lenient"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyPreserve, PolicyAbort, PolicyLenient:
		return true
	}
	return false
}

// ErrFetchFailed matches any *FetchError via errors.Is.
var ErrFetchFailed = errors.New("club fetch failed")

// ClubFailure records why one club could not be fetched.
type ClubFailure struct {
	Code string
	Err  error
}

// FetchError is returned under PolicyAbort when one or more fetches failed.
type FetchError struct {
	Failures []ClubFailure
}

func (e *FetchError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Code, f.Err)
	}
	return "fetch failed for " + strings.Join(parts, "; ")
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

func (e *FetchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// UpdateMembers fetches the main club and every feeder, moves stored members
// missing from the combined roster to the former record, and upserts every
// fetched member. Storage errors stop the run and are returned as-is.
func (w *WholeClub) UpdateMembers(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	current, failures, err := w.fetchAll(ctx)
	if err != nil {
		return result, err
	}
	result.Fetched = len(current)
	for _, f := range failures {
		result.FailedClubs = append(result.FailedClubs, f.Code)
		result.AddErrorf("fetch %s: %v", f.Code, f.Err)
	}

	if len(failures) > 0 && w.policy == PolicyAbort {
		w.logger.Warn("Roster sync aborted, storage untouched", "failed_clubs", result.FailedClubs)
		return result, &FetchError{Failures: failures}
	}

	saved, err := w.store.GetMembers(ctx)
	if err != nil {
		return result, fmt.Errorf("get stored members: %w", err)
	}

	if len(failures) > 0 && w.policy == PolicyPreserve {
		result.RemovalsSkipped = true
		w.logger.Warn("Skipping former-member detection after failed fetch",
			"failed_clubs", result.FailedClubs, "stored", len(saved))
	} else {
		for _, m := range formerMembers(saved, current) {
			if err := w.store.AddFormerMember(ctx, m); err != nil {
				return result, fmt.Errorf("add former member %s: %w", m.Tag, err)
			}
			if err := w.store.RemoveMember(ctx, m); err != nil {
				return result, fmt.Errorf("remove member %s: %w", m.Tag, err)
			}
			result.Removed++
			result.Former = append(result.Former, m)
			w.logger.Info("Member left the club", "tag", m.Tag, "name", m.Name, "club", m.ClubName)
		}
	}

	for _, m := range current {
		if err := w.store.SaveMember(ctx, m); err != nil {
			return result, fmt.Errorf("save member %s: %w", m.Tag, err)
		}
		result.Saved++
	}

	w.logger.Info("Roster sync finished", "summary", result.Summary())
	return result, nil
}

// fetchAll fetches the main club then each feeder, in order. A club the
// service could not deliver is recorded and contributes no members. Any other
// fetch error, such as a malformed payload, ends the run before storage is
// read, whatever the policy.
func (w *WholeClub) fetchAll(ctx context.Context) ([]provider.Member, []ClubFailure, error) {
	var (
		current  []provider.Member
		failures []ClubFailure
	)
	for _, code := range w.Codes() {
		club, err := w.fetcher.FetchClub(ctx, code)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			if !errors.Is(err, provider.ErrClubUnavailable) {
				return nil, nil, fmt.Errorf("fetch %s: %w", code, err)
			}
			w.logger.Warn("Club fetch failed", "club", code, "error", err)
			failures = append(failures, ClubFailure{Code: code, Err: err})
			continue
		}
		current = append(current, club.Members...)
	}
	return current, failures, nil
}

// formerMembers returns stored members absent from the fetched roster, in
// stored order.
func formerMembers(saved, current []provider.Member) []provider.Member {
	present := make(map[string]struct{}, len(current))
	for _, m := range current {
		present[m.Tag] = struct{}{}
	}
	var former []provider.Member
	for _, m := range saved {
		if _, ok := present[m.Tag]; !ok {
			former = append(former, m)
		}
	}
	return former
}
