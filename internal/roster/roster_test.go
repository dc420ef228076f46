package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/albapepper/brawl-club/internal/provider"
	"github.com/albapepper/brawl-club/internal/provider/brawl"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type fakeFetcher struct {
	clubs map[string][]provider.Member
	fail  map[string]error
	calls []string
}

func (f *fakeFetcher) FetchClub(ctx context.Context, code string) (*provider.Club, error) {
	tag := provider.ParseClubTag(code)
	f.calls = append(f.calls, tag)
	if err, ok := f.fail[tag]; ok {
		return nil, err
	}
	members := f.clubs[tag]
	return &provider.Club{Tag: "#" + tag, Members: append([]provider.Member(nil), members...)}, nil
}

type fakeStore struct {
	members []provider.Member
	former  []provider.Member
	ops     []string
	gets    int

	getErr    error
	saveErr   error
	formerErr error
}

func (s *fakeStore) GetMembers(ctx context.Context) ([]provider.Member, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return append([]provider.Member(nil), s.members...), nil
}

func (s *fakeStore) SaveMember(ctx context.Context, m provider.Member) error {
	s.ops = append(s.ops, "save "+m.Tag)
	if s.saveErr != nil {
		return s.saveErr
	}
	for i := range s.members {
		if s.members[i].Tag == m.Tag {
			s.members[i] = m
			return nil
		}
	}
	s.members = append(s.members, m)
	return nil
}

func (s *fakeStore) RemoveMember(ctx context.Context, m provider.Member) error {
	s.ops = append(s.ops, "remove "+m.Tag)
	for i := range s.members {
		if s.members[i].Tag == m.Tag {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeStore) AddFormerMember(ctx context.Context, m provider.Member) error {
	s.ops = append(s.ops, "former "+m.Tag)
	if s.formerErr != nil {
		return s.formerErr
	}
	s.former = append(s.former, m)
	return nil
}

func (s *fakeStore) tags() []string {
	tags := make([]string, len(s.members))
	for i, m := range s.members {
		tags[i] = m.Tag
	}
	return tags
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newClub(t *testing.T, cfg Config, f Fetcher, s Store) *WholeClub {
	t.Helper()
	w, err := New(cfg, f, s, quietLogger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return w
}

// unavailable builds a fetch error the way the client reports an unreachable
// club or a non-200 answer.
func unavailable(msg string) error {
	return fmt.Errorf("%s: %w", msg, provider.ErrClubUnavailable)
}

func member(tag string, trophies int) provider.Member {
	return provider.Member{Tag: tag, Name: tag, RealName: tag, Trophies: trophies}
}

func birthday(month time.Month, day int) *time.Time {
	t := time.Date(2000, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

func TestNew(t *testing.T) {
	t.Run("requires main club", func(t *testing.T) {
		for _, main := range []string{"", "#", "  "} {
			if _, err := New(Config{Main: main}, &fakeFetcher{}, &fakeStore{}, nil); !errors.Is(err, ErrNoMainClub) {
				t.Errorf("New(%q) error = %v, want ErrNoMainClub", main, err)
			}
		}
	})

	t.Run("rejects unknown policy", func(t *testing.T) {
		if _, err := New(Config{Main: "#A", Policy: "retry"}, &fakeFetcher{}, &fakeStore{}, nil); err == nil {
			t.Fatal("expected error for unknown policy")
		}
	})

	t.Run("codes keep main first and drop blank feeders", func(t *testing.T) {
		w := newClub(t, Config{Main: "#MAIN", Feeders: []string{"#F1", "", "#", "F2"}}, &fakeFetcher{}, &fakeStore{})
		want := []string{"#MAIN", "#F1", "F2"}
		if got := w.Codes(); !reflect.DeepEqual(got, want) {
			t.Errorf("Codes() = %v, want %v", got, want)
		}
		if w.policy != PolicyPreserve {
			t.Errorf("default policy = %q, want %q", w.policy, PolicyPreserve)
		}
	})
}

// --------------------------------------------------------------------------
// Aggregations
// --------------------------------------------------------------------------

func TestTrophies(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		w := newClub(t, Config{Main: "#A"}, &fakeFetcher{}, &fakeStore{})
		got, err := w.Trophies(context.Background())
		if err != nil || got != 0 {
			t.Errorf("Trophies() = %d, %v; want 0, nil", got, err)
		}
	})

	t.Run("sum", func(t *testing.T) {
		store := &fakeStore{members: []provider.Member{member("#1", 3), member("#2", 5), member("#3", 2)}}
		w := newClub(t, Config{Main: "#A"}, &fakeFetcher{}, store)
		got, err := w.Trophies(context.Background())
		if err != nil || got != 10 {
			t.Errorf("Trophies() = %d, %v; want 10, nil", got, err)
		}
	})

	t.Run("storage error", func(t *testing.T) {
		w := newClub(t, Config{Main: "#A"}, &fakeFetcher{}, &fakeStore{getErr: errors.New("db down")})
		if _, err := w.Trophies(context.Background()); err == nil {
			t.Fatal("expected storage error")
		}
	})
}

func TestMonthBirthdays(t *testing.T) {
	a := provider.Member{Tag: "#A", RealName: "X", Birthday: birthday(time.May, 1)}
	b := provider.Member{Tag: "#B", RealName: "X", Birthday: birthday(time.May, 20)}
	c := provider.Member{Tag: "#C", RealName: "Y", Birthday: birthday(time.May, 9)}
	d := provider.Member{Tag: "#D", RealName: "Z", Birthday: birthday(time.June, 9)}
	e := provider.Member{Tag: "#E", RealName: "W"}

	store := &fakeStore{members: []provider.Member{a, b, c, d, e}}
	w := newClub(t, Config{Main: "#A"}, &fakeFetcher{}, store)
	w.now = func() time.Time { return time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC) }

	got, err := w.MonthBirthdays(context.Background())
	if err != nil {
		t.Fatalf("MonthBirthdays() error = %v", err)
	}
	if len(got) != 2 || got[0].Tag != "#A" || got[1].Tag != "#C" {
		t.Errorf("MonthBirthdays() = %v, want [#A #C]", got)
	}

	w.now = func() time.Time { return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC) }
	got, err = w.MonthBirthdays(context.Background())
	if err != nil {
		t.Fatalf("MonthBirthdays() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("MonthBirthdays() in January = %v, want none", got)
	}
}

func TestCountries(t *testing.T) {
	var members []provider.Member
	for i, c := range []string{"US", "FR", "US", "US", "FR"} {
		members = append(members, provider.Member{Tag: fmt.Sprintf("#%d", i), Country: c})
	}
	w := newClub(t, Config{Main: "#A"}, &fakeFetcher{}, &fakeStore{members: members})

	got, err := w.Countries(context.Background())
	if err != nil {
		t.Fatalf("Countries() error = %v", err)
	}
	want := []CountryCount{{"US", 3}, {"FR", 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Countries() = %v, want %v", got, want)
	}

	t.Run("ties keep first-seen order", func(t *testing.T) {
		var members []provider.Member
		for i, c := range []string{"BR", "DE", "JP", "DE", "BR", "JP", "PT"} {
			members = append(members, provider.Member{Tag: fmt.Sprintf("#%d", i), Country: c})
		}
		got := countCountries(members)
		want := []CountryCount{{"BR", 2}, {"DE", 2}, {"JP", 2}, {"PT", 1}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("countCountries() = %v, want %v", got, want)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := countCountries(nil); len(got) != 0 {
			t.Errorf("countCountries(nil) = %v", got)
		}
	})
}

// --------------------------------------------------------------------------
// UpdateMembers
// --------------------------------------------------------------------------

func TestUpdateMembers(t *testing.T) {
	ctx := context.Background()

	t.Run("main then feeders in order", func(t *testing.T) {
		fetcher := &fakeFetcher{clubs: map[string][]provider.Member{
			"MAIN": {member("#M1", 10), member("#M2", 20)},
			"F1":   {member("#F1a", 5)},
			"F2":   {member("#F2a", 1)},
		}}
		store := &fakeStore{}
		w := newClub(t, Config{Main: "#MAIN", Feeders: []string{"#F1", "F2"}}, fetcher, store)

		result, err := w.UpdateMembers(ctx)
		if err != nil {
			t.Fatalf("UpdateMembers() error = %v", err)
		}
		if !reflect.DeepEqual(fetcher.calls, []string{"MAIN", "F1", "F2"}) {
			t.Errorf("fetch order = %v", fetcher.calls)
		}
		wantOps := []string{"save #M1", "save #M2", "save #F1a", "save #F2a"}
		if !reflect.DeepEqual(store.ops, wantOps) {
			t.Errorf("ops = %v, want %v", store.ops, wantOps)
		}
		if result.Fetched != 4 || result.Saved != 4 || result.Removed != 0 {
			t.Errorf("result = %s", result.Summary())
		}
	})

	t.Run("former members are recorded then removed", func(t *testing.T) {
		a, b := member("#A", 1), member("#B", 2)
		fetcher := &fakeFetcher{clubs: map[string][]provider.Member{"MAIN": {a}}}
		store := &fakeStore{members: []provider.Member{a, b}}
		w := newClub(t, Config{Main: "MAIN"}, fetcher, store)

		result, err := w.UpdateMembers(ctx)
		if err != nil {
			t.Fatalf("UpdateMembers() error = %v", err)
		}
		wantOps := []string{"former #B", "remove #B", "save #A"}
		if !reflect.DeepEqual(store.ops, wantOps) {
			t.Errorf("ops = %v, want %v", store.ops, wantOps)
		}
		if !reflect.DeepEqual(store.tags(), []string{"#A"}) {
			t.Errorf("stored = %v, want [#A]", store.tags())
		}
		if len(store.former) != 1 || store.former[0].Tag != "#B" {
			t.Errorf("former = %v", store.former)
		}
		if result.Removed != 1 || len(result.Former) != 1 {
			t.Errorf("result = %s", result.Summary())
		}
	})

	t.Run("former members processed in stored order", func(t *testing.T) {
		fetcher := &fakeFetcher{clubs: map[string][]provider.Member{"MAIN": {member("#K", 1)}}}
		store := &fakeStore{members: []provider.Member{member("#Z", 1), member("#K", 1), member("#A", 1)}}
		w := newClub(t, Config{Main: "MAIN"}, fetcher, store)

		if _, err := w.UpdateMembers(ctx); err != nil {
			t.Fatalf("UpdateMembers() error = %v", err)
		}
		wantOps := []string{"former #Z", "remove #Z", "former #A", "remove #A", "save #K"}
		if !reflect.DeepEqual(store.ops, wantOps) {
			t.Errorf("ops = %v, want %v", store.ops, wantOps)
		}
	})

	t.Run("upsert refreshes attributes", func(t *testing.T) {
		fetcher := &fakeFetcher{clubs: map[string][]provider.Member{"MAIN": {member("#A", 500)}}}
		store := &fakeStore{members: []provider.Member{member("#A", 100)}}
		w := newClub(t, Config{Main: "MAIN"}, fetcher, store)

		if _, err := w.UpdateMembers(ctx); err != nil {
			t.Fatalf("UpdateMembers() error = %v", err)
		}
		if len(store.members) != 1 || store.members[0].Trophies != 500 {
			t.Errorf("stored = %+v", store.members)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		fetcher := &fakeFetcher{clubs: map[string][]provider.Member{
			"MAIN": {member("#A", 1), member("#B", 2)},
			"F1":   {member("#C", 3)},
		}}
		store := &fakeStore{members: []provider.Member{member("#OLD", 9)}}
		w := newClub(t, Config{Main: "MAIN", Feeders: []string{"F1"}}, fetcher, store)

		if _, err := w.UpdateMembers(ctx); err != nil {
			t.Fatalf("first UpdateMembers() error = %v", err)
		}
		first := store.tags()
		formerAfterFirst := len(store.former)

		result, err := w.UpdateMembers(ctx)
		if err != nil {
			t.Fatalf("second UpdateMembers() error = %v", err)
		}
		if !reflect.DeepEqual(store.tags(), first) {
			t.Errorf("stored after second run = %v, want %v", store.tags(), first)
		}
		if len(store.former) != formerAfterFirst || result.Removed != 0 {
			t.Errorf("second run marked members former: %v", store.former)
		}
	})

	t.Run("failed feeder does not touch main club", func(t *testing.T) {
		a, f := member("#A", 1), member("#F", 1)
		fetcher := &fakeFetcher{
			clubs: map[string][]provider.Member{"MAIN": {a}},
			fail:  map[string]error{"F1": unavailable("status 503")},
		}
		store := &fakeStore{members: []provider.Member{a, f}}
		w := newClub(t, Config{Main: "MAIN", Feeders: []string{"F1"}}, fetcher, store)

		result, err := w.UpdateMembers(ctx)
		if err != nil {
			t.Fatalf("UpdateMembers() error = %v", err)
		}
		if !result.RemovalsSkipped {
			t.Error("RemovalsSkipped = false, want true")
		}
		if !reflect.DeepEqual(result.FailedClubs, []string{"F1"}) {
			t.Errorf("FailedClubs = %v", result.FailedClubs)
		}
		if !reflect.DeepEqual(store.ops, []string{"save #A"}) {
			t.Errorf("ops = %v, want [save #A]", store.ops)
		}
		if !reflect.DeepEqual(store.tags(), []string{"#A", "#F"}) {
			t.Errorf("stored = %v", store.tags())
		}
	})

	t.Run("abort policy leaves storage untouched", func(t *testing.T) {
		fetcher := &fakeFetcher{
			clubs: map[string][]provider.Member{"MAIN": {member("#A", 1)}},
			fail:  map[string]error{"F1": unavailable("status 404")},
		}
		store := &fakeStore{members: []provider.Member{member("#B", 1)}}
		w := newClub(t, Config{Main: "MAIN", Feeders: []string{"F1"}, Policy: PolicyAbort}, fetcher, store)

		_, err := w.UpdateMembers(ctx)
		if !errors.Is(err, ErrFetchFailed) {
			t.Fatalf("error = %v, want ErrFetchFailed", err)
		}
		var fe *FetchError
		if !errors.As(err, &fe) || len(fe.Failures) != 1 || fe.Failures[0].Code != "F1" {
			t.Errorf("FetchError = %+v", fe)
		}
		if len(store.ops) != 0 {
			t.Errorf("ops = %v, want none", store.ops)
		}
	})

	t.Run("lenient policy removes members of failed club", func(t *testing.T) {
		a, f := member("#A", 1), member("#F", 1)
		fetcher := &fakeFetcher{
			clubs: map[string][]provider.Member{"MAIN": {a}},
			fail:  map[string]error{"F1": unavailable("status 503")},
		}
		store := &fakeStore{members: []provider.Member{a, f}}
		w := newClub(t, Config{Main: "MAIN", Feeders: []string{"F1"}, Policy: PolicyLenient}, fetcher, store)

		result, err := w.UpdateMembers(ctx)
		if err != nil {
			t.Fatalf("UpdateMembers() error = %v", err)
		}
		wantOps := []string{"former #F", "remove #F", "save #A"}
		if !reflect.DeepEqual(store.ops, wantOps) {
			t.Errorf("ops = %v, want %v", store.ops, wantOps)
		}
		if result.RemovalsSkipped {
			t.Error("RemovalsSkipped = true under lenient policy")
		}
	})

	t.Run("add former error stops before remove", func(t *testing.T) {
		fetcher := &fakeFetcher{clubs: map[string][]provider.Member{"MAIN": {member("#A", 1)}}}
		store := &fakeStore{
			members:   []provider.Member{member("#A", 1), member("#B", 1)},
			formerErr: errors.New("insert failed"),
		}
		w := newClub(t, Config{Main: "MAIN"}, fetcher, store)

		if _, err := w.UpdateMembers(ctx); err == nil {
			t.Fatal("expected storage error")
		}
		if !reflect.DeepEqual(store.ops, []string{"former #B"}) {
			t.Errorf("ops = %v, want [former #B]", store.ops)
		}
	})

	t.Run("save error is returned", func(t *testing.T) {
		fetcher := &fakeFetcher{clubs: map[string][]provider.Member{"MAIN": {member("#A", 1), member("#B", 1)}}}
		store := &fakeStore{saveErr: errors.New("constraint")}
		w := newClub(t, Config{Main: "MAIN"}, fetcher, store)

		result, err := w.UpdateMembers(ctx)
		if err == nil {
			t.Fatal("expected save error")
		}
		if result.Saved != 0 || len(store.ops) != 1 {
			t.Errorf("result = %s, ops = %v", result.Summary(), store.ops)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		fetcher := &fakeFetcher{fail: map[string]error{"MAIN": context.Canceled}}
		store := &fakeStore{members: []provider.Member{member("#A", 1)}}
		w := newClub(t, Config{Main: "MAIN"}, fetcher, store)

		if _, err := w.UpdateMembers(cctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
		if len(store.ops) != 0 {
			t.Errorf("ops = %v, want none", store.ops)
		}
	})
}

func TestUpdateMembersMalformedPayload(t *testing.T) {
	ctx := context.Background()

	for _, policy := range []Policy{PolicyPreserve, PolicyAbort, PolicyLenient} {
		t.Run(string(policy), func(t *testing.T) {
			a, f := member("#A", 1), member("#F", 1)
			fetcher := &fakeFetcher{
				clubs: map[string][]provider.Member{"MAIN": {a}},
				fail:  map[string]error{"F1": errors.New("decode club #F1: response has no members list")},
			}
			store := &fakeStore{members: []provider.Member{a, f}}
			w := newClub(t, Config{Main: "MAIN", Feeders: []string{"F1"}, Policy: policy}, fetcher, store)

			result, err := w.UpdateMembers(ctx)
			if err == nil {
				t.Fatal("expected error for malformed payload")
			}
			if errors.Is(err, ErrFetchFailed) {
				t.Errorf("error = %v, should not be a FetchError", err)
			}
			if store.gets != 0 || len(store.ops) != 0 {
				t.Errorf("gets = %d, ops = %v, want storage untouched", store.gets, store.ops)
			}
			if result.Saved != 0 || result.Removed != 0 {
				t.Errorf("result = %s", result.Summary())
			}
		})
	}

	t.Run("client response without members", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if strings.HasSuffix(r.URL.Path, "MAIN") {
				fmt.Fprint(w, `{"tag":"#MAIN","name":"Main","members":[{"tag":"#A","name":"Shelly","trophies":1}]}`)
				return
			}
			fmt.Fprint(w, `{"tag":"#FEED"}`)
		}))
		defer srv.Close()

		client := brawl.NewClient(srv.URL, "key", 0, quietLogger)
		store := &fakeStore{members: []provider.Member{member("#A", 1), member("#F", 1)}}
		w := newClub(t, Config{Main: "MAIN", Feeders: []string{"FEED"}, Policy: PolicyLenient}, client, store)

		if _, err := w.UpdateMembers(ctx); err == nil {
			t.Fatal("expected error for feeder without members list")
		}
		if store.gets != 0 || len(store.ops) != 0 {
			t.Errorf("gets = %d, ops = %v, want storage untouched", store.gets, store.ops)
		}
		if !reflect.DeepEqual(store.tags(), []string{"#A", "#F"}) {
			t.Errorf("stored = %v", store.tags())
		}
	})

	t.Run("client status error counts as failed club", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "MAIN") {
				fmt.Fprint(w, `{"tag":"#MAIN","members":[{"tag":"#A","name":"Shelly","trophies":1}]}`)
				return
			}
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := brawl.NewClient(srv.URL, "key", 0, quietLogger)
		store := &fakeStore{members: []provider.Member{member("#A", 1), member("#F", 1)}}
		w := newClub(t, Config{Main: "MAIN", Feeders: []string{"FEED"}}, client, store)

		result, err := w.UpdateMembers(ctx)
		if err != nil {
			t.Fatalf("UpdateMembers() error = %v", err)
		}
		if !result.RemovalsSkipped || !reflect.DeepEqual(result.FailedClubs, []string{"FEED"}) {
			t.Errorf("result = %+v", result)
		}
		if !reflect.DeepEqual(store.ops, []string{"save #A"}) {
			t.Errorf("ops = %v, want [save #A]", store.ops)
		}
	})
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Failures: []ClubFailure{
		{Code: "#A", Err: errors.New("boom")},
		{Code: "#B", Err: errors.New("bang")},
	}}
	want := "fetch failed for #A: boom; #B: bang"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
