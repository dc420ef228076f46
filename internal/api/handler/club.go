package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/albapepper/brawl-club/internal/api/respond"
	"github.com/albapepper/brawl-club/internal/cache"
	"github.com/albapepper/brawl-club/internal/maintenance"
	"github.com/albapepper/brawl-club/internal/provider"
	"github.com/albapepper/brawl-club/internal/roster"
)

const maxFormerLimit = 500

// syncTimeout bounds a triggered sync. It stays under the server's write
// timeout so the response can still be sent.
const syncTimeout = 90 * time.Second

// MembersResponse is the body of GET /club/members.
type MembersResponse struct {
	Count   int               `json:"count"`
	Members []provider.Member `json:"members"`
}

// TrophiesResponse is the body of GET /club/trophies.
type TrophiesResponse struct {
	Trophies int `json:"trophies"`
}

// BirthdaysResponse is the body of GET /club/birthdays.
type BirthdaysResponse struct {
	Month   string            `json:"month"`
	Members []provider.Member `json:"members"`
}

// CountriesResponse is the body of GET /club/countries.
type CountriesResponse struct {
	Countries []roster.CountryCount `json:"countries"`
}

// GetMembers returns the stored roster.
// @Summary List club members
// @Description Returns every stored member of the main club and its feeders, in insertion order.
// @Tags club
// @Produce json
// @Success 200 {object} MembersResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/club/members [get]
func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "club:members", cache.TTLRoster, func() (interface{}, error) {
		members, err := h.club.Members(r.Context())
		if err != nil {
			return nil, err
		}
		return MembersResponse{Count: len(members), Members: members}, nil
	})
}

// GetTrophies returns the trophy total.
// @Summary Club trophy total
// @Description Sums trophies across all stored members.
// @Tags club
// @Produce json
// @Success 200 {object} TrophiesResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/club/trophies [get]
func (h *Handler) GetTrophies(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "club:trophies", cache.TTLRoster, func() (interface{}, error) {
		total, err := h.club.Trophies(r.Context())
		if err != nil {
			return nil, err
		}
		return TrophiesResponse{Trophies: total}, nil
	})
}

// GetBirthdays returns this month's birthdays.
// @Summary Birthdays this month
// @Description Members with a birthday in the current month, one per real name.
// @Tags club
// @Produce json
// @Success 200 {object} BirthdaysResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/club/birthdays [get]
func (h *Handler) GetBirthdays(w http.ResponseWriter, r *http.Request) {
	month := h.now().Month()
	key := fmt.Sprintf("club:birthdays:%d", month)
	h.serveCached(w, r, key, cache.TTLMonthly, func() (interface{}, error) {
		members, err := h.club.MonthBirthdays(r.Context())
		if err != nil {
			return nil, err
		}
		return BirthdaysResponse{Month: month.String(), Members: members}, nil
	})
}

// GetCountries returns the country distribution.
// @Summary Member countries
// @Description Member count per country, highest first.
// @Tags club
// @Produce json
// @Success 200 {object} CountriesResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/club/countries [get]
func (h *Handler) GetCountries(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "club:countries", cache.TTLRoster, func() (interface{}, error) {
		counts, err := h.club.Countries(r.Context())
		if err != nil {
			return nil, err
		}
		return CountriesResponse{Countries: counts}, nil
	})
}

// GetFormer lists recent departures.
// @Summary Former members
// @Description Members that left, most recent first.
// @Tags club
// @Produce json
// @Param limit query int false "Maximum rows (default 50, max 500)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/club/former [get]
func (h *Handler) GetFormer(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respond.WriteError(w, http.StatusBadRequest, respond.CodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxFormerLimit)
	}
	if h.former == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, respond.CodeUnavailable, "Former member record unavailable")
		return
	}

	h.serveCached(w, r, fmt.Sprintf("club:former:%d", limit), cache.TTLFormer, func() (interface{}, error) {
		former, err := h.former.FormerMembers(r.Context(), limit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"count": len(former), "former": former}, nil
	})
}

// TriggerSync runs UpdateMembers now.
// @Summary Sync the roster
// @Description Fetches every club, records departures and upserts members. Returns 409 while another sync runs.
// @Tags club
// @Produce json
// @Success 200 {object} roster.SyncResult
// @Failure 409 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/club/sync [post]
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, respond.CodeUnavailable, "Sync is not configured")
		return
	}

	// A sync must not stop between recording a departure and removing the
	// member, so it outlives a client that hangs up.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), syncTimeout)
	defer cancel()

	result, err := h.syncer.TryRun(ctx)
	switch {
	case err == nil:
		respond.WriteJSONObject(w, http.StatusOK, result)
	case errors.Is(err, maintenance.ErrSyncInProgress):
		respond.WriteError(w, http.StatusConflict, respond.CodeSyncInProcess, "A sync is already running")
	case errors.Is(err, roster.ErrFetchFailed):
		respond.WriteErrorDetail(w, http.StatusBadGateway, respond.CodeFetchFailed,
			"Roster fetch failed, storage untouched", err.Error())
	default:
		respond.WriteErrorDetail(w, http.StatusInternalServerError, respond.CodeInternal,
			"Sync failed", err.Error())
	}
}
