// Package handler provides HTTP handlers for all API endpoints.
// Roster views are computed by roster.WholeClub on every cache miss; encoded
// responses are cached with ETags until the TTL expires or the roster changes.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/albapepper/brawl-club/internal/api/respond"
	"github.com/albapepper/brawl-club/internal/cache"
	"github.com/albapepper/brawl-club/internal/config"
	"github.com/albapepper/brawl-club/internal/provider"
	"github.com/albapepper/brawl-club/internal/roster"
	"github.com/albapepper/brawl-club/internal/store"
)

// Club is the read side of roster.WholeClub.
type Club interface {
	Codes() []string
	Members(ctx context.Context) ([]provider.Member, error)
	Trophies(ctx context.Context) (int, error)
	MonthBirthdays(ctx context.Context) ([]provider.Member, error)
	Countries(ctx context.Context) ([]roster.CountryCount, error)
}

// FormerLister lists departures, most recent first.
type FormerLister interface {
	FormerMembers(ctx context.Context, limit int) ([]store.FormerMember, error)
}

// Pinger reports database reachability.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Syncer runs one roster sync unless another is in progress.
type Syncer interface {
	TryRun(ctx context.Context) (roster.SyncResult, error)
}

// Deps bundles the handler collaborators.
type Deps struct {
	Club   Club
	Former FormerLister
	DB     Pinger
	Syncer Syncer
	Cache  *cache.Cache
	Config *config.Config
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	club   Club
	former FormerLister
	db     Pinger
	syncer Syncer
	cache  *cache.Cache
	cfg    *config.Config
	now    func() time.Time
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	c := d.Cache
	if c == nil {
		c = cache.New(false)
	}
	return &Handler{
		club:   d.Club,
		former: d.Former,
		db:     d.DB,
		syncer: d.Syncer,
		cache:  c,
		cfg:    d.Config,
		now:    time.Now,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the clubs being tracked.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Brawl Club API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"clubs":   h.club.Codes(),
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.HealthCheck(r.Context()) != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": h.now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// serveCached answers from the cache when possible, otherwise builds the
// payload, caches its encoding and writes it.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, build func() (interface{}, error)) {
	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	v, err := build()
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable, respond.CodeUnavailable,
			"Roster storage unavailable", err.Error())
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal, "Failed to encode response")
		return
	}

	etag := h.cache.Set(key, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}
