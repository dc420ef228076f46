// Package brawl provides the HTTP client for the Brawl Stars club endpoint,
// reached through the RoyaleAPI proxy.
//
// The API uses bearer-token auth and returns a full club roster in a single
// response. Rate limiting is handled via a token bucket limiter.
package brawl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/brawl-club/internal/provider"
)

// Client is the HTTP client for the club roster endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a roster client with rate limiting. A non-positive
// requestsPerMinute disables the limiter.
func NewClient(baseURL, apiKey string, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// StatusError is returned when the roster service answers with anything other
// than 200 OK.
type StatusError struct {
	Code       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("club #%s returned %d: %s", e.Code, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == provider.ErrClubUnavailable
}

// clubResponse is the club payload. Members is a pointer so a missing key can
// be told apart from an empty roster.
type clubResponse struct {
	Tag              string                   `json:"tag"`
	Name             string                   `json:"name"`
	Description      string                   `json:"description"`
	Type             string                   `json:"type"`
	RequiredTrophies int                      `json:"requiredTrophies"`
	Trophies         int                      `json:"trophies"`
	Members          *[]provider.MemberRecord `json:"members"`
}

// FetchClub fetches the roster of one club. The code may carry a '#' prefix.
// Members come back in API order with the club metadata attached.
func (c *Client) FetchClub(ctx context.Context, code string) (*provider.Club, error) {
	tag := provider.ParseClubTag(code)
	if tag == "" {
		return nil, fmt.Errorf("empty club code %q", code)
	}

	body, err := c.get(ctx, tag)
	if err != nil {
		return nil, err
	}

	var raw clubResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode club #%s: %w", tag, err)
	}
	if raw.Members == nil {
		return nil, fmt.Errorf("decode club #%s: response has no members list", tag)
	}

	club := &provider.Club{
		Tag:              raw.Tag,
		Name:             raw.Name,
		Description:      raw.Description,
		Type:             raw.Type,
		RequiredTrophies: raw.RequiredTrophies,
		Trophies:         raw.Trophies,
		Members:          make([]provider.Member, 0, len(*raw.Members)),
	}
	if club.Tag == "" {
		club.Tag = "#" + tag
	}

	info := provider.ClubInfo{Tag: club.Tag, Name: club.Name}
	for _, rec := range *raw.Members {
		m, err := provider.NewMember(rec, info)
		if err != nil {
			return nil, fmt.Errorf("decode club #%s: %w", tag, err)
		}
		club.Members = append(club.Members, m)
	}

	c.logger.Debug("Fetched club roster", "club", club.Tag, "name", club.Name, "members", len(club.Members))
	return club, nil
}

// get performs a rate-limited GET request for a bare club tag.
func (c *Client) get(ctx context.Context, tag string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + "/clubs/%23" + url.PathEscape(tag)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request club #%s: %w: %w", tag, provider.ErrClubUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w: %w", provider.ErrClubUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: tag, StatusCode: resp.StatusCode, Body: truncate(body, 200)}
	}
	return body, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
