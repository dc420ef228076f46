// Package provider defines canonical data types that the roster client
// normalizes into. These structs are the contract between the HTTP client and
// the roster/storage layers: the client outputs these and the store persists them.
package provider

import (
	"errors"
	"strings"
	"time"
)

// ErrClubUnavailable marks a fetch that failed because the roster service
// could not be reached or answered with a non-200 status. Any other fetch
// error means the payload itself was unusable.
var ErrClubUnavailable = errors.New("club unavailable")

// Member is the canonical club member shape written to the members table.
// Identity is Tag; every other field is refreshed on upsert.
type Member struct {
	Tag      string     `json:"tag"`
	Name     string     `json:"name"`
	RealName string     `json:"real_name"`
	Birthday *time.Time `json:"birthday,omitempty"` // civil date, UTC midnight
	Country  string     `json:"country,omitempty"`
	Trophies int        `json:"trophies"`
	Role     string     `json:"role,omitempty"`
	ClubTag  string     `json:"club_tag"`
	ClubName string     `json:"club_name"`
}

// SameAs reports whether two members are the same player.
func (m Member) SameAs(other Member) bool {
	return m.Tag == other.Tag
}

// Club is the canonical shape of one roster fetch.
type Club struct {
	Tag              string   `json:"tag"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Type             string   `json:"type,omitempty"`
	RequiredTrophies int      `json:"required_trophies"`
	Trophies         int      `json:"trophies"`
	Members          []Member `json:"members"`
}

// ParseClubTag strips surrounding whitespace and '#' characters from a club
// code. "#12AB" and "12AB" both resolve to "12AB".
func ParseClubTag(code string) string {
	return strings.Trim(strings.TrimSpace(code), "#")
}
