package provider

import (
	"fmt"
	"strings"
	"time"
)

// BirthdayLayout is the date format used by the API record and the CLI.
const BirthdayLayout = "2006-01-02"

// MemberRecord is one entry of the "members" list in a club response. The
// profile fields (realName, birthday, country) are optional extensions that
// some proxies attach; the stock API omits them.
type MemberRecord struct {
	Tag      string `json:"tag"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Trophies int    `json:"trophies"`
	RealName string `json:"realName,omitempty"`
	Birthday string `json:"birthday,omitempty"`
	Country  string `json:"country,omitempty"`
}

// ClubInfo is the club metadata attached to each member during construction.
type ClubInfo struct {
	Tag  string
	Name string
}

// NewMember builds a canonical Member from a raw API record plus the club it
// was fetched from.
func NewMember(rec MemberRecord, club ClubInfo) (Member, error) {
	if strings.TrimSpace(rec.Tag) == "" {
		return Member{}, fmt.Errorf("member record without tag (name %q)", rec.Name)
	}

	birthday, err := ParseBirthday(rec.Birthday)
	if err != nil {
		return Member{}, fmt.Errorf("member %s: %w", rec.Tag, err)
	}

	realName := strings.TrimSpace(rec.RealName)
	if realName == "" {
		realName = rec.Name
	}

	return Member{
		Tag:      rec.Tag,
		Name:     rec.Name,
		RealName: realName,
		Birthday: birthday,
		Country:  strings.TrimSpace(rec.Country),
		Trophies: rec.Trophies,
		Role:     rec.Role,
		ClubTag:  club.Tag,
		ClubName: club.Name,
	}, nil
}

// ParseBirthday parses a YYYY-MM-DD date. Empty input yields nil.
func ParseBirthday(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(BirthdayLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parse birthday %q: %w", s, err)
	}
	return &t, nil
}
