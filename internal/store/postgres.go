// Package store persists the club roster in Postgres. Postgres implements
// roster.Store; prepared statement names come from the db package.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albapepper/brawl-club/internal/config"
	"github.com/albapepper/brawl-club/internal/db"
	"github.com/albapepper/brawl-club/internal/provider"
)

// ErrUnknownMember is returned by SetProfile when no stored member has the tag.
var ErrUnknownMember = errors.New("unknown member")

// Querier is the subset of pgxpool.Pool the store uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads and writes the members and former_members tables.
type Postgres struct {
	q Querier
}

// NewPostgres wraps a pool whose connections registered the db statements.
func NewPostgres(q Querier) *Postgres {
	return &Postgres{q: q}
}

// FormerMember is a former_members row.
type FormerMember struct {
	provider.Member
	LeftAt time.Time `json:"left_at"`
}

// GetMembers returns the stored roster in insertion order.
func (s *Postgres) GetMembers(ctx context.Context) ([]provider.Member, error) {
	rows, err := s.q.Query(ctx, db.StmtListMembers)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := make([]provider.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// SaveMember upserts a member by tag. Absent profile fields keep the stored
// values; a real name equal to the in-game name is treated as absent.
func (s *Postgres) SaveMember(ctx context.Context, m provider.Member) error {
	t := config.MembersTable
	_, err := s.q.Exec(ctx, `
		INSERT INTO `+t+` (
			tag, name, real_name, birthday, country,
			trophies, role, club_tag, club_name
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (tag) DO UPDATE SET
			name = EXCLUDED.name,
			real_name = COALESCE(NULLIF(EXCLUDED.real_name, EXCLUDED.name), `+t+`.real_name, EXCLUDED.real_name),
			birthday = COALESCE(EXCLUDED.birthday, `+t+`.birthday),
			country = COALESCE(EXCLUDED.country, `+t+`.country),
			trophies = EXCLUDED.trophies,
			role = EXCLUDED.role,
			club_tag = EXCLUDED.club_tag,
			club_name = EXCLUDED.club_name,
			updated_at = NOW()`,
		m.Tag, m.Name, nilEmpty(m.RealName), m.Birthday, nilEmpty(m.Country),
		m.Trophies, nilEmpty(m.Role), nilEmpty(m.ClubTag), nilEmpty(m.ClubName),
	)
	if err != nil {
		return fmt.Errorf("upsert member %s: %w", m.Tag, err)
	}
	return nil
}

// RemoveMember deletes a member from the active roster. Removing an absent
// member is not an error.
func (s *Postgres) RemoveMember(ctx context.Context, m provider.Member) error {
	if _, err := s.q.Exec(ctx, db.StmtRemoveMember, m.Tag); err != nil {
		return fmt.Errorf("delete member %s: %w", m.Tag, err)
	}
	return nil
}

// AddFormerMember appends a copy of the member to former_members. The insert
// trigger publishes a roster_changed notification.
func (s *Postgres) AddFormerMember(ctx context.Context, m provider.Member) error {
	_, err := s.q.Exec(ctx, db.StmtAddFormer,
		m.Tag, m.Name, nilEmpty(m.RealName), m.Birthday, nilEmpty(m.Country),
		m.Trophies, nilEmpty(m.Role), nilEmpty(m.ClubTag), nilEmpty(m.ClubName),
	)
	if err != nil {
		return fmt.Errorf("insert former member %s: %w", m.Tag, err)
	}
	return nil
}

// FormerMembers returns the most recent departures first.
func (s *Postgres) FormerMembers(ctx context.Context, limit int) ([]FormerMember, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.Query(ctx, db.StmtListFormer, limit)
	if err != nil {
		return nil, fmt.Errorf("query former members: %w", err)
	}
	defer rows.Close()

	former := make([]FormerMember, 0)
	for rows.Next() {
		var (
			f                       FormerMember
			realName, country, role *string
			clubTag, clubName       *string
		)
		if err := rows.Scan(
			&f.Tag, &f.Name, &realName, &f.Birthday, &country,
			&f.Trophies, &role, &clubTag, &clubName, &f.LeftAt,
		); err != nil {
			return nil, fmt.Errorf("scan former member: %w", err)
		}
		f.RealName, f.Country, f.Role = deref(realName), deref(country), deref(role)
		f.ClubTag, f.ClubName = deref(clubTag), deref(clubName)
		if f.RealName == "" {
			f.RealName = f.Name
		}
		former = append(former, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate former members: %w", err)
	}
	return former, nil
}

// SetProfile fills in the profile fields of a stored member. Empty arguments
// leave the stored value unchanged.
func (s *Postgres) SetProfile(ctx context.Context, tag, realName string, birthday *time.Time, country string) error {
	tagged, err := s.q.Exec(ctx, db.StmtSetProfile, tag, nilEmpty(realName), birthday, nilEmpty(country))
	if err != nil {
		return fmt.Errorf("update profile %s: %w", tag, err)
	}
	if tagged.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMember, tag)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func scanMember(rows pgx.Rows) (provider.Member, error) {
	var (
		m                       provider.Member
		realName, country, role *string
		clubTag, clubName       *string
	)
	if err := rows.Scan(
		&m.Tag, &m.Name, &realName, &m.Birthday, &country,
		&m.Trophies, &role, &clubTag, &clubName,
	); err != nil {
		return m, fmt.Errorf("scan member: %w", err)
	}
	m.RealName, m.Country, m.Role = deref(realName), deref(country), deref(role)
	m.ClubTag, m.ClubName = deref(clubTag), deref(clubName)
	if m.RealName == "" {
		m.RealName = m.Name
	}
	return m, nil
}

// nilEmpty returns nil for empty strings (maps to SQL NULL).
func nilEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
