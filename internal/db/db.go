// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/brawl-club/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Statements reference the roster tables, so the schema must exist first.
	if err := Migrate(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, StmtHealthCheck).Scan(&n)
}

// Prepared statement names.
const (
	StmtHealthCheck  = "health_check"
	StmtListMembers  = "list_members"
	StmtListFormer   = "list_former_members"
	StmtRemoveMember = "remove_member"
	StmtAddFormer    = "add_former_member"
	StmtSetProfile   = "set_member_profile"
)

const memberColumns = "tag, name, real_name, birthday, country, trophies, role, club_tag, club_name"

func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		StmtHealthCheck: "SELECT 1",

		// Roster reads, insertion order
		StmtListMembers: "SELECT " + memberColumns + " FROM " + config.MembersTable + " ORDER BY id",
		StmtListFormer:  "SELECT " + memberColumns + ", left_at FROM " + config.FormerMembersTable + " ORDER BY left_at DESC, id DESC LIMIT $1",

		// Roster writes
		StmtRemoveMember: "DELETE FROM " + config.MembersTable + " WHERE tag = $1",
		StmtAddFormer: "INSERT INTO " + config.FormerMembersTable + " (" + memberColumns + ") " +
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		StmtSetProfile: "UPDATE " + config.MembersTable + " SET " +
			"real_name = COALESCE($2, real_name), birthday = COALESCE($3, birthday), " +
			"country = COALESCE($4, country), updated_at = NOW() WHERE tag = $1",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
