// Package listener provides a Postgres LISTEN/NOTIFY consumer for roster
// change events. It holds a dedicated pgx connection (not from the pool)
// listening on the `roster_changed` channel.
//
// The former_members insert trigger fires pg_notify for every departure, so
// cached API responses are dropped even when the sync ran in another process.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	// Channel is the notification channel written by the schema trigger.
	Channel          = "roster_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// RosterEvent is the JSON payload from pg_notify('roster_changed', ...).
type RosterEvent struct {
	Event    string    `json:"event"`
	Tag      string    `json:"tag"`
	Name     string    `json:"name"`
	ClubTag  string    `json:"club_tag"`
	ClubName string    `json:"club_name"`
	LeftAt   time.Time `json:"left_at"`
}

// Invalidator drops cached responses.
type Invalidator interface {
	Clear() int
}

// Start opens a dedicated connection and listens on the roster_changed
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, inv Invalidator, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, inv, logger)
		if ctx.Err() != nil {
			logger.Info("Roster listener stopped (context cancelled)")
			return
		}

		logger.Error("Roster listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, inv Invalidator, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	logger.Info("Roster listener connected", "channel", Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		handlePayload(notification.Payload, inv, logger)
	}
}

// handlePayload logs one event and clears the cache. Unparseable payloads are
// logged and still invalidate, since the roster did change.
func handlePayload(payload string, inv Invalidator, logger *slog.Logger) {
	var event RosterEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Warn("Failed to parse roster event", "payload", payload, "error", err)
	} else {
		logger.Info("Roster event received",
			"event", event.Event,
			"tag", event.Tag,
			"name", event.Name,
			"club", event.ClubName)
	}

	if inv != nil {
		inv.Clear()
	}
}
