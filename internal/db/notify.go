package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"healthmate/pkg"

	"github.com/lib/pq"
)

// DefaultChannel is the NOTIFY channel used when none is configured.
const DefaultChannel = "healthmate_emergency"

// Notifier publishes emergency classifications on a PostgreSQL channel so
// that on-call staff tooling can LISTEN for them.  Only the session ID and
// urgency are sent; conversation content never leaves the process.
type Notifier struct {
	DB      Execer
	Channel string
}

// Execer is the part of *sql.DB the notifier needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewNotifier constructs a new Notifier.  The channel should match the
// ALERT_CHANNEL environment variable.
func NewNotifier(db Execer, channel string) *Notifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Notifier{DB: db, Channel: channel}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// alertPayload is the JSON body of a notification.
type alertPayload struct {
	SessionID string      `json:"session_id"`
	Urgency   pkg.Urgency `json:"urgency"`
	At        time.Time   `json:"at"`
}

// Alert sends a notification to the channel for the given session.
func (n *Notifier) Alert(ctx context.Context, sessionID string, urgency pkg.Urgency) error {
	payload, err := json.Marshal(alertPayload{SessionID: sessionID, Urgency: urgency, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	// NOTIFY does not take bind parameters; pg_notify does.
	_, err = n.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.Channel, string(payload))
	if err != nil {
		return fmt.Errorf("notify %s: %w", pq.QuoteIdentifier(n.Channel), err)
	}
	return nil
}
