// Package sqlite stores the order log in SQLite using the pure-Go driver.
// WAL mode lets the receipt endpoints read while checkouts write.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcmexdev/classic-carry/internal/checkout/orderlog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_logs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    TEXT NOT NULL,
    status      TEXT NOT NULL,
    channel     TEXT NOT NULL DEFAULT '',
    step        TEXT NOT NULL DEFAULT '',
    -- order snapshot, first row only
    payload     TEXT,
    warnings    TEXT NOT NULL DEFAULT '[]',
    trace_id    TEXT NOT NULL DEFAULT '',
    span_id     TEXT NOT NULL DEFAULT '',
    updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_logs_order_id ON order_logs(order_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_order_logs_trace_id ON order_logs(trace_id);
`

type Repository struct {
	db *sql.DB
}

var _ orderlog.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Save(ctx context.Context, entry *orderlog.Entry) error {
	const q = `
		INSERT INTO order_logs
			(order_id, status, channel, step, payload, warnings, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.OrderID,
		string(entry.Status),
		string(entry.Channel),
		entry.Step,
		nullableString(entry.Payload),
		entry.Warnings,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save order log for %q: %w", entry.OrderID, err)
	}
	return nil
}

// GetLatest returns the newest row for orderID with the payload taken from
// the row that stored it.
func (r *Repository) GetLatest(ctx context.Context, orderID string) (*orderlog.Entry, error) {
	const q = `
		SELECT l.order_id, l.status, l.channel, l.step,
		       COALESCE(l.payload, (
		           SELECT p.payload FROM order_logs p
		           WHERE  p.order_id = l.order_id AND p.payload IS NOT NULL
		           ORDER  BY p.id LIMIT 1
		       ), ''),
		       l.warnings, l.trace_id, l.span_id, l.updated_at
		FROM   order_logs l
		WHERE  l.order_id = ?
		ORDER  BY l.updated_at DESC, l.id DESC
		LIMIT  1`

	var entry orderlog.Entry
	var updatedAt string
	err := r.db.QueryRowContext(ctx, q, orderID).Scan(
		&entry.OrderID,
		&entry.Status,
		&entry.Channel,
		&entry.Step,
		&entry.Payload,
		&entry.Warnings,
		&entry.TraceID,
		&entry.SpanID,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: order %q: %w", orderID, orderlog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get latest for %q: %w", orderID, err)
	}

	entry.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
