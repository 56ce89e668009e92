package usage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const memoryDSN = ":memory:"

// busyTimeoutMillis is how long a writer waits on a locked spool.
const busyTimeoutMillis = 5000

const usageSchema = `
CREATE TABLE IF NOT EXISTS usage_events (
    id              TEXT PRIMARY KEY,
    recorded_at     TEXT NOT NULL,
    is_module       TEXT NOT NULL,
    target_platform TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_events_recorded_at ON usage_events(recorded_at);
`

// Event is one spooled usage record.
type Event struct {
	ID         string
	RecordedAt time.Time
	Dimensions Dimensions
}

// SQLiteSink spools usage events to a local SQLite database until an uploader
// drains them.
type SQLiteSink struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteSink opens (creating if needed) the spool at path. Use ":memory:"
// for an in-process spool.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	dsn := path
	if path != memoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create spool directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyTimeoutMillis)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage spool: %w", err)
	}
	// Single writer; also keeps one shared connection for :memory:.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(usageSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize usage spool schema: %w", err)
	}

	return &SQLiteSink{db: db, now: time.Now}, nil
}

// Record inserts one event.
func (s *SQLiteSink) Record(ctx context.Context, dims Dimensions) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_events (id, recorded_at, is_module, target_platform) VALUES (?, ?, ?, ?)`,
		uuid.New().String(),
		s.now().UTC().Format(time.RFC3339Nano),
		dims.IsModule(),
		dims.TargetPlatform(),
	)
	if err != nil {
		return fmt.Errorf("failed to spool usage event: %w", err)
	}
	return nil
}

// Count returns the number of spooled events.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count usage events: %w", err)
	}
	return n, nil
}

// Recent returns up to limit events, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recorded_at, is_module, target_platform FROM usage_events
		 ORDER BY recorded_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var id, recordedAt, isModule, platform string
		if err := rows.Scan(&id, &recordedAt, &isModule, &platform); err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp on usage event %s: %w", id, err)
		}
		events = append(events, Event{
			ID:         id,
			RecordedAt: ts,
			Dimensions: Dimensions{
				DimensionIsModule:       isModule,
				DimensionTargetPlatform: platform,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage events: %w", err)
	}
	return events, nil
}

// Close closes the spool database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
