package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseDialect() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// bind rewrites ? placeholders into the dialect's form.
func (d Dialect) bind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// goose keeps its configuration in package state.
var gooseMu sync.Mutex

// Migrate applies the embedded schema migrations to db.
func Migrate(db *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SQLRecorder stores events in the history_events table.
type SQLRecorder struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLRecorder wraps an open, migrated database.
func NewSQLRecorder(db *sql.DB, dialect Dialect) *SQLRecorder {
	return &SQLRecorder{db: db, dialect: dialect, now: time.Now}
}

// OpenSQL connects to dsn, verifies the connection and migrates the schema.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLRecorder, error) {
	if dsn == "" {
		return nil, fmt.Errorf("history %s: dsn is required", dialect)
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// An in-memory database exists per connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}
	if err := Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLRecorder(db, dialect), nil
}

const insertEvent = `INSERT INTO history_events
(id, kind, file_name, row_count, skipped, message, client_ip, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const selectRecent = `SELECT id, kind, file_name, row_count, skipped, message, client_ip, created_at
FROM history_events
ORDER BY created_at DESC, id DESC
LIMIT ?`

// Record implements Recorder.
func (r *SQLRecorder) Record(ctx context.Context, e Event) error {
	e = prepare(e, r.now)
	_, err := r.db.ExecContext(ctx, r.dialect.bind(insertEvent),
		e.ID, string(e.Kind), e.FileName, e.RowCount, e.Skipped, e.Message, e.ClientIP,
		e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert history event: %w", err)
	}
	return nil
}

// Recent implements Recorder. A limit of zero or less means DefaultCapacity.
func (r *SQLRecorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultCapacity
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.bind(selectRecent), limit)
	if err != nil {
		return nil, fmt.Errorf("query history events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var (
			e       Event
			kind    string
			created int64
		)
		if err := rows.Scan(&e.ID, &kind, &e.FileName, &e.RowCount, &e.Skipped, &e.Message, &e.ClientIP, &created); err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		e.Kind = Kind(kind)
		e.CreatedAt = time.UnixMilli(created).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history events: %w", err)
	}
	return events, nil
}

// Close closes the underlying database.
func (r *SQLRecorder) Close() error {
	return r.db.Close()
}
