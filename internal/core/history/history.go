// Package history records upload and clear events for the catalog service.
//
// Events are an audit trail only. The catalog itself is never persisted:
// after a restart the store is empty.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an event.
type Kind string

const (
	KindUpload Kind = "upload"
	KindClear  Kind = "clear"
	KindFailed Kind = "failed"
)

// DefaultCapacity is the number of events kept by a MemoryRecorder when no
// capacity is configured.
const DefaultCapacity = 100

// Event is one entry of the history log.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	FileName  string    `json:"file_name,omitempty"`
	RowCount  int       `json:"row_count"`
	Skipped   int       `json:"skipped"`
	Message   string    `json:"message"`
	ClientIP  string    `json:"client_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder stores events. Implementations are safe for concurrent use.
type Recorder interface {
	// Record stores e. A missing ID or CreatedAt is filled in.
	Record(ctx context.Context, e Event) error
	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]Event, error)
	Close() error
}

// ErrUnknownDriver is returned by Open for unsupported driver names.
var ErrUnknownDriver = errors.New("unknown history driver")

// Open returns the recorder for driver: "memory" (or empty), "sqlite" or
// "postgres". SQL recorders are migrated before they are returned.
func Open(ctx context.Context, driver, dsn string, capacity int) (Recorder, error) {
	switch strings.ToLower(driver) {
	case "", "memory":
		return NewMemoryRecorder(capacity), nil
	case "sqlite", "sqlite3":
		return OpenSQL(ctx, DialectSQLite, dsn)
	case "postgres", "postgresql", "pgx":
		return OpenSQL(ctx, DialectPostgres, dsn)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// prepare fills the fields Record callers may leave empty.
func prepare(e Event, now func() time.Time) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Millisecond)
	return e
}

// MemoryRecorder keeps the most recent events in a fixed-size ring.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
	now    func() time.Time
}

// NewMemoryRecorder returns a recorder holding at most capacity events.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryRecorder{
		events: make([]Event, capacity),
		now:    time.Now,
	}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[m.next] = prepare(e, m.now)
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent implements Recorder.
func (m *MemoryRecorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.next
	if m.full {
		n = len(m.events)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.events)) % len(m.events)
		out = append(out, m.events[idx])
	}
	return out, nil
}

// Close implements Recorder.
func (m *MemoryRecorder) Close() error { return nil }
