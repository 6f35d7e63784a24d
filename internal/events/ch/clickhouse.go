package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"github.com/Vinodvinum/LibraryManagement/internal/events"
)

// Options holds the ClickHouse connection settings.
type Options struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseTLS   bool
}

// Sink appends ledger events to the ledger_events table.
type Sink struct {
	conn clickhouse.Conn
}

// NewSink opens a native-protocol connection to ClickHouse
func NewSink(opts Options) (*Sink, error) {
	options := &clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", opts.Host, opts.Port)},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
		DialTimeout: 10 * time.Second,
	}
	if opts.UseTLS {
		options.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return &Sink{conn: conn}, nil
}

// Initialize creates the events table when it does not exist yet.
func (s *Sink) Initialize(ctx context.Context) error {
	err := s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_events (
			kind LowCardinality(String),
			occurred_at DateTime64(3, 'UTC'),
			book_id UUID,
			loan_id UUID,
			patron_id UUID,
			overdue_days Int32,
			fine_amount Int32
		) ENGINE = MergeTree()
		ORDER BY (occurred_at, book_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create ledger_events: %w", err)
	}
	return nil
}

// Record inserts a single event.
func (s *Sink) Record(ctx context.Context, e events.Event) error {
	err := s.conn.Exec(ctx, `
		INSERT INTO ledger_events (kind, occurred_at, book_id, loan_id, patron_id, overdue_days, fine_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(e.Kind), e.OccurredAt.UTC(), e.BookID, e.LoanID, e.PatronID, int32(e.OverdueDays), int32(e.FineAmount))
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", e.Kind, err)
	}
	return nil
}

// CountByKind returns how many events of each kind were recorded for a book.
func (s *Sink) CountByKind(ctx context.Context, bookID uuid.UUID) (map[events.Kind]uint64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT kind, count() FROM ledger_events
		WHERE book_id = ?
		GROUP BY kind`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[events.Kind]uint64)
	for rows.Next() {
		var (
			kind string
			n    uint64
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[events.Kind(kind)] = n
	}
	return counts, rows.Err()
}

// Close closes the ClickHouse connection
func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
