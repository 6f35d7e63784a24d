package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names a ledger event.
type Kind string

const (
	KindBorrow      Kind = "borrow"
	KindReturn      Kind = "return"
	KindBookRemoved Kind = "book_removed"
)

// Event is one committed ledger change.
type Event struct {
	Kind        Kind
	OccurredAt  time.Time
	BookID      uuid.UUID
	LoanID      uuid.UUID
	PatronID    uuid.UUID
	OverdueDays int
	FineAmount  int
}

// Sink receives events after the ledger transaction has committed.
type Sink interface {
	Record(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
func (Nop) Close() error                       { return nil }
