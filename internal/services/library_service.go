package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Vinodvinum/LibraryManagement/internal/events"
	"github.com/Vinodvinum/LibraryManagement/internal/models"
	"github.com/Vinodvinum/LibraryManagement/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookUnavailable is returned when a borrow targets an unknown book or one
	// with no copies left on the shelf.
	ErrBookUnavailable = errors.New("book not available")

	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrPatronNotFound is returned when no patron matches the given name.
	ErrPatronNotFound = errors.New("patron not found")

	// ErrAmbiguousPatron is returned when a name (and category) matches more
	// than one patron and the ledger cannot tell which one is meant.
	ErrAmbiguousPatron = errors.New("patron name matches more than one patron")

	// ErrNoOpenLoan is returned when a return finds no open loan for the
	// book and patron.
	ErrNoOpenLoan = errors.New("no open loan for this book and patron")

	// ErrLoanAlreadyOpen is returned when the patron already has this book on loan.
	ErrLoanAlreadyOpen = errors.New("patron already has this book on loan")

	// ErrInvalidBook is returned for a book without title/author or with a
	// quantity below one.
	ErrInvalidBook = errors.New("invalid book")

	// ErrInvalidPatron is returned for a patron without a name or with an
	// unknown category.
	ErrInvalidPatron = errors.New("invalid patron")
)

// ─── Service Interface ────────────────────────────────────────────────────────

// NewBook carries the attributes of a book being catalogued.
type NewBook struct {
	Title         string
	Author        string
	ISBN          string
	ShelfLocation string
	Quantity      int
	CoverImage    []byte
}

// LibraryService is the library ledger: the only place books, patrons and
// loans are changed.
type LibraryService interface {
	AddBook(ctx context.Context, in NewBook) (*models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	SearchBooks(ctx context.Context, title, author string) ([]models.Book, error)
	RemoveBook(ctx context.Context, id uuid.UUID) error

	AddPatron(ctx context.Context, name string, category models.PatronCategory) (*models.Patron, error)
	ListPatrons(ctx context.Context) ([]models.Patron, error)

	Borrow(ctx context.Context, bookID uuid.UUID, patronName string, category models.PatronCategory) (*models.Loan, error)
	ReturnBook(ctx context.Context, bookID uuid.UUID, patronName string, category models.PatronCategory) (*models.Loan, error)

	ListTransactions(ctx context.Context) ([]models.LoanRecord, error)
	OverdueReport(ctx context.Context) ([]models.LoanRecord, error)
	ListPatronLoans(ctx context.Context, patronID uuid.UUID) ([]models.LoanRecord, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type libraryService struct {
	db         *gorm.DB
	bookRepo   repositories.BookRepository
	patronRepo repositories.PatronRepository
	loanRepo   repositories.LoanRepository
	sink       events.Sink
	logger     *zap.Logger
	now        func() time.Time
}

// Option customises a LibraryService.
type Option func(*libraryService)

// WithClock replaces time.Now as the source of borrow and return dates.
func WithClock(now func() time.Time) Option {
	return func(s *libraryService) { s.now = now }
}

// WithEventSink records committed borrows, returns and removals to sink.
func WithEventSink(sink events.Sink) Option {
	return func(s *libraryService) { s.sink = sink }
}

// NewLibraryService wires up all dependencies and returns a LibraryService.
func NewLibraryService(
	db *gorm.DB,
	bookRepo repositories.BookRepository,
	patronRepo repositories.PatronRepository,
	loanRepo repositories.LoanRepository,
	logger *zap.Logger,
	opts ...Option,
) LibraryService {
	s := &libraryService{
		db:         db,
		bookRepo:   bookRepo,
		patronRepo: patronRepo,
		loanRepo:   loanRepo,
		sink:       events.Nop{},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─── Book Management ──────────────────────────────────────────────────────────

// AddBook catalogues a new book. Identical title/author pairs create
// distinct records.
func (s *libraryService) AddBook(ctx context.Context, in NewBook) (*models.Book, error) {
	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)
	if title == "" || author == "" {
		return nil, fmt.Errorf("%w: title and author are required", ErrInvalidBook)
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidBook)
	}

	book := &models.Book{
		Title:         title,
		Author:        author,
		ISBN:          optional(in.ISBN),
		ShelfLocation: optional(in.ShelfLocation),
		Quantity:      in.Quantity,
		CoverImage:    in.CoverImage,
	}
	if err := s.bookRepo.Create(s.db.WithContext(ctx), book); err != nil {
		s.logger.Error("AddBook: failed to create book record", zap.String("title", title), zap.Error(err))
		return nil, err
	}
	s.logger.Info("AddBook: book created",
		zap.String("book_id", book.ID.String()),
		zap.String("title", book.Title),
		zap.Int("quantity", book.Quantity),
		zap.Bool("has_cover", len(book.CoverImage) > 0),
	)
	return book, nil
}

// GetBook returns a single book.
func (s *libraryService) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// ListBooks returns all books in the catalogue, oldest first.
func (s *libraryService) ListBooks(ctx context.Context) ([]models.Book, error) {
	return s.bookRepo.List(s.db.WithContext(ctx))
}

// SearchBooks returns books whose title contains title and whose author
// contains author, ignoring case.
func (s *libraryService) SearchBooks(ctx context.Context, title, author string) ([]models.Book, error) {
	return s.bookRepo.Search(s.db.WithContext(ctx), strings.TrimSpace(title), strings.TrimSpace(author))
}

// RemoveBook deletes a book. Its loans, open or closed, are left untouched.
func (s *libraryService) RemoveBook(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.bookRepo.Delete(s.db.WithContext(ctx), id)
	if err != nil {
		s.logger.Error("RemoveBook: failed to delete book", zap.String("book_id", id.String()), zap.Error(err))
		return err
	}
	if !deleted {
		return ErrBookNotFound
	}
	s.logger.Info("RemoveBook: book removed", zap.String("book_id", id.String()))
	s.record(ctx, events.Event{Kind: events.KindBookRemoved, OccurredAt: s.now(), BookID: id})
	return nil
}

// ─── Patrons ──────────────────────────────────────────────────────────────────

// AddPatron registers a patron. Names need not be unique.
func (s *libraryService) AddPatron(ctx context.Context, name string, category models.PatronCategory) (*models.Patron, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPatron)
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidPatron, category)
	}

	patron := &models.Patron{Name: name, Category: category}
	if err := s.patronRepo.Create(s.db.WithContext(ctx), patron); err != nil {
		s.logger.Error("AddPatron: failed to create patron", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	s.logger.Info("AddPatron: patron created",
		zap.String("patron_id", patron.ID.String()),
		zap.String("category", string(patron.Category)),
	)
	return patron, nil
}

// ListPatrons returns all patrons, oldest first.
func (s *libraryService) ListPatrons(ctx context.Context) ([]models.Patron, error) {
	return s.patronRepo.List(s.db.WithContext(ctx))
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// Borrow lends one copy of a book to a patron.
//
// Steps (all in one transaction):
//  1. Lock the book row (FOR UPDATE); unknown or out of stock → ErrBookUnavailable.
//  2. Resolve the patron by name, and category when given.
//  3. Refuse a second open loan of the same book to the same patron.
//  4. Take one copy off the shelf and insert the open loan.
func (s *libraryService) Borrow(ctx context.Context, bookID uuid.UUID, patronName string, category models.PatronCategory) (*models.Loan, error) {
	patronName = strings.TrimSpace(patronName)
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidPatron, category)
	}

	var loan *models.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookUnavailable
			}
			return err
		}
		if book.Quantity <= 0 {
			return ErrBookUnavailable
		}

		patron, err := s.resolvePatron(tx, patronName, category)
		if err != nil {
			return err
		}

		open, err := s.loanRepo.FindOpenForUpdate(tx, bookID, []uuid.UUID{patron.ID})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return ErrLoanAlreadyOpen
		}

		taken, err := s.bookRepo.DecrementQuantity(tx, bookID)
		if err != nil {
			s.logger.Error("Borrow: failed to decrement quantity", zap.String("book_id", bookID.String()), zap.Error(err))
			return err
		}
		if !taken {
			return ErrBookUnavailable
		}

		l := &models.Loan{
			BookID:     bookID,
			PatronID:   patron.ID,
			BorrowDate: calendarDay(s.now()),
		}
		if err := s.loanRepo.Create(tx, l); err != nil {
			s.logger.Error("Borrow: failed to create loan record", zap.Error(err))
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		s.logFailure("Borrow", err, bookID, patronName)
		return nil, err
	}

	s.logger.Info("Borrow: loan opened",
		zap.String("loan_id", loan.ID.String()),
		zap.String("book_id", bookID.String()),
		zap.String("patron_id", loan.PatronID.String()),
		zap.String("due", DueDate(loan.BorrowDate).Format("2006-01-02")),
	)
	s.record(ctx, events.Event{
		Kind:       events.KindBorrow,
		OccurredAt: s.now(),
		BookID:     bookID,
		LoanID:     loan.ID,
		PatronID:   loan.PatronID,
	})
	return loan, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// ReturnBook closes the patron's open loan of a book.
//
// Steps (all in one transaction):
//  1. Lock the book row if the book still exists (same lock order as Borrow).
//  2. Find patrons with the name, and category when given.
//  3. Lock their open loans of this book; exactly one must exist.
//  4. Stamp return date, overdue days and fine, and put the copy back.
func (s *libraryService) ReturnBook(ctx context.Context, bookID uuid.UUID, patronName string, category models.PatronCategory) (*models.Loan, error) {
	patronName = strings.TrimSpace(patronName)
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidPatron, category)
	}

	var loan *models.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookExists := true
		if _, err := s.bookRepo.GetByIDForUpdate(tx, bookID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			bookExists = false
		}

		patrons, err := s.patronRepo.FindByName(tx, patronName, category)
		if err != nil {
			return err
		}
		if len(patrons) == 0 {
			return ErrPatronNotFound
		}
		ids := make([]uuid.UUID, 0, len(patrons))
		for _, p := range patrons {
			ids = append(ids, p.ID)
		}

		open, err := s.loanRepo.FindOpenForUpdate(tx, bookID, ids)
		if err != nil {
			return err
		}
		switch {
		case len(open) == 0:
			return ErrNoOpenLoan
		case len(open) > 1:
			return ErrAmbiguousPatron
		}
		l := open[0]

		returned := calendarDay(s.now())
		overdueDays, fine := CalculateFine(l.BorrowDate, returned)

		closed, err := s.loanRepo.MarkReturned(tx, l.ID, returned, overdueDays, fine)
		if err != nil {
			s.logger.Error("ReturnBook: failed to mark loan returned", zap.String("loan_id", l.ID.String()), zap.Error(err))
			return err
		}
		if !closed {
			return ErrNoOpenLoan
		}

		if bookExists {
			if _, err := s.bookRepo.IncrementQuantity(tx, bookID); err != nil {
				s.logger.Error("ReturnBook: failed to increment quantity", zap.String("book_id", bookID.String()), zap.Error(err))
				return err
			}
		} else {
			s.logger.Warn("ReturnBook: book was removed, closing loan without restocking",
				zap.String("book_id", bookID.String()),
				zap.String("loan_id", l.ID.String()),
			)
		}

		l.ReturnDate = &returned
		l.OverdueDays = overdueDays
		l.FineAmount = fine
		loan = &l
		return nil
	})
	if err != nil {
		s.logFailure("ReturnBook", err, bookID, patronName)
		return nil, err
	}

	s.logger.Info("ReturnBook: loan closed",
		zap.String("loan_id", loan.ID.String()),
		zap.String("book_id", bookID.String()),
		zap.Int("overdue_days", loan.OverdueDays),
		zap.Int("fine", loan.FineAmount),
	)
	s.record(ctx, events.Event{
		Kind:        events.KindReturn,
		OccurredAt:  s.now(),
		BookID:      bookID,
		LoanID:      loan.ID,
		PatronID:    loan.PatronID,
		OverdueDays: loan.OverdueDays,
		FineAmount:  loan.FineAmount,
	})
	return loan, nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// ListTransactions returns every loan, oldest first.
func (s *libraryService) ListTransactions(ctx context.Context) ([]models.LoanRecord, error) {
	return s.loanRepo.ListRecords(s.db.WithContext(ctx))
}

// OverdueReport returns loans that were returned late.
func (s *libraryService) OverdueReport(ctx context.Context) ([]models.LoanRecord, error) {
	return s.loanRepo.ListOverdueRecords(s.db.WithContext(ctx))
}

// ListPatronLoans returns all loans (open and closed) of one patron.
func (s *libraryService) ListPatronLoans(ctx context.Context, patronID uuid.UUID) ([]models.LoanRecord, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.patronRepo.GetByID(db, patronID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatronNotFound
		}
		return nil, err
	}
	return s.loanRepo.ListRecordsByPatron(db, patronID)
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

// resolvePatron finds the single patron with the given name (and category).
func (s *libraryService) resolvePatron(tx *gorm.DB, name string, category models.PatronCategory) (*models.Patron, error) {
	patrons, err := s.patronRepo.FindByName(tx, name, category)
	if err != nil {
		return nil, err
	}
	switch len(patrons) {
	case 0:
		return nil, ErrPatronNotFound
	case 1:
		return &patrons[0], nil
	default:
		return nil, ErrAmbiguousPatron
	}
}

// record forwards a committed event to the sink. A failing sink never undoes
// or fails the ledger operation.
func (s *libraryService) record(ctx context.Context, e events.Event) {
	if err := s.sink.Record(ctx, e); err != nil {
		s.logger.Warn("Failed to record ledger event",
			zap.String("kind", string(e.Kind)),
			zap.String("book_id", e.BookID.String()),
			zap.Error(err),
		)
	}
}

func (s *libraryService) logFailure(op string, err error, bookID uuid.UUID, patronName string) {
	fields := []zap.Field{
		zap.String("book_id", bookID.String()),
		zap.String("patron", patronName),
		zap.Error(err),
	}
	if isDomainError(err) {
		s.logger.Info(op+": rejected", fields...)
		return
	}
	s.logger.Error(op+": transaction failed", fields...)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrBookUnavailable, ErrBookNotFound, ErrPatronNotFound, ErrAmbiguousPatron,
		ErrNoOpenLoan, ErrLoanAlreadyOpen, ErrInvalidBook, ErrInvalidPatron,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
