package models

import (
	"time"

	"github.com/google/uuid"
)

type PatronCategory string

const (
	PatronCategoryStudent PatronCategory = "student"
	PatronCategoryStaff   PatronCategory = "staff"
)

// Valid reports whether c is one of the known patron categories.
func (c PatronCategory) Valid() bool {
	switch c {
	case PatronCategoryStudent, PatronCategoryStaff:
		return true
	}
	return false
}

type Book struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Author        string    `gorm:"size:255;not null" json:"author"`
	ISBN          *string   `gorm:"column:isbn;size:32" json:"isbn,omitempty"`
	ShelfLocation *string   `gorm:"column:shelf_location;size:64" json:"shelf_location,omitempty"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	CoverImage    []byte    `gorm:"column:cover_image;type:bytea" json:"cover_image,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

type Patron struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"size:255;not null;index" json:"name"`
	Category  PatronCategory `gorm:"size:16;not null" json:"category"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

// Loan is one book lent to one patron. It is open while ReturnDate is nil.
// BookID is not a foreign key: removing a book leaves its loan
// history in place.
type Loan struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BookID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	PatronID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"patron_id"`
	BorrowDate  time.Time  `gorm:"type:date;not null" json:"borrow_date"`
	ReturnDate  *time.Time `gorm:"type:date" json:"return_date"`
	OverdueDays int        `gorm:"not null;default:0" json:"overdue_days"`
	FineAmount  int        `gorm:"not null;default:0" json:"fine_amount"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
}

// IsOpen reports whether the loan has not been returned yet.
func (l *Loan) IsOpen() bool { return l.ReturnDate == nil }

// LoanRecord is the reporting view of a loan joined with its book and patron.
type LoanRecord struct {
	LoanID         uuid.UUID      `gorm:"column:loan_id" json:"loan_id"`
	BookID         uuid.UUID      `gorm:"column:book_id" json:"book_id"`
	BookTitle      string         `gorm:"column:book_title" json:"book_title"`
	PatronID       uuid.UUID      `gorm:"column:patron_id" json:"patron_id"`
	PatronName     string         `gorm:"column:patron_name" json:"patron_name"`
	PatronCategory PatronCategory `gorm:"column:patron_category" json:"patron_category"`
	BorrowDate     time.Time      `gorm:"column:borrow_date" json:"borrow_date"`
	ReturnDate     *time.Time     `gorm:"column:return_date" json:"return_date"`
	OverdueDays    int            `gorm:"column:overdue_days" json:"overdue_days"`
	FineAmount     int            `gorm:"column:fine_amount" json:"fine_amount"`
}
