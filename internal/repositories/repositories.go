package repositories

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Vinodvinum/LibraryManagement/internal/models"
)

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB) ([]models.Book, error)
	Search(db *gorm.DB, title, author string) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	DecrementQuantity(db *gorm.DB, id uuid.UUID) (bool, error)
	IncrementQuantity(db *gorm.DB, id uuid.UUID) (bool, error)
	Delete(db *gorm.DB, id uuid.UUID) (bool, error)
}

type PatronRepository interface {
	Create(db *gorm.DB, patron *models.Patron) error
	List(db *gorm.DB) ([]models.Patron, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Patron, error)
	FindByName(db *gorm.DB, name string, category models.PatronCategory) ([]models.Patron, error)
}

type LoanRepository interface {
	Create(db *gorm.DB, loan *models.Loan) error
	FindOpenForUpdate(db *gorm.DB, bookID uuid.UUID, patronIDs []uuid.UUID) ([]models.Loan, error)
	MarkReturned(db *gorm.DB, loanID uuid.UUID, returnDate time.Time, overdueDays, fineAmount int) (bool, error)
	ListRecords(db *gorm.DB) ([]models.LoanRecord, error)
	ListOverdueRecords(db *gorm.DB) ([]models.LoanRecord, error)
	ListRecordsByPatron(db *gorm.DB, patronID uuid.UUID) ([]models.LoanRecord, error)
}

// concrete implementations

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	books := []models.Book{}
	if err := db.Order("created_at, id").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// Search matches title AND author as case-insensitive substrings. An empty
// pattern matches every book.
func (r *bookRepository) Search(db *gorm.DB, title, author string) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	books := []models.Book{}
	err := db.
		Where(`title ILIKE ? ESCAPE '\' AND author ILIKE ? ESCAPE '\'`, containsPattern(title), containsPattern(author)).
		Order("created_at, id").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// DecrementQuantity takes one copy off the shelf. It reports false when no
// copy was left to take.
func (r *bookRepository) DecrementQuantity(db *gorm.DB, id uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND quantity > 0", id).
		UpdateColumn("quantity", gorm.Expr("quantity - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementQuantity puts one copy back. It reports false when the book no
// longer exists.
func (r *bookRepository) IncrementQuantity(db *gorm.DB, id uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type patronRepository struct {
	db *gorm.DB
}

func NewPatronRepository(db *gorm.DB) PatronRepository {
	return &patronRepository{db: db}
}

func (r *patronRepository) Create(db *gorm.DB, patron *models.Patron) error {
	if db == nil {
		db = r.db
	}
	return db.Create(patron).Error
}

func (r *patronRepository) List(db *gorm.DB) ([]models.Patron, error) {
	if db == nil {
		db = r.db
	}
	patrons := []models.Patron{}
	if err := db.Order("created_at, id").Find(&patrons).Error; err != nil {
		return nil, err
	}
	return patrons, nil
}

func (r *patronRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Patron, error) {
	if db == nil {
		db = r.db
	}
	var patron models.Patron
	if err := db.First(&patron, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &patron, nil
}

// FindByName returns every patron with exactly this name, optionally
// narrowed to one category. Callers decide what more than one match means.
func (r *patronRepository) FindByName(db *gorm.DB, name string, category models.PatronCategory) ([]models.Patron, error) {
	if db == nil {
		db = r.db
	}
	q := db.Where("name = ?", name)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var patrons []models.Patron
	if err := q.Order("created_at, id").Find(&patrons).Error; err != nil {
		return nil, err
	}
	return patrons, nil
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(db *gorm.DB, loan *models.Loan) error {
	if db == nil {
		db = r.db
	}
	return db.Create(loan).Error
}

// FindOpenForUpdate locks the open loans of bookID held by any of patronIDs.
func (r *loanRepository) FindOpenForUpdate(db *gorm.DB, bookID uuid.UUID, patronIDs []uuid.UUID) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	if len(patronIDs) == 0 {
		return nil, nil
	}
	var loans []models.Loan
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("book_id = ? AND patron_id IN ? AND return_date IS NULL", bookID, patronIDs).
		Order("created_at, id").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// MarkReturned closes an open loan. It reports false if the loan was already
// closed.
func (r *loanRepository) MarkReturned(db *gorm.DB, loanID uuid.UUID, returnDate time.Time, overdueDays, fineAmount int) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Loan{}).
		Where("id = ? AND return_date IS NULL", loanID).
		Updates(map[string]interface{}{
			"return_date":  returnDate,
			"overdue_days": overdueDays,
			"fine_amount":  fineAmount,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *loanRepository) ListRecords(db *gorm.DB) ([]models.LoanRecord, error) {
	if db == nil {
		db = r.db
	}
	return scanRecords(recordQuery(db))
}

func (r *loanRepository) ListOverdueRecords(db *gorm.DB) ([]models.LoanRecord, error) {
	if db == nil {
		db = r.db
	}
	return scanRecords(recordQuery(db).Where("l.overdue_days > 0"))
}

func (r *loanRepository) ListRecordsByPatron(db *gorm.DB, patronID uuid.UUID) ([]models.LoanRecord, error) {
	if db == nil {
		db = r.db
	}
	return scanRecords(recordQuery(db).Where("l.patron_id = ?", patronID))
}

// recordQuery joins loans with patrons and, when it still exists, the book.
func recordQuery(db *gorm.DB) *gorm.DB {
	return db.Table("loans AS l").
		Select(`l.id AS loan_id, l.book_id, COALESCE(b.title, '') AS book_title,
			l.patron_id, p.name AS patron_name, p.category AS patron_category,
			l.borrow_date, l.return_date, l.overdue_days, l.fine_amount`).
		Joins("LEFT JOIN books b ON b.id = l.book_id").
		Joins("JOIN patrons p ON p.id = l.patron_id").
		Order("l.created_at, l.id")
}

func scanRecords(q *gorm.DB) ([]models.LoanRecord, error) {
	records := []models.LoanRecord{}
	if err := q.Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns s into an ILIKE pattern matching s anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
