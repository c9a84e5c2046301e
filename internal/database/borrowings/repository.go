// Package borrowings provides read access to the borrowing ledger.
//
// The ledger is the source of truth for who holds which copy. Records are
// written only by the circulation engine; this repository serves listings,
// the read-side overdue view, and the librarian dashboard aggregates.
package borrowings

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var ErrRecordNotFound = errors.New("borrowing record not found")

// BookLoanCount pairs a book with how often it has been borrowed.
type BookLoanCount struct {
	BookID    uint   `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	LoanCount int64  `json:"loan_count"`
}

// Repository handles ledger database reads.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ledger repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByReference retrieves a single record by its public reference.
func (r *Repository) GetByReference(reference string) (*entities.BorrowingRecord, error) {
	var record entities.BorrowingRecord
	err := r.db.Preload("Book").Where("reference = ?", reference).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetActiveLoan returns the active (Borrowed) record for a user/book pair,
// or ErrRecordNotFound when the user does not hold the book.
func (r *Repository) GetActiveLoan(userID, bookID uint) (*entities.BorrowingRecord, error) {
	var record entities.BorrowingRecord
	err := r.db.
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, entities.LoanStatusBorrowed).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListActiveForUser returns the user's current loans, oldest due first.
func (r *Repository) ListActiveForUser(userID uint) ([]entities.BorrowingRecord, error) {
	var records []entities.BorrowingRecord
	err := r.db.Preload("Book").
		Where("user_id = ? AND status = ?", userID, entities.LoanStatusBorrowed).
		Order("due_date ASC").
		Find(&records).Error
	return records, err
}

// ListHistoryForUser returns the user's full borrowing history, newest first.
func (r *Repository) ListHistoryForUser(userID uint, limit, offset int) ([]entities.BorrowingRecord, int64, error) {
	query := r.db.Model(&entities.BorrowingRecord{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("borrow_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []entities.BorrowingRecord
	err := query.Find(&records).Error
	return records, total, err
}

// ListActive returns all active loans, oldest due first.
func (r *Repository) ListActive(limit, offset int) ([]entities.BorrowingRecord, int64, error) {
	query := r.db.Model(&entities.BorrowingRecord{}).
		Where("status = ?", entities.LoanStatusBorrowed)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.db.Preload("Book").
		Where("status = ?", entities.LoanStatusBorrowed).
		Order("due_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []entities.BorrowingRecord
	err := query.Find(&records).Error
	return records, total, err
}

// ListOverdue returns active loans whose due date has passed. Overdue is a
// query-time predicate; the stored status stays Borrowed until return.
func (r *Repository) ListOverdue(now time.Time) ([]entities.BorrowingRecord, error) {
	var records []entities.BorrowingRecord
	err := r.db.Preload("Book").
		Where("status = ? AND due_date < ?", entities.LoanStatusBorrowed, now).
		Order("due_date ASC").
		Find(&records).Error
	return records, err
}

// CountActiveForBook returns the number of copies of a book currently out.
func (r *Repository) CountActiveForBook(bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.BorrowingRecord{}).
		Where("book_id = ? AND status = ?", bookID, entities.LoanStatusBorrowed).
		Count(&count).Error
	return count, err
}

// CountActive returns the number of active loans across all books.
func (r *Repository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&entities.BorrowingRecord{}).
		Where("status = ?", entities.LoanStatusBorrowed).
		Count(&count).Error
	return count, err
}

// CountOverdue returns the number of active loans past their due date.
func (r *Repository) CountOverdue(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&entities.BorrowingRecord{}).
		Where("status = ? AND due_date < ?", entities.LoanStatusBorrowed, now).
		Count(&count).Error
	return count, err
}

// TotalFines returns the sum of all fines charged at return time.
func (r *Repository) TotalFines() (int64, error) {
	var total int64
	err := r.db.Model(&entities.BorrowingRecord{}).
		Select("COALESCE(SUM(fine_amount), 0)").
		Scan(&total).Error
	return total, err
}

// MostBorrowed returns the books with the highest all-time loan counts.
func (r *Repository) MostBorrowed(limit int) ([]BookLoanCount, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []BookLoanCount
	err := r.db.Model(&entities.BorrowingRecord{}).
		Select("borrowing_records.book_id, books.title, books.author, COUNT(*) AS loan_count").
		Joins("JOIN books ON books.id = borrowing_records.book_id").
		Group("borrowing_records.book_id").
		Order("loan_count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
