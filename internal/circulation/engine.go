// Package circulation implements the borrow/return transactional core.
//
// Both operations run as a single atomic transaction over the borrowing
// ledger and the catalog's availability counter: the book row is locked
// first, the business checks run inside the same transaction, and the ledger
// write and counter adjustment commit together or not at all. The counter is
// a cached projection of the ledger and is never mutated outside these
// transactions.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/entities"
)

// Business errors. Each aborts the enclosing transaction before any write and
// is surfaced to the caller as-is so client logic can branch on cause.
var (
	ErrBookNotFound      = errors.New("book not found")
	ErrNoCopiesAvailable = errors.New("no copies of this book are available")
	ErrDuplicateLoan     = errors.New("user already has an active loan for this book")
	ErrNoActiveLoan      = errors.New("user has no active loan for this book")
)

// ErrStoreContention is an infrastructure error: the store's lock wait
// exceeded its deadline. Unlike the business errors it is safe to retry the
// whole operation; no partial state persists.
var ErrStoreContention = errors.New("store contention, safe to retry")

// BorrowResult is the success payload of Borrow.
type BorrowResult struct {
	Record  entities.BorrowingRecord
	DueDate time.Time
}

// ReturnResult is the success payload of Return.
type ReturnResult struct {
	Record      entities.BorrowingRecord
	Fine        int64
	DaysOverdue int
	ReturnedAt  time.Time
}

// Engine mutates the ledger and the availability counter together.
type Engine struct {
	db         *gorm.DB
	loanPeriod time.Duration
	fineRate   int64

	// now is swapped out in tests to pin fine boundaries.
	now func() time.Time
}

// NewEngine creates a circulation engine with the given lending policy.
func NewEngine(db *gorm.DB, cfg config.Circulation) *Engine {
	loanDays := cfg.LoanPeriodDays
	if loanDays <= 0 {
		loanDays = config.DefaultLoanPeriodDays
	}
	fineRate := cfg.FineRatePerDay
	if fineRate < 0 {
		fineRate = config.DefaultFineRatePerDay
	}
	return &Engine{
		db:         db,
		loanPeriod: time.Duration(loanDays) * 24 * time.Hour,
		fineRate:   fineRate,
		now:        time.Now,
	}
}

// Borrow lends one copy of a book to a user.
//
// The whole sequence runs in one transaction: lock the book row, verify it
// exists and has an available copy, verify the user holds no active loan for
// it, insert the Borrowed record, decrement available_copies. Any check
// failure aborts with no side effects.
func (e *Engine) Borrow(ctx context.Context, userID, bookID uint) (*BorrowResult, error) {
	var record entities.BorrowingRecord

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, bookID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return classifyStoreError(err)
		}

		if book.AvailableCopies <= 0 {
			return ErrNoCopiesAvailable
		}

		// The duplicate-loan check must run inside the locked transaction,
		// otherwise two concurrent borrows for the same user/book could both
		// pass it.
		var active int64
		err = tx.Model(&entities.BorrowingRecord{}).
			Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, entities.LoanStatusBorrowed).
			Count(&active).Error
		if err != nil {
			return classifyStoreError(err)
		}
		if active > 0 {
			return ErrDuplicateLoan
		}

		now := e.now()
		record = entities.BorrowingRecord{
			Reference:  uuid.NewString(),
			UserID:     userID,
			BookID:     bookID,
			Status:     entities.LoanStatusBorrowed,
			BorrowDate: now,
			DueDate:    now.Add(e.loanPeriod),
		}
		if err := tx.Create(&record).Error; err != nil {
			return classifyStoreError(err)
		}

		result := tx.Model(&entities.Book{}).
			Where("id = ? AND available_copies > 0", bookID).
			UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
		if result.Error != nil {
			return classifyStoreError(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNoCopiesAvailable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &BorrowResult{Record: record, DueDate: record.DueDate}, nil
}

// Return closes a user's active loan on a book and computes the fine.
//
// The unique Borrowed record is locked and updated exactly once: a second
// Return for the same pair fails with ErrNoActiveLoan and leaves the frozen
// fine and return date untouched. The counter increment is bounded above by
// total_copies as a defence; correct bookkeeping never hits the bound.
func (e *Engine) Return(ctx context.Context, userID, bookID uint) (*ReturnResult, error) {
	var (
		record      entities.BorrowingRecord
		fine        int64
		daysOverdue int
		returnedAt  time.Time
	)

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, entities.LoanStatusBorrowed).
			First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveLoan
			}
			return classifyStoreError(err)
		}

		returnedAt = e.now()
		daysOverdue = DaysOverdue(record.DueDate, returnedAt)
		fine = int64(daysOverdue) * e.fineRate

		// The status guard makes the update single-shot even if another
		// transaction slipped in between the lock and this write.
		result := tx.Model(&entities.BorrowingRecord{}).
			Where("id = ? AND status = ?", record.ID, entities.LoanStatusBorrowed).
			Updates(map[string]any{
				"status":      entities.LoanStatusReturned,
				"return_date": returnedAt,
				"fine_amount": fine,
			})
		if result.Error != nil {
			return classifyStoreError(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNoActiveLoan
		}

		err = tx.Model(&entities.Book{}).
			Where("id = ?", record.BookID).
			UpdateColumn("available_copies", gorm.Expr("MIN(available_copies + 1, total_copies)")).Error
		if err != nil {
			return classifyStoreError(err)
		}

		record.Status = entities.LoanStatusReturned
		record.ReturnDate = &returnedAt
		record.FineAmount = fine
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReturnResult{
		Record:      record,
		Fine:        fine,
		DaysOverdue: daysOverdue,
		ReturnedAt:  returnedAt,
	}, nil
}

// FineRatePerDay exposes the configured fine rate.
func (e *Engine) FineRatePerDay() int64 {
	return e.fineRate
}

// LoanPeriod exposes the configured loan period.
func (e *Engine) LoanPeriod() time.Duration {
	return e.loanPeriod
}

// DaysOverdue computes the whole days of fine to charge: zero at or before
// the due instant, otherwise the elapsed time past due rounded up to full
// days. One second late is one day's fine.
func DaysOverdue(dueDate, returnedAt time.Time) int {
	if !returnedAt.After(dueDate) {
		return 0
	}
	return int(math.Ceil(returnedAt.Sub(dueDate).Hours() / 24))
}

// IsOverdue is the read-side overdue predicate: an active loan past its due
// date. Nothing ever writes an Overdue status to the ledger.
func IsOverdue(record entities.BorrowingRecord, at time.Time) bool {
	return record.Status == entities.LoanStatusBorrowed && at.After(record.DueDate)
}

// classifyStoreError maps sqlite lock-wait failures to ErrStoreContention so
// callers can distinguish retryable infrastructure trouble from business
// outcomes. Everything else is passed through wrapped.
func classifyStoreError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %v", ErrStoreContention, err)
		}
	}
	return err
}
