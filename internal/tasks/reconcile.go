package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/openshelf/internal/entities"
)

// ReconcileAvailabilityTask audits the available_copies counter of every book
// against the borrowing ledger and repairs any drift. A BookID of zero means
// all books are checked.
type ReconcileAvailabilityTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for reconciliation tasks.
func (t ReconcileAvailabilityTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_availability",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcileAvailabilityProcessor creates a processor function for
// ReconcileAvailabilityTask. Each book is repaired in its own transaction
// under a row lock so an in-flight borrow or return cannot race the audit.
func ReconcileAvailabilityProcessor(db *gorm.DB) backlite.QueueProcessor[ReconcileAvailabilityTask] {
	return func(ctx context.Context, task ReconcileAvailabilityTask) error {
		if db == nil {
			return fmt.Errorf("database not configured")
		}

		var bookIDs []uint
		query := db.WithContext(ctx).Model(&entities.Book{})
		if task.BookID != 0 {
			query = query.Where("id = ?", task.BookID)
		}
		if err := query.Pluck("id", &bookIDs).Error; err != nil {
			return fmt.Errorf("list books for reconciliation: %w", err)
		}

		repaired := 0
		for _, bookID := range bookIDs {
			changed, err := reconcileBook(ctx, db, bookID)
			if err != nil {
				return fmt.Errorf("reconcile book %d: %w", bookID, err)
			}
			if changed {
				repaired++
			}
		}

		if repaired > 0 {
			log.Printf("[TASK] Reconciled availability for %d of %d books", repaired, len(bookIDs))
		} else {
			log.Printf("[TASK] Availability consistent across %d books", len(bookIDs))
		}
		return nil
	}
}

// reconcileBook recomputes a single book's available_copies from the ledger.
func reconcileBook(ctx context.Context, db *gorm.DB, bookID uint) (bool, error) {
	changed := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&book, bookID).Error; err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&entities.BorrowingRecord{}).
			Where("book_id = ? AND status = ?", bookID, entities.LoanStatusBorrowed).
			Count(&active).Error; err != nil {
			return err
		}

		want := book.TotalCopies - int(active)
		if want < 0 {
			want = 0
		}
		if book.AvailableCopies == want {
			return nil
		}

		log.Printf("[TASK] Book %d availability drift: have %d, ledger says %d",
			bookID, book.AvailableCopies, want)
		changed = true
		return tx.Model(&entities.Book{}).
			Where("id = ?", bookID).
			UpdateColumn("available_copies", want).Error
	})
	return changed, err
}

// NewReconcileAvailabilityQueue creates a backlite queue for reconciliation tasks.
func NewReconcileAvailabilityQueue(db *gorm.DB) backlite.Queue {
	return backlite.NewQueue(ReconcileAvailabilityProcessor(db))
}
