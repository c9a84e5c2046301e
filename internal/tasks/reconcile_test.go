package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.BorrowingRecord{},
		&entities.Reservation{},
	))
	return db
}

func TestReconcileAvailabilityProcessor(t *testing.T) {
	db := setupTestDB(t)

	user := entities.User{Username: "reader", Email: "reader@example.com", Role: entities.UserRoleMember}
	require.NoError(t, db.Create(&user).Error)

	// Counter drifted: ledger has one active loan, so 3 total copies
	// should leave 2 available, not 0.
	book := entities.Book{Title: "Drifted", Author: "Nobody", TotalCopies: 3, AvailableCopies: 0}
	require.NoError(t, db.Create(&book).Error)
	require.NoError(t, db.Create(&entities.BorrowingRecord{
		Reference:  "rec-1",
		UserID:     user.ID,
		BookID:     book.ID,
		Status:     entities.LoanStatusBorrowed,
		BorrowDate: time.Now(),
		DueDate:    time.Now().AddDate(0, 0, 14),
	}).Error)

	// A consistent book the processor should leave alone.
	consistent := entities.Book{Title: "Fine", Author: "Nobody", TotalCopies: 2, AvailableCopies: 2}
	require.NoError(t, db.Create(&consistent).Error)

	processor := ReconcileAvailabilityProcessor(db)
	require.NoError(t, processor(context.Background(), ReconcileAvailabilityTask{}))

	var repaired entities.Book
	require.NoError(t, db.First(&repaired, book.ID).Error)
	assert.Equal(t, 2, repaired.AvailableCopies)

	var untouched entities.Book
	require.NoError(t, db.First(&untouched, consistent.ID).Error)
	assert.Equal(t, 2, untouched.AvailableCopies)
}

func TestReconcileAvailabilityProcessor_SingleBook(t *testing.T) {
	db := setupTestDB(t)

	drifted := entities.Book{Title: "Drifted", Author: "Nobody", TotalCopies: 1, AvailableCopies: 5}
	require.NoError(t, db.Create(&drifted).Error)
	other := entities.Book{Title: "Also Drifted", Author: "Nobody", TotalCopies: 1, AvailableCopies: 5}
	require.NoError(t, db.Create(&other).Error)

	processor := ReconcileAvailabilityProcessor(db)
	require.NoError(t, processor(context.Background(), ReconcileAvailabilityTask{BookID: drifted.ID}))

	var repaired entities.Book
	require.NoError(t, db.First(&repaired, drifted.ID).Error)
	assert.Equal(t, 1, repaired.AvailableCopies)

	// The other book is out of scope for a targeted run.
	var untouched entities.Book
	require.NoError(t, db.First(&untouched, other.ID).Error)
	assert.Equal(t, 5, untouched.AvailableCopies)
}

type fakeExpirer struct {
	expired int64
	called  bool
}

func (f *fakeExpirer) ExpirePending(now time.Time) (int64, error) {
	f.called = true
	return f.expired, nil
}

func TestExpireReservationsProcessor(t *testing.T) {
	expirer := &fakeExpirer{expired: 3}
	processor := ExpireReservationsProcessor(expirer)

	require.NoError(t, processor(context.Background(), ExpireReservationsTask{}))
	assert.True(t, expirer.called)
}

func TestExpireReservationsProcessor_NilExpirer(t *testing.T) {
	processor := ExpireReservationsProcessor(nil)
	assert.Error(t, processor(context.Background(), ExpireReservationsTask{}))
}
