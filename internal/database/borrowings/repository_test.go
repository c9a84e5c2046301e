package borrowings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

func setupRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.BorrowingRecord{},
	))
	return NewRepository(db), db
}

func seedUser(t *testing.T, db *gorm.DB, username string) entities.User {
	t.Helper()
	user := entities.User{Username: username, Email: username + "@example.com", Role: entities.UserRoleMember}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedBook(t *testing.T, db *gorm.DB, title string) entities.Book {
	t.Helper()
	book := entities.Book{Title: title, Author: "Nobody", TotalCopies: 3, AvailableCopies: 3}
	require.NoError(t, db.Create(&book).Error)
	return book
}

func seedLoan(t *testing.T, db *gorm.DB, ref string, userID, bookID uint, status entities.LoanStatus, due time.Time, fine int64) entities.BorrowingRecord {
	t.Helper()
	record := entities.BorrowingRecord{
		Reference:  ref,
		UserID:     userID,
		BookID:     bookID,
		Status:     status,
		BorrowDate: due.AddDate(0, 0, -14),
		DueDate:    due,
		FineAmount: fine,
	}
	if status == entities.LoanStatusReturned {
		returned := due
		record.ReturnDate = &returned
	}
	require.NoError(t, db.Create(&record).Error)
	return record
}

func TestGetByReference(t *testing.T) {
	repo, db := setupRepo(t)
	user := seedUser(t, db, "reader")
	book := seedBook(t, db, "Dune")
	seedLoan(t, db, "ref-1", user.ID, book.ID, entities.LoanStatusBorrowed, time.Now().AddDate(0, 0, 14), 0)

	record, err := repo.GetByReference("ref-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, record.UserID)
	assert.Equal(t, "Dune", record.Book.Title)

	_, err = repo.GetByReference("no-such-ref")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestGetActiveLoan(t *testing.T) {
	repo, db := setupRepo(t)
	user := seedUser(t, db, "reader")
	book := seedBook(t, db, "Dune")

	// A returned loan does not count as active.
	seedLoan(t, db, "ref-old", user.ID, book.ID, entities.LoanStatusReturned, time.Now().AddDate(0, 0, -30), 0)
	_, err := repo.GetActiveLoan(user.ID, book.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	seedLoan(t, db, "ref-new", user.ID, book.ID, entities.LoanStatusBorrowed, time.Now().AddDate(0, 0, 14), 0)
	record, err := repo.GetActiveLoan(user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "ref-new", record.Reference)
}

func TestListActiveForUser_OldestDueFirst(t *testing.T) {
	repo, db := setupRepo(t)
	user := seedUser(t, db, "reader")
	other := seedUser(t, db, "other")
	a := seedBook(t, db, "A")
	b := seedBook(t, db, "B")

	seedLoan(t, db, "ref-late", user.ID, a.ID, entities.LoanStatusBorrowed, time.Now().AddDate(0, 0, 14), 0)
	seedLoan(t, db, "ref-soon", user.ID, b.ID, entities.LoanStatusBorrowed, time.Now().AddDate(0, 0, 2), 0)
	seedLoan(t, db, "ref-other", other.ID, a.ID, entities.LoanStatusBorrowed, time.Now().AddDate(0, 0, 1), 0)

	records, err := repo.ListActiveForUser(user.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ref-soon", records[0].Reference)
	assert.Equal(t, "ref-late", records[1].Reference)
}

func TestListHistoryForUser(t *testing.T) {
	repo, db := setupRepo(t)
	user := seedUser(t, db, "reader")
	book := seedBook(t, db, "Dune")

	seedLoan(t, db, "ref-1", user.ID, book.ID, entities.LoanStatusReturned, time.Now().AddDate(0, 0, -20), 0)
	seedLoan(t, db, "ref-2", user.ID, book.ID, entities.LoanStatusReturned, time.Now().AddDate(0, 0, -6), 30)
	seedLoan(t, db, "ref-3", user.ID, book.ID, entities.LoanStatusBorrowed, time.Now().AddDate(0, 0, 14), 0)

	records, total, err := repo.ListHistoryForUser(user.ID, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, records, 2)
	// Newest borrow first.
	assert.Equal(t, "ref-3", records[0].Reference)

	records, total, err = repo.ListHistoryForUser(user.ID, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, records, 1)
	assert.Equal(t, "ref-1", records[0].Reference)
}

func TestOverdueQueries(t *testing.T) {
	repo, db := setupRepo(t)
	user := seedUser(t, db, "reader")
	book := seedBook(t, db, "Dune")
	now := time.Now()

	seedLoan(t, db, "ref-overdue", user.ID, book.ID, entities.LoanStatusBorrowed, now.AddDate(0, 0, -3), 0)
	seedLoan(t, db, "ref-current", user.ID, book.ID, entities.LoanStatusBorrowed, now.AddDate(0, 0, 10), 0)
	// Returned late: no longer active, so never overdue.
	seedLoan(t, db, "ref-done", user.ID, book.ID, entities.LoanStatusReturned, now.AddDate(0, 0, -10), 50)

	overdue, err := repo.ListOverdue(now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "ref-overdue", overdue[0].Reference)

	count, err := repo.CountOverdue(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = repo.CountActive()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	count, err = repo.CountActiveForBook(book.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestTotalFines(t *testing.T) {
	repo, db := setupRepo(t)

	total, err := repo.TotalFines()
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	user := seedUser(t, db, "reader")
	book := seedBook(t, db, "Dune")
	seedLoan(t, db, "ref-1", user.ID, book.ID, entities.LoanStatusReturned, time.Now().AddDate(0, 0, -5), 30)
	seedLoan(t, db, "ref-2", user.ID, book.ID, entities.LoanStatusReturned, time.Now().AddDate(0, 0, -3), 20)

	total, err = repo.TotalFines()
	require.NoError(t, err)
	assert.EqualValues(t, 50, total)
}

func TestMostBorrowed(t *testing.T) {
	repo, db := setupRepo(t)
	user := seedUser(t, db, "reader")
	popular := seedBook(t, db, "Popular")
	niche := seedBook(t, db, "Niche")

	for i, ref := range []string{"ref-1", "ref-2", "ref-3"} {
		status := entities.LoanStatusReturned
		if i == 2 {
			status = entities.LoanStatusBorrowed
		}
		seedLoan(t, db, ref, user.ID, popular.ID, status, time.Now().AddDate(0, 0, -i), 0)
	}
	seedLoan(t, db, "ref-4", user.ID, niche.ID, entities.LoanStatusReturned, time.Now(), 0)

	rows, err := repo.MostBorrowed(5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, popular.ID, rows[0].BookID)
	assert.Equal(t, "Popular", rows[0].Title)
	assert.EqualValues(t, 3, rows[0].LoanCount)
	assert.EqualValues(t, 1, rows[1].LoanCount)

	rows, err = repo.MostBorrowed(1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
