package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/circulation"
	"github.com/openshelf/openshelf/internal/entities"
)

// LedgerStore provides the ledger reads the circulation controller needs.
type LedgerStore interface {
	ListActiveForUser(userID uint) ([]entities.BorrowingRecord, error)
	ListHistoryForUser(userID uint, limit, offset int) ([]entities.BorrowingRecord, int64, error)
}

// ReservationFulfiller marks a user's pending reservation fulfilled after a
// successful borrow.
type ReservationFulfiller interface {
	FulfillPending(userID, bookID uint) error
}

// CirculationController handles borrow/return endpoints and loan listings.
type CirculationController struct {
	engine       *circulation.Engine
	ledger       LedgerStore
	reservations ReservationFulfiller
}

// NewCirculationController creates a new CirculationController.
func NewCirculationController(engine *circulation.Engine, ledger LedgerStore, reservations ReservationFulfiller) *CirculationController {
	return &CirculationController{
		engine:       engine,
		ledger:       ledger,
		reservations: reservations,
	}
}

// loanResponse is the JSON shape for a single borrowing record with the
// overdue label applied at read time.
type loanResponse struct {
	entities.BorrowingRecord
	DisplayStatus entities.LoanStatus `json:"display_status"`
}

func toLoanResponse(record entities.BorrowingRecord, now time.Time) loanResponse {
	return loanResponse{
		BorrowingRecord: record,
		DisplayStatus:   record.DisplayStatus(now),
	}
}

func toLoanResponses(records []entities.BorrowingRecord, now time.Time) []loanResponse {
	out := make([]loanResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toLoanResponse(r, now))
	}
	return out
}

// Borrow handles POST /api/books/:id/borrow
func (cc *CirculationController) Borrow(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	result, err := cc.engine.Borrow(c.Request.Context(), userID, bookID)
	if err != nil {
		cc.respondCirculationError(c, err, "borrow")
		return
	}

	// Borrowing a book the user had reserved consumes the reservation. Runs
	// after the borrow commits; a failure here must not undo the loan.
	if cc.reservations != nil {
		if err := cc.reservations.FulfillPending(userID, bookID); err != nil {
			log.Printf("Failed to fulfil reservation for user %d book %d: %v", userID, bookID, err)
		}
	}

	respondCreated(c, gin.H{
		"record":   result.Record,
		"due_date": result.DueDate,
	})
}

// Return handles POST /api/books/:id/return
func (cc *CirculationController) Return(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	result, err := cc.engine.Return(c.Request.Context(), userID, bookID)
	if err != nil {
		cc.respondCirculationError(c, err, "return")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record":       result.Record,
		"fine":         result.Fine,
		"days_overdue": result.DaysOverdue,
		"returned_at":  result.ReturnedAt,
	})
}

// ListLoans handles GET /api/loans
// Returns the caller's active loans with the overdue label applied.
func (cc *CirculationController) ListLoans(c *gin.Context) {
	records, err := cc.ledger.ListActiveForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list loans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"loans": toLoanResponses(records, time.Now())})
}

// LoanHistory handles GET /api/loans/history
func (cc *CirculationController) LoanHistory(c *gin.Context) {
	limit, offset := parsePagination(c)

	records, total, err := cc.ledger.ListHistoryForUser(GetUserID(c), limit, offset)
	if err != nil {
		respondInternalError(c, err, "loan history")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    toLoanResponses(records, time.Now()),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(records)) < total,
	})
}

// respondCirculationError maps engine errors onto HTTP statuses. Business
// rejections are 404/409; lock-wait timeouts are 503 with a retry hint.
func (cc *CirculationController) respondCirculationError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, circulation.ErrBookNotFound):
		respondNotFound(c, "book")
	case errors.Is(err, circulation.ErrNoCopiesAvailable):
		respondConflict(c, "no copies of this book are available", "no_copies_available")
	case errors.Is(err, circulation.ErrDuplicateLoan):
		respondConflict(c, "you already have an active loan for this book", "duplicate_loan")
	case errors.Is(err, circulation.ErrNoActiveLoan):
		respondConflict(c, "you have no active loan for this book", "no_active_loan")
	case errors.Is(err, circulation.ErrStoreContention):
		respondContention(c)
	default:
		respondInternalError(c, err, op)
	}
}
