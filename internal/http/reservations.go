package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/reservations"
	"github.com/openshelf/openshelf/internal/entities"
)

// ReservationStore provides the reservation operations the controller needs.
type ReservationStore interface {
	Create(userID, bookID uint, expiresAt time.Time) (*entities.Reservation, error)
	ListForUser(userID uint) ([]entities.Reservation, error)
	ListPendingForBook(bookID uint) ([]entities.Reservation, error)
	Cancel(id, userID uint) error
	FulfillPending(userID, bookID uint) error
	ExpirePending(now time.Time) (int64, error)
}

// BookGetter provides read access to the catalog.
type BookGetter interface {
	GetByID(id uint) (*entities.Book, error)
}

// ReservationsController handles the reservation queue endpoints.
type ReservationsController struct {
	store      ReservationStore
	catalog    BookGetter
	expiryDays int
}

// NewReservationsController creates a new ReservationsController.
func NewReservationsController(store ReservationStore, catalog BookGetter, expiryDays int) *ReservationsController {
	if expiryDays <= 0 {
		expiryDays = 7
	}
	return &ReservationsController{
		store:      store,
		catalog:    catalog,
		expiryDays: expiryDays,
	}
}

// Reserve handles POST /api/books/:id/reserve
// Reservations queue interest in a book; they never hold a copy, so a book
// with copies on the shelf is borrowed directly instead.
func (rc *ReservationsController) Reserve(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	book, err := rc.catalog.GetByID(bookID)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "reserve book")
		return
	}
	if book.AvailableCopies > 0 {
		respondConflict(c, "copies are available, borrow the book instead", "copies_available")
		return
	}

	expiresAt := time.Now().AddDate(0, 0, rc.expiryDays)
	reservation, err := rc.store.Create(userID, bookID, expiresAt)
	if err != nil {
		if errors.Is(err, reservations.ErrAlreadyReserved) {
			respondConflict(c, "you already have a pending reservation for this book", "already_reserved")
			return
		}
		respondInternalError(c, err, "create reservation")
		return
	}

	respondCreated(c, reservation)
}

// List handles GET /api/reservations
func (rc *ReservationsController) List(c *gin.Context) {
	items, err := rc.store.ListForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list reservations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": items})
}

// QueueForBook handles GET /api/admin/books/:id/reservations
// The pending queue for one book, oldest first.
func (rc *ReservationsController) QueueForBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := rc.catalog.GetByID(bookID); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "reservation queue")
		return
	}

	queue, err := rc.store.ListPendingForBook(bookID)
	if err != nil {
		respondInternalError(c, err, "reservation queue")
		return
	}

	c.JSON(http.StatusOK, gin.H{"queue": queue})
}

// Cancel handles DELETE /api/reservations/:id
func (rc *ReservationsController) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := rc.store.Cancel(id, GetUserID(c)); err != nil {
		switch {
		case errors.Is(err, reservations.ErrReservationNotFound):
			respondNotFound(c, "reservation")
		case errors.Is(err, reservations.ErrNotOwner):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "reservation belongs to another user", Code: "forbidden"})
		default:
			respondInternalError(c, err, "cancel reservation")
		}
		return
	}

	respondSuccess(c, "reservation cancelled")
}
