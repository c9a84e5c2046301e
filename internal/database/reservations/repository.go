// Package reservations provides database operations for the reservation
// queue. Reservations are a simple pending/fulfilled/cancelled queue with no
// cross-operation invariant; they never touch the availability counter.
package reservations

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyReserved     = errors.New("user already has a pending reservation for this book")
	ErrNotOwner            = errors.New("reservation belongs to another user")
)

// Repository handles reservation database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reservation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create places a pending reservation. At most one pending reservation per
// user/book pair is allowed.
func (r *Repository) Create(userID, bookID uint, expiresAt time.Time) (*entities.Reservation, error) {
	var existing int64
	err := r.db.Model(&entities.Reservation{}).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, entities.ReservationStatusPending).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyReserved
	}

	reservation := &entities.Reservation{
		Reference:  uuid.NewString(),
		UserID:     userID,
		BookID:     bookID,
		Status:     entities.ReservationStatusPending,
		ReservedAt: time.Now(),
		ExpiresAt:  expiresAt,
	}
	if err := r.db.Create(reservation).Error; err != nil {
		return nil, err
	}
	return reservation, nil
}

// GetByID retrieves a reservation by ID.
func (r *Repository) GetByID(id uint) (*entities.Reservation, error) {
	var reservation entities.Reservation
	err := r.db.Preload("Book").First(&reservation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// ListForUser returns all reservations for a user, newest first.
func (r *Repository) ListForUser(userID uint) ([]entities.Reservation, error) {
	var reservations []entities.Reservation
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("reserved_at DESC").
		Find(&reservations).Error
	return reservations, err
}

// ListPendingForBook returns the pending queue for a book, oldest first.
func (r *Repository) ListPendingForBook(bookID uint) ([]entities.Reservation, error) {
	var reservations []entities.Reservation
	err := r.db.
		Where("book_id = ? AND status = ?", bookID, entities.ReservationStatusPending).
		Order("reserved_at ASC").
		Find(&reservations).Error
	return reservations, err
}

// Cancel marks a user's pending reservation as cancelled. Only the owner may
// cancel, and only while still pending.
func (r *Repository) Cancel(id, userID uint) error {
	var reservation entities.Reservation
	if err := r.db.First(&reservation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReservationNotFound
		}
		return err
	}
	if reservation.UserID != userID {
		return ErrNotOwner
	}

	result := r.db.Model(&entities.Reservation{}).
		Where("id = ? AND status = ?", id, entities.ReservationStatusPending).
		Update("status", entities.ReservationStatusCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// FulfillPending marks the user's pending reservation for a book as
// fulfilled. Called after a successful borrow; a missing reservation is not
// an error.
func (r *Repository) FulfillPending(userID, bookID uint) error {
	return r.db.Model(&entities.Reservation{}).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, entities.ReservationStatusPending).
		Update("status", entities.ReservationStatusFulfilled).Error
}

// ExpirePending cancels pending reservations whose expiry has passed and
// returns how many were cancelled.
func (r *Repository) ExpirePending(now time.Time) (int64, error) {
	result := r.db.Model(&entities.Reservation{}).
		Where("status = ? AND expires_at < ?", entities.ReservationStatusPending, now).
		Update("status", entities.ReservationStatusCancelled)
	return result.RowsAffected, result.Error
}
