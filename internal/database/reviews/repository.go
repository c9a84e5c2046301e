// Package reviews provides database operations for book reviews. One review
// per user per book, enforced by a composite unique index.
package reviews

import (
	"errors"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrNotOwner       = errors.New("review belongs to another user")
)

// RatingSummary aggregates the reviews of a single book.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// Repository handles review database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new review repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert creates or replaces the user's review of a book.
func (r *Repository) Upsert(userID, bookID uint, rating int, comment string) (*entities.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var review entities.Review
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&review).Error
	switch {
	case err == nil:
		review.Rating = rating
		review.Comment = comment
		if err := r.db.Save(&review).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		review = entities.Review{
			UserID:  userID,
			BookID:  bookID,
			Rating:  rating,
			Comment: comment,
		}
		if err := r.db.Create(&review).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return &review, nil
}

// GetByID retrieves a review by ID.
func (r *Repository) GetByID(id uint) (*entities.Review, error) {
	var review entities.Review
	err := r.db.First(&review, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &review, nil
}

// ListForBook returns all reviews of a book, newest first.
func (r *Repository) ListForBook(bookID uint) ([]entities.Review, error) {
	var reviews []entities.Review
	err := r.db.Preload("User").
		Where("book_id = ?", bookID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// Summary returns the average rating and review count for a book.
func (r *Repository) Summary(bookID uint) (*RatingSummary, error) {
	var summary RatingSummary
	err := r.db.Model(&entities.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("book_id = ?", bookID).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Delete removes a review. Non-librarians may only delete their own.
func (r *Repository) Delete(id, userID uint, librarian bool) error {
	review, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if !librarian && review.UserID != userID {
		return ErrNotOwner
	}
	return r.db.Delete(&entities.Review{}, id).Error
}
