// Package books provides database operations for the book catalog.
//
// The catalog owns total_copies/available_copies per book. The counters are
// only mutated here (librarian inventory edits) and by the circulation
// engine; both paths run inside locked transactions.
package books

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/openshelf/internal/entities"
)

var (
	ErrBookNotFound = errors.New("book not found")

	// ErrCopiesBelowBorrowed is returned when a librarian tries to shrink
	// the inventory below the number of copies currently out on loan.
	ErrCopiesBelowBorrowed = errors.New("total copies cannot be lower than the number of borrowed copies")
)

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Title         string
	Author        string
	Genre         string
	AvailableOnly bool
	Limit         int
	Offset        int
}

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new book. New books start with all copies available.
func (r *Repository) Create(book *entities.Book) error {
	if book.TotalCopies < 0 {
		book.TotalCopies = 0
	}
	book.AvailableCopies = book.TotalCopies
	return r.db.Create(book).Error
}

// GetByID retrieves a book by ID.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// GetByISBN retrieves a book by its ISBN.
func (r *Repository) GetByISBN(isbn string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("isbn = ?", isbn).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// List returns books matching the filter with the total match count.
func (r *Repository) List(filter ListFilter) ([]entities.Book, int64, error) {
	query := r.db.Model(&entities.Book{})

	if filter.Title != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+filter.Title+"%")
	}
	if filter.Author != "" {
		query = query.Where("LOWER(author) LIKE LOWER(?)", "%"+filter.Author+"%")
	}
	if filter.Genre != "" {
		query = query.Where("LOWER(genre) = LOWER(?)", filter.Genre)
	}
	if filter.AvailableOnly {
		query = query.Where("available_copies > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("title ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var books []entities.Book
	err := query.Find(&books).Error
	return books, total, err
}

// UpdateDetails updates the descriptive fields of a book. Copy counts are
// handled separately by SetTotalCopies so the availability invariant cannot
// be broken by a plain update.
func (r *Repository) UpdateDetails(book *entities.Book) error {
	result := r.db.Model(&entities.Book{}).Where("id = ?", book.ID).
		Select("title", "author", "isbn", "genre", "publication_year", "description").
		Updates(book)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// SetTotalCopies changes the physical inventory for a book under the same
// row lock the circulation engine uses. available_copies is adjusted by the
// same delta so it stays equal to total minus active loans.
func (r *Repository) SetTotalCopies(ctx context.Context, bookID uint, total int) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		borrowed := book.TotalCopies - book.AvailableCopies
		if total < borrowed {
			return ErrCopiesBelowBorrowed
		}

		book.TotalCopies = total
		book.AvailableCopies = total - borrowed
		return tx.Model(&book).
			Select("total_copies", "available_copies").
			Updates(map[string]any{
				"total_copies":     book.TotalCopies,
				"available_copies": book.AvailableCopies,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Delete removes a book. Borrowing records, reservations and reviews for the
// book are removed by FK cascade.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Count returns the number of books in the catalog.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}
