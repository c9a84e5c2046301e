package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
)

// CatalogStore provides the catalog operations the books controller needs.
type CatalogStore interface {
	Create(book *entities.Book) error
	GetByID(id uint) (*entities.Book, error)
	List(filter books.ListFilter) ([]entities.Book, int64, error)
	UpdateDetails(book *entities.Book) error
	SetTotalCopies(ctx context.Context, bookID uint, total int) (*entities.Book, error)
	Delete(id uint) error
	Count() (int64, error)
}

// BooksController handles catalog HTTP endpoints. Listing and detail are
// public; mutations are librarian-only (enforced by route middleware).
type BooksController struct {
	store CatalogStore
}

// NewBooksController creates a new BooksController.
func NewBooksController(store CatalogStore) *BooksController {
	return &BooksController{store: store}
}

type bookRequest struct {
	Title           string  `json:"title" binding:"required"`
	Author          string  `json:"author" binding:"required"`
	ISBN            *string `json:"isbn"`
	Genre           string  `json:"genre"`
	PublicationYear int     `json:"publication_year"`
	Description     string  `json:"description"`
	TotalCopies     int     `json:"total_copies"`
}

type setCopiesRequest struct {
	TotalCopies *int `json:"total_copies" binding:"required"`
}

// List handles GET /api/books
// Supports title/author/genre substring filters, an available-only flag,
// and limit/offset pagination.
func (bc *BooksController) List(c *gin.Context) {
	limit, offset := parsePagination(c)
	filter := books.ListFilter{
		Title:         strings.TrimSpace(c.Query("title")),
		Author:        strings.TrimSpace(c.Query("author")),
		Genre:         strings.TrimSpace(c.Query("genre")),
		AvailableOnly: c.Query("available") == "true",
		Limit:         limit,
		Offset:        offset,
	}

	items, total, err := bc.store.List(filter)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(items)) < total,
	})
}

// Get handles GET /api/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetByID(id)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// Create handles POST /api/books
func (bc *BooksController) Create(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}
	if req.TotalCopies < 0 {
		respondBadRequest(c, "total_copies cannot be negative")
		return
	}

	book := entities.Book{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            normalizeISBN(req.ISBN),
		Genre:           req.Genre,
		PublicationYear: req.PublicationYear,
		Description:     req.Description,
		TotalCopies:     req.TotalCopies,
	}
	if err := bc.store.Create(&book); err != nil {
		if isUniqueViolation(err) {
			respondConflict(c, "a book with this ISBN already exists", "duplicate_isbn")
			return
		}
		respondInternalError(c, err, "create book")
		return
	}

	respondCreated(c, book)
}

// Update handles PUT /api/books/:id
// Only descriptive fields change here; copy counts go through UpdateCopies.
func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}

	book := entities.Book{
		ID:              id,
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            normalizeISBN(req.ISBN),
		Genre:           req.Genre,
		PublicationYear: req.PublicationYear,
		Description:     req.Description,
	}
	if err := bc.store.UpdateDetails(&book); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		if isUniqueViolation(err) {
			respondConflict(c, "a book with this ISBN already exists", "duplicate_isbn")
			return
		}
		respondInternalError(c, err, "update book")
		return
	}

	updated, err := bc.store.GetByID(id)
	if err != nil {
		respondInternalError(c, err, "reload book")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UpdateCopies handles PATCH /api/books/:id/copies
func (bc *BooksController) UpdateCopies(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req setCopiesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TotalCopies == nil {
		respondBadRequest(c, "total_copies is required")
		return
	}
	if *req.TotalCopies < 0 {
		respondBadRequest(c, "total_copies cannot be negative")
		return
	}

	book, err := bc.store.SetTotalCopies(c.Request.Context(), id, *req.TotalCopies)
	if err != nil {
		switch {
		case errors.Is(err, books.ErrBookNotFound):
			respondNotFound(c, "book")
		case errors.Is(err, books.ErrCopiesBelowBorrowed):
			respondConflict(c, "total_copies cannot be lower than the number of borrowed copies", "copies_below_borrowed")
		default:
			respondInternalError(c, err, "set total copies")
		}
		return
	}

	c.JSON(http.StatusOK, book)
}

// Delete handles DELETE /api/books/:id
// Borrowing records, reservations and reviews for the book go with it.
func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.store.Delete(id); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "delete book")
		return
	}

	respondSuccess(c, "book deleted")
}

// normalizeISBN trims the ISBN and collapses empty strings to nil so the
// unique index only applies to books that actually carry one.
func normalizeISBN(isbn *string) *string {
	if isbn == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*isbn)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// isUniqueViolation reports whether the error is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
