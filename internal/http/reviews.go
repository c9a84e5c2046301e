package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/reviews"
	"github.com/openshelf/openshelf/internal/entities"
)

// ReviewStore provides the review operations the controller needs.
type ReviewStore interface {
	Upsert(userID, bookID uint, rating int, comment string) (*entities.Review, error)
	ListForBook(bookID uint) ([]entities.Review, error)
	Summary(bookID uint) (*reviews.RatingSummary, error)
	Delete(id, userID uint, librarian bool) error
}

// ReviewsController handles book review endpoints.
type ReviewsController struct {
	store   ReviewStore
	catalog BookGetter
}

// NewReviewsController creates a new ReviewsController.
func NewReviewsController(store ReviewStore, catalog BookGetter) *ReviewsController {
	return &ReviewsController{store: store, catalog: catalog}
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// ListForBook handles GET /api/books/:id/reviews
func (rc *ReviewsController) ListForBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := rc.catalog.GetByID(bookID); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "list reviews")
		return
	}

	items, err := rc.store.ListForBook(bookID)
	if err != nil {
		respondInternalError(c, err, "list reviews")
		return
	}
	summary, err := rc.store.Summary(bookID)
	if err != nil {
		respondInternalError(c, err, "review summary")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": items,
		"summary": summary,
	})
}

// Upsert handles POST /api/books/:id/reviews
// A second review by the same user replaces the first.
func (rc *ReviewsController) Upsert(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "rating is required")
		return
	}

	if _, err := rc.catalog.GetByID(bookID); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "upsert review")
		return
	}

	review, err := rc.store.Upsert(GetUserID(c), bookID, req.Rating, req.Comment)
	if err != nil {
		if errors.Is(err, reviews.ErrInvalidRating) {
			respondBadRequest(c, "rating must be between 1 and 5")
			return
		}
		respondInternalError(c, err, "upsert review")
		return
	}

	respondCreated(c, review)
}

// Delete handles DELETE /api/reviews/:id
// Members may delete their own reviews; librarians may delete any.
func (rc *ReviewsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := rc.store.Delete(id, GetUserID(c), auth.IsLibrarian(c))
	if err != nil {
		switch {
		case errors.Is(err, reviews.ErrReviewNotFound):
			respondNotFound(c, "review")
		case errors.Is(err, reviews.ErrNotOwner):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "review belongs to another user", Code: "forbidden"})
		default:
			respondInternalError(c, err, "delete review")
		}
		return
	}

	respondSuccess(c, "review deleted")
}
