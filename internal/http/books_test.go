package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/entities"
)

func setupBooksTest(t *testing.T) (*database.Database, *gin.Engine, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_books_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	controller := NewBooksController(books.NewRepository(db.DB))

	router := gin.New()
	router.GET("/api/books", controller.List)
	router.GET("/api/books/:id", controller.Get)
	router.POST("/api/books", controller.Create)
	router.PUT("/api/books/:id", controller.Update)
	router.PATCH("/api/books/:id/copies", controller.UpdateCopies)
	router.DELETE("/api/books/:id", controller.Delete)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}
	return db, router, cleanup
}

func TestBooksController_Create(t *testing.T) {
	t.Run("creates book with all copies available", func(t *testing.T) {
		_, router, cleanup := setupBooksTest(t)
		defer cleanup()

		body := `{"title":"Dune","author":"Frank Herbert","isbn":"9780441172719","genre":"sci-fi","total_copies":3}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/books", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var book entities.Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.Equal(t, 3, book.TotalCopies)
		assert.Equal(t, 3, book.AvailableCopies)
	})

	t.Run("rejects missing title", func(t *testing.T) {
		_, router, cleanup := setupBooksTest(t)
		defer cleanup()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/books", strings.NewReader(`{"author":"Nobody"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects duplicate isbn", func(t *testing.T) {
		_, router, cleanup := setupBooksTest(t)
		defer cleanup()

		body := `{"title":"Dune","author":"Frank Herbert","isbn":"9780441172719"}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/books", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("POST", "/api/books", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("allows multiple books without isbn", func(t *testing.T) {
		_, router, cleanup := setupBooksTest(t)
		defer cleanup()

		for _, body := range []string{
			`{"title":"First","author":"A"}`,
			`{"title":"Second","author":"B"}`,
		} {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/api/books", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusCreated, w.Code)
		}
	})
}

func TestBooksController_List(t *testing.T) {
	t.Run("filters by author and availability", func(t *testing.T) {
		db, router, cleanup := setupBooksTest(t)
		defer cleanup()

		repo := books.NewRepository(db.DB)
		require.NoError(t, repo.Create(&entities.Book{Title: "A", Author: "Ursula K. Le Guin", TotalCopies: 1}))
		require.NoError(t, repo.Create(&entities.Book{Title: "B", Author: "Ursula K. Le Guin", TotalCopies: 0}))
		require.NoError(t, repo.Create(&entities.Book{Title: "C", Author: "Someone Else", TotalCopies: 1}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/books?author=le+guin&available=true", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response PaginatedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(1), response.Total)
	})
}

func TestBooksController_UpdateCopies(t *testing.T) {
	t.Run("grows and shrinks inventory preserving borrowed count", func(t *testing.T) {
		db, router, cleanup := setupBooksTest(t)
		defer cleanup()

		repo := books.NewRepository(db.DB)
		book := entities.Book{Title: "Sized", Author: "X", TotalCopies: 2}
		require.NoError(t, repo.Create(&book))

		// Simulate one copy out on loan.
		require.NoError(t, db.DB.Model(&entities.Book{}).
			Where("id = ?", book.ID).
			UpdateColumn("available_copies", 1).Error)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PATCH", "/api/books/1/copies", strings.NewReader(`{"total_copies":5}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var updated entities.Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		assert.Equal(t, 5, updated.TotalCopies)
		assert.Equal(t, 4, updated.AvailableCopies)
	})

	t.Run("rejects shrinking below borrowed copies", func(t *testing.T) {
		db, router, cleanup := setupBooksTest(t)
		defer cleanup()

		repo := books.NewRepository(db.DB)
		book := entities.Book{Title: "Sized", Author: "X", TotalCopies: 3}
		require.NoError(t, repo.Create(&book))
		require.NoError(t, db.DB.Model(&entities.Book{}).
			Where("id = ?", book.ID).
			UpdateColumn("available_copies", 1).Error)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PATCH", "/api/books/1/copies", strings.NewReader(`{"total_copies":1}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "copies_below_borrowed", response.Code)
	})
}

func TestBooksController_Delete(t *testing.T) {
	t.Run("deletes book and returns 404 afterwards", func(t *testing.T) {
		db, router, cleanup := setupBooksTest(t)
		defer cleanup()

		repo := books.NewRepository(db.DB)
		require.NoError(t, repo.Create(&entities.Book{Title: "Doomed", Author: "X", TotalCopies: 1}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/books/1", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/api/books/1", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown book returns 404", func(t *testing.T) {
		_, router, cleanup := setupBooksTest(t)
		defer cleanup()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/books/42", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
