package http

import (
	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// Apply CSRF protection if auth is enabled
	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by
	// CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Apply auth middleware if enabled
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No auth - every request runs as the seeded default user
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, cfg.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Auth endpoints
	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager)
		router.POST("/api/auth/register", authController.Register)
		router.POST("/api/auth/login", authController.Login)
		router.POST("/api/auth/logout", authController.Logout)
		router.GET("/api/auth/me", authController.Me)
		router.POST("/api/auth/token", authController.GenerateToken)
		router.DELETE("/api/auth/token", authController.RevokeToken)
		router.POST("/api/auth/password", authController.ChangePassword)
	}

	requireLibrarian := librarianGuard(cfg)

	// Catalog endpoints: any authenticated user can read, mutations are
	// librarian-only
	booksController := NewBooksController(cfg.CatalogStore)
	router.GET("/api/books", booksController.List)
	router.GET("/api/books/:id", booksController.Get)
	router.POST("/api/books", requireLibrarian, booksController.Create)
	router.PUT("/api/books/:id", requireLibrarian, booksController.Update)
	router.PATCH("/api/books/:id/copies", requireLibrarian, booksController.UpdateCopies)
	router.DELETE("/api/books/:id", requireLibrarian, booksController.Delete)

	// Circulation endpoints
	circulationController := NewCirculationController(cfg.Engine, cfg.LedgerStore, cfg.ReservationStore)
	router.POST("/api/books/:id/borrow", circulationController.Borrow)
	router.POST("/api/books/:id/return", circulationController.Return)
	router.GET("/api/loans", circulationController.ListLoans)
	router.GET("/api/loans/history", circulationController.LoanHistory)

	// Reservation endpoints
	reservationsController := NewReservationsController(cfg.ReservationStore, cfg.CatalogStore, cfg.ReservationExpiryDays)
	router.POST("/api/books/:id/reserve", reservationsController.Reserve)
	router.GET("/api/reservations", reservationsController.List)
	router.DELETE("/api/reservations/:id", reservationsController.Cancel)

	// Review endpoints
	reviewsController := NewReviewsController(cfg.ReviewStore, cfg.CatalogStore)
	router.GET("/api/books/:id/reviews", reviewsController.ListForBook)
	router.POST("/api/books/:id/reviews", reviewsController.Upsert)
	router.DELETE("/api/reviews/:id", reviewsController.Delete)

	// Librarian dashboard and maintenance endpoints
	adminController := NewAdminController(cfg.AdminStore, cfg.CatalogStore, cfg.AuthService, cfg.TaskClient)
	admin := router.Group("/api/admin", requireLibrarian)
	admin.GET("/dashboard", adminController.Dashboard)
	admin.GET("/loans", adminController.ListLoans)
	admin.GET("/overdue", adminController.ListOverdue)
	admin.GET("/books/:id/reservations", reservationsController.QueueForBook)
	admin.POST("/tasks/reconcile", adminController.RunReconcile)
	admin.POST("/tasks/expire-reservations", adminController.RunExpireReservations)

	return router
}

// librarianGuard returns the role middleware, or a pass-through when auth is
// disabled (single-user mode has no roles to enforce).
func librarianGuard(cfg RouterConfig) gin.HandlerFunc {
	if cfg.AuthMiddleware != nil {
		return cfg.AuthMiddleware.RequireRole(entities.UserRoleLibrarian)
	}
	return func(c *gin.Context) { c.Next() }
}
