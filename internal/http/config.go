package http

import (
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/circulation"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Engine   *circulation.Engine

	// Stores (interfaces defined next to their controllers)
	CatalogStore     CatalogStore
	LedgerStore      LedgerStore
	AdminStore       AdminLedgerStore
	ReservationStore ReservationStore
	ReviewStore      ReviewStore

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// DefaultUserID is the seeded account requests run as when no auth
	// middleware is installed. It must reference an existing user row.
	DefaultUserID uint

	// Reservation policy
	ReservationExpiryDays int

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}
