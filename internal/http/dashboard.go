package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/database/borrowings"
	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/tasks"
)

// AdminLedgerStore provides the ledger aggregates behind the librarian
// dashboard.
type AdminLedgerStore interface {
	ListActive(limit, offset int) ([]entities.BorrowingRecord, int64, error)
	ListOverdue(now time.Time) ([]entities.BorrowingRecord, error)
	CountActive() (int64, error)
	CountOverdue(now time.Time) (int64, error)
	TotalFines() (int64, error)
	MostBorrowed(limit int) ([]borrowings.BookLoanCount, error)
}

// CatalogCounter reports the catalog size.
type CatalogCounter interface {
	Count() (int64, error)
}

// UserCounter reports the number of registered users.
type UserCounter interface {
	GetUserCount() (int64, error)
}

// AdminController handles librarian-only dashboard and maintenance endpoints.
type AdminController struct {
	ledger     AdminLedgerStore
	catalog    CatalogCounter
	users      UserCounter
	taskClient *tasks.Client
}

// NewAdminController creates a new AdminController.
func NewAdminController(ledger AdminLedgerStore, catalog CatalogCounter, users UserCounter, taskClient *tasks.Client) *AdminController {
	return &AdminController{
		ledger:     ledger,
		catalog:    catalog,
		users:      users,
		taskClient: taskClient,
	}
}

// DashboardResponse aggregates the librarian overview numbers.
type DashboardResponse struct {
	TotalBooks   int64                      `json:"total_books"`
	TotalUsers   int64                      `json:"total_users"`
	ActiveLoans  int64                      `json:"active_loans"`
	OverdueLoans int64                      `json:"overdue_loans"`
	TotalFines   int64                      `json:"total_fines"`
	MostBorrowed []borrowings.BookLoanCount `json:"most_borrowed"`
}

// Dashboard handles GET /api/admin/dashboard
func (ac *AdminController) Dashboard(c *gin.Context) {
	now := time.Now()

	totalBooks, err := ac.catalog.Count()
	if err != nil {
		respondInternalError(c, err, "dashboard book count")
		return
	}
	totalUsers, err := ac.users.GetUserCount()
	if err != nil {
		respondInternalError(c, err, "dashboard user count")
		return
	}
	activeLoans, err := ac.ledger.CountActive()
	if err != nil {
		respondInternalError(c, err, "dashboard active loans")
		return
	}
	overdueLoans, err := ac.ledger.CountOverdue(now)
	if err != nil {
		respondInternalError(c, err, "dashboard overdue loans")
		return
	}
	totalFines, err := ac.ledger.TotalFines()
	if err != nil {
		respondInternalError(c, err, "dashboard fines")
		return
	}
	mostBorrowed, err := ac.ledger.MostBorrowed(5)
	if err != nil {
		respondInternalError(c, err, "dashboard most borrowed")
		return
	}

	c.JSON(http.StatusOK, DashboardResponse{
		TotalBooks:   totalBooks,
		TotalUsers:   totalUsers,
		ActiveLoans:  activeLoans,
		OverdueLoans: overdueLoans,
		TotalFines:   totalFines,
		MostBorrowed: mostBorrowed,
	})
}

// ListLoans handles GET /api/admin/loans
// All active loans across all members, oldest due first.
func (ac *AdminController) ListLoans(c *gin.Context) {
	limit, offset := parsePagination(c)

	records, total, err := ac.ledger.ListActive(limit, offset)
	if err != nil {
		respondInternalError(c, err, "admin list loans")
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

// ListOverdue handles GET /api/admin/overdue
func (ac *AdminController) ListOverdue(c *gin.Context) {
	records, err := ac.ledger.ListOverdue(time.Now())
	if err != nil {
		respondInternalError(c, err, "admin list overdue")
		return
	}

	c.JSON(http.StatusOK, gin.H{"overdue": toLoanResponses(records, time.Now())})
}

type reconcileRequest struct {
	BookID uint `json:"book_id"`
}

// RunReconcile handles POST /api/admin/tasks/reconcile
// Enqueues an availability audit; book_id zero means all books.
func (ac *AdminController) RunReconcile(c *gin.Context) {
	if ac.taskClient == nil {
		respondError(c, http.StatusServiceUnavailable, "task queue not configured")
		return
	}

	var req reconcileRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}

	ids, err := ac.taskClient.Add(tasks.ReconcileAvailabilityTask{BookID: req.BookID}).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue reconcile")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": ids[0],
		"message": "reconciliation enqueued",
	})
}

// RunExpireReservations handles POST /api/admin/tasks/expire-reservations
func (ac *AdminController) RunExpireReservations(c *gin.Context) {
	if ac.taskClient == nil {
		respondError(c, http.StatusServiceUnavailable, "task queue not configured")
		return
	}

	ids, err := ac.taskClient.Add(tasks.ExpireReservationsTask{}).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue reservation expiry")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": ids[0],
		"message": "reservation expiry enqueued",
	})
}
