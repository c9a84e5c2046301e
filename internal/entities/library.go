package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleMember    UserRole = "member"
	UserRoleLibrarian UserRole = "librarian"
)

type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "Borrowed"
	LoanStatusReturned LoanStatus = "Returned"
	// LoanStatusOverdue is a read-side label only: no code path ever stores it.
	// An active loan past its due date is reported as overdue at query time.
	LoanStatusOverdue LoanStatus = "Overdue"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

type User struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	Username     string   `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string   `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string   `gorm:"size:100" json:"-"`
	Role         UserRole `gorm:"size:20;default:'member'" json:"role"`

	// API token (hash only; plaintext is shown to the user once)
	TokenHash      string     `gorm:"index;size:64" json:"-"`
	TokenCreatedAt *time.Time `json:"-"`

	// Login lockout bookkeeping
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Book struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	Title           string  `gorm:"index;size:512" json:"title"`
	Author          string  `gorm:"index;size:256" json:"author"`
	ISBN            *string `gorm:"uniqueIndex;size:20" json:"isbn,omitempty"`
	Genre           string  `gorm:"index;size:100" json:"genre,omitempty"`
	PublicationYear int     `json:"publication_year,omitempty"`
	Description     string  `gorm:"type:text" json:"description,omitempty"`

	// TotalCopies is the physical inventory; AvailableCopies is a denormalized
	// projection of the borrowing ledger (total minus active loans). Both are
	// mutated only inside circulation/catalog transactions.
	TotalCopies     int `gorm:"default:0" json:"total_copies"`
	AvailableCopies int `gorm:"default:0" json:"available_copies"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BorrowingRecord struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Reference string `gorm:"uniqueIndex;size:36" json:"reference"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	BookID uint `gorm:"index;not null" json:"book_id"`
	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Book   Book `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"book,omitempty"`

	Status     LoanStatus `gorm:"index;size:20;default:'Borrowed'" json:"status"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `gorm:"index" json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`

	// FineAmount is zero while the loan is active, computed once at return
	// and frozen thereafter. Currency units.
	FineAmount int64 `gorm:"default:0" json:"fine_amount"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Reservation struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Reference string `gorm:"uniqueIndex;size:36" json:"reference"`

	UserID uint `gorm:"index;not null" json:"user_id"`
	BookID uint `gorm:"index;not null" json:"book_id"`
	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Book   Book `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"book,omitempty"`

	Status     ReservationStatus `gorm:"index;size:20;default:'pending'" json:"status"`
	ReservedAt time.Time         `json:"reserved_at"`
	ExpiresAt  time.Time         `gorm:"index" json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Review struct {
	ID uint `gorm:"primaryKey" json:"id"`

	UserID uint `gorm:"index;not null;uniqueIndex:idx_reviews_user_book" json:"user_id"`
	BookID uint `gorm:"index;not null;uniqueIndex:idx_reviews_user_book" json:"book_id"`
	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Book   Book `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"-"`

	Rating  int    `gorm:"not null" json:"rating"` // 1-5 stars
	Comment string `gorm:"type:text" json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (Book) TableName() string {
	return "books"
}

func (BorrowingRecord) TableName() string {
	return "borrowing_records"
}

func (Reservation) TableName() string {
	return "reservations"
}

func (Review) TableName() string {
	return "reviews"
}

// Active reports whether the record represents a loan that has not been
// returned yet.
func (r BorrowingRecord) Active() bool {
	return r.Status == LoanStatusBorrowed
}

// DisplayStatus returns the status with the overdue label applied at read
// time: an active loan past its due date reads as Overdue without any stored
// state transition.
func (r BorrowingRecord) DisplayStatus(now time.Time) LoanStatus {
	if r.Status == LoanStatusBorrowed && now.After(r.DueDate) {
		return LoanStatusOverdue
	}
	return r.Status
}
