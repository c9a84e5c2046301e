package auth

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestService_CreateUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4})

	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     entities.UserRole
		wantErr  error
	}{
		{
			name:     "valid librarian",
			username: "librarian",
			email:    "librarian@example.com",
			password: "password12345",
			role:     entities.UserRoleLibrarian,
			wantErr:  nil,
		},
		{
			name:     "valid member",
			username: "reader",
			email:    "reader@example.com",
			password: "password12345",
			role:     entities.UserRoleMember,
			wantErr:  nil,
		},
		{
			name:     "missing username",
			username: "",
			email:    "test@example.com",
			password: "password12345",
			role:     entities.UserRoleMember,
			wantErr:  ErrUsernameRequired,
		},
		{
			name:     "missing email",
			username: "testuser",
			email:    "",
			password: "password12345",
			role:     entities.UserRoleMember,
			wantErr:  ErrEmailRequired,
		},
		{
			name:     "missing password",
			username: "testuser",
			email:    "test@example.com",
			password: "",
			role:     entities.UserRoleMember,
			wantErr:  ErrPasswordRequired,
		},
		{
			name:     "password too short",
			username: "testuser",
			email:    "test@example.com",
			password: "short",
			role:     entities.UserRoleMember,
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "invalid role",
			username: "testuser",
			email:    "test@example.com",
			password: "password12345",
			role:     entities.UserRole("admin"),
			wantErr:  ErrInvalidRole,
		},
		{
			name:     "invalid username characters",
			username: "bad user!",
			email:    "test@example.com",
			password: "password12345",
			role:     entities.UserRoleMember,
			wantErr:  ErrUsernameInvalid,
		},
		{
			name:     "invalid email",
			username: "testuser",
			email:    "not-an-email",
			password: "password12345",
			role:     entities.UserRoleMember,
			wantErr:  ErrEmailInvalid,
		},
		{
			name:     "duplicate username",
			username: "librarian",
			email:    "other@example.com",
			password: "password12345",
			role:     entities.UserRoleMember,
			wantErr:  ErrUserExists,
		},
		{
			name:     "duplicate email",
			username: "otheruser",
			email:    "reader@example.com",
			password: "password12345",
			role:     entities.UserRoleMember,
			wantErr:  ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.CreateUser(tt.username, tt.email, tt.password, tt.role)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateUser() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateUser() unexpected error: %v", err)
			}
			if user.ID == 0 {
				t.Error("created user has zero ID")
			}
			if user.Role != tt.role {
				t.Errorf("role = %v, want %v", user.Role, tt.role)
			}
			if user.PasswordHash == tt.password {
				t.Error("password stored as plaintext")
			}
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4, MaxLoginAttempts: 3, LockoutDuration: time.Minute})

	if _, err := svc.CreateUser("reader", "reader@example.com", "password12345", entities.UserRoleMember); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	t.Run("valid credentials by username", func(t *testing.T) {
		user, err := svc.Authenticate("reader", "password12345")
		if err != nil {
			t.Fatalf("Authenticate() error: %v", err)
		}
		if user.LastLoginAt == nil {
			t.Error("last login timestamp not set")
		}
	})

	t.Run("valid credentials by email", func(t *testing.T) {
		if _, err := svc.Authenticate("reader@example.com", "password12345"); err != nil {
			t.Fatalf("Authenticate() error: %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.Authenticate("reader", "wrongpassword1"); !errors.Is(err, ErrInvalidPassword) {
			t.Errorf("Authenticate() error = %v, want %v", err, ErrInvalidPassword)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := svc.Authenticate("nobody", "password12345"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("Authenticate() error = %v, want %v", err, ErrUserNotFound)
		}
	})
}

func TestService_AccountLockout(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4, MaxLoginAttempts: 3, LockoutDuration: time.Hour})

	if _, err := svc.CreateUser("reader", "reader@example.com", "password12345", entities.UserRoleMember); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate("reader", "wrongpassword1"); err == nil {
			t.Fatal("Authenticate() succeeded with wrong password")
		}
	}

	// Account is locked now, even with the right password
	if _, err := svc.Authenticate("reader", "password12345"); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("Authenticate() error = %v, want %v", err, ErrAccountLocked)
	}
}

func TestService_Tokens(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4, TokenExpiry: time.Hour})

	user, err := svc.CreateUser("reader", "reader@example.com", "password12345", entities.UserRoleMember)
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	token, err := svc.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	t.Run("valid token", func(t *testing.T) {
		got, err := svc.ValidateToken(token)
		if err != nil {
			t.Fatalf("ValidateToken() error: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("user ID = %d, want %d", got.ID, user.ID)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if _, err := svc.ValidateToken("deadbeef"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})

	t.Run("revoked token", func(t *testing.T) {
		if err := svc.RevokeToken(user.ID); err != nil {
			t.Fatalf("RevokeToken() error: %v", err)
		}
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
		}
	})
}

func TestService_ChangePassword(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4})

	user, err := svc.CreateUser("reader", "reader@example.com", "password12345", entities.UserRoleMember)
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "wrongpassword1", "newpassword12345"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("ChangePassword() error = %v, want %v", err, ErrInvalidPassword)
	}

	if err := svc.ChangePassword(user.ID, "password12345", "newpassword12345"); err != nil {
		t.Fatalf("ChangePassword() error: %v", err)
	}

	if _, err := svc.Authenticate("reader", "newpassword12345"); err != nil {
		t.Errorf("Authenticate() with new password failed: %v", err)
	}
	if _, err := svc.Authenticate("reader", "password12345"); err == nil {
		t.Error("Authenticate() succeeded with old password")
	}
}

func TestService_EnsureDefaultUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{Mode: config.AuthModeNone})

	user, err := svc.EnsureDefaultUser()
	if err != nil {
		t.Fatalf("EnsureDefaultUser() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("EnsureDefaultUser() did not persist a user row")
	}
	if user.Username != DefaultUsername {
		t.Errorf("EnsureDefaultUser() username = %q, want %q", user.Username, DefaultUsername)
	}
	if user.PasswordHash != "" {
		t.Error("EnsureDefaultUser() must not create a loginable account")
	}

	again, err := svc.EnsureDefaultUser()
	if err != nil {
		t.Fatalf("EnsureDefaultUser() second call error = %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("EnsureDefaultUser() is not idempotent: got ID %d, want %d", again.ID, user.ID)
	}

	var count int64
	if err := db.Model(&entities.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}
