package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "password12345",
			wantErr:  nil,
		},
		{
			name:     "too short",
			password: "short",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "exactly 12 characters",
			password: "123456789012",
			wantErr:  nil,
		},
		{
			name:     "over 72 bytes",
			password: strings.Repeat("a", 73),
			wantErr:  ErrPasswordTooLong,
		},
		{
			name:     "exactly 72 bytes",
			password: strings.Repeat("a", 72),
			wantErr:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, 4)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("HashPassword() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("HashPassword() unexpected error: %v", err)
			}
			if hash == tt.password {
				t.Error("hash equals plaintext password")
			}
			if err := CheckPassword(tt.password, hash); err != nil {
				t.Errorf("CheckPassword() failed for correct password: %v", err)
			}
		})
	}
}

func TestCheckPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("password12345", 4)
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	if err := CheckPassword("wrongpassword123", hash); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("CheckPassword() error = %v, want %v", err, ErrInvalidPassword)
	}
}

func TestGenerateAPIToken(t *testing.T) {
	token1, hash1, err := GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken() error: %v", err)
	}
	token2, hash2, err := GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken() error: %v", err)
	}

	if token1 == token2 {
		t.Error("two generated tokens are identical")
	}
	if hash1 == hash2 {
		t.Error("two generated token hashes are identical")
	}
	if token1 == hash1 {
		t.Error("token hash equals plaintext token")
	}
	if HashToken(token1) != hash1 {
		t.Error("HashToken(token) does not match generated hash")
	}
}

func TestGenerateSessionSecret(t *testing.T) {
	secret, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret() error: %v", err)
	}
	if len(secret) == 0 {
		t.Error("empty session secret")
	}

	secret2, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret() error: %v", err)
	}
	if secret == secret2 {
		t.Error("two generated secrets are identical")
	}
}
