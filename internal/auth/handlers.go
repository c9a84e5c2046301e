package auth

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/entities"
)

// registerMutex serializes registration so concurrent first-user requests
// cannot both claim the librarian role.
var registerMutex sync.Mutex

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// userResponse is the JSON shape returned for user objects. Password and
// token hashes never leave the server.
type userResponse struct {
	ID       uint              `json:"id"`
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Role     entities.UserRole `json:"role"`
}

func toUserResponse(user *entities.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}

// Register creates a new member account. The very first account registered
// becomes a librarian so a fresh install is administrable.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required", "code": "invalid_request"})
		return
	}

	registerMutex.Lock()
	defer registerMutex.Unlock()

	role := entities.UserRoleMember
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error", "code": "internal_error"})
		return
	}
	if !hasUsers {
		role = entities.UserRoleLibrarian
	}

	user, err := ac.service.CreateUser(req.Username, req.Email, req.Password, role)
	if err != nil {
		status, msg := registrationError(err)
		c.JSON(status, gin.H{"error": msg, "code": "registration_failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

func registrationError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUserExists):
		return http.StatusConflict, "username or email already taken"
	case errors.Is(err, ErrPasswordTooShort):
		return http.StatusBadRequest, "password must be at least 12 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return http.StatusBadRequest, "password exceeds maximum length of 72 characters"
	case errors.Is(err, ErrUsernameInvalid):
		return http.StatusBadRequest, "username must be 3-64 characters, alphanumeric with underscore/hyphen only"
	case errors.Is(err, ErrEmailInvalid):
		return http.StatusBadRequest, "invalid email format"
	case errors.Is(err, ErrUsernameRequired), errors.Is(err, ErrEmailRequired), errors.Is(err, ErrPasswordRequired):
		return http.StatusBadRequest, "username, email and password are required"
	default:
		return http.StatusInternalServerError, "failed to create user"
	}
}

// Login authenticates a user and creates a session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required", "code": "invalid_request"})
		return
	}

	user, err := ac.service.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrAccountLocked) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "account is locked, try again later", "code": "account_locked"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password", "code": "invalid_credentials"})
		return
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session", "code": "internal_error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// Logout destroys the current session.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.service.GetUserByID(GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found", "code": "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// GenerateToken creates a new API token for the authenticated user.
// The plaintext token is returned exactly once.
func (ac *AuthController) GenerateToken(c *gin.Context) {
	token, err := ac.service.GenerateToken(GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token", "code": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (ac *AuthController) RevokeToken(c *gin.Context) {
	if err := ac.service.RevokeToken(GetUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token", "code": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

// ChangePassword updates the authenticated user's password.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password are required", "code": "invalid_request"})
		return
	}

	if err := ac.service.ChangePassword(GetUserID(c), req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 12 characters", "code": "invalid_request"})
		case errors.Is(err, ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password exceeds maximum length of 72 characters", "code": "invalid_request"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect", "code": "invalid_credentials"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}
