package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/auth"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/utils"
)

const invalidCredentials = "Invalid credentials."

// AuthHandler handles account signup, login and logout
type AuthHandler struct {
	users    repositories.UserRepo
	tokens   *auth.TokenManager
	denylist *auth.Denylist
	logger   ectologger.Logger
}

// NewAuthHandler creates a new auth handler. denylist may be nil, in which
// case logout is a no-op on the server.
func NewAuthHandler(users repositories.UserRepo, tokens *auth.TokenManager, denylist *auth.Denylist, logger ectologger.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		tokens:   tokens,
		denylist: denylist,
		logger:   logger,
	}
}

// SignupRequest is the request body for creating an account
type SignupRequest struct {
	Name     string `json:"name" validate:"fullname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

func (SignupRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"Name":     "Please enter your full name.",
		"Email":    "Please enter a valid email address.",
		"Password": "Password must be at least 6 characters.",
	}
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (LoginRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"Email":    invalidCredentials,
		"Password": invalidCredentials,
	}
}

// TokenResponse carries a freshly issued access token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRoutes registers the auth routes. requireAuth guards logout.
func (h *AuthHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout, requireAuth)
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[SignupRequest](c)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("failed to hash password")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create account")
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	if err := h.users.Create(ctx, user); err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithField("user_id", user.ID).Info("account created")
	return h.issue(c, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[LoginRequest](c)
	if err != nil {
		return Unauthorized(invalidCredentials)
	}

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if httperror.GetStatusCode(err) == http.StatusNotFound {
			return Unauthorized(invalidCredentials)
		}
		return err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithField("user_id", user.ID).Warn("stored password hash is unreadable")
	}
	if !ok {
		return Unauthorized(invalidCredentials)
	}

	return h.issue(c, user)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if h.denylist != nil {
		claims, err := h.tokens.Parse(middleware.BearerToken(c.Request()))
		if err == nil {
			if err := h.denylist.Revoke(ctx, claims.ID, claims.Remaining(time.Now())); err != nil {
				h.logger.WithContext(ctx).WithError(err).Error("failed to revoke token")
				return httperror.NewHTTPError(http.StatusServiceUnavailable, "logout is temporarily unavailable")
			}
		}
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) issue(c echo.Context, user *models.User) error {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.WithContext(c.Request().Context()).WithError(err).Error("failed to issue token")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	return SuccessResponse(c, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
