package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictify/internal/auth"
	"github.com/OldStager01/predictify/pkg/models"
)

// CookieConfig controls the session cookie written on login.
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	accounts *auth.Accounts
	cookie   CookieConfig
}

func NewAuthHandler(accounts *auth.Accounts, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		cookie:   cookie,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"ana"`
	Password string `json:"password" binding:"required" example:"Secret123"`
}

type RegisterRequest struct {
	Username string          `json:"username" binding:"required" example:"ana"`
	Password string          `json:"password" binding:"required" example:"Secret123"`
	Role     models.UserRole `json:"role" example:"ORGANIZER"`
}

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresIn int             `json:"expires_in" example:"86400"`
	Username  string          `json:"username" example:"ana"`
	Role      models.UserRole `json:"role" example:"ORGANIZER"`
}

// Login godoc
// @Summary Log in
// @Description Exchanges credentials for a JWT, also set as an HTTP-only cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "User banned"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	token, user, err := h.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		respondError(c, err, "login failed")
		return
	}

	h.respondWithToken(c, http.StatusOK, token, user)
}

// Register godoc
// @Summary Create an account
// @Description Registers an attendee or organizer and logs them in
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account"
// @Success 201 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Username taken"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.accounts.Register(ctx, req.Username, req.Password, req.Role)
	if err != nil {
		respondError(c, err, "registration failed")
		return
	}

	token, err := h.accounts.Tokens().GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(c, err, "failed to generate token")
		return
	}

	h.respondWithToken(c, http.StatusCreated, token, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, token string, user *models.User) {
	maxAge := int(h.accounts.Tokens().TokenDuration().Seconds())

	if h.cookie.Name != "" {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
	}

	c.JSON(status, LoginResponse{
		Token:     token,
		ExpiresIn: maxAge,
		Username:  user.Username,
		Role:      user.Role,
	})
}
