package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/predictify/internal/auth"
	"github.com/OldStager01/predictify/internal/catalog"
	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/pkg/models"
	"github.com/OldStager01/predictify/pkg/validation"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string   `json:"error" example:"event not found"`
	Issues []string `json:"issues,omitempty"`
}

// Pagination bounds shared by the listing endpoints.
type Pagination struct {
	DefaultLimit int
	MaxLimit     int
}

func (p Pagination) limit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return p.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	return limit, nil
}

// respondError maps domain errors onto status codes. Anything unknown is a
// 500 whose detail is logged, not returned.
func respondError(c *gin.Context, err error, fallback string) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Kind.Error(), Issues: verr.Issues})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		c.JSON(status, ErrorResponse{Error: fallback})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidEventAttributes):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, catalog.ErrForbidden),
		errors.Is(err, auth.ErrUserBanned):
		return http.StatusForbidden
	case errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSlugTaken),
		errors.Is(err, models.ErrUsernameTaken),
		errors.Is(err, models.ErrAlreadyInterested),
		errors.Is(err, catalog.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
