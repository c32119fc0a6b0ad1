package handler

import (
	"errors"
	"net/http"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/service"
	"github.com/J3ZZ3/empcare/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorFrom rebuilds the caller identity that the auth middleware stored on
// the context.
func actorFrom(c *gin.Context) service.Actor {
	actor := service.Actor{Role: c.GetString("userRole")}
	if raw, ok := c.Get("userID"); ok {
		if s, ok := raw.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				actor.ID = id
			}
		}
	}
	return actor
}

// respondError maps service errors onto HTTP status codes. Every handler
// funnels errors through here so the mapping stays in one place.
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuthorization), errors.Is(err, apperr.ErrHistoricalEditDenied):
		status = http.StatusForbidden
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsConflict(err):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, response.Error(status, err.Error()))
}
