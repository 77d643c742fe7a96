package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"veltra-system/internal/service"
)

func success(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// statusFor maps the service error taxonomy onto HTTP statuses: 400 for
// validation failures, 404 for missing records, 409 for state-transition
// violations and 500 for upstream trouble.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, service.ErrRecipeNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrConversionRejected),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrNoActiveLocations):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseID(c *gin.Context, param string) (int64, error) {
	return strconv.ParseInt(c.Param(param), 10, 64)
}

func parseInt64Query(c *gin.Context, param string) int64 {
	val, err := strconv.ParseInt(c.Query(param), 10, 64)
	if err != nil {
		return 0
	}
	return val
}
