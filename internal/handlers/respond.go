package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/middleware"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// respond writes a success envelope.
func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, models.Response{Success: true, Message: message, Data: data})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the failure envelope for err. Unexpected errors are logged with
// the request id and reported with an opaque message.
func (h *Handler) fail(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind != apperr.KindUnexpected {
		message := appErr.Message
		if message == "" {
			message = appErr.Kind.String()
		}
		c.JSON(statusFor(appErr.Kind), models.Response{
			Success: false,
			Message: message,
			Errors:  appErr.Fields,
		})
		return
	}

	h.log.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(c),
		"method":     c.Request.Method,
		"path":       c.FullPath(),
	}).Error("❌ Unexpected error")
	c.JSON(http.StatusInternalServerError, models.Response{
		Success: false,
		Message: "An unexpected error occurred",
	})
}

// bindJSON decodes and validates the body, writing a 422 on failure.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, bindError(err))
		return false
	}
	return true
}

// bindQuery decodes and validates the query string, writing a 422 on failure.
func (h *Handler) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		h.fail(c, bindError(err))
		return false
	}
	return true
}

// pathID parses a numeric path parameter. Anything else is a 404, the same
// as an id that does not exist.
func (h *Handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		h.fail(c, apperr.NotFound("Resource not found"))
		return 0, false
	}
	return id, true
}
