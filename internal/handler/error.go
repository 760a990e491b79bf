package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicdesk/booking-api/pkg/errors"
)

// StatusForError maps application error codes to HTTP statuses.
func StatusForError(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest, errors.ErrInvalidSlot, errors.ErrPastSlot:
		return http.StatusBadRequest
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrForbidden:
		return http.StatusForbidden
	case errors.ErrConflict, errors.ErrSlotTaken, errors.ErrAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the client-safe message for err. Internal error
// details stay in the logs.
func ErrorMessage(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Code != errors.ErrInternal {
		return appErr.Message
	}
	return "internal server error"
}

// Error writes the JSON error response for err and records it on the
// context for the logging middleware.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(StatusForError(err), NewErrorResponse(ErrorMessage(err)))
}
