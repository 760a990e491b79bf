package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/clinicdesk/booking-api/internal/handler"
)

// ErrorHandler logs errors recorded on the gin context and writes a
// response for any error no handler responded to.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		if !c.Writer.Written() {
			lastErr := c.Errors.Last().Err
			c.JSON(handler.StatusForError(lastErr), handler.NewErrorResponse(handler.ErrorMessage(lastErr)))
		}
	}
}
