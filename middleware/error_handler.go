package middleware

import (
	"errors"
	"net/http"

	"github.com/annazecevic/subscription-tracker/domain"
	"github.com/annazecevic/subscription-tracker/dto"
	"github.com/annazecevic/subscription-tracker/logger"
	"github.com/gin-gonic/gin"
)

const invalidBodyMessage = "Invalid request body"

// ErrorHandler turns the last error a handler attached with c.Error into a
// {success:false, message} response. Unknown errors become a 500 "Server Error";
// their detail only goes to the log.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		status, message := classifyError(last)

		fields := logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"user_id", c.GetString(ContextUserID),
			"error", last.Err.Error(),
		)
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(logger.EventGeneral, "Request failed", fields)
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			logger.Security(logger.EventAccessDenied, "Subscription access denied", fields)
		default:
			logger.Warn(logger.EventValidationFailure, "Request rejected", fields)
		}

		c.AbortWithStatusJSON(status, dto.Response{Success: false, Message: message})
	}
}

func classifyError(e *gin.Error) (int, string) {
	if e.IsType(gin.ErrorTypeBind) {
		return http.StatusBadRequest, invalidBodyMessage
	}

	var (
		verr *domain.ValidationError
		ferr *domain.ForbiddenError
	)
	switch {
	case errors.As(e.Err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(e.Err, domain.ErrAlreadyCancelled):
		return http.StatusBadRequest, domain.ErrAlreadyCancelled.Error()
	case errors.Is(e.Err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, domain.ErrUnauthorized.Error()
	case errors.As(e.Err, &ferr):
		return http.StatusForbidden, ferr.Error()
	case errors.Is(e.Err, domain.ErrForbidden):
		return http.StatusForbidden, domain.ErrForbidden.Error()
	case errors.Is(e.Err, domain.ErrSubscriptionNotFound):
		return http.StatusNotFound, domain.ErrSubscriptionNotFound.Error()
	}
	return http.StatusInternalServerError, "Server Error"
}
