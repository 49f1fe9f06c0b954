package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"referral-backend/internal/common/errors"
	"referral-backend/internal/common/logger"
)

// ErrorHandler recovers from panics and renders them as internal errors.
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("panic", fmt.Sprintf("%v", recovered)).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error")
		RespondError(c, appErr)
	})
}

// RequestID assigns a request id, honoring one supplied by the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger logs every request with latency and status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info().
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
}

// RespondError maps an error to an HTTP response and logs it.
func RespondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrCodeInternal, "Internal server error")
	}

	logError(c, appErr)

	c.AbortWithStatusJSON(httpStatusFor(appErr), ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: GetRequestID(c),
	})
}

func httpStatusFor(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeInvalidWallet:
		return http.StatusBadRequest
	case errors.ErrCodeBelowMinimum, errors.ErrCodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeUserNotFound, errors.ErrCodePackageNotFound,
		errors.ErrCodePaymentNotFound, errors.ErrCodeNoticeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeConflict, errors.ErrCodeDuplicatePending, errors.ErrCodeAlreadyResolved,
		errors.ErrCodeInvalidTransition, errors.ErrCodePackageReferenced:
		return http.StatusConflict
	case errors.ErrCodeDatabaseError:
		return http.StatusInternalServerError
	case errors.ErrCodeCacheError:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTelegramAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func logError(c *gin.Context, appErr *errors.AppError) {
	event := logger.Info()
	switch {
	case appErr.IsInternal():
		event = logger.Error()
	case appErr.IsUnauthorized():
		event = logger.Warn()
	}

	event.
		Str("request_id", GetRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Str("error_message", appErr.Message)

	if appErr.Cause != nil {
		event.Err(appErr.Cause)
	}
	event.Msg("request failed")
}

// GetRequestID returns the request id set by RequestID.
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return "unknown"
}
