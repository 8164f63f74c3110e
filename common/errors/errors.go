package errors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error types
var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
	ErrGatewayTimeout     = New(http.StatusGatewayTimeout, "Request timed out", nil)
)

// Business logic error types
var (
	ErrProductNotFound   = New(http.StatusNotFound, "Product not found", nil)
	ErrOrderNotPlaced    = New(http.StatusBadGateway, "Order could not be placed", nil)
	ErrDatabaseQuery     = New(http.StatusInternalServerError, "Database query error", nil)
	ErrBrokerUnavailable = New(http.StatusBadGateway, "Message broker unavailable", nil)
)

// ErrorMiddleware maps errors attached to the gin context to JSON responses.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			var appErr *Error
			if e, ok := err.(*Error); ok {
				appErr = e
			} else {
				appErr = New(http.StatusInternalServerError, "Internal server error", err)
			}

			c.JSON(appErr.Code, appErr)
			c.Abort()
		}
	}
}
