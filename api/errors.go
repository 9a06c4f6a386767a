package api

import (
	"errors"
	"net/http"

	"agromarket/account-api/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeAuthError is the single place the auth error taxonomy turns into
// status codes and stable, non-revealing messages.
func writeAuthError(c *gin.Context, requestID string, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
	case errors.Is(err, auth.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "This email is already registered. Please login or use a different email",
			"requestID": requestID,
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})
	case errors.Is(err, auth.ErrUnverifiedAccount):
		c.JSON(http.StatusForbidden, gin.H{
			"error":     "Please verify your account before logging in",
			"requestID": requestID,
		})
	case errors.Is(err, auth.ErrInvalidOrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid or expired token",
			"requestID": requestID,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Operation failed", zap.Error(err), zap.String("requestID", requestID))
	}
}
