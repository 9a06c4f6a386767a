package middleware

import (
	"errors"
	"net/http"
	"strings"

	"agromarket/account-api/internal/auth"
	"agromarket/account-api/pkg/security"

	"github.com/gin-gonic/gin"
)

// NewJWTMiddleware guards a route group with access-token verification.
// On success the request context carries "userID" and "role".
func NewJWTMiddleware(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Missing bearer token",
				"requestID": requestID,
			})
			return
		}

		ident, err := issuer.VerifyAccess(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "Access token expired. Please log in again",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Access token invalid",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", ident.UserID)
		c.Set("role", ident.Role)
		c.Next()
	}
}
