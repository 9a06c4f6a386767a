package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserLogout revokes the single session behind the presented refresh token.
func (a *API) UserLogout(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data refreshBody
	if err := c.ShouldBind(&data); err != nil || strings.TrimSpace(data.RefreshToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "refreshToken field is required",
			"requestID": requestID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := a.Auth.Logout(ctx, strings.TrimSpace(data.RefreshToken)); err != nil {
		writeAuthError(c, requestID, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UserLogoutAll revokes every session of the authenticated caller.
func (a *API) UserLogoutAll(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := a.Auth.LogoutAll(ctx, userID); err != nil {
		writeAuthError(c, requestID, err)
		return
	}

	c.Status(http.StatusNoContent)
}
