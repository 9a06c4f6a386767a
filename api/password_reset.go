package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type resetBody struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (a *API) PasswordReset(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data resetBody
	if err := c.ShouldBind(&data); err != nil || data.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Token and newPassword fields are required",
			"requestID": requestID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := a.Auth.ResetPassword(ctx, data.Token, data.NewPassword); err != nil {
		writeAuthError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"requestID": requestID,
	})
}
