package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type forgotBody struct {
	Email string `json:"email"`
}

// PasswordForgot requests a reset mail. Always answers sent:true so the
// endpoint cannot be used to probe which emails are registered.
func (a *API) PasswordForgot(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data forgotBody
	if err := c.ShouldBind(&data); err != nil || data.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Email field can't be empty",
			"requestID": requestID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := a.Auth.RequestPasswordReset(ctx, data.Email); err != nil {
		writeAuthError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sent":      true,
		"requestID": requestID,
	})
}
