package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type resendBody struct {
	Email string `json:"email"`
}

// UserResend issues a fresh verification mail. The response shape is the
// same whether or not the address is registered or already verified.
func (a *API) UserResend(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data resendBody
	if err := c.ShouldBind(&data); err != nil || data.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Email field can't be empty",
			"requestID": requestID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := a.Auth.ResendVerification(ctx, data.Email); err != nil {
		writeAuthError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sent":      true,
		"requestID": requestID,
	})
}
