package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *API) TokenRefresh(c *gin.Context) {
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

	pair, err := a.Auth.Refresh(ctx, strings.TrimSpace(data.RefreshToken))
	if err != nil {
		writeAuthError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tokens":    pair,
		"requestID": requestID,
	})
}
