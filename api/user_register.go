package api

import (
	"context"
	"net/http"

	"agromarket/account-api/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

func (a *API) UserRegister(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := a.Auth.Register(ctx, data.Email, data.Password, auth.Profile{
		FullName: data.FullName,
		Role:     data.Role,
		Phone:    data.Phone,
		Location: data.Location,
	})
	if err != nil {
		writeAuthError(c, requestID, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":      user,
		"requestID": requestID,
	})
}
