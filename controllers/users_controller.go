package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/princinho/dashbackend/dto"
	"github.com/princinho/dashbackend/models"
)

// GET /api/users
func (a *App) ListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := a.Resources.List(c.Request.Context(), string(models.ResourceUsers))
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// POST /api/me/password
func (a *App) ChangeMyPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangeMyPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err := a.Auth.ChangePassword(c.Request.Context(), sessionUserID(c), sessionToken(c), body.CurrentPassword, body.NewPassword)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
