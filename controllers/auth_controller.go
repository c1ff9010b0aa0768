package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/princinho/dashbackend/dto"
	"github.com/princinho/dashbackend/services"
)

// POST /api/login
func (a *App) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := a.Auth.Login(c.Request.Context(), services.Identity{Email: body.Email, Username: body.Username}, body.Password)
		if err != nil {
			a.writeError(c, err)
			return
		}
		if res.MustReset {
			c.JSON(http.StatusOK, gin.H{"success": true, "mustReset": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"token":     res.Token,
			"role":      res.Role,
			"expiresAt": res.ExpiresAt,
		})
	}
}

// POST /api/reset-password
func (a *App) ResetPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ResetPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id := services.Identity{Email: body.Email, Username: body.Username}
		res, err := a.Auth.ResetPassword(c.Request.Context(), id, body.OldPassword, body.NewPassword)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"token":     res.Token,
			"role":      res.Role,
			"expiresAt": res.ExpiresAt,
		})
	}
}

// POST /api/logout
func (a *App) Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.Auth.Logout(c.Request.Context(), sessionToken(c)); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// GET /api/me
func (a *App) Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.Auth.CurrentUser(c.Request.Context(), sessionUserID(c))
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
