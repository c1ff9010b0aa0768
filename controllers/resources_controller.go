package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/:resource
func (a *App) ListResource() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := a.Resources.List(c.Request.Context(), c.Param("resource"))
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// POST /api/:resource
func (a *App) CreateResource() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("resource")
		if _, err := a.Resources.Collection(name); err != nil {
			a.writeError(c, err)
			return
		}

		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		created, err := a.Resources.Create(c.Request.Context(), name, payload)
		if err != nil {
			a.writeError(c, err)
			return
		}
		resp := gin.H{"success": true, "item": created.Record}
		if created.TemporaryPassword != "" {
			resp["temporaryPassword"] = created.TemporaryPassword
		}
		c.JSON(http.StatusOK, resp)
	}
}

// PUT /api/:resource/:id
// The id is the serial number for every collection except users.
func (a *App) UpdateResource() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("resource")
		if _, err := a.Resources.Collection(name); err != nil {
			a.writeError(c, err)
			return
		}

		var patch map[string]any
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item, err := a.Resources.Update(c.Request.Context(), name, c.Param("id"), patch)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
	}
}

// DELETE /api/:resource/:id
func (a *App) DeleteResource() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.Resources.Delete(c.Request.Context(), c.Param("resource"), c.Param("id")); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
