package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/princinho/dashbackend/models"
)

// GET /api/metrics
func (a *App) GetMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := a.Metrics.Get(c.Request.Context())
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "metrics not configured"})
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// PUT /api/metrics
func (a *App) PutMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body models.Metrics
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := a.Metrics.Set(c.Request.Context(), body); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "metrics": body})
	}
}

// GET /api/data
// Credentials never leave the server: users are reduced to summaries and the
// token table is withheld.
func (a *App) GetData() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := a.Store.Read()
		users := make([]models.UserSummary, 0, len(db.Users))
		for _, u := range db.Users {
			users = append(users, u.Summary())
		}
		c.JSON(http.StatusOK, gin.H{
			"users":    users,
			"tracks":   nonNil(db.Tracks),
			"catalog":  nonNil(db.Catalog),
			"events":   nonNil(db.Events),
			"metrics":  db.Metrics,
			"reviews":  nonNil(db.Reviews),
			"metadata": db.Metadata,
		})
	}
}

// GET /api/last-updated
func (a *App) LastUpdated() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ts string
		a.Store.View(func(db *models.Database) {
			ts = db.Metadata.LastUpdated()
		})
		if ts == "" {
			c.JSON(http.StatusOK, gin.H{"lastUpdated": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"lastUpdated": ts})
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
