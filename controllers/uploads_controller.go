package controllers

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (a *App) limitBody(c *gin.Context) {
	if a.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.MaxUploadBytes)
	}
}

// POST /api/upload-csv?resource=tracks
func (a *App) UploadCSV() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("resource")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resource query parameter required"})
			return
		}
		if _, err := a.Resources.Collection(name); err != nil {
			a.writeError(c, err)
			return
		}

		a.limitBody(c)
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}

		dir := a.UploadsDir
		if dir == "" {
			dir = os.TempDir()
		}
		dst := filepath.Join(dir, "tmp", uuid.NewString()+".csv")
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			a.writeError(c, fmt.Errorf("mkdir upload dir: %w", err))
			return
		}
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			_ = os.Remove(dst)
			a.writeError(c, fmt.Errorf("save upload: %w", err))
			return
		}

		rows, err := a.CSV.ImportFile(c.Request.Context(), name, dst)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "imported": len(rows), "rows": rows})
	}
}

// POST /api/upload-review
func (a *App) UploadReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		a.limitBody(c)
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
			return
		}

		files := form.File["files[]"]
		if len(files) == 0 {
			files = form.File["files"]
		}
		if len(files) > a.Reviews.MaxFiles() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("too many files (max %d)", a.Reviews.MaxFiles())})
			return
		}

		reviews, err := a.Reviews.SaveUploads(c.Request.Context(), files, c.PostForm("eventName"))
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "reviews": reviews})
	}
}

// GET /api/reviews
func (a *App) ListReviews() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, a.Reviews.List(c.Request.Context()))
	}
}

// GET /api/reviews/:id/file
func (a *App) GetReviewFile() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc, review, err := a.Reviews.Open(c.Request.Context(), c.Param("id"))
		if err != nil {
			a.writeError(c, err)
			return
		}
		defer rc.Close()

		disposition := mime.FormatMediaType("inline", map[string]string{"filename": review.OriginalName})
		c.DataFromReader(http.StatusOK, review.Size, review.Mime, rc, map[string]string{
			"Content-Disposition": disposition,
		})
	}
}

// DELETE /api/reviews/:id
func (a *App) DeleteReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.Reviews.Delete(c.Request.Context(), c.Param("id")); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
