package controllers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/princinho/dashbackend/database"
	"github.com/princinho/dashbackend/logging"
	"github.com/princinho/dashbackend/middleware"
	"github.com/princinho/dashbackend/services"
	"github.com/princinho/dashbackend/telemetry"
)

// App bundles the services the HTTP handlers call into.
type App struct {
	Store     *database.Store
	Auth      *services.AuthService
	Resources *services.ResourceService
	CSV       *services.CSVImporter
	Reviews   *services.ReviewService
	Metrics   *services.MetricsService
	Telemetry *telemetry.Collectors
	Logger    logging.Logger

	// UploadsDir receives CSV uploads until they are imported.
	UploadsDir string
	// MaxUploadBytes caps multipart request bodies.
	MaxUploadBytes int64
}

type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(app *App, opts RouterOptions) *gin.Engine {
	if app.Logger == nil {
		app.Logger = logging.Discard()
	}

	r := gin.New()

	allowedOrigins := map[string]bool{}
	for _, origin := range opts.AllowedOrigins {
		allowedOrigins[origin] = true
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics(app.Telemetry))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/debug/prometheus", gin.WrapH(app.Telemetry.Handler()))

	authed := middleware.AuthMiddleware(app.Auth)
	admin := middleware.AdminMiddleware(app.Auth)

	api := r.Group("/api")
	{
		api.POST("/login", app.Login())
		api.POST("/reset-password", app.ResetPassword())
		api.POST("/logout", authed, app.Logout())
		api.GET("/me", authed, app.Me())
		api.POST("/me/password", authed, app.ChangeMyPassword())

		api.GET("/users", authed, app.ListUsers())

		api.GET("/metrics", app.GetMetrics())
		api.PUT("/metrics", admin, app.PutMetrics())
		api.GET("/data", app.GetData())
		api.GET("/last-updated", app.LastUpdated())

		api.POST("/upload-csv", admin, app.UploadCSV())
		api.POST("/upload-review", admin, app.UploadReview())
		api.GET("/reviews", authed, app.ListReviews())
		api.GET("/reviews/:id/file", authed, app.GetReviewFile())
		api.DELETE("/reviews/:id", admin, app.DeleteReview())

		api.GET("/:resource", app.ListResource())
		api.POST("/:resource", admin, app.CreateResource())
		api.PUT("/:resource/:id", admin, app.UpdateResource())
		api.DELETE("/:resource/:id", admin, app.DeleteResource())
	}

	return r
}

// writeError maps service errors onto status codes. Anything that is not a
// ServiceError is an internal failure and is logged rather than echoed.
func (a *App) writeError(c *gin.Context, err error) {
	switch services.CodeOf(err) {
	case services.ErrorInvalid, services.ErrorConflict, services.ErrorParse:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case services.ErrorUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case services.ErrorForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case services.ErrorNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		a.Logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func sessionUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}

func sessionToken(c *gin.Context) string {
	return c.GetString(middleware.CtxToken)
}
