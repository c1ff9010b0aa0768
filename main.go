package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/princinho/dashbackend/config"
	"github.com/princinho/dashbackend/controllers"
	"github.com/princinho/dashbackend/database"
	"github.com/princinho/dashbackend/logging"
	"github.com/princinho/dashbackend/services"
	"github.com/princinho/dashbackend/storage"
	"github.com/princinho/dashbackend/telemetry"
	"github.com/princinho/dashbackend/utils"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	if logging.ParseLevel(cfg.LogLevel) > logging.ParseLevel("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := telemetry.New()
	store, err := database.New(&database.Options{
		Filename: cfg.DataFile,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		log.Fatal(err)
	}

	//seeding admin user
	seed := utils.AdminSeed{Email: cfg.AdminEmail, Username: cfg.AdminUsername, Password: cfg.AdminPassword}
	if _, err := utils.SeedAdminUser(ctx, store, seed, logger); err != nil {
		log.Fatal(err)
	}

	backend, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if closer, ok := backend.(io.Closer); ok {
		defer closer.Close()
	}
	logger.Info(ctx, "review storage ready", "backend", backend.Describe())

	resources := services.NewResourceService(store, services.ResourceOptions{Logger: logger})
	app := &controllers.App{
		Store: store,
		Auth: services.NewAuthService(store, services.AuthOptions{
			TokenTTL: cfg.TokenTTL,
			Logger:   logger,
			Metrics:  metrics,
		}),
		Resources: resources,
		CSV:       services.NewCSVImporter(resources, logger),
		Reviews: services.NewReviewService(store, backend, services.ReviewOptions{
			MaxFiles:  cfg.MaxReviewFiles,
			Validator: utils.NewPDFOrImageValidator(cfg.MaxUploadSizeMB),
			Logger:    logger,
		}),
		Metrics:        services.NewMetricsService(store),
		Telemetry:      metrics,
		Logger:         logger,
		UploadsDir:     cfg.UploadsDir,
		MaxUploadBytes: int64(cfg.MaxReviewFiles*cfg.MaxUploadSizeMB+1) << 20,
	}

	r := controllers.NewRouter(app, controllers.RouterOptions{AllowedOrigins: cfg.AllowedOrigins})
	logger.Info(ctx, "listening", "addr", cfg.Addr(), "data_file", store.Path(), "allowed_origins", cfg.AllowedOrigins)
	if err := r.Run(cfg.Addr()); err != nil {
		log.Fatal(err)
	}
}
