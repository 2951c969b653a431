package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/bootstrap"
	"github.com/ynput/ayon-backend-sub000/internal/config"
	"github.com/ynput/ayon-backend-sub000/internal/interfaces/middleware"
	"github.com/ynput/ayon-backend-sub000/internal/interfaces/rest"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Start(context.Background(), cfg)
	if err != nil {
		logrus.WithError(err).Fatal("❌ Failed to start")
	}
	sm := app.Services
	log := logger.WithComponent("server")

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	signer := auth.NewSigner(cfg.JWTSecret, 0)
	rest.RegisterRoutes(router.Group(constants.APIPrefix), rest.Handlers{
		Settings:       rest.NewSettingsHandler(sm.Settings),
		Bundles:        rest.NewBundleHandler(sm.Bundles, sm.Migration),
		ProjectBundles: rest.NewProjectBundleHandler(sm.ProjectBundles),
		Events:         rest.NewEventHandler(sm.Events),
	}, middleware.RequireAuth(signer), middleware.RequireAdmin())

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("🚀 Settings server started")
	log.Infof("📍 Server:       http://localhost:%s", cfg.Port)
	log.Infof("⚙️  Settings API: http://localhost:%s%s/addons", cfg.Port, constants.APIPrefix)
	log.Infof("📦 Bundles API:  http://localhost:%s%s/bundles", cfg.Port, constants.APIPrefix)
	log.Infof("💚 Health check: http://localhost:%s/health", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	if err := app.Close(); err != nil {
		log.WithError(err).Warn("failed to close database")
	}
	log.Info("🛑 Server exiting")
}
