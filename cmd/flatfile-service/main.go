package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/synaptica-ai/prelude-parser/pkg/api"
	"github.com/synaptica-ai/prelude-parser/pkg/common/config"
	"github.com/synaptica-ai/prelude-parser/pkg/common/logger"
	"github.com/synaptica-ai/prelude-parser/pkg/service"
)

func main() {
	logger.Init()
	cfg := config.Load()

	svc, cleanup, err := service.Bootstrap(cfg, "flatfile-service")
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to initialise flatfile service")
	}
	defer cleanup()

	handler := api.NewHandler(svc, cfg.MaxRequestBody)
	router := api.NewRouter(handler)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Flatfile service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start flatfile service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down flatfile service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Flatfile service forced to shutdown")
	}
	logger.Log.Info("Flatfile service stopped")
}
