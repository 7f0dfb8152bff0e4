// Command devserver serves the resolver over HTTP on an embedded database,
// for local development without AWS.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jacentio/fundraiser/config"
	"github.com/jacentio/fundraiser/internal/bootstrap"
	"github.com/jacentio/fundraiser/internal/localstore"
	"github.com/jacentio/fundraiser/resolver"
)

func main() {
	env := flag.String("env", "dev", "config environment (<env>.yaml)")
	flag.Parse()

	cfg, err := config.Load(*env, "config")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	backend, err := localstore.New(localstore.Options{Dir: cfg.Dev.DataDir}, localstore.Layout(cfg.Store())...)
	if err != nil {
		logger.Error("failed to open local store", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	ctx := context.Background()
	svc, closeMedia, err := bootstrap.Service(ctx, cfg, backend, logger)
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}
	defer closeMedia()

	e := newServer(resolver.NewHandler(svc, logger), logger)

	go func() {
		logger.Info("starting dev server", "listen", cfg.Dev.Listen, "dataDir", cfg.Dev.DataDir)
		if err := e.Start(cfg.Dev.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dev server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("dev server forced to shutdown", "error", err)
	}
}
