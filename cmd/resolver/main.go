// Command resolver is the AppSync direct Lambda resolver.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/fundraiser/config"
	"github.com/jacentio/fundraiser/internal/bootstrap"
	"github.com/jacentio/fundraiser/resolver"
)

func main() {
	cfg, err := config.Load(os.Getenv("FUNDRAISER_ENV"))
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

	ctx := context.Background()
	backend, err := bootstrap.DynamoStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to dynamodb", "error", err)
		os.Exit(1)
	}
	svc, closeMedia, err := bootstrap.Service(ctx, cfg, backend, logger)
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}
	defer closeMedia()

	handler := resolver.NewHandler(svc, logger)
	lambda.Start(handler.Invoke)
}
