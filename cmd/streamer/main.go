// Command streamer consumes the profiles table stream and removes whatever
// still depends on a deleted profile.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/fundraiser/config"
	"github.com/jacentio/fundraiser/internal/bootstrap"
	"github.com/jacentio/fundraiser/stream"
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

	backend, err := bootstrap.DynamoStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to connect to dynamodb", "error", err)
		os.Exit(1)
	}

	handler := stream.NewHandler(bootstrap.Deleter(cfg, backend, logger), logger)
	lambda.Start(handler.HandleProfileRemoval)
}
