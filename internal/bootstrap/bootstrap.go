// Package bootstrap assembles the service from configuration for the
// command entrypoints.
package bootstrap

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/pkg/errors"

	// Blob drivers selectable through media.bucketURL.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/jacentio/fundraiser/cascade"
	"github.com/jacentio/fundraiser/config"
	"github.com/jacentio/fundraiser/internal/qr"
	"github.com/jacentio/fundraiser/media"
	"github.com/jacentio/fundraiser/service"
	"github.com/jacentio/fundraiser/store"
)

// DynamoStore connects to DynamoDB using the default AWS credential chain.
func DynamoStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})
	return store.New(client, cfg.Store()), nil
}

// Service builds the service over backend. The returned close func releases
// the media bucket.
func Service(ctx context.Context, cfg *config.Config, backend store.Backend, logger *slog.Logger) (*service.Service, func() error, error) {
	invoker, err := media.Open(ctx, cfg.Media.BucketURL, cfg.Media.PresignTTL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open media bucket")
	}

	svc := service.New(backend, service.Options{
		Tables:               cfg.Store(),
		MaxSharedCampaigns:   cfg.Limits.MaxSharedCampaigns,
		CascadeMaxIterations: cfg.Limits.CascadeMaxIterations,
		InviteTTL:            cfg.Limits.InviteTTL,
		Media:                invoker,
		QR:                   qr.NewRenderer(cfg.QR.Size, cfg.QR.RecoveryLevel, cfg.QR.RedeemBaseURL),
		Logger:               logger,
	})
	return svc, invoker.Close, nil
}

// Deleter builds the cascade deleter used by the stream backstop.
func Deleter(cfg *config.Config, backend store.Backend, logger *slog.Logger) *cascade.Deleter {
	return cascade.New(backend, store.DefaultRegistry(cfg.Store()), cascade.Options{
		MaxIterations: cfg.Limits.CascadeMaxIterations,
		Logger:        logger,
	})
}
