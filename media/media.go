// Package media performs the object-storage side effects of payment method
// QR codes: upload, presigned download links and deletion.
//
// Callers treat these as opaque: each call returns a value or an error and
// nothing in the resolver core depends on how the bucket is reached.
package media

import (
	"context"
	"fmt"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// DefaultPresignTTL is how long a presigned link stays valid.
const DefaultPresignTTL = 15 * time.Minute

// Invoker is the object-storage collaborator.
type Invoker interface {
	// Presign returns a time-limited download URL for key.
	Presign(ctx context.Context, key string) (string, error)
	// Upload stores data under key.
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// Delete removes key. Deleting a missing object succeeds.
	Delete(ctx context.Context, key string) error
}

// BlobInvoker implements Invoker on a gocloud.dev bucket (S3 in production,
// a local directory in development).
type BlobInvoker struct {
	bucket *blob.Bucket
	ttl    time.Duration
}

var _ Invoker = (*BlobInvoker)(nil)

// NewBlobInvoker wraps bucket. ttl <= 0 uses DefaultPresignTTL.
func NewBlobInvoker(bucket *blob.Bucket, ttl time.Duration) *BlobInvoker {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &BlobInvoker{bucket: bucket, ttl: ttl}
}

// Open opens the bucket at urlstr (for example "s3://bucket?region=us-east-1"
// or "file:///tmp/media") and wraps it.
func Open(ctx context.Context, urlstr string, ttl time.Duration) (*BlobInvoker, error) {
	bucket, err := blob.OpenBucket(ctx, urlstr)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return NewBlobInvoker(bucket, ttl), nil
}

// Close closes the bucket.
func (b *BlobInvoker) Close() error {
	return b.bucket.Close()
}

func (b *BlobInvoker) Presign(ctx context.Context, key string) (string, error) {
	u, err := b.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: b.ttl})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u, nil
}

func (b *BlobInvoker) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (b *BlobInvoker) Delete(ctx context.Context, key string) error {
	err := b.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
