// Package ratelimit caps how many records one owner may create.
//
// The check counts existing records through an index and rejects when the
// count has reached the limit. There is no reservation: concurrent creations
// by one owner can overshoot by the number in flight.
package ratelimit

import (
	"context"
	"fmt"

	"github.com/jacentio/fundraiser/apierr"
	"github.com/jacentio/fundraiser/internal/metrics"
	"github.com/jacentio/fundraiser/store"
)

// DefaultMax is the default number of records allowed per owner.
const DefaultMax = 50

// Limiter counts records per owner on one table index.
type Limiter struct {
	backend store.Backend
	table   string
	index   string
	attr    string
	max     int
}

// New creates a Limiter counting items of table whose attr (the partition key
// of index) equals the owner. limit <= 0 uses DefaultMax.
func New(backend store.Backend, table, index, attr string, limit int) *Limiter {
	if limit <= 0 {
		limit = DefaultMax
	}
	return &Limiter{backend: backend, table: table, index: index, attr: attr, max: limit}
}

// Max returns the configured limit.
func (l *Limiter) Max() int { return l.max }

// CheckAndCount returns the owner's current count, or RateLimitExceeded when
// it is at or above the limit.
func (l *Limiter) CheckAndCount(ctx context.Context, ownerID string) (int, error) {
	count, err := l.backend.Count(ctx, store.QueryInput{
		TableName: l.table,
		IndexName: l.index,
		KeyAttr:   l.attr,
		KeyValue:  ownerID,
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", l.table, err)
	}
	if count >= l.max {
		metrics.RateLimitRejectedTotal.WithLabelValues(l.table).Inc()
		return count, apierr.New(apierr.RateLimitExceeded, "limit of %d reached", l.max)
	}
	return count, nil
}
