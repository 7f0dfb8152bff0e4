// Package fields resolves relational fields of a record lazily.
//
// A parent record (a share, an invite) names a related record by key. The
// first field requested on the parent loads the related record into the
// parent's [Slot]; further fields are answered from it. Resolution never
// fails: a missing related record or a failed lookup yields nil.
package fields

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jacentio/fundraiser/model"
)

// Lookup loads the related record for key. (nil, nil) means not found.
type Lookup[T any] func(ctx context.Context, key string) (*T, error)

// Accessor reads one field from a related record.
type Accessor[T any] func(*T) any

// Slot caches the related record of one parent.
type Slot[T any] struct {
	once  sync.Once
	value *T
}

// Resolver answers field requests through a table of accessors.
type Resolver[T any] struct {
	lookup    Lookup[T]
	accessors map[string]Accessor[T]
	logger    *slog.Logger
}

// NewResolver creates a Resolver. A nil logger uses slog.Default().
func NewResolver[T any](lookup Lookup[T], accessors map[string]Accessor[T], logger *slog.Logger) *Resolver[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver[T]{lookup: lookup, accessors: accessors, logger: logger}
}

// Supports reports whether name has an accessor.
func (r *Resolver[T]) Supports(name string) bool {
	_, ok := r.accessors[name]
	return ok
}

// Load returns the related record for key, looking it up only on the first
// call for slot.
func (r *Resolver[T]) Load(ctx context.Context, slot *Slot[T], key string) *T {
	slot.once.Do(func() {
		v, err := r.lookup(ctx, key)
		if err != nil {
			r.logger.Debug("related record lookup failed", "key", key, "error", err)
			return
		}
		slot.value = v
	})
	return slot.value
}

// Field resolves a single field. Unknown fields and missing records give nil.
func (r *Resolver[T]) Field(ctx context.Context, slot *Slot[T], key, name string) any {
	accessor, ok := r.accessors[name]
	if !ok {
		return nil
	}
	v := r.Load(ctx, slot, key)
	if v == nil {
		return nil
	}
	return accessor(v)
}

// Fields resolves several fields with at most one lookup.
func (r *Resolver[T]) Fields(ctx context.Context, slot *Slot[T], key string, names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		out[name] = r.Field(ctx, slot, key, name)
	}
	return out
}

// Cache hands out one Slot per parent key, so parents that share a related
// record within a response share the lookup as well.
type Cache[T any] struct {
	mu    sync.Mutex
	slots map[string]*Slot[T]
}

// NewCache creates an empty Cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{slots: make(map[string]*Slot[T])}
}

// Slot returns the slot for key, creating it on first use.
func (c *Cache[T]) Slot(key string) *Slot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key]
	if !ok {
		s = &Slot[T]{}
		c.slots[key] = s
	}
	return s
}

// ProfileFields are the profile fields exposed on shares and invites.
var ProfileFields = map[string]Accessor[model.SellerProfile]{
	"sellerName":     func(p *model.SellerProfile) any { return p.SellerName },
	"unitType":       func(p *model.SellerProfile) any { return optional(p.UnitType) },
	"unitNumber":     func(p *model.SellerProfile) any { return optionalInt(p.UnitNumber) },
	"city":           func(p *model.SellerProfile) any { return optional(p.City) },
	"state":          func(p *model.SellerProfile) any { return optional(p.State) },
	"ownerAccountId": func(p *model.SellerProfile) any { return p.OwnerAccountID },
}

// ProfileFieldNames lists ProfileFields in a stable order.
var ProfileFieldNames = []string{"sellerName", "unitType", "unitNumber", "city", "state", "ownerAccountId"}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optionalInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
