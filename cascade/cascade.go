// Package cascade removes the records that depend on a deleted parent.
//
// Dependents are found through the relationships in a store.Registry. Each
// removal is a single unconditional delete, so a cascade interrupted midway
// can simply be run again.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/fundraiser/internal/metrics"
	"github.com/jacentio/fundraiser/store"
)

// DefaultMaxIterations caps the deletions of one DeleteDependents call.
const DefaultMaxIterations = 1000

// ErrCascadeIncomplete is returned when dependents remain after the
// iteration cap.
var ErrCascadeIncomplete = errors.New("cascade: dependents remain after iteration cap")

// Options configures a Deleter.
type Options struct {
	// MaxIterations caps deletions per collection (default 1000).
	MaxIterations int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Deleter deletes the dependents of a parent record.
type Deleter struct {
	backend       store.Backend
	registry      *store.Registry
	maxIterations int
	logger        *slog.Logger
}

// New creates a Deleter.
func New(backend store.Backend, registry *store.Registry, opts Options) *Deleter {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Deleter{
		backend:       backend,
		registry:      registry,
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
	}
}

// Registry returns the relationships the Deleter follows.
func (d *Deleter) Registry() *store.Registry {
	return d.registry
}

// Query fetches every dependent of parentID under rel.
func (d *Deleter) Query(ctx context.Context, rel store.Relationship, parentID string) ([]store.Item, error) {
	result, err := d.backend.Query(ctx, store.QueryInput{
		TableName:      rel.Child.Name,
		IndexName:      rel.IndexName,
		KeyAttr:        rel.ParentKeyAttr,
		KeyValue:       parentID,
		ConsistentRead: rel.IndexName == "",
	})
	if err != nil {
		return nil, fmt.Errorf("query %s of %s: %w", rel.ChildType, parentID, err)
	}
	return result.Items, nil
}

// DeleteFirst deletes items[0], after cascading into its own dependents.
// It reports false without touching storage when items is empty.
func (d *Deleter) DeleteFirst(ctx context.Context, rel store.Relationship, items []store.Item) (bool, error) {
	if len(items) == 0 {
		return false, nil
	}
	if err := d.deleteItem(ctx, rel, items[0]); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteDependents deletes dependents of parentID under rel until a query
// returns none it has not already deleted, and returns how many it removed.
// Index queries are eventually consistent and may still list removed items;
// those are skipped so each item is deleted and counted once. It gives up
// with ErrCascadeIncomplete after MaxIterations deletions.
func (d *Deleter) DeleteDependents(ctx context.Context, rel store.Relationship, parentID string) (int, error) {
	deleted := 0
	seen := make(map[string]bool)
	for {
		items, err := d.Query(ctx, rel, parentID)
		if err != nil {
			return deleted, err
		}
		fresh := 0
		for _, item := range items {
			id := itemKey(rel.Child, item)
			if seen[id] {
				continue
			}
			fresh++
			if deleted >= d.maxIterations {
				return deleted, fmt.Errorf("%s of %s: %w", rel.ChildType, parentID, ErrCascadeIncomplete)
			}
			if err := d.deleteItem(ctx, rel, item); err != nil {
				return deleted, err
			}
			seen[id] = true
			deleted++
		}
		if fresh == 0 {
			return deleted, nil
		}
	}
}

// Report counts deleted dependents per child type.
type Report map[string]int

// DeleteAll deletes the dependents of every relationship registered for
// parentType, in registration order. A failing collection does not stop the
// others; all failures are joined into the returned error.
func (d *Deleter) DeleteAll(ctx context.Context, parentType, parentID string) (Report, error) {
	report := Report{}
	var errs []error
	for _, rel := range d.registry.ChildrenOf(parentType) {
		n, err := d.DeleteDependents(ctx, rel, parentID)
		report[rel.ChildType] += n
		if err != nil {
			metrics.CascadeFailuresTotal.WithLabelValues(rel.ChildType).Inc()
			d.logger.Warn("cascade delete incomplete",
				"parentType", parentType,
				"parentId", parentID,
				"collection", rel.ChildType,
				"deleted", n,
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		d.logger.Debug("cascade delete collection done",
			"parentId", parentID,
			"collection", rel.ChildType,
			"deleted", n,
		)
	}
	return report, errors.Join(errs...)
}

// deleteItem removes item, draining its own dependents first so a campaign
// never disappears while its orders remain.
func (d *Deleter) deleteItem(ctx context.Context, rel store.Relationship, item store.Item) error {
	if rel.ChildIDAttr != "" && d.registry.HasChildren(rel.ChildType) {
		childID := stringAttr(item, rel.ChildIDAttr)
		if childID == "" {
			return fmt.Errorf("%s: %w", rel.ChildType, store.ErrMissingKey)
		}
		if _, err := d.DeleteAll(ctx, rel.ChildType, childID); err != nil {
			return fmt.Errorf("cascade into %s %s: %w", rel.ChildType, childID, err)
		}
	}

	if err := d.backend.DeleteItem(ctx, rel.Child.Name, rel.Child.KeyOf(item), store.Condition{}); err != nil {
		return fmt.Errorf("delete %s: %w", rel.ChildType, err)
	}
	metrics.CascadeDeletedTotal.WithLabelValues(rel.ChildType).Inc()
	return nil
}

// itemKey renders the primary key of item under schema as a map key.
func itemKey(schema store.TableSchema, item store.Item) string {
	return stringAttr(item, schema.PartitionKey) + "\x00" + stringAttr(item, schema.SortKey)
}

func stringAttr(item store.Item, attr string) string {
	if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
