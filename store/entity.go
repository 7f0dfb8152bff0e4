package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// Backend is the key-value storage contract the resolver core depends on.
//
// Conditional failures surface as [ErrConditionFailed]; a missing item on
// GetItem surfaces as [ErrNotFound].
type Backend interface {
	GetItem(ctx context.Context, table string, key PK) (Item, error)
	PutItem(ctx context.Context, table string, item Item, cond Condition) error
	// UpdateItem applies upd and returns the item as it is after the update.
	UpdateItem(ctx context.Context, table string, key PK, upd Update, cond Condition) (Item, error)
	DeleteItem(ctx context.Context, table string, key PK, cond Condition) error
	Query(ctx context.Context, input QueryInput) (*QueryResult, error)
	// Count returns the number of items matching input without fetching them.
	Count(ctx context.Context, input QueryInput) (int, error)
}

// Update describes an update expression.
type Update struct {
	// Set assigns attribute values.
	Set map[string]any

	// Remove deletes attributes.
	Remove []string
}

// IsZero reports whether the update has nothing to do.
func (u Update) IsZero() bool {
	return len(u.Set) == 0 && len(u.Remove) == 0
}

// QueryInput defines parameters for querying entities.
type QueryInput struct {
	// TableName is the DynamoDB table to query.
	TableName string

	// IndexName is the optional GSI to query.
	IndexName string

	// KeyAttr is the partition key attribute of the table or index.
	KeyAttr string

	// KeyValue is the partition key value to match.
	KeyValue any

	// Filter is applied after the key condition.
	Filter Condition

	// Limit is the maximum number of items to evaluate (0 = no limit).
	Limit int32

	// ScanIndexForward determines sort order (nil or true = ascending).
	ScanIndexForward *bool

	// ConsistentRead requests strongly consistent reads (table queries only).
	ConsistentRead bool
}

// QueryResult holds the items returned by a query.
type QueryResult struct {
	Items []Item

	// ScannedCount is the number of items that matched the key condition
	// before the filter was applied.
	ScannedCount int
}

// TableSchema names a table and its primary key attributes.
type TableSchema struct {
	Name         string
	PartitionKey string
	SortKey      string

	// TTLAttribute is the epoch-seconds attribute DynamoDB TTL must be
	// enabled on, if any. Expired items linger until TTL removes them.
	TTLAttribute string
}

// KeyOf extracts the primary key of item under this schema.
func (s TableSchema) KeyOf(item Item) PK {
	key := PK{s.PartitionKey: item[s.PartitionKey]}
	if s.SortKey != "" {
		key[s.SortKey] = item[s.SortKey]
	}
	return key
}
