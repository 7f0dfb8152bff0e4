// Package localstore implements store.Backend on an embedded badger database.
//
// It backs the development server and the storage-level tests. Writes are
// serialized so a condition is always evaluated against the item it guards,
// which matches the per-item atomicity DynamoDB gives conditional writes.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/dgraph-io/badger/v4"

	"github.com/jacentio/fundraiser/store"
)

// Table describes a table and its secondary indexes (index name to partition
// key attribute).
type Table struct {
	Schema  store.TableSchema
	Indexes map[string]string
}

// Layout returns the fundraiser tables as named by c.
func Layout(c store.Config) []Table {
	schema := func(name string) store.TableSchema {
		s, _ := c.Schema(name)
		return s
	}
	return []Table{
		{Schema: schema(c.AccountsTable)},
		{Schema: schema(c.ProfilesTable), Indexes: map[string]string{c.OwnerIndex: "ownerAccountId"}},
		{Schema: schema(c.CatalogsTable), Indexes: map[string]string{c.OwnerIndex: "ownerAccountId", c.PublicIndex: "isPublicStr"}},
		{Schema: schema(c.CampaignsTable), Indexes: map[string]string{
			c.ProfileIndex:      "profileId",
			c.CatalogIndex:      "catalogId",
			c.UnitCampaignIndex: "unitCampaignKey",
		}},
		{Schema: schema(c.OrdersTable), Indexes: map[string]string{c.ProfileIndex: "profileId"}},
		{Schema: schema(c.SharesTable), Indexes: map[string]string{c.TargetAccountIndex: "targetAccountId"}},
		{Schema: schema(c.InvitesTable), Indexes: map[string]string{c.ProfileIndex: "profileId"}},
		{Schema: schema(c.SharedCampaignsTable), Indexes: map[string]string{c.CreatorIndex: "createdBy"}},
	}
}

// Options configures the badger database.
type Options struct {
	// Dir is the database directory. Empty means in-memory.
	Dir string

	// Logger receives badger's internal logs. Nil disables them.
	Logger badger.Logger
}

// Store is a badger-backed store.Backend.
type Store struct {
	db     *badger.DB
	tables map[string]Table

	// mu serializes writes so read-check-write is atomic per item.
	mu sync.Mutex
}

var _ store.Backend = (*Store)(nil)

// New opens a badger database holding the given tables.
func New(opts Options, tables ...Table) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	byName := make(map[string]Table, len(tables))
	for _, t := range tables {
		byName[t.Schema.Name] = t
	}
	return &Store{db: db, tables: byName}, nil
}

// Close closes the badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) table(name string) (Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return Table{}, fmt.Errorf("%s: %w", name, store.ErrUnknownTable)
	}
	return t, nil
}

// GetItem returns the item at key or store.ErrNotFound.
func (s *Store) GetItem(_ context.Context, table string, key store.PK) (store.Item, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}
	k, err := encodeKey(t.Schema, key)
	if err != nil {
		return nil, err
	}

	var item store.Item
	err = s.db.View(func(txn *badger.Txn) error {
		item, err = getTxn(txn, k)
		return err
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, store.ErrNotFound
	}
	return item, nil
}

// PutItem writes item if cond holds against the current item.
func (s *Store) PutItem(_ context.Context, table string, item store.Item, cond store.Condition) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	k, err := encodeKey(t.Schema, t.Schema.KeyOf(item))
	if err != nil {
		return err
	}
	value, err := serializeItem(item)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		if err := checkTxn(txn, k, cond); err != nil {
			return err
		}
		return txn.Set(k, value)
	})
}

// UpdateItem applies upd to the item at key, creating it when missing, and
// returns the result.
func (s *Store) UpdateItem(_ context.Context, table string, key store.PK, upd store.Update, cond store.Condition) (store.Item, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}
	k, err := encodeKey(t.Schema, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated store.Item
	err = s.db.Update(func(txn *badger.Txn) error {
		current, err := getTxn(txn, k)
		if err != nil {
			return err
		}
		if err := evalCondition(cond, current); err != nil {
			return err
		}

		updated = make(store.Item, len(current)+len(upd.Set))
		for name, v := range key {
			updated[name] = v
		}
		for name, v := range current {
			updated[name] = v
		}
		for name, v := range upd.Set {
			av, err := attributevalue.Marshal(v)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", name, err)
			}
			updated[name] = av
		}
		for _, name := range upd.Remove {
			delete(updated, name)
		}

		value, err := serializeItem(updated)
		if err != nil {
			return err
		}
		return txn.Set(k, value)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem removes the item at key if cond holds. Deleting a missing item
// without a condition succeeds.
func (s *Store) DeleteItem(_ context.Context, table string, key store.PK, cond store.Condition) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	k, err := encodeKey(t.Schema, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		if err := checkTxn(txn, k, cond); err != nil {
			return err
		}
		return txn.Delete(k)
	})
}

// Query returns the items of a partition, or of an index partition.
// Limit caps the items evaluated before the filter, as DynamoDB does.
func (s *Store) Query(_ context.Context, input store.QueryInput) (*store.QueryResult, error) {
	matched, err := s.match(input)
	if err != nil {
		return nil, err
	}
	if input.Limit > 0 && len(matched) > int(input.Limit) {
		matched = matched[:input.Limit]
	}

	result := &store.QueryResult{ScannedCount: len(matched)}
	for _, item := range matched {
		ok, err := input.Filter.Eval(item)
		if err != nil {
			return nil, err
		}
		if ok {
			result.Items = append(result.Items, item)
		}
	}
	return result, nil
}

// Count returns the number of items Query would return without a limit.
func (s *Store) Count(ctx context.Context, input store.QueryInput) (int, error) {
	input.Limit = 0
	result, err := s.Query(ctx, input)
	if err != nil {
		return 0, err
	}
	return len(result.Items), nil
}

// match returns the items whose key attribute equals the input key value, in
// key order (reversed when ScanIndexForward is false).
func (s *Store) match(input store.QueryInput) ([]store.Item, error) {
	t, err := s.table(input.TableName)
	if err != nil {
		return nil, err
	}
	if input.KeyAttr == "" {
		return nil, fmt.Errorf("query %s: %w", input.TableName, store.ErrMissingKey)
	}

	want, err := attributevalue.Marshal(input.KeyValue)
	if err != nil {
		return nil, fmt.Errorf("marshal key value: %w", err)
	}

	prefix := tablePrefix(t.Schema.Name)
	if input.IndexName != "" {
		attr, ok := t.Indexes[input.IndexName]
		if !ok {
			return nil, fmt.Errorf("%s/%s: %w", input.TableName, input.IndexName, store.ErrUnknownIndex)
		}
		if attr != input.KeyAttr {
			return nil, fmt.Errorf("index %s is keyed on %s, not %s: %w", input.IndexName, attr, input.KeyAttr, store.ErrMissingKey)
		}
	} else {
		if input.KeyAttr != t.Schema.PartitionKey {
			return nil, fmt.Errorf("table %s is keyed on %s, not %s: %w", t.Schema.Name, t.Schema.PartitionKey, input.KeyAttr, store.ErrMissingKey)
		}
		pk, err := keyString(want)
		if err != nil {
			return nil, err
		}
		prefix = partitionPrefix(t.Schema.Name, pk)
	}

	var items []store.Item
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var item store.Item
			if err := it.Item().Value(func(val []byte) error {
				item, err = deserializeItem(val)
				return err
			}); err != nil {
				return err
			}
			if got, ok := item[input.KeyAttr]; ok && store.AttributeValuesEqual(got, want) {
				items = append(items, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.ScanIndexForward != nil && !*input.ScanIndexForward {
		slices.Reverse(items)
	}
	return items, nil
}

func getTxn(txn *badger.Txn, key []byte) (store.Item, error) {
	entry, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item store.Item
	err = entry.Value(func(val []byte) error {
		item, err = deserializeItem(val)
		return err
	})
	return item, err
}

func checkTxn(txn *badger.Txn, key []byte, cond store.Condition) error {
	if cond.IsZero() {
		return nil
	}
	current, err := getTxn(txn, key)
	if err != nil {
		return err
	}
	return evalCondition(cond, current)
}

func evalCondition(cond store.Condition, item store.Item) error {
	ok, err := cond.Eval(item)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrConditionFailed
	}
	return nil
}
