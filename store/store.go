package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoClient is the subset of the DynamoDB API the Store uses.
// *dynamodb.Client satisfies it.
type DynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store implements Backend on DynamoDB.
type Store struct {
	client DynamoClient
	config Config
}

var _ Backend = (*Store)(nil)

// New creates a new Store instance.
func New(client DynamoClient, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the table layout the Store was created with.
func (s *Store) Config() Config {
	return s.config
}

// GetItem retrieves an item by key with a consistent read, returning
// ErrNotFound if it is missing.
func (s *Store) GetItem(ctx context.Context, table string, key PK) (Item, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return result.Item, nil
}

// PutItem writes item, replacing any existing item with the same key.
func (s *Store) PutItem(ctx context.Context, table string, item Item, cond Condition) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}
	if !cond.IsZero() {
		expr, err := buildExpression(cond, Update{})
		if err != nil {
			return err
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	_, err := s.client.PutItem(ctx, input)
	return mapConditionError(err)
}

// UpdateItem applies upd to the item at key and returns the updated item.
func (s *Store) UpdateItem(ctx context.Context, table string, key PK, upd Update, cond Condition) (Item, error) {
	expr, err := buildExpression(cond, upd)
	if err != nil {
		return nil, err
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, mapConditionError(err)
	}
	return result.Attributes, nil
}

// DeleteItem removes the item at key. Deleting a missing item without a
// condition succeeds.
func (s *Store) DeleteItem(ctx context.Context, table string, key PK, cond Condition) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	}
	if !cond.IsZero() {
		expr, err := buildExpression(cond, Update{})
		if err != nil {
			return err
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	_, err := s.client.DeleteItem(ctx, input)
	return mapConditionError(err)
}

// Query returns items whose partition key matches. Without a limit every page
// is fetched.
func (s *Store) Query(ctx context.Context, input QueryInput) (*QueryResult, error) {
	queryInput, err := s.queryInput(input)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{}
	if input.Limit > 0 {
		page, err := s.client.Query(ctx, queryInput)
		if err != nil {
			return nil, err
		}
		result.Items = page.Items
		result.ScannedCount = int(page.ScannedCount)
		return result, nil
	}

	paginator := dynamodb.NewQueryPaginator(s.client, queryInput)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, page.Items...)
		result.ScannedCount += int(page.ScannedCount)
	}
	return result, nil
}

// Count returns the number of items matching input using Select=COUNT.
func (s *Store) Count(ctx context.Context, input QueryInput) (int, error) {
	queryInput, err := s.queryInput(input)
	if err != nil {
		return 0, err
	}
	queryInput.Select = types.SelectCount
	queryInput.Limit = nil

	count := 0
	paginator := dynamodb.NewQueryPaginator(s.client, queryInput)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += int(page.Count)
	}
	return count, nil
}

func (s *Store) queryInput(input QueryInput) (*dynamodb.QueryInput, error) {
	if input.KeyAttr == "" {
		return nil, fmt.Errorf("query %s: %w", input.TableName, ErrMissingKey)
	}

	keyCond := expression.Key(input.KeyAttr).Equal(expression.Value(input.KeyValue))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if !input.Filter.IsZero() {
		filter, err := input.Filter.Builder()
		if err != nil {
			return nil, err
		}
		builder = builder.WithFilter(filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build query expression: %w", err)
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(input.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          input.ScanIndexForward,
	}
	if input.IndexName != "" {
		queryInput.IndexName = aws.String(input.IndexName)
	} else if input.ConsistentRead {
		// GSIs only support eventually consistent reads.
		queryInput.ConsistentRead = aws.Bool(true)
	}
	if input.Limit > 0 {
		queryInput.Limit = aws.Int32(input.Limit)
	}
	return queryInput, nil
}

// buildExpression combines a condition and an update into one expression so
// that placeholder names don't collide.
func buildExpression(cond Condition, upd Update) (expression.Expression, error) {
	builder := expression.NewBuilder()
	empty := true
	if !cond.IsZero() {
		c, err := cond.Builder()
		if err != nil {
			return expression.Expression{}, err
		}
		builder = builder.WithCondition(c)
		empty = false
	}
	if !upd.IsZero() {
		builder = builder.WithUpdate(upd.Builder())
		empty = false
	}
	if empty {
		return expression.Expression{}, errors.New("store: empty expression")
	}
	expr, err := builder.Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("build expression: %w", err)
	}
	return expr, nil
}

// Builder converts u into a DynamoDB update expression. Set attributes are
// applied in name order.
func (u Update) Builder() expression.UpdateBuilder {
	var b expression.UpdateBuilder
	for _, name := range slices.Sorted(maps.Keys(u.Set)) {
		b = b.Set(expression.Name(name), expression.Value(u.Set[name]))
	}
	for _, name := range u.Remove {
		b = b.Remove(expression.Name(name))
	}
	return b
}

// mapConditionError maps a DynamoDB conditional check failure to ErrConditionFailed.
func mapConditionError(err error) error {
	if err == nil {
		return nil
	}
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrConditionFailed
	}
	return err
}

// joinStrings joins strings with a separator (avoiding strings package import).
func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for _, s := range strs[1:] {
		result += sep + s
	}
	return result
}
