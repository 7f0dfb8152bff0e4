// Package stream provides DynamoDB Streams handlers that back up the
// synchronous cascade deletes.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/fundraiser/cascade"
	"github.com/jacentio/fundraiser/store"
)

// Handler sweeps the dependents of records removed from a parent table.
type Handler struct {
	deleter    *cascade.Deleter
	parentType string
	keyAttr    string
	logger     *slog.Logger
}

// NewHandler creates a handler for the profiles table stream.
func NewHandler(deleter *cascade.Deleter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		deleter:    deleter,
		parentType: "profile",
		keyAttr:    "profileId",
		logger:     logger,
	}
}

// HandleProfileRemoval deletes whatever still depends on each removed
// profile. Every record is attempted; if any sweep fails the joined error is
// returned so Lambda retries the batch. Sweeps are idempotent.
func (h *Handler) HandleProfileRemoval(ctx context.Context, event events.DynamoDBEvent) error {
	var errs []error
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != string(events.DynamoDBOperationTypeRemove) {
		return nil
	}

	parentID := ""
	if v, ok := RemovedKey(record)[h.keyAttr].(*types.AttributeValueMemberS); ok {
		parentID = v.Value
	}
	if parentID == "" {
		h.logger.Warn("removed record has no key", "eventID", record.EventID, "keyAttr", h.keyAttr)
		return nil
	}

	report, err := h.deleter.DeleteAll(ctx, h.parentType, parentID)
	h.logger.Info("swept dependents of removed record",
		"parentType", h.parentType,
		"parentId", parentID,
		"deleted", map[string]int(report),
	)
	if err != nil {
		return fmt.Errorf("sweep %s %s: %w", h.parentType, parentID, err)
	}
	return nil
}

// RemovedKey returns the primary key of a removed item as a store.PK. The
// stream key is used when present; otherwise the old image stands in for it.
// Attributes of a type that cannot appear in a key are skipped.
func RemovedKey(record events.DynamoDBEventRecord) store.PK {
	src := record.Change.Keys
	if len(src) == 0 {
		src = record.Change.OldImage
	}
	key := make(store.PK, len(src))
	for name, v := range src {
		if av := keyValue(v); av != nil {
			key[name] = av
		}
	}
	return key
}

func keyValue(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		if v.String() == "" {
			return nil
		}
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	default:
		return nil
	}
}
