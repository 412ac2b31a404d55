// Package stream provides DynamoDB Streams handlers that feed container
// changes back to typed callbacks.
package stream

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"

	"github.com/jacentio/docbind/logging"
)

// Stream event names.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// Key identifies a removed item.
type Key struct {
	PartitionKey string
	ID           string
}

// Handler decodes stream records of one container table into T.
type Handler[T any] struct {
	onUpsert func(ctx context.Context, item T) error
	onRemove func(ctx context.Context, key Key) error

	partitionKeyAttr string
	idAttr           string
	logger           logging.Logger
}

// Option configures a Handler.
type Option func(*options)

type options struct {
	partitionKeyAttr string
	idAttr           string
	logger           logging.Logger
}

// WithKeyAttributes sets the key attribute names. Default: "partitionKey", "id".
func WithKeyAttributes(partitionKey, id string) Option {
	return func(o *options) {
		o.partitionKeyAttr = partitionKey
		o.idAttr = id
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewHandler creates a handler. Either callback may be nil to ignore that
// kind of change.
func NewHandler[T any](
	onUpsert func(ctx context.Context, item T) error,
	onRemove func(ctx context.Context, key Key) error,
	opts ...Option,
) *Handler[T] {
	o := options{partitionKeyAttr: "partitionKey", idAttr: "id"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewSlog(nil)
	}
	return &Handler[T]{
		onUpsert:         onUpsert,
		onRemove:         onRemove,
		partitionKeyAttr: o.partitionKeyAttr,
		idAttr:           o.idAttr,
		logger:           o.logger,
	}
}

// Handle processes a batch of stream records in order.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler[T]) Handle(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Exception(err, "failed to process record",
				"eventID", record.EventID,
				"eventName", record.EventName,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

func (h *Handler[T]) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	switch record.EventName {
	case EventInsert, EventModify:
		if h.onUpsert == nil {
			return nil
		}
		if len(record.Change.NewImage) == 0 {
			h.logger.Warn("record has no new image; stream view type must include NEW_IMAGE",
				"eventID", record.EventID,
			)
			return nil
		}
		item, err := Decode[T](record.Change.NewImage)
		if err != nil {
			return err
		}
		return h.onUpsert(ctx, item)

	case EventRemove:
		if h.onRemove == nil {
			return nil
		}
		key := Key{
			PartitionKey: getStringAttr(record.Change.Keys, h.partitionKeyAttr),
			ID:           getStringAttr(record.Change.Keys, h.idAttr),
		}
		h.logger.Info("processing remove", "partitionKey", key.PartitionKey, "id", key.ID)
		return h.onRemove(ctx, key)
	}
	return nil
}

// Decode converts a stream image into T through its JSON form, so T's json
// tags apply exactly as they do for container reads.
func Decode[T any](image map[string]events.DynamoDBAttributeValue) (T, error) {
	var item T
	var doc map[string]any
	if err := attributevalue.UnmarshalMap(ConvertImage(image), &doc); err != nil {
		return item, fmt.Errorf("unmarshal image: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return item, fmt.Errorf("encode image: %w", err)
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decode image: %w", err)
	}
	return item, nil
}

// ConvertImage converts a DynamoDB stream image to SDK attribute values.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		if av := convertAttr(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convertAttr(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(v.List()))
		for _, item := range v.List() {
			if av := convertAttr(item); av != nil {
				list = append(list, av)
			}
		}
		return &types.AttributeValueMemberL{Value: list}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertImage(v.Map())}
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
