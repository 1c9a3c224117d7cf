package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// counterPartition is the reserved partition holding sequence rows.
const counterPartition = "__counters"

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type dynamoItem struct {
	Collection string         `dynamodbav:"collection"`
	ID         string         `dynamodbav:"id"`
	CreatedAt  string         `dynamodbav:"createdAt"`
	Fields     map[string]any `dynamodbav:"fields"`
}

// Dynamo is a Client on a single DynamoDB table with partition key
// "collection" and sort key "id". DynamoDB has no query push, so writes
// publish a marker on the change bus and subscriptions re-query on arrival.
type Dynamo struct {
	client    dynamoAPI
	tableName string
	bus       ChangeBus
	logger    *logging.Logger
}

// NewDynamo builds a store backed by the provided DynamoDB client.
func NewDynamo(client dynamoAPI, tableName string, bus ChangeBus, logger *logging.Logger) *Dynamo {
	if client == nil {
		panic("store: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("store: table name cannot be empty")
	}
	if bus == nil {
		panic("store: change bus cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dynamo{client: client, tableName: tableName, bus: bus, logger: logger}
}

var _ Client = (*Dynamo)(nil)
var _ Counter = (*Dynamo)(nil)

// Create inserts a record with a fresh ID and store-assigned timestamp.
func (s *Dynamo) Create(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	rec := Record{
		ID:        uuid.NewString(),
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}

	item, err := attributevalue.MarshalMap(dynamoItem{
		Collection: collection,
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339Nano),
		Fields:     fields,
	})
	if err != nil {
		return Record{}, fmt.Errorf("store: failed to marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return Record{}, fmt.Errorf("store: failed to persist record: %w", err)
	}

	s.publish(ctx, collection)
	return rec, nil
}

// Query fetches the collection partition and evaluates filters client-side.
func (s *Dynamo) Query(ctx context.Context, collection string, q Query) ([]Record, error) {
	records, err := s.fetch(ctx, collection)
	if err != nil {
		return nil, err
	}
	return Eval(records, q), nil
}

// Update patches the named fields of an existing record.
func (s *Dynamo) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	names := map[string]string{"#fields": "fields"}
	values := make(map[string]types.AttributeValue, len(fields))
	expr := "SET "
	i := 0
	for key, value := range fields {
		attr, err := attributevalue.Marshal(value)
		if err != nil {
			return fmt.Errorf("store: failed to marshal field %s: %w", key, err)
		}
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		names[nameKey] = key
		values[valueKey] = attr
		if i > 0 {
			expr += ", "
		}
		expr += fmt.Sprintf("#fields.%s = %s", nameKey, valueKey)
		i++
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrNotFound
		}
		return fmt.Errorf("store: failed to update record %s: %w", id, err)
	}

	s.publish(ctx, collection)
	return nil
}

// Delete removes a record. Deleting an absent record is a no-op.
func (s *Dynamo) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("store: failed to delete record %s: %w", id, err)
	}

	s.publish(ctx, collection)
	return nil
}

// Subscribe delivers the current result set, then re-queries and redelivers
// whenever a change marker for the collection arrives on the bus.
func (s *Dynamo) Subscribe(ctx context.Context, collection string, q Query, fn SnapshotFunc) (Subscription, error) {
	records, err := s.Query(ctx, collection, q)
	if err != nil {
		return nil, err
	}

	var deliverMu sync.Mutex
	busSub, err := s.bus.Subscribe(ctx, collection, func() {
		result, err := s.Query(context.Background(), collection, q)
		if err != nil {
			s.logger.Error("store: subscription requery failed", "collection", collection, "error", err)
			return
		}
		deliverMu.Lock()
		fn(result)
		deliverMu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to subscribe to %s: %w", collection, err)
	}

	fn(records)
	return busSub, nil
}

// Next atomically increments and returns the named sequence.
func (s *Dynamo) Next(ctx context.Context, name string) (int, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: counterPartition},
			"id":         &types.AttributeValueMemberS{Value: name},
		},
		UpdateExpression: aws.String("ADD seq :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("store: failed to increment counter %s: %w", name, err)
	}

	seq, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("store: counter %s returned no sequence", name)
	}
	value, err := strconv.Atoi(seq.Value)
	if err != nil {
		return 0, fmt.Errorf("store: counter %s returned %q: %w", name, seq.Value, err)
	}
	return value, nil
}

func (s *Dynamo) fetch(ctx context.Context, collection string) ([]Record, error) {
	var records []Record
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("#c = :c"),
			ExpressionAttributeNames: map[string]string{
				"#c": "collection",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":c": &types.AttributeValueMemberS{Value: collection},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("store: failed to query %s: %w", collection, err)
		}

		for _, raw := range out.Items {
			var item dynamoItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("store: failed to decode record: %w", err)
			}
			createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
			records = append(records, Record{ID: item.ID, Fields: item.Fields, CreatedAt: createdAt})
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return records, nil
}

func (s *Dynamo) publish(ctx context.Context, collection string) {
	if err := s.bus.Publish(ctx, collection); err != nil {
		s.logger.Error("store: failed to publish change marker", "collection", collection, "error", err)
	}
}
