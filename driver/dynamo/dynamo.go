// Package dynamo implements the store client contracts on Amazon DynamoDB.
//
// Each container is one table keyed by partition key (hash) and id (range).
// Select-all queries are table scans; any other query text runs as PartiQL
// with positional parameters. Predicates become scan filter expressions.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"

	"github.com/jacentio/docbind/filter"
	"github.com/jacentio/docbind/store"
)

// API is the subset of the DynamoDB client used by the driver.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	ExecuteStatement(ctx context.Context, params *dynamodb.ExecuteStatementInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ExecuteStatementOutput, error)
}

// ErrMissingID is returned when an upserted document has no string id.
var ErrMissingID = errors.New("dynamo: document has no id")

// Client adapts a DynamoDB API to store.Client.
type Client struct {
	api    API
	config Config
}

// New creates a Client over api.
func New(api API, cfg Config) *Client {
	cfg.validate()
	return &Client{api: api, config: cfg}
}

// NewFromEnv loads the default AWS configuration (environment, shared config,
// instance role) and creates a Client. A non-empty endpoint overrides the
// service endpoint, for DynamoDB Local.
func NewFromEnv(ctx context.Context, endpoint string, cfg Config, optFns ...func(*config.LoadOptions) error) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	api := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return New(api, cfg), nil
}

// Container returns a handle to the table for database/container. No request is made.
func (c *Client) Container(database, container string) (store.Container, error) {
	table := c.config.TableName(database, container)
	if table == "" {
		return nil, fmt.Errorf("dynamo: no table for %s/%s", database, container)
	}
	return &Table{api: c.api, name: table, config: c.config}, nil
}

// Table performs item operations against one DynamoDB table.
type Table struct {
	api    API
	name   string
	config Config
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Query scans the table for select-all text and runs anything else as PartiQL.
func (t *Table) Query(q *store.Query) store.Pager {
	if q.SelectsAll() {
		return &scanPager{p: dynamodb.NewScanPaginator(t.api, &dynamodb.ScanInput{
			TableName: aws.String(t.name),
		})}
	}

	params := make([]types.AttributeValue, 0, len(q.Parameters))
	for _, p := range q.Parameters {
		av, err := attributevalue.Marshal(p.Value)
		if err != nil {
			return &errPager{err: fmt.Errorf("marshal parameter %s: %w", p.Name, err)}
		}
		params = append(params, av)
	}
	return &statementPager{api: t.api, input: &dynamodb.ExecuteStatementInput{
		Statement:  aws.String(q.Text),
		Parameters: params,
	}}
}

// QueryWhere scans the table with where as the filter expression.
func (t *Table) QueryWhere(where filter.Expr) store.Pager {
	expr, err := FilterExpression(where, t.config.IDAttr)
	if err != nil {
		return &errPager{err: err}
	}
	return &scanPager{p: dynamodb.NewScanPaginator(t.api, &dynamodb.ScanInput{
		TableName:                 aws.String(t.name),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})}
}

// Upsert puts the document, replacing any item with the same key.
func (t *Table) Upsert(ctx context.Context, partitionKey string, body []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	id, ok := doc["id"].(string)
	if !ok || id == "" {
		return nil, ErrMissingID
	}

	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	item[t.config.PartitionKeyAttr] = &types.AttributeValueMemberS{Value: partitionKey}
	item[t.config.IDAttr] = &types.AttributeValueMemberS{Value: id}

	if _, err := t.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	}); err != nil {
		return nil, err
	}
	return body, nil
}

// Delete removes an item. Nothing is acknowledged when no item existed.
func (t *Table) Delete(ctx context.Context, partitionKey, id string) (*store.ItemResponse, error) {
	out, err := t.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.name),
		Key: map[string]types.AttributeValue{
			t.config.PartitionKeyAttr: &types.AttributeValueMemberS{Value: partitionKey},
			t.config.IDAttr:           &types.AttributeValueMemberS{Value: id},
		},
		ReturnValues:           types.ReturnValueAllOld,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return nil, err
	}
	if len(out.Attributes) == 0 {
		return nil, nil
	}

	resp := &store.ItemResponse{}
	if reqID, ok := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata); ok {
		resp.ActivityID = reqID
	}
	if out.ConsumedCapacity != nil && out.ConsumedCapacity.CapacityUnits != nil {
		resp.RequestCharge = *out.ConsumedCapacity.CapacityUnits
	}
	return resp, nil
}

// encodeItems converts DynamoDB items to JSON documents.
func encodeItems(items []map[string]types.AttributeValue) ([][]byte, error) {
	out := make([][]byte, 0, len(items))
	for _, item := range items {
		var doc map[string]any
		if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode item: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

type scanPager struct {
	p *dynamodb.ScanPaginator
}

func (s *scanPager) More() bool { return s.p.HasMorePages() }

func (s *scanPager) NextPage(ctx context.Context) ([][]byte, error) {
	page, err := s.p.NextPage(ctx)
	if err != nil {
		return nil, err
	}
	return encodeItems(page.Items)
}

type statementPager struct {
	api   API
	input *dynamodb.ExecuteStatementInput
	done  bool
}

func (s *statementPager) More() bool { return !s.done }

func (s *statementPager) NextPage(ctx context.Context) ([][]byte, error) {
	out, err := s.api.ExecuteStatement(ctx, s.input)
	if err != nil {
		s.done = true
		return nil, err
	}
	if out.NextToken == nil || *out.NextToken == "" {
		s.done = true
	} else {
		next := *s.input
		next.NextToken = out.NextToken
		s.input = &next
	}
	return encodeItems(out.Items)
}

type errPager struct {
	err  error
	done bool
}

func (e *errPager) More() bool { return !e.done }

func (e *errPager) NextPage(context.Context) ([][]byte, error) {
	e.done = true
	return nil, e.err
}

var (
	_ store.Client    = (*Client)(nil)
	_ store.Container = (*Table)(nil)
)
