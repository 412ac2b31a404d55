// Package cosmos implements the store driver contracts on the Azure Cosmos DB
// SQL API.
package cosmos

import (
	"context"
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/jacentio/docbind/filter"
	"github.com/jacentio/docbind/store"
)

// Alias is the container alias used in generated query text.
const Alias = "c"

// Driver builds Cosmos DB clients.
type Driver struct {
	// Options is passed to every client. Nil uses the SDK defaults.
	Options *azcosmos.ClientOptions
}

// NewDriver returns a Driver with default client options.
func NewDriver() *Driver {
	return &Driver{}
}

// NewClientWithKey builds a client from an account endpoint and a base64 key.
func (d *Driver) NewClientWithKey(endpoint, key string) (store.Client, error) {
	cred, err := azcosmos.NewKeyCredential(key)
	if err != nil {
		return nil, err
	}
	c, err := azcosmos.NewClientWithKey(endpoint, cred, d.Options)
	if err != nil {
		return nil, err
	}
	return &Client{client: c}, nil
}

// NewClientFromConnectionString builds a client from
// "AccountEndpoint=...;AccountKey=...;".
func (d *Driver) NewClientFromConnectionString(connectionString string) (store.Client, error) {
	c, err := azcosmos.NewClientFromConnectionString(connectionString, d.Options)
	if err != nil {
		return nil, err
	}
	return &Client{client: c}, nil
}

// Client adapts *azcosmos.Client to store.Client.
type Client struct {
	client *azcosmos.Client
}

// Wrap adapts an existing SDK client.
func Wrap(c *azcosmos.Client) *Client {
	return &Client{client: c}
}

// SDK returns the underlying SDK client.
func (c *Client) SDK() *azcosmos.Client { return c.client }

// Container returns a handle to database/container. No request is made.
func (c *Client) Container(database, container string) (store.Container, error) {
	cc, err := c.client.NewContainer(database, container)
	if err != nil {
		return nil, err
	}
	return &Container{container: cc}, nil
}

// Container adapts *azcosmos.ContainerClient to store.Container.
type Container struct {
	container *azcosmos.ContainerClient
}

// Query runs q across all partitions.
func (c *Container) Query(q *store.Query) store.Pager {
	opts := &azcosmos.QueryOptions{QueryParameters: queryParameters(q.Parameters)}
	return &pager{p: c.container.NewQueryItemsPager(q.Text, azcosmos.NewPartitionKey(), opts)}
}

// QueryWhere renders where as a parameterized WHERE clause and runs it across
// all partitions.
func (c *Container) QueryWhere(where filter.Expr) store.Pager {
	return c.Query(WhereQuery(where))
}

// Upsert writes body and returns the stored item as the service echoes it.
func (c *Container) Upsert(ctx context.Context, partitionKey string, body []byte) ([]byte, error) {
	resp, err := c.container.UpsertItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), body,
		&azcosmos.ItemOptions{EnableContentResponseOnWrite: true})
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Delete removes an item. A missing item is not acknowledged and is not an error.
func (c *Container) Delete(ctx context.Context, partitionKey, id string) (*store.ItemResponse, error) {
	resp, err := c.container.DeleteItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), id, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &store.ItemResponse{
		ActivityID:    resp.ActivityID,
		RequestCharge: float64(resp.RequestCharge),
	}, nil
}

type pager struct {
	p *runtime.Pager[azcosmos.QueryItemsResponse]
}

func (p *pager) More() bool { return p.p.More() }

func (p *pager) NextPage(ctx context.Context) ([][]byte, error) {
	resp, err := p.p.NextPage(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// WhereQuery renders where as "SELECT * FROM c WHERE ..." with named parameters.
func WhereQuery(where filter.Expr) *store.Query {
	clause, params := filter.SQL(where, Alias)
	q := store.NewQuery("SELECT * FROM " + Alias + " WHERE " + clause)
	for _, p := range params {
		q.Parameters = append(q.Parameters, store.Parameter{Name: p.Name, Value: p.Value})
	}
	return q
}

func queryParameters(params []store.Parameter) []azcosmos.QueryParameter {
	if len(params) == 0 {
		return nil
	}
	out := make([]azcosmos.QueryParameter, len(params))
	for i, p := range params {
		out[i] = azcosmos.QueryParameter{Name: p.Name, Value: p.Value}
	}
	return out
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

var (
	_ store.Driver    = (*Driver)(nil)
	_ store.Client    = (*Client)(nil)
	_ store.Container = (*Container)(nil)
)
