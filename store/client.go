package store

import (
	"context"
	"regexp"

	"github.com/jacentio/docbind/filter"
)

// Client is a document database client. Implementations must be safe for
// concurrent use; a Connection shares one Client across all operations.
type Client interface {
	// Container opens a handle to a container. It is called once per
	// location per Connection.
	Container(database, container string) (Container, error)
}

// Container performs item operations against one container.
type Container interface {
	// Query runs query text in the driver's dialect across all partitions.
	Query(q *Query) Pager

	// QueryWhere selects items matching a predicate across all partitions.
	QueryWhere(where filter.Expr) Pager

	// Upsert writes a serialized item and returns the stored representation.
	Upsert(ctx context.Context, partitionKey string, body []byte) ([]byte, error)

	// Delete removes an item. A nil response with a nil error means the
	// database did not acknowledge the delete.
	Delete(ctx context.Context, partitionKey, id string) (*ItemResponse, error)
}

// Pager walks the pages of a query result.
type Pager interface {
	More() bool
	NextPage(ctx context.Context) ([][]byte, error)
}

// ItemResponse is the acknowledgement of a point operation.
type ItemResponse struct {
	ActivityID    string
	RequestCharge float64
}

// Query is query text with named or positional parameters.
type Query struct {
	Text       string
	Parameters []Parameter
}

// Parameter is a query parameter. Drivers with positional parameters use the
// slice order and ignore Name.
type Parameter struct {
	Name  string
	Value any
}

// NewQuery creates a Query.
func NewQuery(text string, params ...Parameter) *Query {
	return &Query{Text: text, Parameters: params}
}

// SelectAll returns the query that selects every item in container.
func SelectAll(container string) *Query {
	return NewQuery("SELECT * FROM " + container)
}

var selectAllRe = regexp.MustCompile(`(?i)^\s*select\s+\*\s+from\s+("[^"]+"|[A-Za-z_][\w.\-]*)(\s+[A-Za-z_]\w*)?\s*;?\s*$`)

// SelectsAll reports whether q selects every item without a filter.
func (q *Query) SelectsAll() bool {
	return q != nil && len(q.Parameters) == 0 && selectAllRe.MatchString(q.Text)
}

// Driver builds clients for the credential paths a Config can select.
type Driver interface {
	NewClientWithKey(endpoint, key string) (Client, error)
	NewClientFromConnectionString(connectionString string) (Client, error)
}

// KeyFetcher exchanges a resource id for an account key.
type KeyFetcher interface {
	FetchPrimaryKey(ctx context.Context, resourceID string) (string, error)
}
