package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/jacentio/docbind/credential"
	"github.com/jacentio/docbind/filter"
	"github.com/jacentio/docbind/logging"
)

// DefaultRetryDelay is the wait before the single upsert retry.
const DefaultRetryDelay = 500 * time.Millisecond

// Connection binds record types to containers of one Client and performs
// CRUD against them.
type Connection struct {
	config     Config
	client     Client
	cache      *bindingCache
	registry   *Registry
	logger     logging.Logger
	metrics    *Metrics
	retryDelay time.Duration
	fetcher    KeyFetcher
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l logging.Logger) Option {
	return func(c *Connection) { c.logger = l }
}

// WithRegistry sets the registry consulted for types without a Locator.
// Default: DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(c *Connection) { c.registry = r }
}

// WithMetrics records operation metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Connection) { c.metrics = m }
}

// WithRetryDelay sets the wait before the upsert retry. Default: DefaultRetryDelay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Connection) { c.retryDelay = d }
}

// WithKeyFetcher sets the fetcher used on the resource-id credential path.
// Default: a credential.Resolver using the ambient Azure identity.
func WithKeyFetcher(f KeyFetcher) Option {
	return func(c *Connection) { c.fetcher = f }
}

func newConnection(opts []Option) *Connection {
	c := &Connection{
		registry:   DefaultRegistry,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewSlog(nil)
	}
	return c
}

// New validates cfg, builds the client through driver and returns a ready
// Connection. It blocks until the client, and a fetched key if one is needed,
// are available.
func New(ctx context.Context, cfg Config, driver Driver, opts ...Option) (*Connection, error) {
	c := newConnection(opts)
	c.config = cfg
	if c.fetcher == nil {
		c.fetcher = credential.NewResolver(credential.WithLogger(c.logger))
	}

	client, err := BuildClient(ctx, cfg, driver, c.fetcher, c.logger)
	if err != nil {
		return nil, err
	}
	c.client = client
	c.cache = newBindingCache(client, c.logger, c.metrics)
	return c, nil
}

// NewWithClient returns a Connection over an existing client.
func NewWithClient(client Client, opts ...Option) *Connection {
	c := newConnection(opts)
	c.client = client
	c.cache = newBindingCache(client, c.logger, c.metrics)
	return c
}

// Config returns the configuration the connection was built from.
func (c *Connection) Config() Config { return c.config }

// Client returns the underlying client.
func (c *Connection) Client() Client { return c.client }

// Logger returns the connection's logger.
func (c *Connection) Logger() logging.Logger { return c.logger }

// Bindings returns a snapshot of the cached bindings.
func (c *Connection) Bindings() []Binding { return c.cache.snapshot() }

// Resolve returns the binding for record type T, opening the container on
// first use. It fails with ErrResolution, without I/O, if T declares no location.
func Resolve[T any](c *Connection) (*Binding, error) {
	loc, ok := locate[T](c.registry)
	if !ok {
		c.logger.Error("cannot find container declaration", "type", typeName[T]())
		return nil, fmt.Errorf("%w: %s declares no database and container", ErrResolution, typeName[T]())
	}
	return c.cache.resolve(loc)
}

// QueryItems returns every item of T's container selected by q, or every item
// when q is nil. A failure while paging is logged and yields an empty result.
func QueryItems[T any, P RecordPointer[T]](ctx context.Context, c *Connection, q *Query) ([]T, error) {
	b, err := Resolve[T](c)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = SelectAll(b.Location.Container)
	}

	items, err := drain[T](ctx, b.Handle.Query(q))
	if err != nil {
		c.logger.Exception(err, "QueryItems", "type", typeName[T](), "query", q.Text)
		c.metrics.observe("query", statusSwallowed)
		return []T{}, nil
	}
	c.metrics.observe("query", statusOK)
	return items, nil
}

// ScanByPredicate returns every item of T's container matching where, across
// all partitions. A failure while paging is logged and yields an empty result.
func ScanByPredicate[T any, P RecordPointer[T]](ctx context.Context, c *Connection, where filter.Expr) ([]T, error) {
	b, err := Resolve[T](c)
	if err != nil {
		return nil, err
	}

	items, err := drain[T](ctx, b.Handle.QueryWhere(where))
	if err != nil {
		c.logger.Exception(err, "ScanByPredicate", "type", typeName[T]())
		c.metrics.observe("scan", statusSwallowed)
		return []T{}, nil
	}
	c.metrics.observe("scan", statusOK)
	return items, nil
}

// UpsertItem stamps entity's last-modified time and writes it. A failed write
// is retried once after the retry delay; a second failure is returned.
func UpsertItem[T any, P RecordPointer[T]](ctx context.Context, c *Connection, entity P) (string, error) {
	b, err := Resolve[T](c)
	if err != nil {
		return "", err
	}

	entity.Touch(time.Now().UTC())

	body, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		c.logger.Exception(err, "failed to serialize item", "type", typeName[T]())
		c.metrics.observe("upsert", statusError)
		return "", fmt.Errorf("marshal %s: %w", typeName[T](), err)
	}
	pk := entity.PartitionKeyValue()

	resp, err := b.Handle.Upsert(ctx, pk, body)
	if err != nil {
		c.logger.Exception(err, fmt.Sprintf("Failed to upsert item of type %s, retry in progress.", typeName[T]()),
			"id", entity.DocumentID(),
		)
		c.metrics.retry()

		if werr := wait(ctx, c.retryDelay); werr != nil {
			c.metrics.observe("upsert", statusError)
			return "", werr
		}

		resp, err = b.Handle.Upsert(ctx, pk, body)
		if err != nil {
			c.logger.Exception(err, "upsert retry failed", "type", typeName[T](), "id", entity.DocumentID())
			c.metrics.observe("upsert", statusError)
			return "", fmt.Errorf("upsert into %s: %w", b.Location, err)
		}
	}

	c.metrics.observe("upsert", statusOK)
	return string(resp), nil
}

// DeleteRecord deletes record by id and partition key. It reports whether the
// database acknowledged the delete. There is no retry.
func DeleteRecord[T any, P RecordPointer[T]](ctx context.Context, c *Connection, record P) (bool, error) {
	b, err := Resolve[T](c)
	if err != nil {
		return false, err
	}

	resp, err := b.Handle.Delete(ctx, record.PartitionKeyValue(), record.DocumentID())
	if err != nil {
		c.logger.Exception(err, "failed to delete item", "type", typeName[T](), "id", record.DocumentID())
		c.metrics.observe("delete", statusError)
		return false, fmt.Errorf("delete from %s: %w", b.Location, err)
	}
	c.metrics.observe("delete", statusOK)
	return resp != nil, nil
}

// DeleteAllInContainer deletes every item of T's container one at a time and
// returns how many deletes were acknowledged. It is not transactional: the
// first failed delete stops the run and is returned along with the count so far.
func DeleteAllInContainer[T any, P RecordPointer[T]](ctx context.Context, c *Connection) (int, error) {
	b, err := Resolve[T](c)
	if err != nil {
		return 0, err
	}

	entries, err := QueryItems[T, P](ctx, c, nil)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range entries {
		var p P = &entries[i]
		resp, err := b.Handle.Delete(ctx, p.PartitionKeyValue(), p.DocumentID())
		if err != nil {
			c.logger.Exception(err, "failed to delete item", "type", typeName[T](), "id", p.DocumentID(), "deleted", deleted)
			c.metrics.observe("delete", statusError)
			return deleted, fmt.Errorf("delete from %s: %w", b.Location, err)
		}
		c.metrics.observe("delete", statusOK)
		if resp == nil {
			c.logger.Warn("delete not acknowledged", "type", typeName[T](), "id", p.DocumentID())
			continue
		}
		deleted++
	}
	return deleted, nil
}

// drain reads every page of pager and decodes each item into T.
func drain[T any](ctx context.Context, pager Pager) ([]T, error) {
	results := []T{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page {
			var item T
			if err := json.Unmarshal(raw, &item); err != nil {
				return nil, fmt.Errorf("decode item: %w", err)
			}
			results = append(results, item)
		}
	}
	return results, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
