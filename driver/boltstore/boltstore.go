// Package boltstore implements the store client contracts on a local bbolt
// file. Each database is a top-level bucket holding one nested bucket per
// container; items are keyed by partition key and id.
//
// Only select-all query text is supported. Predicates are evaluated in process.
package boltstore

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"github.com/jacentio/docbind/filter"
	"github.com/jacentio/docbind/internal/itemkey"
	"github.com/jacentio/docbind/store"
)

// DefaultPageSize is the number of items per page.
const DefaultPageSize = 100

// Client implements store.Client backed by a bbolt database.
type Client struct {
	db       *bbolt.DB
	pageSize int
}

var _ store.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithPageSize sets the number of items per page.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New returns a Client backed by the given bbolt database.
func New(db *bbolt.DB, opts ...Option) *Client {
	c := &Client{db: db, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open opens a bbolt database at path and returns a new Client.
func Open(path string, options *bbolt.Options, opts ...Option) (*Client, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db, opts...), nil
}

// Close closes the underlying bbolt database.
func (c *Client) Close() error {
	return c.db.Close()
}

// Container creates the database and container buckets if needed.
func (c *Client) Container(database, container string) (store.Container, error) {
	b := &Bucket{db: c.db, database: []byte(database), container: []byte(container), pageSize: c.pageSize}
	err := c.db.Update(func(tx *bbolt.Tx) error {
		_, err := b.create(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s/%s: %w", database, container, err)
	}
	return b, nil
}

// Bucket is a container stored as a nested bucket.
type Bucket struct {
	db        *bbolt.DB
	database  []byte
	container []byte
	pageSize  int
}

var _ store.Container = (*Bucket)(nil)

func (b *Bucket) create(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	db, err := tx.CreateBucketIfNotExists(b.database)
	if err != nil {
		return nil, err
	}
	return db.CreateBucketIfNotExists(b.container)
}

func (b *Bucket) get(tx *bbolt.Tx) *bbolt.Bucket {
	db := tx.Bucket(b.database)
	if db == nil {
		return nil
	}
	return db.Bucket(b.container)
}

// Query supports select-all text only; anything else fails with
// store.ErrUnsupportedQuery on the first page.
func (b *Bucket) Query(q *store.Query) store.Pager {
	if !q.SelectsAll() {
		return &errPager{err: fmt.Errorf("%w: %q", store.ErrUnsupportedQuery, q.Text)}
	}
	return &cursorPager{bucket: b}
}

// QueryWhere walks the bucket and keeps the items where matches.
func (b *Bucket) QueryWhere(where filter.Expr) store.Pager {
	return &cursorPager{bucket: b, match: func(raw []byte) (bool, error) {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return false, fmt.Errorf("decode item: %w", err)
		}
		return filter.Match(where, doc), nil
	}}
}

// Upsert stores body under its partition key and id.
func (b *Bucket) Upsert(_ context.Context, partitionKey string, body []byte) ([]byte, error) {
	if !itemkey.Valid(partitionKey) {
		return nil, fmt.Errorf("boltstore: invalid partition key %q", partitionKey)
	}
	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("boltstore: item has no id")
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := b.create(tx)
		if err != nil {
			return err
		}
		return bkt.Put(itemkey.Compose(partitionKey, doc.ID), bytes.Clone(body))
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Delete removes an item. A missing item is not acknowledged.
func (b *Bucket) Delete(_ context.Context, partitionKey, id string) (*store.ItemResponse, error) {
	var resp *store.ItemResponse
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt := b.get(tx)
		if bkt == nil {
			return nil
		}
		key := itemkey.Compose(partitionKey, id)
		if bkt.Get(key) == nil {
			return nil
		}
		if err := bkt.Delete(key); err != nil {
			return err
		}
		resp = &store.ItemResponse{ActivityID: strconv.Itoa(tx.ID())}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// cursorPager reads one page per read transaction, resuming after the last
// key it visited.
type cursorPager struct {
	bucket *Bucket
	match  func(raw []byte) (bool, error)
	after  []byte
	done   bool
}

func (p *cursorPager) More() bool { return !p.done }

func (p *cursorPager) NextPage(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var page [][]byte
	err := p.bucket.db.View(func(tx *bbolt.Tx) error {
		bkt := p.bucket.get(tx)
		if bkt == nil {
			p.done = true
			return nil
		}

		c := bkt.Cursor()
		var k, v []byte
		if p.after == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(p.after)
			if k != nil && bytes.Equal(k, p.after) {
				k, v = c.Next()
			}
		}

		for ; k != nil && len(page) < p.bucket.pageSize; k, v = c.Next() {
			p.after = bytes.Clone(k)
			if p.match != nil {
				ok, err := p.match(v)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			page = append(page, bytes.Clone(v))
		}
		if k == nil {
			p.done = true
		}
		return nil
	})
	if err != nil {
		p.done = true
		return nil, err
	}
	return page, nil
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
