package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jacentio/docbind/filter"
	"github.com/jacentio/docbind/store"
)

// --- Test Record Types ---

// Customer declares its container with a Locator.
type Customer struct {
	store.Document
	Name     string `json:"name"`
	Address1 string `json:"address1"`
}

func (Customer) Location() store.Location {
	return store.Location{Database: "Customers", Container: "Customer"}
}

// Prospect shares Customer's container.
type Prospect struct {
	store.Document
	Name string `json:"name"`
}

func (Prospect) Location() store.Location {
	return store.Location{Database: "Customers", Container: "Customer"}
}

// Audit is bound through a Registry.
type Audit struct {
	store.Document
	Action string `json:"action"`
}

// Orphan declares nothing.
type Orphan struct {
	store.Document
}

// --- Fake Client ---

type fakeClient struct {
	mu         sync.Mutex
	containers map[store.Location]*memContainer
	opens      int
	openErr    error
}

func newFakeClient() *fakeClient {
	return &fakeClient{containers: make(map[store.Location]*memContainer)}
}

func (f *fakeClient) Container(database, container string) (store.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.container(store.Location{Database: database, Container: container}), nil
}

// container returns the in-memory container for loc, creating it if needed.
// Containers outlive handles so tests can script them before first use.
func (f *fakeClient) container(loc store.Location) *memContainer {
	c, ok := f.containers[loc]
	if !ok {
		c = newMemContainer()
		f.containers[loc] = c
	}
	return c
}

func (f *fakeClient) script(loc store.Location) *memContainer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.container(loc)
}

func (f *fakeClient) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

type memContainer struct {
	mu    sync.Mutex
	items map[string][]byte

	pageSize int
	queries  []*store.Query

	// pageErr is returned by the pager once failAfterPages pages were served.
	pageErr        error
	failAfterPages int

	upsertErrs  []error
	upsertTimes []time.Time

	deleteErrs  map[int]error
	deleteCalls int

	// unacknowledged makes Delete report nothing deleted and keep the item.
	unacknowledged bool
}

func newMemContainer() *memContainer {
	return &memContainer{
		items:      make(map[string][]byte),
		pageSize:   2,
		deleteErrs: make(map[int]error),
	}
}

func itemKey(pk, id string) string { return pk + "|" + id }

func (m *memContainer) put(pk, id string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[itemKey(pk, id)] = body
}

func (m *memContainer) stored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *memContainer) upserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upsertTimes)
}

func (m *memContainer) snapshot() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.items[k])
	}
	return out
}

func (m *memContainer) Query(q *store.Query) store.Pager {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	return m.pager(m.snapshot())
}

func (m *memContainer) QueryWhere(where filter.Expr) store.Pager {
	var matched [][]byte
	for _, raw := range m.snapshot() {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if filter.Match(where, doc) {
			matched = append(matched, raw)
		}
	}
	return m.pager(matched)
}

func (m *memContainer) pager(items [][]byte) store.Pager {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &slicePager{items: items, size: m.pageSize, err: m.pageErr, failAfter: m.failAfterPages}
}

func (m *memContainer) Upsert(_ context.Context, pk string, body []byte) ([]byte, error) {
	m.mu.Lock()
	m.upsertTimes = append(m.upsertTimes, time.Now())
	var scripted error
	if len(m.upsertErrs) > 0 {
		scripted = m.upsertErrs[0]
		m.upsertErrs = m.upsertErrs[1:]
	}
	m.mu.Unlock()

	if scripted != nil {
		return nil, scripted
	}

	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	m.put(pk, doc.ID, body)
	return body, nil
}

func (m *memContainer) Delete(_ context.Context, pk, id string) (*store.ItemResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if err, ok := m.deleteErrs[m.deleteCalls]; ok {
		return nil, err
	}
	k := itemKey(pk, id)
	if _, ok := m.items[k]; !ok || m.unacknowledged {
		return nil, nil
	}
	delete(m.items, k)
	return &store.ItemResponse{ActivityID: "act"}, nil
}

type slicePager struct {
	items     [][]byte
	size      int
	served    int
	pos       int
	err       error
	failAfter int
	done      bool
}

func (p *slicePager) More() bool {
	return !p.done
}

func (p *slicePager) NextPage(context.Context) ([][]byte, error) {
	if p.err != nil && p.served == p.failAfter {
		p.done = true
		return nil, p.err
	}
	end := min(p.pos+p.size, len(p.items))
	page := p.items[p.pos:end]
	p.pos = end
	p.served++
	if p.pos >= len(p.items) && p.err == nil {
		p.done = true
	}
	return page, nil
}

// --- Fake Driver and Fetcher ---

type fakeDriver struct {
	client *fakeClient

	withKey    []string
	withConn   []string
	keyErr     error
	connStrErr error
}

func (d *fakeDriver) NewClientWithKey(endpoint, key string) (store.Client, error) {
	d.withKey = append(d.withKey, endpoint+"|"+key)
	if d.keyErr != nil {
		return nil, d.keyErr
	}
	return d.client, nil
}

func (d *fakeDriver) NewClientFromConnectionString(cs string) (store.Client, error) {
	d.withConn = append(d.withConn, cs)
	if d.connStrErr != nil {
		return nil, d.connStrErr
	}
	return d.client, nil
}

type fakeFetcher struct {
	key   string
	err   error
	calls int
}

func (f *fakeFetcher) FetchPrimaryKey(context.Context, string) (string, error) {
	f.calls++
	return f.key, f.err
}

// --- Recording Logger ---

type logEntry struct {
	level string
	msg   string
	err   error
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recordingLogger) add(e logEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingLogger) Info(msg string, _ ...any)  { r.add(logEntry{level: "info", msg: msg}) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.add(logEntry{level: "warn", msg: msg}) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.add(logEntry{level: "error", msg: msg}) }
func (r *recordingLogger) Exception(err error, msg string, _ ...any) {
	r.add(logEntry{level: "exception", msg: msg, err: err})
}

func (r *recordingLogger) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

var errTransient = errors.New("service unavailable")

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
