package store

import (
	"fmt"
	"sync"

	"github.com/jacentio/docbind/logging"
)

// Binding is a cached container handle for a location.
type Binding struct {
	Location
	Handle Container
}

// bindingCache maps locations to opened container handles. Entries are never
// evicted. The mutex covers the lookup-then-open sequence so a location is
// opened at most once.
type bindingCache struct {
	client  Client
	logger  logging.Logger
	metrics *Metrics

	mu       sync.Mutex
	bindings map[Location]*Binding
}

func newBindingCache(client Client, logger logging.Logger, metrics *Metrics) *bindingCache {
	return &bindingCache{
		client:   client,
		logger:   logger,
		metrics:  metrics,
		bindings: make(map[Location]*Binding),
	}
}

func (c *bindingCache) resolve(loc Location) (*Binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.bindings[loc]; ok {
		c.logger.Info("found cached container", "database", loc.Database, "container", loc.Container)
		return b, nil
	}

	c.logger.Info("creating container", "database", loc.Database, "container", loc.Container)
	handle, err := c.client.Container(loc.Database, loc.Container)
	if err != nil {
		c.logger.Exception(err, "failed to open container", "database", loc.Database, "container", loc.Container)
		return nil, fmt.Errorf("%w: open %s: %w", ErrResolution, loc, err)
	}

	b := &Binding{Location: loc, Handle: handle}
	c.bindings[loc] = b
	c.metrics.setBindings(len(c.bindings))
	return b, nil
}

func (c *bindingCache) snapshot() []Binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Binding, 0, len(c.bindings))
	for _, b := range c.bindings {
		out = append(out, *b)
	}
	return out
}
