package evals

import (
	"context"
	"slices"
	"sync"
)

// CachedSource loads each directory from the wrapped source once and serves
// copies of that snapshot afterwards. It is owned by whoever creates it; nothing
// is shared between instances.
type CachedSource struct {
	source Source

	mu        sync.Mutex
	snapshots map[string][]Record
}

// NewCachedSource wraps source with a lazily filled snapshot cache.
func NewCachedSource(source Source) *CachedSource {
	return &CachedSource{source: source}
}

// ReadRecords returns the cached snapshot for dir, loading it on first use.
// Failed loads are not cached.
func (c *CachedSource) ReadRecords(ctx context.Context, dir string) ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if records, ok := c.snapshots[dir]; ok {
		return slices.Clone(records), nil
	}

	records, err := c.source.ReadRecords(ctx, dir)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	if c.snapshots == nil {
		c.snapshots = make(map[string][]Record)
	}
	c.snapshots[dir] = slices.Clone(records)
	return records, nil
}

// Invalidate drops every snapshot so the next read goes to the source.
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = nil
}
