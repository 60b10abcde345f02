package evals

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	mu      sync.Mutex
	calls   map[string]int
	records []Record
	err     error
}

func (s *countingSource) ReadRecords(_ context.Context, dir string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[dir]++
	if s.err != nil {
		return nil, s.err
	}
	return append([]Record(nil), s.records...), nil
}

func TestCachedSource_LoadsOncePerDir(t *testing.T) {
	inner := &countingSource{records: []Record{{ModelID: "a", Score: 0.5}}}
	cache := NewCachedSource(inner)
	ctx := context.Background()

	for range 3 {
		records, err := cache.ReadRecords(ctx, "x")
		require.NoError(t, err)
		require.Len(t, records, 1)
	}
	_, err := cache.ReadRecords(ctx, "y")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls["x"])
	assert.Equal(t, 1, inner.calls["y"])
}

func TestCachedSource_ReturnsCopies(t *testing.T) {
	inner := &countingSource{records: []Record{{ModelID: "a", Score: 0.5}}}
	cache := NewCachedSource(inner)
	ctx := context.Background()

	first, err := cache.ReadRecords(ctx, "x")
	require.NoError(t, err)
	first[0].ModelID = "mutated"

	second, err := cache.ReadRecords(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "a", second[0].ModelID)
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	inner := &countingSource{err: errors.New("boom")}
	cache := NewCachedSource(inner)
	ctx := context.Background()

	_, err := cache.ReadRecords(ctx, "x")
	require.Error(t, err)

	inner.mu.Lock()
	inner.err = nil
	inner.records = []Record{{ModelID: "a"}}
	inner.mu.Unlock()

	records, err := cache.ReadRecords(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, inner.calls["x"])
}

func TestCachedSource_NilBecomesEmpty(t *testing.T) {
	cache := NewCachedSource(&countingSource{})

	records, err := cache.ReadRecords(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestCachedSource_Invalidate(t *testing.T) {
	inner := &countingSource{records: []Record{{ModelID: "a"}}}
	cache := NewCachedSource(inner)
	ctx := context.Background()

	_, err := cache.ReadRecords(ctx, "x")
	require.NoError(t, err)
	cache.Invalidate()
	_, err = cache.ReadRecords(ctx, "x")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls["x"])
}
