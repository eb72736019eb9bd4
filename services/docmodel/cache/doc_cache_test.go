// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
)

// mapStore is an in-memory Store for tests.
type mapStore struct {
	mu      sync.Mutex
	records map[string]*model.DocRecord
	gets    int
	failGet error
}

func newMapStore() *mapStore {
	return &mapStore{records: make(map[string]*model.DocRecord)}
}

func (s *mapStore) GetRecord(_ context.Context, key string) (*model.DocRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failGet != nil {
		return nil, false, s.failGet
	}
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *mapStore) PutRecord(_ context.Context, key string, rec *model.DocRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = rec
	return nil
}

func record(name string) *model.DocRecord {
	return &model.DocRecord{Name: name, Kind: "def", Doc: "docs for " + name}
}

func TestTieredDocCache_MemoryHit(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "Core.foo", "h1", record("Core.foo")))

	got, ok, err := c.Get(ctx, "Core.foo", "h1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Core.foo", got.Name)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Zero(t, stats.Misses)
}

func TestTieredDocCache_HashIsPartOfKey(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "Core.foo", "h1", record("Core.foo")))

	_, ok, err := c.Get(ctx, "Core.foo", "h2")
	require.NoError(t, err)
	assert.False(t, ok, "a different content hash must miss")
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestTieredDocCache_StoreHitPromotes(t *testing.T) {
	store := newMapStore()
	c, err := New(WithStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutRecord(ctx, key("Core.foo", "h1"), record("Core.foo")))

	got, ok, err := c.Get(ctx, "Core.foo", "h1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Core.foo", got.Name)

	// Promoted into the memory tier: second lookup never reaches the store.
	_, ok, err = c.Get(ctx, "Core.foo", "h1")
	require.NoError(t, err)
	require.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.StoreHits)
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.StoreReads)
}

func TestTieredDocCache_MissWithStore(t *testing.T) {
	store := newMapStore()
	c, err := New(WithStore(store))
	require.NoError(t, err)

	_, ok, err := c.Get(context.Background(), "ghost", "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.StoreReads)
}

func TestTieredDocCache_StoreErrorPropagates(t *testing.T) {
	store := newMapStore()
	store.failGet = errors.New("disk on fire")
	c, err := New(WithStore(store))
	require.NoError(t, err)

	_, ok, err := c.Get(context.Background(), "Core.foo", "h1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestTieredDocCache_PutWritesBothTiers(t *testing.T) {
	store := newMapStore()
	c, err := New(WithStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "Core.foo", "h1", record("Core.foo")))

	store.mu.Lock()
	_, inStore := store.records[key("Core.foo", "h1")]
	store.mu.Unlock()
	assert.True(t, inStore)

	_, ok, err := c.Get(ctx, "Core.foo", "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().MemoryHits)
}

func TestTieredDocCache_MemoryEviction(t *testing.T) {
	c, err := New(WithMemorySize(2))
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, c.Put(ctx, name, "h", record(name)))
	}

	// Oldest entry evicted; with no store behind it the lookup misses.
	_, ok, err := c.Get(ctx, "a", "h")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, "c", "h")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTieredDocCache_ConcurrentAccess(t *testing.T) {
	store := newMapStore()
	c, err := New(WithStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutRecord(ctx, key("shared", "h"), record("shared")))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, ok, err := c.Get(ctx, "shared", "h")
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "shared", rec.Name)
		}()
	}
	wg.Wait()

	stats := c.Stats()
	assert.Equal(t, int64(16), stats.MemoryHits+stats.StoreHits)
}
