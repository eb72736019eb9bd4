// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache provides a tiered cache for analyzed documentation records.
//
// Records are keyed by declaration name plus content hash, so a record is
// reusable across runs as long as the declaration's elaborated form is
// unchanged. The hot tier is an in-memory LRU; an optional persistent store
// sits behind it and survives process restarts.
package cache

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
)

// DefaultMemorySize is the default capacity of the in-memory tier.
const DefaultMemorySize = 4096

// Store is a persistent record store behind the memory tier. May be nil.
type Store interface {
	GetRecord(ctx context.Context, key string) (*model.DocRecord, bool, error)
	PutRecord(ctx context.Context, key string, rec *model.DocRecord) error
}

// Stats summarizes cache effectiveness counters.
type Stats struct {
	MemoryHits int64
	StoreHits  int64
	Misses     int64
	StoreReads int64
}

// TieredDocCache is a two-tier documentation record cache.
//
// Thread Safety: safe for concurrent use. The memory tier is internally
// locked; concurrent misses on the same key share one store read via
// singleflight.
type TieredDocCache struct {
	memory *lru.Cache[string, *model.DocRecord]
	store  Store
	flight singleflight.Group

	memoryHits int64
	storeHits  int64
	misses     int64
	storeReads int64
}

// Option configures a TieredDocCache.
type Option func(*options)

type options struct {
	memorySize int
	store      Store
}

// WithMemorySize sets the capacity of the in-memory LRU tier.
func WithMemorySize(n int) Option {
	return func(o *options) {
		o.memorySize = n
	}
}

// WithStore attaches a persistent store tier.
func WithStore(s Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// New creates a TieredDocCache.
func New(opts ...Option) (*TieredDocCache, error) {
	o := options{memorySize: DefaultMemorySize}
	for _, opt := range opts {
		opt(&o)
	}
	memory, err := lru.New[string, *model.DocRecord](o.memorySize)
	if err != nil {
		return nil, err
	}
	return &TieredDocCache{memory: memory, store: o.store}, nil
}

// key joins declaration name and content hash. The NUL separator cannot
// occur in either component.
func key(decl, hash string) string {
	return decl + "\x00" + hash
}

// Get looks a record up, memory tier first, then the persistent store.
// A store hit is promoted into the memory tier.
func (c *TieredDocCache) Get(ctx context.Context, decl, hash string) (*model.DocRecord, bool, error) {
	k := key(decl, hash)

	if rec, ok := c.memory.Get(k); ok {
		atomic.AddInt64(&c.memoryHits, 1)
		return rec, true, nil
	}
	if c.store == nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}

	v, err, _ := c.flight.Do(k, func() (any, error) {
		atomic.AddInt64(&c.storeReads, 1)
		rec, ok, err := c.store.GetRecord(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			return (*model.DocRecord)(nil), nil
		}
		return rec, nil
	})
	if err != nil {
		return nil, false, err
	}
	rec := v.(*model.DocRecord)
	if rec == nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}
	atomic.AddInt64(&c.storeHits, 1)
	c.memory.Add(k, rec)
	return rec, true, nil
}

// Put stores a record in both tiers.
func (c *TieredDocCache) Put(ctx context.Context, decl, hash string, rec *model.DocRecord) error {
	k := key(decl, hash)
	c.memory.Add(k, rec)
	if c.store == nil {
		return nil
	}
	return c.store.PutRecord(ctx, k, rec)
}

// Stats returns a snapshot of the cache counters.
func (c *TieredDocCache) Stats() Stats {
	return Stats{
		MemoryHits: atomic.LoadInt64(&c.memoryHits),
		StoreHits:  atomic.LoadInt64(&c.storeHits),
		Misses:     atomic.LoadInt64(&c.misses),
		StoreReads: atomic.LoadInt64(&c.storeReads),
	}
}
