// Copyright 2025 VRF Relay Worker Authors
//
// Package memstore is the default, in-memory Store implementation: no
// persistence across restarts, but sufficient for the core pipeline, which
// does not require a store to operate correctly.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/vrfrelay/worker/pkg/store"
	"github.com/vrfrelay/worker/pkg/vrftask"
)

// Store is a goroutine-safe in-memory store.Store.
type Store struct {
	mu         sync.Mutex
	records    map[uint64]store.Record
	errorCount uint64
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[uint64]store.Record)}
}

func (s *Store) Upsert(ctx context.Context, nonce uint64, task vrftask.Task, resolvedBlockHeight uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[nonce]
	rec.Nonce = nonce
	rec.Task = task
	if resolvedBlockHeight > 0 {
		rec.ResolvedBlockHeight = resolvedBlockHeight
		rec.Resolved = true
	}
	s.records[nonce] = rec
	return nil
}

func (s *Store) LatestNonce(ctx context.Context) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max uint64
	found := false
	for n := range s.records {
		if !found || n > max {
			max = n
			found = true
		}
	}
	return max, found, nil
}

func (s *Store) Unresolved(ctx context.Context, offset, limit int) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Record
	for _, r := range s.records {
		if !r.Resolved {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nonce < out[j].Nonce })
	return page(out, offset, limit), nil
}

func (s *Store) Resolve(ctx context.Context, nonce uint64, blockHeight uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[nonce]
	if !ok {
		return store.ErrNotFound
	}
	rec.Resolved = true
	rec.ResolvedBlockHeight = blockHeight
	rec.ForkChecked = false
	s.records[nonce] = rec
	return nil
}

func (s *Store) MarkUnresolved(ctx context.Context, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[nonce]
	if !ok {
		return store.ErrNotFound
	}
	rec.Resolved = false
	rec.ResolvedBlockHeight = 0
	rec.ForkChecked = false
	s.records[nonce] = rec
	return nil
}

func (s *Store) MarkForkChecked(ctx context.Context, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[nonce]
	if !ok {
		return store.ErrNotFound
	}
	rec.ForkChecked = true
	s.records[nonce] = rec
	return nil
}

func (s *Store) ToForkCheck(ctx context.Context, head, blockDiff uint64, offset, limit int) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Record
	for _, r := range s.records {
		if r.Resolved && !r.ForkChecked && head >= blockDiff && r.ResolvedBlockHeight < head-blockDiff {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nonce < out[j].Nonce })
	return page(out, offset, limit), nil
}

func (s *Store) Delete(ctx context.Context, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, nonce)
	return nil
}

func (s *Store) DeleteFrom(ctx context.Context, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n := range s.records {
		if n >= nonce {
			delete(s.records, n)
		}
	}
	return nil
}

func (s *Store) ErrorCount(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorCount, nil
}

func (s *Store) SetErrorCount(ctx context.Context, count uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount = count
	return nil
}

func (s *Store) Close() error { return nil }

func page(recs []store.Record, offset, limit int) []store.Record {
	if offset >= len(recs) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(recs) {
		end = len(recs)
	}
	return recs[offset:end]
}
