// Copyright 2025 VRF Relay Worker Authors
//
// Package store defines the durable record of tasks the relay worker has
// observed, used to survive restarts and to detect client-chain forks that
// reorder or drop tasks. Plugging in a store is optional; the pipeline
// engine runs correctly against an in-memory queue alone.
package store

import (
	"context"

	"github.com/vrfrelay/worker/pkg/vrftask"
)

// Record is one stored task snapshot plus the bookkeeping fields the fork
// sweep and restart-recovery logic need.
type Record struct {
	Nonce               uint64
	Task                vrftask.Task
	ResolvedBlockHeight uint64
	Resolved            bool
	ForkChecked         bool
}

// Store is the durable task record interface. All mutations made on behalf
// of one engine action (one state-machine transition) are expected to
// commit atomically.
type Store interface {
	// Upsert records or updates a task snapshot at nonce. resolvedBlockHeight
	// of 0 means "not yet resolved".
	Upsert(ctx context.Context, nonce uint64, task vrftask.Task, resolvedBlockHeight uint64) error

	// LatestNonce returns the highest nonce recorded, or ok=false if the
	// store is empty.
	LatestNonce(ctx context.Context) (nonce uint64, ok bool, err error)

	// Unresolved returns unresolved records ordered by ascending nonce.
	Unresolved(ctx context.Context, offset, limit int) ([]Record, error)

	// Resolve marks nonce resolved at blockHeight.
	Resolve(ctx context.Context, nonce uint64, blockHeight uint64) error

	// MarkUnresolved clears the resolved flag for nonce, used when a relay
	// is observed rolled back by the fork sweep.
	MarkUnresolved(ctx context.Context, nonce uint64) error

	// MarkForkChecked marks nonce as having survived a fork-sweep check at
	// the current head.
	MarkForkChecked(ctx context.Context, nonce uint64) error

	// ToForkCheck returns resolved records old enough to re-verify: those
	// with resolvedBlockHeight < head-blockDiff and ForkChecked == false,
	// ascending nonce order.
	ToForkCheck(ctx context.Context, head, blockDiff uint64, offset, limit int) ([]Record, error)

	// Delete removes the record at nonce.
	Delete(ctx context.Context, nonce uint64) error

	// DeleteFrom removes every record with nonce' >= nonce, used when a
	// reorg boundary is located at nonce.
	DeleteFrom(ctx context.Context, nonce uint64) error

	// ErrorCount returns the monotonic error counter.
	ErrorCount(ctx context.Context) (uint64, error)

	// SetErrorCount overwrites the monotonic error counter.
	SetErrorCount(ctx context.Context, count uint64) error

	// Close releases any resources held by the store.
	Close() error
}
