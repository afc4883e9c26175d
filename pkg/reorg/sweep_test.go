// Copyright 2025 VRF Relay Worker Authors

package reorg

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vrfrelay/worker/pkg/store/memstore"
	"github.com/vrfrelay/worker/pkg/vrftask"
)

type fakeHeadReader struct {
	head  uint64
	tasks map[uint64]vrftask.Task
}

func (f *fakeHeadReader) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeHeadReader) TaskByNonce(ctx context.Context, nonce uint64) (vrftask.Task, bool, error) {
	t, ok := f.tasks[nonce]
	return t, ok, nil
}

func TestSweep_ReorgBoundaryDeletesFromNonce(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if err := st.Upsert(ctx, 10, vrftask.Task{Nonce: 10, Seed: [32]byte{0x01}}, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.Resolve(ctx, 10, 5); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := st.Upsert(ctx, 11, vrftask.Task{Nonce: 11, Seed: [32]byte{0x02}}, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.Resolve(ctx, 11, 5); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	evm := &fakeHeadReader{head: 1000, tasks: map[uint64]vrftask.Task{
		10: {Nonce: 10, Seed: [32]byte{0xFF}}, // seed diverged: reorg boundary
	}}

	s := New(evm, st, Config{BlockDiff: 10, PageSize: 100}, zerolog.Nop())
	if err := s.sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	latest, ok, err := st.LatestNonce(ctx)
	if err != nil {
		t.Fatalf("latest_nonce: %v", err)
	}
	if ok {
		t.Errorf("expected store emptied from nonce 10 onward, latest=%d", latest)
	}
}

func TestSweep_RolledBackResolutionMarksUnresolved(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if err := st.Upsert(ctx, 20, vrftask.Task{Nonce: 20, Seed: [32]byte{0x03}}, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.Resolve(ctx, 20, 5); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	evm := &fakeHeadReader{head: 1000, tasks: map[uint64]vrftask.Task{
		20: {Nonce: 20, Seed: [32]byte{0x03}, IsResolved: false},
	}}

	s := New(evm, st, Config{BlockDiff: 10, PageSize: 100}, zerolog.Nop())
	if err := s.sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	recs, err := st.Unresolved(ctx, 0, 10)
	if err != nil {
		t.Fatalf("unresolved: %v", err)
	}
	if len(recs) != 1 || recs[0].Nonce != 20 {
		t.Errorf("expected nonce 20 rolled back to unresolved, got %+v", recs)
	}
}

func TestSweep_StableResolutionMarksForkChecked(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if err := st.Upsert(ctx, 30, vrftask.Task{Nonce: 30, Seed: [32]byte{0x04}}, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.Resolve(ctx, 30, 5); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	evm := &fakeHeadReader{head: 1000, tasks: map[uint64]vrftask.Task{
		30: {Nonce: 30, Seed: [32]byte{0x04}, IsResolved: true},
	}}

	s := New(evm, st, Config{BlockDiff: 10, PageSize: 100}, zerolog.Nop())
	if err := s.sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if err := s.sweep(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}

	recs, err := st.ToForkCheck(ctx, 1000, 10, 0, 10)
	if err != nil {
		t.Fatalf("to_fork_check: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected nonce 30 marked fork-checked and excluded, got %+v", recs)
	}
}
