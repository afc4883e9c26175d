// Copyright 2025 VRF Relay Worker Authors

package memstore

import (
	"context"
	"testing"

	"github.com/vrfrelay/worker/pkg/vrftask"
)

func TestUpsertAndUnresolved(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Upsert(ctx, 1, vrftask.Task{Nonce: 1}, 0); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, 2, vrftask.Task{Nonce: 2}, 0); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	recs, err := s.Unresolved(ctx, 0, 10)
	if err != nil {
		t.Fatalf("unresolved: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 unresolved records, got %d", len(recs))
	}
	if recs[0].Nonce != 1 || recs[1].Nonce != 2 {
		t.Errorf("expected ascending nonce order, got %d, %d", recs[0].Nonce, recs[1].Nonce)
	}
}

func TestResolveRemovesFromUnresolved(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Upsert(ctx, 5, vrftask.Task{Nonce: 5}, 0); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Resolve(ctx, 5, 100); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	recs, err := s.Unresolved(ctx, 0, 10)
	if err != nil {
		t.Fatalf("unresolved: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no unresolved records after resolve, got %d", len(recs))
	}
}

func TestDeleteFromDropsSuffix(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, n := range []uint64{10, 11, 12, 13} {
		if err := s.Upsert(ctx, n, vrftask.Task{Nonce: n}, 0); err != nil {
			t.Fatalf("upsert %d: %v", n, err)
		}
	}
	if err := s.DeleteFrom(ctx, 12); err != nil {
		t.Fatalf("delete_from: %v", err)
	}
	latest, ok, err := s.LatestNonce(ctx)
	if err != nil {
		t.Fatalf("latest_nonce: %v", err)
	}
	if !ok || latest != 11 {
		t.Errorf("expected latest nonce 11 after delete_from(12), got %d (ok=%v)", latest, ok)
	}
}

func TestToForkCheck(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Upsert(ctx, 1, vrftask.Task{Nonce: 1}, 0); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Resolve(ctx, 1, 70); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	recs, err := s.ToForkCheck(ctx, 100, 20, 0, 10)
	if err != nil {
		t.Fatalf("to_fork_check: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected nonce 1 to need a fork check, got %d records", len(recs))
	}

	if err := s.MarkForkChecked(ctx, 1); err != nil {
		t.Fatalf("mark_fork_checked: %v", err)
	}
	recs, err = s.ToForkCheck(ctx, 100, 20, 0, 10)
	if err != nil {
		t.Fatalf("to_fork_check: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no records needing a fork check once marked, got %d", len(recs))
	}
}

func TestErrorCounter(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SetErrorCount(ctx, 7); err != nil {
		t.Fatalf("set_error_count: %v", err)
	}
	got, err := s.ErrorCount(ctx)
	if err != nil {
		t.Fatalf("error_count: %v", err)
	}
	if got != 7 {
		t.Errorf("expected error count 7, got %d", got)
	}
}
