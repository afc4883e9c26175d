// Copyright 2025 VRF Relay Worker Authors
//
// Package reorg implements the background Fork/Reorg Sweep that
// complements the pipeline engine's reactive reorg detection: it
// periodically re-verifies resolved-but-not-yet-confirmed store records
// against the current chain head.
package reorg

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vrfrelay/worker/pkg/store"
	"github.com/vrfrelay/worker/pkg/vrftask"
)

// HeadReader supplies the current block height and a per-nonce task read.
type HeadReader interface {
	CurrentBlockHeight(ctx context.Context) (uint64, error)
	TaskByNonce(ctx context.Context, nonce uint64) (vrftask.Task, bool, error)
}

// Config configures the sweep's pacing and confirmation depth.
type Config struct {
	Interval  time.Duration
	BlockDiff uint64
	PageSize  int
}

// Sweeper runs the background fork/reorg sweep. It is only meaningful when
// a store is attached; the core pipeline is correct without one.
type Sweeper struct {
	evm   HeadReader
	store store.Store
	cfg   Config
	log   zerolog.Logger
}

// New constructs a Sweeper.
func New(evm HeadReader, st store.Store, cfg Config, log zerolog.Logger) *Sweeper {
	return &Sweeper{evm: evm, store: st, cfg: cfg, log: log.With().Str("component", "reorg").Logger()}
}

// Run blocks, sweeping every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := s.sweep(ctx); err != nil {
			s.log.Warn().Err(err).Msg("sweep iteration failed, will retry next interval")
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) error {
	head, err := s.evm.CurrentBlockHeight(ctx)
	if err != nil {
		return err
	}

	offset := 0
	for {
		records, err := s.store.ToForkCheck(ctx, head, s.cfg.BlockDiff, offset, s.cfg.PageSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		for _, rec := range records {
			if err := s.checkOne(ctx, rec); err != nil {
				return err
			}
		}
		offset += len(records)
	}
}

func (s *Sweeper) checkOne(ctx context.Context, rec store.Record) error {
	onChain, present, err := s.evm.TaskByNonce(ctx, rec.Nonce)
	if err != nil {
		return err
	}

	switch {
	case !present || !onChain.SameSeed(rec.Task):
		s.log.Info().Uint64("nonce", rec.Nonce).Msg("reorg boundary located, deleting from nonce")
		return s.store.DeleteFrom(ctx, rec.Nonce)

	case !onChain.IsResolved:
		s.log.Info().Uint64("nonce", rec.Nonce).Msg("relay rolled back, marking unresolved")
		return s.store.MarkUnresolved(ctx, rec.Nonce)

	default:
		return s.store.MarkForkChecked(ctx, rec.Nonce)
	}
}
