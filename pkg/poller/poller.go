// Copyright 2025 VRF Relay Worker Authors
//
// Package poller implements the Task Poller: it watches the client chain's
// task nonce counter and enqueues newly discovered, whitelisted tasks onto
// the pipeline engine's queue.
package poller

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/vrfrelay/worker/pkg/vrftask"
)

// EVMReader is the subset of the client-chain surface the poller needs.
type EVMReader interface {
	CurrentTaskNonce(ctx context.Context) (uint64, error)
	Tasks(ctx context.Context, nonces []uint64) ([]vrftask.Task, error)
}

// Config configures one poller run.
type Config struct {
	PollInterval time.Duration
	Whitelist    map[common.Address]bool
}

// Poller drives the discovery loop.
type Poller struct {
	evm     EVMReader
	cfg     Config
	queue   chan<- vrftask.Item
	current uint64
	log     zerolog.Logger
}

// New constructs a Poller starting from startNonce, the lowest nonce not
// yet considered discovered.
func New(evm EVMReader, cfg Config, startNonce uint64, queue chan<- vrftask.Item, log zerolog.Logger) *Poller {
	return &Poller{
		evm:     evm,
		cfg:     cfg,
		queue:   queue,
		current: startNonce,
		log:     log.With().Str("component", "poller").Logger(),
	}
}

// StartNonce computes the boot-time starting nonce: max(current_task_nonce
// - startupWindow, configuredStartNonce), so a freshly started worker does
// not re-relay tasks that predate the window.
func StartNonce(ctx context.Context, evm EVMReader, startupWindow, configuredStartNonce uint64) (uint64, error) {
	latest, err := evm.CurrentTaskNonce(ctx)
	if err != nil {
		return 0, err
	}
	windowed := uint64(0)
	if latest > startupWindow {
		windowed = latest - startupWindow
	}
	if windowed > configuredStartNonce {
		return windowed, nil
	}
	return configuredStartNonce, nil
}

// Run blocks, polling every PollInterval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := p.tick(ctx); err != nil {
			p.log.Warn().Err(err).Msg("poller tick failed, will retry next interval")
		}
	}
}

func (p *Poller) tick(ctx context.Context) error {
	latest, err := p.evm.CurrentTaskNonce(ctx)
	if err != nil {
		return err
	}
	if latest <= p.current {
		return nil
	}

	nonces := make([]uint64, 0, latest-p.current)
	for n := p.current; n < latest; n++ {
		nonces = append(nonces, n)
	}
	tasks, err := p.evm.Tasks(ctx, nonces)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if task.IsResolved {
			continue
		}
		if p.cfg.Whitelist != nil && !p.cfg.Whitelist[task.Caller] {
			continue
		}
		item := vrftask.Item{Nonce: task.Nonce, Task: task, RetryCount: 0}
		select {
		case p.queue <- item:
			p.log.Info().Uint64("nonce", task.Nonce).Msg("discovered task")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.current = latest
	return nil
}
