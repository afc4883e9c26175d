// Copyright 2025 VRF Relay Worker Authors
//
// Package engine implements the Pipeline Engine: it drives each discovered
// task through the per-task state machine (request, wait, minimize, relay),
// handling retries with a cap, idempotence, and client-chain reorg
// divergences.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/vrfrelay/worker/pkg/metrics"
	"github.com/vrfrelay/worker/pkg/oracleclient"
	"github.com/vrfrelay/worker/pkg/store"
	"github.com/vrfrelay/worker/pkg/trimmer"
	"github.com/vrfrelay/worker/pkg/vrftask"
)

// EVM is the client-chain surface the engine drives a task through.
type EVM interface {
	WorkerAddress() common.Address
	EncodedBandChainID(ctx context.Context) ([]byte, error)
	ValidatorPowers(ctx context.Context) (vrftask.ValidatorPowers, error)
	RelayProof(ctx context.Context, proof []byte, nonce uint64) (*types.Transaction, error)
	ReceiptStatus(ctx context.Context, tx *types.Transaction) (status uint64, blockHeight uint64, err error)
	TaskByNonce(ctx context.Context, nonce uint64) (vrftask.Task, bool, error)
	CurrentBlockHeight(ctx context.Context) (uint64, error)
}

// Oracle is the oracle-chain surface the engine drives a task through.
type Oracle interface {
	RequestVRF(ctx context.Context, oracleScriptID uint64, workerAddress []byte, seed []byte, taskTime uint64, signer oracleclient.Signer) (oracleclient.TxResponse, error)
	GetTransaction(ctx context.Context, txHash string, timeout time.Duration) (oracleclient.TxResponse, error)
	EVMProof(ctx context.Context, requestID uint64, timeout time.Duration) (proof []byte, blockHash []byte, err error)
}

// Config holds the engine's pacing and retry policy.
type Config struct {
	OracleScriptID uint64
	MaxRetries     int
	TxTimeout      time.Duration
	ProofTimeout   time.Duration
}

// Engine consumes the task queue single-consumer and drives each item to a
// terminal outcome.
type Engine struct {
	evm    EVM
	oracle Oracle
	signer oracleclient.Signer
	store  store.Store // nil is valid: the core pipeline does not require a store
	queue  chan vrftask.Item
	cfg    Config
	m      *metrics.Metrics
	log    zerolog.Logger
}

// New constructs an Engine. store may be nil.
func New(evm EVM, oracle Oracle, signer oracleclient.Signer, st store.Store, queue chan vrftask.Item, cfg Config, m *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{
		evm:    evm,
		oracle: oracle,
		signer: signer,
		store:  st,
		queue:  queue,
		cfg:    cfg,
		m:      m,
		log:    log.With().Str("component", "engine").Logger(),
	}
}

// Run consumes the queue until ctx is cancelled. Tasks are processed one at
// a time in FIFO dequeue order, serializing the worker's EVM signing nonce.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-e.queue:
			if !ok {
				return nil
			}
			e.m.QueueDepth.Set(float64(len(e.queue)))
			e.process(ctx, item)
		}
	}
}

func (e *Engine) process(ctx context.Context, item vrftask.Item) {
	log := e.log.With().Uint64("nonce", item.Nonce).Int("retry_count", item.RetryCount).Logger()
	start := time.Now()

	err := e.attempt(ctx, item, log)
	if err == nil {
		e.m.TasksTotal.WithLabelValues(string(metrics.OutcomeResolved)).Inc()
		e.m.RelayLatency.Observe(time.Since(start).Seconds())
		return
	}

	switch {
	case errors.Is(err, vrftask.ErrOracleRejected):
		log.Warn().Err(err).Msg("oracle rejected request, dropping task")
		e.m.TasksTotal.WithLabelValues(string(metrics.OutcomeOracleRejected)).Inc()
		return

	case errors.Is(err, errReorgDropped):
		log.Info().Msg("client-chain reorg dropped this nonce")
		e.m.TasksTotal.WithLabelValues(string(metrics.OutcomeReorgDropped)).Inc()
		return

	case errors.Is(err, errAlreadyResolved):
		log.Info().Msg("task already resolved by another attempt")
		e.m.TasksTotal.WithLabelValues(string(metrics.OutcomeResolved)).Inc()
		return

	case errors.Is(err, vrftask.ErrInsufficientPower):
		if item.RetryCount >= e.cfg.MaxRetries {
			log.Warn().Err(err).Msg("retry cap reached with insufficient validator power, dropping task")
			e.m.TasksTotal.WithLabelValues(string(metrics.OutcomeInsufficientPower)).Inc()
			return
		}
		log.Info().Err(err).Msg("insufficient validator power, re-enqueuing")
		e.m.RetriesTotal.Inc()
		next := item.NextAttempt()
		select {
		case e.queue <- next:
		case <-ctx.Done():
		}
		return

	default:
		// Transient or a true on-chain revert: retry up to the cap.
		if item.RetryCount >= e.cfg.MaxRetries {
			log.Warn().Err(err).Msg("retry cap reached, dropping task")
			e.m.TasksTotal.WithLabelValues(string(metrics.OutcomeRetryCapped)).Inc()
			return
		}
		log.Info().Err(err).Msg("retryable failure, re-enqueuing")
		e.m.RetriesTotal.Inc()
		next := item.NextAttempt()
		select {
		case e.queue <- next:
		case <-ctx.Done():
		}
	}
}

var (
	errReorgDropped    = errors.New("engine: client-chain reorg dropped nonce")
	errAlreadyResolved = errors.New("engine: task already resolved")
)

// attempt drives one item through the full state machine once: request_vrf
// -> get_transaction -> evm_proof -> trim -> relay_proof -> receipt.
func (e *Engine) attempt(ctx context.Context, item vrftask.Item, log zerolog.Logger) error {
	task := item.Task

	txResp, err := e.oracle.RequestVRF(ctx, e.cfg.OracleScriptID, e.evm.WorkerAddress().Bytes(), task.Seed[:], task.Time, e.signer)
	if err != nil {
		return err
	}
	log.Debug().Str("tx_hash", txResp.TxHash).Msg("request_vrf broadcast")

	indexed, err := e.oracle.GetTransaction(ctx, txResp.TxHash, e.cfg.TxTimeout)
	if err != nil {
		return err
	}
	requestID := indexed.RequestID
	log.Debug().Uint64("request_id", requestID).Msg("transaction indexed")

	proof, blockHash, err := e.oracle.EVMProof(ctx, requestID, e.cfg.ProofTimeout)
	if err != nil {
		return err
	}

	encodedChainID, err := e.evm.EncodedBandChainID(ctx)
	if err != nil {
		return err
	}
	powers, err := e.evm.ValidatorPowers(ctx)
	if err != nil {
		return err
	}

	var blockHash32 common.Hash
	copy(blockHash32[:], blockHash)
	trimmed, err := trimmer.Trim(proof, blockHash32, encodedChainID, powers)
	if err != nil {
		return err
	}
	if bundle, derr := trimmer.DecodeProofBundle(trimmed); derr == nil {
		if relay, rerr := trimmer.DecodeRelayData(bundle.RelayData); rerr == nil {
			e.m.TrimSignatures.Observe(float64(len(relay.Signatures)))
		}
	}

	tx, err := e.evm.RelayProof(ctx, trimmed, item.Nonce)
	if err != nil {
		if errors.Is(err, vrftask.ErrOnChainRevert) {
			return e.probe(ctx, item, log)
		}
		return err
	}

	status, blockHeight, err := e.evm.ReceiptStatus(ctx, tx)
	if err != nil {
		return err
	}
	if status == 0 {
		return e.probe(ctx, item, log)
	}

	if e.store != nil {
		if serr := e.store.Resolve(ctx, item.Nonce, blockHeight); serr != nil {
			log.Warn().Err(serr).Msg("store.resolve failed after successful relay")
		}
	}
	return nil
}

// probe implements the idempotence / reorg probe for a REVERTED transaction
// or a gas-estimate failure at MINIMIZED.
func (e *Engine) probe(ctx context.Context, item vrftask.Item, log zerolog.Logger) error {
	onChain, present, err := e.evm.TaskByNonce(ctx, item.Nonce)
	if err != nil {
		return err
	}

	switch {
	case present && onChain.IsResolved:
		if e.store != nil {
			height, herr := e.evm.CurrentBlockHeight(ctx)
			if herr != nil {
				log.Warn().Err(herr).Msg("current_block_height failed, resolving without a height")
			}
			if serr := e.store.Resolve(ctx, item.Nonce, height); serr != nil {
				log.Warn().Err(serr).Msg("store.resolve failed after observing resolved task")
			}
		}
		return errAlreadyResolved

	case present && onChain.SameSeed(item.Task):
		return vrftask.ErrOnChainRevert

	default:
		if e.store != nil {
			if serr := e.store.DeleteFrom(ctx, item.Nonce); serr != nil {
				log.Warn().Err(serr).Msg("store.delete_from failed during reorg drop")
			}
		}
		return errReorgDropped
	}
}
