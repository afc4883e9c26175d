// Copyright 2025 VRF Relay Worker Authors
//
// Package worker wires the relay worker's components together: the
// Oracle Client, the EVM Client, a task store, the Task Poller, the
// Pipeline Engine, and the Fork/Reorg Sweep, and runs them as a single
// fiber group.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vrfrelay/worker/pkg/config"
	"github.com/vrfrelay/worker/pkg/engine"
	"github.com/vrfrelay/worker/pkg/evmclient"
	"github.com/vrfrelay/worker/pkg/metrics"
	"github.com/vrfrelay/worker/pkg/oracleclient"
	"github.com/vrfrelay/worker/pkg/poller"
	"github.com/vrfrelay/worker/pkg/reorg"
	"github.com/vrfrelay/worker/pkg/store"
	"github.com/vrfrelay/worker/pkg/store/memstore"
	"github.com/vrfrelay/worker/pkg/store/pgstore"
	"github.com/vrfrelay/worker/pkg/vrftask"
)

// Worker bundles every constructed component and coordinates their
// lifetimes under one context.
type Worker struct {
	cfg    *config.Config
	log    zerolog.Logger
	evm    *evmclient.Client
	oracle *oracleclient.Client
	store  store.Store
	m      *metrics.Metrics

	poller *poller.Poller
	engine *engine.Engine
	sweep  *reorg.Sweeper

	metricsSrv *http.Server
}

// New constructs every component from cfg but does not start any fiber.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Worker, error) {
	oracleCfg := oracleclient.Config{
		GRPCEndpoint: cfg.BandChain.GRPCEndpoint,
		MinCount:     cfg.BandChain.MinCount,
		AskCount:     cfg.BandChain.AskCount,
		PrepareGas:   cfg.BandChain.PrepareGas,
		ExecuteGas:   cfg.BandChain.ExecuteGas,
		DSFeeLimit:   cfg.BandChain.DSFeeLimit,
		GasLimit:     cfg.BandChain.GasLimit,
		GasPrice:     cfg.BandChain.GasPrice,
	}
	oracle, err := oracleclient.New(ctx, oracleCfg, log)
	if err != nil {
		return nil, fmt.Errorf("construct oracle client: %w", err)
	}

	addrs := evmclient.Addresses{
		VRFProvider: common.HexToAddress(cfg.EVMChain.VRFProviderAddr),
		VRFLens:     common.HexToAddress(cfg.EVMChain.VRFLensAddr),
		Bridge:      common.HexToAddress(cfg.EVMChain.BridgeAddr),
	}
	evm, err := evmclient.New(ctx, cfg.EVMChain.RPCEndpoint, cfg.EVMChain.ChainID, cfg.EVMChain.PrivateKey, addrs, cfg.GasStrategy(), log)
	if err != nil {
		oracle.Close()
		return nil, fmt.Errorf("construct evm client: %w", err)
	}

	st, err := newStore(ctx, cfg.Store)
	if err != nil {
		oracle.Close()
		return nil, fmt.Errorf("construct store: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	startNonce, err := poller.StartNonce(ctx, evm, cfg.Engine.StartupNonceCheck, cfg.Engine.StartNonce)
	if err != nil {
		oracle.Close()
		return nil, fmt.Errorf("compute start nonce: %w", err)
	}

	queue := make(chan vrftask.Item, cfg.Engine.QueueCapacity)

	whitelist := make(map[common.Address]bool, len(cfg.EVMChain.WhitelistedCallers))
	for _, addr := range cfg.EVMChain.WhitelistedCallers {
		whitelist[common.HexToAddress(addr)] = true
	}
	pl := poller.New(evm, poller.Config{PollInterval: cfg.Engine.PollInterval.Duration(), Whitelist: whitelist}, startNonce, queue, log)

	oracleScriptID, err := evm.OracleScriptID(ctx)
	if err != nil {
		oracle.Close()
		return nil, fmt.Errorf("read oracle script id: %w", err)
	}
	eng := engine.New(evm, oracle, oracleclient.StaticSigner(cfg.BandChain.SignerKey), st, queue, engine.Config{
		OracleScriptID: oracleScriptID,
		MaxRetries:     cfg.Engine.MaxRetries,
		TxTimeout:      cfg.BandChain.TxTimeout.Duration(),
		ProofTimeout:   cfg.BandChain.ProofTimeout.Duration(),
	}, m, log)

	sweep := reorg.New(evm, st, reorg.Config{
		Interval:  cfg.Engine.ReorgInterval.Duration(),
		BlockDiff: cfg.Engine.BlockDifference,
		PageSize:  100,
	}, log)

	return &Worker{
		cfg:    cfg,
		log:    log,
		evm:    evm,
		oracle: oracle,
		store:  st,
		m:      m,
		poller: pl,
		engine: eng,
		sweep:  sweep,
	}, nil
}

func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return memstore.New(), nil
	case "postgres":
		return pgstore.Open(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", vrftask.ErrConfig, cfg.Driver)
	}
}

// Run starts the poller, pipeline engine, reorg sweep, and metrics server as
// a fiber group and blocks until ctx is cancelled or one fiber fails.
func (w *Worker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fibers := []func(context.Context) error{
		w.poller.Run,
		w.engine.Run,
		w.sweep.Run,
		w.runMetricsServer,
	}

	errCh := make(chan error, len(fibers))
	var wg sync.WaitGroup
	for _, fiber := range fibers {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil && ctx.Err() == nil {
				errCh <- err
				cancel()
			}
		}(fiber)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		return err
	}
	return nil
}

func (w *Worker) runMetricsServer(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	w.metricsSrv = &http.Server{Addr: w.cfg.Metrics.ListenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- w.metricsSrv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		_ = w.metricsSrv.Close()
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Close releases the oracle gRPC channel and the store's underlying
// connections.
func (w *Worker) Close() error {
	var firstErr error
	if err := w.oracle.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
