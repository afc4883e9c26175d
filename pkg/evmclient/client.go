// Copyright 2025 VRF Relay Worker Authors
//
// Package evmclient wraps the client-chain RPC surface the relay worker
// needs: taskNonce/oracleScriptID reads, bulk task reads, validator power
// reads, and relayProof submission. Everything here is a thin layer over
// go-ethereum's ethclient and the generated contract bindings in
// pkg/contracts — the ABI encode/decode itself is treated as a black-box
// codec.
package evmclient

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/vrfrelay/worker/pkg/contracts"
	"github.com/vrfrelay/worker/pkg/vrftask"
)

// GasStrategy selects how RelayProof prices its transaction: EIP-1559
// tip/fee-cap pricing, or legacy single gas price.
type GasStrategy struct {
	EIP1559 bool
}

// Client is the EVM Client component: the relay worker's read/write surface
// onto the client chain.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	signer  *ecdsa.PrivateKey
	from    common.Address

	provider     *contracts.VRFProvider
	providerAddr common.Address
	lens         *contracts.VRFLens
	bridge       *contracts.Bridge

	gas GasStrategy
	log zerolog.Logger
}

// Addresses bundles the three contract addresses the worker reads/writes.
type Addresses struct {
	VRFProvider common.Address
	VRFLens     common.Address
	Bridge      common.Address
}

// New dials the client-chain RPC endpoint and binds the three contracts.
func New(ctx context.Context, rpcEndpoint string, chainID int64, privateKeyHex string, addrs Addresses, gas GasStrategy, log zerolog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dial evm rpc: %v", vrftask.ErrTransient, err)
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: parse evm private key: %v", vrftask.ErrConfig, err)
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: derive worker address", vrftask.ErrConfig)
	}

	provider, err := contracts.NewVRFProvider(addrs.VRFProvider, eth)
	if err != nil {
		return nil, fmt.Errorf("bind VRFProvider: %w", err)
	}
	lens, err := contracts.NewVRFLens(addrs.VRFLens, eth)
	if err != nil {
		return nil, fmt.Errorf("bind VRFLens: %w", err)
	}
	bridge, err := contracts.NewBridge(addrs.Bridge, eth)
	if err != nil {
		return nil, fmt.Errorf("bind Bridge: %w", err)
	}

	return &Client{
		eth:          eth,
		chainID:      big.NewInt(chainID),
		signer:       key,
		from:         crypto.PubkeyToAddress(*pub),
		provider:     provider,
		providerAddr: addrs.VRFProvider,
		lens:         lens,
		bridge:       bridge,
		gas:          gas,
		log:          log.With().Str("component", "evmclient").Logger(),
	}, nil
}

// WorkerAddress returns the worker's client-chain address, submitted with
// every oracle request.
func (c *Client) WorkerAddress() common.Address {
	return c.from
}

// CurrentTaskNonce reads VRFProvider.taskNonce(), the lowest unused nonce.
func (c *Client) CurrentTaskNonce(ctx context.Context) (uint64, error) {
	n, err := c.provider.TaskNonce(&bind.CallOpts{Context: ctx})
	if err != nil {
		return 0, fmt.Errorf("%w: taskNonce: %v", vrftask.ErrTransient, err)
	}
	return n, nil
}

// OracleScriptID reads VRFProvider.oracleScriptID().
func (c *Client) OracleScriptID(ctx context.Context) (uint64, error) {
	id, err := c.provider.OracleScriptID(&bind.CallOpts{Context: ctx})
	if err != nil {
		return 0, fmt.Errorf("%w: oracleScriptID: %v", vrftask.ErrTransient, err)
	}
	return id, nil
}

// Tasks reads VRFLens.getTasksBulk(nonces), returning tasks in request order.
func (c *Client) Tasks(ctx context.Context, nonces []uint64) ([]vrftask.Task, error) {
	if len(nonces) == 0 {
		return nil, nil
	}
	raw, err := c.lens.GetTasksBulk(&bind.CallOpts{Context: ctx}, nonces)
	if err != nil {
		return nil, fmt.Errorf("%w: getTasksBulk: %v", vrftask.ErrTransient, err)
	}
	if len(raw) != len(nonces) {
		return nil, fmt.Errorf("%w: getTasksBulk returned %d tasks for %d nonces", vrftask.ErrTransient, len(raw), len(nonces))
	}
	out := make([]vrftask.Task, len(raw))
	for i, t := range raw {
		out[i] = vrftask.Task{
			Nonce:      nonces[i],
			IsResolved: t.IsResolved,
			Time:       t.Time,
			Caller:     t.Caller,
			TaskFee:    t.TaskFee,
			Seed:       t.Seed,
			Result:     t.Result,
			ClientSeed: t.ClientSeed,
		}
	}
	return out, nil
}

// EncodedBandChainID reads Bridge.encodedChainID().
func (c *Client) EncodedBandChainID(ctx context.Context) ([]byte, error) {
	b, err := c.bridge.EncodedChainID(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("%w: encodedChainID: %v", vrftask.ErrTransient, err)
	}
	return b, nil
}

// ValidatorPowers reads Bridge.getAllValidatorPowers(), failing with
// ErrDuplicateValidator if any address repeats.
func (c *Client) ValidatorPowers(ctx context.Context) (vrftask.ValidatorPowers, error) {
	raw, err := c.bridge.GetAllValidatorPowers(&bind.CallOpts{Context: ctx})
	if err != nil {
		return vrftask.ValidatorPowers{}, fmt.Errorf("%w: getAllValidatorPowers: %v", vrftask.ErrTransient, err)
	}
	entries := make([]vrftask.ValidatorPower, len(raw))
	for i, v := range raw {
		entries[i] = vrftask.ValidatorPower{Addr: v.Addr, Power: v.Power}
	}
	powers, err := vrftask.NewValidatorPowers(entries)
	if err != nil {
		return vrftask.ValidatorPowers{}, err
	}
	return powers, nil
}

// RelayProof builds, estimates gas for, signs, and broadcasts a
// VRFProvider.relayProof(proof, nonce) transaction. Gas estimation doubles
// as the fork/idempotence probe: a revert here is not retried blindly, it
// is classified ErrOnChainRevert and handed back to the caller to resolve
// via TaskByNonce.
func (c *Client) RelayProof(ctx context.Context, proof []byte, nonce uint64) (*types.Transaction, error) {
	parsed, err := contracts.VRFProviderMetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("parse VRFProvider abi: %w", err)
	}
	data, err := parsed.Pack("relayProof", proof, nonce)
	if err != nil {
		return nil, fmt.Errorf("pack relayProof call: %w", err)
	}

	callMsg := ethereum.CallMsg{From: c.from, To: &c.providerAddr, Data: data}
	if _, err := c.eth.EstimateGas(ctx, callMsg); err != nil {
		return nil, fmt.Errorf("%w: %v", vrftask.ErrOnChainRevert, err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.signer, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	if !c.gas.EIP1559 {
		gasPrice, err := c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: suggest gas price: %v", vrftask.ErrTransient, err)
		}
		opts.GasPrice = gasPrice
	} else {
		tip, err := c.eth.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: suggest gas tip cap: %v", vrftask.ErrTransient, err)
		}
		opts.GasTipCap = tip
	}

	tx, err := c.provider.VRFProviderTransactor.RelayProof(opts, proof, nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: broadcast relayProof: %v", vrftask.ErrTransient, err)
	}
	c.log.Info().Uint64("nonce", nonce).Str("tx", tx.Hash().Hex()).Msg("submitted relayProof")
	return tx, nil
}

// ReceiptStatus blocks until tx is mined and returns its status (0 or 1)
// and the block height it was mined at. Polling and cancellation are
// delegated to bind.WaitMined.
func (c *Client) ReceiptStatus(ctx context.Context, tx *types.Transaction) (status uint64, blockHeight uint64, err error) {
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: waiting for receipt %s: %v", vrftask.ErrTransient, tx.Hash().Hex(), err)
	}
	var height uint64
	if receipt.BlockNumber != nil {
		height = receipt.BlockNumber.Uint64()
	}
	return receipt.Status, height, nil
}

// CurrentBlockHeight reads the client chain's current block number, used by
// the fork/reorg sweep as the confirmation-depth reference point.
func (c *Client) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: headerByNumber: %v", vrftask.ErrTransient, err)
	}
	return header.Number.Uint64(), nil
}

// TaskByNonce is a convenience single-task read used by the idempotence/reorg
// probe.
func (c *Client) TaskByNonce(ctx context.Context, nonce uint64) (vrftask.Task, bool, error) {
	tasks, err := c.Tasks(ctx, []uint64{nonce})
	if err != nil {
		return vrftask.Task{}, false, err
	}
	if len(tasks) == 0 {
		return vrftask.Task{}, false, nil
	}
	return tasks[0], true, nil
}
