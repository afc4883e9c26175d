// Copyright 2025 VRF Relay Worker Authors
//
// Package oracleclient implements the Oracle Client component: submitting
// RequestData transactions, polling for their indexing, and polling for
// the EVM-encoded resolution proof.
package oracleclient

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vrfrelay/worker/pkg/vrftask"
)

// Config holds the Band-chain-shaped request parameters from the
// band_chain config section.
type Config struct {
	GRPCEndpoint string
	MinCount     uint64
	AskCount     uint64
	PrepareGas   uint64
	ExecuteGas   uint64
	DSFeeLimit   uint64
	GasLimit     uint64
	GasPrice     float64
}

// DefaultConfig matches
// (2/3/100000/400000/48/800000/0.0025).
func DefaultConfig(grpcEndpoint string) Config {
	return Config{
		GRPCEndpoint: grpcEndpoint,
		MinCount:     2,
		AskCount:     3,
		PrepareGas:   100000,
		ExecuteGas:   400000,
		DSFeeLimit:   48,
		GasLimit:     800000,
		GasPrice:     0.0025,
	}
}

// Signer supplies the oracle-chain sender address used to sign and pay for
// the RequestData transaction. The actual signing mechanism is part of the
// opaque oracle RPC surface; only the resulting address is
// needed here.
type Signer interface {
	Address() string
}

// StaticSigner is a Signer backed by a fixed bech32 address, sufficient
// since the oracle RPC endpoint performs the actual transaction signing.
type StaticSigner string

func (s StaticSigner) Address() string { return string(s) }

// Client is the Oracle Client component.
type Client struct {
	conn   *grpc.ClientConn
	cfg    Config
	log    zerolog.Logger
}

// New dials the oracle chain's gRPC endpoint once; the resulting channel is
// shared across every task fiber.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	conn, err := grpc.NewClient(cfg.GRPCEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: dial oracle grpc endpoint: %v", vrftask.ErrTransient, err)
	}
	return &Client{conn: conn, cfg: cfg, log: log.With().Str("component", "oracleclient").Logger()}, nil
}

// Close releases the underlying gRPC channel.
func (c *Client) Close() error {
	return c.conn.Close()
}

func jsonCall(ctx context.Context, conn *grpc.ClientConn, method string, req, resp interface{}) error {
	return conn.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(jsonCodecName))
}

// AccountExists checks whether the signer account exists on the oracle
// chain, used by RequestVRF to classify ErrAccountNotFound.
func (c *Client) AccountExists(ctx context.Context, address string) (bool, error) {
	var resp accountResponse
	if err := jsonCall(ctx, c.conn, "/cosmos.auth.v1beta1.Query/Account", accountQuery{Address: address}, &resp); err != nil {
		return false, fmt.Errorf("%w: query account %s: %v", vrftask.ErrTransient, address, err)
	}
	return resp.Exists, nil
}

// RequestVRF builds and broadcasts a RequestData message whose calldata is
// the canonical OBI-encoded {seed, time, worker_address} record, in
// synchronous broadcast mode.
func (c *Client) RequestVRF(ctx context.Context, oracleScriptID uint64, workerAddress []byte, seed []byte, taskTime uint64, signer Signer) (TxResponse, error) {
	exists, err := c.AccountExists(ctx, signer.Address())
	if err != nil {
		return TxResponse{}, err
	}
	if !exists {
		return TxResponse{}, fmt.Errorf("%w: %s", vrftask.ErrAccountNotFound, signer.Address())
	}

	calldata := RequestInput{Seed: seed, Time: taskTime, WorkerAddress: workerAddress}.Encode()
	params := requestDataParams{
		ClientID:       "vrf_worker",
		OracleScriptID: oracleScriptID,
		Calldata:       calldata,
		AskCount:       c.cfg.AskCount,
		MinCount:       c.cfg.MinCount,
		FeeLimit:       fmt.Sprintf("%dband", c.cfg.DSFeeLimit),
		PrepareGas:     c.cfg.PrepareGas,
		ExecuteGas:     c.cfg.ExecuteGas,
		Sender:         signer.Address(),
	}

	var resp TxResponse
	if err := jsonCall(ctx, c.conn, "/cosmos.tx.v1beta1.Service/BroadcastTx", params, &resp); err != nil {
		return TxResponse{}, fmt.Errorf("%w: broadcast RequestData: %v", vrftask.ErrTransient, err)
	}
	if !resp.Succeeded() {
		return TxResponse{}, fmt.Errorf("broadcast RequestData failed (code=%d): %s", resp.Code, resp.RawLog)
	}
	c.log.Info().Str("tx_hash", resp.TxHash).Uint64("oracle_script_id", oracleScriptID).Msg("submitted oracle RequestData")
	return resp, nil
}

// GetTransaction polls until the transaction is indexed or timeout elapses,
// 1s poll interval.
func (c *Client) GetTransaction(ctx context.Context, txHash string, timeout time.Duration) (TxResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		var resp TxResponse
		err := jsonCall(ctx, c.conn, "/cosmos.tx.v1beta1.Service/GetTx", txQuery{Hash: txHash}, &resp)
		if err == nil {
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return TxResponse{}, fmt.Errorf("%w: tx %s: %v", vrftask.ErrNotFound, txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// EVMProof is the central polling loop: it resolves request_id to an
// EVM-verifiable proof and the block hash committing its validator
// signatures.
//
// Reading the proof at version+1 is required because validator signatures
// for block N are carried in the commit included in block N+1; fetching at
// version alone yields an incomplete signature set.
func (c *Client) EVMProof(ctx context.Context, requestID uint64, timeout time.Duration) ([]byte, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		var proof proofResponse
		err := jsonCall(ctx, c.conn, "/oracle.v1.Query/Proof", proofQuery{RequestID: requestID}, &proof)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil, nil, fmt.Errorf("%w: request %d: %v", vrftask.ErrOracleTimeout, requestID, ctx.Err())
			case <-ticker.C:
				continue
			}
		}

		switch proof.ResolveStatus {
		case ResolveStatusOpenUnspecified, "":
			select {
			case <-ctx.Done():
				return nil, nil, fmt.Errorf("%w: request %d", vrftask.ErrOracleTimeout, requestID)
			case <-ticker.C:
				continue
			}
		case ResolveStatusSuccess:
			height := proof.Version + 1
			var heightProof proofResponse
			if err := jsonCall(ctx, c.conn, "/oracle.v1.Query/Proof", proofQuery{RequestID: requestID, Height: height}, &heightProof); err != nil {
				select {
				case <-ctx.Done():
					return nil, nil, fmt.Errorf("%w: re-fetch proof at height %d: %v", vrftask.ErrOracleTimeout, height, err)
				case <-ticker.C:
					continue
				}
			}

			var block blockResponse
			if err := jsonCall(ctx, c.conn, "/cosmos.base.tendermint.v1beta1.Service/GetBlockByHeight", blockQuery{Height: height}, &block); err != nil {
				select {
				case <-ctx.Done():
					return nil, nil, fmt.Errorf("%w: fetch block header at height %d: %v", vrftask.ErrOracleTimeout, height, err)
				case <-ticker.C:
					continue
				}
			}
			return heightProof.EVMProofBytes, block.BlockID.Hash, nil
		case ResolveStatusFailure, ResolveStatusExpired:
			return nil, nil, fmt.Errorf("%w: %s", vrftask.ErrOracleRejected, proof.ResolveStatus)
		default:
			select {
			case <-ctx.Done():
				return nil, nil, fmt.Errorf("%w: request %d", vrftask.ErrOracleTimeout, requestID)
			case <-ticker.C:
				continue
			}
		}
	}
}
