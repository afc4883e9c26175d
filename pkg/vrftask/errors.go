// Copyright 2025 VRF Relay Worker Authors
//
// Package vrftask errors shared across the relay worker's components.

package vrftask

import "errors"

// Sentinel errors for the core pipeline. Components wrap these with
// fmt.Errorf("...: %w", ...) to add call-site context; callers classify
// failures with errors.Is against these.
var (
	// ErrDuplicateValidator is returned when the Bridge's validator-power
	// read contains the same address twice.
	ErrDuplicateValidator = errors.New("duplicate validator address in power map")

	// ErrInsufficientPower is returned by the trimmer when no subset of
	// recovered signatures reaches super-majority voting power.
	ErrInsufficientPower = errors.New("no signature subset reaches super-majority power")

	// ErrOracleRejected wraps a terminal FAILURE/EXPIRED oracle resolution.
	ErrOracleRejected = errors.New("oracle rejected the request")

	// ErrOracleTimeout is returned when evm_proof's polling ceiling elapses
	// without a terminal resolution.
	ErrOracleTimeout = errors.New("timed out waiting for oracle resolution")

	// ErrAccountNotFound is returned by RequestVRF when the signer account
	// does not exist on the oracle chain.
	ErrAccountNotFound = errors.New("oracle signer account not found")

	// ErrNotFound is returned by get_transaction when the tx is never indexed
	// within the timeout.
	ErrNotFound = errors.New("transaction not found within timeout")

	// ErrTransient marks a retryable network/timeout/rate-limit failure.
	// Components wrap it; callers use errors.Is.
	ErrTransient = errors.New("transient failure")

	// ErrOnChainRevert marks an estimate_gas failure or status==0 receipt.
	// It is not retried blindly: it first routes through the
	// reorg/idempotence probe, and only a revert the probe confirms as
	// genuine (task present, unresolved, same seed) is retried.
	ErrOnChainRevert = errors.New("on-chain revert")

	// ErrConfig marks a fatal startup configuration failure.
	ErrConfig = errors.New("configuration error")
)
