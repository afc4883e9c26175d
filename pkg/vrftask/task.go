// Copyright 2025 VRF Relay Worker Authors
//
// Package vrftask defines the core entity the relay worker moves between
// the oracle chain and the client chain: a VRF request task identified by
// its client-chain nonce.
package vrftask

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Task mirrors the on-chain VRFLens.getTasksBulk tuple for a single nonce.
type Task struct {
	Nonce      uint64
	IsResolved bool
	Time       uint64
	Caller     common.Address
	TaskFee    *big.Int
	Seed       [32]byte
	Result     [32]byte
	ClientSeed []byte
}

// SameSeed reports whether two snapshots of the same nonce carry the same
// seed commitment. A differing seed for an unchanged nonce is the signal
// the pipeline engine uses to detect a client-chain reorg.
func (t Task) SameSeed(other Task) bool {
	return t.Seed == other.Seed
}

// Item is a task-queue entry: a task snapshot plus how many times the
// engine has attempted it. Produced by the poller with RetryCount 0 and
// re-enqueued by the engine with RetryCount+1 on a recoverable failure.
type Item struct {
	Nonce      uint64
	Task       Task
	RetryCount int
}

// NextAttempt returns a copy of the item with the retry counter incremented,
// used when the engine re-enqueues after a transient failure.
func (i Item) NextAttempt() Item {
	return Item{Nonce: i.Nonce, Task: i.Task, RetryCount: i.RetryCount + 1}
}

// ValidatorPower is one entry of the Bridge contract's validator power set.
type ValidatorPower struct {
	Addr  common.Address
	Power *big.Int
}

// ValidatorPowers is the full validator-power map read from the Bridge
// contract, plus its precomputed total. Treated as immutable for the
// duration of a single trim operation.
type ValidatorPowers struct {
	ByAddr map[common.Address]*big.Int
	Total  *big.Int
}

// NewValidatorPowers builds a ValidatorPowers map, failing if any address
// repeats — duplicates are a hard invariant violation in the Bridge read.
func NewValidatorPowers(entries []ValidatorPower) (ValidatorPowers, error) {
	byAddr := make(map[common.Address]*big.Int, len(entries))
	total := new(big.Int)
	for _, e := range entries {
		if _, dup := byAddr[e.Addr]; dup {
			return ValidatorPowers{}, ErrDuplicateValidator
		}
		byAddr[e.Addr] = e.Power
		total.Add(total, e.Power)
	}
	return ValidatorPowers{ByAddr: byAddr, Total: total}, nil
}
