// Copyright 2025 VRF Relay Worker Authors

package trimmer

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vrfrelay/worker/pkg/vrftask"
)

// recoveredSignature pairs a decoded TMSignature with the address recovered
// from it. Pairing happens within the same tuple index, never by
// zip-against-an-unfiltered-list, a known class of recovery bug.
type recoveredSignature struct {
	sig  TMSignature
	addr common.Address
}

// Trim decodes a proof bundle, recovers each signer, selects the
// minimum-cardinality super-majority subset by power, re-sorts by address,
// and re-encodes. Pure function, no I/O.
func Trim(evmProof []byte, blockHash common.Hash, encodedChainID []byte, powers vrftask.ValidatorPowers) ([]byte, error) {
	bundle, err := DecodeProofBundle(evmProof)
	if err != nil {
		return nil, err
	}
	relayData, err := DecodeRelayData(bundle.RelayData)
	if err != nil {
		return nil, err
	}

	recovered := recoverSignatures(relayData.Signatures, relayData.CEVP, blockHash, encodedChainID)

	kept := make([]recoveredSignature, 0, len(recovered))
	for _, rs := range recovered {
		if _, ok := powers.ByAddr[rs.addr]; ok {
			kept = append(kept, rs)
		}
	}

	selected, err := selectSuperMajority(kept, powers)
	if err != nil {
		return nil, err
	}

	sort.Slice(selected, func(i, j int) bool {
		return addressLess(selected[i].addr, selected[j].addr)
	})

	trimmedSignatures := make([]TMSignature, len(selected))
	for i, rs := range selected {
		trimmedSignatures[i] = rs.sig
	}

	trimmedRelay := RelayData{
		MultiStore:  relayData.MultiStore,
		MerkleParts: relayData.MerkleParts,
		CEVP:        relayData.CEVP,
		Signatures:  trimmedSignatures,
	}
	trimmedRelayEncoded, err := EncodeRelayData(trimmedRelay)
	if err != nil {
		return nil, fmt.Errorf("re-encode relay data: %w", err)
	}

	return EncodeProofBundle(ProofBundle{RelayData: trimmedRelayEncoded, VerifyData: bundle.VerifyData})
}

// addressLess orders two addresses as big-endian integers ascending.
func addressLess(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}

// recoverSignatures reconstructs each validator's signed vote blob and
// recovers its signer address. A recovery failure for an individual
// signature is non-fatal — it's simply dropped.
func recoverSignatures(sigs []TMSignature, cevp CommonEncodedVotePart, blockHash common.Hash, encodedChainID []byte) []recoveredSignature {
	out := make([]recoveredSignature, 0, len(sigs))
	for _, sig := range sigs {
		digest := voteDigest(cevp, blockHash, sig.EncodedTimestamp, encodedChainID)
		addr, ok := recoverAddress(digest, sig)
		if !ok {
			continue
		}
		out = append(out, recoveredSignature{sig: sig, addr: addr})
	}
	return out
}

// voteDigest reconstructs msg = prefix ++ block_hash ++ suffix ++
// [0x2A, len(encoded_timestamp)] ++ encoded_timestamp ++ encoded_chain_id
// and hashes it as sha256([len(msg)] ++ msg).
func voteDigest(cevp CommonEncodedVotePart, blockHash common.Hash, encodedTimestamp, encodedChainID []byte) [32]byte {
	var msg bytes.Buffer
	msg.Write(cevp.Prefix)
	msg.Write(blockHash.Bytes())
	msg.Write(cevp.Suffix)
	msg.WriteByte(0x2A)
	msg.WriteByte(byte(len(encodedTimestamp)))
	msg.Write(encodedTimestamp)
	msg.Write(encodedChainID)

	var framed bytes.Buffer
	framed.WriteByte(byte(msg.Len()))
	framed.Write(msg.Bytes())

	return sha256.Sum256(framed.Bytes())
}

// recoverAddress recovers the secp256k1 signer address for one (v,r,s) over
// digest. Returns ok=false on any malformed or non-recoverable signature.
func recoverAddress(digest [32]byte, sig TMSignature) (common.Address, bool) {
	v := sig.V
	if v >= 27 {
		v -= 27
	}
	if v != 0 && v != 1 {
		return common.Address{}, false
	}

	raw := make([]byte, 65)
	copy(raw[0:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = v

	pub, err := crypto.SigToPub(digest[:], raw)
	if err != nil {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(*pub), true
}

// selectSuperMajority sorts kept signatures by power descending and
// accumulates until 3*acc > 2*total, the minimum-cardinality subset
// reaching super-majority.
func selectSuperMajority(kept []recoveredSignature, powers vrftask.ValidatorPowers) ([]recoveredSignature, error) {
	sort.SliceStable(kept, func(i, j int) bool {
		return powers.ByAddr[kept[i].addr].Cmp(powers.ByAddr[kept[j].addr]) > 0
	})

	total := powers.Total
	acc := new(big.Int)
	threshold := new(big.Int).Mul(total, big.NewInt(2)) // 3*acc > 2*total
	for i, rs := range kept {
		acc.Add(acc, powers.ByAddr[rs.addr])
		if new(big.Int).Mul(acc, big.NewInt(3)).Cmp(threshold) > 0 {
			return kept[:i+1], nil
		}
	}
	return nil, vrftask.ErrInsufficientPower
}
