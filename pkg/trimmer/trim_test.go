// Copyright 2025 VRF Relay Worker Authors

package trimmer

import (
	"bytes"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vrfrelay/worker/pkg/vrftask"
)

type testValidator struct {
	key   *ecdsa.PrivateKey
	addr  common.Address
	power int64
}

func newTestValidators(t *testing.T, n int) []testValidator {
	t.Helper()
	out := make([]testValidator, n)
	for i := 0; i < n; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("generate key %d: %v", i, err)
		}
		out[i] = testValidator{
			key:   key,
			addr:  crypto.PubkeyToAddress(key.PublicKey),
			power: int64(100 + i),
		}
	}
	return out
}

func buildSignedBundle(t *testing.T, vals []testValidator, blockHash common.Hash, encodedChainID []byte) ([]byte, RelayData) {
	t.Helper()

	cevp := CommonEncodedVotePart{Prefix: []byte("prefix-bytes"), Suffix: []byte("suffix-bytes")}
	timestamp := []byte{0x01, 0x02, 0x03, 0x04}
	digest := voteDigest(cevp, blockHash, timestamp, encodedChainID)

	sigs := make([]TMSignature, len(vals))
	for i, v := range vals {
		raw, err := crypto.Sign(digest[:], v.key)
		if err != nil {
			t.Fatalf("sign %d: %v", i, err)
		}
		var r, s [32]byte
		copy(r[:], raw[0:32])
		copy(s[:], raw[32:64])
		sigs[i] = TMSignature{R: r, S: s, V: raw[64], EncodedTimestamp: timestamp}
	}

	relayData := RelayData{
		MultiStore:  MultiStore{OracleIAVLStateHash: [32]byte{0xAA}},
		MerkleParts: BlockHeaderMerkleParts{Height: 100, TimeSecond: 1234},
		CEVP:        cevp,
		Signatures:  sigs,
	}
	relayEncoded, err := EncodeRelayData(relayData)
	if err != nil {
		t.Fatalf("encode relay data: %v", err)
	}
	bundleEncoded, err := EncodeProofBundle(ProofBundle{RelayData: relayEncoded, VerifyData: []byte("verify-data-opaque")})
	if err != nil {
		t.Fatalf("encode proof bundle: %v", err)
	}
	return bundleEncoded, relayData
}

func powersOf(vals []testValidator) vrftask.ValidatorPowers {
	entries := make([]vrftask.ValidatorPower, len(vals))
	for i, v := range vals {
		entries[i] = vrftask.ValidatorPower{Addr: v.addr, Power: big.NewInt(v.power)}
	}
	powers, _ := vrftask.NewValidatorPowers(entries)
	return powers
}

func TestTrim_PreservesUntouchedFields(t *testing.T) {
	vals := newTestValidators(t, 16)
	blockHash := common.HexToHash("0xdeadbeef")
	chainID := []byte("band-laozi-mainnet")
	bundle, original := buildSignedBundle(t, vals, blockHash, chainID)
	powers := powersOf(vals)

	trimmed, err := Trim(bundle, blockHash, chainID, powers)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}

	gotBundle, err := DecodeProofBundle(trimmed)
	if err != nil {
		t.Fatalf("decode trimmed bundle: %v", err)
	}
	if !bytes.Equal(gotBundle.VerifyData, []byte("verify-data-opaque")) {
		t.Errorf("verify_data mutated by trim")
	}

	gotRelay, err := DecodeRelayData(gotBundle.RelayData)
	if err != nil {
		t.Fatalf("decode trimmed relay data: %v", err)
	}
	if gotRelay.MultiStore != original.MultiStore {
		t.Errorf("multi_store mutated by trim")
	}
	if gotRelay.MerkleParts != original.MerkleParts {
		t.Errorf("merkle_parts mutated by trim")
	}
	if !bytes.Equal(gotRelay.CEVP.Prefix, original.CEVP.Prefix) || !bytes.Equal(gotRelay.CEVP.Suffix, original.CEVP.Suffix) {
		t.Errorf("cevp mutated by trim")
	}
}

func TestTrim_SuperMajorityAndOrdering(t *testing.T) {
	vals := newTestValidators(t, 16)
	blockHash := common.HexToHash("0xcafebabe")
	chainID := []byte("band-laozi-mainnet")
	bundle, _ := buildSignedBundle(t, vals, blockHash, chainID)
	powers := powersOf(vals)

	trimmed, err := Trim(bundle, blockHash, chainID, powers)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	gotBundle, _ := DecodeProofBundle(trimmed)
	gotRelay, _ := DecodeRelayData(gotBundle.RelayData)

	if len(gotRelay.Signatures) == 0 || len(gotRelay.Signatures) >= len(vals) {
		t.Fatalf("expected a proper subset, got %d of %d", len(gotRelay.Signatures), len(vals))
	}

	// Recompute accumulated power for the kept set and check super-majority,
	// and that dropping one kept signature (the last in address order) breaks it.
	addrToPower := map[common.Address]*big.Int{}
	for _, v := range vals {
		addrToPower[v.addr] = big.NewInt(v.power)
	}
	acc := new(big.Int)
	var prevAddrInt *big.Int
	for i, sig := range gotRelay.Signatures {
		addr, ok := recoverAddress(voteDigest(gotRelay.CEVP, blockHash, sig.EncodedTimestamp, chainID), sig)
		if !ok {
			t.Fatalf("failed to recover signature %d", i)
		}
		acc.Add(acc, addrToPower[addr])

		addrInt := new(big.Int).SetBytes(addr.Bytes())
		if prevAddrInt != nil && prevAddrInt.Cmp(addrInt) >= 0 {
			t.Errorf("signatures not sorted by ascending address at index %d", i)
		}
		prevAddrInt = addrInt
	}
	total := powers.Total
	threshold := new(big.Int).Mul(total, big.NewInt(2))
	if new(big.Int).Mul(acc, big.NewInt(3)).Cmp(threshold) <= 0 {
		t.Fatalf("kept signatures do not reach super-majority: acc=%s total=%s", acc, total)
	}

	accMinusLast := new(big.Int).Sub(acc, addrToPower[mustRecover(t, gotRelay.Signatures[len(gotRelay.Signatures)-1], gotRelay.CEVP, blockHash, chainID)])
	if new(big.Int).Mul(accMinusLast, big.NewInt(3)).Cmp(threshold) > 0 {
		t.Errorf("trimmed set is not minimal: still super-majority after dropping one signature")
	}
}

func mustRecover(t *testing.T, sig TMSignature, cevp CommonEncodedVotePart, blockHash common.Hash, chainID []byte) common.Address {
	t.Helper()
	addr, ok := recoverAddress(voteDigest(cevp, blockHash, sig.EncodedTimestamp, chainID), sig)
	if !ok {
		t.Fatalf("could not recover signature")
	}
	return addr
}

func TestTrim_InsufficientPower(t *testing.T) {
	vals := newTestValidators(t, 16)
	blockHash := common.HexToHash("0x1111")
	chainID := []byte("band-laozi-mainnet")
	bundle, _ := buildSignedBundle(t, vals, blockHash, chainID)

	// Bridge knows 3 of the 16 signers plus 5 validators that did not sign:
	// signing power 303 of a 813 total — well under super-majority.
	powers := powersOf(append(vals[:3:3], newTestValidators(t, 5)...))

	if _, err := Trim(bundle, blockHash, chainID, powers); err == nil {
		t.Fatalf("expected ErrInsufficientPower, got nil")
	} else if !isInsufficientPower(err) {
		t.Fatalf("expected ErrInsufficientPower, got %v", err)
	}
}

func isInsufficientPower(err error) bool {
	return err == vrftask.ErrInsufficientPower
}

func TestTrim_DropsUnrecoverableSignature(t *testing.T) {
	vals := newTestValidators(t, 4)
	blockHash := common.HexToHash("0x2222")
	chainID := []byte("band-laozi-mainnet")
	bundle, relayData := buildSignedBundle(t, vals, blockHash, chainID)

	// Corrupt the highest-power signer's V byte beyond the valid {0,1,27,28}
	// set, so selection would pick it first if it were not dropped.
	relayData.Signatures[3].V = 99
	corruptedRelay, err := EncodeRelayData(relayData)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	outer, _ := DecodeProofBundle(bundle)
	outer.RelayData = corruptedRelay
	corruptedBundle, err := EncodeProofBundle(outer)
	if err != nil {
		t.Fatalf("re-encode bundle: %v", err)
	}

	powers := powersOf(vals)
	trimmed, err := Trim(corruptedBundle, blockHash, chainID, powers)
	if err != nil {
		t.Fatalf("trim with one unrecoverable signature should still succeed: %v", err)
	}
	gotBundle, _ := DecodeProofBundle(trimmed)
	gotRelay, _ := DecodeRelayData(gotBundle.RelayData)
	if len(gotRelay.Signatures) >= len(vals) {
		t.Fatalf("corrupted signature should have been dropped before selection")
	}
	for i, sig := range gotRelay.Signatures {
		if sig.V == 99 {
			t.Fatalf("corrupted signature kept at index %d", i)
		}
	}
}
