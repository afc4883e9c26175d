// Copyright 2025 VRF Relay Worker Authors
//
// Package trimmer implements the pure proof-minimization algorithm: given
// an oracle EVM proof and the client chain's validator power view, it
// recovers each signer, selects the minimum-cardinality super-majority
// subset, and re-encodes a trimmed proof the Bridge contract can still
// verify.
//
// The wire layout below (MultiStore / BlockHeaderMerkleParts /
// CommonEncodedVotePart / TMSignature) mirrors the Cosmos-SDK-light-client
// relay proof shape the Bridge contract expects; this package treats the
// ABI itself as a black-box codec and only ever round-trips it, never
// interprets the hashes.
package trimmer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ProofBundle is the outer encoded pair the oracle EVM proof carries:
// relayData decodes further into the structure below; verifyData is
// carried through byte-identical and never decoded by the trimmer.
type ProofBundle struct {
	RelayData  []byte
	VerifyData []byte
}

// MultiStore is the eight IAVL sub-store root hashes proving the oracle
// module's state root is included in the app hash. Opaque to the trimmer.
type MultiStore struct {
	AccToGovStoreMerkleHash          [32]byte
	AuthToFeegrantStoreMerkleHash    [32]byte
	DistrToIcahostStoreMerkleHash    [32]byte
	EvidenceToIcahostStoreMerkleHash [32]byte
	MintStoreMerkleHash              [32]byte
	OracleIAVLStateHash              [32]byte
	ParamsToSlashStoreMerkleHash     [32]byte
	TransferToUpgradeStoreMerkleHash [32]byte
}

// BlockHeaderMerkleParts holds the block-header fields needed to recompute
// the block hash from the app hash above plus these parts. Opaque to the
// trimmer.
type BlockHeaderMerkleParts struct {
	VersionAndChainIDHash          [32]byte
	Height                         uint64
	TimeSecond                     uint64
	TimeNanoSecondFraction         uint32
	LastBlockIDAndOther            [32]byte
	NextValidatorHashAndConsensus  [32]byte
	LastResultsHash                [32]byte
	EvidenceAndProposerHash        [32]byte
}

// CommonEncodedVotePart is the prefix/suffix every validator's vote shares;
// interposing the block hash between them reconstructs the canonical vote
// blob each validator actually signed.
type CommonEncodedVotePart struct {
	Prefix []byte
	Suffix []byte
}

// TMSignature is one validator's signature over the vote blob, plus the
// per-validator encoded timestamp that makes each signed message unique.
type TMSignature struct {
	R                [32]byte
	S                [32]byte
	V                uint8
	EncodedTimestamp []byte
}

// RelayData is relay_data decoded.
type RelayData struct {
	MultiStore  MultiStore
	MerkleParts BlockHeaderMerkleParts
	CEVP        CommonEncodedVotePart
	Signatures  []TMSignature
}

func mustFunctionArgs(name, inputsJSON string) abi.Arguments {
	fragment := fmt.Sprintf(`[{"type":"function","name":%q,"stateMutability":"view","outputs":[],"inputs":%s}]`, name, inputsJSON)
	parsed, err := abi.JSON(strings.NewReader(fragment))
	if err != nil {
		panic(fmt.Sprintf("trimmer: invalid built-in abi fragment %s: %v", name, err))
	}
	return parsed.Methods[name].Inputs
}

var (
	proofBundleArgs = mustFunctionArgs("proofBundle", `[
		{"name":"relayData","type":"bytes"},
		{"name":"verifyData","type":"bytes"}
	]`)

	relayDataArgs = mustFunctionArgs("relayData", `[
		{"name":"multiStore","type":"tuple","components":[
			{"name":"accToGovStoreMerkleHash","type":"bytes32"},
			{"name":"authToFeegrantStoreMerkleHash","type":"bytes32"},
			{"name":"distrToIcahostStoreMerkleHash","type":"bytes32"},
			{"name":"evidenceToIcahostStoreMerkleHash","type":"bytes32"},
			{"name":"mintStoreMerkleHash","type":"bytes32"},
			{"name":"oracleIAVLStateHash","type":"bytes32"},
			{"name":"paramsToSlashStoreMerkleHash","type":"bytes32"},
			{"name":"transferToUpgradeStoreMerkleHash","type":"bytes32"}
		]},
		{"name":"merkleParts","type":"tuple","components":[
			{"name":"versionAndChainIdHash","type":"bytes32"},
			{"name":"height","type":"uint64"},
			{"name":"timeSecond","type":"uint64"},
			{"name":"timeNanoSecondFraction","type":"uint32"},
			{"name":"lastBlockIdAndOther","type":"bytes32"},
			{"name":"nextValidatorHashAndConsensus","type":"bytes32"},
			{"name":"lastResultsHash","type":"bytes32"},
			{"name":"evidenceAndProposerHash","type":"bytes32"}
		]},
		{"name":"cevp","type":"tuple","components":[
			{"name":"prefix","type":"bytes"},
			{"name":"suffix","type":"bytes"}
		]},
		{"name":"signatures","type":"tuple[]","components":[
			{"name":"r","type":"bytes32"},
			{"name":"s","type":"bytes32"},
			{"name":"v","type":"uint8"},
			{"name":"encodedTimestamp","type":"bytes"}
		]}
	]`)
)

// DecodeProofBundle decodes the outer (relay_data, verify_data) pair.
func DecodeProofBundle(encoded []byte) (ProofBundle, error) {
	vals, err := proofBundleArgs.Unpack(encoded)
	if err != nil {
		return ProofBundle{}, fmt.Errorf("decode proof bundle: %w", err)
	}
	return ProofBundle{
		RelayData:  *abi.ConvertType(vals[0], new([]byte)).(*[]byte),
		VerifyData: *abi.ConvertType(vals[1], new([]byte)).(*[]byte),
	}, nil
}

// EncodeProofBundle re-encodes the outer pair.
func EncodeProofBundle(b ProofBundle) ([]byte, error) {
	return proofBundleArgs.Pack(b.RelayData, b.VerifyData)
}

// DecodeRelayData decodes relay_data into its four components.
func DecodeRelayData(encoded []byte) (RelayData, error) {
	vals, err := relayDataArgs.Unpack(encoded)
	if err != nil {
		return RelayData{}, fmt.Errorf("decode relay data: %w", err)
	}
	var rd RelayData
	rd.MultiStore = *abi.ConvertType(vals[0], new(MultiStore)).(*MultiStore)
	rd.MerkleParts = *abi.ConvertType(vals[1], new(BlockHeaderMerkleParts)).(*BlockHeaderMerkleParts)
	rd.CEVP = *abi.ConvertType(vals[2], new(CommonEncodedVotePart)).(*CommonEncodedVotePart)
	rd.Signatures = *abi.ConvertType(vals[3], new([]TMSignature)).(*[]TMSignature)
	return rd, nil
}

// EncodeRelayData re-encodes relay_data with a (possibly trimmed) signature list.
func EncodeRelayData(rd RelayData) ([]byte, error) {
	return relayDataArgs.Pack(rd.MultiStore, rd.MerkleParts, rd.CEVP, rd.Signatures)
}
