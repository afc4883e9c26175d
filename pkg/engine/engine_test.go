// Copyright 2025 VRF Relay Worker Authors

package engine

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vrfrelay/worker/pkg/metrics"
	"github.com/vrfrelay/worker/pkg/oracleclient"
	"github.com/vrfrelay/worker/pkg/store/memstore"
	"github.com/vrfrelay/worker/pkg/trimmer"
	"github.com/vrfrelay/worker/pkg/vrftask"
)

func newTestRegisterer() *prometheus.Registry {
	return prometheus.NewRegistry()
}

type fakeEVM struct {
	workerAddr    common.Address
	encodedChain  []byte
	powers        vrftask.ValidatorPowers
	relayErr      error
	receiptStat   uint64
	receiptHeight uint64
	blockHeight   uint64
	task          vrftask.Task
	taskPresent   bool
}

func (f *fakeEVM) WorkerAddress() common.Address { return f.workerAddr }
func (f *fakeEVM) EncodedBandChainID(ctx context.Context) ([]byte, error) {
	return f.encodedChain, nil
}
func (f *fakeEVM) ValidatorPowers(ctx context.Context) (vrftask.ValidatorPowers, error) {
	return f.powers, nil
}
func (f *fakeEVM) RelayProof(ctx context.Context, proof []byte, nonce uint64) (*types.Transaction, error) {
	if f.relayErr != nil {
		return nil, f.relayErr
	}
	return types.NewTransaction(0, f.workerAddr, big.NewInt(0), 0, big.NewInt(0), nil), nil
}
func (f *fakeEVM) ReceiptStatus(ctx context.Context, tx *types.Transaction) (uint64, uint64, error) {
	return f.receiptStat, f.receiptHeight, nil
}
func (f *fakeEVM) TaskByNonce(ctx context.Context, nonce uint64) (vrftask.Task, bool, error) {
	return f.task, f.taskPresent, nil
}
func (f *fakeEVM) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	return f.blockHeight, nil
}

type fakeOracle struct {
	txResp    oracleclient.TxResponse
	indexed   oracleclient.TxResponse
	proof     []byte
	blockHash []byte
	proofErr  error
}

func (f *fakeOracle) RequestVRF(ctx context.Context, oracleScriptID uint64, workerAddress, seed []byte, taskTime uint64, signer oracleclient.Signer) (oracleclient.TxResponse, error) {
	return f.txResp, nil
}
func (f *fakeOracle) GetTransaction(ctx context.Context, txHash string, timeout time.Duration) (oracleclient.TxResponse, error) {
	return f.indexed, nil
}
func (f *fakeOracle) EVMProof(ctx context.Context, requestID uint64, timeout time.Duration) ([]byte, []byte, error) {
	if f.proofErr != nil {
		return nil, nil, f.proofErr
	}
	return f.proof, f.blockHash, nil
}

type testValidator struct {
	key   *ecdsa.PrivateKey
	addr  common.Address
	power int64
}

func voteDigest(prefix, suffix []byte, blockHash common.Hash, encodedTimestamp, encodedChainID []byte) [32]byte {
	var msg bytes.Buffer
	msg.Write(prefix)
	msg.Write(blockHash.Bytes())
	msg.Write(suffix)
	msg.WriteByte(0x2A)
	msg.WriteByte(byte(len(encodedTimestamp)))
	msg.Write(encodedTimestamp)
	msg.Write(encodedChainID)

	var framed bytes.Buffer
	framed.WriteByte(byte(msg.Len()))
	framed.Write(msg.Bytes())
	return sha256.Sum256(framed.Bytes())
}

func buildProof(t *testing.T, n int, blockHash common.Hash, chainID []byte) ([]byte, []testValidator) {
	t.Helper()
	vals := make([]testValidator, n)
	for i := 0; i < n; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		vals[i] = testValidator{key: key, addr: crypto.PubkeyToAddress(key.PublicKey), power: int64(100 + i)}
	}

	prefix := []byte("prefix-bytes")
	suffix := []byte("suffix-bytes")
	timestamp := []byte{0x01, 0x02, 0x03, 0x04}
	digest := voteDigest(prefix, suffix, blockHash, timestamp, chainID)

	sigs := make([]trimmer.TMSignature, n)
	for i, v := range vals {
		raw, err := crypto.Sign(digest[:], v.key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		var r, s [32]byte
		copy(r[:], raw[0:32])
		copy(s[:], raw[32:64])
		sigs[i] = trimmer.TMSignature{R: r, S: s, V: raw[64], EncodedTimestamp: timestamp}
	}

	relay := trimmer.RelayData{
		MultiStore:  trimmer.MultiStore{OracleIAVLStateHash: [32]byte{0xAA}},
		MerkleParts: trimmer.BlockHeaderMerkleParts{Height: 100},
		CEVP:        trimmer.CommonEncodedVotePart{Prefix: prefix, Suffix: suffix},
		Signatures:  sigs,
	}
	relayEncoded, err := trimmer.EncodeRelayData(relay)
	if err != nil {
		t.Fatalf("encode relay data: %v", err)
	}
	bundle, err := trimmer.EncodeProofBundle(trimmer.ProofBundle{RelayData: relayEncoded, VerifyData: []byte("verify")})
	if err != nil {
		t.Fatalf("encode proof bundle: %v", err)
	}
	return bundle, vals
}

func powersOf(vals []testValidator) vrftask.ValidatorPowers {
	entries := make([]vrftask.ValidatorPower, len(vals))
	for i, v := range vals {
		entries[i] = vrftask.ValidatorPower{Addr: v.addr, Power: big.NewInt(v.power)}
	}
	powers, _ := vrftask.NewValidatorPowers(entries)
	return powers
}

func TestAttempt_HappyPath(t *testing.T) {
	blockHash := common.HexToHash("0xbeef")
	chainID := []byte("band-laozi-mainnet")
	proof, vals := buildProof(t, 8, blockHash, chainID)

	evm := &fakeEVM{
		encodedChain: chainID,
		powers:       powersOf(vals),
		receiptStat:  1,
	}
	oracle := &fakeOracle{
		txResp:    oracleclient.TxResponse{TxHash: "tx1", Code: 0},
		indexed:   oracleclient.TxResponse{RequestID: 42},
		proof:     proof,
		blockHash: blockHash.Bytes(),
	}

	queue := make(chan vrftask.Item, 10)
	m := metrics.New(newTestRegisterer())
	e := New(evm, oracle, oracleclient.StaticSigner("band1signer"), nil, queue, Config{MaxRetries: 3, TxTimeout: time.Second, ProofTimeout: time.Second}, m, zerolog.Nop())

	item := vrftask.Item{Nonce: 1, Task: vrftask.Task{Nonce: 1, Seed: [32]byte{0x01}, Time: 123}}
	if err := e.attempt(context.Background(), item, zerolog.Nop()); err != nil {
		t.Fatalf("attempt: %v", err)
	}
}

func TestProcess_OracleRejectedDropsTask(t *testing.T) {
	evm := &fakeEVM{}
	oracle := &fakeOracle{
		txResp:   oracleclient.TxResponse{TxHash: "tx1"},
		indexed:  oracleclient.TxResponse{RequestID: 1},
		proofErr: vrftask.ErrOracleRejected,
	}
	queue := make(chan vrftask.Item, 10)
	m := metrics.New(newTestRegisterer())
	e := New(evm, oracle, oracleclient.StaticSigner("band1signer"), nil, queue, Config{MaxRetries: 3, TxTimeout: time.Second, ProofTimeout: time.Second}, m, zerolog.Nop())

	e.process(context.Background(), vrftask.Item{Nonce: 1})
	if len(queue) != 0 {
		t.Errorf("expected no re-enqueue on oracle rejection, got %d", len(queue))
	}
}

func TestProcess_ReorgDropsAndCleansStore(t *testing.T) {
	evm := &fakeEVM{relayErr: vrftask.ErrOnChainRevert, taskPresent: false}
	oracle := &fakeOracle{}
	queue := make(chan vrftask.Item, 10)
	st := memstore.New()
	ctx := context.Background()
	if err := st.Upsert(ctx, 5, vrftask.Task{Nonce: 5}, 0); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := st.Upsert(ctx, 6, vrftask.Task{Nonce: 6}, 0); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	blockHash := common.HexToHash("0xbeef")
	chainID := []byte("band-laozi-mainnet")
	proof, vals := buildProof(t, 8, blockHash, chainID)
	evm.encodedChain = chainID
	evm.powers = powersOf(vals)
	oracle.txResp = oracleclient.TxResponse{TxHash: "tx1"}
	oracle.indexed = oracleclient.TxResponse{RequestID: 1}
	oracle.proof = proof
	oracle.blockHash = blockHash.Bytes()

	m := metrics.New(newTestRegisterer())
	e := New(evm, oracle, oracleclient.StaticSigner("band1signer"), st, queue, Config{MaxRetries: 3, TxTimeout: time.Second, ProofTimeout: time.Second}, m, zerolog.Nop())

	e.process(ctx, vrftask.Item{Nonce: 5, Task: vrftask.Task{Nonce: 5, Seed: [32]byte{0x01}}})

	latest, ok, err := st.LatestNonce(ctx)
	if err != nil {
		t.Fatalf("latest_nonce: %v", err)
	}
	if ok {
		t.Errorf("expected store emptied from nonce 5 onward, latest=%d", latest)
	}
}

func TestProcess_RetryCapDropsTask(t *testing.T) {
	evm := &fakeEVM{}
	oracle := &fakeOracle{proofErr: vrftask.ErrTransient}
	oracle.txResp = oracleclient.TxResponse{TxHash: "tx1"}
	oracle.indexed = oracleclient.TxResponse{RequestID: 1}
	queue := make(chan vrftask.Item, 10)
	m := metrics.New(newTestRegisterer())
	e := New(evm, oracle, oracleclient.StaticSigner("band1signer"), nil, queue, Config{MaxRetries: 1, TxTimeout: time.Second, ProofTimeout: time.Second}, m, zerolog.Nop())

	e.process(context.Background(), vrftask.Item{Nonce: 1, RetryCount: 1})
	if len(queue) != 0 {
		t.Errorf("expected no re-enqueue once retry cap is reached, got %d", len(queue))
	}
}
