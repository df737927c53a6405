package proofs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymesh/paymesh/signing"
	"github.com/paymesh/paymesh/types"
)

// Well-known anvil/hardhat dev key, never used on a real network.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type memStore struct {
	mu     sync.Mutex
	proofs []*types.Proof
}

func (s *memStore) Save(_ context.Context, proof *types.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proofs = append(s.proofs, proof)
	return nil
}

func settledTx() *types.Transaction {
	return &types.Transaction{
		Hash:      "0xabc",
		From:      "0xsender",
		To:        "0xrecipient",
		Amount:    "0.5",
		Asset:     "USDC",
		Timestamp: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		Metadata:  map[string]string{"service": "image-gen"},
	}
}

func TestGenerateProof_RoundTrip(t *testing.T) {
	e := NewEngine()

	proof, err := e.GenerateProof(context.Background(), settledTx())
	require.NoError(t, err)

	assert.Equal(t, "0xabc", proof.Data.TxHash)
	assert.Equal(t, "sha256", proof.Algorithm)
	assert.Len(t, proof.Hash, 64)
	assert.Empty(t, proof.Signature)

	assert.True(t, e.VerifyProof(proof))
}

func TestGenerateProof_Deterministic(t *testing.T) {
	e := NewEngine()

	first, err := e.GenerateProof(context.Background(), settledTx())
	require.NoError(t, err)
	second, err := e.GenerateProof(context.Background(), settledTx())
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
}

func TestGenerateProof_RequiresBroadcastTransaction(t *testing.T) {
	e := NewEngine()

	_, err := e.GenerateProof(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidPayload))

	_, err = e.GenerateProof(context.Background(), &types.Transaction{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidPayload))
}

func TestGenerateProof_SignedWhenSignerPresent(t *testing.T) {
	signer, err := signing.NewEcdsaSigner(testPrivateKey)
	require.NoError(t, err)

	e := NewEngine(WithSigner(signer))

	tx := settledTx()
	tx.SignerAddress = signer.Address()

	proof, err := e.GenerateProof(context.Background(), tx)
	require.NoError(t, err)

	assert.Len(t, proof.Signature, 65)
	assert.Equal(t, signer.Address(), proof.Signer)
	assert.True(t, e.VerifyProof(proof))
}

func TestGenerateProof_UnsignedWithoutSignerAddress(t *testing.T) {
	signer, err := signing.NewEcdsaSigner(testPrivateKey)
	require.NoError(t, err)

	e := NewEngine(WithSigner(signer))

	proof, err := e.GenerateProof(context.Background(), settledTx())
	require.NoError(t, err)
	assert.Empty(t, proof.Signature)
}

func TestGenerateProof_Persisted(t *testing.T) {
	store := &memStore{}
	e := NewEngine(WithStore(store))

	proof, err := e.GenerateProof(context.Background(), settledTx())
	require.NoError(t, err)

	require.Len(t, store.proofs, 1)
	assert.Equal(t, proof.Hash, store.proofs[0].Hash)
}

func TestVerifyProof_DetectsMutation(t *testing.T) {
	e := NewEngine()

	proof, err := e.GenerateProof(context.Background(), settledTx())
	require.NoError(t, err)
	require.True(t, e.VerifyProof(proof))

	tampered := *proof
	tampered.Data.Amount = "5000.0"
	assert.False(t, e.VerifyProof(&tampered))

	assert.False(t, e.VerifyProof(nil))
}

func TestVerifyProof_DetectsForgedSigner(t *testing.T) {
	signer, err := signing.NewEcdsaSigner(testPrivateKey)
	require.NoError(t, err)

	e := NewEngine(WithSigner(signer))

	tx := settledTx()
	tx.SignerAddress = signer.Address()
	proof, err := e.GenerateProof(context.Background(), tx)
	require.NoError(t, err)

	forged := *proof
	forged.Signer = "0x0000000000000000000000000000000000000001"
	assert.False(t, e.VerifyProof(&forged))
}

func TestGenerateAuditSummary(t *testing.T) {
	e := NewEngine()

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)

	set := []*types.Proof{
		{Data: types.ProofData{TxHash: "0x1", Amount: "0.5", Asset: "USDC", Timestamp: late,
			Metadata: map[string]string{"service": "image-gen"}}},
		{Data: types.ProofData{TxHash: "0x2", Amount: "1.25", Asset: "USDC", Timestamp: early,
			Metadata: map[string]string{"service": "image-gen"}}},
		{Data: types.ProofData{TxHash: "0x3", Amount: "2", Asset: "DAI", Timestamp: early.Add(time.Hour),
			Metadata: map[string]string{"service": "translation"}}},
	}

	summary := e.GenerateAuditSummary(set)

	assert.Equal(t, 3, summary.TotalTransactions)
	assert.Equal(t, "3.75", summary.TotalAmount)
	assert.Equal(t, map[string]string{"USDC": "1.75", "DAI": "2"}, summary.ByAsset)
	assert.Equal(t, map[string]int{"image-gen": 2, "translation": 1}, summary.ByService)
	require.NotNil(t, summary.EarliestTimestamp)
	require.NotNil(t, summary.LatestTimestamp)
	assert.Equal(t, early, *summary.EarliestTimestamp)
	assert.Equal(t, late, *summary.LatestTimestamp)
}

func TestGenerateAuditSummary_Empty(t *testing.T) {
	e := NewEngine()

	summary := e.GenerateAuditSummary(nil)

	assert.Equal(t, 0, summary.TotalTransactions)
	assert.Equal(t, "0", summary.TotalAmount)
	assert.Nil(t, summary.ByAsset)
	assert.Nil(t, summary.ByService)
	assert.Nil(t, summary.EarliestTimestamp)
	assert.Nil(t, summary.LatestTimestamp)
}

func TestGenerateAuditSummary_SkipsUnparseableAmounts(t *testing.T) {
	e := NewEngine()

	set := []*types.Proof{
		{Data: types.ProofData{TxHash: "0x1", Amount: "1.5", Asset: "USDC", Timestamp: time.Now()}},
		{Data: types.ProofData{TxHash: "0x2", Amount: "not-a-number", Asset: "USDC", Timestamp: time.Now()}},
	}

	summary := e.GenerateAuditSummary(set)
	assert.Equal(t, 2, summary.TotalTransactions)
	assert.Equal(t, "1.5", summary.TotalAmount)
}
