package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known anvil/hardhat dev key, never used on a real network.
const (
	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestEcdsaSigner_Address(t *testing.T) {
	signer, err := NewEcdsaSigner(testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, testAddress, signer.Address())

	// 0x prefix is accepted too.
	prefixed, err := NewEcdsaSigner("0x" + testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, testAddress, prefixed.Address())
}

func TestEcdsaSigner_InvalidKey(t *testing.T) {
	_, err := NewEcdsaSigner("not-a-key")
	require.Error(t, err)
}

func TestEcdsaSignAndVerify(t *testing.T) {
	signer, err := NewEcdsaSigner(testPrivateKey)
	require.NoError(t, err)

	payload := []byte(`{"amount":"0.5","asset":"USDC"}`)
	sig, err := signer.Sign(payload)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	verifier := EcdsaVerifier{}
	assert.True(t, verifier.Verify(payload, sig, testAddress))

	// Addresses compare case-insensitively.
	assert.True(t, verifier.Verify(payload, sig, "0xF39FD6E51AAD88F6F4CE6AB8827279CFFFB92266"))

	assert.False(t, verifier.Verify([]byte("tampered"), sig, testAddress))
	assert.False(t, verifier.Verify(payload, sig, "0x0000000000000000000000000000000000000001"))
	assert.False(t, verifier.Verify(payload, sig[:64], testAddress))
	assert.False(t, verifier.Verify(payload, nil, testAddress))
}

func TestHashers(t *testing.T) {
	data := []byte("paymesh")

	sha := SHA256Hasher{}
	assert.Equal(t, "sha256", sha.Algorithm())
	assert.Len(t, sha.Sum(data), 32)
	assert.Equal(t, sha.Sum(data), sha.Sum(data))

	keccak := Keccak256Hasher{}
	assert.Equal(t, "keccak256", keccak.Algorithm())
	assert.Len(t, keccak.Sum(data), 32)
	assert.NotEqual(t, sha.Sum(data), keccak.Sum(data))
}
