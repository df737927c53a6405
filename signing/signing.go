// Package signing provides the signer, verifier, and hasher capabilities the
// payment pipeline depends on. The shipped implementations are ECDSA over
// secp256k1 with Keccak-256 message hashing, plus a plain SHA-256 hasher for
// content addressing.
package signing

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs arbitrary payloads on behalf of one identity.
type Signer interface {
	// Address returns the signer's derived address.
	Address() string

	// Sign produces a signature over data.
	Sign(data []byte) ([]byte, error)
}

// Verifier checks a signature over a payload against a claimed signer.
type Verifier interface {
	Verify(data, signature []byte, signer string) bool
}

// Hasher produces deterministic content digests.
type Hasher interface {
	// Algorithm is the tag recorded on proofs, e.g. "sha256".
	Algorithm() string

	Sum(data []byte) []byte
}

// EcdsaSigner signs with a secp256k1 private key. Payloads are Keccak-256
// hashed before signing, matching the recovery performed by EcdsaVerifier.
type EcdsaSigner struct {
	key  *ecdsa.PrivateKey
	addr string
}

// NewEcdsaSigner builds a signer from a hex-encoded private key, with or
// without the 0x prefix.
func NewEcdsaSigner(hexKey string) (*EcdsaSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &EcdsaSigner{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}, nil
}

func (s *EcdsaSigner) Address() string {
	return s.addr
}

func (s *EcdsaSigner) Sign(data []byte) ([]byte, error) {
	hash := crypto.Keccak256(data)
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	return sig, nil
}

// EcdsaVerifier recovers the signing address from a signature and compares
// it to the claimed signer.
type EcdsaVerifier struct{}

func (EcdsaVerifier) Verify(data, signature []byte, signer string) bool {
	if len(signature) != 65 {
		return false
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	hash := crypto.Keccak256(data)
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false
	}
	recovered := crypto.PubkeyToAddress(*pub).Hex()
	return strings.EqualFold(recovered, signer)
}

// SHA256Hasher is the default 256-bit content hasher for proofs.
type SHA256Hasher struct{}

func (SHA256Hasher) Algorithm() string { return "sha256" }

func (SHA256Hasher) Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Keccak256Hasher hashes with Keccak-256 for deployments that want proof
// digests aligned with their ledger's native hash.
type Keccak256Hasher struct{}

func (Keccak256Hasher) Algorithm() string { return "keccak256" }

func (Keccak256Hasher) Sum(data []byte) []byte {
	return crypto.Keccak256(data)
}
