package signer

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// signatureLength is the compact [R || S] form; the recovery byte is dropped.
const signatureLength = 64

// Secp256k1Signer signs with a secp256k1 key using RFC6979 nonces, so equal
// messages always produce equal signatures.
type Secp256k1Signer struct {
	privateKey *ecdsa.PrivateKey
	compressed []byte
	intent     Intent
	address    string
}

// NewSecp256k1Signer accepts a 32-byte secp256k1 scalar.
func NewSecp256k1Signer(key []byte, intent Intent) (*Secp256k1Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("private key cannot be empty")
	}
	if _, err := prepare(intent, nil); err != nil {
		return nil, err
	}

	ecdsaKey, err := crypto.ToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
	}

	compressed := crypto.CompressPubkey(&ecdsaKey.PublicKey)
	return &Secp256k1Signer{
		privateKey: ecdsaKey,
		compressed: compressed,
		intent:     intent,
		address:    suiAddress(flagSecp256k1, compressed),
	}, nil
}

// Sign returns a 64-byte [R || S] signature with S in the lower half order.
func (s *Secp256k1Signer) Sign(message []byte) ([]byte, error) {
	if s.privateKey == nil {
		return nil, fmt.Errorf("private key not initialized")
	}
	digest, err := s.digest(message)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return signature[:signatureLength], nil
}

// Verify rejects malleable (high-S) signatures.
func (s *Secp256k1Signer) Verify(message, signature []byte) bool {
	if len(signature) != signatureLength {
		return false
	}
	digest, err := s.digest(message)
	if err != nil {
		return false
	}
	return crypto.VerifySignature(s.compressed, digest, signature)
}

func (s *Secp256k1Signer) digest(message []byte) ([]byte, error) {
	prepared, err := prepare(s.intent, message)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(prepared)
	return sum[:], nil
}

// PublicKey returns the 33-byte compressed public key.
func (s *Secp256k1Signer) PublicKey() []byte {
	out := make([]byte, len(s.compressed))
	copy(out, s.compressed)
	return out
}

func (s *Secp256k1Signer) Address() string { return s.address }

func (s *Secp256k1Signer) Scheme() Scheme { return SchemeSecp256k1 }

// EthereumAddress is the EVM address of the same key, useful when the
// attestation is relayed to an EVM verifier.
func (s *Secp256k1Signer) EthereumAddress() string {
	return crypto.PubkeyToAddress(s.privateKey.PublicKey).Hex()
}

func generateSecp256k1Key() ([]byte, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return crypto.FromECDSA(key), nil
}
