package signer

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Ed25519Signer signs with an ed25519 key. It is immutable after construction
// and safe for concurrent use.
type Ed25519Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	intent     Intent
	address    string
}

// NewEd25519Signer accepts a 32-byte seed or a 64-byte seed||public key.
func NewEd25519Signer(key []byte, intent Intent) (*Ed25519Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("private key cannot be empty")
	}
	if _, err := prepare(intent, nil); err != nil {
		return nil, err
	}

	var priv ed25519.PrivateKey
	switch len(key) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(key)
	case ed25519.PrivateKeySize:
		priv = ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
		if !bytes.Equal(priv[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("ed25519 private key has mismatched public half")
		}
	default:
		return nil, fmt.Errorf("ed25519 private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(key))
	}

	pub := priv.Public().(ed25519.PublicKey)
	return &Ed25519Signer{
		privateKey: priv,
		publicKey:  pub,
		intent:     intent,
		address:    suiAddress(flagEd25519, pub),
	}, nil
}

// Sign returns the 64-byte ed25519 signature over the prepared message.
func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	if s.privateKey == nil {
		return nil, fmt.Errorf("private key not initialized")
	}
	prepared, err := prepare(s.intent, message)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(s.privateKey, prepared), nil
}

func (s *Ed25519Signer) Verify(message, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	prepared, err := prepare(s.intent, message)
	if err != nil {
		return false
	}
	return ed25519.Verify(s.publicKey, prepared, signature)
}

func (s *Ed25519Signer) PublicKey() []byte { return bytes.Clone(s.publicKey) }

func (s *Ed25519Signer) Address() string { return s.address }

func (s *Ed25519Signer) Scheme() Scheme { return SchemeEd25519 }

func generateEd25519Seed() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return priv.Seed(), nil
}
