// Package signer produces deterministic signatures over attestation messages
// with a long-lived key held in memory.
//
// Two key schemes are supported, both yielding a Sui-style signer address
// (blake2b-256 over a scheme flag and the public key):
//   - ed25519: 64-byte signature over the prepared message
//   - secp256k1: 64-byte low-S [R || S] over sha256 of the prepared message
//
// The prepared message is either the raw bytes or, with IntentPersonalMessage,
// the blake2b-256 digest of the personal-message intent envelope.
package signer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

// Scheme names a key type.
type Scheme string

const (
	SchemeEd25519   Scheme = "ed25519"
	SchemeSecp256k1 Scheme = "secp256k1"
)

// Address flags prepended to the public key before hashing.
const (
	flagEd25519   byte = 0x00
	flagSecp256k1 byte = 0x01
)

// Intent selects what is actually signed.
type Intent string

const (
	// IntentRaw signs the message bytes as given.
	IntentRaw Intent = "raw"
	// IntentPersonalMessage signs blake2b-256(intent || bcs(vector<u8>)).
	IntentPersonalMessage Intent = "personal_message"
)

// personalMessageIntent is [scope=PersonalMessage, version=V0, app=Sui].
var personalMessageIntent = []byte{3, 0, 0}

// Signer signs and verifies messages with a single key.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	Verify(message, signature []byte) bool
	PublicKey() []byte
	Address() string
	Scheme() Scheme
}

// ParseScheme accepts the configuration spelling of a scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeEd25519, SchemeSecp256k1:
		return Scheme(s), nil
	default:
		return "", fmt.Errorf("unknown signer scheme %q (want %q or %q)", s, SchemeEd25519, SchemeSecp256k1)
	}
}

// ParseIntent accepts the configuration spelling of an intent.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentRaw, IntentPersonalMessage:
		return Intent(s), nil
	default:
		return "", fmt.Errorf("unknown signing intent %q (want %q or %q)", s, IntentRaw, IntentPersonalMessage)
	}
}

// New builds a signer for scheme from raw private key bytes.
func New(scheme Scheme, key []byte, intent Intent) (Signer, error) {
	switch scheme {
	case SchemeEd25519:
		return NewEd25519Signer(key, intent)
	case SchemeSecp256k1:
		return NewSecp256k1Signer(key, intent)
	default:
		return nil, fmt.Errorf("unknown signer scheme %q", scheme)
	}
}

// GenerateKey returns fresh private key bytes for scheme.
func GenerateKey(scheme Scheme) ([]byte, error) {
	switch scheme {
	case SchemeEd25519:
		return generateEd25519Seed()
	case SchemeSecp256k1:
		return generateSecp256k1Key()
	default:
		return nil, fmt.Errorf("unknown signer scheme %q", scheme)
	}
}

// prepare applies the signing intent to a message.
func prepare(intent Intent, message []byte) ([]byte, error) {
	switch intent {
	case IntentRaw, "":
		return message, nil
	case IntentPersonalMessage:
		envelope := make([]byte, 0, len(personalMessageIntent)+10+len(message))
		envelope = append(envelope, personalMessageIntent...)
		envelope = appendULEB128(envelope, uint64(len(message)))
		envelope = append(envelope, message...)
		digest := blake2b.Sum256(envelope)
		return digest[:], nil
	default:
		return nil, fmt.Errorf("unknown signing intent %q", intent)
	}
}

func appendULEB128(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// suiAddress derives 0x-prefixed blake2b-256(flag || publicKey).
func suiAddress(flag byte, publicKey []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{flag})
	h.Write(publicKey)
	return hexutil.Encode(h.Sum(nil))
}
