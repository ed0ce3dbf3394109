// Package claim defines the credit claim a signer attests to and the rules a
// claim must satisfy before it is signed.
package claim

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Wire names of the claim fields, in encoding order.
const (
	FieldTo       = "to"
	FieldScore    = "score"
	FieldTierID   = "tierId"
	FieldNonce    = "nonce"
	FieldDeadline = "deadline"
)

// Address shape for the target chain: 0x followed by 32 hex-encoded bytes.
const (
	AddressPrefix = "0x"
	AddressBytes  = 32
	AddressLength = len(AddressPrefix) + 2*AddressBytes
)

// RequiredFields lists every field a claim must carry.
var RequiredFields = []string{FieldTo, FieldScore, FieldTierID, FieldNonce, FieldDeadline}

// Request is a claim as submitted by a caller.
type Request struct {
	To       string  `json:"to"`
	Score    Numeric `json:"score"`
	TierID   Numeric `json:"tierId"`
	Nonce    Numeric `json:"nonce"`
	Deadline Numeric `json:"deadline"`
}

// Value is the normalised claim: the recipient as received and every numeric field
// as a canonical decimal string. It is what gets encoded and signed.
type Value struct {
	To       string `json:"to"`
	Score    string `json:"score"`
	TierID   string `json:"tierId"`
	Nonce    string `json:"nonce"`
	Deadline string `json:"deadline"`
}

// Request converts a normalised value back into request form.
func (v Value) Request() Request {
	return Request{
		To:       v.To,
		Score:    StringOf(v.Score),
		TierID:   StringOf(v.TierID),
		Nonce:    StringOf(v.Nonce),
		Deadline: StringOf(v.Deadline),
	}
}

// Missing returns the required fields absent from the request, in wire order.
func (r Request) Missing() []string {
	var missing []string
	if r.To == "" {
		missing = append(missing, FieldTo)
	}
	for _, f := range []struct {
		name  string
		value Numeric
	}{
		{FieldScore, r.Score},
		{FieldTierID, r.TierID},
		{FieldNonce, r.Nonce},
		{FieldDeadline, r.Deadline},
	} {
		if !f.value.Present() {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Canonicalize checks presence, address shape and numeric form, and returns
// the normalised value. It does not look at the clock.
func Canonicalize(r Request) (Value, error) {
	if missing := r.Missing(); len(missing) > 0 {
		return Value{}, &MissingFieldError{Fields: missing}
	}
	if err := ValidateAddress(r.To); err != nil {
		return Value{}, err
	}

	v := Value{To: r.To}
	for _, f := range []struct {
		name  string
		value Numeric
		dst   *string
	}{
		{FieldScore, r.Score, &v.Score},
		{FieldTierID, r.TierID, &v.TierID},
		{FieldNonce, r.Nonce, &v.Nonce},
		{FieldDeadline, r.Deadline, &v.Deadline},
	} {
		canonical, ok := f.value.Canonical()
		if !ok {
			return Value{}, &NumberError{Field: f.name, Value: f.value}
		}
		*f.dst = canonical
	}
	return v, nil
}

// Normalize is Canonicalize plus the expiry check against now.
func Normalize(r Request, now time.Time) (Value, error) {
	v, err := Canonicalize(r)
	if err != nil {
		return Value{}, err
	}
	if err := CheckDeadline(v.Deadline, now); err != nil {
		return Value{}, err
	}
	return v, nil
}

// CheckDeadline requires the canonical deadline to be strictly after now,
// compared at Unix-second resolution.
func CheckDeadline(deadline string, now time.Time) error {
	current := now.Unix()
	if parseUint(deadline).Cmp(big.NewInt(current)) <= 0 {
		return &DeadlineError{Deadline: deadline, CurrentTime: current}
	}
	return nil
}

// ValidateAddress enforces the 0x + 64 hex character recipient shape.
func ValidateAddress(addr string) error {
	if !strings.HasPrefix(addr, AddressPrefix) || len(addr) != AddressLength {
		return &AddressError{Address: addr}
	}
	if _, err := hexutil.Decode(addr); err != nil {
		return &AddressError{Address: addr}
	}
	return nil
}

// AddressBytesOf decodes a validated address into its 32 raw bytes.
func AddressBytesOf(addr string) ([AddressBytes]byte, error) {
	var out [AddressBytes]byte
	if err := ValidateAddress(addr); err != nil {
		return out, err
	}
	raw, _ := hexutil.Decode(addr)
	copy(out[:], raw)
	return out, nil
}

// Uint parses a canonical decimal field into a big.Int.
func Uint(canonical string) *big.Int {
	return parseUint(canonical)
}
