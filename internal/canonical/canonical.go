// Package canonical turns a normalised claim into the exact byte sequence that
// gets signed. Any change to field order, width or representation here
// invalidates every attestation issued before it, so both layouts are frozen.
package canonical

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/trufnetwork/credit-attestation/internal/claim"
)

// Encoding selects the message layout.
type Encoding string

const (
	// EncodingJSON is the compact JSON object
	// {"to":..,"score":..,"tierId":..,"nonce":..,"deadline":..} with every value a
	// string and no whitespace. It matches the bytes produced by the deployed
	// signer.
	EncodingJSON Encoding = "json"

	// EncodingBCS is the fixed-width little-endian layout a Move verifier reads:
	//
	//	32 bytes  recipient address
	//	32 bytes  score (u256)
	//	 1 byte   tier id (u8)
	//	 8 bytes  nonce (u64)
	//	 8 bytes  deadline (u64)
	EncodingBCS Encoding = "bcs"
)

// BCSMessageLength is the size of every EncodingBCS message.
const BCSMessageLength = claim.AddressBytes + 32 + 1 + 8 + 8

// ParseEncoding accepts the configuration spelling of an encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingJSON, EncodingBCS:
		return Encoding(s), nil
	default:
		return "", fmt.Errorf("unknown message encoding %q (want %q or %q)", s, EncodingJSON, EncodingBCS)
	}
}

// Encode serialises v. The value must already be canonical (see claim.Canonicalize).
func Encode(enc Encoding, v claim.Value) ([]byte, error) {
	switch enc {
	case EncodingJSON:
		return encodeJSON(v)
	case EncodingBCS:
		return encodeBCS(v)
	default:
		return nil, fmt.Errorf("unknown message encoding %q", enc)
	}
}

// Decode parses a message produced by Encode.
func Decode(enc Encoding, data []byte) (claim.Value, error) {
	switch enc {
	case EncodingJSON:
		return decodeJSON(data)
	case EncodingBCS:
		return decodeBCS(data)
	default:
		return claim.Value{}, fmt.Errorf("unknown message encoding %q", enc)
	}
}

func encodeJSON(v claim.Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range []struct {
		key, value string
	}{
		{claim.FieldTo, v.To},
		{claim.FieldScore, v.Score},
		{claim.FieldTierID, v.TierID},
		{claim.FieldNonce, v.Nonce},
		{claim.FieldDeadline, v.Deadline},
	} {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, f.key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, f.value); err != nil {
			return nil, errors.Wrapf(err, "encode %s", f.key)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSONString writes s as a JSON string without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

func decodeJSON(data []byte) (claim.Value, error) {
	var v claim.Value
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return claim.Value{}, errors.Wrap(err, "decode json message")
	}
	return v, nil
}

func encodeBCS(v claim.Value) ([]byte, error) {
	addr, err := claim.AddressBytesOf(v.To)
	if err != nil {
		return nil, err
	}

	score, err := fitUint(claim.FieldScore, v.Score, 256)
	if err != nil {
		return nil, err
	}
	tier, err := fitUint(claim.FieldTierID, v.TierID, 8)
	if err != nil {
		return nil, err
	}
	nonce, err := fitUint(claim.FieldNonce, v.Nonce, 64)
	if err != nil {
		return nil, err
	}
	deadline, err := fitUint(claim.FieldDeadline, v.Deadline, 64)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, BCSMessageLength)
	out = append(out, addr[:]...)
	out = append(out, littleEndian(score, 32)...)
	out = append(out, byte(tier.Uint64()))
	out = binary.LittleEndian.AppendUint64(out, nonce.Uint64())
	out = binary.LittleEndian.AppendUint64(out, deadline.Uint64())
	return out, nil
}

func decodeBCS(data []byte) (claim.Value, error) {
	if len(data) != BCSMessageLength {
		return claim.Value{}, fmt.Errorf("bcs message must be %d bytes, got %d", BCSMessageLength, len(data))
	}

	cursor := 0
	addr := data[cursor : cursor+claim.AddressBytes]
	cursor += claim.AddressBytes

	score := fromLittleEndian(data[cursor : cursor+32])
	cursor += 32

	tier := data[cursor]
	cursor++

	nonce := binary.LittleEndian.Uint64(data[cursor : cursor+8])
	cursor += 8
	deadline := binary.LittleEndian.Uint64(data[cursor : cursor+8])

	return claim.Value{
		To:       fmt.Sprintf("0x%x", addr),
		Score:    score.String(),
		TierID:   fmt.Sprint(tier),
		Nonce:    fmt.Sprint(nonce),
		Deadline: fmt.Sprint(deadline),
	}, nil
}

func fitUint(field, canonical string, bits int) (*big.Int, error) {
	v := claim.Uint(canonical)
	if v.Sign() < 0 || v.BitLen() > bits {
		return nil, &claim.RangeError{Field: field, Value: canonical, Bits: bits}
	}
	return v, nil
}

func littleEndian(v *big.Int, size int) []byte {
	out := make([]byte, size)
	v.FillBytes(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func fromLittleEndian(b []byte) *big.Int {
	be := bytes.Clone(b)
	for i, j := 0, len(be)-1; i < j; i, j = i+1, j-1 {
		be[i], be[j] = be[j], be[i]
	}
	return new(big.Int).SetBytes(be)
}
