package claim

import (
	"bytes"
	"encoding/json"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// NumericKind records how a numeric field arrived on the wire.
type NumericKind uint8

const (
	// KindAbsent is the zero value: the field was missing or null.
	KindAbsent NumericKind = iota
	// KindNumber is a bare JSON number token.
	KindNumber
	// KindString is a JSON string expected to hold decimal digits.
	KindString
	// KindInvalid is any other JSON token (bool, object, array).
	KindInvalid
)

// maxNumericDigits bounds the canonical form of any numeric field. A u256 has
// 78 decimal digits; the extra headroom keeps score "unbounded" in practice
// while refusing exponent bombs such as 1e999999999.
const maxNumericDigits = 1024

var decimalDigits = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)

// Numeric is a claim field that may be sent either as a JSON number or as a
// numeric string. It keeps the raw token until Canonical is called.
type Numeric struct {
	Kind NumericKind
	Raw  string
}

// NumberOf builds a Numeric equivalent to a JSON number token.
func NumberOf(v int64) Numeric {
	return Numeric{Kind: KindNumber, Raw: strconv.FormatInt(v, 10)}
}

// StringOf builds a Numeric equivalent to a JSON string token.
func StringOf(s string) Numeric {
	return Numeric{Kind: KindString, Raw: s}
}

// Present reports whether the field was supplied with a non-null value.
func (n Numeric) Present() bool {
	return n.Kind != KindAbsent
}

// UnmarshalJSON never fails for well-formed JSON; ill-typed tokens are kept as
// KindInvalid so validation can report them per field.
func (n *Numeric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*n = Numeric{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Numeric{Kind: KindString, Raw: s}
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*n = Numeric{Kind: KindNumber, Raw: string(b)}
	default:
		*n = Numeric{Kind: KindInvalid, Raw: string(b)}
	}
	return nil
}

// MarshalJSON echoes the field the way it was received.
func (n Numeric) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindAbsent:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(n.Raw)
	case KindNumber:
		if json.Valid([]byte(n.Raw)) {
			return []byte(n.Raw), nil
		}
		return json.Marshal(n.Raw)
	default:
		if json.Valid([]byte(n.Raw)) {
			return []byte(n.Raw), nil
		}
		return []byte("null"), nil
	}
}

// Canonical returns the unsigned decimal form of the field. Strings must
// already be canonical (digits only, no leading zeros). Numbers must be finite,
// non-negative and integral; exponents are expanded so 7.1e2 becomes "710".
func (n Numeric) Canonical() (string, bool) {
	switch n.Kind {
	case KindString:
		if len(n.Raw) > maxNumericDigits || !decimalDigits.MatchString(n.Raw) {
			return "", false
		}
		return n.Raw, true
	case KindNumber:
		return canonicalNumber(n.Raw)
	default:
		return "", false
	}
}

func canonicalNumber(raw string) (string, bool) {
	if !json.Valid([]byte(raw)) {
		return "", false
	}
	d, _, err := apd.NewFromString(raw)
	if err != nil || d.Form != apd.Finite {
		return "", false
	}
	if d.IsZero() {
		return "0", true
	}
	if d.Negative {
		return "", false
	}

	var reduced apd.Decimal
	reduced.Reduce(d)
	if reduced.Exponent < 0 {
		return "", false
	}
	if int64(reduced.NumDigits())+int64(reduced.Exponent) > maxNumericDigits {
		return "", false
	}

	digits := reduced.Coeff.String()
	return digits + strings.Repeat("0", int(reduced.Exponent)), true
}

// parseUint converts a canonical decimal string to a big.Int.
func parseUint(canonical string) *big.Int {
	v, ok := new(big.Int).SetString(canonical, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
