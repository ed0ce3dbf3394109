package claim

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRecipient = "0x" + strings.Repeat("11", 32)

func validRequest(deadline int64) Request {
	return Request{
		To:       testRecipient,
		Score:    NumberOf(710),
		TierID:   NumberOf(2),
		Nonce:    StringOf("1700000000000"),
		Deadline: NumberOf(deadline),
	}
}

func TestNormalize(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("valid request", func(t *testing.T) {
		v, err := Normalize(validRequest(now.Unix()+3600), now)
		require.NoError(t, err)
		assert.Equal(t, Value{
			To:       testRecipient,
			Score:    "710",
			TierID:   "2",
			Nonce:    "1700000000000",
			Deadline: "1700003600",
		}, v)
	})

	t.Run("deadline equal to now is expired", func(t *testing.T) {
		_, err := Normalize(validRequest(now.Unix()), now)
		require.ErrorIs(t, err, ErrExpiredDeadline)

		var de *DeadlineError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "1700000000", de.Deadline)
		assert.Equal(t, now.Unix(), de.CurrentTime)
	})

	t.Run("deadline in the past is expired", func(t *testing.T) {
		_, err := Normalize(validRequest(now.Unix()-1), now)
		require.ErrorIs(t, err, ErrExpiredDeadline)
	})

	t.Run("canonicalize ignores the clock", func(t *testing.T) {
		_, err := Canonicalize(validRequest(1))
		require.NoError(t, err)
	})

	t.Run("recipient case is kept", func(t *testing.T) {
		req := validRequest(now.Unix() + 10)
		req.To = "0x" + strings.Repeat("aB", 32)
		v, err := Normalize(req, now)
		require.NoError(t, err)
		assert.Equal(t, "0x"+strings.Repeat("aB", 32), v.To)
	})
}

func TestMissingFields(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"score":710,"nonce":null}`), &req))

	_, err := Canonicalize(req)
	require.ErrorIs(t, err, ErrMissingField)

	var mfe *MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, []string{FieldTo, FieldTierID, FieldNonce, FieldDeadline}, mfe.Fields)
}

func TestEmptyRecipientCountsAsMissing(t *testing.T) {
	req := validRequest(2_000_000_000)
	req.To = ""
	_, err := Canonicalize(req)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestValidateAddress(t *testing.T) {
	cases := map[string]string{
		"short":          "0x" + strings.Repeat("1", 63),
		"long":           "0x" + strings.Repeat("1", 65),
		"no prefix":      strings.Repeat("11", 33),
		"upper prefix":   "0X" + strings.Repeat("11", 32),
		"non hex":        "0x" + strings.Repeat("zz", 32),
		"evm length":     "0x" + strings.Repeat("11", 20),
		"empty after 0x": "0x",
	}
	for name, addr := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateAddress(addr)
			require.ErrorIs(t, err, ErrInvalidAddress)
		})
	}

	require.NoError(t, ValidateAddress(testRecipient))
}

func TestNumericCanonical(t *testing.T) {
	cases := []struct {
		json string
		want string
		ok   bool
	}{
		{`710`, "710", true},
		{`"710"`, "710", true},
		{`0`, "0", true},
		{`"0"`, "0", true},
		{`-0`, "0", true},
		{`7.1e2`, "710", true},
		{`1E+3`, "1000", true},
		{`710.0`, "710", true},
		{`710.5`, "", false},
		{`-1`, "", false},
		{`"-1"`, "", false},
		{`"0710"`, "", false},
		{`" 710"`, "", false},
		{`"7.1e2"`, "", false},
		{`""`, "", false},
		{`true`, "", false},
		{`{}`, "", false},
		{`1e9999`, "", false},
		{`"115792089237316195423570985008687907853269984665640564039457584007913129639935"`,
			"115792089237316195423570985008687907853269984665640564039457584007913129639935", true},
	}
	for _, tc := range cases {
		t.Run(tc.json, func(t *testing.T) {
			var n Numeric
			require.NoError(t, json.Unmarshal([]byte(tc.json), &n))
			got, ok := n.Canonical()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInvalidNumberNamesField(t *testing.T) {
	req := validRequest(2_000_000_000)
	req.TierID = StringOf("two")

	_, err := Canonicalize(req)
	require.ErrorIs(t, err, ErrInvalidNumber)

	var ne *NumberError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, FieldTierID, ne.Field)
}

func TestNumericEchoesReceivedForm(t *testing.T) {
	var req Request
	body := `{"to":"0x1","score":"710","tierId":2,"nonce":true}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"0x1","score":"710","tierId":2,"nonce":true,"deadline":null}`, string(out))
}
