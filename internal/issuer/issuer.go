// Package issuer converts validated credit claims into signed attestations.
//
// An Issuer holds one immutable signer for the lifetime of the process and is
// otherwise stateless: every call validates, encodes and signs independently,
// so concurrent requests never interfere. Replay protection is not done here;
// the verifying contract tracks consumed nonces.
package issuer

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/internal/canonical"
	"github.com/trufnetwork/credit-attestation/internal/claim"
	"github.com/trufnetwork/credit-attestation/internal/metrics"
	"github.com/trufnetwork/credit-attestation/internal/signer"
	"github.com/trufnetwork/credit-attestation/internal/tracing"
)

// ErrSigningFailure wraps any fault raised while producing a signature.
var ErrSigningFailure = errors.New("failed to sign request")

// DefaultBatchConcurrency bounds the goroutines used by IssueBatch.
const DefaultBatchConcurrency = 8

// Attestation is a signed claim.
type Attestation struct {
	Value         claim.Value `json:"value"`
	Signature     string      `json:"signature"`
	SignerAddress string      `json:"signerAddress"`
}

// Issuer signs claims with a single key and message encoding.
type Issuer struct {
	signer           signer.Signer
	encoding         canonical.Encoding
	now              func() time.Time
	logger           *zap.Logger
	metrics          metrics.Recorder
	batchConcurrency int
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(i *Issuer) { i.logger = logger }
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(i *Issuer) { i.metrics = recorder }
}

// WithBatchConcurrency sets how many batch items are signed in parallel.
func WithBatchConcurrency(n int) Option {
	return func(i *Issuer) {
		if n > 0 {
			i.batchConcurrency = n
		}
	}
}

// New builds an Issuer around s.
func New(s signer.Signer, enc canonical.Encoding, opts ...Option) (*Issuer, error) {
	if s == nil {
		return nil, errors.New("signer cannot be nil")
	}
	if _, err := canonical.ParseEncoding(string(enc)); err != nil {
		return nil, err
	}

	i := &Issuer{
		signer:           s,
		encoding:         enc,
		now:              time.Now,
		logger:           zap.NewNop(),
		metrics:          metrics.NewNoOpMetrics(),
		batchConcurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.Named("issuer")
	return i, nil
}

// SignerAddress is the public identity verifiers check signatures against.
func (i *Issuer) SignerAddress() string {
	return i.signer.Address()
}

// Scheme reports the signer's key type.
func (i *Issuer) Scheme() signer.Scheme {
	return i.signer.Scheme()
}

// Encoding reports the message layout in use.
func (i *Issuer) Encoding() canonical.Encoding {
	return i.encoding
}

// Validate checks a claim without signing it.
func (i *Issuer) Validate(req claim.Request) error {
	_, err := claim.Normalize(req, i.now())
	return err
}

// ConstructMessage returns the exact bytes that get signed for v.
func (i *Issuer) ConstructMessage(v claim.Value) ([]byte, error) {
	return canonical.Encode(i.encoding, v)
}

// Sign signs message bytes. Errors wrap ErrSigningFailure.
func (i *Issuer) Sign(message []byte) ([]byte, error) {
	if len(message) == 0 {
		return nil, errors.Wrap(ErrSigningFailure, "message cannot be empty")
	}
	sig, err := i.signer.Sign(message)
	if err != nil {
		return nil, errors.Wrapf(ErrSigningFailure, "%v", err)
	}
	return sig, nil
}

// Issue validates req, encodes it and signs it. A returned attestation always
// verifies against SignerAddress.
func (i *Issuer) Issue(ctx context.Context, req claim.Request) (*Attestation, error) {
	return tracing.Traced(ctx, tracing.OpIssue, func(ctx context.Context) (*Attestation, error) {
		start := time.Now()

		att, err := i.issue(req)
		if err != nil {
			reason := Reason(err)
			i.metrics.RecordRejected(ctx, reason)
			i.logger.Debug("claim rejected", zap.String("reason", reason), zap.Error(err))
			return nil, err
		}

		i.metrics.RecordIssued(ctx, string(i.signer.Scheme()), time.Since(start))
		i.logger.Info("signed claim",
			zap.String("to", att.Value.To),
			zap.String("score", att.Value.Score),
			zap.String("tier", att.Value.TierID),
			zap.String("nonce", att.Value.Nonce))
		return att, nil
	}, attribute.String("encoding", string(i.encoding)))
}

func (i *Issuer) issue(req claim.Request) (*Attestation, error) {
	value, err := claim.Normalize(req, i.now())
	if err != nil {
		return nil, err
	}

	message, err := i.ConstructMessage(value)
	if err != nil {
		return nil, err
	}

	sig, err := i.Sign(message)
	if err != nil {
		return nil, err
	}

	return &Attestation{
		Value:         value,
		Signature:     hex.EncodeToString(sig),
		SignerAddress: i.signer.Address(),
	}, nil
}

// Verify recomputes the message for value and checks signatureHex against the
// issuer's key. The deadline is not checked; expired attestations still verify.
// A malformed value or signature returns an error.
func (i *Issuer) Verify(ctx context.Context, value claim.Request, signatureHex string) (bool, error) {
	return tracing.Traced(ctx, tracing.OpVerify, func(ctx context.Context) (bool, error) {
		v, err := claim.Canonicalize(value)
		if err != nil {
			return false, err
		}
		message, err := i.ConstructMessage(v)
		if err != nil {
			return false, err
		}
		sig, err := decodeSignature(signatureHex)
		if err != nil {
			return false, err
		}

		valid := i.signer.Verify(message, sig)
		i.metrics.RecordVerify(ctx, valid)
		return valid, nil
	})
}

func decodeSignature(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, errors.New("signature cannot be empty")
	}
	sig, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decode signature")
	}
	return sig, nil
}

// Reason maps an issuance error to a stable, low-cardinality label.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, claim.ErrMissingField):
		return "missing_field"
	case errors.Is(err, claim.ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, claim.ErrExpiredDeadline):
		return "expired_deadline"
	case errors.Is(err, claim.ErrInvalidNumber):
		return "invalid_number"
	case errors.Is(err, claim.ErrFieldOutOfRange):
		return "field_out_of_range"
	case errors.Is(err, ErrSigningFailure):
		return "signing_failure"
	default:
		return "unknown"
	}
}

// IsValidationError reports whether err is a caller mistake rather than a
// fault in the issuer.
func IsValidationError(err error) bool {
	return errors.Is(err, claim.ErrMissingField) ||
		errors.Is(err, claim.ErrInvalidAddress) ||
		errors.Is(err, claim.ErrExpiredDeadline) ||
		errors.Is(err, claim.ErrInvalidNumber) ||
		errors.Is(err, claim.ErrFieldOutOfRange)
}
