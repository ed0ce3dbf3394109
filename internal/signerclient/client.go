// Package signerclient calls a remote signer API's /sign endpoint.
package signerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/trufnetwork/credit-attestation/internal/claim"
	"github.com/trufnetwork/credit-attestation/internal/issuer"
	"github.com/trufnetwork/credit-attestation/internal/metrics"
	"github.com/trufnetwork/credit-attestation/internal/tracing"
	"github.com/trufnetwork/credit-attestation/internal/upstream"
)

const upstreamName = "signer"

// DefaultTimeout bounds one signing round trip.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 1 << 20

// ErrRejected is returned when the signer answered but refused the claim.
var ErrRejected = errors.New("signer rejected request")

// Client talks to one signer API.
type Client struct {
	endpoint string
	http     *http.Client
	metrics  metrics.Recorder
}

// New returns a client for the signer at baseURL. A nil httpClient gets an
// instrumented client with DefaultTimeout.
func New(baseURL string, httpClient *http.Client, recorder metrics.Recorder) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetrics()
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/sign",
		http:     httpClient,
		metrics:  recorder,
	}
}

type signResponse struct {
	Success       bool          `json:"success"`
	Value         claim.Request `json:"value"`
	Signature     string        `json:"signature"`
	SignerAddress string        `json:"signerAddress"`
	Error         string        `json:"error"`
	Message       string        `json:"message"`
}

// Issue asks the remote signer to sign req.
func (c *Client) Issue(ctx context.Context, req claim.Request) (*issuer.Attestation, error) {
	return tracing.Traced(ctx, tracing.OpSignerRemote, func(ctx context.Context) (*issuer.Attestation, error) {
		start := time.Now()
		att, err := c.issue(ctx, req)
		c.metrics.RecordUpstreamCall(ctx, upstreamName, time.Since(start), err)
		return att, err
	})
}

func (c *Client) issue(ctx context.Context, req claim.Request) (*issuer.Attestation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode sign request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build sign request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(upstream.ErrUpstreamUnavailable, "signature service error: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read sign response")
	}

	var out signResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != "" {
			detail = out.Error
			if out.Message != "" {
				detail += ": " + out.Message
			}
		}
		se := &upstream.StatusError{Upstream: upstreamName, Code: resp.StatusCode, Body: detail}
		if resp.StatusCode < http.StatusInternalServerError {
			return nil, errors.Wrapf(ErrRejected, "%v", se)
		}
		return nil, errors.Wrap(se, "signature service error")
	}
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, "malformed sign response")
	}
	if !out.Success {
		return nil, errors.New("failed to obtain signature")
	}

	value, err := claim.Canonicalize(out.Value)
	if err != nil {
		return nil, errors.Wrap(err, "malformed signed value")
	}
	return &issuer.Attestation{
		Value:         value,
		Signature:     out.Signature,
		SignerAddress: out.SignerAddress,
	}, nil
}
