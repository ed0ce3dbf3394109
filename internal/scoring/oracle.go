package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/internal/metrics"
	"github.com/trufnetwork/credit-attestation/internal/tracing"
	"github.com/trufnetwork/credit-attestation/internal/upstream"
)

const oracleName = "oracle"

// Circuit breaker configuration constants
const (
	DefaultCircuitBreakerMaxRequests  = 3
	DefaultCircuitBreakerInterval     = 10 * time.Second
	DefaultCircuitBreakerTimeout      = 60 * time.Second
	DefaultCircuitBreakerFailureRatio = 0.6
)

// maxOracleResponse bounds how much of an oracle answer is read.
const maxOracleResponse = 1 << 20

// PredictRequest is the body sent to the oracle's /predict endpoint.
type PredictRequest struct {
	Address        string          `json:"address"`
	OnChainData    OnChainData     `json:"onChainData"`
	AdditionalData json.RawMessage `json:"additionalData,omitempty"`
}

type predictResponse struct {
	Score float64 `mapstructure:"score"`
}

// Oracle calls the external scoring model. Calls go through a circuit
// breaker so a dead oracle stops costing a timeout per request.
type Oracle struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	metrics  metrics.Recorder
}

// NewOracle returns a client for the oracle at baseURL.
func NewOracle(baseURL string, client *http.Client, logger *zap.Logger, recorder metrics.Recorder) *Oracle {
	if client == nil {
		client = &http.Client{}
	}
	o := &Oracle{
		endpoint: strings.TrimRight(baseURL, "/") + "/predict",
		client:   client,
		logger:   logger.Named("oracle"),
		metrics:  recorder,
	}
	o.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        oracleName,
		MaxRequests: DefaultCircuitBreakerMaxRequests,
		Interval:    DefaultCircuitBreakerInterval,
		Timeout:     DefaultCircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= DefaultCircuitBreakerMaxRequests && failureRatio >= DefaultCircuitBreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the oracle's fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			o.logger.Info("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			o.metrics.RecordCircuitBreakerStateChange(context.Background(), name, from.String(), to.String())
		},
	})
	return o
}

// Predict asks the oracle for a score, bounded by timeout. A zero or absent
// score is returned as (0, nil); callers apply their default. Every failure
// wraps upstream.ErrUpstreamUnavailable.
func (o *Oracle) Predict(ctx context.Context, req PredictRequest, timeout time.Duration) (int64, error) {
	return tracing.Traced(ctx, tracing.OpOracleScore, func(ctx context.Context) (int64, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := time.Now()
		result, err := o.breaker.Execute(func() (interface{}, error) {
			return o.predict(ctx, req)
		})
		o.metrics.RecordUpstreamCall(ctx, oracleName, time.Since(start), err)
		if err != nil {
			return 0, errors.Wrapf(upstream.ErrUpstreamUnavailable, "oracle: %v", err)
		}
		return result.(int64), nil
	}, attribute.String("address", req.Address))
}

func (o *Oracle) predict(ctx context.Context, req PredictRequest) (int64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, errors.Wrap(err, "encode predict request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "build predict request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxOracleResponse))
	if err != nil {
		return 0, errors.Wrap(err, "read predict response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &upstream.StatusError{Upstream: oracleName, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	return decodeScore(raw)
}

// decodeScore reads the score field, accepting numbers or numeric strings.
// Fractional scores are floored.
func decodeScore(raw []byte) (int64, error) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return 0, errors.Wrap(err, "malformed predict response")
	}

	var out predictResponse
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return 0, err
	}
	if err := dec.Decode(generic); err != nil {
		return 0, errors.Wrap(err, "malformed predict response")
	}

	switch {
	case math.IsNaN(out.Score) || math.IsInf(out.Score, 0):
		return 0, errors.New("malformed predict response: score is not finite")
	case out.Score < 0:
		return 0, errors.Errorf("malformed predict response: negative score %v", out.Score)
	case out.Score > math.MaxInt32:
		return 0, errors.Errorf("malformed predict response: score %v out of range", out.Score)
	}
	return int64(math.Floor(out.Score)), nil
}
