// Package chain is a read-only Sui JSON-RPC client.
package chain

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/internal/metrics"
	"github.com/trufnetwork/credit-attestation/internal/tracing"
	"github.com/trufnetwork/credit-attestation/internal/upstream"
)

const upstreamName = "sui_rpc"

// Retry defaults. Every call is still bounded by the caller's context.
const (
	DefaultRetryInitialInterval = 200 * time.Millisecond
	DefaultRetryMaxInterval     = 2 * time.Second
	DefaultRetryMaxElapsed      = 5 * time.Second
)

// DefaultRequestTimeout bounds a single HTTP round trip to the node.
const DefaultRequestTimeout = 5 * time.Second

// Client reads balances and owned objects from a Sui full node.
type Client struct {
	rpc            *rpc.Client
	logger         *zap.Logger
	metrics        metrics.Recorder
	maxElapsed     time.Duration
	requestTimeout time.Duration
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Client) { c.metrics = recorder }
}

// WithRetryBudget caps the total time spent retrying one call. Zero disables
// retries.
func WithRetryBudget(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

// WithRequestTimeout bounds each HTTP attempt, independently of the caller's
// context.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// Dial connects to the node at url. HTTP endpoints are not contacted until
// the first call.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		logger:         zap.NewNop(),
		metrics:        metrics.NewNoOpMetrics(),
		maxElapsed:     DefaultRetryMaxElapsed,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("chain")

	rc, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(&http.Client{
		Timeout:   c.requestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
	if err != nil {
		return nil, errors.Wrapf(err, "dial sui rpc %s", url)
	}
	c.rpc = rc
	return c, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// ChainIdentifier returns the network's chain identifier.
func (c *Client) ChainIdentifier(ctx context.Context) (string, error) {
	return tracing.Traced(ctx, tracing.OpChainIdentity, func(ctx context.Context) (string, error) {
		var id string
		err := c.call(ctx, &id, "sui_getChainIdentifier")
		return id, err
	})
}

// Balance returns the SUI balance of owner.
func (c *Client) Balance(ctx context.Context, owner string) (Balance, error) {
	return tracing.Traced(ctx, tracing.OpChainBalance, func(ctx context.Context) (Balance, error) {
		var b Balance
		err := c.call(ctx, &b, "suix_getBalance", owner)
		return b, err
	}, attribute.String("owner", owner))
}

// OwnedObjects returns the first page of objects owned by owner. An empty
// structType lists every object.
func (c *Client) OwnedObjects(ctx context.Context, owner, structType string) ([]Object, error) {
	return tracing.Traced(ctx, tracing.OpChainObjects, func(ctx context.Context) ([]Object, error) {
		query := objectQuery{}
		if structType != "" {
			query.Filter = &ObjectFilter{StructType: structType}
			query.Options = &ObjectOptions{ShowType: true, ShowContent: true, ShowDisplay: true}
		}

		var page objectsPage
		if err := c.call(ctx, &page, "suix_getOwnedObjects", owner, query, nil, nil); err != nil {
			return nil, err
		}

		objects := make([]Object, 0, len(page.Data))
		for _, r := range page.Data {
			if r.Data != nil {
				objects = append(objects, *r.Data)
			}
		}
		return objects, nil
	}, attribute.String("owner", owner), attribute.String("struct_type", structType))
}

// ObjectCount returns how many objects owner holds on the first page.
func (c *Client) ObjectCount(ctx context.Context, owner string) (int, error) {
	objects, err := c.OwnedObjects(ctx, owner, "")
	if err != nil {
		return 0, err
	}
	return len(objects), nil
}

// call runs one JSON-RPC method, retrying transient failures with
// exponential backoff until the retry budget or the context runs out.
func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	start := time.Now()

	op := func() error {
		err := c.rpc.CallContext(ctx, result, method, args...)
		if err == nil {
			return nil
		}
		err = classify(err)
		if upstream.IsNonRetryableError(err) || upstream.IsNotFoundError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultRetryInitialInterval
	b.MaxInterval = DefaultRetryMaxInterval
	b.MaxElapsedTime = c.maxElapsed

	var policy backoff.BackOff = b
	if c.maxElapsed <= 0 {
		policy = &backoff.StopBackOff{}
	}

	err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		c.logger.Debug("retrying sui rpc call",
			zap.String("method", method),
			zap.Duration("wait", wait),
			zap.Error(err))
	})

	c.metrics.RecordUpstreamCall(ctx, upstreamName, time.Since(start), err)
	if err != nil {
		return errors.Wrapf(err, "%s", method)
	}
	return nil
}

// classify turns transport-level HTTP failures into upstream status errors.
func classify(err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return &upstream.StatusError{Upstream: upstreamName, Code: httpErr.StatusCode, Body: string(httpErr.Body)}
	}
	return err
}
