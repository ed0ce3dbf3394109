// Package scoring produces a credit score and tier for an address. The score
// comes from the external oracle when it answers, and from a deterministic
// on-chain heuristic when it does not. Oracle unavailability is absorbed and
// never fails a request.
package scoring

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trufnetwork/credit-attestation/internal/chain"
	"github.com/trufnetwork/credit-attestation/internal/metrics"
	"github.com/trufnetwork/credit-attestation/internal/tiers"
)

// Default oracle timeouts for the two flows.
const (
	DefaultDisplayTimeout = 10 * time.Second
	DefaultClaimTimeout   = 5 * time.Second
)

// DefaultChainTimeout bounds the on-chain reads made before scoring.
const DefaultChainTimeout = 5 * time.Second

// DefaultScore is used when the oracle answers without a score, and when the
// claim flow cannot read the chain at all.
const DefaultScore = 600

// Source records where a score came from.
type Source string

const (
	SourceOracle    Source = "oracle"
	SourceHeuristic Source = "heuristic"
	SourceDefault   Source = "default"
)

// ChainReader is the part of the chain client scoring needs.
type ChainReader interface {
	Balance(ctx context.Context, owner string) (chain.Balance, error)
	ObjectCount(ctx context.Context, owner string) (int, error)
}

// Predictor is the oracle.
type Predictor interface {
	Predict(ctx context.Context, req PredictRequest, timeout time.Duration) (int64, error)
}

// OnChainData is the account footprint sent to the oracle. Both fields are
// absent when the chain could not be read.
type OnChainData struct {
	Balance     *string `json:"balance,omitempty"`
	ObjectCount *int    `json:"objectCount,omitempty"`
}

// Empty reports whether no on-chain data was collected.
func (d OnChainData) Empty() bool {
	return d.Balance == nil && d.ObjectCount == nil
}

// Result is a scored address.
type Result struct {
	Score   int64       `json:"creditScore"`
	Tier    uint8       `json:"tier"`
	OnChain OnChainData `json:"onChainData"`
	Source  Source      `json:"source"`
}

// Service combines the chain reader, the oracle and the tier catalog.
type Service struct {
	chain          ChainReader
	oracle         Predictor
	tiers          *tiers.Catalog
	logger         *zap.Logger
	metrics        metrics.Recorder
	displayTimeout time.Duration
	claimTimeout   time.Duration
	chainTimeout   time.Duration
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(s *Service) { s.metrics = recorder }
}

// WithTimeouts overrides the oracle timeouts for the display and claim flows.
func WithTimeouts(display, claim time.Duration) Option {
	return func(s *Service) {
		if display > 0 {
			s.displayTimeout = display
		}
		if claim > 0 {
			s.claimTimeout = claim
		}
	}
}

// WithChainTimeout overrides the bound on on-chain reads.
func WithChainTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.chainTimeout = d
		}
	}
}

func NewService(reader ChainReader, oracle Predictor, catalog *tiers.Catalog, opts ...Option) *Service {
	s := &Service{
		chain:          reader,
		oracle:         oracle,
		tiers:          catalog,
		logger:         zap.NewNop(),
		metrics:        metrics.NewNoOpMetrics(),
		displayTimeout: DefaultDisplayTimeout,
		claimTimeout:   DefaultClaimTimeout,
		chainTimeout:   DefaultChainTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scoring")
	return s
}

// Tiers exposes the catalog used for score to tier mapping.
func (s *Service) Tiers() *tiers.Catalog {
	return s.tiers
}

// Score scores address for display. A chain failure is logged and scoring
// continues with no on-chain data.
func (s *Service) Score(ctx context.Context, address string, extra json.RawMessage) Result {
	data, err := s.OnChainData(ctx, address)
	if err != nil {
		s.logger.Warn("failed to fetch on-chain data", zap.String("address", address), zap.Error(err))
		s.metrics.RecordFallback(ctx, "sui_rpc", "chain_unavailable")
	}
	return s.fromOracle(ctx, address, data, extra, s.displayTimeout)
}

// ScoreForClaim scores address for a claim. A chain failure short-circuits to
// DefaultScore without consulting the oracle.
func (s *Service) ScoreForClaim(ctx context.Context, address string, extra json.RawMessage) Result {
	data, err := s.OnChainData(ctx, address)
	if err != nil {
		s.logger.Warn("failed to fetch on-chain data, using default score",
			zap.String("address", address), zap.Error(err))
		s.metrics.RecordFallback(ctx, "sui_rpc", "chain_unavailable")
		return s.result(DefaultScore, OnChainData{}, SourceDefault)
	}
	return s.fromOracle(ctx, address, data, extra, s.claimTimeout)
}

// OnChainData reads balance and object count concurrently, bounded by the
// chain timeout. Either failure fails the whole read.
func (s *Service) OnChainData(ctx context.Context, address string) (OnChainData, error) {
	ctx, cancel := context.WithTimeout(ctx, s.chainTimeout)
	defer cancel()

	var (
		balance chain.Balance
		count   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.chain.Balance(gctx, address)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = s.chain.ObjectCount(gctx, address)
		return err
	})
	if err := g.Wait(); err != nil {
		return OnChainData{}, err
	}

	total, err := balance.Total()
	if err != nil {
		return OnChainData{}, err
	}
	b := total.String()
	return OnChainData{Balance: &b, ObjectCount: &count}, nil
}

func (s *Service) fromOracle(ctx context.Context, address string, data OnChainData, extra json.RawMessage, timeout time.Duration) Result {
	score, err := s.oracle.Predict(ctx, PredictRequest{
		Address:        address,
		OnChainData:    data,
		AdditionalData: extra,
	}, timeout)
	if err != nil {
		score = Heuristic(data)
		s.logger.Warn("oracle unavailable, using heuristic score",
			zap.String("address", address),
			zap.Int64("score", score),
			zap.Error(err))
		s.metrics.RecordFallback(ctx, oracleName, "oracle_unavailable")
		return s.result(score, data, SourceHeuristic)
	}

	if score == 0 {
		score = DefaultScore
	}
	s.logger.Info("oracle score", zap.String("address", address), zap.Int64("score", score))
	return s.result(score, data, SourceOracle)
}

func (s *Service) result(score int64, data OnChainData, source Source) Result {
	return Result{
		Score:   score,
		Tier:    s.tiers.ForScore(score),
		OnChain: data,
		Source:  source,
	}
}
