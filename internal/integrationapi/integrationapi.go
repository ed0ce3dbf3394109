// Package integrationapi serves scoring and claim orchestration for web
// clients. It scores an address, asks the signer for an attestation and
// returns everything the wallet needs to submit the claim on-chain.
package integrationapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/internal/chain"
	"github.com/trufnetwork/credit-attestation/internal/claim"
	"github.com/trufnetwork/credit-attestation/internal/httpapi"
	"github.com/trufnetwork/credit-attestation/internal/issuer"
	"github.com/trufnetwork/credit-attestation/internal/scoring"
	"github.com/trufnetwork/credit-attestation/internal/tiers"
)

// ServiceName is reported by /health.
const ServiceName = "AI Integration API (Sui)"

// DefaultClaimTTL is how long an issued claim stays valid.
const DefaultClaimTTL = time.Hour

// DefaultChainTimeout bounds the health and NFT chain queries.
const DefaultChainTimeout = 5 * time.Second

// BadgeModule and BadgeStruct name the on-chain badge type.
const (
	BadgeModule = "credit_score_badge"
	BadgeStruct = "CreditBadgeNFT"
)

// Scorer produces scores for display and for claims.
type Scorer interface {
	Score(ctx context.Context, address string, extra json.RawMessage) scoring.Result
	ScoreForClaim(ctx context.Context, address string, extra json.RawMessage) scoring.Result
}

// Attester signs claims. Both the in-process issuer and the remote signer
// client satisfy it.
type Attester interface {
	Issue(ctx context.Context, req claim.Request) (*issuer.Attestation, error)
}

// ChainReader is the part of the chain client the handlers need.
type ChainReader interface {
	ChainIdentifier(ctx context.Context) (string, error)
	OwnedObjects(ctx context.Context, owner, structType string) ([]chain.Object, error)
}

// Contracts are the deployed object ids clients need to build transactions.
type Contracts struct {
	PackageID  string
	ConfigID   string
	StateID    string
	AdminCapID string
}

// Config for the integration handlers.
type Config struct {
	Network   string
	RPCURL    string
	Contracts Contracts
	CORS      httpapi.CORSPolicy
	ClaimTTL  time.Duration
	Now       func() time.Time

	// ChainTimeout bounds the chain reads made directly by the handlers.
	ChainTimeout time.Duration
}

// DefaultCORS allows local web clients on port 3000, directly or over a
// private LAN.
func DefaultCORS() httpapi.CORSPolicy {
	return httpapi.CORSPolicy{
		Origins:  []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		Patterns: httpapi.LANOriginPatterns("3000"),
	}
}

type server struct {
	scorer   Scorer
	attester Attester
	chain    ChainReader
	tiers    *tiers.Catalog
	cfg      Config
	logger   *zap.Logger
}

// New returns the integration API handler with its middleware stack.
func New(scorer Scorer, attester Attester, reader ChainReader, catalog *tiers.Catalog, cfg Config, logger *zap.Logger) http.Handler {
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = DefaultClaimTTL
	}
	if cfg.ChainTimeout <= 0 {
		cfg.ChainTimeout = DefaultChainTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &server{
		scorer:   scorer,
		attester: attester,
		chain:    reader,
		tiers:    catalog,
		cfg:      cfg,
		logger:   logger.Named("integration-api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/score", s.handleScore)
	mux.HandleFunc("POST /api/claim", s.handleClaim)
	mux.HandleFunc("GET /api/nft/{address}", s.handleNFT)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/tiers", s.handleTiers)

	h := httpapi.Chain(mux,
		httpapi.RequestID(),
		httpapi.AccessLog(s.logger),
		httpapi.Recover(s.logger),
		httpapi.CORS(cfg.CORS),
	)
	return otelhttp.NewHandler(h, "integration-api")
}

func (s *server) badgeType() string {
	return s.cfg.Contracts.PackageID + "::" + BadgeModule + "::" + BadgeStruct
}
