package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/internal/chain"
	"github.com/trufnetwork/credit-attestation/internal/config"
	"github.com/trufnetwork/credit-attestation/internal/httpapi"
	"github.com/trufnetwork/credit-attestation/internal/integrationapi"
	"github.com/trufnetwork/credit-attestation/internal/metrics"
	"github.com/trufnetwork/credit-attestation/internal/scoring"
	"github.com/trufnetwork/credit-attestation/internal/signerclient"
	"github.com/trufnetwork/credit-attestation/internal/tiers"
)

func newIntegrationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integration",
		Short: "Run the integration API that scores addresses and requests attestations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadIntegration()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Common)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runIntegration(ctx, cfg, logger)
		},
	}
}

func runIntegration(ctx context.Context, cfg config.Integration, logger *zap.Logger) error {
	catalog, err := tiers.Load(cfg.TiersFile)
	if err != nil {
		return err
	}
	recorder := metrics.NewRecorder(logger)

	node, err := chain.Dial(ctx, cfg.RPCURL,
		chain.WithLogger(logger),
		chain.WithMetrics(recorder),
		chain.WithRequestTimeout(cfg.ChainTimeout))
	if err != nil {
		return err
	}
	defer node.Close()

	oracle := scoring.NewOracle(cfg.OracleURL, &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, logger, recorder)

	scorer := scoring.NewService(node, oracle, catalog,
		scoring.WithLogger(logger),
		scoring.WithMetrics(recorder),
		scoring.WithTimeouts(cfg.ScoreTimeout, cfg.ClaimTimeout),
		scoring.WithChainTimeout(cfg.ChainTimeout))

	attester := signerclient.New(cfg.SignerEndpoint(), &http.Client{
		Timeout:   cfg.SignerTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, recorder)

	handler := integrationapi.New(scorer, attester, node, catalog, integrationapi.Config{
		Network:   cfg.Network,
		RPCURL:    cfg.RPCURL,
		Contracts: cfg.Contracts(),
		CORS:      cfg.CORSPolicy(integrationapi.DefaultCORS()),
		ClaimTTL:  cfg.ClaimTTL,

		ChainTimeout: cfg.ChainTimeout,
	}, logger)

	logger.Info("integration api ready",
		zap.String("rpc", cfg.RPCURL),
		zap.String("oracle", cfg.OracleURL),
		zap.String("signer", cfg.SignerEndpoint()),
		zap.String("package", cfg.PackageID))

	srvCfg := httpapi.DefaultServerConfig(cfg.Addr())
	srvCfg.ShutdownTimeout = cfg.ShutdownTimeout
	return httpapi.Serve(ctx, srvCfg, handler, logger)
}
