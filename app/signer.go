package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/cmd/version"
	"github.com/trufnetwork/credit-attestation/internal/config"
	"github.com/trufnetwork/credit-attestation/internal/httpapi"
	"github.com/trufnetwork/credit-attestation/internal/issuer"
	"github.com/trufnetwork/credit-attestation/internal/keysource"
	"github.com/trufnetwork/credit-attestation/internal/metrics"
	"github.com/trufnetwork/credit-attestation/internal/signer"
	"github.com/trufnetwork/credit-attestation/internal/signerapi"
)

func newSignerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signer",
		Short: "Run the signer API",
		Long: `Run the signer API. The signing key is read once at startup from
SIGNER_PRIVATE_KEY, SIGNER_KEY_FILE (a path or s3:// URI) or
SIGNER_KEY_SSM_PARAMETER; exactly one must be set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSigner()
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

			return runSigner(ctx, cfg, logger)
		},
	}
}

func runSigner(ctx context.Context, cfg config.Signer, logger *zap.Logger) error {
	iss, err := NewIssuer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	handler := signerapi.New(iss, signerapi.Config{
		Network: cfg.Network,
		CORS:    cfg.CORSPolicy(signerapi.DefaultCORS()),
	}, logger)

	srvCfg := httpapi.DefaultServerConfig(cfg.Addr())
	srvCfg.ShutdownTimeout = cfg.ShutdownTimeout
	return httpapi.Serve(ctx, srvCfg, handler, logger)
}

// NewIssuer loads the signing key named by cfg and builds an Issuer around it.
// The raw key bytes are zeroed once the signer has been constructed.
func NewIssuer(ctx context.Context, cfg config.Signer, logger *zap.Logger) (*issuer.Issuer, error) {
	src := cfg.KeySource()

	loader := &keysource.Loader{}
	if src.NeedsAWS() {
		var err error
		if loader, err = keysource.NewAWSLoader(cfg.AWSRegion); err != nil {
			return nil, err
		}
	}

	key, err := loader.Load(ctx, src)
	if err != nil {
		return nil, errors.Wrapf(err, "load signing key from %s", src.Describe())
	}
	defer clear(key)

	s, err := signer.New(cfg.SignerScheme(), key, cfg.SigningIntent())
	if err != nil {
		return nil, errors.Wrap(err, "create signer")
	}

	iss, err := issuer.New(s, cfg.MessageEncoding(),
		issuer.WithLogger(logger),
		issuer.WithMetrics(metrics.NewRecorder(logger)),
		issuer.WithBatchConcurrency(cfg.BatchConcurrency))
	if err != nil {
		return nil, err
	}

	logger.Info("signer ready",
		zap.String("version", version.String()),
		zap.String("address", iss.SignerAddress()),
		zap.String("scheme", string(iss.Scheme())),
		zap.String("encoding", string(iss.Encoding())),
		zap.String("key_source", src.Describe()))
	return iss, nil
}
