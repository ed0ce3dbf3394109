package app

import (
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/internal/config"
)

// newLogger builds a production logger at the configured level and installs
// it as the global logger.
func newLogger(c config.Common) (*zap.Logger, error) {
	lvl, err := c.Level()
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger.With(zap.String("network", c.Network)), nil
}
