// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trufnetwork/credit-attestation/internal/canonical"
	"github.com/trufnetwork/credit-attestation/internal/httpapi"
	"github.com/trufnetwork/credit-attestation/internal/integrationapi"
	"github.com/trufnetwork/credit-attestation/internal/keysource"
	"github.com/trufnetwork/credit-attestation/internal/signer"
)

const (
	MinPortNumber = 1
	MaxPortNumber = 65535
)

// Common settings shared by both services.
type Common struct {
	Network         string        `env:"SUI_NETWORK" envDefault:"testnet"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	TiersFile       string        `env:"TIERS_FILE"`
	CORSOrigins     string        `env:"CORS_ORIGINS"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// CORSPolicy returns defaults with the configured origin list, when set,
// replacing the default origins. The private LAN patterns always apply.
func (c Common) CORSPolicy(defaults httpapi.CORSPolicy) httpapi.CORSPolicy {
	if origins := httpapi.SplitOrigins(c.CORSOrigins); len(origins) > 0 {
		defaults.Origins = origins
	}
	return defaults
}

// Level parses LogLevel.
func (c Common) Level() (zapcore.Level, error) {
	lvl, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, errors.Wrapf(err, "invalid LOG_LEVEL %q", c.LogLevel)
	}
	return lvl.Level(), nil
}

// Signer configures the signer API and the signing Lambda.
type Signer struct {
	Common

	Host string `env:"SIGNER_HOST"`
	Port int    `env:"SIGNER_PORT" envDefault:"3002"`

	// Exactly one key source must be set. The private key variable is cleared
	// from the process environment once read.
	PrivateKey      string `env:"SIGNER_PRIVATE_KEY,unset"`
	KeyFile         string `env:"SIGNER_KEY_FILE"`
	KeySSMParameter string `env:"SIGNER_KEY_SSM_PARAMETER"`
	AWSRegion       string `env:"AWS_REGION"`

	Scheme           string `env:"SIGNER_SCHEME" envDefault:"ed25519"`
	Encoding         string `env:"MESSAGE_ENCODING" envDefault:"json"`
	Intent           string `env:"SIGNING_INTENT" envDefault:"raw"`
	BatchConcurrency int    `env:"BATCH_CONCURRENCY" envDefault:"8"`
}

// Addr is the listen address.
func (s Signer) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// KeySource describes where the signing key lives.
func (s Signer) KeySource() keysource.Source {
	return keysource.Source{
		Hex:          s.PrivateKey,
		File:         s.KeyFile,
		SSMParameter: s.KeySSMParameter,
	}
}

// SignerScheme, MessageEncoding and SigningIntent return the parsed values.
// Validate has already rejected anything they could fail on.
func (s Signer) SignerScheme() signer.Scheme {
	scheme, _ := signer.ParseScheme(s.Scheme)
	return scheme
}

func (s Signer) MessageEncoding() canonical.Encoding {
	enc, _ := canonical.ParseEncoding(s.Encoding)
	return enc
}

func (s Signer) SigningIntent() signer.Intent {
	intent, _ := signer.ParseIntent(s.Intent)
	return intent
}

// Validate checks the signer configuration.
func (s Signer) Validate() error {
	if err := validateCommon(s.Common); err != nil {
		return err
	}
	if err := validatePort("SIGNER_PORT", s.Port); err != nil {
		return err
	}
	if _, err := signer.ParseScheme(s.Scheme); err != nil {
		return errors.Wrap(err, "SIGNER_SCHEME")
	}
	if _, err := canonical.ParseEncoding(s.Encoding); err != nil {
		return errors.Wrap(err, "MESSAGE_ENCODING")
	}
	if _, err := signer.ParseIntent(s.Intent); err != nil {
		return errors.Wrap(err, "SIGNING_INTENT")
	}
	if s.BatchConcurrency < 1 {
		return errors.Errorf("BATCH_CONCURRENCY must be positive, got %d", s.BatchConcurrency)
	}

	src := s.KeySource()
	switch n := countSet(src.Hex, src.File, src.SSMParameter); {
	case n == 0:
		return errors.New("one of SIGNER_PRIVATE_KEY, SIGNER_KEY_FILE or SIGNER_KEY_SSM_PARAMETER is required")
	case n > 1:
		return errors.New("only one of SIGNER_PRIVATE_KEY, SIGNER_KEY_FILE or SIGNER_KEY_SSM_PARAMETER may be set")
	}
	return nil
}

// Integration configures the integration API.
type Integration struct {
	Common

	Host string `env:"API_HOST"`
	Port int    `env:"API_PORT" envDefault:"3001"`

	RPCURL     string `env:"SUI_RPC_URL" envDefault:"https://fullnode.testnet.sui.io:443"`
	OracleURL  string `env:"AI_SERVICE_URL" envDefault:"http://localhost:5000"`
	SignerURL  string `env:"SIGNER_API_URL"`
	SignerPort int    `env:"SIGNER_PORT" envDefault:"3002"`

	PackageID      string `env:"PACKAGE_ID"`
	ConfigObjectID string `env:"CONFIG_OBJECT_ID"`
	StateObjectID  string `env:"STATE_OBJECT_ID"`
	AdminCapID     string `env:"ADMIN_CAP_ID"`

	ChainTimeout  time.Duration `env:"CHAIN_TIMEOUT" envDefault:"5s"`
	ScoreTimeout  time.Duration `env:"ORACLE_SCORE_TIMEOUT" envDefault:"10s"`
	ClaimTimeout  time.Duration `env:"ORACLE_CLAIM_TIMEOUT" envDefault:"5s"`
	SignerTimeout time.Duration `env:"SIGNER_TIMEOUT" envDefault:"10s"`
	ClaimTTL      time.Duration `env:"CLAIM_TTL" envDefault:"1h"`
}

// Addr is the listen address.
func (i Integration) Addr() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

// SignerEndpoint is SIGNER_API_URL, or the signer on localhost.
func (i Integration) SignerEndpoint() string {
	if i.SignerURL != "" {
		return strings.TrimRight(i.SignerURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", i.SignerPort)
}

// Contracts returns the deployed object ids.
func (i Integration) Contracts() integrationapi.Contracts {
	return integrationapi.Contracts{
		PackageID:  i.PackageID,
		ConfigID:   i.ConfigObjectID,
		StateID:    i.StateObjectID,
		AdminCapID: i.AdminCapID,
	}
}

// Validate checks the integration configuration.
func (i Integration) Validate() error {
	if err := validateCommon(i.Common); err != nil {
		return err
	}
	if err := validatePort("API_PORT", i.Port); err != nil {
		return err
	}
	if err := validatePort("SIGNER_PORT", i.SignerPort); err != nil {
		return err
	}
	if i.RPCURL == "" {
		return errors.New("SUI_RPC_URL cannot be empty")
	}
	for name, d := range map[string]time.Duration{
		"CHAIN_TIMEOUT":        i.ChainTimeout,
		"ORACLE_SCORE_TIMEOUT": i.ScoreTimeout,
		"ORACLE_CLAIM_TIMEOUT": i.ClaimTimeout,
		"SIGNER_TIMEOUT":       i.SignerTimeout,
		"CLAIM_TTL":            i.ClaimTTL,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// LoadSigner parses and validates the signer configuration from the process
// environment.
func LoadSigner() (Signer, error) {
	return LoadSignerFrom(nil)
}

// LoadSignerFrom is LoadSigner over an explicit environment. A nil map reads
// the process environment.
func LoadSignerFrom(environ map[string]string) (Signer, error) {
	cfg, err := env.ParseAsWithOptions[Signer](options(environ))
	if err != nil {
		return Signer{}, errors.Wrap(err, "parse signer config")
	}
	return cfg, cfg.Validate()
}

// LoadIntegration parses and validates the integration configuration from the
// process environment.
func LoadIntegration() (Integration, error) {
	return LoadIntegrationFrom(nil)
}

// LoadIntegrationFrom is LoadIntegration over an explicit environment.
func LoadIntegrationFrom(environ map[string]string) (Integration, error) {
	cfg, err := env.ParseAsWithOptions[Integration](options(environ))
	if err != nil {
		return Integration{}, errors.Wrap(err, "parse integration config")
	}
	return cfg, cfg.Validate()
}

func options(environ map[string]string) env.Options {
	if environ == nil {
		return env.Options{}
	}
	return env.Options{Environment: environ}
}

func validateCommon(c Common) error {
	if c.Network == "" {
		return errors.New("SUI_NETWORK cannot be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.ShutdownTimeout <= 0 {
		return errors.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

func validatePort(name string, port int) error {
	if port < MinPortNumber || port > MaxPortNumber {
		return errors.Errorf("%s must be between %d and %d, got %d", name, MinPortNumber, MaxPortNumber, port)
	}
	return nil
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}
