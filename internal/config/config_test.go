package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/trufnetwork/credit-attestation/internal/canonical"
	"github.com/trufnetwork/credit-attestation/internal/httpapi"
	"github.com/trufnetwork/credit-attestation/internal/signer"
)

const testKey = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func TestLoadSigner_Defaults(t *testing.T) {
	cfg, err := LoadSignerFrom(map[string]string{"SIGNER_PRIVATE_KEY": testKey})
	require.NoError(t, err)

	assert.Equal(t, 3002, cfg.Port)
	assert.Equal(t, ":3002", cfg.Addr())
	assert.Equal(t, "testnet", cfg.Network)
	assert.Equal(t, signer.SchemeEd25519, cfg.SignerScheme())
	assert.Equal(t, canonical.EncodingJSON, cfg.MessageEncoding())
	assert.Equal(t, signer.IntentRaw, cfg.SigningIntent())
	assert.Equal(t, 8, cfg.BatchConcurrency)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "env", cfg.KeySource().Describe())

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)
}

func TestLoadSigner_Overrides(t *testing.T) {
	cfg, err := LoadSignerFrom(map[string]string{
		"SIGNER_KEY_SSM_PARAMETER": "/credit/signer",
		"SIGNER_PORT":              "4002",
		"SIGNER_SCHEME":            "secp256k1",
		"MESSAGE_ENCODING":         "bcs",
		"SIGNING_INTENT":           "personal_message",
		"SUI_NETWORK":              "mainnet",
		"LOG_LEVEL":                "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, 4002, cfg.Port)
	assert.Equal(t, signer.SchemeSecp256k1, cfg.SignerScheme())
	assert.Equal(t, canonical.EncodingBCS, cfg.MessageEncoding())
	assert.Equal(t, signer.IntentPersonalMessage, cfg.SigningIntent())
	assert.Equal(t, "mainnet", cfg.Network)
	assert.True(t, cfg.KeySource().NeedsAWS())
}

func TestLoadSigner_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"no key":         {},
		"two keys":       {"SIGNER_PRIVATE_KEY": testKey, "SIGNER_KEY_FILE": "/k"},
		"bad port":       {"SIGNER_PRIVATE_KEY": testKey, "SIGNER_PORT": "70000"},
		"port not a num": {"SIGNER_PRIVATE_KEY": testKey, "SIGNER_PORT": "abc"},
		"bad scheme":     {"SIGNER_PRIVATE_KEY": testKey, "SIGNER_SCHEME": "rsa"},
		"bad encoding":   {"SIGNER_PRIVATE_KEY": testKey, "MESSAGE_ENCODING": "xml"},
		"bad intent":     {"SIGNER_PRIVATE_KEY": testKey, "SIGNING_INTENT": "tx"},
		"bad log level":  {"SIGNER_PRIVATE_KEY": testKey, "LOG_LEVEL": "loud"},
		"zero batch":     {"SIGNER_PRIVATE_KEY": testKey, "BATCH_CONCURRENCY": "0"},
		"bad shutdown":   {"SIGNER_PRIVATE_KEY": testKey, "SHUTDOWN_TIMEOUT": "soon"},
	}
	for name, environ := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSignerFrom(environ)
			require.Error(t, err)
		})
	}
}

func TestLoadIntegration(t *testing.T) {
	cfg, err := LoadIntegrationFrom(map[string]string{
		"PACKAGE_ID":       "0xpkg",
		"CONFIG_OBJECT_ID": "0xcfg",
		"STATE_OBJECT_ID":  "0xstate",
		"ADMIN_CAP_ID":     "0xcap",
	})
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Addr())
	assert.Equal(t, "https://fullnode.testnet.sui.io:443", cfg.RPCURL)
	assert.Equal(t, "http://localhost:5000", cfg.OracleURL)
	assert.Equal(t, "http://localhost:3002", cfg.SignerEndpoint())
	assert.Equal(t, 10*time.Second, cfg.ScoreTimeout)
	assert.Equal(t, 5*time.Second, cfg.ClaimTimeout)
	assert.Equal(t, 5*time.Second, cfg.ChainTimeout)
	assert.Equal(t, time.Hour, cfg.ClaimTTL)
	assert.Equal(t, "0xcap", cfg.Contracts().AdminCapID)

	cfg, err = LoadIntegrationFrom(map[string]string{"SIGNER_API_URL": "http://signer.internal:9000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://signer.internal:9000", cfg.SignerEndpoint())

	_, err = LoadIntegrationFrom(map[string]string{"CLAIM_TTL": "0s"})
	require.Error(t, err)

	_, err = LoadIntegrationFrom(map[string]string{"CHAIN_TIMEOUT": "0s"})
	require.Error(t, err)
}

func TestCORSPolicy(t *testing.T) {
	defaults := httpapi.CORSPolicy{
		Origins:  []string{"http://localhost:3000"},
		Patterns: httpapi.LANOriginPatterns("3000"),
	}

	p := Common{}.CORSPolicy(defaults)
	assert.Equal(t, defaults.Origins, p.Origins)

	p = Common{CORSOrigins: "https://app.example, https://staging.example"}.CORSPolicy(defaults)
	assert.True(t, p.Allowed("https://app.example"))
	assert.False(t, p.Allowed("http://localhost:3000"))
	assert.True(t, p.Allowed("http://192.168.0.4:3000"))
}
