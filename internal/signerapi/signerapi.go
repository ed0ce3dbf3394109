// Package signerapi serves the attestation issuer over HTTP.
package signerapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/internal/httpapi"
	"github.com/trufnetwork/credit-attestation/internal/issuer"
)

// ServiceName is reported by /health.
const ServiceName = "Sui Signer API"

// Config holds the settings the handlers report or enforce.
type Config struct {
	Network string
	CORS    httpapi.CORSPolicy
}

// DefaultCORS allows local web clients and the integration API on ports
// 3000 and 3001, directly or over a private LAN.
func DefaultCORS() httpapi.CORSPolicy {
	return httpapi.CORSPolicy{
		Origins: []string{
			"http://localhost:3000",
			"http://localhost:3001",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:3001",
		},
		Patterns: httpapi.LANOriginPatterns("300[0-1]"),
	}
}

type server struct {
	issuer  *issuer.Issuer
	network string
	logger  *zap.Logger
}

// New returns the signer API handler with its middleware stack.
func New(iss *issuer.Issuer, cfg Config, logger *zap.Logger) http.Handler {
	s := &server{
		issuer:  iss,
		network: cfg.Network,
		logger:  logger.Named("signer-api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /sign", s.handleSign)
	mux.HandleFunc("POST /sign-batch", s.handleSignBatch)
	mux.HandleFunc("POST /verify", s.handleVerify)

	h := httpapi.Chain(mux,
		httpapi.RequestID(),
		httpapi.AccessLog(s.logger),
		httpapi.Recover(s.logger),
		httpapi.CORS(cfg.CORS),
	)
	return otelhttp.NewHandler(h, "signer-api")
}

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Network       string `json:"network"`
	SignerAddress string `json:"signerAddress"`
	Scheme        string `json:"scheme"`
	Encoding      string `json:"encoding"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Service:       ServiceName,
		Network:       s.network,
		SignerAddress: s.issuer.SignerAddress(),
		Scheme:        string(s.issuer.Scheme()),
		Encoding:      string(s.issuer.Encoding()),
	})
}

type batchRequest struct {
	Requests json.RawMessage `json:"requests"`
}

type batchResponse struct {
	Success bool                 `json:"success"`
	Results []issuer.BatchResult `json:"results"`
}
