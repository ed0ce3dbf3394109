package signerapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/internal/claim"
	"github.com/trufnetwork/credit-attestation/internal/httpapi"
	"github.com/trufnetwork/credit-attestation/internal/issuer"
)

// maxSafeInteger is the largest integer a float64 JSON reader decodes exactly.
const maxSafeInteger = 1<<53 - 1

// SafeInt is a canonical decimal that marshals as a JSON number when a
// float64 reader can hold it exactly, and as a string otherwise. It accepts
// either form when unmarshalling.
type SafeInt string

func (n SafeInt) MarshalJSON() ([]byte, error) {
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil && u <= maxSafeInteger {
		return []byte(n), nil
	}
	return json.Marshal(string(n))
}

func (n *SafeInt) UnmarshalJSON(b []byte) error {
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = SafeInt(num)
	return nil
}

// ResponseValue is a signed claim as returned to callers. Tier and deadline
// are numbers when small enough; score and nonce are always strings.
type ResponseValue struct {
	To       string  `json:"to"`
	Score    string  `json:"score"`
	TierID   SafeInt `json:"tierId"`
	Nonce    string  `json:"nonce"`
	Deadline SafeInt `json:"deadline"`
}

// NewResponseValue converts a normalised claim to its response form.
func NewResponseValue(v claim.Value) ResponseValue {
	return ResponseValue{
		To:       v.To,
		Score:    v.Score,
		TierID:   SafeInt(v.TierID),
		Nonce:    v.Nonce,
		Deadline: SafeInt(v.Deadline),
	}
}

// SignResponse is the body of a successful /sign.
type SignResponse struct {
	Success       bool          `json:"success"`
	Value         ResponseValue `json:"value"`
	Signature     string        `json:"signature"`
	SignerAddress string        `json:"signerAddress"`
}

// NewSignResponse packages an attestation for the wire.
func NewSignResponse(att *issuer.Attestation) SignResponse {
	return SignResponse{
		Success:       true,
		Value:         NewResponseValue(att.Value),
		Signature:     att.Signature,
		SignerAddress: att.SignerAddress,
	}
}

func (s *server) handleSign(w http.ResponseWriter, r *http.Request) {
	var req claim.Request
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	att, err := s.issuer.Issue(r.Context(), req)
	if err != nil {
		status, body := ErrorResponse(req, err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("signing failed", zap.Error(err))
		}
		httpapi.WriteJSON(w, status, body)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, NewSignResponse(att))
}

// ErrorResponse maps an issuance error to its status code and body.
// Validation failures are 400; anything else is a 500.
func ErrorResponse(req claim.Request, err error) (int, any) {
	var (
		mfe *claim.MissingFieldError
		de  *claim.DeadlineError
		ne  *claim.NumberError
		re  *claim.RangeError
	)
	switch {
	case errors.As(err, &mfe):
		return http.StatusBadRequest, map[string]any{
			"error":    "Missing required parameters",
			"required": claim.RequiredFields,
			"missing":  mfe.Fields,
			"received": req,
		}
	case errors.Is(err, claim.ErrInvalidAddress):
		return http.StatusBadRequest, map[string]any{
			"error":    "Invalid Sui address format",
			"received": req.To,
		}
	case errors.As(err, &de):
		return http.StatusBadRequest, map[string]any{
			"error":       "Deadline has expired",
			"deadline":    req.Deadline,
			"currentTime": de.CurrentTime,
		}
	case errors.As(err, &ne):
		return http.StatusBadRequest, map[string]any{
			"error":    "Invalid numeric field",
			"field":    ne.Field,
			"received": ne.Value,
		}
	case errors.As(err, &re):
		return http.StatusBadRequest, map[string]any{
			"error":    "Field out of range",
			"field":    re.Field,
			"received": re.Value,
			"bits":     re.Bits,
		}
	default:
		return http.StatusInternalServerError, httpapi.ErrorBody{
			Error:   "Failed to sign request",
			Message: err.Error(),
		}
	}
}

func (s *server) handleSignBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if err := httpapi.DecodeJSON(w, r, &body); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	var items []json.RawMessage
	if len(body.Requests) == 0 || body.Requests[0] != '[' || json.Unmarshal(body.Requests, &items) != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "requests must be an array", "")
		return
	}

	results := make([]issuer.BatchResult, len(items))
	reqs := make([]claim.Request, 0, len(items))
	positions := make([]int, 0, len(items))
	for i, item := range items {
		var req claim.Request
		if err := json.Unmarshal(item, &req); err != nil {
			results[i] = issuer.Failed(item, errors.Wrap(err, "invalid request"))
			continue
		}
		reqs = append(reqs, req)
		positions = append(positions, i)
	}

	for i, res := range s.issuer.IssueBatch(r.Context(), reqs) {
		if v, ok := res.Value.(claim.Value); ok && res.Success {
			res.Value = NewResponseValue(v)
		}
		results[positions[i]] = res
	}

	httpapi.WriteJSON(w, http.StatusOK, batchResponse{Success: true, Results: results})
}

type verifyRequest struct {
	Value     *claim.Request `json:"value"`
	Signature string         `json:"signature"`
}

type verifyResponse struct {
	Valid         bool   `json:"valid"`
	SignerAddress string `json:"signerAddress"`
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "Verification failed", err.Error())
		return
	}
	if req.Value == nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "Verification failed", "value is required")
		return
	}

	valid, err := s.issuer.Verify(r.Context(), *req.Value, req.Signature)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "Verification failed", err.Error())
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, verifyResponse{
		Valid:         valid,
		SignerAddress: s.issuer.SignerAddress(),
	})
}
