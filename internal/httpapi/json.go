// Package httpapi holds the HTTP plumbing shared by the signer and
// integration services.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// ErrInvalidJSON is returned by DecodeJSON for any unreadable body.
var ErrInvalidJSON = errors.New("invalid JSON body")

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		zap.L().Debug("failed to write response", zap.Error(err))
	}
}

// ErrorBody is the common error envelope.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError writes {"error": msg, "message": detail}.
func WriteError(w http.ResponseWriter, status int, msg, detail string) {
	WriteJSON(w, status, ErrorBody{Error: msg, Message: detail})
}

// DecodeJSON decodes a bounded request body into v. Trailing data after the
// first value is rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(ErrInvalidJSON, "%v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.Wrap(ErrInvalidJSON, "unexpected data after body")
	}
	return nil
}
