package upstream

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrUpstreamUnavailable marks an upstream that could not be reached or answered with
// a server error.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// StatusError is a non-2xx HTTP answer from an upstream.
type StatusError struct {
	Upstream string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	msg := e.Upstream + " returned status " + strconv.Itoa(e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap classifies 5xx and 429 answers as ErrUpstreamUnavailable.
func (e *StatusError) Unwrap() error {
	if e.Code >= 500 || e.Code == 429 {
		return ErrUpstreamUnavailable
	}
	return nil
}

// IsNotFoundError checks if err indicates the upstream has no such resource.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code == 404 {
		return true
	}
	return containsAny(err, NotFoundErrorPatterns)
}

// IsNonRetryableError determines if err should not be retried.
func IsNonRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != 408 && se.Code != 429 {
		return true
	}
	return containsAny(err, NonRetryableErrorPatterns)
}

func containsAny(err error, patterns []string) bool {
	errStr := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
