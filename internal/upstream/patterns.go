package upstream

// Non-retryable error patterns. These indicate permanent failures.
const (
	ErrPatternPermissionDenied = "permission denied"
	ErrPatternInvalidConfig    = "invalid configuration"
	ErrPatternContextCanceled  = "context canceled"
	ErrPatternUnauthorized     = "unauthorized"
	ErrPatternForbidden        = "forbidden"
	ErrPatternMalformed        = "malformed"
	ErrPatternInvalidParams    = "invalid params"
	ErrPatternInvalidParamsRPC = "invalid argument"
	ErrPatternMethodNotFound   = "method not found"
	ErrPatternBadRequest       = "bad request"
)

// Not-found error patterns. These indicate missing resources.
const (
	ErrPatternNotFound     = "not found"
	ErrPatternDoesNotExist = "does not exist"
	ErrPatternNoData       = "no data"
)

// NonRetryableErrorPatterns contains every pattern that should not be retried.
var NonRetryableErrorPatterns = []string{
	ErrPatternPermissionDenied,
	ErrPatternInvalidConfig,
	ErrPatternContextCanceled,
	ErrPatternUnauthorized,
	ErrPatternForbidden,
	ErrPatternMalformed,
	ErrPatternInvalidParams,
	ErrPatternInvalidParamsRPC,
	ErrPatternMethodNotFound,
	ErrPatternBadRequest,
}

// NotFoundErrorPatterns contains every pattern that indicates a missing resource.
var NotFoundErrorPatterns = []string{
	ErrPatternNotFound,
	ErrPatternDoesNotExist,
	ErrPatternNoData,
}
