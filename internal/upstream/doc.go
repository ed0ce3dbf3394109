// Package upstream classifies failures from the services the integration API
// depends on: the scoring oracle, the Sui full node and the signer API.
//
// Errors fall into three groups:
//
//   - Non-retryable: authentication failures, malformed requests and invalid
//     configuration. Retrying cannot help, so callers fail fast.
//   - Not found: the upstream answered but has no data for the subject.
//     Callers degrade to an empty result.
//   - Everything else is transient and may be retried with backoff.
//
// Usage:
//
//	if err != nil {
//	    if upstream.IsNotFoundError(err) {
//	        return emptyResult, nil
//	    }
//	    if upstream.IsNonRetryableError(err) {
//	        return nil, backoff.Permanent(err)
//	    }
//	    return nil, err
//	}
package upstream
