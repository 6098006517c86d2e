package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the analysis core. Callers classify with
// errors.Is; transport layers map these onto status codes.
var (
	// ErrBadInput is caller-facing and never retried.
	ErrBadInput = errors.New("bad input")

	// ErrNotFound covers unknown session and part lookups.
	ErrNotFound = errors.New("not found")

	// ErrNotReady is returned for report reads before all selected parts
	// reached a terminal state.
	ErrNotReady = errors.New("not ready")

	// ErrStoreUnavailable is transient graph/vector infrastructure loss,
	// retried by the caller with exponential backoff before surfacing.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrLLMTransient covers rate limits, timeouts and 5xx responses.
	ErrLLMTransient = errors.New("llm transient error")

	// ErrLLMPermanent covers invalid requests and auth failures; the
	// current item falls back, the part continues.
	ErrLLMPermanent = errors.New("llm permanent error")

	// ErrRetrievalUnavailable means every sub-retriever failed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrExtractorBusy signals concept-extractor rate limiting.
	ErrExtractorBusy = errors.New("extractor busy")
)

// Faultf wraps a sentinel with a formatted reason.
func Faultf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
