package retrieval

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors used to classify collaborator failures.
var (
	// ErrUnavailable marks a backing store that could not be reached.
	// The orchestrator recovers from it by degrading to the other sub-search.
	ErrUnavailable = errors.New("dependency unavailable")
	// ErrRateLimited marks a throttled embedding provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidInput marks unusable input text (empty or too long).
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidEmbeddingDimension marks a query vector that does not match
	// the index dimension. This is fatal and surfaced to the caller.
	ErrInvalidEmbeddingDimension = errors.New("invalid embedding dimension")
	// ErrAllBackendsFailed is returned when neither the vector index nor the
	// graph store produced a usable result.
	ErrAllBackendsFailed = errors.New("all retrieval backends failed")
)

// InputError rejects a malformed request before any backend work is done.
// It is never retried.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid retrieval request: " + e.Reason
}

// DependencyError wraps a failure of one of the engine's collaborators.
// Timeout failures are treated identically to unavailability.
type DependencyError struct {
	Dependency string
	Timeout    bool
	Err        error
}

func (e *DependencyError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("dependency %s timed out: %v", e.Dependency, e.Err)
	}
	return fmt.Sprintf("dependency %s failed: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func newDependencyError(dependency string, err error) *DependencyError {
	return &DependencyError{
		Dependency: dependency,
		Timeout:    errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled),
		Err:        err,
	}
}
