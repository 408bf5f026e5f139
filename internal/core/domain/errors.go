package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a configuration entry could not be used.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownSourceKind indicates a source type outside the supported set.
	ErrUnknownSourceKind = errors.New("unknown source kind")

	// ErrIndexLocked indicates another indexing pass holds the writer lock.
	ErrIndexLocked = errors.New("index is locked by another indexing pass")

	// ErrIndexCorrupt indicates an on-disk shard could not be read.
	// Queries against that source return no hits until it is reindexed.
	ErrIndexCorrupt = errors.New("index is corrupt or unreadable")

	// ErrLLMUnavailable indicates the answer backend is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrFederationUnavailable indicates the Kiwix server could not be reached.
	ErrFederationUnavailable = errors.New("federation backend unavailable")

	// ErrAdapterClosed indicates the adapter has been closed.
	ErrAdapterClosed = errors.New("adapter closed")
)
