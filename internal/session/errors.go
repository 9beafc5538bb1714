package session

import "errors"

// Command-level errors surfaced to callers. Anything else the engine
// recovers from locally.
var (
	// ErrRetakeLimitExceeded rejects a retake once the allowance is used up.
	// The attempt state is unchanged.
	ErrRetakeLimitExceeded = errors.New("retake limit exceeded")

	// ErrNotFinished rejects a retake while an attempt is still running.
	ErrNotFinished = errors.New("attempt is not finished")

	// ErrPersistenceWrite reports that a finalized submission could not be
	// durably confirmed. The in-memory result stands; the caller should
	// surface a warning and retry the write.
	ErrPersistenceWrite = errors.New("submission not durably confirmed")
)
