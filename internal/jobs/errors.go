package jobs

import "errors"

var (
	ErrNotFound = errors.New("job not found")
	// ErrNotClaimed indicates a worker operation on a job it does not hold.
	ErrNotClaimed = errors.New("job not claimed by this worker")
	// ErrTerminal indicates an attempted transition out of a final state.
	ErrTerminal = errors.New("job already in terminal state")
	// ErrNotCancellable indicates a cancel request on a terminal job.
	ErrNotCancellable = errors.New("job cannot be cancelled")
)
