// Package errs collects the typed, sentinel error values that cross the
// write path, read path, and subscription engine boundaries described in
// spec.md §7. Callers compare against these with errors.Is (they work
// with github.com/pkg/errors' Wrap/Wrapf, which preserve the Is chain).
package errs

import "github.com/pkg/errors"

var (
	// ErrOutOfOrder is returned when a write violates height or parent
	// ordering. Repository state is left unchanged.
	ErrOutOfOrder = errors.New("update out of order")

	// ErrNoLiquidKeyBlock is returned by AppendMicroBlock when there is
	// no liquid key block to append to.
	ErrNoLiquidKeyBlock = errors.New("no liquid key block")

	// ErrInconsistentRollback is returned when a rollback's target id
	// does not match the persisted block at the target height.
	ErrInconsistentRollback = errors.New("inconsistent rollback")

	// ErrCorruptRecord is returned when the codec fails to decode a
	// persisted or in-flight payload.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrStorageError wraps durable read/write failures from the log.
	ErrStorageError = errors.New("storage error")

	// ErrSlowConsumer is returned to a subscription that could not keep
	// up with the recent-updates buffer and was severed.
	ErrSlowConsumer = errors.New("slow consumer")

	// ErrOutOfRange is returned when Stream is started past the tip.
	ErrOutOfRange = errors.New("stream start out of range")

	// ErrStreamFailed marks a terminal internal error (codec or storage)
	// that ended a subscription. The reported error wraps ErrStreamFailed
	// and carries the internal error's message, not the error itself.
	ErrStreamFailed = errors.New("stream failed")
)

// storageError tags an underlying storage failure with ErrStorageError
// while preserving the original error for unwrapping and logging.
type storageError struct {
	cause error
}

func (e *storageError) Error() string { return "storage error: " + e.cause.Error() }
func (e *storageError) Unwrap() error { return e.cause }
func (e *storageError) Is(target error) bool { return target == ErrStorageError }

// Storage wraps err, if non-nil, so that errors.Is(Storage(err), ErrStorageError)
// is true while the original error remains reachable via errors.Unwrap.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return &storageError{cause: err}
}
