package jsonmerge

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is. Patch failures carry one of these
// inside an *OperationError.
var (
	ErrInvalidPath     = errors.New("invalid path")
	ErrPathNotFound    = errors.New("path not found")
	ErrIndexOutOfRange = errors.New("array index out of range")
	ErrNotContainer    = errors.New("not an object or array")
	ErrTestFailed      = errors.New("test failed")
	ErrUnsupportedOp   = errors.New("unsupported patch operation")
	ErrMissingValue    = errors.New("missing value")
	ErrMalformedPatch  = errors.New("malformed patch")
	ErrMalformedRecord = errors.New("malformed record")
	ErrOutOfOrder      = errors.New("log entries out of order")
	ErrUnknownStrategy = errors.New("unknown conflict strategy")
)

// OperationError reports the operation of a patch that could not be applied.
type OperationError struct {
	// Index is the position of the operation within its patch.
	Index int
	Op    Op
	Path  string
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("patch operation %d (%s %q) failed: %v", e.Index, e.Op, e.Path, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// ReplayError reports the patch of a replay that could not be applied.
type ReplayError struct {
	// Index is the position of the patch within the replayed sequence.
	Index int
	Err   error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay of patch %d failed: %v", e.Index, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }
