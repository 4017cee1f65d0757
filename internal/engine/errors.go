package engine

import (
	"errors"
	"fmt"
)

// Fault reports a failure of the native engine.
//
// A fault is fatal to the instance that raised it: the Handle discards the
// instance and the next call creates a new one. Faults are never retried
// automatically.
type Fault struct {
	// Code identifies the failing lifecycle stage.
	Code FaultCode

	// Op is the operation that failed.
	Op Kind

	// Generation is the instance generation the fault belongs to
	// (1 for the first instance a Handle created).
	Generation uint64

	// Err is the error returned by the native capability.
	Err error
}

// FaultCode categorizes engine faults.
type FaultCode string

const (
	// FaultCreate indicates the engine could not be allocated.
	FaultCreate FaultCode = "CREATE_FAILED"

	// FaultDestroy indicates the engine failed while being released.
	FaultDestroy FaultCode = "DESTROY_FAILED"

	// FaultCall indicates a live engine failed to perform an op.
	FaultCall FaultCode = "CALL_FAILED"
)

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Generation > 0 {
		return fmt.Sprintf("%s: %s (generation=%d): %v", f.Code, f.Op, f.Generation, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Code, f.Op, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault reports whether err is, or wraps, an engine fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

var (
	// ErrUnknownParameter is returned for a named parameter the handle
	// cannot resolve. The engine is not touched.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidOp is returned for ops that cannot be invoked.
	ErrInvalidOp = errors.New("invalid engine op")

	// ErrDispatcherClosed is returned for calls submitted after the
	// dispatcher stopped.
	ErrDispatcherClosed = errors.New("dispatcher closed")
)
