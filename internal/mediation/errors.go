package mediation

import (
	"errors"
	"fmt"
)

// FatalCode tags unrecoverable misconfiguration.
const FatalCode uint32 = 0xDEADDEAD

var (
	// ErrSdkNotInitialized means an ad unit operation ran before the SDK
	// reported that initialization completed.
	ErrSdkNotInitialized = errors.New("SDK is not initialized")
	// ErrMissingAdUnitID means InitializeSdk was called without an ad unit id.
	ErrMissingAdUnitID = errors.New("SDK configuration has no ad unit id")
)

// FatalError is the panic value raised for misconfiguration. It aborts the
// calling flow; nothing in the coordinator recovers from it.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal 0x%X during %s: %v", FatalCode, e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(op string, err error) {
	panic(&FatalError{Op: op, Err: err})
}
