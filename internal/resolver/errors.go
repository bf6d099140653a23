package resolver

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindOther ErrorKind = iota
	// KindPermissionDenied is recoverable by rerunning with elevated privileges.
	KindPermissionDenied
	// KindProcessFailure means the configuration command could not start or exited non-zero.
	KindProcessFailure
	// KindIoFailure covers file errors other than permission.
	KindIoFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindProcessFailure:
		return "process_failure"
	case KindIoFailure:
		return "io_failure"
	default:
		return "other"
	}
}

// ApplyError is the only error type an Applier returns.
type ApplyError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ApplyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resolver: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("resolver: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPermissionDenied) and friends match on kind.
func (e *ApplyError) Is(target error) bool {
	var k *kindError
	if errors.As(target, &k) {
		return k.kind == e.Kind
	}
	return false
}

type kindError struct{ kind ErrorKind }

func (k *kindError) Error() string { return "resolver: " + k.kind.String() }

var (
	ErrPermissionDenied error = &kindError{KindPermissionDenied}
	ErrProcessFailure   error = &kindError{KindProcessFailure}
	ErrIoFailure        error = &kindError{KindIoFailure}
)

func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }

// KindOf returns the ErrorKind carried by err, or KindOther.
func KindOf(err error) ErrorKind {
	var ae *ApplyError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindOther
}
