// Package ferr defines the typed error taxonomy shared by every analyzer in
// this module: a fatal FormatError that aborts the operation it occurred in,
// and a non-fatal DecodeWarning that is collected and logged but never
// aborts a scan.
package ferr

import (
	"errors"
	"fmt"
)

// Kind classifies the specific way a structure failed to parse.
type Kind int

const (
	// WrongVersion is returned when a structure's version field is
	// outside the range this analyzer understands (e.g. ReFS != 3.x).
	WrongVersion Kind = iota
	// BadSignature is returned when a magic number doesn't match
	// (e.g. an MFT entry missing its "FILE" signature).
	BadSignature
	// UnknownContainerKey classifies a ReFS cluster reference whose
	// container key has no Container Table entry.
	UnknownContainerKey
	// MalformedAttribute is returned when an attribute violates a
	// structural invariant (e.g. a resident-only attribute marked
	// non-resident).
	MalformedAttribute
)

func (k Kind) String() string {
	switch k {
	case WrongVersion:
		return "wrong_version"
	case BadSignature:
		return "bad_signature"
	case UnknownContainerKey:
		return "unknown_container_key"
	case MalformedAttribute:
		return "malformed_attribute"
	default:
		return "unknown"
	}
}

// FormatError is a fatal structural failure scoped to the operation in
// which it was discovered — a missing ReFS signature aborts the volume
// open, a malformed MFT attribute aborts that single entry's recovery, but never
// the rest of the scan.
type FormatError struct {
	Kind   Kind
	Offset int64
	Reason string
	Err    error // wrapped cause, if any
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format error (%s) at offset %d: %s: %v", e.Kind, e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("format error (%s) at offset %d: %s", e.Kind, e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// NewFormatError constructs a FormatError, optionally wrapping a cause.
func NewFormatError(kind Kind, offset int64, reason string, cause error) *FormatError {
	return &FormatError{Kind: kind, Offset: offset, Reason: reason, Err: cause}
}

// DecodeWarning is a recoverable anomaly encountered while walking a
// collection (an MFT entry, a ReFS directory page). It is collected by the
// caller and logged, never propagated as an error return.
type DecodeWarning struct {
	Kind   Kind
	Offset int64
	Entry  uint64 // MFT record number or ReFS index entry ordinal, if applicable
	Reason string
}

func (w DecodeWarning) Error() string {
	return fmt.Sprintf("decode warning (%s) entry=%d offset=%d: %s", w.Kind, w.Entry, w.Offset, w.Reason)
}

// UsageError signals invalid CLI invocation (bad flags, missing required
// argument). cmd/ binaries exit 1 on UsageError and 2 on any other
// returned error (treated as a parse/format failure).
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string { return e.Reason }

// IoError wraps an underlying I/O failure (short read, permission denied,
// device gone) with the offset being accessed when it occurred.
type IoError struct {
	Offset int64
	Err    error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error at offset %d: %v", e.Offset, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// ExitCode maps an error returned from a cmd/ binary's RunE to a process
// exit status: 0 for nil, 1 for a UsageError, 2 for anything else. Every
// cmd/ binary's main calls this on cobra's Execute error so the policy
// lives in one place instead of six copies of the same type switch.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return 1
	}
	return 2
}
