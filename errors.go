package bankloader

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// ErrLocked is returned when another run holds the destination lock.
var ErrLocked = xerrors.New("destination is locked by another run")

// FetchError reports an unreachable source or a malformed payload.
type FetchError struct {
	Source string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString("fetch failed")
	if e.Source != "" {
		b.WriteString(" from " + e.Source)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationKind classifies a ValidationError.
type ValidationKind int

const (
	MissingColumns ValidationKind = iota + 1
	EmptyDataset
	TypeMismatch
	InvalidDomainValue
)

func (k ValidationKind) String() string {
	switch k {
	case MissingColumns:
		return "MissingColumns"
	case EmptyDataset:
		return "EmptyDataset"
	case TypeMismatch:
		return "TypeMismatch"
	case InvalidDomainValue:
		return "InvalidDomainValue"
	default:
		return fmt.Sprintf("ValidationKind(%d)", int(k))
	}
}

// ValidationError reports why a dataset was rejected before any write.
type ValidationError struct {
	Kind ValidationKind

	// Columns lists missing columns for MissingColumns.
	Columns []string

	// Column is the offending column for TypeMismatch and InvalidDomainValue.
	Column string

	// Values holds offending values, distinct and in first-seen order.
	Values []string

	// Row is the 1-based row of the first offending value.
	Row int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingColumns:
		return "missing columns: " + strings.Join(e.Columns, ", ")
	case EmptyDataset:
		return "dataset is empty"
	case TypeMismatch:
		return fmt.Sprintf("column %s is declared INTEGER but has non-integer values %q (first at row %d)",
			e.Column, e.Values, e.Row)
	case InvalidDomainValue:
		return fmt.Sprintf("column %s has values outside its domain: %q (first at row %d)",
			e.Column, e.Values, e.Row)
	default:
		return "validation failed"
	}
}

// Is matches another *ValidationError of the same Kind, so callers can test
// xerrors.Is(err, &ValidationError{Kind: EmptyDataset}).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

// LoadPhase tells how far a load got before it failed.
type LoadPhase int

const (
	// PhaseConnect failures happen before anything is sent to the warehouse.
	PhaseConnect LoadPhase = iota
	PhaseSubmit
	PhaseWait
	PhaseJob
	PhaseVerify
)

func (p LoadPhase) String() string {
	switch p {
	case PhaseConnect:
		return "connect"
	case PhaseSubmit:
		return "submit"
	case PhaseWait:
		return "wait"
	case PhaseJob:
		return "job"
	case PhaseVerify:
		return "verify"
	default:
		return fmt.Sprintf("LoadPhase(%d)", int(p))
	}
}

// LoadJobError reports a failed or unconfirmed warehouse load.
type LoadJobError struct {
	Destination Destination
	Phase       LoadPhase
	JobID       string
	Err         error
}

func (e *LoadJobError) Error() string {
	msg := fmt.Sprintf("load into %s failed during %s", e.Destination, e.Phase)
	if e.JobID != "" {
		msg += " (job " + e.JobID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadJobError) Unwrap() error { return e.Err }

// WriteAttempted reports whether the warehouse may have received data.
func (e *LoadJobError) WriteAttempted() bool {
	return e.Phase != PhaseConnect
}

// NothingWritten reports whether err guarantees the destination was not touched.
// Fetch and validation failures never write; load failures only when they
// happen before submission.
func NothingWritten(err error) bool {
	if err == nil {
		return false
	}
	var le *LoadJobError
	if xerrors.As(err, &le) {
		return !le.WriteAttempted()
	}
	return true
}
