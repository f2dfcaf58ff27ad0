package engine

import (
	"errors"
	"fmt"
)

// ViolationKind categorizes lifecycle violations.
type ViolationKind string

const (
	// UseAfterRelease: argument bound to a Released instance.
	UseAfterRelease ViolationKind = "UseAfterRelease"

	// DoubleRelease: consumes call on an already Released instance.
	DoubleRelease ViolationKind = "DoubleRelease"

	// TypeMismatch: bound instance's handle type differs from the parameter's.
	TypeMismatch ViolationKind = "TypeMismatch"

	// DanglingAliasUse: alias used after its owner was released.
	DanglingAliasUse ViolationKind = "DanglingAliasUse"

	// AliasRelease: an alias was consumed and its type does not allow it.
	AliasRelease ViolationKind = "AliasRelease"

	// UnboundHandle: handle parameter bound to a variable that names no instance.
	UnboundHandle ViolationKind = "UnboundHandle"

	// UnreleasedResource: instance of a release-requiring type still Live at the end.
	UnreleasedResource ViolationKind = "UnreleasedResource"

	// PoisonedUse: permissive replay referenced an instance poisoned by an
	// earlier violation. The message names the poisoning kind.
	PoisonedUse ViolationKind = "PoisonedUse"
)

// EndOfSequence is the call index reported for violations found after the
// last call.
const EndOfSequence = -1

// Violation is one detected misuse of a handle.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Call     int           `json:"call"`
	Line     int           `json:"line,omitempty"`
	Function string        `json:"function,omitempty"`
	Var      string        `json:"var,omitempty"`
	Instance int           `json:"instance"`
	Message  string        `json:"message"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	if v.Call == EndOfSequence {
		return fmt.Sprintf("%s: %s", v.Kind, v.Message)
	}
	return fmt.Sprintf("%s at call #%d %s: %s", v.Kind, v.Call, v.Function, v.Message)
}

// UnknownSymbolError records a call to a function absent from the model.
// It is reported per sequence and never aborts a batch.
type UnknownSymbolError struct {
	Call     int    `json:"call"`
	Line     int    `json:"line,omitempty"`
	Function string `json:"function"`
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q at call #%d", e.Function, e.Call)
}

// IsViolation reports whether err is, or wraps, a Violation of the given kind.
func IsViolation(err error, kind ViolationKind) bool {
	var v Violation
	if errors.As(err, &v) {
		return v.Kind == kind
	}
	return false
}

// CountKind returns how many violations have the given kind.
func CountKind(vs []Violation, kind ViolationKind) int {
	n := 0
	for _, v := range vs {
		if v.Kind == kind {
			n++
		}
	}
	return n
}
