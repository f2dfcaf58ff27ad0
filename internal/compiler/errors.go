package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// ParseError represents a malformed manifest, with source position when
// CUE provides one.
type ParseError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UnknownHandleTypeError is returned when a function references a handle
// type that the same manifest does not declare.
type UnknownHandleTypeError struct {
	Function string
	Field    string
	Type     string
}

func (e *UnknownHandleTypeError) Error() string {
	return fmt.Sprintf("function.%s.%s: unknown handle type %q", e.Function, e.Field, e.Type)
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsUnknownHandleType reports whether err is, or wraps, an *UnknownHandleTypeError.
func IsUnknownHandleType(err error) bool {
	var ue *UnknownHandleTypeError
	return errors.As(err, &ue)
}
