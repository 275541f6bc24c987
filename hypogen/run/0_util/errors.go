// Package util holds the pieces every hypogen stage shares: the error taxonomy,
// source positions and identifier decoration.
package util

import (
	"errors"
	"fmt"
)

// Structs - Public

// Position identifies a line in a source file. The zero value means unknown.
type Position struct {
	File string
	Line int
}

// IsValid reports whether the position carries any location information.
func (p Position) IsValid() bool {
	return p.File != "" || p.Line > 0
}

// String renders the position as file:line, omitting whatever is unknown.
func (p Position) String() string {
	switch {
	case p.File != "" && p.Line > 0:
		return fmt.Sprintf("%s:%d", p.File, p.Line)
	case p.File != "":
		return p.File
	case p.Line > 0:
		return fmt.Sprintf("line %d", p.Line)
	default:
		return "<unknown>"
	}
}

// PosError attaches a source position to an error.
type PosError struct {
	Pos Position
	Err error
}

// Error renders the position followed by the wrapped error.
func (e *PosError) Error() string {
	if !e.Pos.IsValid() {
		return e.Err.Error()
	}

	return e.Pos.String() + ": " + e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *PosError) Unwrap() error {
	return e.Err
}

// Functions - Public

// Errorf builds a positioned error whose message is kind followed by the formatted detail.
// The result matches kind with errors.Is.
func Errorf(pos Position, kind error, format string, args ...any) error {
	return &PosError{Pos: pos, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

// IsSyntax reports whether err stems from malformed input text.
func IsSyntax(err error) bool {
	return errors.Is(err, ErrSyntax)
}

// IsValidation reports whether err stems from a semantic problem in an otherwise well formed specification.
func IsValidation(err error) bool {
	return errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrUnknownFixtureReference) ||
		errors.Is(err, ErrMalformedArgumentList) ||
		errors.Is(err, ErrInvalidIdentifier)
}

// IsExpansion reports whether err stems from a template referencing something that is not there.
func IsExpansion(err error) bool {
	return errors.Is(err, ErrUnknownFragment) ||
		errors.Is(err, ErrUnknownFilter) ||
		errors.Is(err, ErrUnboundVariable) ||
		errors.Is(err, ErrCompositionCycle) ||
		errors.Is(err, ErrTypeMismatch)
}

// Exported variables.
var (
	// ErrSyntax marks malformed specification or fragment-library text.
	ErrSyntax = errors.New("syntax error")
	// ErrUnknownFragment marks a reference to a fragment or section that was never registered.
	ErrUnknownFragment = errors.New("unknown fragment")
	// ErrUnknownFilter marks a filter name with no implementation.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrUnboundVariable marks a variable that no context frame binds.
	ErrUnboundVariable = errors.New("unbound variable")
	// ErrCompositionCycle marks a fragment that, directly or not, composes itself.
	ErrCompositionCycle = errors.New("composition cycle")
	// ErrTypeMismatch marks a template value used as something it is not, e.g. looping over a string.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrDuplicateName marks two declarations of one kind sharing a name.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrDuplicateFragment marks a fragment name registered twice.
	ErrDuplicateFragment = fmt.Errorf("%w: fragment", ErrDuplicateName)
	// ErrUnknownFixtureReference marks a test naming a fixture that was never declared.
	ErrUnknownFixtureReference = errors.New("unknown fixture reference")
	// ErrMalformedArgumentList marks an argument list with a missing type or name, or a repeated name.
	ErrMalformedArgumentList = errors.New("malformed argument list")
	// ErrInvalidIdentifier marks a name that cannot become a Go identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)
