package util

import (
	"go/token"

	"github.com/iancoleman/strcase"
)

// Functions - Public

// Decorate returns the exported-style form of name that generated symbols embed,
// e.g. "alloc_fails" becomes "AllocFails".
func Decorate(name string) string {
	return strcase.ToCamel(name)
}

// IsIdentifier reports whether name is usable as a Go identifier in generated code.
// Keywords and the blank identifier are rejected.
func IsIdentifier(name string) bool {
	return name != "_" && token.IsIdentifier(name)
}
