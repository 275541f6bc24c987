// Package match provides matchers for the expected argument values given to
// Mock.CheckCalls. It is designed to be dot-imported alongside gomega matchers, which
// work as expected values unchanged. No exported name here is also exported by gomega:
//
//	import (
//	    . "github.com/onsi/gomega"
//	    . "github.com/toejough/hypocrite/match"
//	)
//
//	MockMalloc.CheckCalls(hypo, []hypocrite.Expectation{
//	    {Args: []any{BeNumerically(">", 0)}},
//	}, 1)
package match

import (
	"github.com/toejough/hypocrite/internal/core"
)

// Matcher defines the interface for flexible value matching.
type Matcher = core.Matcher

// BeAny is a matcher that matches any value.
//
//nolint:gochecknoglobals // Intentional exported constant-like value
var BeAny Matcher = core.Any()

// SatisfyFunc returns a matcher that uses a predicate function to check for a match.
// The predicate should return nil if the value matches, or an error describing
// the mismatch if it does not. Unlike gomega's Satisfy, which takes a bool
// predicate, the error becomes part of the failure report.
func SatisfyFunc[T any](predicate func(T) error) Matcher {
	return core.Satisfies(predicate)
}
