// Package hypocrite is the runtime that code generated by hypogen runs against: mocks
// with call history and return queues, fixtures, and the suite driver that reports
// PASS or FAIL per test.
//
// This is the public API entry point. Implementation lives in internal/core.
package hypocrite

import (
	"io"

	"github.com/toejough/hypocrite/internal/core"
)

// CallRecord is one recorded call to a mock.
type CallRecord = core.CallRecord

// Expectation is one expected call, with wildcard flags for arguments to skip.
type Expectation = core.Expectation

// Fixture is a named setup with an optional teardown.
type Fixture = core.Fixture

// FixtureUse is one fixture reference of a test.
type FixtureUse = core.FixtureUse

// Matcher defines the interface for flexible value matching.
type Matcher = core.Matcher

// Mock records the calls made to one mocked function.
type Mock = core.Mock

// Queue is the default return-value queue.
type Queue = core.Queue

// Result summarizes a suite run.
type Result = core.Result

// ReturnQueue holds the values non-spying mocks return.
type ReturnQueue = core.ReturnQueue

// Run is the test-run context passed to generated code as hypo.
type Run = core.Run

// Suite runs the tests of one generated file.
type Suite = core.Suite

// TestCase is one test with its fixtures and body.
type TestCase = core.TestCase

// Any returns a matcher that matches any value.
func Any() Matcher {
	return core.Any()
}

// ArgAs returns argument idx of rec as T.
func ArgAs[T any](rec CallRecord, idx int) T {
	return core.ArgAs[T](rec, idx)
}

// As converts a stored value back to T; nil yields the zero value.
func As[T any](value any) T {
	return core.As[T](value)
}

// MatchValue checks if actual matches expected.
func MatchValue(actual, expected any) (bool, string) {
	return core.MatchValue(actual, expected)
}

// NewMock creates a spying mock.
func NewMock(name string, argNames ...string) *Mock {
	return core.NewMock(name, argNames...)
}

// NewQueue creates an empty return-value queue.
func NewQueue() *Queue {
	return core.NewQueue()
}

// NewSuite creates a suite reporting to out.
func NewSuite(name string, out io.Writer) *Suite {
	return core.NewSuite(name, out)
}

// Next pops the mock's next queued return value; an empty queue is fatal.
func Next[T any](m *Mock) T {
	return core.Next[T](m)
}

// Satisfies returns a matcher that uses a predicate function to check for a match.
func Satisfies[T any](predicate func(T) error) Matcher {
	return core.Satisfies(predicate)
}
