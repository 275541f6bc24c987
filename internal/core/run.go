package core

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Run is the context of one suite run. Generated test bodies, fixture setups and
// teardowns receive it as hypo. It carries two flags: FAIL, which marks the current
// test failed and is cleared before the next test, and FATAL, which aborts the current
// body and stops the run.
type Run struct {
	suite string
	test  string
	notes []string
	fail  bool
	fatal bool
}

// Assert fails the current test with the formatted message unless cond holds. It
// returns cond.
func (r *Run) Assert(cond bool, format string, args ...any) bool {
	if !cond {
		r.fail = true
		r.note(callerDepth, format, args...)
	}

	return cond
}

// Errorf records a failure of the current test. The body keeps running.
func (r *Run) Errorf(format string, args ...any) {
	r.fail = true
	r.note(callerDepth, format, args...)
}

// Failed reports whether the current test has failed so far.
func (r *Run) Failed() bool {
	return r.fail
}

// Fatal reports whether a fatal error has stopped the run.
func (r *Run) Fatal() bool {
	return r.fatal
}

// Fatalf records a failure, aborts the current body, setup or teardown, and stops the
// run once the current test's fixtures are torn down.
func (r *Run) Fatalf(format string, args ...any) {
	r.fail = true
	r.fatal = true
	r.note(callerDepth, format, args...)

	panic(abort{})
}

// Helper exists so a Run can stand in where a test reporter is expected.
func (r *Run) Helper() {}

// Suite returns the name of the running suite.
func (r *Run) Suite() string {
	return r.suite
}

// Test returns the name of the running test.
func (r *Run) Test() string {
	return r.test
}

func (r *Run) begin(test string) {
	r.test = test
	r.notes = nil
	r.fail = false
}

// errorf records a failure without a source location.
func (r *Run) errorf(format string, args ...any) {
	r.fail = true
	r.notes = append(r.notes, fmt.Sprintf(format, args...))
}

func (r *Run) note(depth int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	if _, file, line, ok := runtime.Caller(depth); ok {
		msg = fmt.Sprintf("%s:%d: %s", filepath.Base(file), line, msg)
	}

	r.notes = append(r.notes, msg)
}

// abort is the panic value Fatalf unwinds with.
type abort struct{}

// unexported constants.
const (
	// callerDepth skips note and the exported reporting method.
	callerDepth = 2
)
