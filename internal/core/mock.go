package core

import (
	"fmt"
	"sync"
)

// CallRecord is one recorded call: where it was made from and a snapshot of its
// arguments in declaration order.
type CallRecord struct {
	File string
	Line int
	Args []any
}

// Expectation is one expected call. An argument whose bit is set in AnyFlags is never
// compared; bit i belongs to argument i.
type Expectation struct {
	AnyFlags uint64
	Args     []any
}

// Mock records the calls made to one mocked function and supplies its return values
// when it is not spying.
type Mock struct {
	name     string
	argNames []string

	mu    sync.Mutex
	spy   bool
	calls []CallRecord
	queue ReturnQueue
	run   *Run
}

// NewMock creates a spying mock with its own return-value queue.
func NewMock(name string, argNames ...string) *Mock {
	return &Mock{name: name, argNames: argNames, spy: true, queue: NewQueue()}
}

// Arg returns the named argument of the i-th recorded call.
func (m *Mock) Arg(i int, name string) any {
	rec := m.Call(i)

	for idx, argName := range m.argNames {
		if argName == name {
			return rec.Args[idx]
		}
	}

	panic(fmt.Sprintf("mock %s has no argument %q", m.name, name))
}

// ArgNames returns the declared argument names.
func (m *Mock) ArgNames() []string {
	return append([]string(nil), m.argNames...)
}

// Call returns the i-th recorded call.
func (m *Mock) Call(i int) CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i < 0 || i >= len(m.calls) {
		panic(fmt.Sprintf("mock %s: call %d requested, %d recorded", m.name, i, len(m.calls)))
	}

	return m.calls[i]
}

// CallCount returns the number of recorded calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

// CheckCalls fails the current test unless exactly count calls were recorded and the
// calls that exist match expected, position by position. Every mismatch is reported.
// A wrong call count is a non-fatal failure. The calls present in both lists are still
// compared and the test body carries on after CheckCalls returns.
func (m *Mock) CheckCalls(r *Run, expected []Expectation, count int) {
	m.mu.Lock()
	calls := append([]CallRecord(nil), m.calls...)
	m.mu.Unlock()

	if len(calls) != count {
		r.errorf("%s: expected %d calls, got %d", m.name, count, len(calls))
	}

	for i := range min(count, len(calls), len(expected)) {
		exp := expected[i]
		got := calls[i]

		for j, want := range exp.Args {
			if exp.AnyFlags&(1<<uint(j)) != 0 {
				continue
			}

			if j >= len(got.Args) {
				r.errorf("%s call %d (%s:%d): argument %s was not recorded", m.name, i, got.File, got.Line, m.argName(j))

				continue
			}

			if ok, msg := MatchValue(got.Args[j], want); !ok {
				r.errorf("%s call %d (%s:%d): argument %s: %s", m.name, i, got.File, got.Line, m.argName(j), msg)
			}
		}
	}
}

// Enqueue queues values for the mock to return, oldest first, once it stops spying.
func (m *Mock) Enqueue(values ...any) {
	q := m.returnQueue()

	for _, v := range values {
		q.Enqueue(m.name, v)
	}
}

// Name returns the mocked function's name.
func (m *Mock) Name() string {
	return m.name
}

// NoSpy makes the mock return queued values instead of calling the real function.
func (m *Mock) NoSpy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.spy = false
}

// Record appends a call to the history.
func (m *Mock) Record(file string, line int, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, CallRecord{File: file, Line: line, Args: args})
}

// Spy makes the mock call through to the real function again.
func (m *Mock) Spy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.spy = true
}

// Spying reports whether calls go through to the real function.
func (m *Mock) Spying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.spy
}

func (m *Mock) argName(i int) string {
	if i < len(m.argNames) {
		return m.argNames[i]
	}

	return fmt.Sprintf("#%d", i)
}

func (m *Mock) next() (any, bool) {
	return m.returnQueue().DequeueNext(m.name)
}

// reset returns the mock to spy mode with no history and no queued values, bound to run.
func (m *Mock) reset(run *Run) {
	m.mu.Lock()
	m.spy = true
	m.calls = nil
	m.run = run
	q := m.queue
	m.mu.Unlock()

	q.Clear(m.name)
}

func (m *Mock) returnQueue() ReturnQueue {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.queue
}

func (m *Mock) currentRun() *Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.run
}

func (m *Mock) useQueue(q ReturnQueue) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = q
}

// As converts a stored value back to its static type. A nil value yields T's zero value.
func As[T any](value any) T {
	if value == nil {
		var zero T

		return zero
	}

	return value.(T) //nolint:forcetypeassert // generated code guarantees the type
}

// ArgAs returns argument idx of rec as T.
func ArgAs[T any](rec CallRecord, idx int) T {
	return As[T](rec.Args[idx])
}

// Next pops the mock's next queued return value. An empty queue is fatal for the run.
func Next[T any](m *Mock) T {
	value, ok := m.next()
	if !ok {
		msg := fmt.Sprintf("mock %s is not spying and has no queued return value", m.name)

		if run := m.currentRun(); run != nil {
			run.fail = true
			run.fatal = true
			run.notes = append(run.notes, msg)

			panic(abort{})
		}

		panic(msg)
	}

	return As[T](value)
}
