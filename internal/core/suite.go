package core

import (
	"fmt"
	"io"
)

// Fixture is a named setup with an optional teardown. Setup's result is handed to the
// teardown and, when requested, injected into the test body.
type Fixture struct {
	Name     string
	Setup    func(run *Run) any
	Teardown func(run *Run, value any)
}

// FixtureUse is one fixture reference of a test.
type FixtureUse struct {
	Fixture *Fixture
	Inject  bool
}

// TestCase is one test: its fixtures in declaration order and its body. Body receives
// the injected fixture values in declaration order.
type TestCase struct {
	Name     string
	Fixtures []FixtureUse
	Body     func(run *Run, injected []any)
}

// Result summarizes a suite run.
type Result struct {
	Passed  int
	Failed  int
	Skipped int
	Fatal   bool
}

// ExitCode is 0 when every test ran and passed, 1 otherwise.
func (r Result) ExitCode() int {
	if r.Failed > 0 || r.Fatal || r.Skipped > 0 {
		return 1
	}

	return 0
}

// Suite runs the tests of one generated file against its mocks.
type Suite struct {
	name   string
	out    io.Writer
	queue  *Queue
	mocks  []*Mock
	byName map[string]*Mock
	hooks  []func() func()
	tests  []TestCase
}

// NewSuite creates a suite reporting to out.
func NewSuite(name string, out io.Writer) *Suite {
	return &Suite{name: name, out: out, queue: NewQueue(), byName: make(map[string]*Mock)}
}

// AddMock registers m. install swaps the real function for the mock and returns the
// function that restores it; it runs once at the start of Run. Mock names are unique.
func (s *Suite) AddMock(m *Mock, install func() func()) {
	if _, dup := s.byName[m.Name()]; dup {
		panic(fmt.Sprintf("suite %s: mock %s added twice", s.name, m.Name()))
	}

	m.useQueue(s.queue)

	s.byName[m.Name()] = m
	s.mocks = append(s.mocks, m)
	s.hooks = append(s.hooks, install)
}

// AddTest appends tc; tests run in the order they are added.
func (s *Suite) AddTest(tc TestCase) {
	s.tests = append(s.tests, tc)
}

// Mock returns the registered mock with the given name.
func (s *Suite) Mock(name string) (*Mock, bool) {
	m, ok := s.byName[name]

	return m, ok
}

// Run executes every test in order, printing "<suite>::<test>... PASS" or "... FAIL"
// for each. A fatal error stops the run after the failing test's fixtures are torn down.
func (s *Suite) Run() Result {
	for _, install := range s.hooks {
		if install == nil {
			continue
		}

		restore := install()
		if restore != nil {
			defer restore()
		}
	}

	var result Result

	run := &Run{suite: s.name}

	for i, tc := range s.tests {
		if s.runTest(run, tc) {
			result.Passed++
		} else {
			result.Failed++
		}

		if run.fatal {
			result.Fatal = true
			result.Skipped = len(s.tests) - i - 1

			break
		}
	}

	return result
}

// runTest reports whether tc passed.
func (s *Suite) runTest(run *Run, tc TestCase) bool {
	run.begin(tc.Name)
	s.resetMocks(run)

	defer s.resetMocks(nil)

	values := make([]any, len(tc.Fixtures))
	injected := make([]any, 0, len(tc.Fixtures))
	ready := 0

	setupDone := guard(run, func() {
		for i, use := range tc.Fixtures {
			if use.Fixture.Setup != nil {
				values[i] = use.Fixture.Setup(run)
			}

			ready = i + 1

			if use.Inject {
				injected = append(injected, values[i])
			}
		}
	})

	if setupDone && tc.Body != nil {
		guard(run, func() { tc.Body(run, injected) })
	}

	// Teardowns run in setup order, for fixtures whose setup completed.
	for i := range ready {
		teardown := tc.Fixtures[i].Fixture.Teardown
		if teardown == nil {
			continue
		}

		guard(run, func() { teardown(run, values[i]) })
	}

	s.report(run)

	return !run.fail
}

func (s *Suite) report(run *Run) {
	status := "PASS"
	if run.fail {
		status = "FAIL"
	}

	fmt.Fprintf(s.out, "%s::%s... %s\n", s.name, run.test, status)

	for _, note := range run.notes {
		fmt.Fprintf(s.out, "    %s\n", note)
	}
}

func (s *Suite) resetMocks(run *Run) {
	for _, m := range s.mocks {
		m.reset(run)
	}
}

// guard runs fn and reports whether it returned normally. A Fatalf abort is absorbed;
// any other panic is recorded as a failure of the current test.
func guard(run *Run, fn func()) (completed bool) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}

		if _, ok := rec.(abort); !ok {
			run.errorf("panic: %v", rec)
		}

		completed = false
	}()

	fn()

	return true
}
