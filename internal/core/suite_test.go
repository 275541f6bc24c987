package core_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/goleak"

	"github.com/toejough/hypocrite/internal/core"
)

// TestMain runs tests and checks for goroutine leaks.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSuite_FixtureOrdering(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var events []string

	fixture := func(name string, value any, teardown bool) *core.Fixture {
		f := &core.Fixture{
			Name: name,
			Setup: func(*core.Run) any {
				events = append(events, "setup "+name)

				return value
			},
		}

		if teardown {
			f.Teardown = func(_ *core.Run, v any) {
				events = append(events, "teardown "+name)
				if v != value {
					events = append(events, "wrong value for "+name)
				}
			}
		}

		return f
	}

	f1 := fixture("f1", 1, true)
	f2 := fixture("f2", "two", false)
	f3 := fixture("f3", 3.0, true)

	var out bytes.Buffer

	suite := core.NewSuite("ordering", &out)
	suite.AddTest(core.TestCase{
		Name: "t",
		Fixtures: []core.FixtureUse{
			{Fixture: f1, Inject: true},
			{Fixture: f2, Inject: false},
			{Fixture: f3, Inject: true},
		},
		Body: func(_ *core.Run, injected []any) {
			g.Expect(injected).To(Equal([]any{1, 3.0}))
			events = append(events, "body")
		},
	})

	result := suite.Run()

	g.Expect(result.ExitCode()).To(Equal(0))
	g.Expect(events).To(Equal([]string{
		"setup f1", "setup f2", "setup f3", "body", "teardown f1", "teardown f3",
	}))
	g.Expect(out.String()).To(Equal("ordering::t... PASS\n"))
}

func TestSuite_FailContinuesFatalStops(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var (
		out bytes.Buffer
		ran []string
	)

	torn := false
	cleanup := &core.Fixture{
		Name:     "cleanup",
		Setup:    func(*core.Run) any { return nil },
		Teardown: func(*core.Run, any) { torn = true },
	}

	suite := core.NewSuite("flags", &out)
	suite.AddTest(core.TestCase{Name: "fails", Body: func(run *core.Run, _ []any) {
		run.Errorf("first")
		run.Assert(1 == 2, "second")
		ran = append(ran, "fails")
	}})
	suite.AddTest(core.TestCase{Name: "passes", Body: func(run *core.Run, _ []any) {
		g.Expect(run.Failed()).To(BeFalse())
		ran = append(ran, "passes")
	}})
	suite.AddTest(core.TestCase{
		Name:     "dies",
		Fixtures: []core.FixtureUse{{Fixture: cleanup}},
		Body: func(run *core.Run, _ []any) {
			ran = append(ran, "dies")
			run.Fatalf("stop %d", 3)
			ran = append(ran, "after fatal")
		},
	})
	suite.AddTest(core.TestCase{Name: "never", Body: func(*core.Run, []any) { ran = append(ran, "never") }})

	result := suite.Run()

	g.Expect(ran).To(Equal([]string{"fails", "passes", "dies"}))
	g.Expect(torn).To(BeTrue())
	g.Expect(result).To(Equal(core.Result{Passed: 1, Failed: 2, Skipped: 1, Fatal: true}))
	g.Expect(result.ExitCode()).To(Equal(1))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	g.Expect(lines[0]).To(Equal("flags::fails... FAIL"))
	g.Expect(lines[1]).To(HaveSuffix(": first"))
	g.Expect(lines[1]).To(ContainSubstring("suite_test.go:"))
	g.Expect(lines[2]).To(HaveSuffix(": second"))
	g.Expect(lines[3]).To(Equal("flags::passes... PASS"))
	g.Expect(lines[4]).To(Equal("flags::dies... FAIL"))
	g.Expect(lines[5]).To(HaveSuffix(": stop 3"))
	g.Expect(lines).To(HaveLen(6))
}

func TestSuite_SetupAbortSkipsRest(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var events []string

	ok := &core.Fixture{
		Name:     "ok",
		Setup:    func(*core.Run) any { events = append(events, "setup ok"); return nil },
		Teardown: func(*core.Run, any) { events = append(events, "teardown ok") },
	}
	broken := &core.Fixture{
		Name:     "broken",
		Setup:    func(run *core.Run) any { run.Fatalf("no database"); return nil },
		Teardown: func(*core.Run, any) { events = append(events, "teardown broken") },
	}
	later := &core.Fixture{
		Name:  "later",
		Setup: func(*core.Run) any { events = append(events, "setup later"); return nil },
	}

	suite := core.NewSuite("abort", &bytes.Buffer{})
	suite.AddTest(core.TestCase{
		Name:     "t",
		Fixtures: []core.FixtureUse{{Fixture: ok}, {Fixture: broken}, {Fixture: later}},
		Body:     func(*core.Run, []any) { events = append(events, "body") },
	})

	result := suite.Run()

	g.Expect(events).To(Equal([]string{"setup ok", "teardown ok"}))
	g.Expect(result.Fatal).To(BeTrue())
}

func TestSuite_UnexpectedPanicIsNotFatal(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var out bytes.Buffer

	suite := core.NewSuite("panics", &out)
	suite.AddTest(core.TestCase{Name: "boom", Body: func(*core.Run, []any) { panic(errors.New("boom")) }})
	suite.AddTest(core.TestCase{Name: "next", Body: func(*core.Run, []any) {}})

	result := suite.Run()

	g.Expect(result).To(Equal(core.Result{Passed: 1, Failed: 1}))
	g.Expect(out.String()).To(Equal("panics::boom... FAIL\n    panic: boom\npanics::next... PASS\n"))
}

func TestSuite_MocksInstalledAndReset(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	calls := 0
	target := func(n int) int { calls++; return n * 2 }

	mock := core.NewMock("double", "n")
	install := func() func() {
		original := target
		target = func(n int) int {
			mock.Record("caller.go", 7, n)
			if mock.Spying() {
				return original(n)
			}

			return core.Next[int](mock)
		}

		return func() { target = original }
	}

	suite := core.NewSuite("mocks", &bytes.Buffer{})
	suite.AddMock(mock, install)
	suite.AddTest(core.TestCase{Name: "stubbed", Body: func(run *core.Run, _ []any) {
		mock.NoSpy()
		mock.Enqueue(10, 20, 30)
		run.Assert(target(1) == 10, "first queued value")
		run.Assert(target(1) == 20, "second queued value")
		run.Assert(mock.CallCount() == 2, "two calls")
	}})
	suite.AddTest(core.TestCase{Name: "spying again", Body: func(run *core.Run, _ []any) {
		run.Assert(mock.Spying(), "spy mode restored")
		run.Assert(mock.CallCount() == 0, "history cleared")
		run.Assert(target(4) == 8, "real function called")
		run.Assert(mock.Arg(0, "n") == 4, "argument recorded")
	}})

	result := suite.Run()

	g.Expect(result.ExitCode()).To(Equal(0))
	g.Expect(calls).To(Equal(1))
	g.Expect(mock.CallCount()).To(Equal(0))

	// The original is back once the run is over.
	g.Expect(target(5)).To(Equal(10))
	g.Expect(calls).To(Equal(2))
}

func TestSuite_EmptyQueueIsFatal(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := core.NewMock("get")

	var out bytes.Buffer

	suite := core.NewSuite("queue", &out)
	suite.AddMock(mock, nil)
	suite.AddTest(core.TestCase{Name: "dry", Body: func(*core.Run, []any) {
		mock.NoSpy()
		_ = core.Next[string](mock)
	}})
	suite.AddTest(core.TestCase{Name: "skipped", Body: func(*core.Run, []any) {}})

	result := suite.Run()

	g.Expect(result.Fatal).To(BeTrue())
	g.Expect(result.Skipped).To(Equal(1))
	g.Expect(out.String()).To(ContainSubstring("mock get is not spying and has no queued return value"))
}

func TestSuite_DuplicateMockPanics(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	suite := core.NewSuite("dup", &bytes.Buffer{})
	suite.AddMock(core.NewMock("f"), nil)

	g.Expect(func() { suite.AddMock(core.NewMock("f"), nil) }).To(Panic())

	m, ok := suite.Mock("f")
	g.Expect(ok).To(BeTrue())
	g.Expect(m.Name()).To(Equal("f"))
}
