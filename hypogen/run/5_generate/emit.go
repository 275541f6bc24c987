// Package generate expands the fragment library over a specification model into the
// text of one generated Go file.
package generate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	model "github.com/toejough/hypocrite/hypogen/run/3_model"
	template "github.com/toejough/hypocrite/hypogen/run/4_template"
)

// Section names the emitter expands around the per-declaration sections.
const (
	SectionHeader = "header"
	SectionDriver = "driver"
)

// Structs - Public

// Emitter turns a Specification into generated source.
type Emitter struct {
	expander *template.Expander
	log      logrus.FieldLogger
	limit    int
}

// New creates an emitter over expander. Expansions run concurrently, at most limit at
// a time; a limit below one means no limit.
func New(expander *template.Expander, log logrus.FieldLogger, limit int) *Emitter {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Emitter{expander: expander, log: log, limit: limit}
}

// Emit expands, in this order, the header, the preamble, every mock, every fixture,
// every test and the driver, and joins the pieces with blank lines. The first failing
// expansion cancels the rest and is returned; no partial text is returned with it.
func (e *Emitter) Emit(ctx context.Context, spec *model.Specification) (string, error) {
	root := template.NewEnv(Globals(spec))
	jobs := e.jobs(spec, root)
	pieces := make([]string, len(jobs))

	group, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		group.SetLimit(e.limit)
	}

	for i, job := range jobs {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			text, err := job.run()
			if err != nil {
				return fmt.Errorf("failed to expand %s: %w", job.what, err)
			}

			pieces[i] = text

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return "", err
	}

	e.log.WithFields(logrus.Fields{
		"source":   spec.Source,
		"mocks":    len(spec.Mocks),
		"fixtures": len(spec.Fixtures),
		"tests":    len(spec.Tests),
	}).Debug("expanded specification")

	return join(pieces), nil
}

// Functions - Public

// FixtureEnv binds a fixture for its section. teardown is only bound when the fixture
// declares one, which is what switches fixture_teardown on.
func FixtureEnv(f *model.Fixture) map[string]any {
	vars := map[string]any{
		"name":         f.Name,
		"return_type":  f.ReturnType,
		"code":         f.Setup,
		"has_teardown": f.HasTeardown,
	}

	if f.HasTeardown {
		vars["teardown"] = f.Teardown
	}

	return vars
}

// Globals are the bindings visible to every section. test_fname, the suite name, is
// the output file's base name without extension.
func Globals(spec *model.Specification) map[string]any {
	mocks := make([]template.Object, len(spec.Mocks))
	for i, m := range spec.Mocks {
		mocks[i] = template.Object{Fields: MockEnv(m)}
	}

	fixtures := make([]template.Object, len(spec.Fixtures))
	for i, f := range spec.Fixtures {
		fixtures[i] = fixtureObject(f)
	}

	tests := make([]template.Object, len(spec.Tests))
	for i, t := range spec.Tests {
		tests[i] = template.Object{Fields: TestEnv(t)}
	}

	return map[string]any{
		"source":     filepath.Base(spec.Source),
		"target":     spec.Target,
		"package":    spec.Package,
		"test_fname": strings.TrimSuffix(filepath.Base(spec.Target), filepath.Ext(spec.Target)),
		"mocks":      mocks,
		"fixtures":   fixtures,
		"tests":      tests,
	}
}

// MockEnv binds a mock for its section. Each argument unpacks as type, name, flag.
func MockEnv(m *model.Mock) map[string]any {
	args := make([]template.Object, len(m.Args))
	for i, a := range m.Args {
		args[i] = template.Object{
			Fields: map[string]any{"type": a.Type, "name": a.Name, "flag": a.Flag},
			Unpack: []string{"type", "name", "flag"},
		}
	}

	return map[string]any{
		"name":        m.Name,
		"return_type": m.ReturnType,
		"args":        args,
	}
}

// TestEnv binds a test for its section. Each fixture use unpacks as fixture, inject.
func TestEnv(t *model.Test) map[string]any {
	uses := make([]template.Object, len(t.Fixtures))
	for i, use := range t.Fixtures {
		uses[i] = template.Object{
			Fields: map[string]any{
				"fixture":      fixtureObject(use.Fixture),
				"inject":       use.Inject,
				"inject_index": use.InjectIndex,
			},
			Unpack: []string{"fixture", "inject"},
		}
	}

	return map[string]any{
		"name":     t.Name,
		"code":     t.Body,
		"fixtures": uses,
	}
}

// Structs - Private

type job struct {
	what string
	run  func() (string, error)
}

func (e *Emitter) jobs(spec *model.Specification, root *template.Env) []job {
	section := func(what, name string, env *template.Env) job {
		return job{what: what, run: func() (string, error) { return e.expander.ExpandName(name, env) }}
	}

	jobs := []job{section("header", SectionHeader, root)}

	if spec.Preamble != "" {
		jobs = append(jobs, job{what: "preamble", run: func() (string, error) { return spec.Preamble, nil }})
	}

	for _, m := range spec.Mocks {
		jobs = append(jobs, section("mock "+m.Name, m.Section, root.With(MockEnv(m))))
	}

	for _, f := range spec.Fixtures {
		jobs = append(jobs, section("fixture "+f.Name, f.Section, root.With(FixtureEnv(f))))
	}

	for _, t := range spec.Tests {
		jobs = append(jobs, section("test "+t.Name, t.Section, root.With(TestEnv(t))))
	}

	return append(jobs, section("driver", SectionDriver, root))
}

// Functions - Private

func fixtureObject(f *model.Fixture) template.Object {
	return template.Object{Fields: map[string]any{
		"name":         f.Name,
		"return_type":  f.ReturnType,
		"has_teardown": f.HasTeardown,
	}}
}

func join(pieces []string) string {
	var out strings.Builder

	for _, piece := range pieces {
		piece = strings.Trim(piece, "\n")
		if piece == "" {
			continue
		}

		if out.Len() > 0 {
			out.WriteString("\n\n")
		}

		out.WriteString(piece)
	}

	out.WriteString("\n")

	return out.String()
}
