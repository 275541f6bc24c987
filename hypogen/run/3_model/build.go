package model

import (
	"errors"
	"go/token"
	"path/filepath"
	"slices"
	"strings"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Section names the builder selects between.
const (
	SectionMock            = "mock_decl"
	SectionMockVoid        = "mock_decl_void"
	SectionFixture         = "fixture_decl"
	SectionFixtureTeardown = "fixture_decl_teardown"
	SectionTest            = "test_decl"
)

// MaxArguments is the number of wildcard flags a uint64 can hold.
const MaxArguments = 64

// Functions - Public

// Build validates raw and derives the model the emitter walks. sections lists the
// section names published by the fragment store. Every problem found is reported,
// joined into one error.
func Build(raw *Raw, sections []string) (*Specification, error) {
	b := &builder{sections: sections, symbols: make(map[string]symbolOwner)}
	b.claim(util.Position{File: raw.Source}, "the suite driver", driverSymbols...)

	spec := &Specification{
		Source:   raw.Source,
		Target:   raw.Target,
		Package:  raw.Package,
		Preamble: strings.Join(raw.Preambles, ""),
	}

	if spec.Package == "" {
		spec.Package = defaultPackage
	} else if !util.IsIdentifier(spec.Package) || token.IsKeyword(spec.Package) {
		b.fail(util.Errorf(util.Position{File: raw.Source}, util.ErrInvalidIdentifier,
			"package name %q", spec.Package))
	}

	if spec.Target == "" {
		spec.Target = DefaultTarget(raw.Source)
	}

	spec.Mocks = b.mocks(raw.Mocks)
	spec.Fixtures = b.fixtures(raw.Fixtures)
	spec.Tests = b.tests(raw.Tests, spec.Fixtures)

	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}

	return spec, nil
}

// DefaultTarget is the output path used when a specification names none:
// "<base>_hypo.go" next to the source.
func DefaultTarget(source string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	if base == "" {
		base = "hypo"
	}

	return base + "_hypo.go"
}

// Structs - Private

type builder struct {
	sections []string
	symbols  map[string]symbolOwner
	errs     []error
}

// claim records the package-level symbols one declaration generates. A symbol some
// earlier declaration already generates is a duplicate name.
func (b *builder) claim(pos util.Position, owner string, symbols ...string) {
	for _, symbol := range symbols {
		if prev, ok := b.symbols[symbol]; ok {
			b.fail(util.Errorf(pos, util.ErrDuplicateName,
				"%s collides with %s (%s): both generate %s", owner, prev.owner, prev.pos, symbol))

			continue
		}

		b.symbols[symbol] = symbolOwner{owner: owner, pos: pos}
	}
}

func (b *builder) fail(err error) {
	b.errs = append(b.errs, err)
}

func (b *builder) arguments(mock RawMock) []Argument {
	if len(mock.Args) > MaxArguments {
		b.fail(util.Errorf(mock.Pos, util.ErrMalformedArgumentList,
			"mock %s has %d arguments; at most %d are supported", mock.Name, len(mock.Args), MaxArguments))

		return nil
	}

	args := make([]Argument, 0, len(mock.Args))
	seen := make(map[string]bool, len(mock.Args))

	for i, raw := range mock.Args {
		if problem := argumentProblem(raw, seen); problem != "" {
			b.fail(util.Errorf(mock.Pos, util.ErrMalformedArgumentList,
				"mock %s argument %d: %s", mock.Name, i+1, problem))

			continue
		}

		seen[util.Decorate(raw.Name)] = true

		args = append(args, Argument{Type: raw.Type, Name: raw.Name, Flag: 1 << uint(i)})
	}

	return args
}

func (b *builder) fixtures(raws []RawFixture) []*Fixture {
	names := newNameSet("fixture")
	fixtures := make([]*Fixture, 0, len(raws))

	for _, raw := range raws {
		if err := names.add(raw.Name, raw.Pos); err != nil {
			b.fail(err)

			continue
		}

		if isReserved(raw.Name) {
			b.fail(util.Errorf(raw.Pos, util.ErrInvalidIdentifier,
				"fixture name %q is reserved: it would shadow a generated parameter or import", raw.Name))

			continue
		}

		decorated := util.Decorate(raw.Name)
		b.claim(raw.Pos, "fixture "+raw.Name,
			"Fixture"+decorated, "fixtureSetup"+decorated, "fixtureTeardown"+decorated)

		fixture := &Fixture{
			Name:        raw.Name,
			ReturnType:  returnType(raw.ReturnType),
			Setup:       raw.Setup,
			Teardown:    raw.Teardown,
			HasTeardown: raw.HasTeardown,
			Pos:         raw.Pos,
		}

		fixture.Section = b.section(SectionFixture, SectionFixtureTeardown, raw.HasTeardown, raw.Pos)
		fixtures = append(fixtures, fixture)
	}

	slices.SortFunc(fixtures, func(a, c *Fixture) int { return strings.Compare(a.Name, c.Name) })

	return fixtures
}

func (b *builder) mocks(raws []RawMock) []*Mock {
	names := newNameSet("mock")
	mocks := make([]*Mock, 0, len(raws))

	for _, raw := range raws {
		if err := names.add(raw.Name, raw.Pos); err != nil {
			b.fail(err)

			continue
		}

		mock := &Mock{
			Name:       raw.Name,
			ReturnType: returnType(raw.ReturnType),
			Args:       b.arguments(raw),
			Pos:        raw.Pos,
		}

		b.claim(raw.Pos, "mock "+raw.Name, mockSymbols(mock)...)

		mock.Section = b.section(SectionMock, SectionMockVoid, mock.ReturnType == "", raw.Pos)
		mocks = append(mocks, mock)
	}

	slices.SortFunc(mocks, func(a, c *Mock) int { return strings.Compare(a.Name, c.Name) })

	return mocks
}

// section picks the variant when it is wanted and published, else the base section.
func (b *builder) section(base, variant string, wantVariant bool, pos util.Position) string {
	if wantVariant && slices.Contains(b.sections, variant) {
		return variant
	}

	if !slices.Contains(b.sections, base) {
		b.fail(util.Errorf(pos, util.ErrUnknownFragment, "no %s section is published", base))
	}

	return base
}

func (b *builder) tests(raws []RawTest, fixtures []*Fixture) []*Test {
	names := newNameSet("test")
	tests := make([]*Test, 0, len(raws))

	byName := make(map[string]*Fixture, len(fixtures))
	for _, f := range fixtures {
		byName[f.Name] = f
	}

	for _, raw := range raws {
		if err := names.add(raw.Name, raw.Pos); err != nil {
			b.fail(err)

			continue
		}

		decorated := util.Decorate(raw.Name)
		b.claim(raw.Pos, "test "+raw.Name, "test"+decorated, "testCase"+decorated)

		test := &Test{
			Name:    raw.Name,
			Body:    raw.Body,
			Section: b.section(SectionTest, "", false, raw.Pos),
			Pos:     raw.Pos,
		}

		injected := 0
		referenced := make(map[string]bool, len(raw.Refs))

		for _, ref := range raw.Refs {
			fixture, ok := byName[ref.Name]
			if !ok {
				b.fail(util.Errorf(raw.Pos, util.ErrUnknownFixtureReference,
					"test %s uses fixture %q, which is not declared", raw.Name, ref.Name))

				continue
			}

			if referenced[ref.Name] {
				b.fail(util.Errorf(raw.Pos, util.ErrDuplicateName,
					"test %s uses fixture %q twice", raw.Name, ref.Name))

				continue
			}

			referenced[ref.Name] = true

			use := FixtureUse{Fixture: fixture, Name: fixture.Name, InjectIndex: -1}
			if ref.Inject && fixture.ReturnType != "" {
				use.Inject = true
				use.InjectIndex = injected
				injected++
			}

			test.Fixtures = append(test.Fixtures, use)
		}

		tests = append(tests, test)
	}

	return tests
}

// symbolOwner is the declaration that generates a symbol.
type symbolOwner struct {
	owner string
	pos   util.Position
}

// nameSet rejects names that repeat, directly or once decorated.
type nameSet struct {
	kind      string
	decorated map[string]string
}

func newNameSet(kind string) *nameSet {
	return &nameSet{kind: kind, decorated: make(map[string]string)}
}

func (s *nameSet) add(name string, pos util.Position) error {
	if !util.IsIdentifier(name) || token.IsKeyword(name) {
		return util.Errorf(pos, util.ErrInvalidIdentifier, "%s name %q", s.kind, name)
	}

	key := util.Decorate(name)
	if prev, ok := s.decorated[key]; ok {
		if prev == name {
			return util.Errorf(pos, util.ErrDuplicateName, "%s %s declared twice", s.kind, name)
		}

		return util.Errorf(pos, util.ErrDuplicateName,
			"%s %s collides with %s: both generate %s", s.kind, name, prev, key)
	}

	s.decorated[key] = name

	return nil
}

// Functions - Private

func argumentProblem(raw RawArg, seen map[string]bool) string {
	switch {
	case raw.Name == "":
		return "missing name"
	case raw.Type == "":
		return "missing type for " + raw.Name
	case strings.HasPrefix(raw.Type, "..."):
		return "variadic arguments are not supported"
	case token.IsKeyword(raw.Name) || !util.IsIdentifier(raw.Name):
		return "invalid name " + raw.Name
	case isReserved(raw.Name) || slices.Contains(reservedFields, util.Decorate(raw.Name)):
		return "name " + raw.Name + " is reserved"
	case seen[util.Decorate(raw.Name)]:
		return "duplicate name " + raw.Name
	default:
		return ""
	}
}

// isReserved reports whether name could shadow the generated code's own locals
// (hypo, hypoOriginal) or its underscore-prefixed import aliases.
func isReserved(name string) bool {
	return strings.HasPrefix(name, reservedPrefix) || strings.HasPrefix(name, "_")
}

// mockSymbols lists the package-level symbols generated for mock, including the
// name of the mocked function itself.
func mockSymbols(mock *Mock) []string {
	decorated := util.Decorate(mock.Name)
	symbols := []string{
		mock.Name,
		"Mock" + decorated,
		"installMock" + decorated,
		"Check" + decorated + "Calls",
		decorated + "ExpectCall",
		decorated + "ActualCall",
		decorated + "Call",
	}

	for _, arg := range mock.Args {
		symbols = append(symbols, "AnyArg"+decorated+util.Decorate(arg.Name))
	}

	return symbols
}

func returnType(text string) string {
	if text == "void" {
		return ""
	}

	return text
}

// unexported constants.
const (
	defaultPackage = "main"
	reservedPrefix = "hypo"
)

// unexported variables.
var (
	driverSymbols  = []string{"hypoSuite", "RunHypoSuite", "main"} //nolint:gochecknoglobals // generated suite driver
	reservedFields = []string{"AnyFlags", "File", "Line"}          //nolint:gochecknoglobals // generated struct fields
)
