package model

import (
	"strings"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
	lex "github.com/toejough/hypocrite/hypogen/run/1_lex"
)

// Functions - Public

// Parse reads the directives of a specification file.
func Parse(source string, data []byte) (*Raw, error) {
	directives, err := lex.Read(source, data)
	if err != nil {
		return nil, err
	}

	raw := &Raw{Source: source}

	for _, d := range directives {
		handler, ok := directiveHandlers[d.Name]
		if !ok {
			return nil, util.Errorf(d.Pos, util.ErrSyntax, "unknown directive %%%s", d.Name)
		}

		if err := handler(raw, d); err != nil {
			return nil, err
		}
	}

	return raw, nil
}

// Functions - Private

func parseFixture(raw *Raw, d lex.Directive) error {
	setup, ok := d.Block("")
	if !ok {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%fixture needs a { } setup body")
	}

	for _, b := range d.Blocks {
		if b.Label != "" && b.Label != "teardown" {
			return util.Errorf(d.Pos, util.ErrSyntax, "unexpected %q block in %%fixture; only teardown may follow", b.Label)
		}
	}

	returnType, name := splitTrailingIdent(d.Text)
	if name == "" {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%fixture needs a name, got %q", d.Text)
	}

	fixture := RawFixture{Name: name, ReturnType: returnType, Setup: setup.Text(), Pos: d.Pos}

	if teardown, ok := d.Block("teardown"); ok {
		fixture.Teardown = teardown.Text()
		fixture.HasTeardown = true
	}

	raw.Fixtures = append(raw.Fixtures, fixture)

	return nil
}

func parseMock(raw *Raw, d lex.Directive) error {
	if d.HasBlock() {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%mock takes no body")
	}

	text := strings.TrimSpace(d.Text)
	if !strings.HasSuffix(text, ")") {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%mock needs an argument list, got %q", text)
	}

	open := matchingOpen(text, len(text)-1)
	if open < 0 {
		return util.Errorf(d.Pos, util.ErrSyntax, "unbalanced parentheses in %q", text)
	}

	returnType, name := splitTrailingIdent(text[:open])
	if name == "" {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%mock needs a name before the argument list, got %q", text)
	}

	raw.Mocks = append(raw.Mocks, RawMock{
		Name:       name,
		ReturnType: returnType,
		Args:       splitArgs(text[open+1 : len(text)-1]),
		Pos:        d.Pos,
	})

	return nil
}

func parsePackage(raw *Raw, d lex.Directive) error {
	if len(d.Tokens) != 1 || d.Tokens[0].Kind != lex.Word || d.HasBlock() {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%package takes a single name")
	}

	raw.Package = d.Tokens[0].Text

	return nil
}

func parsePreamble(raw *Raw, d lex.Directive) error {
	if len(d.Blocks) != 1 || d.Blocks[0].Label != "" || len(d.Tokens) != 0 {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%preamble takes exactly one { } body and nothing else")
	}

	raw.Preambles = append(raw.Preambles, d.Blocks[0].Text())

	return nil
}

func parseTarget(raw *Raw, d lex.Directive) error {
	if len(d.Tokens) != 1 || d.Tokens[0].Kind != lex.String || d.HasBlock() {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%target takes a single quoted path")
	}

	if raw.Target != "" {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%target given twice")
	}

	raw.Target = d.Tokens[0].Text

	return nil
}

func parseTest(raw *Raw, d lex.Directive) error {
	if len(d.Blocks) != 1 || d.Blocks[0].Label != "" {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%test needs exactly one { } body")
	}

	text := strings.TrimSpace(d.Text)
	name, rest, _ := strings.Cut(text, "(")
	name = strings.TrimSpace(name)

	if name == "" {
		return util.Errorf(d.Pos, util.ErrSyntax, "%%test needs a name")
	}

	test := RawTest{Name: name, Body: d.Blocks[0].Text(), Pos: d.Pos}

	if strings.Contains(text, "(") {
		inner, ok := strings.CutSuffix(strings.TrimSpace(rest), ")")
		if !ok || strings.ContainsAny(inner, "()") {
			return util.Errorf(d.Pos, util.ErrSyntax, "bad fixture list in %%test %s", name)
		}

		for _, item := range strings.Split(inner, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				if strings.TrimSpace(inner) == "" {
					break
				}

				return util.Errorf(d.Pos, util.ErrSyntax, "empty fixture reference in %%test %s", name)
			}

			ref := RawRef{Name: item, Inject: true}
			if bare, found := strings.CutPrefix(item, "!"); found {
				ref = RawRef{Name: strings.TrimSpace(bare), Inject: false}
			}

			test.Refs = append(test.Refs, ref)
		}
	}

	raw.Tests = append(raw.Tests, test)

	return nil
}

// matchingOpen finds the '(' that matches the ')' at index end.
func matchingOpen(text string, end int) int {
	depth := 0

	for i := end; i >= 0; i-- {
		switch text[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// splitArgs splits an argument list at top-level commas. "" and "void" mean no arguments.
func splitArgs(list string) []RawArg {
	list = strings.TrimSpace(list)
	if list == "" || list == "void" {
		return nil
	}

	var (
		args  []RawArg
		depth int
		start int
	)

	flush := func(end int) {
		typ, name := splitTrailingIdent(list[start:end])
		args = append(args, RawArg{Type: typ, Name: name})
	}

	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}

	flush(len(list))

	return args
}

// splitTrailingIdent splits "some type name" into "some type" and "name". When the
// text does not end in an identifier, the name is empty and the type is the whole text.
func splitTrailingIdent(text string) (string, string) {
	text = strings.TrimSpace(text)

	i := len(text)
	for i > 0 && isIdentByte(text[i-1]) {
		i--
	}

	name := text[i:]
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return text, ""
	}

	return strings.TrimSpace(text[:i]), name
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// unexported variables.
var (
	directiveHandlers = map[string]func(*Raw, lex.Directive) error{ //nolint:gochecknoglobals // dispatch table
		"fixture":  parseFixture,
		"mock":     parseMock,
		"package":  parsePackage,
		"preamble": parsePreamble,
		"target":   parseTarget,
		"test":     parseTest,
	}
)
