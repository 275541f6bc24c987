package lex_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/gomega"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
	lex "github.com/toejough/hypocrite/hypogen/run/1_lex"
)

func TestRead_DirectivesAndBlocks(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := `// leading comment
%target "out.go" /* trailing */

%mock unsafe.Pointer malloc(uint size, \
	int flags)
%fixture []byte buffer {
	// kept verbatim
	return make([]byte, 8)
%} teardown {
	_ = buffer
%}
`

	directives, err := lex.Read("spec.hypo", []byte(src))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(directives).To(HaveLen(3))

	target := directives[0]
	g.Expect(target.Name).To(Equal("target"))
	g.Expect(target.Pos).To(Equal(util.Position{File: "spec.hypo", Line: 2}))
	g.Expect(target.Tokens).To(Equal([]lex.Token{{Kind: lex.String, Text: "out.go"}}))

	mock := directives[1]
	g.Expect(mock.Name).To(Equal("mock"))
	g.Expect(mock.Pos.Line).To(Equal(4))
	g.Expect(mock.Text).To(ContainSubstring("malloc(uint size,"))
	g.Expect(mock.Text).To(ContainSubstring("int flags)"))
	g.Expect(mock.HasBlock()).To(BeFalse())

	fixture := directives[2]
	g.Expect(fixture.Text).To(Equal("[]byte buffer"))
	g.Expect(fixture.Blocks).To(HaveLen(2))

	setup, ok := fixture.Block("")
	g.Expect(ok).To(BeTrue())
	g.Expect(setup.Text()).To(Equal("\t// kept verbatim\n\treturn make([]byte, 8)\n"))
	g.Expect(setup.Pos.Line).To(Equal(7))

	teardown, ok := fixture.Block("teardown")
	g.Expect(ok).To(BeTrue())
	g.Expect(teardown.Lines).To(Equal([]string{"\t_ = buffer"}))
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		line int
	}{
		{name: "text outside directive", src: "%target \"a\"\nfloating text\n", line: 2},
		{name: "stray close", src: "%}\n", line: 1},
		{name: "unclosed block", src: "%preamble {\nx := 1\n", line: 1},
		{name: "directive inside block", src: "%preamble {\n%mock foo()\n%}\n", line: 2},
		{name: "junk after close", src: "%preamble {\n%} junk\n", line: 2},
		{name: "unterminated string", src: "%target \"abc\n", line: 1},
		{name: "missing name", src: "% foo\n", line: 1},
		{name: "unterminated comment", src: "%target \"a\"\n/* open\n", line: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			_, err := lex.Read("bad.hypo", []byte(tt.src))
			g.Expect(err).To(MatchError(util.ErrSyntax))
			g.Expect(err.Error()).To(HavePrefix("bad.hypo:"))

			var posErr *util.PosError
			g.Expect(err).To(BeAssignableToTypeOf(posErr))
			g.Expect(err.(*util.PosError).Pos.Line).To(Equal(tt.line))
		})
	}
}

func TestRead_CommentsInsideStringsSurvive(t *testing.T) {
	t.Parallel()

	directives, err := lex.Read("s.hypo", []byte(`%target "a//b/*c*/.go" // real comment`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []lex.Token{{Kind: lex.String, Text: "a//b/*c*/.go"}}
	if diff := cmp.Diff(want, directives[0].Tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_BlockKeepsCommentsAndBlankLines(t *testing.T) {
	t.Parallel()

	directives, err := lex.Read("s.hypo", []byte("%preamble {\n// note\n\nvar x = 1 /* c */\n%}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := directives[0].Blocks[0].Text()
	if got != "// note\n\nvar x = 1 /* c */\n" {
		t.Errorf("unexpected block text %q", got)
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got, err := lex.Tokenize(`alloc_fails(allocate, !other) "s\"q"`, util.Position{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []lex.Token{
		{Kind: lex.Word, Text: "alloc_fails"},
		{Kind: lex.Char, Text: "("},
		{Kind: lex.Word, Text: "allocate"},
		{Kind: lex.Char, Text: ","},
		{Kind: lex.Char, Text: "!"},
		{Kind: lex.Word, Text: "other"},
		{Kind: lex.Char, Text: ")"},
		{Kind: lex.String, Text: `s"q`},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_Empty(t *testing.T) {
	t.Parallel()

	directives, err := lex.Read("empty.hypo", nil)
	if err != nil || len(directives) != 0 {
		t.Errorf("Read(empty) = %v, %v; want no directives", directives, err)
	}
}
