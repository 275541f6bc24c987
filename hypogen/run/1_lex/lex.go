// Package lex reads the percent-directive files that both specifications (.hypo) and
// fragment libraries (.hypt) are written in.
//
// Every directive line starts with '%'. A directive whose line ends in '{' owns a raw
// block of text that runs until a line starting with "%}". That closing line may chain
// a further labeled block ("%} teardown {"). Outside blocks, // and /* */ comments are
// removed and a trailing backslash joins the next line.
package lex

import (
	"strconv"
	"strings"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Structs - Public

// Block is the raw text owned by a directive.
type Block struct {
	Label string // empty for the first block, the chaining word otherwise
	Lines []string
	Pos   util.Position // position of the first body line
}

// Text joins the block's lines, each terminated by a newline.
func (b Block) Text() string {
	if len(b.Lines) == 0 {
		return ""
	}

	return strings.Join(b.Lines, "\n") + "\n"
}

// Directive is one parsed '%' line together with any blocks it opened.
type Directive struct {
	Pos    util.Position
	Name   string
	Text   string // everything after the name, comments removed, block opener dropped
	Tokens []Token
	Blocks []Block
}

// HasBlock reports whether the directive opened at least one block.
func (d Directive) HasBlock() bool {
	return len(d.Blocks) > 0
}

// Block returns the block with the given label.
func (d Directive) Block(label string) (Block, bool) {
	for _, b := range d.Blocks {
		if b.Label == label {
			return b, true
		}
	}

	return Block{}, false
}

// Token is a lexical unit of a directive line.
type Token struct {
	Kind Kind
	Text string // unquoted for strings
}

// Kind classifies a Token.
type Kind int

// Token kinds.
const (
	Word Kind = iota
	Char
	String
)

// Functions - Public

// Read splits a directive file into directives.
func Read(source string, data []byte) ([]Directive, error) {
	r := &reader{source: source, lines: splitLines(string(data))}

	return r.readAll()
}

// Tokenize splits directive text into words, quoted strings and single characters.
func Tokenize(text string, pos util.Position) ([]Token, error) {
	var tokens []Token

	for i := 0; i < len(text); {
		c := text[i]

		switch {
		case c == ' ' || c == '\t':
			i++
		case isWordByte(c):
			start := i
			for i < len(text) && isWordByte(text[i]) {
				i++
			}

			tokens = append(tokens, Token{Kind: Word, Text: text[start:i]})
		case c == '"':
			end := closingQuote(text, i)
			if end < 0 {
				return nil, util.Errorf(pos, util.ErrSyntax, "unterminated string in %q", text)
			}

			value, err := strconv.Unquote(text[i : end+1])
			if err != nil {
				return nil, util.Errorf(pos, util.ErrSyntax, "bad string %s: %v", text[i:end+1], err)
			}

			tokens = append(tokens, Token{Kind: String, Text: value})
			i = end + 1
		default:
			tokens = append(tokens, Token{Kind: Char, Text: string(c)})
			i++
		}
	}

	return tokens, nil
}

// Structs - Private

type reader struct {
	source string
	lines  []string
	next   int
}

func (r *reader) pos(idx int) util.Position {
	return util.Position{File: r.source, Line: idx + 1}
}

func (r *reader) readAll() ([]Directive, error) {
	var directives []Directive

	inComment := false

	for r.next < len(r.lines) {
		start := r.next

		logical, stillInComment := r.logicalLine(inComment)
		inComment = stillInComment

		trimmed := strings.TrimSpace(logical)
		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(trimmed, "%") {
			return nil, util.Errorf(r.pos(start), util.ErrSyntax, "expected a %%directive, got %q", trimmed)
		}

		if strings.HasPrefix(trimmed, "%}") {
			return nil, util.Errorf(r.pos(start), util.ErrSyntax, "%%} without an open block")
		}

		directive, err := r.directive(trimmed[1:], start)
		if err != nil {
			return nil, err
		}

		directives = append(directives, directive)
	}

	if inComment {
		return nil, util.Errorf(r.pos(len(r.lines)-1), util.ErrSyntax, "unterminated /* comment")
	}

	return directives, nil
}

// logicalLine consumes physical lines up to the end of a continuation run and returns
// them with comments removed.
func (r *reader) logicalLine(inComment bool) (string, bool) {
	var joined strings.Builder

	for r.next < len(r.lines) {
		stripped, stillInComment := stripComments(r.lines[r.next], inComment)
		inComment = stillInComment
		r.next++

		trimmedRight := strings.TrimRight(stripped, " \t")
		if strings.HasSuffix(trimmedRight, `\`) && !inComment {
			joined.WriteString(strings.TrimSuffix(trimmedRight, `\`))
			joined.WriteString(" ")

			continue
		}

		joined.WriteString(stripped)

		break
	}

	return joined.String(), inComment
}

func (r *reader) directive(text string, start int) (Directive, error) {
	pos := r.pos(start)

	name, rest := splitName(text)
	if name == "" {
		return Directive{}, util.Errorf(pos, util.ErrSyntax, "missing directive name in %q", "%"+text)
	}

	rest = strings.TrimSpace(rest)
	opensBlock := strings.HasSuffix(rest, "{")

	if opensBlock {
		rest = strings.TrimSpace(strings.TrimSuffix(rest, "{"))
	}

	tokens, err := Tokenize(rest, pos)
	if err != nil {
		return Directive{}, err
	}

	directive := Directive{Pos: pos, Name: name, Text: rest, Tokens: tokens}

	if !opensBlock {
		return directive, nil
	}

	label := ""

	for {
		block, nextLabel, more, err := r.block(label, start)
		if err != nil {
			return Directive{}, err
		}

		directive.Blocks = append(directive.Blocks, block)

		if !more {
			return directive, nil
		}

		label = nextLabel
	}
}

// block reads raw lines up to the closing "%}" line. It reports whether the closing
// line chained another block and, if so, its label.
func (r *reader) block(label string, opened int) (Block, string, bool, error) {
	block := Block{Label: label, Pos: r.pos(r.next)}

	for r.next < len(r.lines) {
		line := r.lines[r.next]
		idx := r.next
		r.next++

		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "%") {
			block.Lines = append(block.Lines, line)

			continue
		}

		if !strings.HasPrefix(trimmed, "%}") {
			return Block{}, "", false, util.Errorf(r.pos(idx), util.ErrSyntax,
				"directive %q inside a block; close the block with %%} first", trimmed)
		}

		after, _ := stripComments(strings.TrimPrefix(trimmed, "%}"), false)
		after = strings.TrimSpace(after)

		if after == "" {
			return block, "", false, nil
		}

		if !strings.HasSuffix(after, "{") {
			return Block{}, "", false, util.Errorf(r.pos(idx), util.ErrSyntax, "unexpected %q after %%}", after)
		}

		next := strings.TrimSpace(strings.TrimSuffix(after, "{"))
		if next == "" || strings.ContainsAny(next, " \t") {
			return Block{}, "", false, util.Errorf(r.pos(idx), util.ErrSyntax, "bad block label %q", next)
		}

		return block, next, true, nil
	}

	return Block{}, "", false, util.Errorf(r.pos(opened), util.ErrSyntax, "block opened here is never closed")
}

// Functions - Private

func closingQuote(text string, open int) int {
	for i := open + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}

	return -1
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")

	if text == "" {
		return nil
	}

	return strings.Split(text, "\n")
}

func splitName(text string) (string, string) {
	end := 0
	for end < len(text) && isWordByte(text[end]) && text[end] != '.' {
		end++
	}

	return text[:end], text[end:]
}

// stripComments removes // and /* */ comments outside string literals. inComment says
// whether the line starts inside a /* comment; the result says whether it ends inside one.
func stripComments(line string, inComment bool) (string, bool) {
	var out strings.Builder

	inString := false

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case inComment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				inComment = false
				i++
			}
		case inString:
			out.WriteByte(c)

			if c == '\\' && i+1 < len(line) {
				out.WriteByte(line[i+1])
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true

			out.WriteByte(c)
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return out.String(), false
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			inComment = true
			i++
		default:
			out.WriteByte(c)
		}
	}

	return out.String(), inComment
}
