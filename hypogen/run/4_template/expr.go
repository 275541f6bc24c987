package template

import (
	"strconv"
	"strings"
	"unicode"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Functions - Public

// ParseExpr parses the text of an expression as it appears inside {{ }} or after
// "if" in a block tag.
func ParseExpr(text string, pos util.Position) (Expr, error) {
	toks, err := lexExpr(text, pos)
	if err != nil {
		return nil, err
	}

	p := &exprParser{toks: toks, pos: pos, src: text}

	e, err := p.or()
	if err != nil {
		return nil, err
	}

	if !p.done() {
		return nil, p.fail("unexpected %q", p.peek().text)
	}

	return e, nil
}

// Structs - Private

type exprToken struct {
	kind exprKind
	text string
}

type exprKind int

const (
	tokIdent exprKind = iota
	tokInt
	tokString
	tokOp
)

type exprParser struct {
	toks []exprToken
	next int
	pos  util.Position
	src  string
}

func (p *exprParser) accept(kind exprKind, text string) bool {
	if p.done() || p.peek().kind != kind || p.peek().text != text {
		return false
	}

	p.next++

	return true
}

func (p *exprParser) and() (Expr, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}

	for p.accept(tokIdent, "and") {
		right, err := p.not()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{Op: "and", L: left, R: right}
	}

	return left, nil
}

func (p *exprParser) compare() (Expr, error) {
	left, err := p.pipe()
	if err != nil {
		return nil, err
	}

	for _, op := range []string{"==", "!="} {
		if p.accept(tokOp, op) {
			right, err := p.pipe()
			if err != nil {
				return nil, err
			}

			return &BinaryExpr{Op: op, L: left, R: right}, nil
		}
	}

	return left, nil
}

func (p *exprParser) done() bool {
	return p.next >= len(p.toks)
}

// maxFilterArg bounds filter arguments such as indent depth and hex width.
const maxFilterArg = 64

func (p *exprParser) fail(format string, args ...any) error {
	return util.Errorf(p.pos, util.ErrSyntax, "expression %q: "+format, append([]any{p.src}, args...)...)
}

func (p *exprParser) not() (Expr, error) {
	if p.accept(tokIdent, "not") {
		inner, err := p.not()
		if err != nil {
			return nil, err
		}

		return &NotExpr{X: inner}, nil
	}

	return p.compare()
}

func (p *exprParser) or() (Expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}

	for p.accept(tokIdent, "or") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{Op: "or", L: left, R: right}
	}

	return left, nil
}

func (p *exprParser) peek() exprToken {
	return p.toks[p.next]
}

func (p *exprParser) pipe() (Expr, error) {
	target, err := p.primary()
	if err != nil {
		return nil, err
	}

	for p.accept(tokOp, "|") {
		if p.done() || p.peek().kind != tokIdent {
			return nil, p.fail("filter name expected after |")
		}

		filter := &FilterExpr{Target: target, Name: p.peek().text}
		p.next++

		if p.accept(tokOp, "(") {
			for !p.accept(tokOp, ")") {
				if p.done() || p.peek().kind != tokInt {
					return nil, p.fail("filter %s takes integer arguments", filter.Name)
				}

				n, err := strconv.Atoi(p.peek().text)
				if err != nil || n > maxFilterArg {
					return nil, p.fail("filter %s argument %s out of range 0..%d", filter.Name, p.peek().text, maxFilterArg)
				}

				filter.Args = append(filter.Args, n)
				p.next++

				p.accept(tokOp, ",")
			}
		}

		target = filter
	}

	return target, nil
}

func (p *exprParser) primary() (Expr, error) {
	if p.done() {
		return nil, p.fail("unexpected end")
	}

	tok := p.peek()
	p.next++

	switch tok.kind {
	case tokString:
		return &LiteralExpr{Value: tok.text}, nil
	case tokInt:
		n, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, p.fail("integer %s out of range", tok.text)
		}

		return &LiteralExpr{Value: n}, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return &LiteralExpr{Value: true}, nil
		case "false":
			return &LiteralExpr{Value: false}, nil
		case "and", "or", "not":
			return nil, p.fail("unexpected %q", tok.text)
		}

		parts := strings.Split(tok.text, ".")
		for _, part := range parts {
			if part == "" {
				return nil, p.fail("bad variable path %q", tok.text)
			}
		}

		return &PathExpr{Parts: parts}, nil
	case tokOp:
		if tok.text == "(" {
			inner, err := p.or()
			if err != nil {
				return nil, err
			}

			if !p.accept(tokOp, ")") {
				return nil, p.fail("missing )")
			}

			return inner, nil
		}
	}

	return nil, p.fail("unexpected %q", tok.text)
}

// Functions - Private

func lexExpr(text string, pos util.Position) ([]exprToken, error) {
	var toks []exprToken

	for i := 0; i < len(text); {
		c := rune(text[i])

		switch {
		case unicode.IsSpace(c):
			i++
		case c == '_' || unicode.IsLetter(c):
			start := i
			for i < len(text) && (text[i] == '_' || text[i] == '.' || isAlnum(rune(text[i]))) {
				i++
			}

			toks = append(toks, exprToken{kind: tokIdent, text: text[start:i]})
		case unicode.IsDigit(c):
			start := i
			for i < len(text) && unicode.IsDigit(rune(text[i])) {
				i++
			}

			toks = append(toks, exprToken{kind: tokInt, text: text[start:i]})
		case c == '"' || c == '\'':
			end := strings.IndexByte(text[i+1:], text[i])
			if end < 0 {
				return nil, util.Errorf(pos, util.ErrSyntax, "expression %q: unterminated string", text)
			}

			toks = append(toks, exprToken{kind: tokString, text: text[i+1 : i+1+end]})
			i += end + 2
		case strings.HasPrefix(text[i:], "==") || strings.HasPrefix(text[i:], "!="):
			toks = append(toks, exprToken{kind: tokOp, text: text[i : i+2]})
			i += 2
		case strings.ContainsRune("|(),", c):
			toks = append(toks, exprToken{kind: tokOp, text: string(c)})
			i++
		default:
			return nil, util.Errorf(pos, util.ErrSyntax, "expression %q: unexpected %q", text, string(c))
		}
	}

	if len(toks) == 0 {
		return nil, util.Errorf(pos, util.ErrSyntax, "empty expression")
	}

	return toks, nil
}

func isAlnum(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c)
}
