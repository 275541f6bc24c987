package template

import (
	"go/token"
	"strings"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Functions - Public

// Parse turns a fragment body into nodes. pos is the position of the body's first line.
//
// A line holding nothing but one block tag ({% ... %}) is consumed whole, newline
// included, so block structure never leaves blank lines behind. A line whose first
// word is #replace is a composition reference.
func Parse(body string, pos util.Position) ([]Node, error) {
	items, err := scan(body, pos)
	if err != nil {
		return nil, err
	}

	p := &bodyParser{items: items}

	nodes, end, err := p.nodes()
	if err != nil {
		return nil, err
	}

	if end != nil {
		return nil, util.Errorf(end.pos, util.ErrSyntax, "unexpected {%% %s %%}", end.text)
	}

	return nodes, nil
}

// Structs - Private

type item struct {
	kind itemKind
	text string
	pos  util.Position
}

type itemKind int

const (
	itemText itemKind = iota
	itemOutput
	itemTag
	itemReplace
)

type bodyParser struct {
	items []item
	next  int
}

// nodes parses until the items run out or a tag that closes an enclosing block
// (endfor, elif, else, endif) appears; that tag is returned unconsumed.
func (p *bodyParser) nodes() ([]Node, *item, error) {
	var nodes []Node

	for p.next < len(p.items) {
		it := p.items[p.next]

		switch it.kind {
		case itemText:
			p.next++
			nodes = append(nodes, &TextNode{Text: it.text, Pos: it.pos})
		case itemReplace:
			p.next++
			nodes = append(nodes, &ReplaceNode{Name: it.text, Pos: it.pos})
		case itemOutput:
			p.next++

			e, err := ParseExpr(it.text, it.pos)
			if err != nil {
				return nil, nil, err
			}

			nodes = append(nodes, &OutputNode{Expr: e, Pos: it.pos})
		case itemTag:
			word, rest := tagWord(it.text)

			switch word {
			case "for":
				p.next++

				n, err := p.forNode(rest, it.pos)
				if err != nil {
					return nil, nil, err
				}

				nodes = append(nodes, n)
			case "if":
				p.next++

				n, err := p.ifNode(rest, it.pos)
				if err != nil {
					return nil, nil, err
				}

				nodes = append(nodes, n)
			case "endfor", "elif", "else", "endif":
				return nodes, &it, nil
			default:
				return nil, nil, util.Errorf(it.pos, util.ErrSyntax, "unknown tag %q", word)
			}
		}
	}

	return nodes, nil, nil
}

func (p *bodyParser) forNode(text string, pos util.Position) (*ForNode, error) {
	head, seqText, found := strings.Cut(text, " in ")
	if !found {
		return nil, util.Errorf(pos, util.ErrSyntax, "for tag needs \"<vars> in <sequence>\", got %q", text)
	}

	var vars []string

	for _, v := range strings.Split(head, ",") {
		v = strings.TrimSpace(v)
		if !isName(v) {
			return nil, util.Errorf(pos, util.ErrSyntax, "bad loop variable %q", v)
		}

		vars = append(vars, v)
	}

	seq, err := ParseExpr(seqText, pos)
	if err != nil {
		return nil, err
	}

	body, end, err := p.nodes()
	if err != nil {
		return nil, err
	}

	if end == nil || strings.TrimSpace(end.text) != "endfor" {
		return nil, util.Errorf(pos, util.ErrSyntax, "for loop opened here is not closed by endfor")
	}

	p.next++

	return &ForNode{Vars: vars, Seq: seq, Body: body, Pos: pos}, nil
}

func (p *bodyParser) ifNode(text string, pos util.Position) (*IfNode, error) {
	n := &IfNode{Pos: pos}
	condText := text

	for {
		cond, err := ParseExpr(condText, pos)
		if err != nil {
			return nil, err
		}

		body, end, err := p.nodes()
		if err != nil {
			return nil, err
		}

		n.Branches = append(n.Branches, Branch{Cond: cond, Body: body})

		if end == nil {
			return nil, util.Errorf(pos, util.ErrSyntax, "if opened here is not closed by endif")
		}

		p.next++

		word, rest := tagWord(end.text)

		switch word {
		case "elif":
			condText = rest

			continue
		case "else":
			elseBody, elseEnd, err := p.nodes()
			if err != nil {
				return nil, err
			}

			if elseEnd == nil || strings.TrimSpace(elseEnd.text) != "endif" {
				return nil, util.Errorf(pos, util.ErrSyntax, "else of the if opened here is not closed by endif")
			}

			p.next++
			n.Else = elseBody

			return n, nil
		case "endif":
			return n, nil
		default:
			return nil, util.Errorf(end.pos, util.ErrSyntax, "unexpected {%% %s %%} inside if", end.text)
		}
	}
}

// Functions - Private

// scan splits a body into text, output, tag and replace items, line by line.
func scan(body string, pos util.Position) ([]item, error) {
	var items []item

	lines := strings.SplitAfter(body, "\n")

	for i, line := range lines {
		if line == "" {
			continue
		}

		linePos := util.Position{File: pos.File, Line: pos.Line + i}
		trimmed := strings.TrimSpace(line)

		if name, ok := strings.CutPrefix(trimmed, "#replace"); ok && (name == "" || name[0] == ' ' || name[0] == '\t') {
			name = strings.TrimSpace(name)
			if !isName(name) {
				return nil, util.Errorf(linePos, util.ErrSyntax, "#replace needs a fragment name, got %q", name)
			}

			items = append(items, item{kind: itemReplace, text: name, pos: linePos})

			continue
		}

		if isStandaloneTag(trimmed) {
			items = append(items, item{kind: itemTag, text: trimTag(trimmed), pos: linePos})

			continue
		}

		lineItems, err := scanInline(line, linePos)
		if err != nil {
			return nil, err
		}

		items = append(items, lineItems...)
	}

	return items, nil
}

func scanInline(line string, pos util.Position) ([]item, error) {
	var items []item

	for line != "" {
		outIdx := strings.Index(line, "{{")
		tagIdx := strings.Index(line, "{%")

		start, open, closer, kind := outIdx, "{{", "}}", itemOutput
		if outIdx < 0 || (tagIdx >= 0 && tagIdx < outIdx) {
			start, open, closer, kind = tagIdx, "{%", "%}", itemTag
		}

		if start < 0 {
			items = append(items, item{kind: itemText, text: line, pos: pos})

			break
		}

		if start > 0 {
			items = append(items, item{kind: itemText, text: line[:start], pos: pos})
		}

		end := strings.Index(line[start+len(open):], closer)
		if end < 0 {
			return nil, util.Errorf(pos, util.ErrSyntax, "%s without matching %s", open, closer)
		}

		inner := strings.TrimSpace(line[start+len(open) : start+len(open)+end])
		items = append(items, item{kind: kind, text: inner, pos: pos})
		line = line[start+len(open)+end+len(closer):]
	}

	return items, nil
}

func isStandaloneTag(trimmed string) bool {
	return strings.HasPrefix(trimmed, "{%") &&
		strings.HasSuffix(trimmed, "%}") &&
		strings.Count(trimmed, "{%") == 1 &&
		strings.Count(trimmed, "%}") == 1
}

func tagWord(text string) (string, string) {
	text = strings.TrimSpace(text)
	word, rest, _ := strings.Cut(text, " ")

	return word, strings.TrimSpace(rest)
}

func trimTag(trimmed string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, "{%"), "%}"))
}

// isName reports whether name can name a variable, fragment or parameter in the
// template language. Go keywords such as type are allowed; the expression words
// and, or, not and in are not.
func isName(name string) bool {
	switch name {
	case "and", "or", "not", "in", "true", "false", "_":
		return false
	}

	return token.IsIdentifier(name) || token.IsKeyword(name)
}
