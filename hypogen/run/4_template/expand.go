package template

import (
	"fmt"
	"slices"
	"strings"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Structs - Public

// Expander renders fragments from a Store. It holds no per-expansion state, so one
// Expander may serve concurrent expansions.
type Expander struct {
	store   *Store
	filters map[string]Filter
}

// NewExpander creates an expander over store with the built-in filters.
func NewExpander(store *Store) *Expander {
	return &Expander{store: store, filters: defaultFilters()}
}

// Expand renders f in env.
func (x *Expander) Expand(f Fragment, env *Env) (string, error) {
	c := &call{x: x}

	return c.fragment(f, env)
}

// ExpandName looks up name and renders it in env.
func (x *Expander) ExpandName(name string, env *Env) (string, error) {
	f, err := x.store.Lookup(name)
	if err != nil {
		return "", err
	}

	return x.Expand(f, env)
}

// WithFilter returns a copy of the expander with an extra or replaced filter.
func (x *Expander) WithFilter(name string, fn Filter) *Expander {
	filters := make(map[string]Filter, len(x.filters)+1)
	for k, v := range x.filters {
		filters[k] = v
	}

	filters[name] = fn

	return &Expander{store: x.store, filters: filters}
}

// Structs - Private

// call carries the state of one top-level expansion: the stack of fragments being
// expanded, for cycle detection and diagnostics.
type call struct {
	x     *Expander
	stack []string
}

func (c *call) current() string {
	if len(c.stack) == 0 {
		return "<top>"
	}

	return c.stack[len(c.stack)-1]
}

func (c *call) eval(e Expr, env *Env, pos util.Position) (any, error) {
	switch ex := e.(type) {
	case *LiteralExpr:
		return ex.Value, nil
	case *PathExpr:
		return c.path(ex, env, pos)
	case *NotExpr:
		v, err := c.eval(ex.X, env, pos)
		if err != nil {
			return nil, err
		}

		return !truthy(v), nil
	case *BinaryExpr:
		return c.binary(ex, env, pos)
	case *FilterExpr:
		v, err := c.eval(ex.Target, env, pos)
		if err != nil {
			return nil, err
		}

		fn, ok := c.x.filters[ex.Name]
		if !ok {
			return nil, util.Errorf(pos, util.ErrUnknownFilter, "%s (in %s)", ex.Name, c.current())
		}

		out, err := fn(v, ex.Args)
		if err != nil {
			return nil, &util.PosError{Pos: pos, Err: fmt.Errorf("filter %s in %s: %w", ex.Name, c.current(), err)}
		}

		return out, nil
	default:
		return nil, util.Errorf(pos, util.ErrSyntax, "unsupported expression %T", e)
	}
}

func (c *call) binary(ex *BinaryExpr, env *Env, pos util.Position) (any, error) {
	left, err := c.eval(ex.L, env, pos)
	if err != nil {
		return nil, err
	}

	switch ex.Op {
	case "and":
		if !truthy(left) {
			return false, nil
		}
	case "or":
		if truthy(left) {
			return true, nil
		}
	}

	right, err := c.eval(ex.R, env, pos)
	if err != nil {
		return nil, err
	}

	switch ex.Op {
	case "==":
		return stringify(left) == stringify(right), nil
	case "!=":
		return stringify(left) != stringify(right), nil
	default:
		return truthy(right), nil
	}
}

func (c *call) fragment(f Fragment, env *Env) (string, error) {
	if slices.Contains(c.stack, f.Name()) {
		chain := append(slices.Clone(c.stack), f.Name())

		return "", util.Errorf(f.Pos(), util.ErrCompositionCycle, "%s", strings.Join(chain, " -> "))
	}

	c.stack = append(c.stack, f.Name())
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	return f.expand(c, env)
}

func (c *call) forNode(n *ForNode, env *Env, out *strings.Builder) error {
	v, err := c.eval(n.Seq, env, n.Pos)
	if err != nil {
		return err
	}

	seq, ok := sequence(v)
	if !ok {
		return util.Errorf(n.Pos, util.ErrTypeMismatch, "cannot loop over %T (in %s)", v, c.current())
	}

	for i, elem := range seq {
		frame := map[string]any{
			"loop": Object{Fields: map[string]any{
				"index":  i,
				"index1": i + 1,
				"first":  i == 0,
				"last":   i == len(seq)-1,
				"length": len(seq),
			}},
		}

		if len(n.Vars) == 1 {
			frame[n.Vars[0]] = elem
		} else {
			values, ok := unpack(elem, len(n.Vars))
			if !ok {
				return util.Errorf(n.Pos, util.ErrTypeMismatch,
					"cannot unpack %T into %d variables (in %s)", elem, len(n.Vars), c.current())
			}

			for j, name := range n.Vars {
				frame[name] = values[j]
			}
		}

		if err := c.renderInto(n.Body, env.With(frame), out); err != nil {
			return err
		}
	}

	return nil
}

// path resolves a dotted variable path. A single name that no frame binds falls back
// to the fragment of that name, expanded inline without its trailing newline.
func (c *call) path(ex *PathExpr, env *Env, pos util.Position) (any, error) {
	head := ex.Parts[0]

	v, ok := env.Lookup(head)
	if !ok {
		if len(ex.Parts) == 1 {
			if f, err := c.x.store.Lookup(head); err == nil {
				text, err := c.fragment(f, env)
				if err != nil {
					return nil, err
				}

				return strings.TrimSuffix(text, "\n"), nil
			}
		}

		return nil, util.Errorf(pos, util.ErrUnboundVariable, "%s (in %s)", head, c.current())
	}

	for i, part := range ex.Parts[1:] {
		next, ok := field(v, part)
		if !ok {
			return nil, util.Errorf(pos, util.ErrUnboundVariable,
				"%s (in %s)", strings.Join(ex.Parts[:i+2], "."), c.current())
		}

		v = next
	}

	return v, nil
}

func (c *call) render(nodes []Node, env *Env) (string, error) {
	var out strings.Builder

	if err := c.renderInto(nodes, env, &out); err != nil {
		return "", err
	}

	return out.String(), nil
}

func (c *call) renderInto(nodes []Node, env *Env, out *strings.Builder) error {
	for _, node := range nodes {
		switch n := node.(type) {
		case *TextNode:
			out.WriteString(n.Text)
		case *OutputNode:
			v, err := c.eval(n.Expr, env, n.Pos)
			if err != nil {
				return err
			}

			out.WriteString(stringify(v))
		case *ForNode:
			if err := c.forNode(n, env, out); err != nil {
				return err
			}
		case *IfNode:
			body, err := c.branch(n, env)
			if err != nil {
				return err
			}

			if err := c.renderInto(body, env, out); err != nil {
				return err
			}
		case *ReplaceNode:
			text, err := c.replace(n, env)
			if err != nil {
				return err
			}

			out.WriteString(text)
		}
	}

	return nil
}

func (c *call) branch(n *IfNode, env *Env) ([]Node, error) {
	for _, b := range n.Branches {
		v, err := c.eval(b.Cond, env, n.Pos)
		if err != nil {
			return nil, err
		}

		if truthy(v) {
			return b.Body, nil
		}
	}

	return n.Else, nil
}

// replace resolves a composition reference: a registered fragment first, then a
// string binding holding verbatim code.
func (c *call) replace(n *ReplaceNode, env *Env) (string, error) {
	var text string

	if f, err := c.x.store.Lookup(n.Name); err == nil {
		text, err = c.fragment(f, env)
		if err != nil {
			return "", err
		}
	} else if v, ok := env.Lookup(n.Name); ok {
		text = stringify(v)
	} else {
		return "", util.Errorf(n.Pos, util.ErrUnknownFragment, "%s (in %s)", n.Name, c.current())
	}

	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	return text, nil
}
