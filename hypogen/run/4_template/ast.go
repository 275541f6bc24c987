// Package template holds the fragment store and the expander that renders fragments
// against an environment chain of bindings.
package template

import (
	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Interfaces - Public

// Node is one element of a parsed fragment body.
type Node interface {
	Position() util.Position
	node()
}

// Expr is a parsed expression inside {{ }} or a block tag.
type Expr interface {
	expr()
}

// Structs - Public

// TextNode is literal text, emitted verbatim.
type TextNode struct {
	Text string
	Pos  util.Position
}

// OutputNode emits the value of an expression.
type OutputNode struct {
	Expr Expr
	Pos  util.Position
}

// ForNode expands Body once per element of Seq.
type ForNode struct {
	Vars []string
	Seq  Expr
	Body []Node
	Pos  util.Position
}

// IfNode expands the body of the first branch whose condition holds, or Else.
type IfNode struct {
	Branches []Branch
	Else     []Node
	Pos      util.Position
}

// Branch is one condition and body of an IfNode.
type Branch struct {
	Cond Expr
	Body []Node
}

// ReplaceNode is a composition reference: the line is replaced by the named
// fragment's expansion.
type ReplaceNode struct {
	Name string
	Pos  util.Position
}

// PathExpr is a variable reference with optional field access: a.b.c.
type PathExpr struct {
	Parts []string
}

// LiteralExpr is a string, integer or boolean constant.
type LiteralExpr struct {
	Value any
}

// FilterExpr applies the named filter to Target.
type FilterExpr struct {
	Target Expr
	Name   string
	Args   []int
}

// NotExpr negates the truthiness of X.
type NotExpr struct {
	X Expr
}

// BinaryExpr is and, or, == or !=.
type BinaryExpr struct {
	Op   string
	L, R Expr
}

func (n *TextNode) Position() util.Position    { return n.Pos }
func (n *OutputNode) Position() util.Position  { return n.Pos }
func (n *ForNode) Position() util.Position     { return n.Pos }
func (n *IfNode) Position() util.Position      { return n.Pos }
func (n *ReplaceNode) Position() util.Position { return n.Pos }

func (*TextNode) node()    {}
func (*OutputNode) node()  {}
func (*ForNode) node()     {}
func (*IfNode) node()      {}
func (*ReplaceNode) node() {}

func (*PathExpr) expr()    {}
func (*LiteralExpr) expr() {}
func (*FilterExpr) expr()  {}
func (*NotExpr) expr()     {}
func (*BinaryExpr) expr()  {}
