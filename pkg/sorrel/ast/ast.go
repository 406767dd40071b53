// Package ast defines the Sorrel syntax tree handed to the evaluator.
//
// Nodes are built by a host parser, by the constructors in this package, or
// decoded from an AST document (see package astdoc). Nodes never hold a
// reference to an execution context; context is supplied per evaluation.
package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Position is the source location of a node.
type Position struct {
	Script string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.Script == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Script, p.Line, p.Column)
}

// Scope is the parse-time symbol scope a node was declared in.
// A nil scope is the script's top level.
type Scope struct {
	Name   string
	Parent *Scope
}

// Path returns the dotted path of the scope, outermost first.
func (s *Scope) Path() string {
	if s == nil {
		return ""
	}
	if p := s.Parent.Path(); p != "" {
		return p + "." + s.Name
	}
	return s.Name
}

// Qualify prefixes name with the scope path.
func (s *Scope) Qualify(name string) string {
	if p := s.Path(); p != "" {
		return p + "." + name
	}
	return name
}

// Node represents any node in the AST
type Node interface {
	Position() Position
	SymbolScope() *Scope
	IsImmediate() bool
	String() string
}

// Base carries the metadata every node shares.
type Base struct {
	Pos       Position
	Scope     *Scope
	Immediate bool // hoisted: evaluated before the other statements of its block
}

func (b *Base) Position() Position  { return b.Pos }
func (b *Base) SymbolScope() *Scope { return b.Scope }
func (b *Base) IsImmediate() bool   { return b.Immediate }

// Meta exposes the shared metadata for tools that build nodes generically.
func (b *Base) Meta() *Base { return b }

// Annotated is implemented by every node type through Base.
type Annotated interface {
	Node
	Meta() *Base
}

// NumberLiteral is a floating point literal.
type NumberLiteral struct {
	Base
	Value float64
}

func (n *NumberLiteral) String() string { return strconv.FormatFloat(n.Value, 'f', -1, 64) }

// IntegerLiteral is an integer literal; it evaluates to a Number.
type IntegerLiteral struct {
	Base
	Value int64
}

func (il *IntegerLiteral) String() string { return strconv.FormatInt(il.Value, 10) }

// StringLiteral is a quoted string.
type StringLiteral struct {
	Base
	Value string
}

func (sl *StringLiteral) String() string { return strconv.Quote(sl.Value) }

// BooleanLiteral is true or false.
type BooleanLiteral struct {
	Base
	Value bool
}

func (b *BooleanLiteral) String() string { return strconv.FormatBool(b.Value) }

// NullLiteral is null.
type NullLiteral struct {
	Base
}

func (n *NullLiteral) String() string { return "null" }

// Identifier references a variable or function by name.
type Identifier struct {
	Base
	Name string
}

func (i *Identifier) String() string { return i.Name }

// Binary is an arithmetic expression: + - * / %
type Binary struct {
	Base
	Left     Node
	Operator string
	Right    Node
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Operator + " " + b.Right.String() + ")"
}

// Compare is a comparison: < <= > >= == !=
type Compare struct {
	Base
	Left     Node
	Operator string
	Right    Node
}

func (c *Compare) String() string {
	return "(" + c.Left.String() + " " + c.Operator + " " + c.Right.String() + ")"
}

// Logical is && or ||.
type Logical struct {
	Base
	Left     Node
	Operator string
	Right    Node
}

func (l *Logical) String() string {
	return "(" + l.Left.String() + " " + l.Operator + " " + l.Right.String() + ")"
}

// Unary is a prefix operator: - + !
type Unary struct {
	Base
	Operator string
	Operand  Node
}

func (u *Unary) String() string { return "(" + u.Operator + u.Operand.String() + ")" }

// Increment is ++ or -- applied to a variable, member or index target.
type Increment struct {
	Base
	Operator string
	Prefix   bool
	Target   Node
}

func (i *Increment) String() string {
	if i.Prefix {
		return i.Operator + i.Target.String()
	}
	return i.Target.String() + i.Operator
}

// Assignment assigns Value to Target. Declare forces a new binding in the
// innermost frame. Operator is "=" or a compound form such as "+=".
type Assignment struct {
	Base
	Target   Node
	Operator string
	Value    Node
	Declare  bool
}

func (a *Assignment) String() string {
	var out bytes.Buffer
	if a.Declare {
		out.WriteString("var ")
	}
	out.WriteString(a.Target.String())
	out.WriteString(" " + a.Operator + " ")
	out.WriteString(a.Value.String())
	return out.String()
}

// MultiAssignment is an ordered list of assignments sharing one statement.
type MultiAssignment struct {
	Base
	Assignments []*Assignment
}

func (m *MultiAssignment) String() string {
	parts := make([]string, len(m.Assignments))
	for i, a := range m.Assignments {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// Block is a sequence of statements evaluated in their own scope frame.
type Block struct {
	Base
	Statements []Node
}

func (b *Block) String() string {
	var out bytes.Buffer
	out.WriteString("{")
	for i, s := range b.Statements {
		if i > 0 {
			out.WriteString("; ")
		}
		out.WriteString(s.String())
	}
	out.WriteString("}")
	return out.String()
}

// Call invokes Callee with Args. Callee is an Identifier for a bare call
// and a MemberAccess for a dotted call.
type Call struct {
	Base
	Callee Node
	Args   []Node
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Callee.String() + "(" + strings.Join(args, ", ") + ")"
}

// MemberAccess is a dotted access: Object.Name
type MemberAccess struct {
	Base
	Object Node
	Name   string
}

func (m *MemberAccess) String() string { return m.Object.String() + "." + m.Name }

// Index is Left[Index].
type Index struct {
	Base
	Left  Node
	Index Node
}

func (ix *Index) String() string { return ix.Left.String() + "[" + ix.Index.String() + "]" }

// ArrayLiteral is [a, b, c].
type ArrayLiteral struct {
	Base
	Elements []Node
}

func (al *ArrayLiteral) String() string {
	elems := make([]string, len(al.Elements))
	for i, e := range al.Elements {
		elems[i] = e.String()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// MapEntry is one key/value pair of a MapLiteral.
type MapEntry struct {
	Key   string
	Value Node
}

// MapLiteral is {key: value, ...}; keys keep their written order.
type MapLiteral struct {
	Base
	Entries []MapEntry
}

func (ml *MapLiteral) String() string {
	pairs := make([]string, len(ml.Entries))
	for i, e := range ml.Entries {
		pairs[i] = e.Key + ": " + e.Value.String()
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// Interpolation concatenates the string forms of its parts.
type Interpolation struct {
	Base
	Parts []Node
}

func (in *Interpolation) String() string {
	var out bytes.Buffer
	out.WriteString("`")
	for _, p := range in.Parts {
		if sl, ok := p.(*StringLiteral); ok {
			out.WriteString(sl.Value)
			continue
		}
		out.WriteString("{" + p.String() + "}")
	}
	out.WriteString("`")
	return out.String()
}

// New constructs a registered type: new Date(2024, 1, 31)
type New struct {
	Base
	TypeName string
	Args     []Node
}

func (n *New) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return "new " + n.TypeName + "(" + strings.Join(args, ", ") + ")"
}

// Return ends the current function. Value is nil for a bare return.
type Return struct {
	Base
	Value Node
}

func (r *Return) String() string {
	if r.Value == nil {
		return "return"
	}
	return "return " + r.Value.String()
}

// If is a conditional. Alternative is nil, a *Block or another *If.
type If struct {
	Base
	Condition   Node
	Consequence *Block
	Alternative Node
}

func (i *If) String() string {
	s := "if " + i.Condition.String() + " " + i.Consequence.String()
	if i.Alternative != nil {
		s += " else " + i.Alternative.String()
	}
	return s
}

// While repeats Body while Condition is true.
type While struct {
	Base
	Condition Node
	Body      *Block
}

func (w *While) String() string { return "while " + w.Condition.String() + " " + w.Body.String() }

// ForIn iterates array elements, map keys or string characters.
type ForIn struct {
	Base
	Variable string
	Iterable Node
	Body     *Block
}

func (f *ForIn) String() string {
	return "for " + f.Variable + " in " + f.Iterable.String() + " " + f.Body.String()
}

// Break leaves the innermost loop.
type Break struct {
	Base
}

func (b *Break) String() string { return "break" }

// Continue skips to the next iteration of the innermost loop.
type Continue struct {
	Base
}

func (c *Continue) String() string { return "continue" }

// ExpressionStatement wraps an expression evaluated for its value or effects.
type ExpressionStatement struct {
	Base
	Expression Node
}

func (es *ExpressionStatement) String() string {
	if es.Expression == nil {
		return ""
	}
	return es.Expression.String()
}

// KindOf returns the document kind name of a node, as used by AST
// documents and trace records.
func KindOf(n Node) string {
	switch n.(type) {
	case *NumberLiteral:
		return "number"
	case *IntegerLiteral:
		return "integer"
	case *StringLiteral:
		return "string"
	case *BooleanLiteral:
		return "boolean"
	case *NullLiteral:
		return "null"
	case *Identifier:
		return "identifier"
	case *Binary:
		return "binary"
	case *Compare:
		return "compare"
	case *Logical:
		return "logical"
	case *Unary:
		return "unary"
	case *Increment:
		return "increment"
	case *Assignment:
		return "assign"
	case *MultiAssignment:
		return "multiAssign"
	case *Block:
		return "block"
	case *FunctionDefinition:
		return "function"
	case *Call:
		return "call"
	case *MemberAccess:
		return "member"
	case *Index:
		return "index"
	case *ArrayLiteral:
		return "array"
	case *MapLiteral:
		return "map"
	case *Interpolation:
		return "interpolate"
	case *New:
		return "new"
	case *Return:
		return "return"
	case *If:
		return "if"
	case *While:
		return "while"
	case *ForIn:
		return "forIn"
	case *Break:
		return "break"
	case *Continue:
		return "continue"
	case *ExpressionStatement:
		return "expr"
	default:
		return fmt.Sprintf("%T", n)
	}
}
