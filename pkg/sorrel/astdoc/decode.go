// Package astdoc reads and writes Sorrel syntax trees as YAML documents.
//
// A document is a mapping with an optional script name and a body of
// statements:
//
//	script: invoice.sorrel
//	body:
//	  - kind: assign
//	    line: 1
//	    col: 1
//	    target: {kind: identifier, name: total}
//	    value: {kind: number, value: 0}
//
// Every node is a mapping with a kind and kind-specific fields. Nodes may
// carry line, col, scope (a dotted module path) and immediate. Operator
// nodes and assignments are built through the ast constructors, so a
// document can never hold a node the constructors would reject.
package astdoc

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// Document is a decoded AST document.
type Document struct {
	Script string
	Root   *ast.Block
}

// Decode reads one YAML document from r.
func Decode(r io.Reader) (*Document, error) {
	return DecodeNamed(r, "")
}

// DecodeNamed reads one YAML document from r, using script as the script
// name when the document does not set one.
func DecodeNamed(r io.Reader, script string) (*Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, serrors.NewWithPosition("SYNTAX-0007", script, 0, 0, map[string]any{"Detail": "empty document"})
		}
		return nil, serrors.NewWithPosition("SYNTAX-0007", script, 0, 0, map[string]any{"Detail": err.Error()})
	}

	top := &root
	if top.Kind == yaml.DocumentNode && len(top.Content) > 0 {
		top = top.Content[0]
	}

	d := &decoder{script: script, scopes: make(map[string]*ast.Scope)}
	if top.Kind != yaml.MappingNode {
		return nil, d.fail(top, "document must be a mapping with a body")
	}
	m, err := d.mapping(top)
	if err != nil {
		return nil, err
	}
	if name, ok, err := m.optString("script"); err != nil {
		return nil, err
	} else if ok {
		d.script = name
	}

	stmts, err := m.list("body")
	if err != nil {
		return nil, err
	}
	return &Document{
		Script: d.script,
		Root:   &ast.Block{Base: ast.Base{Pos: ast.Position{Script: d.script, Line: 1, Column: 1}}, Statements: stmts},
	}, nil
}

// DecodeString decodes a document held in memory.
func DecodeString(s string) (*Document, error) {
	return Decode(strings.NewReader(s))
}

type decoder struct {
	script string
	scopes map[string]*ast.Scope
}

func (d *decoder) fail(n *yaml.Node, detail string) error {
	return serrors.NewWithPosition("SYNTAX-0007", d.script, n.Line, n.Column, map[string]any{"Detail": detail})
}

// locate gives position-less constructor errors the YAML position.
func (d *decoder) locate(err error, n *yaml.Node) error {
	if se, ok := serrors.As(err); ok && se.Line == 0 {
		se.Script, se.Line, se.Column = d.script, n.Line, n.Column
	}
	return err
}

// scope returns the shared scope chain for a dotted path.
func (d *decoder) scope(path string) *ast.Scope {
	if path == "" {
		return nil
	}
	if s, ok := d.scopes[path]; ok {
		return s
	}
	var parent *ast.Scope
	name := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		parent = d.scope(path[:i])
		name = path[i+1:]
	}
	s := &ast.Scope{Name: name, Parent: parent}
	d.scopes[path] = s
	return s
}

// mapping is one YAML mapping node with its fields indexed by key.
type mapping struct {
	d      *decoder
	node   *yaml.Node
	fields map[string]*yaml.Node
}

func (d *decoder) mapping(n *yaml.Node) (*mapping, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind != yaml.MappingNode {
		return nil, d.fail(n, "expected a mapping")
	}
	m := &mapping{d: d, node: n, fields: make(map[string]*yaml.Node, len(n.Content)/2)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if _, dup := m.fields[key]; dup {
			return nil, d.fail(n.Content[i], fmt.Sprintf("duplicate key %q", key))
		}
		m.fields[key] = n.Content[i+1]
	}
	return m, nil
}

func (m *mapping) scalar(key string, out any) (bool, error) {
	n, ok := m.fields[key]
	if !ok {
		return false, nil
	}
	if n.Kind != yaml.ScalarNode {
		return false, m.d.fail(n, fmt.Sprintf("%s must be a scalar", key))
	}
	if err := n.Decode(out); err != nil {
		return false, m.d.fail(n, fmt.Sprintf("%s: %v", key, err))
	}
	return true, nil
}

func (m *mapping) optString(key string) (string, bool, error) {
	var s string
	ok, err := m.scalar(key, &s)
	return s, ok, err
}

func (m *mapping) str(key string) (string, error) {
	s, ok, err := m.optString(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", m.d.fail(m.node, fmt.Sprintf("missing %s", key))
	}
	return s, nil
}

func (m *mapping) boolean(key string) (bool, error) {
	var b bool
	_, err := m.scalar(key, &b)
	return b, err
}

func (m *mapping) integer(key string) (int, error) {
	var i int
	_, err := m.scalar(key, &i)
	return i, err
}

func (m *mapping) child(key string) (ast.Node, error) {
	n, ok := m.fields[key]
	if !ok {
		return nil, m.d.fail(m.node, fmt.Sprintf("missing %s", key))
	}
	return m.d.node(n)
}

func (m *mapping) optChild(key string) (ast.Node, error) {
	if _, ok := m.fields[key]; !ok {
		return nil, nil
	}
	return m.child(key)
}

func (m *mapping) list(key string) ([]ast.Node, error) {
	n, ok := m.fields[key]
	if !ok {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, m.d.fail(n, fmt.Sprintf("%s must be a list", key))
	}
	nodes := make([]ast.Node, 0, len(n.Content))
	for _, c := range n.Content {
		node, err := m.d.node(c)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (m *mapping) strings(key string) ([]string, error) {
	n, ok := m.fields[key]
	if !ok {
		return nil, nil
	}
	var out []string
	if err := n.Decode(&out); err != nil {
		return nil, m.d.fail(n, fmt.Sprintf("%s must be a list of names", key))
	}
	return out, nil
}

// block reads a statement list, or a mapping of kind block, as a Block.
func (m *mapping) block(key string, pos ast.Position) (*ast.Block, error) {
	n, ok := m.fields[key]
	if !ok {
		return nil, m.d.fail(m.node, fmt.Sprintf("missing %s", key))
	}
	if n.Kind == yaml.MappingNode {
		node, err := m.d.node(n)
		if err != nil {
			return nil, err
		}
		b, ok := node.(*ast.Block)
		if !ok {
			return nil, m.d.fail(n, fmt.Sprintf("%s must be a block", key))
		}
		return b, nil
	}
	stmts, err := m.list(key)
	if err != nil {
		return nil, err
	}
	return &ast.Block{Base: ast.Base{Pos: pos}, Statements: stmts}, nil
}

// node decodes one node mapping.
func (d *decoder) node(n *yaml.Node) (ast.Node, error) {
	m, err := d.mapping(n)
	if err != nil {
		return nil, err
	}
	kind, err := m.str("kind")
	if err != nil {
		return nil, err
	}
	line, err := m.integer("line")
	if err != nil {
		return nil, err
	}
	col, err := m.integer("col")
	if err != nil {
		return nil, err
	}
	pos := ast.Position{Script: d.script, Line: line, Column: col}

	node, err := d.build(kind, m, pos)
	if err != nil {
		return nil, d.locate(err, n)
	}

	meta := node.(ast.Annotated).Meta()
	meta.Pos = pos
	if path, ok, err := m.optString("scope"); err != nil {
		return nil, err
	} else if ok {
		meta.Scope = d.scope(path)
	}
	var immediate bool
	if ok, err := m.scalar("immediate", &immediate); err != nil {
		return nil, err
	} else if ok {
		meta.Immediate = immediate
	}
	return node, nil
}

func (d *decoder) build(kind string, m *mapping, pos ast.Position) (ast.Node, error) {
	switch kind {
	case "number":
		var v float64
		if ok, err := m.scalar("value", &v); err != nil || !ok {
			return nil, missingValue(m, err)
		}
		return &ast.NumberLiteral{Value: v}, nil

	case "integer":
		var v int64
		if ok, err := m.scalar("value", &v); err != nil || !ok {
			return nil, missingValue(m, err)
		}
		return &ast.IntegerLiteral{Value: v}, nil

	case "string":
		var v string
		if ok, err := m.scalar("value", &v); err != nil || !ok {
			return nil, missingValue(m, err)
		}
		return &ast.StringLiteral{Value: v}, nil

	case "boolean":
		var v bool
		if ok, err := m.scalar("value", &v); err != nil || !ok {
			return nil, missingValue(m, err)
		}
		return &ast.BooleanLiteral{Value: v}, nil

	case "null":
		return &ast.NullLiteral{}, nil

	case "identifier":
		name, err := m.str("name")
		if err != nil {
			return nil, err
		}
		return &ast.Identifier{Name: name}, nil

	case "binary", "compare", "logical":
		left, err := m.child("left")
		if err != nil {
			return nil, err
		}
		op, err := m.str("op")
		if err != nil {
			return nil, err
		}
		right, err := m.child("right")
		if err != nil {
			return nil, err
		}
		switch kind {
		case "binary":
			return ast.NewBinary(pos, left, op, right)
		case "compare":
			return ast.NewCompare(pos, left, op, right)
		}
		return ast.NewLogical(pos, left, op, right)

	case "unary":
		op, err := m.str("op")
		if err != nil {
			return nil, err
		}
		operand, err := m.child("operand")
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(pos, op, operand)

	case "increment":
		op, err := m.str("op")
		if err != nil {
			return nil, err
		}
		prefix, err := m.boolean("prefix")
		if err != nil {
			return nil, err
		}
		target, err := m.child("target")
		if err != nil {
			return nil, err
		}
		return ast.NewIncrement(pos, op, prefix, target)

	case "assign":
		return d.assignment(m, pos)

	case "multiAssign":
		n, ok := m.fields["assignments"]
		if !ok || n.Kind != yaml.SequenceNode {
			return nil, d.fail(m.node, "assignments must be a list")
		}
		multi := &ast.MultiAssignment{}
		for _, c := range n.Content {
			node, err := d.node(c)
			if err != nil {
				return nil, err
			}
			a, ok := node.(*ast.Assignment)
			if !ok {
				return nil, d.fail(c, "assignments may only hold assign nodes")
			}
			multi.Assignments = append(multi.Assignments, a)
		}
		return multi, nil

	case "block":
		stmts, err := m.list("statements")
		if err != nil {
			return nil, err
		}
		return &ast.Block{Statements: stmts}, nil

	case "function":
		name, _, err := m.optString("name")
		if err != nil {
			return nil, err
		}
		params, err := m.strings("params")
		if err != nil {
			return nil, err
		}
		body, err := m.block("body", pos)
		if err != nil {
			return nil, err
		}
		fd := ast.NewFunctionDefinition(pos, name, params, body)
		if fd.Doc, _, err = m.optString("doc"); err != nil {
			return nil, err
		}
		if fd.Version, _, err = m.optString("version"); err != nil {
			return nil, err
		}
		return fd, nil

	case "call":
		callee, err := m.child("callee")
		if err != nil {
			return nil, err
		}
		args, err := m.list("args")
		if err != nil {
			return nil, err
		}
		return &ast.Call{Callee: callee, Args: args}, nil

	case "member":
		object, err := m.child("object")
		if err != nil {
			return nil, err
		}
		name, err := m.str("name")
		if err != nil {
			return nil, err
		}
		return &ast.MemberAccess{Object: object, Name: name}, nil

	case "index":
		left, err := m.child("left")
		if err != nil {
			return nil, err
		}
		idx, err := m.child("index")
		if err != nil {
			return nil, err
		}
		return &ast.Index{Left: left, Index: idx}, nil

	case "array":
		elems, err := m.list("elements")
		if err != nil {
			return nil, err
		}
		return &ast.ArrayLiteral{Elements: elems}, nil

	case "map":
		return d.mapLiteral(m)

	case "interpolate":
		parts, err := m.list("parts")
		if err != nil {
			return nil, err
		}
		return &ast.Interpolation{Parts: parts}, nil

	case "new":
		typeName, err := m.str("type")
		if err != nil {
			return nil, err
		}
		args, err := m.list("args")
		if err != nil {
			return nil, err
		}
		return &ast.New{TypeName: typeName, Args: args}, nil

	case "return":
		value, err := m.optChild("value")
		if err != nil {
			return nil, err
		}
		return &ast.Return{Value: value}, nil

	case "if":
		cond, err := m.child("condition")
		if err != nil {
			return nil, err
		}
		then, err := m.block("then", pos)
		if err != nil {
			return nil, err
		}
		node := &ast.If{Condition: cond, Consequence: then}
		if n, ok := m.fields["else"]; ok {
			if n.Kind == yaml.SequenceNode {
				if node.Alternative, err = m.block("else", pos); err != nil {
					return nil, err
				}
			} else if node.Alternative, err = d.node(n); err != nil {
				return nil, err
			}
		}
		return node, nil

	case "while":
		cond, err := m.child("condition")
		if err != nil {
			return nil, err
		}
		body, err := m.block("body", pos)
		if err != nil {
			return nil, err
		}
		return &ast.While{Condition: cond, Body: body}, nil

	case "forIn":
		variable, err := m.str("variable")
		if err != nil {
			return nil, err
		}
		iterable, err := m.child("iterable")
		if err != nil {
			return nil, err
		}
		body, err := m.block("body", pos)
		if err != nil {
			return nil, err
		}
		return &ast.ForIn{Variable: variable, Iterable: iterable, Body: body}, nil

	case "break":
		return &ast.Break{}, nil

	case "continue":
		return &ast.Continue{}, nil

	case "expr":
		expr, err := m.child("expression")
		if err != nil {
			return nil, err
		}
		return &ast.ExpressionStatement{Expression: expr}, nil
	}

	return nil, serrors.NewWithPosition("SYNTAX-0006", d.script, m.node.Line, m.node.Column, map[string]any{"Kind": kind})
}

func missingValue(m *mapping, err error) error {
	if err != nil {
		return err
	}
	return m.d.fail(m.node, "missing value")
}

func (d *decoder) assignment(m *mapping, pos ast.Position) (*ast.Assignment, error) {
	target, err := m.child("target")
	if err != nil {
		return nil, err
	}
	op, ok, err := m.optString("op")
	if err != nil {
		return nil, err
	}
	if !ok {
		op = "="
	}
	value, err := m.child("value")
	if err != nil {
		return nil, err
	}
	declare, err := m.boolean("declare")
	if err != nil {
		return nil, err
	}
	return ast.NewAssignment(pos, target, op, value, declare)
}

func (d *decoder) mapLiteral(m *mapping) (ast.Node, error) {
	lit := &ast.MapLiteral{}
	n, ok := m.fields["entries"]
	if !ok {
		return lit, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, d.fail(n, "entries must be a list")
	}
	seen := make(map[string]bool, len(n.Content))
	for _, c := range n.Content {
		em, err := d.mapping(c)
		if err != nil {
			return nil, err
		}
		key, err := em.str("key")
		if err != nil {
			return nil, err
		}
		if seen[key] {
			return nil, d.fail(c, fmt.Sprintf("duplicate map key %q", key))
		}
		seen[key] = true
		value, err := em.child("value")
		if err != nil {
			return nil, err
		}
		lit.Entries = append(lit.Entries, ast.MapEntry{Key: key, Value: value})
	}
	return lit, nil
}
