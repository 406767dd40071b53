package astdoc

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
)

// Encode writes doc to w as YAML in the form Decode reads.
func Encode(w io.Writer, doc *Document) error {
	top := &yaml.Node{Kind: yaml.MappingNode}
	if doc.Script != "" {
		addScalar(top, "script", doc.Script)
	}
	body := &yaml.Node{Kind: yaml.SequenceNode}
	if doc.Root != nil {
		for _, stmt := range doc.Root.Statements {
			n, err := encodeNode(stmt)
			if err != nil {
				return err
			}
			body.Content = append(body.Content, n)
		}
	}
	addNode(top, "body", body)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(top); err != nil {
		return err
	}
	return enc.Close()
}

func key(name string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
}

func addNode(m *yaml.Node, name string, value *yaml.Node) {
	m.Content = append(m.Content, key(name), value)
}

func addScalar(m *yaml.Node, name string, value any) {
	var v yaml.Node
	// Encoding a Go scalar into a yaml.Node cannot fail.
	_ = v.Encode(value)
	addNode(m, name, &v)
}

func addChild(m *yaml.Node, name string, child ast.Node) error {
	n, err := encodeNode(child)
	if err != nil {
		return err
	}
	addNode(m, name, n)
	return nil
}

func addList(m *yaml.Node, name string, nodes []ast.Node) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range nodes {
		n, err := encodeNode(c)
		if err != nil {
			return err
		}
		seq.Content = append(seq.Content, n)
	}
	addNode(m, name, seq)
	return nil
}

func addBlock(m *yaml.Node, name string, b *ast.Block) error {
	if b == nil {
		return addList(m, name, nil)
	}
	return addList(m, name, b.Statements)
}

func encodeNode(node ast.Node) (*yaml.Node, error) {
	if node == nil {
		return nil, fmt.Errorf("astdoc: cannot encode a nil node")
	}
	kind := ast.KindOf(node)
	m := &yaml.Node{Kind: yaml.MappingNode}
	addScalar(m, "kind", kind)

	var err error
	switch n := node.(type) {
	case *ast.NumberLiteral:
		addScalar(m, "value", n.Value)
	case *ast.IntegerLiteral:
		addScalar(m, "value", n.Value)
	case *ast.StringLiteral:
		addScalar(m, "value", n.Value)
	case *ast.BooleanLiteral:
		addScalar(m, "value", n.Value)
	case *ast.NullLiteral, *ast.Break, *ast.Continue:
	case *ast.Identifier:
		addScalar(m, "name", n.Name)
	case *ast.Binary:
		err = encodeOperator(m, n.Left, n.Operator, n.Right)
	case *ast.Compare:
		err = encodeOperator(m, n.Left, n.Operator, n.Right)
	case *ast.Logical:
		err = encodeOperator(m, n.Left, n.Operator, n.Right)
	case *ast.Unary:
		addScalar(m, "op", n.Operator)
		err = addChild(m, "operand", n.Operand)
	case *ast.Increment:
		addScalar(m, "op", n.Operator)
		if n.Prefix {
			addScalar(m, "prefix", true)
		}
		err = addChild(m, "target", n.Target)
	case *ast.Assignment:
		err = encodeAssignment(m, n)
	case *ast.MultiAssignment:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, a := range n.Assignments {
			an, aerr := encodeNode(a)
			if aerr != nil {
				return nil, aerr
			}
			seq.Content = append(seq.Content, an)
		}
		addNode(m, "assignments", seq)
	case *ast.Block:
		err = addList(m, "statements", n.Statements)
	case *ast.FunctionDefinition:
		if n.Name != "" {
			addScalar(m, "name", n.Name)
		}
		if len(n.Params) > 0 {
			addScalar(m, "params", n.Params)
		}
		if n.Doc != "" {
			addScalar(m, "doc", n.Doc)
		}
		if n.Version != "" {
			addScalar(m, "version", n.Version)
		}
		err = addBlock(m, "body", n.Body)
	case *ast.Call:
		if err = addChild(m, "callee", n.Callee); err == nil && len(n.Args) > 0 {
			err = addList(m, "args", n.Args)
		}
	case *ast.MemberAccess:
		if err = addChild(m, "object", n.Object); err == nil {
			addScalar(m, "name", n.Name)
		}
	case *ast.Index:
		if err = addChild(m, "left", n.Left); err == nil {
			err = addChild(m, "index", n.Index)
		}
	case *ast.ArrayLiteral:
		err = addList(m, "elements", n.Elements)
	case *ast.MapLiteral:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, e := range n.Entries {
			em := &yaml.Node{Kind: yaml.MappingNode}
			addScalar(em, "key", e.Key)
			if err := addChild(em, "value", e.Value); err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, em)
		}
		addNode(m, "entries", seq)
	case *ast.Interpolation:
		err = addList(m, "parts", n.Parts)
	case *ast.New:
		addScalar(m, "type", n.TypeName)
		if len(n.Args) > 0 {
			err = addList(m, "args", n.Args)
		}
	case *ast.Return:
		if n.Value != nil {
			err = addChild(m, "value", n.Value)
		}
	case *ast.If:
		if err = addChild(m, "condition", n.Condition); err != nil {
			break
		}
		if err = addBlock(m, "then", n.Consequence); err != nil {
			break
		}
		switch alt := n.Alternative.(type) {
		case nil:
		case *ast.Block:
			err = addBlock(m, "else", alt)
		default:
			err = addChild(m, "else", alt)
		}
	case *ast.While:
		if err = addChild(m, "condition", n.Condition); err == nil {
			err = addBlock(m, "body", n.Body)
		}
	case *ast.ForIn:
		addScalar(m, "variable", n.Variable)
		if err = addChild(m, "iterable", n.Iterable); err == nil {
			err = addBlock(m, "body", n.Body)
		}
	case *ast.ExpressionStatement:
		err = addChild(m, "expression", n.Expression)
	default:
		return nil, fmt.Errorf("astdoc: cannot encode node kind %s", kind)
	}
	if err != nil {
		return nil, err
	}

	encodeMeta(m, node, kind)
	return m, nil
}

func encodeOperator(m *yaml.Node, left ast.Node, op string, right ast.Node) error {
	if err := addChild(m, "left", left); err != nil {
		return err
	}
	addScalar(m, "op", op)
	return addChild(m, "right", right)
}

func encodeAssignment(m *yaml.Node, a *ast.Assignment) error {
	if err := addChild(m, "target", a.Target); err != nil {
		return err
	}
	if a.Operator != "=" {
		addScalar(m, "op", a.Operator)
	}
	if a.Declare {
		addScalar(m, "declare", true)
	}
	return addChild(m, "value", a.Value)
}

// encodeMeta writes position, scope and hoisting flags that differ from
// what decoding would assume.
func encodeMeta(m *yaml.Node, node ast.Node, kind string) {
	pos := node.Position()
	if pos.Line != 0 {
		addScalar(m, "line", pos.Line)
	}
	if pos.Column != 0 {
		addScalar(m, "col", pos.Column)
	}
	if path := node.SymbolScope().Path(); path != "" {
		addScalar(m, "scope", path)
	}
	if node.IsImmediate() != (kind == "function") {
		addScalar(m, "immediate", node.IsImmediate())
	}
}
