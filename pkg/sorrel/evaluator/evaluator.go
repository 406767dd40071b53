// Package evaluator walks a Sorrel syntax tree and produces values.
//
// Evaluation is a single type switch over node kinds (Eval). Every node
// evaluates to exactly one Object or returns an error; control flow
// (return, break, continue) travels through the Context rather than
// through sentinel values.
package evaluator

import (
	"strings"
	"unicode/utf8"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// Evaluate runs a root block. A top-level return ends the script and its
// value becomes the result; otherwise the result is the value of the last
// statement.
func Evaluate(root *ast.Block, ctx *Context) (Object, error) {
	if root == nil {
		return NULL, nil
	}

	act := &Activation{Continue: true}
	prevAct, prevLoop := ctx.activation, ctx.loop
	ctx.activation, ctx.loop = act, nil
	defer func() { ctx.activation, ctx.loop = prevAct, prevLoop }()

	result, err := Eval(root, ctx)
	if err != nil {
		if se, ok := serrors.As(err); ok && se.Script == "" && ctx.Script != "" {
			se.Script = ctx.Script
		}
		return nil, err
	}
	if !act.Continue {
		if act.HasReturnValue {
			return act.ReturnValue, nil
		}
		return NULL, nil
	}
	return result, nil
}

// Eval evaluates one node. Errors from the engine carry the position of
// the innermost node that raised them.
func Eval(node ast.Node, ctx *Context) (Object, error) {
	obj, err := eval(node, ctx)
	if err != nil {
		stampPosition(ctx, err, node)
		return nil, err
	}
	if obj == nil {
		return NULL, nil
	}
	return obj, nil
}

func eval(node ast.Node, ctx *Context) (Object, error) {
	switch node := node.(type) {

	// Literals
	case *ast.NumberLiteral:
		return &Number{Value: node.Value}, nil

	case *ast.IntegerLiteral:
		return &Number{Value: float64(node.Value)}, nil

	case *ast.StringLiteral:
		return &String{Value: node.Value}, nil

	case *ast.BooleanLiteral:
		return nativeBoolToBooleanObject(node.Value), nil

	case *ast.NullLiteral:
		return NULL, nil

	case *ast.Identifier:
		return evalIdentifier(node, ctx)

	// Operators
	case *ast.Binary:
		if !ast.IsBinaryOperator(node.Operator) {
			return nil, newSyntaxError("SYNTAX-0001", map[string]any{"Operator": node.Operator, "Kind": "binary"})
		}
		left, err := Eval(node.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := Eval(node.Right, ctx)
		if err != nil {
			return nil, err
		}
		return evalInfixExpression(ctx, node.Operator, left, right)

	case *ast.Compare:
		if !ast.IsCompareOperator(node.Operator) {
			return nil, newSyntaxError("SYNTAX-0001", map[string]any{"Operator": node.Operator, "Kind": "compare"})
		}
		left, err := Eval(node.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := Eval(node.Right, ctx)
		if err != nil {
			return nil, err
		}
		return evalCompareExpression(ctx, node.Operator, left, right), nil

	case *ast.Logical:
		return evalLogicalExpression(node, ctx)

	case *ast.Unary:
		right, err := Eval(node.Operand, ctx)
		if err != nil {
			return nil, err
		}
		return evalPrefixExpression(node.Operator, right)

	case *ast.Increment:
		return evalIncrement(node, ctx)

	// Assignment
	case *ast.Assignment:
		return evalAssignment(node, ctx)

	case *ast.MultiAssignment:
		var result Object = NULL
		for _, a := range node.Assignments {
			v, err := Eval(a, ctx)
			if err != nil {
				return nil, err
			}
			result = v
		}
		return result, nil

	// Blocks and functions
	case *ast.Block:
		return evalBlock(node, ctx)

	case *ast.FunctionDefinition:
		return evalFunctionDefinition(node, ctx), nil

	case *ast.Call:
		return evalCall(node, ctx)

	case *ast.MemberAccess:
		return evalMemberAccess(node, ctx)

	case *ast.Index:
		return evalIndexExpression(node, ctx)

	// Composite literals
	case *ast.ArrayLiteral:
		elements, err := evalExpressions(node.Elements, ctx)
		if err != nil {
			return nil, err
		}
		return &Array{Elements: elements}, nil

	case *ast.MapLiteral:
		m := NewMap()
		for _, entry := range node.Entries {
			v, err := Eval(entry.Value, ctx)
			if err != nil {
				return nil, err
			}
			m.Set(entry.Key, v)
		}
		return m, nil

	case *ast.Interpolation:
		return evalInterpolation(node, ctx)

	case *ast.New:
		args, err := evalExpressions(node.Args, ctx)
		if err != nil {
			return nil, err
		}
		return ctx.Types.Construct(ctx, node.TypeName, args)

	// Control flow
	case *ast.Return:
		var value Object = NULL
		if node.Value != nil {
			v, err := Eval(node.Value, ctx)
			if err != nil {
				return nil, err
			}
			value = v
		}
		ctx.activation.Return(value, node.Value != nil)
		return value, nil

	case *ast.If:
		return evalIfExpression(node, ctx)

	case *ast.While:
		return evalWhileLoop(node, ctx)

	case *ast.ForIn:
		return evalForInLoop(node, ctx)

	case *ast.Break:
		if ctx.loop == nil {
			return nil, newSyntaxError("SYNTAX-0002", map[string]any{"Statement": "break"})
		}
		ctx.loop.breaking = true
		return NULL, nil

	case *ast.Continue:
		if ctx.loop == nil {
			return nil, newSyntaxError("SYNTAX-0002", map[string]any{"Statement": "continue"})
		}
		ctx.loop.continuing = true
		return NULL, nil

	case *ast.ExpressionStatement:
		if node.Expression == nil {
			return NULL, nil
		}
		return Eval(node.Expression, ctx)

	case nil:
		return nil, newSyntaxError("SYNTAX-0005", map[string]any{"Kind": "missing", "Detail": "nil node"})
	}

	return nil, newSyntaxError("SYNTAX-0006", map[string]any{"Kind": ast.KindOf(node)})
}

// evalBlock runs statements in a fresh frame: hoisted statements first,
// then the rest in order until a return, break or continue stops them.
func evalBlock(block *ast.Block, ctx *Context) (Object, error) {
	release := ctx.Memory.Push()
	defer release()

	if err := ctx.checkInterrupt(); err != nil {
		return nil, err
	}

	ctx.fireBefore(block)
	defer ctx.fireAfter(block)

	var result Object = NULL
	for _, stmt := range block.Statements {
		if stmt == nil || !stmt.IsImmediate() {
			continue
		}
		v, err := Eval(stmt, ctx)
		if err != nil {
			return nil, err
		}
		result = v
	}

	for _, stmt := range block.Statements {
		if stmt != nil && stmt.IsImmediate() {
			continue
		}
		v, err := Eval(stmt, ctx)
		if err != nil {
			return nil, err
		}
		result = v
		if ctx.stopped() {
			break
		}
	}
	return result, nil
}

func evalExpressions(exps []ast.Node, ctx *Context) ([]Object, error) {
	result := make([]Object, 0, len(exps))
	for _, e := range exps {
		v, err := Eval(e, ctx)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// evalIdentifier resolves a name: variables, then modules, then types,
// then natives.
func evalIdentifier(node *ast.Identifier, ctx *Context) (Object, error) {
	if v, ok := ctx.Memory.Get(node.Name); ok {
		return v, nil
	}
	if m, ok := ctx.Modules[node.Name]; ok {
		return m, nil
	}
	if d, ok := ctx.Types.Lookup(node.Name); ok {
		return &TypeRef{Descriptor: d}, nil
	}
	if n, ok := ctx.Natives.Lookup(node.Name); ok {
		return n, nil
	}
	if ctx.Natives.IsNamespace(node.Name) {
		return &MemberAccess{Mode: ModeNative, Name: node.Name, Qualified: node.Name}, nil
	}
	return nil, serrors.NewUndefinedVariable(node.Name, ctx.Memory.Names())
}

// evalLogicalExpression short-circuits: the right operand is evaluated
// only when the left does not decide the result.
func evalLogicalExpression(node *ast.Logical, ctx *Context) (Object, error) {
	if !ast.IsLogicalOperator(node.Operator) {
		return nil, newSyntaxError("SYNTAX-0001", map[string]any{"Operator": node.Operator, "Kind": "logical"})
	}

	left, err := Eval(node.Left, ctx)
	if err != nil {
		return nil, err
	}
	lv, err := logicalOperand(node.Operator, left)
	if err != nil {
		return nil, err
	}
	if node.Operator == "&&" && !lv {
		return FALSE, nil
	}
	if node.Operator == "||" && lv {
		return TRUE, nil
	}

	right, err := Eval(node.Right, ctx)
	if err != nil {
		return nil, err
	}
	rv, err := logicalOperand(node.Operator, right)
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(rv), nil
}

func evalInterpolation(node *ast.Interpolation, ctx *Context) (Object, error) {
	parts := make([]string, len(node.Parts))
	total := 0
	for i, p := range node.Parts {
		v, err := Eval(p, ctx)
		if err != nil {
			return nil, err
		}
		parts[i] = v.Inspect()
		total += utf8.RuneCountInString(parts[i])
	}
	if err := ctx.checkStringLength(total); err != nil {
		return nil, err
	}
	return &String{Value: strings.Join(parts, "")}, nil
}

func evalIndexExpression(node *ast.Index, ctx *Context) (Object, error) {
	left, err := Eval(node.Left, ctx)
	if err != nil {
		return nil, err
	}
	index, err := Eval(node.Index, ctx)
	if err != nil {
		return nil, err
	}

	switch l := left.(type) {
	case *Array:
		i, err := resolveIndex(index, len(l.Elements))
		if err != nil {
			return nil, err
		}
		return l.Elements[i], nil
	case *String:
		runes := []rune(l.Value)
		i, err := resolveIndex(index, len(runes))
		if err != nil {
			return nil, err
		}
		return &String{Value: string(runes[i])}, nil
	case *Map:
		key, ok := index.(*String)
		if !ok {
			break
		}
		if v, ok := l.Get(key.Value); ok {
			return v, nil
		}
		return NULL, nil
	case *Null:
		return nil, newRuntimeError("RUN-0005", map[string]any{"Name": "[" + index.Inspect() + "]"})
	}
	return nil, serrors.New("TYPE-0005", map[string]any{"Left": typeName(left), "Index": typeName(index)})
}

// resolveIndex validates an element index; negative indexes count from
// the end.
func resolveIndex(index Object, length int) (int, error) {
	i, ok := toInt(index)
	if !ok {
		if _, numeric := widen(index).(*Number); numeric {
			return 0, serrors.New("INDEX-0002", map[string]any{"Index": index.Inspect()})
		}
		return 0, serrors.New("TYPE-0005", map[string]any{"Left": "array", "Index": typeName(index)})
	}
	orig := i
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, newIndexError(orig, length)
	}
	return i, nil
}
