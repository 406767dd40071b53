package evaluator

import (
	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// evalAssignment stores the value of node.Value through node.Target and
// returns the stored value. Compound operators combine with the current
// value through the binary operator table.
func evalAssignment(node *ast.Assignment, ctx *Context) (Object, error) {
	value, err := Eval(node.Value, ctx)
	if err != nil {
		return nil, err
	}

	if node.Declare {
		id, ok := node.Target.(*ast.Identifier)
		if !ok {
			return nil, newSyntaxError("SYNTAX-0004", map[string]any{"Target": targetString(node.Target)})
		}
		ctx.Memory.Declare(id.Name, value)
		return value, nil
	}

	op := ""
	switch node.Operator {
	case "=":
	case "+=", "-=", "*=", "/=", "%=":
		op = node.Operator[:1]
	default:
		return nil, newSyntaxError("SYNTAX-0001", map[string]any{"Operator": node.Operator, "Kind": "assignment"})
	}

	return updateTarget(ctx, node.Target, func(current Object) (Object, error) {
		if op == "" {
			return value, nil
		}
		return evalInfixExpression(ctx, op, current, value)
	}, op != "")
}

// evalIncrement applies ++ or -- to a Number or DayOfWeek target. Prefix
// forms yield the new value, postfix forms the old one.
func evalIncrement(node *ast.Increment, ctx *Context) (Object, error) {
	delta := 1
	switch node.Operator {
	case "++":
	case "--":
		delta = -1
	default:
		return nil, newSyntaxError("SYNTAX-0001", map[string]any{"Operator": node.Operator, "Kind": "increment"})
	}

	var old Object
	updated, err := updateTarget(ctx, node.Target, func(current Object) (Object, error) {
		old = widen(current)
		switch v := old.(type) {
		case *Number:
			return &Number{Value: v.Value + float64(delta)}, nil
		case *DayOfWeek:
			return newDayOfWeek(int(v.Value) + delta), nil
		}
		return nil, serrors.New("TYPE-0003", map[string]any{"Operator": node.Operator, "Type": typeName(current)})
	}, true)
	if err != nil {
		return nil, err
	}
	if node.Prefix {
		return updated, nil
	}
	return old, nil
}

// updateTarget computes a new value for target from its current one and
// stores it. The current value is only read when needsCurrent is set, so
// plain assignment can create bindings.
func updateTarget(ctx *Context, target ast.Node, compute func(current Object) (Object, error), needsCurrent bool) (Object, error) {
	switch t := target.(type) {
	case *ast.Identifier:
		var current Object
		if needsCurrent {
			v, err := evalIdentifier(t, ctx)
			if err != nil {
				return nil, err
			}
			current = v
		}
		value, err := compute(current)
		if err != nil {
			return nil, err
		}
		if !ctx.Memory.Assign(t.Name, value, ctx.Limits.AllowUndeclaredAssignment) {
			return nil, serrors.NewUndefinedVariable(t.Name, ctx.Memory.Names())
		}
		return value, nil

	case *ast.MemberAccess:
		// The receiver is evaluated once; the read and the write share it.
		res, err := resolveMember(t, ctx, accessAssign)
		if err != nil {
			return nil, err
		}
		var current Object
		if needsCurrent {
			if current, err = readMember(ctx, res); err != nil {
				return nil, err
			}
		}
		value, err := compute(current)
		if err != nil {
			return nil, err
		}
		if err := storeMember(ctx, t, res, value); err != nil {
			return nil, err
		}
		return value, nil

	case *ast.Index:
		return updateIndex(ctx, t, compute, needsCurrent)
	}

	return nil, newSyntaxError("SYNTAX-0004", map[string]any{"Target": targetString(target)})
}

// updateIndex evaluates the container and index once, then stores into an
// array element or a map entry.
func updateIndex(ctx *Context, node *ast.Index, compute func(Object) (Object, error), needsCurrent bool) (Object, error) {
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
		value, err := compute(l.Elements[i])
		if err != nil {
			return nil, err
		}
		l.Elements[i] = value
		return value, nil

	case *Map:
		key, ok := index.(*String)
		if !ok {
			break
		}
		var current Object = NULL
		if v, ok := l.Get(key.Value); ok {
			current = v
		}
		if !needsCurrent {
			current = nil
		}
		value, err := compute(current)
		if err != nil {
			return nil, err
		}
		l.Set(key.Value, value)
		return value, nil

	case *Null:
		return nil, newRuntimeError("RUN-0005", map[string]any{"Name": "[" + index.Inspect() + "]"})
	}
	return nil, serrors.New("TYPE-0005", map[string]any{"Left": typeName(left), "Index": typeName(index)})
}

func targetString(n ast.Node) string {
	if n == nil {
		return "nothing"
	}
	return n.String()
}
