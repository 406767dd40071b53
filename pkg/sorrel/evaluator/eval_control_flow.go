package evaluator

import (
	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// Control flow evaluation functions: if, while, for-in

func evalIfExpression(node *ast.If, ctx *Context) (Object, error) {
	condition, err := Eval(node.Condition, ctx)
	if err != nil {
		return nil, err
	}

	if isTruthy(condition) {
		if node.Consequence == nil {
			return NULL, nil
		}
		return Eval(node.Consequence, ctx)
	}
	if node.Alternative != nil {
		return Eval(node.Alternative, ctx)
	}
	return NULL, nil
}

// enterLoop installs a fresh loop-control record and returns the function
// that restores the enclosing one.
func (c *Context) enterLoop() (*loopControl, func()) {
	prev := c.loop
	lc := &loopControl{}
	c.loop = lc
	return lc, func() { c.loop = prev }
}

// afterIteration clears a pending continue and reports whether the loop
// must stop because of a break or a return.
func (c *Context) afterIteration(lc *loopControl) bool {
	lc.continuing = false
	return lc.breaking || !c.activation.Continue
}

func evalWhileLoop(node *ast.While, ctx *Context) (Object, error) {
	if node.Body == nil {
		return nil, newSyntaxError("SYNTAX-0005", map[string]any{"Kind": "while", "Detail": "missing body"})
	}
	lc, restore := ctx.enterLoop()
	defer restore()

	var result Object = NULL
	for {
		condition, err := Eval(node.Condition, ctx)
		if err != nil {
			return nil, err
		}
		if !isTruthy(condition) {
			return result, nil
		}
		v, err := Eval(node.Body, ctx)
		if err != nil {
			return nil, err
		}
		result = v
		if ctx.afterIteration(lc) {
			return result, nil
		}
	}
}

// evalForInLoop iterates array elements, map keys in insertion order, or
// the characters of a string. Each iteration binds the loop variable in
// its own frame.
func evalForInLoop(node *ast.ForIn, ctx *Context) (Object, error) {
	if node.Body == nil {
		return nil, newSyntaxError("SYNTAX-0005", map[string]any{"Kind": "forIn", "Detail": "missing body"})
	}
	iterable, err := Eval(node.Iterable, ctx)
	if err != nil {
		return nil, err
	}

	var items []Object
	switch it := iterable.(type) {
	case *Array:
		items = append(items, it.Elements...)
	case *Map:
		for _, k := range it.Keys() {
			items = append(items, &String{Value: k})
		}
	case *String:
		for _, r := range it.Value {
			items = append(items, &String{Value: string(r)})
		}
	case *Null:
		return NULL, nil
	default:
		return nil, serrors.New("TYPE-0007", map[string]any{"Type": typeName(iterable)})
	}

	lc, restore := ctx.enterLoop()
	defer restore()

	var result Object = NULL
	for _, item := range items {
		v, err := runIteration(ctx, node, item)
		if err != nil {
			return nil, err
		}
		result = v
		if ctx.afterIteration(lc) {
			break
		}
	}
	return result, nil
}

func runIteration(ctx *Context, node *ast.ForIn, item Object) (Object, error) {
	release := ctx.Memory.Push()
	defer release()
	ctx.Memory.Declare(node.Variable, cloneValue(item))
	return Eval(node.Body, ctx)
}
