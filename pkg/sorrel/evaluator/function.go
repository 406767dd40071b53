package evaluator

import (
	"github.com/sambeau/sorrel/pkg/sorrel/ast"
)

// evalFunctionDefinition binds the function in the current frame and, when
// the definition is scoped to a registered module, in that module too.
// Anonymous definitions only produce the value.
func evalFunctionDefinition(node *ast.FunctionDefinition, ctx *Context) Object {
	fn := &Function{Definition: node}
	if node.Name == "" {
		return fn
	}
	ctx.Memory.Declare(node.Name, fn)
	if node.Scope != nil {
		if m, ok := ctx.Modules[node.Scope.Path()]; ok {
			m.Frame.Set(node.Name, fn)
		}
	}
	return fn
}

// call runs one activation: count it, bind parameters in a new frame, run
// the body until it returns, and count failures before passing them on.
func (f *Function) call(ctx *Context, args []Object) (Object, error) {
	def := f.Definition
	def.RecordExecution()

	act := &Activation{Continue: true}
	prevAct, prevLoop := ctx.activation, ctx.loop
	ctx.activation, ctx.loop = act, nil
	release := ctx.Memory.Push()
	defer func() {
		release()
		ctx.activation, ctx.loop = prevAct, prevLoop
	}()

	bindParameters(ctx, def, args)

	if def.Body != nil {
		if _, err := evalBlock(def.Body, ctx); err != nil {
			def.RecordError()
			return nil, err
		}
	}

	if act.HasReturnValue {
		return act.ReturnValue, nil
	}
	return NULL, nil
}

// bindParameters declares each parameter, copying value-semantics
// arguments. Missing arguments bind null. Arguments beyond the declared
// parameters are collected in `arguments` unless a parameter already
// uses that name.
func bindParameters(ctx *Context, def *ast.FunctionDefinition, args []Object) {
	for i, name := range def.Params {
		if i < len(args) {
			ctx.Memory.Declare(name, cloneValue(args[i]))
		} else {
			ctx.Memory.Declare(name, NULL)
		}
	}

	if def.HasParam("arguments") {
		return
	}
	var extra []Object
	if len(args) > len(def.Params) {
		extra = make([]Object, 0, len(args)-len(def.Params))
		for _, a := range args[len(def.Params):] {
			extra = append(extra, cloneValue(a))
		}
	}
	ctx.Memory.Declare("arguments", &Array{Elements: extra})
}
