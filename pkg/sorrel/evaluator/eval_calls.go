package evaluator

import (
	"strings"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// evalCall resolves the callee by call-site shape and invokes it.
func evalCall(node *ast.Call, ctx *Context) (Object, error) {
	switch callee := node.Callee.(type) {
	case *ast.Identifier:
		fn, err := resolveFunction(ctx, callee.Name)
		if err != nil {
			return nil, err
		}
		args, err := evalExpressions(node.Args, ctx)
		if err != nil {
			return nil, err
		}
		return invoke(ctx, fn, callee.Name, args, node)

	case *ast.MemberAccess:
		res, err := resolveMember(callee, ctx, accessCall)
		if err != nil {
			return nil, err
		}
		args, err := evalExpressions(node.Args, ctx)
		if err != nil {
			return nil, err
		}
		if desc, ok := res.(*MemberAccess); ok {
			return dispatchDescriptor(ctx, desc, args, node)
		}
		if isCallable(res) {
			return invoke(ctx, res, callee.Name, args, node)
		}
		return res, nil

	case nil:
		return nil, newSyntaxError("SYNTAX-0005", map[string]any{"Kind": "call", "Detail": "missing callee"})
	}

	fn, err := Eval(node.Callee, ctx)
	if err != nil {
		return nil, err
	}
	args, err := evalExpressions(node.Args, ctx)
	if err != nil {
		return nil, err
	}
	return invoke(ctx, fn, "", args, node)
}

func isCallable(o Object) bool {
	switch v := o.(type) {
	case *Function, *Native:
		return true
	case *MemberAccess:
		return v.Mode != ModeModule
	}
	return false
}

// resolveFunction looks a bare or qualified name up: variables holding a
// callable, then module members, then the native registry.
func resolveFunction(ctx *Context, name string) (Object, error) {
	if v, ok := ctx.Memory.Get(name); ok {
		if isCallable(v) {
			return v, nil
		}
		if _, ok := v.(*Module); ok {
			return nil, newSyntaxError("SYNTAX-0003", map[string]any{"Name": name})
		}
		if n, ok := ctx.Natives.Lookup(name); ok {
			return n, nil
		}
		return nil, newRuntimeError("RUN-0009", map[string]any{"Got": typeName(v)})
	}

	if i := strings.LastIndex(name, "."); i > 0 {
		if m, ok := ctx.Modules[name[:i]]; ok {
			if v, ok := m.Frame.Get(name[i+1:]); ok && isCallable(v) {
				return v, nil
			}
		}
	}

	if n, ok := ctx.Natives.Lookup(name); ok {
		return n, nil
	}

	if _, ok := ctx.Modules[name]; ok {
		return nil, newSyntaxError("SYNTAX-0003", map[string]any{"Name": name})
	}

	candidates := append(ctx.Natives.Names(), ctx.Memory.Names()...)
	return nil, serrors.NewUndefinedFunction(name, candidates)
}

// invoke calls a callable value. Every branch pushes a call-stack entry
// and pops it on the way out, including on failure.
func invoke(ctx *Context, callee Object, name string, args []Object, site ast.Node) (Object, error) {
	switch fn := callee.(type) {
	case *Function:
		if name == "" {
			name = fn.Definition.QualifiedName()
		}
		release, err := ctx.enterCall(name, site)
		if err != nil {
			return nil, err
		}
		defer release()
		result, err := fn.call(ctx, args)
		if err != nil {
			annotateCall(ctx, err, name, site)
			return nil, err
		}
		return result, nil

	case *Native:
		release, err := ctx.enterCall(fn.Name, site)
		if err != nil {
			return nil, err
		}
		defer release()
		return callNative(ctx, fn, args)

	case *MemberAccess:
		return dispatchDescriptor(ctx, fn, args, site)
	}

	return nil, newRuntimeError("RUN-0009", map[string]any{"Got": typeName(callee)})
}

// dispatchDescriptor invokes a dotted call by access mode.
func dispatchDescriptor(ctx *Context, desc *MemberAccess, args []Object, site ast.Node) (Object, error) {
	switch desc.Mode {
	case ModeNative, ModeScript:
		fn, err := resolveFunction(ctx, desc.Qualified)
		if err != nil {
			return nil, err
		}
		return invoke(ctx, fn, desc.Qualified, args, site)

	case ModeBuiltin:
		return callBuiltinMethod(ctx, desc.Instance, desc.Name, args, site)

	case ModeClass:
		if desc.Method == nil {
			if desc.Property != nil && len(args) == 0 {
				return ctx.hostResult(desc.Property.Get(ctx, desc.Instance.(*ObjectRef)))
			}
			return nil, serrors.NewUndefinedMethod(desc.Name, typeName(desc.Instance), nil)
		}
		if desc.Method.Arity != "" && !checkArity(desc.Method.Arity, len(args)) {
			return nil, arityErrorFor(desc.Name, desc.Method.Arity, len(args))
		}
		release, err := ctx.enterCall(desc.Name, site)
		if err != nil {
			return nil, err
		}
		defer release()
		return ctx.hostResult(desc.Method.Fn(ctx, desc.Instance, args))

	case ModeModule:
		return nil, newSyntaxError("SYNTAX-0003", map[string]any{"Name": desc.Qualified})
	}

	return nil, newRuntimeError("RUN-0009", map[string]any{"Got": desc.Inspect()})
}

// callBuiltinMethod routes a call on a built-in kind to its method table.
func callBuiltinMethod(ctx *Context, receiver Object, name string, args []Object, site ast.Node) (Object, error) {
	receiver = widen(receiver)
	kind := receiver.Type()
	release, err := ctx.enterCall(typeName(receiver)+"."+name, site)
	if err != nil {
		return nil, err
	}
	defer release()

	result, found, err := dispatchFromRegistry(ctx, GetRegistryForType(kind), receiver, name, args)
	if found {
		if err != nil {
			return nil, err
		}
		if result == nil {
			return NULL, nil
		}
		return result, nil
	}

	if len(args) == 0 {
		if entry, ok := GetPropertiesForType(kind)[name]; ok {
			return entry.Get(ctx, receiver)
		}
	}
	return nil, serrors.NewUndefinedMethod(name, typeName(receiver), memberNames(kind))
}

// CallFunction invokes a script function or native value from Go, as
// built-in methods such as array.map do.
func CallFunction(ctx *Context, fn Object, args []Object) (Object, error) {
	return invoke(ctx, fn, "", args, nil)
}
