package evaluator

import (
	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// AccessMode says how a dotted expression dispatches.
type AccessMode int

const (
	ModeNative  AccessMode = iota // registered native reached through a namespace
	ModeScript                    // script function reached through a module
	ModeBuiltin                   // method or property of a built-in kind
	ModeClass                     // static or instance member of a registered type
	ModeModule                    // binding inside a module frame
)

func (m AccessMode) String() string {
	switch m {
	case ModeNative:
		return "native"
	case ModeScript:
		return "script"
	case ModeBuiltin:
		return "builtin"
	case ModeClass:
		return "class"
	case ModeModule:
		return "module"
	}
	return "unknown"
}

// MemberAccess describes how one evaluation of a dotted expression
// resolved. It is built fresh on every evaluation and never cached.
type MemberAccess struct {
	Mode      AccessMode
	Instance  Object // receiver; nil for static and namespace access
	Name      string
	Qualified string // dotted name for native and script modes
	Method    *MethodHandle
	Property  *PropertyHandle
	Module    *Module
}

func (ma *MemberAccess) Type() ObjectType { return MEMBER_ACCESS_OBJ }
func (ma *MemberAccess) Inspect() string {
	if ma.Qualified != "" {
		return "<" + ma.Mode.String() + " " + ma.Qualified + ">"
	}
	return "<" + ma.Mode.String() + " " + ma.Name + ">"
}

type accessPurpose int

const (
	accessRead accessPurpose = iota
	accessCall
	accessAssign
)

// resolveMember resolves node to a descriptor, or to a plain value when a
// map entry or module binding already holds one.
func resolveMember(node *ast.MemberAccess, ctx *Context, purpose accessPurpose) (Object, error) {
	if id, ok := node.Object.(*ast.Identifier); ok && !ctx.Memory.Has(id.Name) {
		if m, ok := ctx.Modules[id.Name]; ok {
			return describeModuleMember(ctx, m, node.Name, purpose)
		}
		if ctx.Natives.IsNamespace(id.Name) {
			return &MemberAccess{Mode: ModeNative, Name: node.Name, Qualified: id.Name + "." + node.Name}, nil
		}
	}

	receiver, err := Eval(node.Object, ctx)
	if err != nil {
		return nil, err
	}
	return describeMember(ctx, receiver, node.Name, purpose)
}

func describeMember(ctx *Context, receiver Object, name string, purpose accessPurpose) (Object, error) {
	switch r := receiver.(type) {
	case *Null:
		return nil, newRuntimeError("RUN-0005", map[string]any{"Name": name})

	case *MemberAccess:
		if r.Mode == ModeNative || r.Mode == ModeScript {
			return &MemberAccess{Mode: r.Mode, Name: name, Qualified: r.Qualified + "." + name}, nil
		}
		return nil, serrors.NewUndefinedProperty(name, "member "+r.Name, nil)

	case *Module:
		return describeModuleMember(ctx, r, name, purpose)

	case *TypeRef:
		d := r.Descriptor
		if d == nil {
			return nil, newRuntimeError("RUN-0005", map[string]any{"Name": name})
		}
		if m, ok := d.StaticMethods[name]; ok {
			return &MemberAccess{Mode: ModeClass, Name: name, Method: m}, nil
		}
		return nil, serrors.NewUndefinedMethod(name, d.Name, d.memberNames(true))

	case *ObjectRef:
		d := r.Descriptor
		if d == nil {
			return nil, newRuntimeError("RUN-0005", map[string]any{"Name": name})
		}
		desc := &MemberAccess{Mode: ModeClass, Instance: r, Name: name, Method: d.Methods[name], Property: d.Properties[name]}
		if desc.Method == nil && desc.Property == nil {
			if purpose == accessCall {
				return nil, serrors.NewUndefinedMethod(name, d.Name, d.memberNames(false))
			}
			return nil, serrors.NewUndefinedProperty(name, d.Name, d.memberNames(false))
		}
		return desc, nil

	case *Map:
		if purpose != accessAssign {
			if v, ok := r.Get(name); ok {
				return v, nil
			}
		}
		return &MemberAccess{Mode: ModeBuiltin, Instance: r, Name: name}, nil
	}

	return &MemberAccess{Mode: ModeBuiltin, Instance: receiver, Name: name}, nil
}

func describeModuleMember(ctx *Context, m *Module, name string, purpose accessPurpose) (Object, error) {
	qualified := m.Name + "." + name
	if purpose == accessCall {
		if v, ok := m.Frame.Get(name); ok {
			switch v.(type) {
			case *Function:
				return &MemberAccess{Mode: ModeScript, Name: name, Qualified: qualified, Module: m}, nil
			case *Native:
				return &MemberAccess{Mode: ModeNative, Name: name, Qualified: qualified, Module: m}, nil
			case *Module:
				return &MemberAccess{Mode: ModeModule, Name: name, Qualified: qualified, Module: m}, nil
			}
			return v, nil
		}
		if _, ok := ctx.Natives.Lookup(qualified); ok {
			return &MemberAccess{Mode: ModeNative, Name: name, Qualified: qualified}, nil
		}
		return nil, moduleMemberMissing(m, name)
	}
	return &MemberAccess{Mode: ModeModule, Name: name, Qualified: qualified, Module: m}, nil
}

func moduleMemberMissing(m *Module, name string) error {
	err := serrors.New("UNDEF-0004", map[string]any{"Module": m.Name, "Name": name})
	if s := serrors.FindClosestMatch(name, m.Frame.Names()); s != "" {
		err.Hints = append(err.Hints, "Did you mean `"+s+"`?")
	}
	return err
}

// evalMemberAccess reads a dotted expression that is not called.
func evalMemberAccess(node *ast.MemberAccess, ctx *Context) (Object, error) {
	res, err := resolveMember(node, ctx, accessRead)
	if err != nil {
		return nil, err
	}
	desc, ok := res.(*MemberAccess)
	if !ok {
		return res, nil
	}
	return resolveDescriptorValue(ctx, desc)
}

// resolveDescriptorValue turns a read-mode descriptor into a value.
// Native and script descriptors stay unresolved for further chaining.
func resolveDescriptorValue(ctx *Context, desc *MemberAccess) (Object, error) {
	switch desc.Mode {
	case ModeBuiltin:
		return getBuiltinProperty(ctx, desc.Instance, desc.Name)
	case ModeClass:
		if desc.Property != nil {
			return ctx.hostResult(desc.Property.Get(ctx, desc.Instance.(*ObjectRef)))
		}
		return desc, nil
	case ModeModule:
		if v, ok := desc.Module.Frame.Get(desc.Name); ok {
			return v, nil
		}
		if n, ok := ctx.Natives.Lookup(desc.Qualified); ok {
			return n, nil
		}
		return nil, moduleMemberMissing(desc.Module, desc.Name)
	}
	return desc, nil
}

func getBuiltinProperty(ctx *Context, receiver Object, name string) (Object, error) {
	receiver = widen(receiver)
	if entry, ok := GetPropertiesForType(receiver.Type())[name]; ok {
		return entry.Get(ctx, receiver)
	}
	if _, isMap := receiver.(*Map); isMap {
		return NULL, nil
	}
	err := serrors.NewUndefinedProperty(name, typeName(receiver), memberNames(receiver.Type()))
	if _, ok := GetRegistryForType(receiver.Type())[name]; ok {
		err.Hints = append(err.Hints, "`"+name+"` is a method; call it as "+name+"()")
	}
	return nil, err
}

// readMember returns the current value behind an assignment target that
// resolveMember already resolved.
func readMember(ctx *Context, res Object) (Object, error) {
	desc, ok := res.(*MemberAccess)
	if !ok {
		return res, nil
	}
	if m, ok := desc.Instance.(*Map); ok && desc.Mode == ModeBuiltin {
		if v, ok := m.Get(desc.Name); ok {
			return v, nil
		}
	}
	return resolveDescriptorValue(ctx, desc)
}

// storeMember stores value through a resolved dotted target.
func storeMember(ctx *Context, node *ast.MemberAccess, res Object, value Object) error {
	desc, ok := res.(*MemberAccess)
	if !ok {
		return newSyntaxError("SYNTAX-0004", map[string]any{"Target": node.String()})
	}

	switch desc.Mode {
	case ModeBuiltin:
		if m, ok := desc.Instance.(*Map); ok {
			m.Set(desc.Name, value)
			return nil
		}
		return newRuntimeError("RUN-0008", map[string]any{"Name": desc.Name, "Type": typeName(desc.Instance)})
	case ModeClass:
		if desc.Property == nil || desc.Property.Set == nil {
			return newRuntimeError("RUN-0008", map[string]any{"Name": desc.Name, "Type": typeName(desc.Instance)})
		}
		if err := desc.Property.Set(ctx, desc.Instance.(*ObjectRef), value); err != nil {
			return ctx.fromHost(err)
		}
		return nil
	case ModeModule:
		desc.Module.Frame.Set(desc.Name, value)
		return nil
	}
	return newSyntaxError("SYNTAX-0004", map[string]any{"Target": node.String()})
}
