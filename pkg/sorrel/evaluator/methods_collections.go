package evaluator

import (
	"strings"
	"unicode/utf8"
)

// ArrayMethodRegistry and MapMethodRegistry hold the built-in members of
// the collection kinds. Both kinds have reference semantics, so mutating
// methods change the receiver in place.
var (
	ArrayMethodRegistry MethodRegistry
	MapMethodRegistry   MethodRegistry
)

func init() {
	ArrayMethodRegistry = MethodRegistry{
		"push": {
			Fn:          arrayPush,
			Arity:       "1+",
			Description: "Append values, returning the array",
		},
		"pop": {
			Fn:          arrayPop,
			Arity:       "0",
			Description: "Remove and return the last element",
		},
		"join": {
			Fn:          arrayJoin,
			Arity:       "0-1",
			Description: "Join string forms with a separator",
		},
		"contains": {
			Fn:          arrayContains,
			Arity:       "1",
			Description: "Check if an element equals the value",
		},
		"indexOf": {
			Fn:          arrayIndexOf,
			Arity:       "1",
			Description: "Index of the first equal element, or -1",
		},
		"reverse": {
			Fn:          arrayReverse,
			Arity:       "0",
			Description: "New array in reverse order",
		},
		"map": {
			Fn:          arrayMap,
			Arity:       "1",
			Description: "New array of fn(element) results",
		},
		"filter": {
			Fn:          arrayFilter,
			Arity:       "1",
			Description: "New array of elements where fn(element) is truthy",
		},
	}
	RegisterMethodRegistry(ARRAY_OBJ, ArrayMethodRegistry, PropertyRegistry{
		"length": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				return &Number{Value: float64(len(receiver.(*Array).Elements))}, nil
			},
			Description: "Element count",
		},
		"first": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				elems := receiver.(*Array).Elements
				if len(elems) == 0 {
					return NULL, nil
				}
				return elems[0], nil
			},
			Description: "First element, or null",
		},
		"last": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				elems := receiver.(*Array).Elements
				if len(elems) == 0 {
					return NULL, nil
				}
				return elems[len(elems)-1], nil
			},
			Description: "Last element, or null",
		},
	})

	MapMethodRegistry = MethodRegistry{
		"has": {
			Fn:          mapHas,
			Arity:       "1",
			Description: "Check if a key is present",
		},
		"get": {
			Fn:          mapGet,
			Arity:       "1-2",
			Description: "Value for key, or the default (null)",
		},
		"set": {
			Fn:          mapSet,
			Arity:       "2",
			Description: "Store a value, returning the map",
		},
		"remove": {
			Fn:          mapRemove,
			Arity:       "1",
			Description: "Delete a key, reporting whether it was present",
		},
	}
	RegisterMethodRegistry(MAP_OBJ, MapMethodRegistry, PropertyRegistry{
		"length": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				return &Number{Value: float64(receiver.(*Map).Len())}, nil
			},
			Description: "Entry count",
		},
		"keys": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				keys := receiver.(*Map).Keys()
				elems := make([]Object, len(keys))
				for i, k := range keys {
					elems[i] = &String{Value: k}
				}
				return &Array{Elements: elems}, nil
			},
			Description: "Keys in insertion order",
		},
		"values": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				m := receiver.(*Map)
				elems := make([]Object, 0, m.Len())
				for _, k := range m.Keys() {
					v, _ := m.Get(k)
					elems = append(elems, v)
				}
				return &Array{Elements: elems}, nil
			},
			Description: "Values in insertion order",
		},
	})
}

// Array method implementations

func arrayPush(ctx *Context, receiver Object, args []Object) (Object, error) {
	arr := receiver.(*Array)
	arr.Elements = append(arr.Elements, args...)
	return arr, nil
}

func arrayPop(ctx *Context, receiver Object, args []Object) (Object, error) {
	arr := receiver.(*Array)
	if len(arr.Elements) == 0 {
		return NULL, nil
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	return last, nil
}

func arrayJoin(ctx *Context, receiver Object, args []Object) (Object, error) {
	sep := ""
	if len(args) == 1 {
		s, err := stringArg("join", args, 0)
		if err != nil {
			return nil, err
		}
		sep = s
	}
	elems := receiver.(*Array).Elements
	parts := make([]string, len(elems))
	total := 0
	for i, e := range elems {
		parts[i] = e.Inspect()
		total += utf8.RuneCountInString(parts[i])
	}
	if len(elems) > 1 {
		total += (len(elems) - 1) * utf8.RuneCountInString(sep)
	}
	if err := ctx.checkStringLength(total); err != nil {
		return nil, err
	}
	return &String{Value: strings.Join(parts, sep)}, nil
}

func arrayIndex(ctx *Context, arr *Array, value Object) int {
	for i, e := range arr.Elements {
		if evalCompareExpression(ctx, "==", e, value).Value {
			return i
		}
	}
	return -1
}

func arrayContains(ctx *Context, receiver Object, args []Object) (Object, error) {
	return nativeBoolToBooleanObject(arrayIndex(ctx, receiver.(*Array), args[0]) >= 0), nil
}

func arrayIndexOf(ctx *Context, receiver Object, args []Object) (Object, error) {
	return &Number{Value: float64(arrayIndex(ctx, receiver.(*Array), args[0]))}, nil
}

func arrayReverse(ctx *Context, receiver Object, args []Object) (Object, error) {
	elems := receiver.(*Array).Elements
	out := make([]Object, len(elems))
	for i, e := range elems {
		out[len(elems)-1-i] = e
	}
	return &Array{Elements: out}, nil
}

func arrayMap(ctx *Context, receiver Object, args []Object) (Object, error) {
	if !isCallable(args[0]) {
		return nil, newTypeError("map", "a function", args[0])
	}
	elems := receiver.(*Array).Elements
	out := make([]Object, 0, len(elems))
	for _, e := range elems {
		v, err := CallFunction(ctx, args[0], []Object{e})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return &Array{Elements: out}, nil
}

func arrayFilter(ctx *Context, receiver Object, args []Object) (Object, error) {
	if !isCallable(args[0]) {
		return nil, newTypeError("filter", "a function", args[0])
	}
	var out []Object
	for _, e := range receiver.(*Array).Elements {
		keep, err := CallFunction(ctx, args[0], []Object{e})
		if err != nil {
			return nil, err
		}
		if isTruthy(keep) {
			out = append(out, e)
		}
	}
	return &Array{Elements: out}, nil
}

// Map method implementations

func mapHas(ctx *Context, receiver Object, args []Object) (Object, error) {
	key, err := stringArg("has", args, 0)
	if err != nil {
		return nil, err
	}
	_, ok := receiver.(*Map).Get(key)
	return nativeBoolToBooleanObject(ok), nil
}

func mapGet(ctx *Context, receiver Object, args []Object) (Object, error) {
	key, err := stringArg("get", args, 0)
	if err != nil {
		return nil, err
	}
	if v, ok := receiver.(*Map).Get(key); ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return NULL, nil
}

func mapSet(ctx *Context, receiver Object, args []Object) (Object, error) {
	key, err := stringArg("set", args, 0)
	if err != nil {
		return nil, err
	}
	m := receiver.(*Map)
	m.Set(key, args[1])
	return m, nil
}

func mapRemove(ctx *Context, receiver Object, args []Object) (Object, error) {
	key, err := stringArg("remove", args, 0)
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(receiver.(*Map).Delete(key)), nil
}
