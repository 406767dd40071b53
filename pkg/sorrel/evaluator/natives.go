package evaluator

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NativeFunc is a host callable. Errors it returns reach the host unchanged.
type NativeFunc func(ctx *Context, args []Object) (Object, error)

// NativeRegistry maps names, possibly dotted (math.sqrt), to host callables.
type NativeRegistry struct {
	entries    map[string]*Native
	namespaces map[string]bool
}

// NewNativeRegistry creates an empty registry.
func NewNativeRegistry() *NativeRegistry {
	return &NativeRegistry{
		entries:    make(map[string]*Native),
		namespaces: make(map[string]bool),
	}
}

// Register adds or replaces a native. arity uses the method arity syntax
// ("0", "1-2", "1+"); an empty arity accepts any count.
func (r *NativeRegistry) Register(name string, fn NativeFunc, arity, description string) {
	r.entries[name] = &Native{Name: name, Fn: fn, Arity: arity, Description: description}
	for i := strings.LastIndex(name, "."); i > 0; i = strings.LastIndex(name[:i], ".") {
		r.namespaces[name[:i]] = true
	}
}

// markCore flags every registered native as part of the engine.
func (r *NativeRegistry) markCore() {
	for _, n := range r.entries {
		n.core = true
	}
}

// Lookup returns the native registered under name.
func (r *NativeRegistry) Lookup(name string) (*Native, bool) {
	n, ok := r.entries[name]
	return n, ok
}

// IsNamespace reports whether name prefixes a registered dotted native.
func (r *NativeRegistry) IsNamespace(name string) bool {
	return r.namespaces[name]
}

// Names returns all registered names, sorted.
func (r *NativeRegistry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterCoreNatives installs the natives every context starts with.
func RegisterCoreNatives(reg *NativeRegistry) {
	defer reg.markCore()
	reg.Register("log", nativeLog, "0+", "Write values to the script log")
	reg.Register("logLine", nativeLogLine, "0+", "Write values to the script log, followed by a newline")
	reg.Register("typeOf", nativeTypeOf, "1", "Kind name of a value")
	reg.Register("len", nativeLen, "1", "Length of a string, array or map")
	reg.Register("now", nativeNow, "0", "Current date and time")
	reg.Register("today", nativeToday, "0", "Current date at midnight UTC")
	reg.Register("str", nativeStr, "1", "String form of a value")
	reg.Register("num", nativeNum, "1", "Convert a value to a number")
	reg.Register("min", nativeMin, "1+", "Smallest of the numeric arguments")
	reg.Register("max", nativeMax, "1+", "Largest of the numeric arguments")
	reg.Register("math.abs", mathUnary("math.abs", math.Abs), "1", "Absolute value")
	reg.Register("math.round", mathUnary("math.round", math.Round), "1", "Round half away from zero")
	reg.Register("math.sqrt", mathUnary("math.sqrt", math.Sqrt), "1", "Square root")
	reg.Register("math.pow", nativePow, "2", "Raise a number to a power")
}

func nativeLog(ctx *Context, args []Object) (Object, error) {
	ctx.Logger.Log(logArgs(args)...)
	return NULL, nil
}

func nativeLogLine(ctx *Context, args []Object) (Object, error) {
	ctx.Logger.LogLine(logArgs(args)...)
	return NULL, nil
}

func logArgs(args []Object) []any {
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a.Inspect()
	}
	return values
}

func nativeTypeOf(ctx *Context, args []Object) (Object, error) {
	return &String{Value: typeName(args[0])}, nil
}

func nativeLen(ctx *Context, args []Object) (Object, error) {
	switch v := args[0].(type) {
	case *String:
		return &Number{Value: float64(len([]rune(v.Value)))}, nil
	case *Array:
		return &Number{Value: float64(len(v.Elements))}, nil
	case *Map:
		return &Number{Value: float64(v.Len())}, nil
	}
	return nil, newTypeError("len", "a string, array or map", args[0])
}

func nativeNow(ctx *Context, args []Object) (Object, error) {
	return &Date{Value: time.Now()}, nil
}

func nativeToday(ctx *Context, args []Object) (Object, error) {
	y, m, d := time.Now().Date()
	return &Date{Value: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}, nil
}

func nativeStr(ctx *Context, args []Object) (Object, error) {
	return &String{Value: args[0].Inspect()}, nil
}

func nativeNum(ctx *Context, args []Object) (Object, error) {
	switch v := args[0].(type) {
	case *String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
		if err != nil {
			return nil, newFormatError("number", err)
		}
		return &Number{Value: f}, nil
	case *Quantity:
		return &Number{Value: v.Magnitude}, nil
	case *Duration:
		return &Number{Value: v.Value.Seconds()}, nil
	case *DayOfWeek:
		return &Number{Value: float64(v.Value)}, nil
	case *Null:
		return &Number{Value: 0}, nil
	}
	if f, ok := toFloat(args[0]); ok {
		return &Number{Value: f}, nil
	}
	return nil, newTypeError("num", "a string, number or boolean", args[0])
}

func numericArgs(name string, args []Object) ([]float64, error) {
	values := make([]float64, len(args))
	for i, a := range args {
		f, ok := toFloat(widen(a))
		if !ok {
			return nil, newTypeError(name, "numbers", a)
		}
		values[i] = f
	}
	return values, nil
}

func nativeMin(ctx *Context, args []Object) (Object, error) {
	values, err := numericArgs("min", args)
	if err != nil {
		return nil, err
	}
	result := values[0]
	for _, v := range values[1:] {
		result = math.Min(result, v)
	}
	return &Number{Value: result}, nil
}

func nativeMax(ctx *Context, args []Object) (Object, error) {
	values, err := numericArgs("max", args)
	if err != nil {
		return nil, err
	}
	result := values[0]
	for _, v := range values[1:] {
		result = math.Max(result, v)
	}
	return &Number{Value: result}, nil
}

func mathUnary(name string, fn func(float64) float64) NativeFunc {
	return func(ctx *Context, args []Object) (Object, error) {
		values, err := numericArgs(name, args)
		if err != nil {
			return nil, err
		}
		return &Number{Value: fn(values[0])}, nil
	}
}

func nativePow(ctx *Context, args []Object) (Object, error) {
	values, err := numericArgs("math.pow", args)
	if err != nil {
		return nil, err
	}
	return &Number{Value: math.Pow(values[0], values[1])}, nil
}

// callNative checks arity and runs a native with call-stack bookkeeping
// done by the caller.
func callNative(ctx *Context, n *Native, args []Object) (Object, error) {
	if n.Arity != "" && !checkArity(n.Arity, len(args)) {
		return nil, arityErrorFor(n.Name, n.Arity, len(args))
	}
	result, err := n.Fn(ctx, args)
	if err != nil {
		if !n.core {
			ctx.fromHost(err)
		}
		return nil, err
	}
	if result == nil {
		return NULL, nil
	}
	return result, nil
}
