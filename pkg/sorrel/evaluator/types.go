package evaluator

import (
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// ConstructorFunc builds a value of a registered type for `new`.
type ConstructorFunc func(ctx *Context, args []Object) (Object, error)

// MethodHandle is a method of a registered type. Receiver is the
// *ObjectRef for instance methods and nil for static methods.
type MethodHandle struct {
	Name  string
	Arity string
	Fn    func(ctx *Context, receiver Object, args []Object) (Object, error)
}

// PropertyHandle is a property of a registered type. A nil Set makes the
// property read-only.
type PropertyHandle struct {
	Name string
	Get  func(ctx *Context, receiver *ObjectRef) (Object, error)
	Set  func(ctx *Context, receiver *ObjectRef, value Object) error
}

// TypeDescriptor describes a host type exposed to scripts.
type TypeDescriptor struct {
	Name          string
	Constructor   ConstructorFunc
	Methods       map[string]*MethodHandle
	StaticMethods map[string]*MethodHandle
	Properties    map[string]*PropertyHandle

	builtin bool
}

// NewObjectRef wraps a host handle as an instance of d.
func (d *TypeDescriptor) NewObjectRef(handle any) *ObjectRef {
	return &ObjectRef{Handle: handle, Descriptor: d}
}

func (d *TypeDescriptor) memberNames(static bool) []string {
	var names []string
	if static {
		for n := range d.StaticMethods {
			names = append(names, n)
		}
	} else {
		for n := range d.Methods {
			names = append(names, n)
		}
		for n := range d.Properties {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// TypeRegistry dispatches `new` by type name.
type TypeRegistry struct {
	types map[string]*TypeDescriptor
}

// NewTypeRegistry creates a registry with the built-in Date, Duration and
// Quantity constructors.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]*TypeDescriptor)}
	r.types["Date"] = &TypeDescriptor{Name: "Date", Constructor: constructDate, builtin: true}
	r.types["Duration"] = &TypeDescriptor{Name: "Duration", Constructor: constructDuration, builtin: true}
	r.types["Quantity"] = &TypeDescriptor{Name: "Quantity", Constructor: constructQuantity, builtin: true}
	return r
}

// Register adds or replaces a type.
func (r *TypeRegistry) Register(d *TypeDescriptor) {
	r.types[d.Name] = d
}

// Lookup returns the descriptor registered under name.
func (r *TypeRegistry) Lookup(name string) (*TypeDescriptor, bool) {
	d, ok := r.types[name]
	return d, ok
}

// Names returns registered type names, sorted.
func (r *TypeRegistry) Names() []string {
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Construct builds a value of the named type.
func (r *TypeRegistry) Construct(ctx *Context, name string, args []Object) (Object, error) {
	d, ok := r.types[name]
	if !ok || d.Constructor == nil {
		err := serrors.New("RUN-0006", map[string]any{"Name": name})
		if s := serrors.FindClosestMatch(name, r.Names()); s != "" {
			err.Hints = append(err.Hints, "Did you mean `"+s+"`?")
		}
		return nil, err
	}
	obj, err := d.Constructor(ctx, args)
	if err != nil {
		if !d.builtin {
			ctx.fromHost(err)
		}
		return nil, err
	}
	if obj == nil {
		return NULL, nil
	}
	return obj, nil
}

func cannotConstruct(typ string, args []Object) error {
	got := "no arguments"
	if len(args) > 0 {
		got = typeName(args[0])
	}
	return serrors.New("RUN-0007", map[string]any{"Type": typ, "Got": got})
}

func wholeArgs(function string, args []Object) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, ok := toInt(a)
		if !ok {
			return nil, newTypeError(function, "whole numbers", a)
		}
		out[i] = n
	}
	return out, nil
}

// constructDate accepts (year, month, day[, hour, minute, second]) in UTC
// or a single string in any format dateparse understands.
func constructDate(ctx *Context, args []Object) (Object, error) {
	if len(args) == 1 {
		switch v := args[0].(type) {
		case *String:
			return parseDateString(v.Value)
		case *Date:
			return &Date{Value: v.Value}, nil
		}
		return nil, cannotConstruct("Date", args)
	}
	if len(args) != 3 && len(args) != 6 {
		return nil, newArityErrorRange("Date", len(args), 3, 6)
	}
	parts, err := wholeArgs("Date", args)
	if err != nil {
		return nil, err
	}
	parts = append(parts, 0, 0, 0)
	return &Date{Value: time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC)}, nil
}

// parseDateString reads a date in any layout dateparse recognises,
// preferring month-first for ambiguous numeric dates.
func parseDateString(s string) (Object, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC, dateparse.PreferMonthFirst(true))
	if err != nil {
		return nil, serrors.New("FMT-0002", map[string]any{"GoError": err.Error()})
	}
	return &Date{Value: t}, nil
}

// constructDuration accepts (days[, hours[, minutes[, seconds]]]) or a
// Go duration string such as "1h30m".
func constructDuration(ctx *Context, args []Object) (Object, error) {
	if len(args) == 1 {
		if s, ok := args[0].(*String); ok {
			d, err := time.ParseDuration(s.Value)
			if err != nil {
				return nil, newFormatError("duration", err)
			}
			return &Duration{Value: d}, nil
		}
	}
	if len(args) == 0 || len(args) > 4 {
		return nil, newArityErrorRange("Duration", len(args), 1, 4)
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, a := range args {
		f, ok := toFloat(widen(a))
		if !ok {
			return nil, newTypeError("Duration", "numbers", a)
		}
		total += time.Duration(f * float64(units[i]))
	}
	return &Duration{Value: total}, nil
}

// constructQuantity accepts (magnitude, unit).
func constructQuantity(ctx *Context, args []Object) (Object, error) {
	if len(args) != 2 {
		return nil, newArityError("Quantity", len(args), 2)
	}
	mag, ok := toFloat(widen(args[0]))
	if !ok {
		return nil, newTypeError("Quantity", "a number", args[0])
	}
	unit, ok := args[1].(*String)
	if !ok {
		return nil, newTypeError("Quantity", "a unit string", args[1])
	}
	q, err := ctx.Units.NewQuantity(mag, unit.Value)
	if err != nil {
		return nil, err
	}
	return q, nil
}
