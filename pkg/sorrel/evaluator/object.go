package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// ObjectType represents the type of objects in our language
type ObjectType string

const (
	NULL_OBJ          = "NULL"
	BOOLEAN_OBJ       = "BOOLEAN"
	NUMBER_OBJ        = "NUMBER"
	INTEGER_OBJ       = "INTEGER"
	STRING_OBJ        = "STRING"
	DATE_OBJ          = "DATE"
	DURATION_OBJ      = "DURATION"
	QUANTITY_OBJ      = "QUANTITY"
	DAY_OF_WEEK_OBJ   = "DAY_OF_WEEK"
	ARRAY_OBJ         = "ARRAY"
	MAP_OBJ           = "MAP"
	OBJECT_REF_OBJ    = "OBJECT"
	FUNCTION_OBJ      = "FUNCTION"
	NATIVE_OBJ        = "NATIVE"
	MODULE_OBJ        = "MODULE"
	TYPE_OBJ          = "TYPE"
	MEMBER_ACCESS_OBJ = "MEMBER_ACCESS"
)

// Object represents all objects in our language
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Cloner is implemented by value-semantics kinds. Arguments of these kinds
// are copied when bound to parameters.
type Cloner interface {
	Clone() Object
}

// Null represents null/nil objects
type Null struct{}

func (n *Null) Inspect() string  { return "null" }
func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Clone() Object    { return n }

// Boolean represents boolean objects
type Boolean struct {
	Value bool
}

func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Clone() Object    { return b }

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func nativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

// Number is the language's only arithmetic kind: an IEEE double.
type Number struct {
	Value float64
}

func (n *Number) Inspect() string  { return formatNumber(n.Value) }
func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Clone() Object    { return &Number{Value: n.Value} }

func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Integer is an integral value a native may hand back. Every numeric
// consumer widens it to Number.
type Integer struct {
	Value int64
}

func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Clone() Object    { return &Integer{Value: i.Value} }

// String represents string objects
type String struct {
	Value string
}

func (s *String) Inspect() string  { return s.Value }
func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Clone() Object    { return &String{Value: s.Value} }

// Date is a point in time.
type Date struct {
	Value time.Time
}

func (d *Date) Inspect() string {
	t := d.Value
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
func (d *Date) Type() ObjectType { return DATE_OBJ }
func (d *Date) Clone() Object    { return &Date{Value: d.Value} }

// Duration is a time interval.
type Duration struct {
	Value time.Duration
}

func (d *Duration) Inspect() string  { return d.Value.String() }
func (d *Duration) Type() ObjectType { return DURATION_OBJ }
func (d *Duration) Clone() Object    { return &Duration{Value: d.Value} }

// Quantity is a magnitude in a unit subgroup (kg) of a unit group (mass).
type Quantity struct {
	Magnitude float64
	Group     string
	Subgroup  string
}

func (q *Quantity) Inspect() string  { return formatNumber(q.Magnitude) + q.Subgroup }
func (q *Quantity) Type() ObjectType { return QUANTITY_OBJ }
func (q *Quantity) Clone() Object {
	return &Quantity{Magnitude: q.Magnitude, Group: q.Group, Subgroup: q.Subgroup}
}

// DayOfWeek is a weekday; its ordinal runs Sunday=0 to Saturday=6.
type DayOfWeek struct {
	Value time.Weekday
}

func (d *DayOfWeek) Inspect() string  { return d.Value.String() }
func (d *DayOfWeek) Type() ObjectType { return DAY_OF_WEEK_OBJ }
func (d *DayOfWeek) Clone() Object    { return &DayOfWeek{Value: d.Value} }

func newDayOfWeek(ordinal int) *DayOfWeek {
	return &DayOfWeek{Value: time.Weekday(((ordinal % 7) + 7) % 7)}
}

// Array represents array objects
type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	elements := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elements[i] = inspectNested(e)
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

// Map is an insertion-ordered name to value mapping.
type Map struct {
	keys   []string
	values map[string]Object
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{values: make(map[string]Object)}
}

func (m *Map) Type() ObjectType { return MAP_OBJ }
func (m *Map) Inspect() string {
	pairs := make([]string, len(m.keys))
	for i, k := range m.keys {
		pairs[i] = k + ": " + inspectNested(m.values[k])
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Object, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key, appending new keys at the end.
func (m *Map) Set(key string, value Object) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key, reporting whether it was present.
func (m *Map) Delete(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

func inspectNested(o Object) string {
	if o == nil {
		return "null"
	}
	if s, ok := o.(*String); ok {
		return strconv.Quote(s.Value)
	}
	return o.Inspect()
}

// ObjectRef is an instance of a host-registered type.
type ObjectRef struct {
	Handle     any
	Descriptor *TypeDescriptor
}

func (o *ObjectRef) Type() ObjectType { return OBJECT_REF_OBJ }
func (o *ObjectRef) Inspect() string {
	if s, ok := o.Handle.(fmt.Stringer); ok {
		return s.String()
	}
	return "<" + o.Descriptor.Name + ">"
}

// Function is a script function bound to its definition.
type Function struct {
	Definition *ast.FunctionDefinition
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	return "function " + f.Definition.Name + "(" + strings.Join(f.Definition.Params, ", ") + ")"
}

// Native is a host-registered callable.
type Native struct {
	Name        string
	Fn          NativeFunc
	Arity       string // "0", "1", "0-1", "1+", ...
	Description string

	core bool
}

func (n *Native) Type() ObjectType { return NATIVE_OBJ }
func (n *Native) Inspect() string  { return "native " + n.Name }

// Module is a namespace frame; script functions declared with a scope link
// are bound here as well as in their declaring frame.
type Module struct {
	Name  string
	Frame *Frame
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, Frame: newFrame()}
}

func (m *Module) Type() ObjectType { return MODULE_OBJ }
func (m *Module) Inspect() string  { return "module " + m.Name }

// TypeRef is a registered type used as a value, for static access and new.
type TypeRef struct {
	Descriptor *TypeDescriptor
}

func (t *TypeRef) Type() ObjectType { return TYPE_OBJ }
func (t *TypeRef) Inspect() string  { return "type " + t.Descriptor.Name }

// typeName returns the lowercase kind name used in messages.
func typeName(o Object) string {
	if o == nil {
		return "null"
	}
	if ref, ok := o.(*ObjectRef); ok && ref.Descriptor != nil {
		return ref.Descriptor.Name
	}
	return serrors.TypeName(string(o.Type()))
}

// cloneValue copies value-semantics kinds and passes references through.
func cloneValue(o Object) Object {
	if c, ok := o.(Cloner); ok {
		return c.Clone()
	}
	return o
}

// widen converts integral representations to Number.
func widen(o Object) Object {
	if i, ok := o.(*Integer); ok {
		return &Number{Value: float64(i.Value)}
	}
	return o
}

// toFloat returns the numeric value of Number, Integer and Boolean.
func toFloat(o Object) (float64, bool) {
	switch v := o.(type) {
	case *Number:
		return v.Value, true
	case *Integer:
		return float64(v.Value), true
	case *Boolean:
		if v.Value {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// toInt returns a whole-number value, rejecting fractions.
func toInt(o Object) (int, bool) {
	switch v := o.(type) {
	case *Integer:
		return int(v.Value), true
	case *Number:
		if v.Value != math.Trunc(v.Value) || v.Value >= math.MaxInt64 || v.Value < math.MinInt64 {
			return 0, false
		}
		return int(v.Value), true
	}
	return 0, false
}

// isTruthy decides conditions for if and while.
func isTruthy(o Object) bool {
	switch v := o.(type) {
	case *Null:
		return false
	case *Boolean:
		return v.Value
	case *Number:
		return v.Value != 0 && !math.IsNaN(v.Value)
	case *Integer:
		return v.Value != 0
	case *String:
		return v.Value != ""
	case *Array:
		return len(v.Elements) > 0
	case *Map:
		return v.Len() > 0
	}
	return true
}
