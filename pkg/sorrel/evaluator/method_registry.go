package evaluator

import (
	"sort"
	"strconv"
	"strings"
)

// MethodFunc is the signature for all built-in method implementations.
// The receiver is passed as an Object to allow uniform handling across types.
type MethodFunc func(ctx *Context, receiver Object, args []Object) (Object, error)

// MethodEntry defines a single method with its implementation and metadata.
// This serves as the single source of truth for both dispatch and introspection.
type MethodEntry struct {
	Fn          MethodFunc
	Arity       string // "0", "1", "0-1", "1+", "2", etc.
	Description string
}

// MethodRegistry maps method names to their entries for a type.
type MethodRegistry map[string]MethodEntry

// Names returns a sorted list of method names in this registry.
// Used for fuzzy matching in error messages.
func (r MethodRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the method entry for the given name, if it exists.
func (r MethodRegistry) Get(name string) (MethodEntry, bool) {
	entry, ok := r[name]
	return entry, ok
}

// PropertyFunc reads a built-in property.
type PropertyFunc func(ctx *Context, receiver Object) (Object, error)

// PropertyEntry defines a read-only built-in property.
type PropertyEntry struct {
	Get         PropertyFunc
	Description string
}

// PropertyRegistry maps property names to their entries for a type.
type PropertyRegistry map[string]PropertyEntry

// Names returns a sorted list of property names.
func (r PropertyRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MethodInfo describes a method or property for introspection.
type MethodInfo struct {
	Name        string
	Arity       string // "property" for properties
	Description string
}

var (
	typeRegistries     = map[ObjectType]MethodRegistry{}
	propertyRegistries = map[ObjectType]PropertyRegistry{}
)

// RegisterMethodRegistry registers the methods and properties of a kind.
// Called during init to populate the master registry.
func RegisterMethodRegistry(kind ObjectType, methods MethodRegistry, properties PropertyRegistry) {
	typeRegistries[kind] = methods
	propertyRegistries[kind] = properties
}

// GetRegistryForType returns the method registry for a kind, or nil.
func GetRegistryForType(kind ObjectType) MethodRegistry {
	return typeRegistries[kind]
}

// GetPropertiesForType returns the property registry for a kind, or nil.
func GetPropertiesForType(kind ObjectType) PropertyRegistry {
	return propertyRegistries[kind]
}

// MethodsForType lists the properties and methods of a kind, sorted by name.
func MethodsForType(kind ObjectType) []MethodInfo {
	var infos []MethodInfo
	for name, entry := range propertyRegistries[kind] {
		infos = append(infos, MethodInfo{Name: name, Arity: "property", Description: entry.Description})
	}
	for name, entry := range typeRegistries[kind] {
		infos = append(infos, MethodInfo{Name: name, Arity: entry.Arity, Description: entry.Description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// memberNames returns method and property names of a kind for suggestions.
func memberNames(kind ObjectType) []string {
	return append(GetRegistryForType(kind).Names(), GetPropertiesForType(kind).Names()...)
}

// parseArity reads an arity such as "1", "0-2" or "1+". A negative hi
// means no upper bound.
func parseArity(arity string) (lo, hi int, ok bool) {
	arity = strings.TrimSpace(arity)
	if n, err := strconv.Atoi(arity); err == nil {
		return n, n, true
	}
	if base, found := strings.CutSuffix(arity, "+"); found {
		n, err := strconv.Atoi(base)
		return n, -1, err == nil
	}
	if from, to, found := strings.Cut(arity, "-"); found {
		a, errLo := strconv.Atoi(from)
		b, errHi := strconv.Atoi(to)
		return a, b, errLo == nil && errHi == nil
	}
	return 0, 0, false
}

// checkArity reports whether got arguments satisfy arity. Unreadable
// arities accept anything.
func checkArity(arity string, got int) bool {
	lo, hi, ok := parseArity(arity)
	if !ok {
		return true
	}
	return got >= lo && (hi < 0 || got <= hi)
}

func arityErrorFor(function, arity string, got int) error {
	lo, hi, ok := parseArity(arity)
	switch {
	case !ok:
		return newArityError(function, got, 0)
	case hi < 0:
		return newArityErrorMin(function, got, lo)
	case lo == hi:
		return newArityError(function, got, lo)
	}
	return newArityErrorRange(function, got, lo, hi)
}

// dispatchFromRegistry invokes a registered built-in method.
// found is false when the registry has no such method.
func dispatchFromRegistry(ctx *Context, registry MethodRegistry, receiver Object, method string, args []Object) (result Object, found bool, err error) {
	entry, ok := registry.Get(method)
	if !ok {
		return nil, false, nil
	}

	if !checkArity(entry.Arity, len(args)) {
		return nil, true, arityErrorFor(method, entry.Arity, len(args))
	}

	result, err = entry.Fn(ctx, receiver, args)
	return result, true, err
}
