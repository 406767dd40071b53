package evaluator

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// Logger is the interface for script log output
type Logger interface {
	Log(values ...any)
	LogLine(values ...any)
}

// defaultStdoutLogger is the default logger that writes to stdout
type defaultStdoutLogger struct{}

func (l *defaultStdoutLogger) Log(values ...any) {
	fmt.Print(formatLogValues(values...))
}

func (l *defaultStdoutLogger) LogLine(values ...any) {
	fmt.Println(formatLogValues(values...))
}

// DefaultLogger is the default stdout logger
var DefaultLogger Logger = &defaultStdoutLogger{}

func formatLogValues(values ...any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if o, ok := v.(Object); ok {
			parts[i] = o.Inspect()
		} else {
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, " ")
}

// Limits bounds the resources one evaluation may consume.
type Limits struct {
	// MaxStringLength caps concatenation, interpolation and repeat results,
	// counted in characters. 0 means unlimited.
	MaxStringLength int
	// MaxCallDepth caps nested function invocations. Exceeding it is a
	// fatal stack overflow. 0 means unlimited.
	MaxCallDepth int
	// AllowUndeclaredAssignment lets plain assignment create a binding in
	// the innermost frame when no frame defines the name.
	AllowUndeclaredAssignment bool
	// StrictConcat turns the catch-all `+` concatenation into a type error.
	StrictConcat bool
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxStringLength:           10 * 1024 * 1024,
		MaxCallDepth:              2000,
		AllowUndeclaredAssignment: true,
	}
}

// Activation is the per-invocation return protocol of a function.
type Activation struct {
	ReturnValue    Object
	HasReturnValue bool
	Continue       bool
}

// Return records the result and stops the enclosing statement loops.
func (a *Activation) Return(value Object, hasValue bool) {
	if hasValue {
		a.ReturnValue = value
	}
	a.HasReturnValue = hasValue
	a.Continue = false
}

type loopControl struct {
	breaking   bool
	continuing bool
}

// Context is the state of one evaluation. It is not safe for concurrent
// use; only Interrupt may be called from another goroutine.
type Context struct {
	Memory    *Memory
	Types     *TypeRegistry
	Units     *UnitRegistry
	Natives   *NativeRegistry
	Modules   map[string]*Module
	CallStack *CallStack
	Limits    Limits
	Logger    Logger
	Locale    string
	Script    string

	// Diagnostics receives engine-level records (hook failures, interrupts).
	Diagnostics *slog.Logger

	hooks      []Hook
	hostErrors map[*serrors.SorrelError]struct{}
	activation *Activation
	loop       *loopControl
	interrupt  atomic.Pointer[interruptSignal]
}

type interruptSignal struct {
	err error
}

// Option configures a Context.
type Option func(*Context)

// WithLimits replaces the default limits.
func WithLimits(l Limits) Option { return func(c *Context) { c.Limits = l } }

// WithLogger sets the script logger used by log and logLine.
func WithLogger(l Logger) Option { return func(c *Context) { c.Logger = l } }

// WithLocale sets the locale used by formatting methods.
func WithLocale(locale string) Option { return func(c *Context) { c.Locale = locale } }

// WithDiagnostics sets the engine diagnostics logger.
func WithDiagnostics(l *slog.Logger) Option { return func(c *Context) { c.Diagnostics = l } }

// WithUnits replaces the default unit registry.
func WithUnits(u *UnitRegistry) Option { return func(c *Context) { c.Units = u } }

// NewContext creates an evaluation context with the built-in types, the
// default units and the core natives registered.
func NewContext(opts ...Option) *Context {
	ctx := &Context{
		Memory:      NewMemory(),
		Types:       NewTypeRegistry(),
		Units:       NewUnitRegistry(),
		Natives:     NewNativeRegistry(),
		Modules:     make(map[string]*Module),
		CallStack:   &CallStack{},
		Limits:      DefaultLimits(),
		Logger:      DefaultLogger,
		Locale:      "en-US",
		Diagnostics: slog.New(slog.DiscardHandler),
		activation:  &Activation{Continue: true},
	}
	RegisterCoreNatives(ctx.Natives)
	for _, opt := range opts {
		opt(ctx)
	}
	return ctx
}

// AddModule registers a namespace.
func (c *Context) AddModule(m *Module) {
	c.Modules[m.Name] = m
}

// Module returns the module with the given name, creating it if needed.
func (c *Context) Module(name string) *Module {
	if m, ok := c.Modules[name]; ok {
		return m
	}
	m := NewModule(name)
	c.Modules[name] = m
	return m
}

// Interrupt asks the evaluation to stop. The error is raised unchanged at
// the next block entry; a nil error raises a generic interruption.
func (c *Context) Interrupt(err error) {
	if err == nil {
		err = serrors.New("RUN-0010", map[string]any{"Reason": "interrupted by host"})
	}
	c.interrupt.Store(&interruptSignal{err: err})
}

// Interrupted reports whether an interrupt is pending.
func (c *Context) Interrupted() bool {
	return c.interrupt.Load() != nil
}

func (c *Context) checkInterrupt() error {
	if sig := c.interrupt.Swap(nil); sig != nil {
		c.Diagnostics.Debug("evaluation interrupted", "error", sig.err)
		return c.fromHost(sig.err)
	}
	return nil
}

// fromHost marks an error returned by host code. Marked errors are never
// stamped with positions or call hints.
func (c *Context) fromHost(err error) error {
	se, ok := serrors.As(err)
	if !ok {
		return err
	}
	if c.hostErrors == nil {
		c.hostErrors = make(map[*serrors.SorrelError]struct{})
	}
	c.hostErrors[se] = struct{}{}
	return err
}

// engineError returns err as a SorrelError the engine may annotate.
func (c *Context) engineError(err error) (*serrors.SorrelError, bool) {
	se, ok := serrors.As(err)
	if !ok {
		return nil, false
	}
	if _, host := c.hostErrors[se]; host {
		return nil, false
	}
	return se, true
}

// hostResult marks the error of a host callback.
func (c *Context) hostResult(obj Object, err error) (Object, error) {
	if err != nil {
		return nil, c.fromHost(err)
	}
	return obj, nil
}

// Activation returns the activation of the function currently executing,
// or the top-level activation.
func (c *Context) Activation() *Activation { return c.activation }

// stopped reports whether the current statement list must stop early.
func (c *Context) stopped() bool {
	if !c.activation.Continue {
		return true
	}
	return c.loop != nil && (c.loop.breaking || c.loop.continuing)
}

// checkStringLength fails before allocating a string of n characters.
func (c *Context) checkStringLength(n int) error {
	if c.Limits.MaxStringLength > 0 && n > c.Limits.MaxStringLength {
		return serrors.New("LIMIT-0001", map[string]any{"Length": n, "Max": c.Limits.MaxStringLength})
	}
	return nil
}

// enterCall pushes a call-stack entry, enforcing the depth limit.
func (c *Context) enterCall(name string, node ast.Node) (func(), error) {
	if c.Limits.MaxCallDepth > 0 && c.CallStack.Depth() >= c.Limits.MaxCallDepth {
		return nil, serrors.New("FATAL-0001", map[string]any{"Max": c.Limits.MaxCallDepth, "Function": name})
	}
	return c.CallStack.Push(name, node), nil
}
