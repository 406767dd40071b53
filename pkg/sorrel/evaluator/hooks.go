package evaluator

import "github.com/sambeau/sorrel/pkg/sorrel/ast"

// Hook observes block execution. Hooks fire immediately before and after a
// block's statements run, including when a statement fails. They cannot
// change results; a hook that wants evaluation to stop calls
// ctx.Interrupt.
type Hook interface {
	BeforeExecute(node ast.Node, ctx *Context)
	AfterExecute(node ast.Node, ctx *Context)
}

// HookFuncs adapts a pair of functions to Hook. Either may be nil.
type HookFuncs struct {
	Before func(node ast.Node, ctx *Context)
	After  func(node ast.Node, ctx *Context)
}

func (h HookFuncs) BeforeExecute(node ast.Node, ctx *Context) {
	if h.Before != nil {
		h.Before(node, ctx)
	}
}

func (h HookFuncs) AfterExecute(node ast.Node, ctx *Context) {
	if h.After != nil {
		h.After(node, ctx)
	}
}

// AddHook registers a notification hook.
func (c *Context) AddHook(h Hook) {
	c.hooks = append(c.hooks, h)
}

// Hooks returns the registered hooks.
func (c *Context) Hooks() []Hook {
	return c.hooks
}

func (c *Context) fireBefore(node ast.Node) {
	for _, h := range c.hooks {
		h.BeforeExecute(node, c)
	}
}

func (c *Context) fireAfter(node ast.Node) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		c.hooks[i].AfterExecute(node, c)
	}
}
