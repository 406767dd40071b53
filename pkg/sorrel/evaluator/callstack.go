package evaluator

import (
	"fmt"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
)

// CallFrame records one in-flight invocation for diagnostics.
type CallFrame struct {
	Name string
	Node ast.Node
}

// CallStack tracks in-flight invocations. It never transfers control.
type CallStack struct {
	frames []CallFrame
}

// Push records an invocation and returns the matching pop.
func (s *CallStack) Push(name string, node ast.Node) (release func()) {
	s.frames = append(s.frames, CallFrame{Name: name, Node: node})
	depth := len(s.frames)
	released := false
	return func() {
		if released {
			return
		}
		released = true
		if len(s.frames) >= depth {
			s.frames = s.frames[:depth-1]
		}
	}
}

// Depth is the number of in-flight invocations.
func (s *CallStack) Depth() int { return len(s.frames) }

// Frames returns a copy of the stack, outermost first.
func (s *CallStack) Frames() []CallFrame {
	return append([]CallFrame(nil), s.frames...)
}

// Top returns the innermost frame.
func (s *CallStack) Top() (CallFrame, bool) {
	if len(s.frames) == 0 {
		return CallFrame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// annotateCall appends a "called from" hint to engine errors leaving an
// invocation.
func annotateCall(ctx *Context, err error, name string, site ast.Node) {
	se, ok := ctx.engineError(err)
	if !ok || site == nil {
		return
	}
	pos := site.Position()
	se.Hints = append(se.Hints, fmt.Sprintf("called from %s (%d:%d)", name, pos.Line, pos.Column))
}
