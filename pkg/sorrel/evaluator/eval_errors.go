package evaluator

import (
	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// stampPosition records the raising node's position on an engine error
// that has none yet. The innermost node wins. Host errors are left alone.
func stampPosition(ctx *Context, err error, node ast.Node) {
	se, ok := ctx.engineError(err)
	if !ok || se.HasPosition() || node == nil {
		return
	}
	pos := node.Position()
	se.Script = pos.Script
	se.Line = pos.Line
	se.Column = pos.Column
}

func newTypeMismatch(left Object, op string, right Object) error {
	return serrors.New("TYPE-0001", map[string]any{
		"LeftType":  typeName(left),
		"Operator":  op,
		"RightType": typeName(right),
	})
}

func newTypeError(function, expected string, got Object) error {
	return serrors.New("TYPE-0004", map[string]any{
		"Function": function,
		"Expected": expected,
		"Got":      typeName(got),
	})
}

func newArityError(function string, got, want int) error {
	return serrors.New("ARITY-0001", map[string]any{"Function": function, "Got": got, "Want": want})
}

func newArityErrorRange(function string, got, min, max int) error {
	return serrors.New("ARITY-0002", map[string]any{"Function": function, "Got": got, "Min": min, "Max": max})
}

func newArityErrorMin(function string, got, minArgs int) error {
	return serrors.New("ARITY-0003", map[string]any{"Function": function, "Got": got, "Min": minArgs})
}

func newIndexError(index, length int) error {
	return serrors.New("INDEX-0001", map[string]any{"Index": index, "Length": length})
}

func newFormatError(format string, err error) error {
	return serrors.New("FMT-0001", map[string]any{"Format": format, "GoError": err.Error()})
}

func newSyntaxError(code string, data map[string]any) error {
	return serrors.New(code, data)
}

func newRuntimeError(code string, data map[string]any) error {
	return serrors.New(code, data)
}
