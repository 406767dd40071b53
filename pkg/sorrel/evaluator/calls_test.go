package evaluator

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

type counter struct{ n int }

func registerCounter(ctx *Context) {
	ctx.Types.Register(&TypeDescriptor{
		Name: "Counter",
		Constructor: func(ctx *Context, args []Object) (Object, error) {
			d, _ := ctx.Types.Lookup("Counter")
			return d.NewObjectRef(&counter{}), nil
		},
		Methods: map[string]*MethodHandle{
			"inc": {Name: "inc", Arity: "0", Fn: func(ctx *Context, receiver Object, args []Object) (Object, error) {
				c := receiver.(*ObjectRef).Handle.(*counter)
				c.n++
				return &Number{Value: float64(c.n)}, nil
			}},
		},
		StaticMethods: map[string]*MethodHandle{
			"zero": {Name: "zero", Arity: "0", Fn: func(ctx *Context, receiver Object, args []Object) (Object, error) {
				return &Number{Value: 0}, nil
			}},
		},
		Properties: map[string]*PropertyHandle{
			"count": {
				Name: "count",
				Get: func(ctx *Context, r *ObjectRef) (Object, error) {
					return &Number{Value: float64(r.Handle.(*counter).n)}, nil
				},
				Set: func(ctx *Context, r *ObjectRef, value Object) error {
					n, ok := toInt(value)
					if !ok {
						return newTypeError("count", "a whole number", value)
					}
					r.Handle.(*counter).n = n
					return nil
				},
			},
			"kind": {
				Name: "kind",
				Get: func(ctx *Context, r *ObjectRef) (Object, error) {
					return &String{Value: "counter"}, nil
				},
			},
		},
	})
}

func TestCallRouting(t *testing.T) {
	newCtx := func() *Context {
		ctx := newTestContext()
		registerCounter(ctx)
		ctx.AddModule(NewModule("billing"))
		return ctx
	}
	scoped := func(name string, params []string, body ...ast.Node) *ast.FunctionDefinition {
		fd := funcDef(name, params, body...)
		fd.Scope = &ast.Scope{Name: "billing"}
		return fd
	}

	tests := []struct {
		name  string
		stmts []ast.Node
		want  string
	}{
		{
			name:  "native by name",
			stmts: []ast.Node{callName("len", arrayLit(numLit(1), numLit(2)))},
			want:  "2",
		},
		{
			name:  "qualified native",
			stmts: []ast.Node{callNode(dot(ident("math"), "sqrt"), numLit(16))},
			want:  "4",
		},
		{
			name: "module script function",
			stmts: []ast.Node{
				scoped("total", []string{"n"}, ret(binary(ident("n"), "*", numLit(10)))),
				callNode(dot(ident("billing"), "total"), numLit(3)),
			},
			want: "30",
		},
		{
			name:  "builtin method",
			stmts: []ast.Node{callNode(dot(strLit("abc"), "toUpper"))},
			want:  "ABC",
		},
		{
			name: "map entry holding a function",
			stmts: []ast.Node{
				assign("m", &ast.MapLiteral{Entries: []ast.MapEntry{{Key: "f", Value: funcDef("", []string{"x"}, ret(binary(ident("x"), "+", numLit(1))))}}}),
				callNode(dot(ident("m"), "f"), numLit(41)),
			},
			want: "42",
		},
		{
			name: "indexed callable",
			stmts: []ast.Node{
				assign("handlers", arrayLit(funcDef("", nil, ret(strLit("first"))))),
				callNode(index(ident("handlers"), numLit(0))),
			},
			want: "first",
		},
		{
			name: "function held in a variable",
			stmts: []ast.Node{
				funcDef("greet", []string{"who"}, ret(binary(strLit("hi "), "+", ident("who")))),
				assign("g", ident("greet")),
				callName("g", strLit("bob")),
			},
			want: "hi bob",
		},
		{
			name: "class instance method and property",
			stmts: []ast.Node{
				assign("c", &ast.New{TypeName: "Counter"}),
				callNode(dot(ident("c"), "inc")),
				callNode(dot(ident("c"), "inc")),
				dot(ident("c"), "count"),
			},
			want: "2",
		},
		{
			name: "class property setter",
			stmts: []ast.Node{
				assign("c", &ast.New{TypeName: "Counter"}),
				compound(dot(ident("c"), "count"), "=", numLit(9)),
				callNode(dot(ident("c"), "inc")),
			},
			want: "10",
		},
		{
			name:  "class static method",
			stmts: []ast.Node{callNode(dot(ident("Counter"), "zero"))},
			want:  "0",
		},
		{
			name: "module binding read",
			stmts: []ast.Node{
				compound(dot(ident("billing"), "rate"), "=", numLit(0.2)),
				dot(ident("billing"), "rate"),
			},
			want: "0.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newCtx()
			result := run(t, ctx, tt.stmts...)
			if result.Inspect() != tt.want {
				t.Errorf("got %s, want %s", result.Inspect(), tt.want)
			}
			if ctx.CallStack.Depth() != 0 {
				t.Errorf("call stack not empty: %d", ctx.CallStack.Depth())
			}
		})
	}
}

func TestCallRoutingErrors(t *testing.T) {
	newCtx := func() *Context {
		ctx := newTestContext()
		registerCounter(ctx)
		ctx.AddModule(NewModule("billing"))
		return ctx
	}

	tests := []struct {
		name  string
		stmts []ast.Node
		code  string
		hint  string
	}{
		{
			name:  "unknown function suggests",
			stmts: []ast.Node{callName("logg", strLit("x"))},
			code:  "RUN-0001",
			hint:  "`log`",
		},
		{
			name:  "module is not callable",
			stmts: []ast.Node{callName("billing")},
			code:  "SYNTAX-0003",
		},
		{
			name:  "missing module member",
			stmts: []ast.Node{callNode(dot(ident("billing"), "nothing"))},
			code:  "UNDEF-0004",
		},
		{
			name:  "value is not callable",
			stmts: []ast.Node{assign("x", numLit(1)), callName("x")},
			code:  "RUN-0009",
		},
		{
			name:  "native arity",
			stmts: []ast.Node{callName("len")},
			code:  "ARITY-0001",
		},
		{
			name:  "unknown builtin method suggests",
			stmts: []ast.Node{callNode(dot(strLit("abc"), "toUper"))},
			code:  "UNDEF-0001",
			hint:  "`toUpper`",
		},
		{
			name:  "unknown class member",
			stmts: []ast.Node{assign("c", &ast.New{TypeName: "Counter"}), callNode(dot(ident("c"), "dec"))},
			code:  "UNDEF-0001",
		},
		{
			name:  "read-only class property",
			stmts: []ast.Node{assign("c", &ast.New{TypeName: "Counter"}), compound(dot(ident("c"), "kind"), "=", strLit("x"))},
			code:  "RUN-0008",
		},
		{
			name:  "null receiver",
			stmts: []ast.Node{callNode(dot(nullLit(), "toUpper"))},
			code:  "RUN-0005",
		},
		{
			name:  "unknown property suggests",
			stmts: []ast.Node{dot(arrayLit(), "lenght")},
			code:  "UNDEF-0002",
			hint:  "`length`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newCtx()
			se := runErr(t, ctx, tt.stmts...)
			expectCode(t, se, tt.code)
			if tt.hint != "" && !strings.Contains(strings.Join(se.Hints, "\n"), tt.hint) {
				t.Errorf("expected hint containing %s, got %v", tt.hint, se.Hints)
			}
			if ctx.CallStack.Depth() != 0 {
				t.Errorf("call stack not empty: %d", ctx.CallStack.Depth())
			}
		})
	}
}

func TestMemberReads(t *testing.T) {
	ctx := newTestContext()
	result := run(t, ctx, assign("m", &ast.MapLiteral{}), dot(ident("m"), "missing"))
	if result != NULL {
		t.Errorf("expected null for a missing map key, got %s", result.Inspect())
	}

	result = run(t, ctx, dot(strLit("héllo"), "length"))
	expectNumber(t, result, 5)

	se := runErr(t, ctx, dot(strLit("abc"), "toUpper"))
	expectCode(t, se, "UNDEF-0002")
	if !strings.Contains(strings.Join(se.Hints, " "), "toUpper()") {
		t.Errorf("expected a call hint, got %v", se.Hints)
	}
}

func TestActivationCounters(t *testing.T) {
	ctx := newTestContext()
	ok := funcDef("ok", []string{"a"}, ret(ident("a")))
	bad := funcDef("bad", nil, binary(numLit(1), "-", strLit("x")))

	run(t, ctx, ok, callName("ok", numLit(1)), callName("ok", numLit(2)), callName("ok", numLit(3)))
	if ok.ExecutionCount() != 3 || ok.ErrorCount() != 0 {
		t.Errorf("ok: executions=%d errors=%d", ok.ExecutionCount(), ok.ErrorCount())
	}

	runErr(t, ctx, bad, callName("bad"))
	if bad.ExecutionCount() != 1 || bad.ErrorCount() != 1 {
		t.Errorf("bad: executions=%d errors=%d", bad.ExecutionCount(), bad.ErrorCount())
	}
}

func TestParameterBinding(t *testing.T) {
	tests := []struct {
		name  string
		stmts []ast.Node
		want  string
	}{
		{
			name: "excess arguments",
			stmts: []ast.Node{
				funcDef("f", []string{"a"}, ret(ident("arguments"))),
				callName("f", numLit(1), numLit(2), numLit(3)),
			},
			want: "[2, 3]",
		},
		{
			name: "no excess arguments",
			stmts: []ast.Node{
				funcDef("f", []string{"a"}, ret(ident("arguments"))),
				callName("f", numLit(1)),
			},
			want: "[]",
		},
		{
			name: "missing argument is null",
			stmts: []ast.Node{
				funcDef("f", []string{"a", "b"}, ret(ident("b"))),
				callName("f", numLit(1)),
			},
			want: "null",
		},
		{
			name: "parameter named arguments",
			stmts: []ast.Node{
				funcDef("f", []string{"arguments"}, ret(ident("arguments"))),
				callName("f", numLit(5), numLit(6)),
			},
			want: "5",
		},
		{
			name: "primitive argument is copied",
			stmts: []ast.Node{
				funcDef("f", []string{"a"}, compound(ident("a"), "+=", numLit(1)), ret(ident("a"))),
				assign("x", numLit(1)),
				callName("f", ident("x")),
				ident("x"),
			},
			want: "1",
		},
		{
			name: "array argument is shared",
			stmts: []ast.Node{
				funcDef("f", []string{"xs"}, callNode(dot(ident("xs"), "push"), numLit(4))),
				assign("a", arrayLit(numLit(1))),
				callName("f", ident("a")),
				dot(ident("a"), "length"),
			},
			want: "2",
		},
		{
			name: "bare return is null",
			stmts: []ast.Node{
				funcDef("f", nil, &ast.Return{}, numLit(1)),
				callName("f"),
			},
			want: "null",
		},
		{
			name: "no return is null",
			stmts: []ast.Node{
				funcDef("f", nil, numLit(1)),
				callName("f"),
			},
			want: "null",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := run(t, newTestContext(), tt.stmts...)
			if result.Inspect() != tt.want {
				t.Errorf("got %s, want %s", result.Inspect(), tt.want)
			}
		})
	}
}

func TestCallChainHints(t *testing.T) {
	ctx := newTestContext()
	site := &ast.Call{Base: ast.Base{Pos: ast.Position{Line: 4, Column: 2}}, Callee: ident("inner")}
	se := runErr(t, ctx,
		funcDef("inner", nil, binary(numLit(1), "*", strLit("x"))),
		funcDef("outer", nil, site),
		&ast.Call{Base: ast.Base{Pos: ast.Position{Line: 9, Column: 1}}, Callee: ident("outer")},
	)
	expectCode(t, se, "TYPE-0001")
	hints := strings.Join(se.Hints, "\n")
	if !strings.Contains(hints, "called from inner (4:2)") || !strings.Contains(hints, "called from outer (9:1)") {
		t.Errorf("missing call chain hints: %v", se.Hints)
	}
}

func TestNativeErrorsPassThrough(t *testing.T) {
	sentinel := stderrors.New("host refused")
	ctx := newTestContext()
	ctx.Natives.Register("refuse", func(ctx *Context, args []Object) (Object, error) {
		return nil, sentinel
	}, "0", "always fails")

	_, err := Evaluate(blockOf(funcDef("f", nil, callName("refuse")), callName("f")), ctx)
	if err != sentinel {
		t.Errorf("expected the native's error unchanged, got %v", err)
	}
}

func TestHostSorrelErrorsAreNotAnnotated(t *testing.T) {
	refused := serrors.New("RUN-0001", map[string]any{"Name": "ledger"})
	at := func(line int, node ast.Node) ast.Node {
		return &ast.Call{Base: ast.Base{Pos: ast.Position{Script: "host.sorrel", Line: line, Column: 1}}, Callee: node}
	}

	for i := 0; i < 3; i++ {
		ctx := newTestContext()
		ctx.Natives.Register("refuse", func(ctx *Context, args []Object) (Object, error) {
			return nil, refused
		}, "0", "always fails")
		ctx.Types.Register(&TypeDescriptor{
			Name: "Ledger",
			Constructor: func(ctx *Context, args []Object) (Object, error) {
				return nil, refused
			},
		})

		_, err := Evaluate(blockOf(funcDef("f", nil, at(2, ident("refuse"))), at(5, ident("f"))), ctx)
		if err != refused {
			t.Fatalf("run %d: expected the native's error unchanged, got %v", i, err)
		}
		newLedger := &ast.New{Base: ast.Base{Pos: ast.Position{Line: 7, Column: 3}}, TypeName: "Ledger"}
		if _, err := Evaluate(blockOf(newLedger), ctx); err != refused {
			t.Fatalf("run %d: expected the constructor's error unchanged, got %v", i, err)
		}
	}
	if len(refused.Hints) != 0 || refused.HasPosition() {
		t.Errorf("host error was modified: line %d, hints %v", refused.Line, refused.Hints)
	}

	// Errors raised by the core natives still carry the call site
	se := runErr(t, newTestContext(), &ast.Call{
		Base:   ast.Base{Pos: ast.Position{Line: 5, Column: 1}},
		Callee: ident("min"),
		Args:   []ast.Node{strLit("a")},
	})
	expectCode(t, se, "TYPE-0004")
	if se.Line != 5 {
		t.Errorf("expected the call site line, got %d", se.Line)
	}
}

func TestMaxCallDepth(t *testing.T) {
	ctx := newTestContext()
	ctx.Limits.MaxCallDepth = 50
	se := runErr(t, ctx,
		funcDef("r", []string{"n"}, ret(callName("r", binary(ident("n"), "+", numLit(1))))),
		callName("r", numLit(0)),
	)
	expectCode(t, se, "FATAL-0001")
	if !se.IsFatal() {
		t.Errorf("expected fatal class, got %s", se.Class)
	}
	if ctx.CallStack.Depth() != 0 || ctx.Memory.Depth() != 1 {
		t.Errorf("stacks not unwound: calls=%d frames=%d", ctx.CallStack.Depth(), ctx.Memory.Depth())
	}
}

func TestInterrupt(t *testing.T) {
	t.Run("raised at next block entry", func(t *testing.T) {
		sentinel := stderrors.New("deadline")
		ctx := newTestContext()
		entered := 0
		ctx.AddHook(HookFuncs{Before: func(node ast.Node, ctx *Context) {
			entered++
			if entered == 2 {
				ctx.Interrupt(sentinel)
			}
		}})
		_, err := Evaluate(blockOf(blockOf(blockOf(numLit(1)))), ctx)
		if !stderrors.Is(err, sentinel) {
			t.Fatalf("expected the interrupt error, got %v", err)
		}
		if entered != 2 {
			t.Errorf("expected two block entries, got %d", entered)
		}
		if ctx.Interrupted() {
			t.Error("interrupt should be consumed")
		}
	})

	t.Run("nil reason", func(t *testing.T) {
		ctx := newTestContext()
		ctx.Interrupt(nil)
		se := runErr(t, ctx, numLit(1))
		expectCode(t, se, "RUN-0010")
	})

	t.Run("infinite loop stops", func(t *testing.T) {
		ctx := newTestContext()
		iterations := 0
		ctx.AddHook(HookFuncs{Before: func(node ast.Node, ctx *Context) {
			iterations++
			if iterations > 100 {
				ctx.Interrupt(nil)
			}
		}})
		runErr(t, ctx, &ast.While{Condition: boolLit(true), Body: blockOf()})
		if ctx.Memory.Depth() != 1 {
			t.Errorf("frames not released: %d", ctx.Memory.Depth())
		}
	})
}

func TestHooks(t *testing.T) {
	inner := blockOf(numLit(1))
	root := blockOf(inner)
	var events []string
	name := func(n ast.Node) string {
		if n == ast.Node(root) {
			return "root"
		}
		return "inner"
	}

	ctx := newTestContext()
	ctx.AddHook(HookFuncs{
		Before: func(n ast.Node, ctx *Context) { events = append(events, "before "+name(n)) },
		After:  func(n ast.Node, ctx *Context) { events = append(events, "after "+name(n)) },
	})
	if _, err := Evaluate(root, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "before root,before inner,after inner,after root"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	events = nil
	inner.Statements = []ast.Node{ident("missing")}
	if _, err := Evaluate(root, ctx); !serrors.IsRuntime(err) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if got := strings.Join(events, ","); got != want {
		t.Errorf("after hooks must run on failure: got %s", got)
	}
}

func TestCallFunctionFromGo(t *testing.T) {
	ctx := newTestContext()
	fd := funcDef("sq", []string{"n"}, ret(binary(ident("n"), "*", ident("n"))))
	result, err := CallFunction(ctx, &Function{Definition: fd}, []Object{&Number{Value: 7}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNumber(t, result, 49)
	if ctx.Memory.Depth() != 1 || ctx.CallStack.Depth() != 0 {
		t.Errorf("stacks not unwound: frames=%d calls=%d", ctx.Memory.Depth(), ctx.CallStack.Depth())
	}
}

func TestCompoundMemberEvaluatesReceiverOnce(t *testing.T) {
	boxes := []*Map{NewMap(), NewMap()}
	boxes[0].Set("n", num(1))
	boxes[1].Set("n", num(10))
	calls := 0

	ctx := newTestContext()
	ctx.Natives.Register("box", func(ctx *Context, args []Object) (Object, error) {
		b := boxes[calls%len(boxes)]
		calls++
		return b, nil
	}, "0", "next box")

	tests := []struct {
		name string
		stmt ast.Node
	}{
		{"compound", compound(dot(callName("box"), "n"), "+=", numLit(1))},
		{"increment", &ast.Increment{Operator: "++", Target: dot(callName("box"), "n")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = 0
			boxes[0].Set("n", num(1))
			boxes[1].Set("n", num(10))

			run(t, ctx, tt.stmt)
			if calls != 1 {
				t.Errorf("expected one receiver evaluation, got %d", calls)
			}
			first, _ := boxes[0].Get("n")
			second, _ := boxes[1].Get("n")
			expectNumber(t, first, 2)
			expectNumber(t, second, 10)
		})
	}
}

func TestMemberOfUndescribedReference(t *testing.T) {
	tests := []struct {
		name string
		ref  Object
		node ast.Node
	}{
		{"instance read", &ObjectRef{Handle: 1}, dot(ident("ref"), "total")},
		{"instance call", &ObjectRef{Handle: 1}, &ast.Call{Callee: dot(ident("ref"), "close")}},
		{"type call", &TypeRef{}, &ast.Call{Callee: dot(ident("ref"), "open")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext()
			ctx.Memory.Declare("ref", tt.ref)
			expectCode(t, runErr(t, ctx, tt.node), "RUN-0005")
		})
	}
}
