package evaluator

import (
	"math"
	"testing"
	"time"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

func sampleValues(ctx *Context) []Object {
	km, _ := ctx.Units.NewQuantity(1, "km")
	kg, _ := ctx.Units.NewQuantity(2, "kg")
	m := NewMap()
	m.Set("a", &Number{Value: 1})
	return []Object{
		NULL,
		TRUE,
		FALSE,
		&Number{Value: 3},
		&Number{Value: 0},
		&Number{Value: math.NaN()},
		&Integer{Value: 4},
		&String{Value: "s"},
		&Date{Value: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		&Duration{Value: time.Hour},
		km,
		kg,
		&DayOfWeek{Value: time.Monday},
		&Array{Elements: []Object{&Number{Value: 1}}},
		m,
		&ObjectRef{Descriptor: &TypeDescriptor{Name: "Widget"}},
		&Function{Definition: ast.NewFunctionDefinition(ast.Position{}, "f", nil, nil)},
		&Native{Name: "n", Fn: nativeNow},
	}
}

func TestOperatorTotality(t *testing.T) {
	ctx := newTestContext()
	values := sampleValues(ctx)
	ops := append(append([]string{}, ast.BinaryOperators...), ast.CompareOperators...)

	for _, l := range values {
		for _, r := range values {
			for _, op := range ops {
				func() {
					defer func() {
						if p := recover(); p != nil {
							t.Errorf("%s %s %s panicked: %v", typeName(l), op, typeName(r), p)
						}
					}()
					if ast.IsCompareOperator(op) {
						if evalCompareExpression(ctx, op, l, r) == nil {
							t.Errorf("%s %s %s returned nil", typeName(l), op, typeName(r))
						}
						return
					}
					result, err := evalInfixExpression(ctx, op, l, r)
					if (result == nil) == (err == nil) {
						t.Errorf("%s %s %s: expected exactly one of value or error", typeName(l), op, typeName(r))
					}
				}()
			}
		}
	}
}

func TestNumericCoercion(t *testing.T) {
	ctx := newTestContext()
	tests := []struct {
		name  string
		left  Object
		op    string
		right Object
		want  float64
	}{
		{"integer widens", &Integer{Value: 2}, "*", &Number{Value: 1.5}, 3},
		{"number plus true", &Number{Value: 1}, "+", TRUE, 2},
		{"false plus number", FALSE, "+", &Number{Value: 5}, 5},
		{"bool times bool", TRUE, "*", TRUE, 1},
		{"modulo", &Number{Value: 7}, "%", &Number{Value: 3}, 1},
		{"day minus day", &DayOfWeek{Value: time.Friday}, "-", &DayOfWeek{Value: time.Monday}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evalInfixExpression(ctx, tt.op, tt.left, tt.right)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expectNumber(t, result, tt.want)
		})
	}

	t.Run("division by zero is IEEE", func(t *testing.T) {
		result, err := evalInfixExpression(ctx, "/", &Number{Value: 1}, &Number{Value: 0})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !math.IsInf(result.(*Number).Value, 1) {
			t.Errorf("expected +Inf, got %s", result.Inspect())
		}
	})
}

func TestConcatenation(t *testing.T) {
	ctx := newTestContext()
	tests := []struct {
		name  string
		left  Object
		right Object
		want  string
	}{
		{"strings", &String{Value: "ab"}, &String{Value: "cd"}, "abcd"},
		{"string and bool", &String{Value: "x="}, FALSE, "x=false"},
		{"bool and string", TRUE, &String{Value: "!"}, "true!"},
		{"fallback number and string", &Number{Value: 2.5}, &String{Value: "kg"}, "2.5kg"},
		{"fallback null", &String{Value: "v:"}, NULL, "v:null"},
		{"fallback date", &String{Value: "on "}, &Date{Value: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, "on 2024-01-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evalInfixExpression(ctx, "+", tt.left, tt.right)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expectString(t, result, tt.want)
		})
	}

	t.Run("string minus string is a type mismatch", func(t *testing.T) {
		_, err := evalInfixExpression(ctx, "-", &String{Value: "a"}, &String{Value: "b"})
		if !serrors.IsClass(err, serrors.ClassType) {
			t.Errorf("expected type error, got %v", err)
		}
	})

	t.Run("strict concat", func(t *testing.T) {
		strict := newTestContext()
		strict.Limits.StrictConcat = true
		_, err := evalInfixExpression(strict, "+", &Number{Value: 1}, &String{Value: "a"})
		if !serrors.IsClass(err, serrors.ClassType) {
			t.Errorf("expected type error, got %v", err)
		}
	})

	t.Run("length limit", func(t *testing.T) {
		limited := newTestContext()
		limited.Limits.MaxStringLength = 5
		left, right := &String{Value: "abc"}, &String{Value: "def"}
		_, err := evalInfixExpression(limited, "+", left, right)
		se, ok := serrors.As(err)
		if !ok || !se.IsLimitExceeded() {
			t.Fatalf("expected limit error, got %v", err)
		}
		if left.Value != "abc" || right.Value != "def" {
			t.Error("operands were modified")
		}
		result, err := evalInfixExpression(limited, "+", &String{Value: "ab"}, &String{Value: "cde"})
		if err != nil {
			t.Fatalf("five characters should fit: %v", err)
		}
		expectString(t, result, "abcde")
	})

	t.Run("interpolation limit", func(t *testing.T) {
		limited := newTestContext()
		limited.Limits.MaxStringLength = 3
		se := runErr(t, limited, &ast.Interpolation{Parts: []ast.Node{strLit("ab"), strLit("cd")}})
		expectCode(t, se, "LIMIT-0001")
	})
}

func TestNullLaws(t *testing.T) {
	ctx := newTestContext()
	one := &Number{Value: 1}
	tests := []struct {
		left  Object
		op    string
		right Object
		want  bool
	}{
		{NULL, "==", NULL, true},
		{NULL, "!=", NULL, false},
		{NULL, "!=", one, true},
		{one, "!=", NULL, true},
		{NULL, "==", one, false},
		{NULL, "<", one, false},
		{NULL, ">=", NULL, false},
		{&String{Value: ""}, "==", NULL, false},
	}
	for _, tt := range tests {
		got := evalCompareExpression(ctx, tt.op, tt.left, tt.right)
		if got.Value != tt.want {
			t.Errorf("%s %s %s = %v, want %v", tt.left.Inspect(), tt.op, tt.right.Inspect(), got.Value, tt.want)
		}
	}
}

func TestComparisons(t *testing.T) {
	ctx := newTestContext()
	arr := &Array{}
	jan := &Date{Value: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	feb := &Date{Value: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	m, _ := ctx.Units.NewQuantity(1000, "m")
	km, _ := ctx.Units.NewQuantity(1, "km")
	kg, _ := ctx.Units.NewQuantity(1, "kg")

	tests := []struct {
		name  string
		left  Object
		op    string
		right Object
		want  bool
	}{
		{"strings ordinal", &String{Value: "apple"}, "<", &String{Value: "banana"}, true},
		{"strings equal", &String{Value: "a"}, "==", &String{Value: "a"}, true},
		{"string vs bool never compares", &String{Value: "true"}, "==", TRUE, false},
		{"dates chronological", jan, "<", feb, true},
		{"durations", &Duration{Value: time.Minute}, ">", &Duration{Value: time.Second}, true},
		{"number vs bool", &Number{Value: 1}, "==", TRUE, true},
		{"quantities by base", m, "==", km, true},
		{"different groups unequal", m, "!=", kg, true},
		{"different groups unordered", m, "<", kg, false},
		{"day vs day", &DayOfWeek{Value: time.Monday}, "<", &DayOfWeek{Value: time.Tuesday}, true},
		{"day vs date", &DayOfWeek{Value: time.Monday}, "==", jan, true},
		{"day vs number", &DayOfWeek{Value: time.Sunday}, "==", &Number{Value: 0}, true},
		{"same array", arr, "==", arr, true},
		{"different arrays", arr, "==", &Array{}, false},
		{"NaN unequal", &Number{Value: math.NaN()}, "==", &Number{Value: math.NaN()}, false},
		{"no rule is false", &Array{}, "<", &Number{Value: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalCompareExpression(ctx, tt.op, tt.left, tt.right)
			if got.Value != tt.want {
				t.Errorf("got %v, want %v", got.Value, tt.want)
			}
		})
	}
}

func TestLogicalOperators(t *testing.T) {
	t.Run("short circuit and", func(t *testing.T) {
		result := run(t, newTestContext(), logical(boolLit(false), "&&", ident("nosuchvar")))
		expectBool(t, result, false)
	})

	t.Run("short circuit or", func(t *testing.T) {
		result := run(t, newTestContext(), logical(boolLit(true), "||", ident("nosuchvar")))
		expectBool(t, result, true)
	})

	t.Run("null is false", func(t *testing.T) {
		result := run(t, newTestContext(), logical(nullLit(), "||", boolLit(false)))
		expectBool(t, result, false)
	})

	t.Run("number operand rejected", func(t *testing.T) {
		se := runErr(t, newTestContext(), logical(numLit(1), "&&", boolLit(true)))
		expectCode(t, se, "TYPE-0002")
	})

	t.Run("foreign operator rejected", func(t *testing.T) {
		se := runErr(t, newTestContext(), logical(boolLit(true), "+", boolLit(true)))
		expectCode(t, se, "SYNTAX-0001")
		if !se.IsSyntaxError() {
			t.Errorf("expected syntax class, got %s", se.Class)
		}
	})

	t.Run("constructor rejects foreign operator", func(t *testing.T) {
		_, err := ast.NewLogical(ast.Position{Line: 1, Column: 1}, boolLit(true), "==", boolLit(false))
		if !serrors.IsClass(err, serrors.ClassSyntax) {
			t.Errorf("expected syntax error, got %v", err)
		}
	})
}

func TestUnaryOperators(t *testing.T) {
	tests := []struct {
		name string
		op   string
		in   Object
		want string
	}{
		{"negate number", "-", &Number{Value: 2}, "-2"},
		{"negate integer", "-", &Integer{Value: 2}, "-2"},
		{"negate duration", "-", &Duration{Value: time.Minute}, "-1m0s"},
		{"not null", "!", NULL, "true"},
		{"not true", "!", TRUE, "false"},
		{"plus number", "+", &Number{Value: 3}, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evalPrefixExpression(tt.op, tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Inspect() != tt.want {
				t.Errorf("got %s, want %s", result.Inspect(), tt.want)
			}
		})
	}

	if _, err := evalPrefixExpression("!", &String{Value: "x"}); !serrors.IsClass(err, serrors.ClassType) {
		t.Errorf("expected type error for !string, got %v", err)
	}
}

func TestUnitArithmetic(t *testing.T) {
	ctx := newTestContext()
	q := func(mag float64, unit string) *Quantity {
		t.Helper()
		v, err := ctx.Units.NewQuantity(mag, unit)
		if err != nil {
			t.Fatalf("NewQuantity(%v, %q): %v", mag, unit, err)
		}
		return v
	}

	t.Run("sum in left unit", func(t *testing.T) {
		result, err := evalInfixExpression(ctx, "+", q(1, "km"), q(500, "m"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Inspect() != "1.5km" {
			t.Errorf("got %s, want 1.5km", result.Inspect())
		}
	})

	t.Run("ratio is dimensionless", func(t *testing.T) {
		result, err := evalInfixExpression(ctx, "/", q(1, "km"), q(500, "m"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expectNumber(t, result, 2)
	})

	t.Run("scale by number", func(t *testing.T) {
		result, err := evalInfixExpression(ctx, "*", &Number{Value: 3}, q(2, "kg"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Inspect() != "6kg" {
			t.Errorf("got %s, want 6kg", result.Inspect())
		}
	})

	t.Run("different groups", func(t *testing.T) {
		_, err := evalInfixExpression(ctx, "+", q(1, "kg"), q(1, "m"))
		se, ok := serrors.As(err)
		if !ok || se.Code != "TYPE-0006" {
			t.Errorf("expected TYPE-0006, got %v", err)
		}
	})

	t.Run("quantity times quantity", func(t *testing.T) {
		_, err := evalInfixExpression(ctx, "*", q(1, "m"), q(1, "m"))
		if !serrors.IsClass(err, serrors.ClassType) {
			t.Errorf("expected type error, got %v", err)
		}
	})

	t.Run("number plus quantity", func(t *testing.T) {
		_, err := evalInfixExpression(ctx, "+", &Number{Value: 1}, q(1, "m"))
		if !serrors.IsClass(err, serrors.ClassType) {
			t.Errorf("expected type error, got %v", err)
		}
	})

	t.Run("unknown unit suggests", func(t *testing.T) {
		_, err := ctx.Units.NewQuantity(1, "kgg")
		se, ok := serrors.As(err)
		if !ok || se.Code != "UNDEF-0003" {
			t.Fatalf("expected UNDEF-0003, got %v", err)
		}
		if len(se.Hints) == 0 {
			t.Error("expected a suggestion")
		}
	})

	t.Run("convert", func(t *testing.T) {
		result, err := ctx.Units.Convert(q(2048, "KiB"), "MiB")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Magnitude != 2 {
			t.Errorf("got %v, want 2", result.Magnitude)
		}
	})
}

func TestDateTimeArithmetic(t *testing.T) {
	ctx := newTestContext()
	day := &Date{Value: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)}

	t.Run("date plus duration", func(t *testing.T) {
		result, err := evalInfixExpression(ctx, "+", day, &Duration{Value: 24 * time.Hour})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Inspect() != "2024-02-29" {
			t.Errorf("got %s", result.Inspect())
		}
	})

	t.Run("date minus date", func(t *testing.T) {
		later := &Date{Value: day.Value.Add(36 * time.Hour)}
		result, err := evalInfixExpression(ctx, "-", later, day)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d, ok := result.(*Duration); !ok || d.Value != 36*time.Hour {
			t.Errorf("got %s", result.Inspect())
		}
	})

	t.Run("date plus date", func(t *testing.T) {
		_, err := evalInfixExpression(ctx, "+", day, day)
		se, ok := serrors.As(err)
		if !ok || se.Code != "RUN-0004" {
			t.Errorf("expected RUN-0004, got %v", err)
		}
	})

	t.Run("duration times duration", func(t *testing.T) {
		_, err := evalInfixExpression(ctx, "*", &Duration{Value: time.Second}, &Duration{Value: time.Second})
		se, ok := serrors.As(err)
		if !ok || se.Code != "RUN-0003" {
			t.Errorf("expected RUN-0003, got %v", err)
		}
	})

	t.Run("duration scaled", func(t *testing.T) {
		result, err := evalInfixExpression(ctx, "/", &Duration{Value: time.Hour}, &Number{Value: 4})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.(*Duration).Value != 15*time.Minute {
			t.Errorf("got %s", result.Inspect())
		}
	})

	t.Run("weekday wraps", func(t *testing.T) {
		result, err := evalInfixExpression(ctx, "+", &DayOfWeek{Value: time.Saturday}, &Number{Value: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.(*DayOfWeek).Value != time.Monday {
			t.Errorf("got %s", result.Inspect())
		}
	})

	t.Run("new Date from parts and string", func(t *testing.T) {
		result := run(t, ctx, &ast.New{TypeName: "Date", Args: []ast.Node{numLit(2024), numLit(5), numLit(17)}})
		if result.Inspect() != "2024-05-17" {
			t.Errorf("got %s", result.Inspect())
		}
		result = run(t, ctx, &ast.New{TypeName: "Date", Args: []ast.Node{strLit("2024-05-17")}})
		if result.Inspect() != "2024-05-17" {
			t.Errorf("got %s", result.Inspect())
		}
	})

	t.Run("new unknown type", func(t *testing.T) {
		se := runErr(t, ctx, &ast.New{TypeName: "Dat"})
		expectCode(t, se, "RUN-0006")
	})
}
