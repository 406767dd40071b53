package ast

import (
	"math"
	"testing"

	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

func TestNewLogical_RejectsNonLogicalOperator(t *testing.T) {
	pos := Position{Script: "rules", Line: 2, Column: 5}
	left := &BooleanLiteral{Value: true}
	right := &BooleanLiteral{Value: false}

	for _, op := range []string{"&&", "||"} {
		if _, err := NewLogical(pos, left, op, right); err != nil {
			t.Errorf("NewLogical(%q) error: %v", op, err)
		}
	}

	_, err := NewLogical(pos, left, "+", right)
	if err == nil {
		t.Fatal("NewLogical(+) expected error")
	}
	if !serrors.IsClass(err, serrors.ClassSyntax) {
		t.Errorf("error class = %v, want syntax", err)
	}
	se, _ := serrors.As(err)
	if se.Line != 2 || se.Column != 5 || se.Script != "rules" {
		t.Errorf("position = %s:%d:%d", se.Script, se.Line, se.Column)
	}
}

func TestOperatorClasses(t *testing.T) {
	pos := Position{Line: 1, Column: 1}
	one := &NumberLiteral{Value: 1}

	tests := []struct {
		name  string
		build func() error
		ok    bool
	}{
		{"binary +", func() error { _, err := NewBinary(pos, one, "+", one); return err }, true},
		{"binary ==", func() error { _, err := NewBinary(pos, one, "==", one); return err }, false},
		{"compare <=", func() error { _, err := NewCompare(pos, one, "<=", one); return err }, true},
		{"compare &&", func() error { _, err := NewCompare(pos, one, "&&", one); return err }, false},
		{"unary !", func() error { _, err := NewUnary(pos, "!", one); return err }, true},
		{"unary *", func() error { _, err := NewUnary(pos, "*", one); return err }, false},
		{"binary nil operand", func() error { _, err := NewBinary(pos, nil, "+", one); return err }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewAssignment_Targets(t *testing.T) {
	pos := Position{Line: 1, Column: 1}
	val := &NumberLiteral{Value: 1}

	if _, err := NewAssignment(pos, &Identifier{Name: "x"}, "=", val, true); err != nil {
		t.Errorf("declare x: %v", err)
	}
	if _, err := NewAssignment(pos, &MemberAccess{Object: &Identifier{Name: "m"}, Name: "k"}, "+=", val, false); err != nil {
		t.Errorf("member +=: %v", err)
	}
	if _, err := NewAssignment(pos, &NumberLiteral{Value: 3}, "=", val, false); !serrors.IsClass(err, serrors.ClassSyntax) {
		t.Errorf("literal target error = %v, want syntax", err)
	}
	if _, err := NewAssignment(pos, &Identifier{Name: "x"}, "+=", val, true); err == nil {
		t.Error("compound declaration should be rejected")
	}
	if _, err := NewIncrement(pos, "++", false, &Call{Callee: &Identifier{Name: "f"}}); err == nil {
		t.Error("increment of a call should be rejected")
	}
}

func TestFunctionDefinition_Counters(t *testing.T) {
	fd := NewFunctionDefinition(Position{}, "f", []string{"a", "b"}, nil)

	if !fd.IsImmediate() {
		t.Error("function definitions are hoisted")
	}
	if !fd.HasParam("b") || fd.HasParam("c") {
		t.Error("HasParam mismatch")
	}

	fd.RecordExecution()
	fd.RecordExecution()
	fd.RecordError()
	if fd.ExecutionCount() != 2 || fd.ErrorCount() != 1 {
		t.Errorf("counts = %d/%d, want 2/1", fd.ExecutionCount(), fd.ErrorCount())
	}

	fd.executionCount = math.MaxUint32
	fd.RecordExecution()
	if fd.ExecutionCount() != 0 {
		t.Errorf("execution count at ceiling wrapped to %d, want 0", fd.ExecutionCount())
	}
}

func TestScopeQualify(t *testing.T) {
	billing := &Scope{Name: "billing"}
	tax := &Scope{Name: "tax", Parent: billing}

	if got := tax.Qualify("rate"); got != "billing.tax.rate" {
		t.Errorf("Qualify() = %q", got)
	}
	var top *Scope
	if got := top.Qualify("x"); got != "x" {
		t.Errorf("nil scope Qualify() = %q", got)
	}

	fd := NewFunctionDefinition(Position{}, "total", nil, nil)
	fd.Scope = billing
	if fd.QualifiedName() != "billing.total" {
		t.Errorf("QualifiedName() = %q", fd.QualifiedName())
	}
}

func TestNodeStrings(t *testing.T) {
	pos := Position{}
	sum, _ := NewBinary(pos, &Identifier{Name: "x"}, "+", &IntegerLiteral{Value: 2})
	call := &Call{
		Callee: &MemberAccess{Object: &StringLiteral{Value: "ab"}, Name: "toUpper"},
	}
	block := &Block{Statements: []Node{sum, call}}

	if got := block.String(); got != `{(x + 2); "ab".toUpper()}` {
		t.Errorf("String() = %q", got)
	}
	if KindOf(call) != "call" || KindOf(sum) != "binary" {
		t.Error("KindOf mismatch")
	}
	if got := (Position{Script: "s", Line: 3, Column: 4}).String(); got != "s:3:4" {
		t.Errorf("Position.String() = %q", got)
	}
}
