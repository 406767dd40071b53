package ast

import (
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// Operator classes. A node built with an operator outside its class is a
// contract violation reported as a syntax-class error.
var (
	BinaryOperators     = []string{"+", "-", "*", "/", "%"}
	CompareOperators    = []string{"<", "<=", ">", ">=", "==", "!="}
	LogicalOperators    = []string{"&&", "||"}
	UnaryOperators      = []string{"-", "+", "!"}
	IncrementOperators  = []string{"++", "--"}
	AssignmentOperators = []string{"=", "+=", "-=", "*=", "/=", "%="}
)

func contains(set []string, op string) bool {
	for _, s := range set {
		if s == op {
			return true
		}
	}
	return false
}

// IsLogicalOperator reports whether op belongs to the logical class.
func IsLogicalOperator(op string) bool { return contains(LogicalOperators, op) }

// IsBinaryOperator reports whether op belongs to the arithmetic class.
func IsBinaryOperator(op string) bool { return contains(BinaryOperators, op) }

// IsCompareOperator reports whether op belongs to the comparison class.
func IsCompareOperator(op string) bool { return contains(CompareOperators, op) }

func invalidOperator(pos Position, kind, op string) *serrors.SorrelError {
	return serrors.NewWithPosition("SYNTAX-0001", pos.Script, pos.Line, pos.Column,
		map[string]any{"Operator": op, "Kind": kind})
}

func malformed(pos Position, kind, detail string) *serrors.SorrelError {
	return serrors.NewWithPosition("SYNTAX-0005", pos.Script, pos.Line, pos.Column,
		map[string]any{"Kind": kind, "Detail": detail})
}

// NewBinary builds an arithmetic node.
func NewBinary(pos Position, left Node, op string, right Node) (*Binary, error) {
	if !contains(BinaryOperators, op) {
		return nil, invalidOperator(pos, "binary", op)
	}
	if left == nil || right == nil {
		return nil, malformed(pos, "binary", "missing operand")
	}
	return &Binary{Base: Base{Pos: pos}, Left: left, Operator: op, Right: right}, nil
}

// NewCompare builds a comparison node.
func NewCompare(pos Position, left Node, op string, right Node) (*Compare, error) {
	if !contains(CompareOperators, op) {
		return nil, invalidOperator(pos, "compare", op)
	}
	if left == nil || right == nil {
		return nil, malformed(pos, "compare", "missing operand")
	}
	return &Compare{Base: Base{Pos: pos}, Left: left, Operator: op, Right: right}, nil
}

// NewLogical builds a && or || node.
func NewLogical(pos Position, left Node, op string, right Node) (*Logical, error) {
	if !IsLogicalOperator(op) {
		return nil, invalidOperator(pos, "logical", op)
	}
	if left == nil || right == nil {
		return nil, malformed(pos, "logical", "missing operand")
	}
	return &Logical{Base: Base{Pos: pos}, Left: left, Operator: op, Right: right}, nil
}

// NewUnary builds a prefix operator node.
func NewUnary(pos Position, op string, operand Node) (*Unary, error) {
	if !contains(UnaryOperators, op) {
		return nil, invalidOperator(pos, "unary", op)
	}
	if operand == nil {
		return nil, malformed(pos, "unary", "missing operand")
	}
	return &Unary{Base: Base{Pos: pos}, Operator: op, Operand: operand}, nil
}

// NewIncrement builds a ++/-- node over an assignable target.
func NewIncrement(pos Position, op string, prefix bool, target Node) (*Increment, error) {
	if !contains(IncrementOperators, op) {
		return nil, invalidOperator(pos, "increment", op)
	}
	if !IsAssignable(target) {
		return nil, invalidTarget(pos, target)
	}
	return &Increment{Base: Base{Pos: pos}, Operator: op, Prefix: prefix, Target: target}, nil
}

// NewAssignment builds a plain, declaring or compound assignment.
func NewAssignment(pos Position, target Node, op string, value Node, declare bool) (*Assignment, error) {
	if !contains(AssignmentOperators, op) {
		return nil, invalidOperator(pos, "assignment", op)
	}
	if !IsAssignable(target) {
		return nil, invalidTarget(pos, target)
	}
	if declare {
		if _, ok := target.(*Identifier); !ok || op != "=" {
			return nil, malformed(pos, "assignment", "declarations bind a single name with '='")
		}
	}
	if value == nil {
		return nil, malformed(pos, "assignment", "missing value")
	}
	return &Assignment{Base: Base{Pos: pos}, Target: target, Operator: op, Value: value, Declare: declare}, nil
}

// IsAssignable reports whether n may appear on the left of an assignment.
func IsAssignable(n Node) bool {
	switch n.(type) {
	case *Identifier, *MemberAccess, *Index:
		return true
	}
	return false
}

func invalidTarget(pos Position, target Node) *serrors.SorrelError {
	desc := "nothing"
	if target != nil {
		desc = target.String()
	}
	return serrors.NewWithPosition("SYNTAX-0004", pos.Script, pos.Line, pos.Column,
		map[string]any{"Target": desc})
}
