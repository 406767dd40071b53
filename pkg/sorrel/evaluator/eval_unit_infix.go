package evaluator

import (
	"math"

	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// evalQuantityInfixExpression handles quantity OP quantity. Both operands
// are normalised to base units; sums are re-expressed in the left
// operand's subgroup.
func evalQuantityInfixExpression(ctx *Context, operator string, left, right *Quantity) (Object, error) {
	if left.Group != right.Group {
		return nil, serrors.New("TYPE-0006", map[string]any{
			"LeftGroup":  left.Group,
			"RightGroup": right.Group,
			"Operator":   operator,
		})
	}

	lb, err := ctx.Units.ToBase(left)
	if err != nil {
		return nil, err
	}
	rb, err := ctx.Units.ToBase(right)
	if err != nil {
		return nil, err
	}

	var base float64
	switch operator {
	case "+":
		base = lb + rb
	case "-":
		base = lb - rb
	case "%":
		base = math.Mod(lb, rb)
	case "/":
		return &Number{Value: lb / rb}, nil
	default:
		return nil, newTypeMismatch(left, operator, right)
	}

	mag, err := ctx.Units.FromBase(base, left.Subgroup)
	if err != nil {
		return nil, err
	}
	return &Quantity{Magnitude: mag, Group: left.Group, Subgroup: left.Subgroup}, nil
}

// compareQuantities compares base magnitudes. Different groups are never
// equal and never ordered.
func compareQuantities(ctx *Context, operator string, left, right *Quantity) bool {
	if left.Group != right.Group {
		return operator == "!="
	}
	lb, err := ctx.Units.ToBase(left)
	if err != nil {
		return operator == "!="
	}
	rb, err := ctx.Units.ToBase(right)
	if err != nil {
		return operator == "!="
	}
	return compareFloats(operator, lb, rb)
}
