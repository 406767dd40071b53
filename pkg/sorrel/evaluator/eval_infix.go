package evaluator

import (
	"math"
	"unicode/utf8"

	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// evalInfixExpression applies an arithmetic operator. Dispatch is total:
// every pairing yields a value or a typed error.
func evalInfixExpression(ctx *Context, operator string, left, right Object) (Object, error) {
	left, right = widen(left), widen(right)

	switch l := left.(type) {
	case *Number:
		switch r := right.(type) {
		case *Number:
			return evalNumberInfixExpression(operator, l.Value, r.Value), nil
		case *Boolean:
			rv, _ := toFloat(r)
			return evalNumberInfixExpression(operator, l.Value, rv), nil
		case *Duration:
			if operator == "*" {
				return &Duration{Value: scaleDuration(r.Value, l.Value)}, nil
			}
		case *Quantity:
			if operator == "*" {
				return &Quantity{Magnitude: l.Value * r.Magnitude, Group: r.Group, Subgroup: r.Subgroup}, nil
			}
			return nil, newTypeMismatch(left, operator, right)
		case *DayOfWeek:
			if operator == "+" {
				return newDayOfWeek(int(r.Value) + int(l.Value)), nil
			}
		}
	case *Boolean:
		switch r := right.(type) {
		case *Number, *Boolean:
			lv, _ := toFloat(l)
			rv, _ := toFloat(r)
			return evalNumberInfixExpression(operator, lv, rv), nil
		case *String:
			if operator == "+" {
				return concatStrings(ctx, l.Inspect(), r.Value)
			}
		}
	case *String:
		switch r := right.(type) {
		case *String:
			if operator == "+" {
				return concatStrings(ctx, l.Value, r.Value)
			}
			return nil, newTypeMismatch(left, operator, right)
		case *Boolean:
			if operator == "+" {
				return concatStrings(ctx, l.Value, r.Inspect())
			}
		}
	case *Duration:
		switch r := right.(type) {
		case *Duration:
			return evalDurationInfixExpression(operator, l, r)
		case *Date:
			if operator == "+" {
				return &Date{Value: r.Value.Add(l.Value)}, nil
			}
		case *Number:
			switch operator {
			case "*":
				return &Duration{Value: scaleDuration(l.Value, r.Value)}, nil
			case "/":
				if r.Value == 0 {
					return nil, newTypeMismatch(left, operator, right)
				}
				return &Duration{Value: scaleDuration(l.Value, 1/r.Value)}, nil
			}
		}
	case *Date:
		switch r := right.(type) {
		case *Date:
			return evalDateInfixExpression(operator, l, r)
		case *Duration:
			switch operator {
			case "+":
				return &Date{Value: l.Value.Add(r.Value)}, nil
			case "-":
				return &Date{Value: l.Value.Add(-r.Value)}, nil
			}
		}
	case *Quantity:
		switch r := right.(type) {
		case *Quantity:
			return evalQuantityInfixExpression(ctx, operator, l, r)
		case *Number:
			switch operator {
			case "*":
				return &Quantity{Magnitude: l.Magnitude * r.Value, Group: l.Group, Subgroup: l.Subgroup}, nil
			case "/":
				return &Quantity{Magnitude: l.Magnitude / r.Value, Group: l.Group, Subgroup: l.Subgroup}, nil
			}
			return nil, newTypeMismatch(left, operator, right)
		}
	case *DayOfWeek:
		switch r := right.(type) {
		case *Number:
			switch operator {
			case "+":
				return newDayOfWeek(int(l.Value) + int(r.Value)), nil
			case "-":
				return newDayOfWeek(int(l.Value) - int(r.Value)), nil
			}
		case *DayOfWeek:
			if operator == "-" {
				return &Number{Value: float64(int(l.Value) - int(r.Value))}, nil
			}
		}
	case *Array:
		if r, ok := right.(*Array); ok && operator == "+" {
			elems := make([]Object, 0, len(l.Elements)+len(r.Elements))
			elems = append(elems, l.Elements...)
			elems = append(elems, r.Elements...)
			return &Array{Elements: elems}, nil
		}
	}

	// No pairing matched.
	if operator == "+" {
		if ctx.Limits.StrictConcat {
			return nil, newTypeMismatch(left, operator, right)
		}
		return concatStrings(ctx, left.Inspect(), right.Inspect())
	}
	return nil, newTypeMismatch(left, operator, right)
}

func evalNumberInfixExpression(operator string, left, right float64) Object {
	switch operator {
	case "+":
		return &Number{Value: left + right}
	case "-":
		return &Number{Value: left - right}
	case "*":
		return &Number{Value: left * right}
	case "/":
		return &Number{Value: left / right}
	case "%":
		return &Number{Value: math.Mod(left, right)}
	}
	return &Number{Value: math.NaN()}
}

// concatStrings joins two strings after the length limit check; nothing
// is allocated when the limit would be exceeded.
func concatStrings(ctx *Context, left, right string) (Object, error) {
	if err := ctx.checkStringLength(utf8.RuneCountInString(left) + utf8.RuneCountInString(right)); err != nil {
		return nil, err
	}
	return &String{Value: left + right}, nil
}

// evalPrefixExpression applies a unary operator.
func evalPrefixExpression(operator string, right Object) (Object, error) {
	right = widen(right)
	switch operator {
	case "!":
		switch r := right.(type) {
		case *Boolean:
			return nativeBoolToBooleanObject(!r.Value), nil
		case *Null:
			return TRUE, nil
		}
	case "-":
		switch r := right.(type) {
		case *Number:
			return &Number{Value: -r.Value}, nil
		case *Duration:
			return &Duration{Value: -r.Value}, nil
		case *Quantity:
			return &Quantity{Magnitude: -r.Magnitude, Group: r.Group, Subgroup: r.Subgroup}, nil
		}
	case "+":
		if r, ok := right.(*Number); ok {
			return r, nil
		}
	}
	return nil, serrors.New("TYPE-0003", map[string]any{"Operator": operator, "Type": typeName(right)})
}

// logicalOperand reads one operand of && or ||. Null counts
// as false; any other non-boolean is a type error.
func logicalOperand(operator string, o Object) (bool, error) {
	switch v := o.(type) {
	case *Boolean:
		return v.Value, nil
	case *Null:
		return false, nil
	}
	return false, serrors.New("TYPE-0002", map[string]any{"Operator": operator, "Got": typeName(o)})
}
