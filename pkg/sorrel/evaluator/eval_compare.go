package evaluator

import "strings"

// evalCompareExpression applies a comparison operator. Comparisons never
// fail: a pairing with no rule compares false.
func evalCompareExpression(ctx *Context, operator string, left, right Object) *Boolean {
	return nativeBoolToBooleanObject(compareValues(ctx, operator, widen(left), widen(right)))
}

func compareValues(ctx *Context, operator string, left, right Object) bool {
	switch l := left.(type) {
	case *Number:
		switch r := right.(type) {
		case *Number:
			return compareFloats(operator, l.Value, r.Value)
		case *Boolean:
			rv, _ := toFloat(r)
			return compareFloats(operator, l.Value, rv)
		}
	case *Boolean:
		switch r := right.(type) {
		case *Number, *Boolean:
			lv, _ := toFloat(l)
			rv, _ := toFloat(r)
			return compareFloats(operator, lv, rv)
		}
	case *Duration:
		if r, ok := right.(*Duration); ok {
			return compareFloats(operator, float64(l.Value), float64(r.Value))
		}
	case *Date:
		if r, ok := right.(*Date); ok {
			return compareOrdered(operator, l.Value.Compare(r.Value))
		}
	case *String:
		if r, ok := right.(*String); ok {
			return compareOrdered(operator, strings.Compare(l.Value, r.Value))
		}
	case *Quantity:
		if r, ok := right.(*Quantity); ok {
			return compareQuantities(ctx, operator, l, r)
		}
	}

	_, leftNull := left.(*Null)
	_, rightNull := right.(*Null)
	if leftNull || rightNull {
		switch operator {
		case "==":
			return leftNull && rightNull
		case "!=":
			return !(leftNull && rightNull)
		}
		return false
	}

	_, leftDay := left.(*DayOfWeek)
	_, rightDay := right.(*DayOfWeek)
	if leftDay || rightDay {
		lo, lok := dayOrdinal(left)
		ro, rok := dayOrdinal(right)
		if lok && rok {
			return compareFloats(operator, lo, ro)
		}
		return false
	}

	// Same-kind references compare by identity.
	if left.Type() == right.Type() {
		switch left.(type) {
		case *Array, *Map, *ObjectRef, *Function, *Native, *Module, *TypeRef:
			switch operator {
			case "==":
				return left == right
			case "!=":
				return left != right
			}
		}
	}
	return false
}

func compareFloats(operator string, left, right float64) bool {
	switch operator {
	case "<":
		return left < right
	case "<=":
		return left <= right
	case ">":
		return left > right
	case ">=":
		return left >= right
	case "==":
		return left == right
	case "!=":
		return left != right
	}
	return false
}

// compareOrdered derives every comparison from a three-way result.
func compareOrdered(operator string, cmp int) bool {
	switch operator {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	}
	return false
}
