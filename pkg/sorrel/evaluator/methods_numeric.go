package evaluator

import (
	"math"
)

// NumberMethodRegistry defines all methods available on number values.
// Integer receivers are widened before dispatch.
var NumberMethodRegistry MethodRegistry

func init() {
	NumberMethodRegistry = MethodRegistry{
		"abs": {
			Fn:          numberAbs,
			Arity:       "0",
			Description: "Absolute value",
		},
		"round": {
			Fn:          numberRound,
			Arity:       "0-1",
			Description: "Round to n decimals",
		},
		"floor": {
			Fn:          numberFloor,
			Arity:       "0",
			Description: "Round down",
		},
		"ceil": {
			Fn:          numberCeil,
			Arity:       "0",
			Description: "Round up",
		},
		"format": {
			Fn:          numberFormat,
			Arity:       "0-1",
			Description: "Format with locale",
		},
	}

	RegisterMethodRegistry(NUMBER_OBJ, NumberMethodRegistry, PropertyRegistry{
		"isInteger": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				v := receiver.(*Number).Value
				return nativeBoolToBooleanObject(v == math.Trunc(v) && !math.IsInf(v, 0)), nil
			},
			Description: "Whether the value has no fractional part",
		},
	})
}

func numberAbs(ctx *Context, receiver Object, args []Object) (Object, error) {
	return &Number{Value: math.Abs(receiver.(*Number).Value)}, nil
}

func numberRound(ctx *Context, receiver Object, args []Object) (Object, error) {
	num := receiver.(*Number)
	decimals := 0
	if len(args) == 1 {
		d, err := wholeArg("round", args, 0)
		if err != nil {
			return nil, err
		}
		decimals = d
	}
	multiplier := math.Pow(10, float64(decimals))
	return &Number{Value: math.Round(num.Value*multiplier) / multiplier}, nil
}

func numberFloor(ctx *Context, receiver Object, args []Object) (Object, error) {
	return &Number{Value: math.Floor(receiver.(*Number).Value)}, nil
}

func numberCeil(ctx *Context, receiver Object, args []Object) (Object, error) {
	return &Number{Value: math.Ceil(receiver.(*Number).Value)}, nil
}

func numberFormat(ctx *Context, receiver Object, args []Object) (Object, error) {
	locale, err := localeArg(ctx, "format", args, 0)
	if err != nil {
		return nil, err
	}
	return formatNumberWithLocale(receiver.(*Number).Value, locale)
}
