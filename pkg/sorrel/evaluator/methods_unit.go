package evaluator

import (
	"strconv"
)

// QuantityMethodRegistry defines all methods available on quantity values.
var QuantityMethodRegistry MethodRegistry

func init() {
	QuantityMethodRegistry = MethodRegistry{
		"to": {
			Fn:          quantityTo,
			Arity:       "1",
			Description: "Convert to another unit of the same group",
		},
		"abs": {
			Fn:          quantityAbs,
			Arity:       "0",
			Description: "Absolute value",
		},
		"format": {
			Fn:          quantityFormat,
			Arity:       "0-1",
			Description: "Format with optional precision",
		},
	}
	RegisterMethodRegistry(QUANTITY_OBJ, QuantityMethodRegistry, PropertyRegistry{
		"magnitude": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				return &Number{Value: receiver.(*Quantity).Magnitude}, nil
			},
			Description: "Magnitude in the quantity's own unit",
		},
		"unit": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				return &String{Value: receiver.(*Quantity).Subgroup}, nil
			},
			Description: "Unit suffix",
		},
		"group": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				return &String{Value: receiver.(*Quantity).Group}, nil
			},
			Description: "Measurement group (length, mass, volume, data)",
		},
		"base": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				base, err := ctx.Units.ToBase(receiver.(*Quantity))
				if err != nil {
					return nil, err
				}
				return &Number{Value: base}, nil
			},
			Description: "Magnitude in the group's base unit",
		},
	})
}

func quantityTo(ctx *Context, receiver Object, args []Object) (Object, error) {
	unit, err := stringArg("to", args, 0)
	if err != nil {
		return nil, err
	}
	q, err := ctx.Units.Convert(receiver.(*Quantity), unit)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func quantityAbs(ctx *Context, receiver Object, args []Object) (Object, error) {
	q := receiver.(*Quantity)
	m := q.Magnitude
	if m < 0 {
		m = -m
	}
	return &Quantity{Magnitude: m, Group: q.Group, Subgroup: q.Subgroup}, nil
}

func quantityFormat(ctx *Context, receiver Object, args []Object) (Object, error) {
	q := receiver.(*Quantity)
	if len(args) == 0 {
		return &String{Value: q.Inspect()}, nil
	}
	places, err := wholeArg("format", args, 0)
	if err != nil {
		return nil, err
	}
	if places < 0 {
		places = 0
	}
	return &String{Value: strconv.FormatFloat(q.Magnitude, 'f', places, 64) + q.Subgroup}, nil
}
