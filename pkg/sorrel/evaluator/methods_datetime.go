package evaluator

import (
	"fmt"
	"strings"
	"time"
)

// DateMethodRegistry, DurationMethodRegistry and DayOfWeekMethodRegistry
// hold the built-in members of the calendar kinds.
var (
	DateMethodRegistry      MethodRegistry
	DurationMethodRegistry  MethodRegistry
	DayOfWeekMethodRegistry MethodRegistry
)

func init() {
	DateMethodRegistry = MethodRegistry{
		"addDays": {
			Fn:          dateAddDays,
			Arity:       "1",
			Description: "Date n calendar days later",
		},
		"addMonths": {
			Fn:          dateAddMonths,
			Arity:       "1",
			Description: "Date n months later, clamped to month end",
		},
		"startOfDay": {
			Fn:          dateStartOfDay,
			Arity:       "0",
			Description: "Midnight of the same day",
		},
		"format": {
			Fn:          dateFormat,
			Arity:       "1-2",
			Description: "Format with a Go layout (layout, locale?)",
		},
		"weekday": {
			Fn:          dateWeekday,
			Arity:       "0",
			Description: "Day of the week as a weekday value",
		},
	}
	RegisterMethodRegistry(DATE_OBJ, DateMethodRegistry, PropertyRegistry{
		"year":      dateField("Calendar year", func(t time.Time) int { return t.Year() }),
		"month":     dateField("Month, 1-12", func(t time.Time) int { return int(t.Month()) }),
		"day":       dateField("Day of the month", func(t time.Time) int { return t.Day() }),
		"hour":      dateField("Hour, 0-23", func(t time.Time) int { return t.Hour() }),
		"minute":    dateField("Minute", func(t time.Time) int { return t.Minute() }),
		"second":    dateField("Second", func(t time.Time) int { return t.Second() }),
		"dayOfWeek": dateField("Weekday ordinal, Sunday=0", func(t time.Time) int { return int(t.Weekday()) }),
		"unix": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				return &Number{Value: float64(receiver.(*Date).Value.Unix())}, nil
			},
			Description: "Seconds since the Unix epoch",
		},
	})

	DurationMethodRegistry = MethodRegistry{
		"format": {
			Fn:          durationFormat,
			Arity:       "0",
			Description: "Human-readable interval (2d 3h 4m)",
		},
	}
	RegisterMethodRegistry(DURATION_OBJ, DurationMethodRegistry, PropertyRegistry{
		"days":         durationField("Whole days", func(d time.Duration) float64 { return float64(d / (24 * time.Hour)) }),
		"hours":        durationField("Hours part, 0-23", func(d time.Duration) float64 { return float64(d % (24 * time.Hour) / time.Hour) }),
		"minutes":      durationField("Minutes part, 0-59", func(d time.Duration) float64 { return float64(d % time.Hour / time.Minute) }),
		"seconds":      durationField("Seconds part, 0-59", func(d time.Duration) float64 { return float64(d % time.Minute / time.Second) }),
		"totalSeconds": durationField("Whole interval in seconds", func(d time.Duration) float64 { return d.Seconds() }),
	})

	DayOfWeekMethodRegistry = MethodRegistry{
		"name": {
			Fn:          dayOfWeekName,
			Arity:       "0-1",
			Description: "Localized day name (locale?)",
		},
		"next": {
			Fn:          dayOfWeekNext,
			Arity:       "0",
			Description: "Following day",
		},
		"previous": {
			Fn:          dayOfWeekPrevious,
			Arity:       "0",
			Description: "Preceding day",
		},
	}
	RegisterMethodRegistry(DAY_OF_WEEK_OBJ, DayOfWeekMethodRegistry, PropertyRegistry{
		"index": {
			Get: func(ctx *Context, receiver Object) (Object, error) {
				return &Number{Value: float64(receiver.(*DayOfWeek).Value)}, nil
			},
			Description: "Ordinal, Sunday=0",
		},
	})
}

func dateField(desc string, get func(time.Time) int) PropertyEntry {
	return PropertyEntry{
		Get: func(ctx *Context, receiver Object) (Object, error) {
			return &Number{Value: float64(get(receiver.(*Date).Value))}, nil
		},
		Description: desc,
	}
}

func durationField(desc string, get func(time.Duration) float64) PropertyEntry {
	return PropertyEntry{
		Get: func(ctx *Context, receiver Object) (Object, error) {
			return &Number{Value: get(receiver.(*Duration).Value)}, nil
		},
		Description: desc,
	}
}

// Date method implementations

func dateAddDays(ctx *Context, receiver Object, args []Object) (Object, error) {
	n, err := wholeArg("addDays", args, 0)
	if err != nil {
		return nil, err
	}
	return &Date{Value: receiver.(*Date).Value.AddDate(0, 0, n)}, nil
}

func dateAddMonths(ctx *Context, receiver Object, args []Object) (Object, error) {
	n, err := wholeArg("addMonths", args, 0)
	if err != nil {
		return nil, err
	}
	return &Date{Value: addMonths(receiver.(*Date).Value, n)}, nil
}

func dateStartOfDay(ctx *Context, receiver Object, args []Object) (Object, error) {
	return &Date{Value: startOfDay(receiver.(*Date).Value)}, nil
}

func dateFormat(ctx *Context, receiver Object, args []Object) (Object, error) {
	layout, err := stringArg("format", args, 0)
	if err != nil {
		return nil, err
	}
	locale, err := localeArg(ctx, "format", args, 1)
	if err != nil {
		return nil, err
	}
	return &String{Value: formatDateWithLocale(receiver.(*Date).Value, layout, locale)}, nil
}

func dateWeekday(ctx *Context, receiver Object, args []Object) (Object, error) {
	return &DayOfWeek{Value: receiver.(*Date).Value.Weekday()}, nil
}

// Duration method implementations

func durationFormat(ctx *Context, receiver Object, args []Object) (Object, error) {
	d := receiver.(*Duration).Value
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	var parts []string
	if days := d / (24 * time.Hour); days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if h := d % (24 * time.Hour) / time.Hour; h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m := d % time.Hour / time.Minute; m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s := d % time.Minute / time.Second; s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return &String{Value: sign + strings.Join(parts, " ")}, nil
}

// Day-of-week method implementations

func dayOfWeekName(ctx *Context, receiver Object, args []Object) (Object, error) {
	locale, err := localeArg(ctx, "name", args, 0)
	if err != nil {
		return nil, err
	}
	return &String{Value: weekdayName(receiver.(*DayOfWeek).Value, locale)}, nil
}

func dayOfWeekNext(ctx *Context, receiver Object, args []Object) (Object, error) {
	return newDayOfWeek(int(receiver.(*DayOfWeek).Value) + 1), nil
}

func dayOfWeekPrevious(ctx *Context, receiver Object, args []Object) (Object, error) {
	return newDayOfWeek(int(receiver.(*DayOfWeek).Value) - 1), nil
}
