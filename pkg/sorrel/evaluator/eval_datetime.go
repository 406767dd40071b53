package evaluator

import (
	"math"
	"time"

	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
)

// evalDurationInfixExpression allows only + and - between intervals.
func evalDurationInfixExpression(operator string, left, right *Duration) (Object, error) {
	switch operator {
	case "+":
		return &Duration{Value: left.Value + right.Value}, nil
	case "-":
		return &Duration{Value: left.Value - right.Value}, nil
	}
	return nil, serrors.New("RUN-0003", nil)
}

// evalDateInfixExpression allows only date - date, giving an interval.
func evalDateInfixExpression(operator string, left, right *Date) (Object, error) {
	if operator == "-" {
		return &Duration{Value: left.Value.Sub(right.Value)}, nil
	}
	return nil, serrors.New("RUN-0004", nil)
}

// scaleDuration multiplies an interval, rounding to the nearest nanosecond.
func scaleDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(math.Round(float64(d) * factor))
}

// dayOrdinal reduces a date, number or weekday to Sunday=0..Saturday=6.
func dayOrdinal(o Object) (float64, bool) {
	switch v := o.(type) {
	case *DayOfWeek:
		return float64(v.Value), true
	case *Date:
		return float64(v.Value.Weekday()), true
	case *Number:
		return v.Value, true
	}
	return 0, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// addMonths adds calendar months, clamping to the last day of the
// target month (Jan 31 + 1 month = Feb 28/29).
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
