package odata

import (
	"math"
	"time"

	"github.com/golang-sql/civil"
)

const (
	dateTimeLayout      = "2006-01-02T15:04:05.9999999"
	zonedDateTimeLayout = "2006-01-02T15:04:05.9999999-07:00"
	timeOfDayLayout     = "15:04:05.9999999"
)

// NormalizeValue converts a record value into its JSON representation.
//
// Zone-less date-times get a literal "Z" suffix, zoned date-times keep their
// own offset, date-only and time-only values use ISO-8601. Non-finite floats
// become the OData literals NaN, INF and -INF. Other values pass through
// unchanged.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case civil.DateTime:
		return x.In(time.UTC).Format(dateTimeLayout) + "Z"
	case time.Time:
		return x.Format(zonedDateTimeLayout)
	case civil.Date:
		return x.String()
	case civil.Time:
		return time.Date(0, 1, 1, x.Hour, x.Minute, x.Second, x.Nanosecond, time.UTC).Format(timeOfDayLayout)
	case float64:
		return normalizeFloat(x)
	case float32:
		return normalizeFloat(float64(x))
	default:
		return v
	}
}

func normalizeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	return f
}
