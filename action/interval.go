package action

import "strings"

const (
	SECOND int64 = 1000
	MINUTE       = 60 * SECOND
	HOUR         = 60 * MINUTE
	DAY          = 24 * HOUR
	WEEK         = 7 * DAY
	// calendar unaware
	MONTH = 30 * DAY
	YEAR  = 365 * DAY
)

var unitAliases = map[string]int64{
	"s": SECOND, "sec": SECOND, "secs": SECOND, "second": SECOND, "seconds": SECOND,
	"m": MINUTE, "min": MINUTE, "mins": MINUTE, "minute": MINUTE, "minutes": MINUTE,
	"h": HOUR, "hr": HOUR, "hrs": HOUR, "hour": HOUR, "hours": HOUR,
	"d": DAY, "day": DAY, "days": DAY,
	"w": WEEK, "wk": WEEK, "wks": WEEK, "week": WEEK, "weeks": WEEK,
	"mo": MONTH, "mon": MONTH, "month": MONTH, "months": MONTH,
	"y": YEAR, "yr": YEAR, "yrs": YEAR, "year": YEAR, "years": YEAR,
}

// UnitMillis returns the length of one unit in milliseconds, a day for anything unrecognised.
func UnitMillis(unit string) int64 {
	if millis, ok := unitAliases[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return millis
	}
	return DAY
}
