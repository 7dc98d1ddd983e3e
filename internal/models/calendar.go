package models

// SeasonOf maps a month to its season: Dec/Jan/Feb are Winter, Mar-May Spring,
// Jun-Aug Summer, everything else Autumn. Callers validate the month first.
func SeasonOf(month Month) Season {
	switch {
	case month == December || month == January || month == February:
		return Winter
	case month >= March && month <= May:
		return Spring
	case month >= June && month <= August:
		return Summer
	default:
		return Autumn
	}
}

// SeasonChanged reports whether two chronologically increasing dates fall into
// different season eras. A winter spanning consecutive years (Dec of Y followed by
// Jan/Feb of Y+1) counts as one season; any other change of year is a change.
func SeasonChanged(month1 Month, year1 int, month2 Month, year2 int) bool {
	if year1 == year2-1 && SeasonOf(month1) == Winter && SeasonOf(month2) == Winter {
		return false
	}
	if year1 != year2 {
		return true
	}
	return SeasonOf(month1) != SeasonOf(month2)
}

// IsLeapYear applies the Gregorian rule
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInMonth returns the number of days of month in year, 0 for Unknown.
func DaysInMonth(month Month, year int) int {
	switch month {
	case January, March, May, July, August, October, December:
		return 31
	case April, June, September, November:
		return 30
	case February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

// NextMonth returns the following month, wrapping December to January.
// Unknown has no successor and is returned unchanged.
func NextMonth(month Month) Month {
	switch {
	case month == December:
		return January
	case month.IsValid():
		return month + 1
	default:
		return Unknown
	}
}

var windCodes = map[string]WindDirection{
	"N":  North,
	"S":  South,
	"E":  East,
	"W":  West,
	"NE": Northeast,
	"NW": Northwest,
	"SE": Southeast,
	"SW": Southwest,
}

// ParseWindDirection matches text case-sensitively against the eight wind codes.
// Anything else yields Undefined.
func ParseWindDirection(text string) WindDirection {
	if d, ok := windCodes[text]; ok {
		return d
	}
	return Undefined
}

// FormatWindDirection is the inverse of ParseWindDirection.
// Undefined (or any unknown value) formats as "Undefined".
func FormatWindDirection(direction WindDirection) string {
	switch direction {
	case North:
		return "N"
	case South:
		return "S"
	case East:
		return "E"
	case West:
		return "W"
	case Northeast:
		return "NE"
	case Northwest:
		return "NW"
	case Southeast:
		return "SE"
	case Southwest:
		return "SW"
	default:
		return "Undefined"
	}
}

// PercentageOf returns one percent of value
func PercentageOf(value float64) float64 {
	return value / 100
}
