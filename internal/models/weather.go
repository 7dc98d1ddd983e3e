package models

import (
	"fmt"
)

// Month is a 1-based calendar month. Unknown is the invalid sentinel.
type Month int

const (
	Unknown Month = iota
	January
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// IsValid reports whether m is one of January..December
func (m Month) IsValid() bool {
	return m >= January && m <= December
}

// String returns the English month name
func (m Month) String() string {
	names := [...]string{"Unknown", "January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	if m < Unknown || m > December {
		return fmt.Sprintf("Month(%d)", int(m))
	}
	return names[m]
}

// Season groups three calendar months
type Season int

const (
	Winter Season = iota + 1
	Spring
	Summer
	Autumn
)

// String returns the season name
func (s Season) String() string {
	switch s {
	case Winter:
		return "Winter"
	case Spring:
		return "Spring"
	case Summer:
		return "Summer"
	case Autumn:
		return "Autumn"
	default:
		return "Unknown"
	}
}

// WindDirection is one of the eight compass points. Undefined is the parse-failure sentinel.
type WindDirection int

const (
	Undefined WindDirection = iota
	North
	South
	East
	West
	Northeast
	Northwest
	Southeast
	Southwest
)

// WindDirections lists every defined direction in declaration order
var WindDirections = []WindDirection{North, South, East, West, Northeast, Northwest, Southeast, Southwest}

// String returns the wind code (N, NE, ...) or "Undefined"
func (d WindDirection) String() string {
	return FormatWindDirection(d)
}

// MarshalText encodes the direction as its wind code
func (d WindDirection) MarshalText() ([]byte, error) {
	return []byte(FormatWindDirection(d)), nil
}

// UnmarshalText decodes a wind code. Unknown codes become Undefined
// and are caught by validation, not here.
func (d *WindDirection) UnmarshalText(text []byte) error {
	*d = ParseWindDirection(string(text))
	return nil
}

// Date is a calendar day without time zone. Fields are not validated here.
type Date struct {
	Year  int   `json:"year"`
	Month Month `json:"month"`
	Day   uint  `json:"day"`
}

// Compare orders dates lexicographically by year, month, day.
// Returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	case d.Day != other.Day:
		return cmpInt(int(d.Day), int(other.Day))
	}
	return 0
}

// String formats the date as dd.MM.yyyy
func (d Date) String() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, int(d.Month), d.Year)
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	return 1
}

// Record represents one day's weather observation.
// Validity is checked on demand; a freshly inserted row may be incomplete.
type Record struct {
	Year          int           `json:"year"`
	Month         Month         `json:"month" validate:"min=1,max=12"`
	Day           uint          `json:"day" validate:"min=1,max=31"`
	Temperature   int           `json:"temperature"`
	Pressure      uint          `json:"pressure" validate:"min=1"`
	Humidity      int           `json:"humidity" validate:"min=0,max=100"`
	WindDirection WindDirection `json:"wind_direction" validate:"min=1,max=8"`
}

// DefaultRecord is the blank row the editor starts from
func DefaultRecord() Record {
	return Record{
		Year:          2000,
		Month:         January,
		Day:           1,
		Temperature:   0,
		Pressure:      760,
		Humidity:      50,
		WindDirection: North,
	}
}

// Date returns the calendar day of the observation
func (r Record) Date() Date {
	return Date{Year: r.Year, Month: r.Month, Day: r.Day}
}

// Season returns the season of the record's month
func (r Record) Season() Season {
	return SeasonOf(r.Month)
}
