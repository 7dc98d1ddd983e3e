package records

import (
	"fmt"
	"math/rand/v2"

	"weather-workbench/internal/models"
)

// span is a half-open [lo, hi) sampling interval
type span struct {
	lo, hi int
}

func (s span) sample(rng *rand.Rand) int {
	return s.lo + rng.IntN(s.hi-s.lo)
}

// monthProfile holds the calibration ranges used by the forecast for one month
type monthProfile struct {
	temperature span
	pressure    span
	humidity    span
}

var forecastProfiles = map[models.Month]monthProfile{
	models.December:  {span{-5, 6}, span{770, 781}, span{30, 41}},
	models.January:   {span{-10, 1}, span{780, 791}, span{20, 31}},
	models.February:  {span{0, 11}, span{760, 771}, span{30, 46}},
	models.March:     {span{10, 16}, span{750, 761}, span{45, 56}},
	models.April:     {span{16, 21}, span{740, 751}, span{55, 66}},
	models.May:       {span{20, 26}, span{730, 741}, span{65, 71}},
	models.June:      {span{20, 31}, span{721, 731}, span{65, 76}},
	models.July:      {span{25, 36}, span{710, 721}, span{70, 81}},
	models.August:    {span{20, 31}, span{721, 731}, span{62, 76}},
	models.September: {span{15, 21}, span{736, 751}, span{60, 71}},
	models.October:   {span{10, 16}, span{751, 766}, span{50, 61}},
	models.November:  {span{5, 11}, span{760, 771}, span{40, 51}},
}

// AppendNextMonthForecast appends one sampled record per day of the month
// following the last record. December rolls over into January of the next
// year. Returns the number of records appended.
func (s *RecordSet) AppendNextMonthForecast(rng *rand.Rand) (int, error) {
	if len(s.records) == 0 {
		return 0, models.ErrEmptySet
	}
	last := s.records[len(s.records)-1]

	month := models.NextMonth(last.Month)
	profile, ok := forecastProfiles[month]
	if !ok {
		return 0, fmt.Errorf("forecast after %v: %w", last.Month, models.ErrUnknownMonth)
	}
	year := last.Year
	if month == models.January {
		year++
	}

	days := models.DaysInMonth(month, year)
	for day := 1; day <= days; day++ {
		s.records = append(s.records, models.Record{
			Year:          year,
			Month:         month,
			Day:           uint(day),
			Temperature:   profile.temperature.sample(rng),
			Pressure:      uint(profile.pressure.sample(rng)),
			Humidity:      profile.humidity.sample(rng),
			WindDirection: models.WindDirections[rng.IntN(len(models.WindDirections))],
		})
	}
	return days, nil
}
