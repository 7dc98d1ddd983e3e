package records

import (
	"math"

	"weather-workbench/internal/models"
)

// MinPeriodLength is the smallest period SegmentByBoundedDrift keeps
const MinPeriodLength = 3

// SegmentByBoundedDrift greedily splits the set into periods whose temperature
// and pressure stay within the given percentages of the period's running
// average. A record that breaks the band seeds the next period. Periods
// shorter than MinPeriodLength are dropped.
func (s RecordSet) SegmentByBoundedDrift(temperaturePct, pressurePct float64) []RecordSet {
	var (
		periods []RecordSet
		current period
	)

	for _, r := range s.records {
		if current.len() > 0 && !current.accepts(r, temperaturePct, pressurePct) {
			periods = appendPeriod(periods, current)
			current = period{}
		}
		current.add(r)
	}
	return appendPeriod(periods, current)
}

func appendPeriod(periods []RecordSet, p period) []RecordSet {
	if p.len() < MinPeriodLength {
		return periods
	}
	return append(periods, p.set)
}

// period tracks running sums so the average is not recomputed per record
type period struct {
	set            RecordSet
	sumTemperature float64
	sumPressure    float64
}

func (p *period) len() int {
	return p.set.Len()
}

func (p *period) add(r models.Record) {
	p.set.Append(r)
	p.sumTemperature += float64(r.Temperature)
	p.sumPressure += float64(r.Pressure)
}

// accepts compares against the rounded averages, the same values
// AverageTemperature and AveragePressure report for the period.
func (p *period) accepts(r models.Record, temperaturePct, pressurePct float64) bool {
	avgPressure := roundedMean(p.sumPressure, p.len())
	avgTemperature := roundedMean(p.sumTemperature, p.len())
	return withinDrift(avgPressure, float64(r.Pressure), pressurePct) &&
		withinDrift(avgTemperature, float64(r.Temperature), temperaturePct)
}

// withinDrift applies |avg-v| <= pct% of avg. A zero average requires exact
// equality and a negative one accepts nothing.
func withinDrift(avg, v, pct float64) bool {
	return math.Abs(avg-v) <= models.PercentageOf(avg)*pct
}
