package records

import (
	"math"

	"weather-workbench/internal/models"
)

// RecordSet is an ordered collection of daily observations.
// Insertion order is significant and is assumed to be chronological.
type RecordSet struct {
	records []models.Record
}

// New returns an empty record set
func New() RecordSet {
	return RecordSet{}
}

// From builds a record set holding a copy of records
func From(records []models.Record) RecordSet {
	rs := RecordSet{records: make([]models.Record, len(records))}
	copy(rs.records, records)
	return rs
}

// Len returns the number of records
func (s RecordSet) Len() int {
	return len(s.records)
}

// At returns the record at index i. It panics if i is out of range.
func (s RecordSet) At(i int) models.Record {
	return s.records[i]
}

// Records returns a copy of the underlying records
func (s RecordSet) Records() []models.Record {
	out := make([]models.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Append adds a record at the end of the set
func (s *RecordSet) Append(r models.Record) {
	s.records = append(s.records, r)
}

// Clone returns an independent copy of the set
func (s RecordSet) Clone() RecordSet {
	return From(s.records)
}

// IsValid reports whether every record satisfies the validity invariant
func (s RecordSet) IsValid() bool {
	return s.Validate() == nil
}

// Validate returns a *models.ValidationError for the first invalid record,
// with Row set to its index.
func (s RecordSet) Validate() error {
	for i, r := range s.records {
		if err := r.Validate(); err != nil {
			if verr, ok := err.(*models.ValidationError); ok {
				verr.Row = i
				return verr
			}
			return err
		}
	}
	return nil
}

// ByDateRange returns the records dated within [start, end] inclusive, in
// original order. An inverted range matches nothing.
func (s RecordSet) ByDateRange(start, end models.Date) RecordSet {
	var out RecordSet
	for _, r := range s.records {
		d := r.Date()
		if d.Compare(start) >= 0 && d.Compare(end) <= 0 {
			out.Append(r)
		}
	}
	return out
}

// AverageTemperature returns the mean temperature rounded to 2 decimals
func (s RecordSet) AverageTemperature() (float64, error) {
	if len(s.records) == 0 {
		return 0, models.ErrEmptySet
	}
	var sum float64
	for _, r := range s.records {
		sum += float64(r.Temperature)
	}
	return roundedMean(sum, len(s.records)), nil
}

// AveragePressure returns the mean pressure rounded to 2 decimals
func (s RecordSet) AveragePressure() (float64, error) {
	if len(s.records) == 0 {
		return 0, models.ErrEmptySet
	}
	var sum float64
	for _, r := range s.records {
		sum += float64(r.Pressure)
	}
	return roundedMean(sum, len(s.records)), nil
}

// HighestHumidityDates returns the dates of every record sharing the maximum
// humidity, in original order.
func (s RecordSet) HighestHumidityDates() ([]models.Date, error) {
	if len(s.records) == 0 {
		return nil, models.ErrEmptySet
	}
	highest := s.records[0].Humidity
	for _, r := range s.records[1:] {
		if r.Humidity > highest {
			highest = r.Humidity
		}
	}

	var dates []models.Date
	for _, r := range s.records {
		if r.Humidity == highest {
			dates = append(dates, r.Date())
		}
	}
	return dates, nil
}

// FindStableWindRuns returns the index runs where the wind direction repeats
// on consecutive records. Runs are disjoint and at least two long.
func (s RecordSet) FindStableWindRuns() [][]int {
	var runs [][]int
	n := len(s.records)
	for i := 0; i < n-1; i++ {
		if s.records[i].WindDirection != s.records[i+1].WindDirection {
			continue
		}
		run := []int{i}
		for i < n-1 && s.records[i].WindDirection == s.records[i+1].WindDirection {
			i++
			run = append(run, i)
		}
		runs = append(runs, run)
	}
	return runs
}

// roundedMean rounds half away from zero to 2 decimals
func roundedMean(sum float64, n int) float64 {
	return math.Round(sum/float64(n)*100) / 100
}
