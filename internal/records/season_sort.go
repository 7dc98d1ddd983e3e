package records

import "weather-workbench/internal/models"

// SortPressureBySeason sorts each season run ascending by pressure, in place.
// A season run is a maximal stretch of consecutive records for which
// models.SeasonChanged is false. Records never move across a run boundary
// and equal pressures keep no particular order.
func (s *RecordSet) SortPressureBySeason() {
	for _, run := range s.SeasonRuns() {
		selectionSortByPressure(s.records[run[0]:run[1]])
	}
}

// SeasonRuns returns the [start, end) bounds of every season run
func (s RecordSet) SeasonRuns() [][2]int {
	n := len(s.records)
	if n == 0 {
		return nil
	}

	var runs [][2]int
	start := 0
	for i := 0; i < n-1; i++ {
		cur, next := s.records[i], s.records[i+1]
		if models.SeasonChanged(cur.Month, cur.Year, next.Month, next.Year) {
			runs = append(runs, [2]int{start, i + 1})
			start = i + 1
		}
	}
	return append(runs, [2]int{start, n})
}

func selectionSortByPressure(run []models.Record) {
	for i := 0; i < len(run)-1; i++ {
		lowest := i
		for j := i + 1; j < len(run); j++ {
			if run[j].Pressure < run[lowest].Pressure {
				lowest = j
			}
		}
		if lowest != i {
			run[i], run[lowest] = run[lowest], run[i]
		}
	}
}
