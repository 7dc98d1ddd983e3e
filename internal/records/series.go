package records

import (
	"errors"
	"fmt"

	"weather-workbench/internal/models"
)

// MinGraphPoints is the fewest records a graph is drawn for
const MinGraphPoints = 3

// ErrUnknownField is returned for a series field other than temperature, pressure or humidity
var ErrUnknownField = errors.New("unknown series field")

// Field selects the measurement plotted by Series
type Field string

const (
	FieldTemperature Field = "temperature"
	FieldPressure    Field = "pressure"
	FieldHumidity    Field = "humidity"
)

// ParseField validates a field name
func ParseField(name string) (Field, error) {
	switch f := Field(name); f {
	case FieldTemperature, FieldPressure, FieldHumidity:
		return f, nil
	default:
		return "", fmt.Errorf("%q: %w", name, ErrUnknownField)
	}
}

// Title returns the chart title for the field
func (f Field) Title() string {
	switch f {
	case FieldTemperature:
		return "Temperature graph"
	case FieldPressure:
		return "Pressure graph"
	case FieldHumidity:
		return "Humidity graph"
	default:
		return ""
	}
}

func (f Field) value(r models.Record) float64 {
	switch f {
	case FieldTemperature:
		return float64(r.Temperature)
	case FieldPressure:
		return float64(r.Pressure)
	default:
		return float64(r.Humidity)
	}
}

// Point is one plotted value, indexed by record position and labelled MM.YYYY
type Point struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Series returns one point per record for field
func (s RecordSet) Series(field Field) ([]Point, error) {
	if _, err := ParseField(string(field)); err != nil {
		return nil, err
	}
	points := make([]Point, len(s.records))
	for i, r := range s.records {
		points[i] = Point{
			Index: i,
			Value: field.value(r),
			Label: fmt.Sprintf("%02d.%02d", int(r.Month), r.Year),
		}
	}
	return points, nil
}

// Graph returns the points and title for a chart of field. Sets with fewer
// than MinGraphPoints records yield models.ErrNotEnoughData.
func (s RecordSet) Graph(field Field) ([]Point, string, error) {
	points, err := s.Series(field)
	if err != nil {
		return nil, "", err
	}
	if len(points) < MinGraphPoints {
		return nil, "", fmt.Errorf("graph of %d records: %w", len(points), models.ErrNotEnoughData)
	}
	return points, field.Title(), nil
}
