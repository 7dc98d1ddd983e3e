package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"weather-workbench/internal/models"
	"weather-workbench/internal/records"
)

// FieldCount is the number of space separated tokens per record
const FieldCount = 7

// Field names in wire and column order
var FieldNames = [FieldCount]string{"year", "month", "day", "temperature", "pressure", "humidity", "wind_direction"}

// ErrTruncated is wrapped by a ParseError when the stream ends inside a record
var ErrTruncated = errors.New("stream ended inside a record")

// ParseError reports a token that could not be decoded.
// Record is the zero-based record index.
type ParseError struct {
	Record int
	Field  string
	Token  string
	Err    error
}

func (e *ParseError) Error() string {
	if errors.Is(e.Err, ErrTruncated) {
		return fmt.Sprintf("record %d: missing %s: %v", e.Record+1, e.Field, e.Err)
	}
	return fmt.Sprintf("record %d: invalid %s %q: %v", e.Record+1, e.Field, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsTransient returns false as malformed input does not heal on retry
func (e *ParseError) IsTransient() bool {
	return false
}

// Decode reads whitespace separated records until end of stream, seven tokens
// per record: year month day temperature pressure humidity wind_code.
// Line breaks carry no meaning. An unknown wind code decodes to Undefined.
func Decode(r io.Reader) (records.RecordSet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	var (
		set    records.RecordSet
		tokens = make([]string, 0, FieldCount)
	)
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
		if len(tokens) < FieldCount {
			continue
		}
		rec, err := parseRecord(set.Len(), tokens)
		if err != nil {
			return records.RecordSet{}, err
		}
		set.Append(rec)
		tokens = tokens[:0]
	}
	if err := scanner.Err(); err != nil {
		return records.RecordSet{}, fmt.Errorf("failed to read records: %w", err)
	}
	if len(tokens) > 0 {
		return records.RecordSet{}, &ParseError{
			Record: set.Len(),
			Field:  FieldNames[len(tokens)],
			Err:    ErrTruncated,
		}
	}
	return set, nil
}

// Encode writes one record per line with no trailing newline.
func Encode(w io.Writer, set records.RecordSet) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < set.Len(); i++ {
		if i > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString(strings.Join(formatRecord(set.At(i)), " "))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

// parseRecord decodes exactly FieldCount tokens for record index
func parseRecord(index int, tokens []string) (models.Record, error) {
	var (
		rec models.Record
		err error
	)

	fail := func(field int, err error) (models.Record, error) {
		return models.Record{}, &ParseError{Record: index, Field: FieldNames[field], Token: tokens[field], Err: err}
	}

	if rec.Year, err = strconv.Atoi(tokens[0]); err != nil {
		return fail(0, err)
	}
	month, err := strconv.Atoi(tokens[1])
	if err != nil {
		return fail(1, err)
	}
	rec.Month = models.Month(month)
	day, err := strconv.ParseUint(tokens[2], 10, 32)
	if err != nil {
		return fail(2, err)
	}
	rec.Day = uint(day)
	if rec.Temperature, err = strconv.Atoi(tokens[3]); err != nil {
		return fail(3, err)
	}
	pressure, err := strconv.ParseUint(tokens[4], 10, 32)
	if err != nil {
		return fail(4, err)
	}
	rec.Pressure = uint(pressure)
	if rec.Humidity, err = strconv.Atoi(tokens[5]); err != nil {
		return fail(5, err)
	}
	rec.WindDirection = models.ParseWindDirection(tokens[6])

	return rec, nil
}

func formatRecord(r models.Record) []string {
	return []string{
		strconv.Itoa(r.Year),
		strconv.Itoa(int(r.Month)),
		strconv.FormatUint(uint64(r.Day), 10),
		strconv.Itoa(r.Temperature),
		strconv.FormatUint(uint64(r.Pressure), 10),
		strconv.Itoa(r.Humidity),
		models.FormatWindDirection(r.WindDirection),
	}
}
