package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so messages match the table columns
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldConstraints = map[string]string{
	"month":          "must be between 1 and 12",
	"day":            "must be between 1 and 31",
	"pressure":       "must be greater than 0",
	"humidity":       "must be between 0 and 100",
	"wind_direction": "must be one of N, S, E, W, NE, NW, SE, SW",
}

// IsValid reports whether the record satisfies the validity invariant
func (r Record) IsValid() bool {
	return r.Validate() == nil
}

// Validate returns a *ValidationError describing the first violated constraint
func (r Record) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate record: %w", err)
	}

	fe := fieldErrs[0]
	// every validated field is an integer kind
	value := fmt.Sprintf("%d", fe.Value())
	if fe.Field() == "wind_direction" {
		value = FormatWindDirection(r.WindDirection)
	}

	return &ValidationError{
		Row:     -1,
		Field:   fe.Field(),
		Value:   value,
		Message: fieldConstraints[fe.Field()],
	}
}
