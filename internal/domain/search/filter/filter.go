// Package filter holds the search form state: four free-form fields and the buy/rent mode.
package filter

import (
	"strconv"
	"strings"

	"github.com/dealscout/dealscout/internal/domain/search/mode"
)

// Field names a debounced form field.
type Field string

// Form fields. Mode is not a Field: it is applied immediately.
const (
	Term     Field = "term"
	Zip      Field = "zip"
	MaxPrice Field = "max_price"
	Bedrooms Field = "bedrooms"
)

// IsValid reports whether f names a known form field.
func (f Field) IsValid() bool {
	return f == Term || f == Zip || f == MaxPrice || f == Bedrooms
}

// Filters is the raw form state. Numeric fields stay strings until the query is composed.
type Filters struct {
	Term     string
	Zip      string
	MaxPrice string
	Bedrooms string
	Mode     mode.Mode
}

// Default returns empty filters in buy mode.
func Default() Filters {
	return Filters{Mode: mode.Buy}
}

// Get returns the value of a form field.
func (f Filters) Get(field Field) string {
	switch field {
	case Term:
		return f.Term
	case Zip:
		return f.Zip
	case MaxPrice:
		return f.MaxPrice
	case Bedrooms:
		return f.Bedrooms
	default:
		return ""
	}
}

// With returns a copy of f with one form field replaced.
func (f Filters) With(field Field, value string) Filters {
	switch field {
	case Term:
		f.Term = value
	case Zip:
		f.Zip = value
	case MaxPrice:
		f.MaxPrice = value
	case Bedrooms:
		f.Bedrooms = value
	}
	return f
}

// MaxPriceValue parses the price cap. ok is false when the field is empty or not a number.
// A leading "$" and thousands separators are accepted.
func (f Filters) MaxPriceValue() (v float64, ok bool) {
	s := strings.TrimSpace(f.MaxPrice)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// BedroomsValue parses the minimum bedroom count. ok is false when empty or not an integer.
func (f Filters) BedroomsValue() (n int, ok bool) {
	s := strings.TrimSpace(f.Bedrooms)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
