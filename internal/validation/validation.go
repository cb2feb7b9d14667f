// Package validation checks operator input before it reaches the
// geometry and broadcast layers: message content against cell-broadcast
// length rules, coordinates and radii against precision rules, and
// postcodes against the UK format.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alertarea/alertarea/pkg/gsm7"
)

// Content length limits on the air interface. GSM-7 messages carry
// 1,395 septets; anything outside the default alphabet is sent as
// UCS-2 and halves the budget.
const (
	MaxContentLengthGSM7 = 1395
	MaxContentLengthUCS2 = 615
)

// Decimal-place limits on operator-entered numbers.
const (
	MaxCoordinateDecimals = 6
	MaxRadiusDecimals     = 2
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

var (
	placeholderPattern = regexp.MustCompile(`\(\(.*?\)\)`)

	// postcodePattern matches canonicalised UK postcodes, outward code
	// then a space then the inward code.
	postcodePattern = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]? [0-9][A-Z]{2}$`)
)

// ValidateContent checks a broadcast message body. Content must be
// literal (no ((placeholder)) syntax) and fit the length budget of
// whichever alphabet it needs.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "content", Reason: "enter a message"}
	}
	if placeholderPattern.MatchString(content) {
		return &ValidationError{Field: "content", Reason: "cannot contain placeholders"}
	}

	if gsm7.Compatible(content) {
		if n := gsm7.Length(content); n > MaxContentLengthGSM7 {
			return &ValidationError{
				Field:  "content",
				Reason: fmt.Sprintf("must be %d characters or fewer, not %d", MaxContentLengthGSM7, n),
			}
		}
		return nil
	}

	if n := utf8.RuneCountInString(content); n > MaxContentLengthUCS2 {
		return &ValidationError{
			Field:  "content",
			Reason: fmt.Sprintf("must be %d characters or fewer, not %d", MaxContentLengthUCS2, n),
		}
	}
	return nil
}

// ParseLatitude parses a latitude with at most six decimal places.
func ParseLatitude(s string) (float64, error) {
	v, err := parseDecimal(s, "latitude", MaxCoordinateDecimals)
	if err != nil {
		return 0, err
	}
	if v < -90 || v > 90 {
		return 0, &ValidationError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	return v, nil
}

// ParseLongitude parses a longitude with at most six decimal places.
func ParseLongitude(s string) (float64, error) {
	v, err := parseDecimal(s, "longitude", MaxCoordinateDecimals)
	if err != nil {
		return 0, err
	}
	if v < -180 || v > 180 {
		return 0, &ValidationError{Field: "longitude", Reason: "must be between -180 and 180"}
	}
	return v, nil
}

// ParseRadiusKm parses a radius with at most two decimal places. Range
// bounds are applied by the custom-area builder, which owns the
// deployment-specific maximum.
func ParseRadiusKm(s string) (float64, error) {
	v, err := parseDecimal(s, "radius", MaxRadiusDecimals)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, &ValidationError{Field: "radius", Reason: "must be greater than zero"}
	}
	return v, nil
}

// ParseEastingNorthing parses a British National Grid coordinate pair.
func ParseEastingNorthing(easting, northing string) (float64, float64, error) {
	e, err := parseDecimal(easting, "easting", MaxCoordinateDecimals)
	if err != nil {
		return 0, 0, err
	}
	n, err := parseDecimal(northing, "northing", MaxCoordinateDecimals)
	if err != nil {
		return 0, 0, err
	}
	return e, n, nil
}

// parseDecimal rejects non-numeric text, exponent notation and excess
// decimal places.
func parseDecimal(s, field string, maxPlaces int) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: field, Reason: "enter a number"}
	}
	if strings.ContainsAny(s, "eE") {
		return 0, &ValidationError{Field: field, Reason: "must be a plain decimal number"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be a number"}
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > maxPlaces {
		return 0, &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("must have %d decimal places or fewer", maxPlaces),
		}
	}
	return v, nil
}

// CanonicalPostcode uppercases a postcode and normalises it to a
// single space before the inward code, rejecting anything that does
// not match the UK format.
func CanonicalPostcode(s string) (string, error) {
	compact := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if len(compact) < 5 || len(compact) > 7 {
		return "", &ValidationError{Field: "postcode", Reason: "enter a full UK postcode"}
	}

	canonical := compact[:len(compact)-3] + " " + compact[len(compact)-3:]
	if !postcodePattern.MatchString(canonical) {
		return "", &ValidationError{Field: "postcode", Reason: "enter a full UK postcode"}
	}
	return canonical, nil
}
