package parse

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNotNumeric is returned for input that is not a plain decimal number.
	ErrNotNumeric = errors.New("not a number")
	// ErrNegative is returned for numbers below zero.
	ErrNegative = errors.New("must not be negative")

	decimalRe  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	groupingRe = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d*)?$`)
)

// Decimal parses a free-text form value such as "3.5", " 120.00 " or "1,250.50".
// Blank input yields 0. Anything else that is not a finite decimal is an error,
// including exponents, hex, "NaN" and "Inf" which strconv would otherwise accept.
func Decimal(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	if groupingRe.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	if !decimalRe.MatchString(s) {
		return 0, fmt.Errorf("%q: %w", raw, ErrNotNumeric)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%q: %w", raw, ErrNotNumeric)
	}
	return v, nil
}

// NonNegativeDecimal is Decimal restricted to values >= 0.
func NonNegativeDecimal(raw string) (float64, error) {
	v, err := Decimal(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%q: %w", raw, ErrNegative)
	}
	return v, nil
}

// Money parses an amount, accepting a leading currency symbol, and rounds to cents.
func Money(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimPrefix(s, "£")
	v, err := NonNegativeDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", raw, errors.Unwrap(err))
	}
	return math.Round(v*100) / 100, nil
}
