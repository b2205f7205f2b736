// Package normalize converts raw substrings captured from document text into typed values.
//
// Monetary helpers fail soft: a value that is missing or cannot be read becomes 0.0 so that an
// undisclosed fact is scored as absence. Identifier and score helpers report absence explicitly
// so callers can tell "not disclosed" from "disclosed as empty".
package normalize

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissing is returned when the source value is N/A or empty
	ErrMissing = errors.New("value not disclosed")
	// ErrMalformed is returned when the source value cannot be coerced
	ErrMalformed = errors.New("malformed value")
)

var (
	currencySymbols = strings.NewReplacer("$", "", "€", "", "£", "", `\`, "", " ", "")
	leadingNumber   = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?`)
	anyNumber       = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

// Clean removes stray quoting and escape residue (literal \n, \r, \t) and collapses whitespace
func Clean(raw string) string {
	s := strings.NewReplacer(`\n`, " ", `\r`, " ", `\t`, " ", `"`, "").Replace(raw)
	return strings.Join(strings.Fields(s), " ")
}

// IsMissing reports whether a cleaned value stands for "not disclosed"
func IsMissing(cleaned string) bool {
	switch strings.ToLower(cleaned) {
	case "", "n/a", "na", "none", "null", "-":
		return true
	}
	return false
}

// ParseCurrencyStrict parses a currency literal such as "$1,234.50", "(200.00)" or "$(5.00)".
// Parenthesized values are negative wherever the currency symbol sits.
func ParseCurrencyStrict(raw string) (float64, error) {
	s := Clean(raw)
	if IsMissing(s) {
		return 0, ErrMissing
	}
	s = currencySymbols.Replace(s)
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if negative {
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	if negative {
		d = d.Neg()
	}
	f, _ := d.Float64()
	return f, nil
}

// ParseCurrency is ParseCurrencyStrict with the fail-soft policy: any failure yields 0.0
func ParseCurrency(raw string) float64 {
	v, err := ParseCurrencyStrict(raw)
	if err != nil {
		return 0
	}
	return v
}

// ParseIdentifier strips quoting and whitespace. ok is false when the value is not disclosed.
func ParseIdentifier(raw string) (string, bool) {
	s := Clean(raw)
	if IsMissing(s) {
		return "", false
	}
	return s, true
}

// ParseIntegerScore coerces a numeric-looking value such as "663" or "663 (Fair)" to an int.
// ok is false for missing or non-numeric input.
func ParseIntegerScore(raw string) (int, bool) {
	s := strings.ReplaceAll(Clean(raw), ",", "")
	if IsMissing(s) {
		return 0, false
	}
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

// ParseSentiment reads the first signed decimal in raw, e.g. "-0.97 (Very Negative ...)"
func ParseSentiment(raw string) (float64, bool) {
	s := Clean(raw)
	if IsMissing(s) {
		return 0, false
	}
	m := anyNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseDate parses a statement date in one of the known layouts
func ParseDate(raw string) (time.Time, error) {
	s := Clean(raw)
	if IsMissing(s) {
		return time.Time{}, ErrMissing
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformed, raw)
}
