package extract

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/normalize"
)

// Matcher finds the raw value of one logical field in a document's text
type Matcher interface {
	Match(text string) (string, bool)
}

// Field is one entry of the profile cascade: matchers are tried in order and the
// first one that matches wins; Apply normalizes the raw value onto the profile.
// Apply returns an error when a value was present but could not be normalized;
// the profile keeps the default in that case.
type Field struct {
	Name     string
	Matchers []Matcher
	Apply    func(p *models.ClientProfile, raw string) error
}

// Resolve runs the cascade for f against text
func (f Field) Resolve(text string) (string, bool) {
	for _, m := range f.Matchers {
		if v, ok := m.Match(text); ok {
			return v, true
		}
	}
	return "", false
}

type quotedPair struct {
	re *regexp.Regexp
}

// QuotedPair matches the two-column rendering where label and value are each quoted:
//
//	"Annual Income:\n","$131,070\n"
//
// label is a regular expression fragment.
func QuotedPair(label string) Matcher {
	return quotedPair{re: regexp.MustCompile(`(?is)"\s*` + label + `\s*:?(?:\s|\\[nrt])*"\s*,\s*"(.*?)"`)}
}

func (m quotedPair) Match(text string) (string, bool) {
	sub := m.re.FindStringSubmatch(text)
	if sub == nil {
		return "", false
	}
	return sub[1], true
}

type labelValue struct {
	re *regexp.Regexp
}

// nextLabel marks where a loose value ends: another "Label:" on the same line, optionally after a pipe.
var nextLabel = regexp.MustCompile(`(?:^|\s)(?:\|\s*)?[A-Z][A-Za-z]*(?: [A-Z][A-Za-z]*)*:(?:\s|$)`)

// LabelValue matches the loose rendering "Label: value" where the value runs to the next
// label or the end of the line. A label followed by a line break takes the next line.
// The label must open a line or follow a pipe, a quote or a non-letter value, so "Address"
// does not match inside "Email Address:". label is a regular expression fragment.
func LabelValue(label string) Matcher {
	return labelValue{re: regexp.MustCompile(`(?im)(?:^|[|"]|[^A-Za-z \t][ \t]+)[ \t]*(?:` + label + `):[ \t]*(?:\r?\n[ \t]*)?([^\r\n]*)`)}
}

func (m labelValue) Match(text string) (string, bool) {
	sub := m.re.FindStringSubmatch(text)
	if sub == nil {
		return "", false
	}
	v := sub[1]
	if loc := nextLabel.FindStringIndex(v); loc != nil {
		v = v[:loc[0]]
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(v), "|")), true
}

// MalformedFieldError reports a matched value that failed normalization
type MalformedFieldError struct {
	Field string
	Raw   string
	Err   error
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed field %s %q: %v", e.Field, e.Raw, e.Err)
}

func (e *MalformedFieldError) Unwrap() error {
	return e.Err
}

func cascade(label string) []Matcher {
	return []Matcher{QuotedPair(label), LabelValue(label)}
}

func textField(name, label string, set func(p *models.ClientProfile, v string)) Field {
	return Field{
		Name:     name,
		Matchers: cascade(label),
		Apply: func(p *models.ClientProfile, raw string) error {
			if v, ok := normalize.ParseIdentifier(raw); ok {
				set(p, v)
			}
			return nil
		},
	}
}

func currencyField(name, label string, set func(p *models.ClientProfile, v float64)) Field {
	return Field{
		Name:     name,
		Matchers: cascade(label),
		Apply: func(p *models.ClientProfile, raw string) error {
			v, err := normalize.ParseCurrencyStrict(raw)
			switch {
			case err == nil:
				set(p, math.Max(v, 0))
			case errors.Is(err, normalize.ErrMissing):
			default:
				return &MalformedFieldError{Field: name, Raw: raw, Err: err}
			}
			return nil
		},
	}
}

// DefaultProfileFields returns the cascade for the known profile templates
func DefaultProfileFields() []Field {
	return []Field{
		textField("ssn", "SSN", func(p *models.ClientProfile, v string) { p.SSN = v }),
		textField("address", "Address", func(p *models.ClientProfile, v string) { p.Address = v }),
		textField("employment_status", "Employment(?: Status)?", func(p *models.ClientProfile, v string) { p.EmploymentStatus = v }),
		currencyField("annual_income", "Annual Income", func(p *models.ClientProfile, v float64) { p.AnnualIncome = v }),
		currencyField("loan_amount_requested", "Loan (?:Amount )?Requested", func(p *models.ClientProfile, v float64) { p.LoanAmountRequested = v }),
		currencyField("collateral_value", "Collateral Value", func(p *models.ClientProfile, v float64) { p.CollateralValue = v }),
		currencyField("alimony_payments_monthly", "Monthly Alimony", func(p *models.ClientProfile, v float64) { p.AlimonyPaymentsMonthly = v }),
		{
			Name:     "credit_score",
			Matchers: cascade("Credit Score"),
			Apply: func(p *models.ClientProfile, raw string) error {
				if v, ok := normalize.ParseIntegerScore(raw); ok {
					p.CreditScore = v
					return nil
				}
				if c := normalize.Clean(raw); !normalize.IsMissing(c) {
					return &MalformedFieldError{Field: "credit_score", Raw: raw, Err: normalize.ErrMalformed}
				}
				return nil
			},
		},
		{
			Name:     "sentiment_score",
			Matchers: []Matcher{QuotedPair("(?:Client )?Sentiment Score"), LabelValue(`(?:Client )?Sentiment Score[^:\r\n]*`)},
			Apply: func(p *models.ClientProfile, raw string) error {
				if v, ok := normalize.ParseSentiment(raw); ok {
					p.SentimentScore = v
					p.SentimentDisclosed = true
					return nil
				}
				if c := normalize.Clean(raw); !normalize.IsMissing(c) {
					return &MalformedFieldError{Field: "sentiment_score", Raw: raw, Err: normalize.ErrMalformed}
				}
				return nil
			},
		},
	}
}
