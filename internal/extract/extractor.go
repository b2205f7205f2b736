// Package extract turns the text of loan profile and bank statement documents into typed
// client and transaction records.
package extract

import (
	"regexp"
	"strings"

	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/normalize"
	"github.com/sirupsen/logrus"
)

// Marker phrases used to sniff document content
const (
	ProfileMarker     = "LOAN & CREDIT PROFILE SUMMARY"
	TransactionMarker = "TRANSACTION HISTORY"
)

var (
	profileMarkerPattern     = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(ProfileMarker))
	transactionMarkerPattern = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(TransactionMarker))

	clientIDPattern  = regexp.MustCompile(`(?i)Client ID:\s*"?\s*([A-Za-z0-9][A-Za-z0-9_-]*)`)
	splitNamePattern = regexp.MustCompile(`Client Name:\s*(\w+)\s+(\w+)\s*\|`)
	fullNamePattern  = regexp.MustCompile(`Client Name:\s*([^|\r\n]*)`)
)

// DocumentResult is what a single document contributed
type DocumentResult struct {
	Name            string
	ClientID        string // empty when the document carries no Client ID
	Recognized      bool
	Profile         *models.ClientProfile
	Transactions    []models.TransactionRecord
	Statement       *models.StatementSummary
	SkippedRows     int
	MalformedFields []string
}

// Extractor applies the field cascades to document text
type Extractor struct {
	log    logrus.FieldLogger
	fields []Field
}

// Option configures an Extractor
type Option func(*Extractor)

// WithProfileFields replaces the profile cascade, e.g. to support a new document template
func WithProfileFields(fields ...Field) Option {
	return func(e *Extractor) {
		e.fields = fields
	}
}

// NewExtractor initializes an extractor with the default profile cascade
func NewExtractor(log logrus.FieldLogger, opts ...Option) *Extractor {
	e := &Extractor{log: log, fields: DefaultProfileFields()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ClientID returns the identifier printed after the first "Client ID:" marker
func ClientID(text string) (string, bool) {
	m := clientIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return normalize.ParseIdentifier(m[1])
}

// Extract reads one document. Documents with neither marker phrase yield an empty,
// unrecognized result.
func (e *Extractor) Extract(doc models.Document) DocumentResult {
	log := e.log.WithField("document", doc.Name)
	res := DocumentResult{Name: doc.Name}
	res.ClientID, _ = ClientID(doc.Text)

	hasProfile := profileMarkerPattern.MatchString(doc.Text)
	txLoc := transactionMarkerPattern.FindStringIndex(doc.Text)
	hasTransactions := txLoc != nil
	if !hasProfile && !hasTransactions {
		log.Info("Unrecognized document skipped")
		return res
	}
	res.Recognized = true

	if hasProfile {
		profile, malformed := e.extractProfile(doc.Text, res.ClientID)
		for _, err := range malformed {
			log.WithError(err).Warn("Malformed profile field defaulted")
			res.MalformedFields = append(res.MalformedFields, err.Field)
		}
		res.Profile = &profile
	}

	if hasTransactions {
		section := doc.Text[txLoc[1]:]
		rows, skipped := parseTransactions(section, log)
		for i := range rows {
			rows[i].ClientID = res.ClientID
		}
		res.Transactions = rows
		res.SkippedRows = skipped
		res.Statement = parseStatementSummary(section, res.ClientID)
	}

	log.WithFields(logrus.Fields{
		"client_id":    res.ClientID,
		"profile":      res.Profile != nil,
		"transactions": len(res.Transactions),
		"skipped_rows": res.SkippedRows,
	}).Debug("Document extracted")
	return res
}

func (e *Extractor) extractProfile(text, clientID string) (models.ClientProfile, []*MalformedFieldError) {
	p := models.ClientProfile{ClientID: clientID}
	p.FirstName, p.LastName = parseName(text)

	var malformed []*MalformedFieldError
	for _, f := range e.fields {
		raw, ok := f.Resolve(text)
		if !ok {
			continue
		}
		if err := f.Apply(&p, raw); err != nil {
			if mf, ok := err.(*MalformedFieldError); ok {
				malformed = append(malformed, mf)
				continue
			}
			malformed = append(malformed, &MalformedFieldError{Field: f.Name, Raw: raw, Err: err})
		}
	}
	return p, malformed
}

// parseName splits "Client Name: First Last | ..." and falls back to the first and last
// token of whatever precedes the pipe.
func parseName(text string) (string, string) {
	if m := splitNamePattern.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}
	m := fullNamePattern.FindStringSubmatch(text)
	if m == nil {
		return "", ""
	}
	parts := strings.Fields(normalize.Clean(m[1]))
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], parts[len(parts)-1]
}
