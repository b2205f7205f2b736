package extract

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/normalize"
	"github.com/sirupsen/logrus"
)

const rowDate = `(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4})`

var (
	lineRow        = regexp.MustCompile(`(?i)^\s*` + rowDate + `\s+(.+?)\s+(DEBIT|CREDIT)\s+(\S+)\s+(\S+)\s*$`)
	datedLine      = regexp.MustCompile(`^\s*` + rowDate + `\b`)
	quotedCell     = regexp.MustCompile(`"([^"]*)"`)
	openingBalance = regexp.MustCompile(`(?i)Opening Balance:\s*([^|\r\n]+)`)
	closingBalance = regexp.MustCompile(`(?i)Closing Balance:\s*([^|\r\n]+)`)
)

// parseTransactions scans the text following the transaction marker for
// date, description, type, amount, balance rows in either the quoted table
// rendering or the whitespace-separated line rendering. Rows that do not fit
// are counted and skipped.
func parseTransactions(section string, log logrus.FieldLogger) ([]models.TransactionRecord, int) {
	var records []models.TransactionRecord
	seen := make(map[string]struct{})
	skipped := 0

	add := func(fields []string) {
		rec, err := toRecord(fields)
		if err != nil {
			skipped++
			log.WithError(err).Warn("Malformed transaction row skipped")
			return
		}
		key := fmt.Sprintf("%s|%s|%s|%g|%g", rec.Date.Format("2006-01-02"), rec.Description, rec.Type, rec.Amount, rec.Balance)
		if _, dup := seen[key]; dup {
			log.WithField("row", key).Debug("Duplicate transaction row dropped")
			return
		}
		seen[key] = struct{}{}
		records = append(records, rec)
	}

	for _, row := range quotedRows(section) {
		if strings.EqualFold(normalize.Clean(row[0]), "Date") {
			continue
		}
		if len(row) != 5 {
			if datedLine.MatchString(normalize.Clean(row[0])) {
				skipped++
				log.WithField("cells", len(row)).Warn("Malformed transaction row skipped")
			}
			continue
		}
		add(row)
	}

	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(line), `"`) {
			continue
		}
		m := lineRow.FindStringSubmatch(line)
		if m == nil {
			if datedLine.MatchString(line) {
				skipped++
				log.WithField("line", line).Warn("Malformed transaction row skipped")
			}
			continue
		}
		add(m[1:])
	}
	return records, skipped
}

// quotedRows groups consecutive quoted cells joined by commas into rows
func quotedRows(section string) [][]string {
	var rows [][]string
	var cur []string
	prevEnd := -1
	for _, loc := range quotedCell.FindAllStringSubmatchIndex(section, -1) {
		if prevEnd >= 0 && strings.TrimSpace(section[prevEnd:loc[0]]) != "," {
			rows = append(rows, cur)
			cur = nil
		}
		cur = append(cur, section[loc[2]:loc[3]])
		prevEnd = loc[1]
	}
	if len(cur) > 0 {
		rows = append(rows, cur)
	}
	return rows
}

func toRecord(f []string) (models.TransactionRecord, error) {
	date, err := normalize.ParseDate(f[0])
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	typ := models.TransactionType(strings.ToUpper(normalize.Clean(f[2])))
	if typ != models.Debit && typ != models.Credit {
		return models.TransactionRecord{}, fmt.Errorf("%w: type %q", ErrMalformedRow, f[2])
	}
	amount, err := normalize.ParseCurrencyStrict(f[3])
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("%w: amount: %v", ErrMalformedRow, err)
	}
	balance, err := normalize.ParseCurrencyStrict(f[4])
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("%w: balance: %v", ErrMalformedRow, err)
	}
	if balance < 0 {
		return models.TransactionRecord{}, fmt.Errorf("%w: negative balance %q", ErrMalformedRow, f[4])
	}
	return models.TransactionRecord{
		Date:        date,
		Description: normalize.Clean(f[1]),
		Type:        typ,
		Amount:      math.Abs(amount),
		Balance:     balance,
	}, nil
}

func parseStatementSummary(section, clientID string) *models.StatementSummary {
	open := openingBalance.FindStringSubmatch(section)
	closing := closingBalance.FindStringSubmatch(section)
	if open == nil && closing == nil {
		return nil
	}
	s := &models.StatementSummary{ClientID: clientID}
	if open != nil {
		s.OpeningBalance = normalize.ParseCurrency(open[1])
	}
	if closing != nil {
		s.ClosingBalance = normalize.ParseCurrency(closing[1])
	}
	return s
}
