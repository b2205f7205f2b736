// Package analytics derives financial ratios and transaction activity for a client.
package analytics

import (
	"math"
	"sort"

	"github.com/Dan9191/loan-assessment/internal/models"
)

// DefaultTermMonths is the loan term assumed when estimating the monthly payment on the new loan
const DefaultTermMonths = 60

// Aggregator computes DerivedMetrics. It holds no state beyond its configuration.
type Aggregator struct {
	termMonths int
}

// NewAggregator initializes an aggregator. A non-positive term falls back to DefaultTermMonths.
func NewAggregator(termMonths int) Aggregator {
	if termMonths <= 0 {
		termMonths = DefaultTermMonths
	}
	return Aggregator{termMonths: termMonths}
}

// TermMonths returns the configured loan term
func (a Aggregator) TermMonths() int {
	return a.termMonths
}

// Aggregate merges profile and transactions by client id and derives the ratios.
// The +1 denominators are intentional approximations and avoid division by zero.
// statements may be nil; the closing balance of the client's last statement is used
// as the current balance when no transaction carries one.
func (a Aggregator) Aggregate(profile models.ClientProfile, txs []models.TransactionRecord, statements []models.StatementSummary) models.DerivedMetrics {
	own := make([]models.TransactionRecord, 0, len(txs))
	for _, tx := range txs {
		if tx.ClientID == profile.ClientID {
			own = append(own, tx)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Date.Before(own[j].Date)
	})

	m := models.DerivedMetrics{
		MonthlyIncome:        math.Max(profile.AnnualIncome/12, 1),
		EstimatedLoanPayment: profile.LoanAmountRequested / float64(a.termMonths),
		LoanToIncome:         profile.LoanAmountRequested / (profile.AnnualIncome + 1),
		TransactionCount:     len(own),
		MonthlyActivity:      []models.MonthlyActivity{},
	}
	m.DebtToIncomeRatio = (m.EstimatedLoanPayment + profile.AlimonyPaymentsMonthly) / m.MonthlyIncome

	byMonth := make(map[string]*models.MonthlyActivity)
	for _, tx := range own {
		month := tx.Date.Format("2006-01")
		act, ok := byMonth[month]
		if !ok {
			act = &models.MonthlyActivity{Month: month}
			byMonth[month] = act
		}
		switch tx.Type {
		case models.Debit:
			m.TotalDebit += tx.Amount
			act.Debit += tx.Amount
		case models.Credit:
			m.TotalCredit += tx.Amount
			act.Credit += tx.Amount
		}
	}
	for _, act := range byMonth {
		m.MonthlyActivity = append(m.MonthlyActivity, *act)
	}
	sort.Slice(m.MonthlyActivity, func(i, j int) bool {
		return m.MonthlyActivity[i].Month < m.MonthlyActivity[j].Month
	})

	if len(own) > 0 {
		m.CurrentBalance = own[len(own)-1].Balance
	} else {
		for i := len(statements) - 1; i >= 0; i-- {
			if statements[i].ClientID == profile.ClientID {
				m.CurrentBalance = statements[i].ClosingBalance
				break
			}
		}
	}
	m.BalanceToCollateral = m.CurrentBalance / (profile.CollateralValue + 1)
	return m
}
