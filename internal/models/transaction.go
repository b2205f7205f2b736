package models

import "time"

// TransactionType is the direction of a ledger entry
type TransactionType string

const (
	Debit  TransactionType = "DEBIT"
	Credit TransactionType = "CREDIT"
)

// TransactionRecord represents one row of a statement's transaction history.
// Amount is always a magnitude, the sign is carried by Type.
type TransactionRecord struct {
	ClientID    string          `json:"client_id" yaml:"client_id"` // empty until resolved
	Date        time.Time       `json:"date" yaml:"date"`
	Description string          `json:"description" yaml:"description"`
	Type        TransactionType `json:"type" yaml:"type"`
	Amount      float64         `json:"amount" yaml:"amount"`
	Balance     float64         `json:"balance" yaml:"balance"`
}

// Resolved reports whether the record has been tagged with a client
func (t TransactionRecord) Resolved() bool {
	return t.ClientID != ""
}

// StatementSummary holds the balance header printed above a transaction history
type StatementSummary struct {
	ClientID       string  `json:"client_id" yaml:"client_id"`
	OpeningBalance float64 `json:"opening_balance" yaml:"opening_balance"`
	ClosingBalance float64 `json:"closing_balance" yaml:"closing_balance"`
}
