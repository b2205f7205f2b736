package models

// DerivedMetrics represents the ratios and activity totals computed for one client
type DerivedMetrics struct {
	MonthlyIncome        float64           `json:"monthly_income" yaml:"monthly_income"`
	EstimatedLoanPayment float64           `json:"estimated_loan_payment" yaml:"estimated_loan_payment"`
	LoanToIncome         float64           `json:"loan_to_income" yaml:"loan_to_income"`
	CurrentBalance       float64           `json:"current_balance" yaml:"current_balance"`
	BalanceToCollateral  float64           `json:"balance_to_collateral" yaml:"balance_to_collateral"`
	DebtToIncomeRatio    float64           `json:"debt_to_income_ratio" yaml:"debt_to_income_ratio"`
	TotalDebit           float64           `json:"total_debit" yaml:"total_debit"`
	TotalCredit          float64           `json:"total_credit" yaml:"total_credit"`
	TransactionCount     int               `json:"transaction_count" yaml:"transaction_count"`
	MonthlyActivity      []MonthlyActivity `json:"monthly_activity" yaml:"monthly_activity"`
}

// MonthlyActivity represents credit and debit totals for one calendar month
type MonthlyActivity struct {
	Month  string  `json:"month" yaml:"month"` // Format: YYYY-MM
	Credit float64 `json:"credit" yaml:"credit"`
	Debit  float64 `json:"debit" yaml:"debit"`
}
