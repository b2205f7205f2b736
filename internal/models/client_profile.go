package models

// ClientProfile represents the static client and loan facts read from a profile document
type ClientProfile struct {
	ClientID               string  `json:"client_id" yaml:"client_id"`
	FirstName              string  `json:"first_name" yaml:"first_name"`
	LastName               string  `json:"last_name" yaml:"last_name"`
	SSN                    string  `json:"-" yaml:"-"` // PII, never serialized
	Address                string  `json:"address" yaml:"address"`
	AnnualIncome           float64 `json:"annual_income" yaml:"annual_income"`
	EmploymentStatus       string  `json:"employment_status" yaml:"employment_status"`
	CreditScore            int     `json:"credit_score" yaml:"credit_score"` // 0 when not disclosed
	LoanAmountRequested    float64 `json:"loan_amount_requested" yaml:"loan_amount_requested"`
	CollateralValue        float64 `json:"collateral_value" yaml:"collateral_value"` // 0 means no collateral disclosed
	AlimonyPaymentsMonthly float64 `json:"alimony_payments_monthly" yaml:"alimony_payments_monthly"`
	SentimentScore         float64 `json:"sentiment_score" yaml:"sentiment_score"`

	// SentimentDisclosed reports whether SentimentScore came from the document itself.
	SentimentDisclosed bool `json:"sentiment_disclosed" yaml:"sentiment_disclosed"`
}

// FullName joins first and last name, skipping empty parts
func (p ClientProfile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
