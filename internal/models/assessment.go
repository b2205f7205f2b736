package models

import "time"

// FraudRisk is the categorical fraud flag of an assessment
type FraudRisk string

// Viability is the categorical investment viability of an assessment
type Viability string

// Approval is the recommendation produced for the requested loan
type Approval string

const (
	FraudLow    FraudRisk = "Low"
	FraudMedium FraudRisk = "Medium"

	ViabilityLow    Viability = "Low"
	ViabilityMedium Viability = "Medium"
	ViabilityHigh   Viability = "High"

	Approved            Approval = "Approved"
	ConditionalApproval Approval = "Conditional Approval"
	Denied              Approval = "Denied"
)

// Error codes carried by a failed AssessmentResult
const (
	ErrCodeNoProfile      = "no_profile_extracted"
	ErrCodeAmbiguousBatch = "ambiguous_client_batch"
	ErrCodeInternal       = "internal"
)

// AssessmentResult is the terminal output of one pipeline run.
// A failed run carries Error and ErrorCode together with the log produced so far;
// callers check Failed rather than relying on a returned error.
type AssessmentResult struct {
	ID            string         `json:"id" yaml:"id"`
	ClientID      string         `json:"client_id" yaml:"client_id"`
	Profile       ClientProfile  `json:"profile" yaml:"profile"`
	Metrics       DerivedMetrics `json:"metrics" yaml:"metrics"`
	RiskScore     int            `json:"risk_score" yaml:"risk_score"`
	FraudRisk     FraudRisk      `json:"fraud_risk" yaml:"fraud_risk"`
	Viability     Viability      `json:"viability" yaml:"viability"`
	Approval      Approval       `json:"approval" yaml:"approval"`
	RiskFactors   []string       `json:"risk_factors" yaml:"risk_factors"`
	Insights      string         `json:"insights" yaml:"insights"`
	ModelSignal   string         `json:"model_signal,omitempty" yaml:"model_signal,omitempty"`
	DocumentCount int            `json:"document_count" yaml:"document_count"`
	PipelineLog   []string       `json:"pipeline_log" yaml:"pipeline_log"`
	Error         string         `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorCode     string         `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	CreatedAt     time.Time      `json:"created_at" yaml:"created_at"`
}

// Failed reports whether the run ended without an assessment
func (r AssessmentResult) Failed() bool {
	return r.Error != ""
}
