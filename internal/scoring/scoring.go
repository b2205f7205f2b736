// Package scoring applies the rule-based risk table to a client's normalized facts.
package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/sirupsen/logrus"
)

// Score thresholds, evaluated top-down
const (
	DeniedAbove      = 50
	ConditionalAbove = 20
)

const approvedInsight = "Client has an excellent credit history and a strong financial profile. Low risk for investment."

// Facts are the inputs the rule table looks at
type Facts struct {
	CreditScore       int
	DebtToIncomeRatio float64
	AnnualIncome      float64
	SentimentScore    float64
}

// Rule is one row of the risk table. Rules fire independently.
type Rule struct {
	Name    string
	Penalty int
	Reason  string
	Applies func(f Facts) bool
}

// DefaultRules returns the risk table
func DefaultRules() []Rule {
	return []Rule{
		{"low_credit_score", 40, "a low credit score", func(f Facts) bool { return f.CreditScore < 650 }},
		{"fair_credit_score", 15, "a fair credit score", func(f Facts) bool { return f.CreditScore >= 650 && f.CreditScore < 740 }},
		{"high_dti", 40, "a high debt-to-income ratio", func(f Facts) bool { return f.DebtToIncomeRatio > 0.43 }},
		{"moderate_dti", 20, "a moderate debt-to-income ratio", func(f Facts) bool { return f.DebtToIncomeRatio > 0.36 && f.DebtToIncomeRatio <= 0.43 }},
		{"low_income", 10, "a lower annual income", func(f Facts) bool { return f.AnnualIncome < 45000 }},
		{"negative_sentiment", 15, "negative sentiment detected in documents", func(f Facts) bool { return f.SentimentScore < 0 }},
	}
}

// CreditModel is an external approval-probability or credit model.
// Its signal is appended to the insights verbatim and never changes the risk score.
type CreditModel interface {
	Signal(ctx context.Context, profile models.ClientProfile, metrics models.DerivedMetrics) (string, error)
}

// Assessment is the categorical outcome of scoring one client
type Assessment struct {
	RiskScore   int
	Factors     []string
	FraudRisk   models.FraudRisk
	Viability   models.Viability
	Approval    models.Approval
	Insights    string
	ModelSignal string
}

// Scorer evaluates the risk table
type Scorer struct {
	rules []Rule
	model CreditModel
	log   logrus.FieldLogger
}

// Option configures a Scorer
type Option func(*Scorer)

// WithRules replaces the risk table
func WithRules(rules ...Rule) Option {
	return func(s *Scorer) {
		s.rules = rules
	}
}

// WithCreditModel attaches an external credit model
func WithCreditModel(m CreditModel) Option {
	return func(s *Scorer) {
		s.model = m
	}
}

// NewScorer initializes a scorer with the default risk table
func NewScorer(log logrus.FieldLogger, opts ...Option) *Scorer {
	s := &Scorer{rules: DefaultRules(), log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate runs every rule against f and returns the accumulated score with the reasons that fired
func (s *Scorer) Evaluate(f Facts) (int, []string) {
	score := 0
	reasons := []string{}
	for _, r := range s.rules {
		if r.Applies(f) {
			score += r.Penalty
			reasons = append(reasons, r.Reason)
		}
	}
	return score, reasons
}

// Score classifies a client. An undisclosed credit score is 0 and therefore lands in the lowest band.
func (s *Scorer) Score(ctx context.Context, profile models.ClientProfile, metrics models.DerivedMetrics) Assessment {
	score, reasons := s.Evaluate(Facts{
		CreditScore:       profile.CreditScore,
		DebtToIncomeRatio: metrics.DebtToIncomeRatio,
		AnnualIncome:      profile.AnnualIncome,
		SentimentScore:    profile.SentimentScore,
	})
	a := classify(score, reasons)

	if s.model != nil {
		signal, err := s.model.Signal(ctx, profile, metrics)
		if err != nil {
			s.log.WithError(err).WithField("client_id", profile.ClientID).Warn("Credit model unavailable, signal omitted")
		} else if signal = strings.TrimSpace(signal); signal != "" {
			a.ModelSignal = signal
			a.Insights = fmt.Sprintf("%s Credit model signal: %s", a.Insights, signal)
		}
	}
	return a
}

func classify(score int, reasons []string) Assessment {
	a := Assessment{RiskScore: score, Factors: reasons}
	joined := strings.Join(reasons, " and ")
	switch {
	case score > DeniedAbove:
		a.FraudRisk = models.FraudMedium
		a.Viability = models.ViabilityLow
		a.Approval = models.Denied
		a.Insights = fmt.Sprintf("Client presents a higher risk due to %s. Not recommended for approval at this time.", joined)
	case score > ConditionalAbove:
		a.FraudRisk = models.FraudLow
		a.Viability = models.ViabilityMedium
		a.Approval = models.ConditionalApproval
		a.Insights = fmt.Sprintf("Client has a fair profile but approval is conditional due to %s. Further review is recommended.", joined)
	default:
		a.FraudRisk = models.FraudLow
		a.Viability = models.ViabilityHigh
		a.Approval = models.Approved
		a.Insights = approvedInsight
	}
	return a
}
