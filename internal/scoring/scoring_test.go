package scoring

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Dan9191/loan-assessment/internal/analytics"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func score(t *testing.T, s *Scorer, p models.ClientProfile) Assessment {
	t.Helper()
	m := analytics.NewAggregator(60).Aggregate(p, nil, nil)
	return s.Score(context.Background(), p, m)
}

func TestScoreDeniedLowCreditNegativeSentiment(t *testing.T) {
	a := score(t, NewScorer(testLogger()), models.ClientProfile{
		ClientID:            "A",
		CreditScore:         612,
		AnnualIncome:        50000,
		LoanAmountRequested: 15000,
		SentimentScore:      -0.4,
	})

	assert.Equal(t, 55, a.RiskScore)
	assert.Equal(t, models.Denied, a.Approval)
	assert.Equal(t, models.FraudMedium, a.FraudRisk)
	assert.Equal(t, models.ViabilityLow, a.Viability)
	assert.Contains(t, a.Insights, "a low credit score")
	assert.Contains(t, a.Insights, "negative sentiment detected in documents")
	assert.Equal(t, "Client presents a higher risk due to a low credit score and negative sentiment detected in documents. Not recommended for approval at this time.", a.Insights)
}

func TestScoreApprovedStrongProfile(t *testing.T) {
	a := score(t, NewScorer(testLogger()), models.ClientProfile{
		ClientID:            "B",
		CreditScore:         780,
		AnnualIncome:        120000,
		LoanAmountRequested: 25000,
		SentimentScore:      0.5,
	})

	assert.Zero(t, a.RiskScore)
	assert.Equal(t, models.Approved, a.Approval)
	assert.Equal(t, models.ViabilityHigh, a.Viability)
	assert.Equal(t, models.FraudLow, a.FraudRisk)
	assert.Equal(t, approvedInsight, a.Insights)
	assert.Empty(t, a.Factors)
}

func TestScoreConditional(t *testing.T) {
	a := score(t, NewScorer(testLogger()), models.ClientProfile{
		CreditScore:  700,
		AnnualIncome: 40000,
	})

	assert.Equal(t, 25, a.RiskScore)
	assert.Equal(t, models.ConditionalApproval, a.Approval)
	assert.Equal(t, models.ViabilityMedium, a.Viability)
	assert.Equal(t, models.FraudLow, a.FraudRisk)
	assert.Equal(t, "Client has a fair profile but approval is conditional due to a fair credit score and a lower annual income. Further review is recommended.", a.Insights)
}

func TestEvaluateBoundaries(t *testing.T) {
	s := NewScorer(testLogger())
	base := Facts{CreditScore: 800, AnnualIncome: 100000}

	tests := []struct {
		name  string
		facts func(f Facts) Facts
		want  int
	}{
		{"clean", func(f Facts) Facts { return f }, 0},
		{"credit 649", func(f Facts) Facts { f.CreditScore = 649; return f }, 40},
		{"credit 650", func(f Facts) Facts { f.CreditScore = 650; return f }, 15},
		{"credit 739", func(f Facts) Facts { f.CreditScore = 739; return f }, 15},
		{"credit 740", func(f Facts) Facts { f.CreditScore = 740; return f }, 0},
		{"credit undisclosed", func(f Facts) Facts { f.CreditScore = 0; return f }, 40},
		{"dti 0.36", func(f Facts) Facts { f.DebtToIncomeRatio = 0.36; return f }, 0},
		{"dti 0.37", func(f Facts) Facts { f.DebtToIncomeRatio = 0.37; return f }, 20},
		{"dti 0.43", func(f Facts) Facts { f.DebtToIncomeRatio = 0.43; return f }, 20},
		{"dti 0.44", func(f Facts) Facts { f.DebtToIncomeRatio = 0.44; return f }, 40},
		{"income 44999", func(f Facts) Facts { f.AnnualIncome = 44999; return f }, 10},
		{"income 45000", func(f Facts) Facts { f.AnnualIncome = 45000; return f }, 0},
		{"neutral sentiment", func(f Facts) Facts { f.SentimentScore = 0; return f }, 0},
		{"negative sentiment", func(f Facts) Facts { f.SentimentScore = -0.01; return f }, 15},
		{"everything", func(f Facts) Facts {
			return Facts{CreditScore: 500, DebtToIncomeRatio: 1, AnnualIncome: 0, SentimentScore: -1}
		}, 105},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := s.Evaluate(tt.facts(base))
			assert.Equal(t, tt.want, got)
			if tt.want == 0 {
				assert.Empty(t, reasons)
			}
		})
	}
}

func TestRiskScoreMonotonicInCreditScore(t *testing.T) {
	s := NewScorer(testLogger())
	prev := -1
	for cs := 850; cs >= 300; cs-- {
		got, _ := s.Evaluate(Facts{CreditScore: cs, DebtToIncomeRatio: 0.4, AnnualIncome: 50000, SentimentScore: 0.2})
		assert.GreaterOrEqual(t, got, prev, "credit score %d", cs)
		prev = got
	}
}

func TestClassifyThresholds(t *testing.T) {
	assert.Equal(t, models.Approved, classify(20, nil).Approval)
	assert.Equal(t, models.ConditionalApproval, classify(21, []string{"x"}).Approval)
	assert.Equal(t, models.ConditionalApproval, classify(50, []string{"x"}).Approval)
	assert.Equal(t, models.Denied, classify(51, []string{"x"}).Approval)
}

type fakeModel struct {
	signal string
	err    error
}

func (f fakeModel) Signal(context.Context, models.ClientProfile, models.DerivedMetrics) (string, error) {
	return f.signal, f.err
}

func TestCreditModelSignalIsFoldedIntoInsights(t *testing.T) {
	p := models.ClientProfile{CreditScore: 800, AnnualIncome: 100000}
	a := score(t, NewScorer(testLogger(), WithCreditModel(fakeModel{signal: "approval probability 0.91"})), p)

	assert.Zero(t, a.RiskScore)
	assert.Equal(t, "approval probability 0.91", a.ModelSignal)
	assert.Equal(t, approvedInsight+" Credit model signal: approval probability 0.91", a.Insights)
}

func TestCreditModelErrorIsIgnored(t *testing.T) {
	p := models.ClientProfile{CreditScore: 800, AnnualIncome: 100000}
	a := score(t, NewScorer(testLogger(), WithCreditModel(fakeModel{err: errors.New("timeout")})), p)

	assert.Empty(t, a.ModelSignal)
	assert.Equal(t, approvedInsight, a.Insights)
}

func TestWithRulesReplacesTable(t *testing.T) {
	s := NewScorer(testLogger(), WithRules(Rule{
		Name: "always", Penalty: 60, Reason: "a flagged address",
		Applies: func(Facts) bool { return true },
	}))
	a := score(t, s, models.ClientProfile{CreditScore: 800, AnnualIncome: 100000})

	assert.Equal(t, models.Denied, a.Approval)
	assert.Equal(t, []string{"a flagged address"}, a.Factors)
}
