package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dan9191/loan-assessment/internal/analytics"
	"github.com/Dan9191/loan-assessment/internal/extract"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/scoring"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ortizProfile = `CLIENT LOAN & CREDIT PROFILE

Client Name: Ana Ortiz | Client ID: 77

LOAN & CREDIT PROFILE SUMMARY

Credit Score: 760
Annual Income: $90,000
Employment Status: Full-Time
Loan Requested: $12,000
`

type fakeSentiment struct {
	score  float64
	err    error
	called int
}

func (f *fakeSentiment) Sentiment(_ context.Context, _ models.ClientProfile, _ []models.TransactionRecord) (float64, bool, error) {
	f.called++
	if f.err != nil {
		return 0, false, f.err
	}
	return f.score, true, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func loadDoc(t *testing.T, name string) models.Document {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return models.Document{Name: name, Text: string(b)}
}

func newTestRunner(opts ...Option) *Runner {
	log := testLogger()
	fixed := time.Date(2025, 9, 26, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { return "test-id" }),
	}, opts...)
	return NewRunner(extract.NewExtractor(log), analytics.NewAggregator(0), scoring.NewScorer(log), log, opts...)
}

func TestRunFullBatch(t *testing.T) {
	res := newTestRunner().Run(context.Background(), []models.Document{
		loadDoc(t, "loan_profile_quoted.txt"),
		loadDoc(t, "bank_statement_quoted.txt"),
	})

	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, "test-id", res.ID)
	assert.Equal(t, "10", res.ClientID)
	assert.Equal(t, 2, res.DocumentCount)
	assert.Equal(t, "Samuel", res.Profile.FirstName)

	assert.Equal(t, 6, res.Metrics.TransactionCount)
	assert.InDelta(t, 1181.20, res.Metrics.TotalDebit, 0.001)
	assert.InDelta(t, 350.27, res.Metrics.TotalCredit, 0.001)
	assert.InDelta(t, 2644.67, res.Metrics.CurrentBalance, 0.001)

	assert.Equal(t, 30, res.RiskScore)
	assert.Equal(t, []string{"a fair credit score", "negative sentiment detected in documents"}, res.RiskFactors)
	assert.Equal(t, models.ConditionalApproval, res.Approval)
	assert.Equal(t, models.FraudLow, res.FraudRisk)
	assert.Equal(t, models.ViabilityMedium, res.Viability)

	assert.Equal(t, "[STEP 1/3] Data received and initialized.", res.PipelineLog[0])
	assert.Contains(t, res.PipelineLog, " -> Analyzing 1 clients with 6 transactions...")
	assert.Contains(t, res.PipelineLog, " -> Analysis complete.")
	assert.Equal(t, "[STEP 3/3] Generating final report...", res.PipelineLog[len(res.PipelineLog)-1])
}

func TestRunWithoutProfile(t *testing.T) {
	res := newTestRunner().Run(context.Background(), []models.Document{loadDoc(t, "bank_statement_quoted.txt")})

	require.True(t, res.Failed())
	assert.Equal(t, models.ErrCodeNoProfile, res.ErrorCode)
	assert.NotEmpty(t, res.Error)
	assert.Zero(t, res.RiskScore)
	assert.Equal(t, "[STEP 1/3] Data received and initialized.", res.PipelineLog[0])
	assert.Equal(t, "[ERROR] No loan profile data could be extracted.", res.PipelineLog[len(res.PipelineLog)-1])
	assert.NotContains(t, res.PipelineLog, "[STEP 2/3] Running client validity analysis...")
}

func TestRunEmptyBatch(t *testing.T) {
	res := newTestRunner().Run(context.Background(), nil)

	assert.Equal(t, models.ErrCodeNoProfile, res.ErrorCode)
	assert.Zero(t, res.DocumentCount)
}

func TestRunAmbiguousBatch(t *testing.T) {
	res := newTestRunner().Run(context.Background(), []models.Document{
		loadDoc(t, "loan_profile_quoted.txt"),
		{Name: "ortiz.txt", Text: ortizProfile},
	})

	require.True(t, res.Failed())
	assert.Equal(t, models.ErrCodeAmbiguousBatch, res.ErrorCode)
	assert.Empty(t, res.ClientID)
	require.NotEmpty(t, res.PipelineLog)
	assert.Equal(t, "[ERROR] batch contains profiles for more than one client: 10, 77.", res.PipelineLog[len(res.PipelineLog)-1])
}

func TestRunUnrecognizedDocumentIsLogged(t *testing.T) {
	res := newTestRunner().Run(context.Background(), []models.Document{
		{Name: "memo.txt", Text: "Quarterly memo, nothing to see here."},
		{Name: "ortiz.txt", Text: ortizProfile},
	})

	require.False(t, res.Failed())
	assert.Contains(t, res.PipelineLog, " -> memo.txt: unrecognized document, skipped.")
	assert.Equal(t, 2, res.DocumentCount)
}

func TestRunSentimentProvider(t *testing.T) {
	t.Run("used when documents carry no score", func(t *testing.T) {
		provider := &fakeSentiment{score: -0.4}
		res := newTestRunner(WithSentimentProvider(provider)).Run(context.Background(),
			[]models.Document{{Name: "ortiz.txt", Text: ortizProfile}})

		require.False(t, res.Failed())
		assert.Equal(t, 1, provider.called)
		assert.Equal(t, -0.4, res.Profile.SentimentScore)
		assert.Equal(t, 15, res.RiskScore)
		assert.Equal(t, models.Approved, res.Approval)
	})

	t.Run("skipped when documents disclose a score", func(t *testing.T) {
		provider := &fakeSentiment{score: 0.9}
		res := newTestRunner(WithSentimentProvider(provider)).Run(context.Background(),
			[]models.Document{loadDoc(t, "loan_profile_quoted.txt")})

		require.False(t, res.Failed())
		assert.Zero(t, provider.called)
		assert.Equal(t, -0.97, res.Profile.SentimentScore)
	})

	t.Run("failure falls back to neutral", func(t *testing.T) {
		provider := &fakeSentiment{err: errors.New("timeout")}
		res := newTestRunner(WithSentimentProvider(provider)).Run(context.Background(),
			[]models.Document{{Name: "ortiz.txt", Text: ortizProfile}})

		require.False(t, res.Failed())
		assert.Zero(t, res.Profile.SentimentScore)
		assert.Zero(t, res.RiskScore)
		assert.Equal(t, models.Approved, res.Approval)
		assert.Contains(t, res.PipelineLog, " -> Sentiment provider unavailable, neutral score used.")
	})
}

func TestRunPartitioned(t *testing.T) {
	memo := models.Document{Name: "memo.txt", Text: "TRANSACTION HISTORY\n2025-01-01  Cash Withdrawal  DEBIT  $10.00  $90.00\n"}
	results, unassigned := newTestRunner(WithConcurrency(2)).RunPartitioned(context.Background(), []models.Document{
		loadDoc(t, "loan_profile_quoted.txt"),
		{Name: "ortiz.txt", Text: ortizProfile},
		loadDoc(t, "bank_statement_quoted.txt"),
		memo,
	})

	require.Len(t, results, 2)
	assert.Equal(t, "10", results[0].ClientID)
	assert.Equal(t, 2, results[0].DocumentCount)
	assert.Equal(t, 6, results[0].Metrics.TransactionCount)
	assert.Equal(t, "77", results[1].ClientID)
	assert.Equal(t, 1, results[1].DocumentCount)
	assert.Zero(t, results[1].Metrics.TransactionCount)

	require.Len(t, unassigned, 1)
	assert.Equal(t, "memo.txt", unassigned[0].Name)
}

func TestRunPartitionedSingleClientKeepsUnlabeledDocuments(t *testing.T) {
	memo := models.Document{Name: "memo.txt", Text: "TRANSACTION HISTORY\n2025-01-01  Cash Withdrawal  DEBIT  $10.00  $90.00\n"}
	results, unassigned := newTestRunner().RunPartitioned(context.Background(), []models.Document{
		{Name: "ortiz.txt", Text: ortizProfile},
		memo,
	})

	require.Len(t, results, 1)
	assert.Empty(t, unassigned)
	assert.Equal(t, "77", results[0].ClientID)
	assert.Equal(t, 1, results[0].Metrics.TransactionCount)
}

func TestRunPartitionedWithoutClientIDs(t *testing.T) {
	results, unassigned := newTestRunner().RunPartitioned(context.Background(), []models.Document{
		{Name: "memo.txt", Text: "nothing"},
	})

	require.Len(t, results, 1)
	assert.Nil(t, unassigned)
	assert.Equal(t, models.ErrCodeNoProfile, results[0].ErrorCode)
}
