// Package pipeline sequences extraction, aggregation and scoring into a single assessment run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loan-assessment/internal/analytics"
	"github.com/Dan9191/loan-assessment/internal/extract"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/scoring"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SentimentProvider supplies a sentiment score in [-1, 1] for a client whose documents carry none.
// ok is false when the provider has no opinion.
type SentimentProvider interface {
	Sentiment(ctx context.Context, profile models.ClientProfile, txs []models.TransactionRecord) (score float64, ok bool, err error)
}

// Runner executes the assessment pipeline. It holds only its injected collaborators,
// so one Runner can serve concurrent runs.
type Runner struct {
	extractor   *extract.Extractor
	aggregator  analytics.Aggregator
	scorer      *scoring.Scorer
	sentiment   SentimentProvider
	log         logrus.FieldLogger
	concurrency int
	now         func() time.Time
	newID       func() string
}

// Option configures a Runner
type Option func(*Runner)

// WithSentimentProvider attaches an external sentiment analyzer
func WithSentimentProvider(p SentimentProvider) Option {
	return func(r *Runner) {
		r.sentiment = p
	}
}

// WithConcurrency bounds the number of partitions assessed at once by RunPartitioned
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithIDGenerator overrides how assessment ids are minted
func WithIDGenerator(gen func() string) Option {
	return func(r *Runner) {
		r.newID = gen
	}
}

// NewRunner initializes a pipeline runner
func NewRunner(extractor *extract.Extractor, aggregator analytics.Aggregator, scorer *scoring.Scorer, log logrus.FieldLogger, opts ...Option) *Runner {
	r := &Runner{
		extractor:   extractor,
		aggregator:  aggregator,
		scorer:      scorer,
		log:         log,
		concurrency: 4,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run assesses a single-client batch. Batch-fatal conditions are reported through the
// result's Error and ErrorCode fields together with the log produced so far.
func (r *Runner) Run(ctx context.Context, docs []models.Document) models.AssessmentResult {
	res := models.AssessmentResult{
		ID:            r.newID(),
		DocumentCount: len(docs),
		CreatedAt:     r.now(),
	}
	logf := func(format string, args ...any) {
		res.PipelineLog = append(res.PipelineLog, fmt.Sprintf(format, args...))
	}
	log := r.log.WithField("assessment_id", res.ID)

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	logf("[STEP 1/3] Data received and initialized.")
	logf(" -> Processing %d documents: [%s]", len(docs), strings.Join(names, ", "))

	batch, err := r.extractor.ExtractBatch(docs)
	for _, d := range batch.Documents {
		logf(" -> %s", describeDocument(d))
	}
	if err != nil {
		r.fail(log, &res, err)
		return res
	}
	profile := batch.Profile
	res.ClientID = profile.ClientID
	logf(" -> Loan profile for client %s taken from %s.", profile.ClientID, batch.ProfileFrom)

	if !profile.SentimentDisclosed && r.sentiment != nil {
		score, ok, err := r.sentiment.Sentiment(ctx, profile, batch.Transactions)
		switch {
		case err != nil:
			log.WithError(err).Warn("Sentiment provider failed, using neutral score")
			logf(" -> Sentiment provider unavailable, neutral score used.")
		case ok:
			profile.SentimentScore = score
			logf(" -> Sentiment score %.2f supplied by external provider.", score)
		}
	}
	res.Profile = profile

	logf("[STEP 2/3] Running client validity analysis...")
	logf(" -> Analyzing 1 clients with %d transactions...", len(batch.Transactions))
	metrics := r.aggregator.Aggregate(profile, batch.Transactions, batch.Statements)
	assessment := r.scorer.Score(ctx, profile, metrics)
	logf(" -> Analysis complete.")

	res.Metrics = metrics
	res.RiskScore = assessment.RiskScore
	res.RiskFactors = assessment.Factors
	res.FraudRisk = assessment.FraudRisk
	res.Viability = assessment.Viability
	res.Approval = assessment.Approval
	res.Insights = assessment.Insights
	res.ModelSignal = assessment.ModelSignal
	logf("[STEP 3/3] Generating final report...")

	log.WithFields(logrus.Fields{
		"client_id":  res.ClientID,
		"risk_score": res.RiskScore,
		"approval":   res.Approval,
	}).Info("Assessment complete")
	return res
}

// RunPartitioned splits a batch by client id and assesses each partition concurrently.
// Documents that could not be attributed to a client are returned unprocessed.
func (r *Runner) RunPartitioned(ctx context.Context, docs []models.Document) ([]models.AssessmentResult, []models.Document) {
	parts, unassigned := extract.PartitionByClient(docs)
	if len(parts) == 0 {
		return []models.AssessmentResult{r.Run(ctx, docs)}, nil
	}

	results := make([]models.AssessmentResult, len(parts))
	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, part := range parts {
		i, part := i, part
		g.Go(func() error {
			results[i] = r.Run(ctx, part.Documents)
			return nil
		})
	}
	_ = g.Wait()

	if len(unassigned) > 0 {
		r.log.WithField("documents", len(unassigned)).Warn("Documents without client id left unassigned")
	}
	return results, unassigned
}

// fail records a batch-fatal error on res, including the closing log line
func (r *Runner) fail(log logrus.FieldLogger, res *models.AssessmentResult, err error) {
	var line string
	switch {
	case errors.Is(err, extract.ErrNoProfileExtracted):
		res.ErrorCode = models.ErrCodeNoProfile
		res.Error = "Could not parse a loan profile from the submitted documents. Please check the file format and content."
		line = "[ERROR] No loan profile data could be extracted."
	case errors.Is(err, extract.ErrAmbiguousClientBatch):
		res.ErrorCode = models.ErrCodeAmbiguousBatch
		res.Error = "The submitted documents describe more than one client. Submit one client per assessment."
		line = fmt.Sprintf("[ERROR] %v.", err)
	default:
		res.ErrorCode = models.ErrCodeInternal
		res.Error = err.Error()
		line = fmt.Sprintf("[ERROR] %v", err)
	}
	res.PipelineLog = append(res.PipelineLog, line)
	log.WithError(err).Warn("Assessment failed")
}

func describeDocument(d extract.DocumentResult) string {
	if !d.Recognized {
		return fmt.Sprintf("%s: unrecognized document, skipped.", d.Name)
	}
	var parts []string
	if d.Profile != nil {
		if d.Profile.ClientID == "" {
			parts = append(parts, "loan profile without client id")
		} else {
			parts = append(parts, fmt.Sprintf("loan profile for client %s", d.Profile.ClientID))
		}
	}
	if len(d.Transactions) > 0 || d.SkippedRows > 0 {
		parts = append(parts, fmt.Sprintf("%d transactions", len(d.Transactions)))
	}
	if d.SkippedRows > 0 {
		parts = append(parts, fmt.Sprintf("%d malformed rows skipped", d.SkippedRows))
	}
	if len(d.MalformedFields) > 0 {
		parts = append(parts, fmt.Sprintf("defaulted fields: %s", strings.Join(d.MalformedFields, ", ")))
	}
	if len(parts) == 0 {
		parts = append(parts, "no usable data")
	}
	return fmt.Sprintf("%s: %s.", d.Name, strings.Join(parts, ", "))
}
