package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/Dan9191/loan-assessment/internal/middleware"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/repository"
	"github.com/Dan9191/loan-assessment/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput marks a request the caller must fix
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistenceDisabled is returned by lookups when no database is configured
	ErrPersistenceDisabled = errors.New("assessment persistence is disabled")
)

const listLimit = 100

// Store is the persistence the service needs
type Store interface {
	CreateReviewer(ctx context.Context, reviewer *models.Reviewer) error
	FindReviewerByEmail(ctx context.Context, email string) (*models.Reviewer, error)
	SaveAssessment(ctx context.Context, rec *repository.AssessmentRecord) error
	GetAssessment(ctx context.Context, id string) (*repository.AssessmentRecord, error)
	ListAssessmentsByClient(ctx context.Context, clientID string, limit int) ([]*repository.AssessmentRecord, error)
	ListAssessmentsByFingerprint(ctx context.Context, fingerprint string, limit int) ([]*repository.AssessmentRecord, error)
	DeleteAssessmentsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Assessor runs the assessment pipeline
type Assessor interface {
	Run(ctx context.Context, docs []models.Document) models.AssessmentResult
	RunPartitioned(ctx context.Context, docs []models.Document) ([]models.AssessmentResult, []models.Document)
}

// Notifier tells a reviewer about a finished assessment
type Notifier interface {
	SendAssessmentNotification(to string, res models.AssessmentResult) error
}

// Service handles business logic
type Service struct {
	store    Store
	assessor Assessor
	vault    *utils.Vault
	notifier Notifier
	log      logrus.FieldLogger
	config   *config.Config
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithStore enables persistence
func WithStore(store Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithNotifier enables reviewer notifications
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock overrides the time source used for tokens and retention
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService initializes a new service
func NewService(assessor Assessor, vault *utils.Vault, log logrus.FieldLogger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{assessor: assessor, vault: vault, log: log, config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new reviewer with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.Reviewer, error) {
	if s.store == nil {
		return nil, ErrPersistenceDisabled
	}
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidInput, email)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	reviewer := &models.Reviewer{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.store.CreateReviewer(ctx, reviewer); err != nil {
		return nil, err
	}

	s.log.Infof("Reviewer registered: %s", reviewer.Email)
	return reviewer, nil
}

// Login authenticates a reviewer and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if s.store == nil {
		return "", ErrPersistenceDisabled
	}
	reviewer, err := s.store.FindReviewerByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.WithError(err).Error("Reviewer lookup failed")
		}
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(reviewer.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", reviewer.ID),
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("Reviewer logged in: %s", reviewer.Email)
	return tokenString, nil
}

// Assess runs the pipeline over a single-client batch, stores the outcome and notifies the reviewer.
// A failed run is still a returned result; the error is reserved for storage failures.
func (s *Service) Assess(ctx context.Context, docs []models.Document) (models.AssessmentResult, error) {
	res := s.assessor.Run(ctx, docs)
	if err := s.persist(ctx, res); err != nil {
		return res, err
	}
	s.notify(res)
	return res, nil
}

// AssessPartitioned assesses a mixed batch per client. It returns the names of documents
// that could not be attributed to any client.
func (s *Service) AssessPartitioned(ctx context.Context, docs []models.Document) ([]models.AssessmentResult, []string, error) {
	results, unassigned := s.assessor.RunPartitioned(ctx, docs)
	for _, res := range results {
		if err := s.persist(ctx, res); err != nil {
			return results, nil, err
		}
		s.notify(res)
	}
	names := make([]string, len(unassigned))
	for i, d := range unassigned {
		names[i] = d.Name
	}
	return results, names, nil
}

// GetAssessment retrieves a stored assessment with the client SSN restored
func (s *Service) GetAssessment(ctx context.Context, id string) (models.AssessmentResult, error) {
	if s.store == nil {
		return models.AssessmentResult{}, ErrPersistenceDisabled
	}
	rec, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return models.AssessmentResult{}, err
	}
	return s.restore(rec), nil
}

// ListClientAssessments returns a client's stored assessments, newest first
func (s *Service) ListClientAssessments(ctx context.Context, clientID string) ([]models.AssessmentResult, error) {
	if s.store == nil {
		return nil, ErrPersistenceDisabled
	}
	recs, err := s.store.ListAssessmentsByClient(ctx, clientID, listLimit)
	if err != nil {
		return nil, err
	}
	return s.restoreAll(recs), nil
}

// FindAssessmentsBySSN returns stored assessments for the SSN without decrypting the table
func (s *Service) FindAssessmentsBySSN(ctx context.Context, ssn string) ([]models.AssessmentResult, error) {
	if s.store == nil {
		return nil, ErrPersistenceDisabled
	}
	if ssn == "" {
		return nil, fmt.Errorf("%w: ssn is required", ErrInvalidInput)
	}
	recs, err := s.store.ListAssessmentsByFingerprint(ctx, s.vault.Fingerprint(ssn), listLimit)
	if err != nil {
		return nil, err
	}
	return s.restoreAll(recs), nil
}

// PurgeExpired removes assessments older than the retention window
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	n, err := s.store.DeleteAssessmentsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"deleted": n, "cutoff": cutoff.Format(time.RFC3339)}).Info("Expired assessments purged")
	return n, nil
}

func (s *Service) persist(ctx context.Context, res models.AssessmentResult) error {
	if s.store == nil {
		return nil
	}
	rec := &repository.AssessmentRecord{Result: res}
	if id, ok := middleware.ReviewerID(ctx); ok {
		rec.ReviewerID = id
	}
	if ssn := res.Profile.SSN; ssn != "" {
		sealed, err := s.vault.Seal(ssn)
		if err != nil {
			return fmt.Errorf("failed to encrypt ssn: %w", err)
		}
		rec.SSNEncrypted = sealed
		rec.SSNFingerprint = s.vault.Fingerprint(ssn)
	}
	if err := s.store.SaveAssessment(ctx, rec); err != nil {
		return err
	}
	s.log.WithField("assessment_id", res.ID).Debug("Assessment stored")
	return nil
}

func (s *Service) notify(res models.AssessmentResult) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendAssessmentNotification(s.config.ReviewerEmail, res); err != nil {
		s.log.WithError(err).WithField("assessment_id", res.ID).Warn("Assessment notification not sent")
	}
}

func (s *Service) restore(rec *repository.AssessmentRecord) models.AssessmentResult {
	res := rec.Result
	if rec.SSNEncrypted == "" {
		return res
	}
	ssn, err := s.vault.Open(rec.SSNEncrypted)
	if err != nil {
		s.log.WithError(err).WithField("assessment_id", res.ID).Warn("Stored ssn could not be decrypted")
		return res
	}
	res.Profile.SSN = ssn
	return res
}

func (s *Service) restoreAll(recs []*repository.AssessmentRecord) []models.AssessmentResult {
	out := make([]models.AssessmentResult, len(recs))
	for i, rec := range recs {
		out[i] = s.restore(rec)
	}
	return out
}
