package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/loan-assessment/internal/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// AssessmentRecord is an assessment as stored: the result document plus the sealed SSN
type AssessmentRecord struct {
	Result         models.AssessmentResult
	ReviewerID     int64
	SSNEncrypted   string
	SSNFingerprint string
}

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateReviewer creates a new reviewer in the database
func (r *Repository) CreateReviewer(ctx context.Context, reviewer *models.Reviewer) error {
	query := `
		INSERT INTO loans.reviewers (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, reviewer.Username, reviewer.Email, reviewer.PasswordHash).
		Scan(&reviewer.ID, &reviewer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reviewer: %w", err)
	}
	return nil
}

// FindReviewerByEmail retrieves a reviewer by email
func (r *Repository) FindReviewerByEmail(ctx context.Context, email string) (*models.Reviewer, error) {
	reviewer := &models.Reviewer{}
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM loans.reviewers
		WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&reviewer.ID, &reviewer.Username, &reviewer.Email, &reviewer.PasswordHash, &reviewer.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reviewer %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reviewer: %w", err)
	}
	return reviewer, nil
}

// SaveAssessment stores an assessment. The result document goes into a JSONB column;
// the columns used for filtering are denormalized next to it.
func (r *Repository) SaveAssessment(ctx context.Context, rec *AssessmentRecord) error {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}
	query := `
		INSERT INTO loans.assessments
			(id, client_id, reviewer_id, approval, risk_score, error_code, ssn_encrypted, ssn_fingerprint, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.ExecContext(ctx, query,
		rec.Result.ID,
		rec.Result.ClientID,
		nullInt64(rec.ReviewerID),
		string(rec.Result.Approval),
		rec.Result.RiskScore,
		rec.Result.ErrorCode,
		nullString(rec.SSNEncrypted),
		nullString(rec.SSNFingerprint),
		payload,
		rec.Result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment %s: %w", rec.Result.ID, err)
	}
	return nil
}

// GetAssessment retrieves an assessment by id
func (r *Repository) GetAssessment(ctx context.Context, id string) (*AssessmentRecord, error) {
	query := `
		SELECT reviewer_id, ssn_encrypted, ssn_fingerprint, payload
		FROM loans.assessments
		WHERE id = $1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return rec, nil
}

// ListAssessmentsByClient returns a client's assessments, newest first
func (r *Repository) ListAssessmentsByClient(ctx context.Context, clientID string, limit int) ([]*AssessmentRecord, error) {
	query := `
		SELECT reviewer_id, ssn_encrypted, ssn_fingerprint, payload
		FROM loans.assessments
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return r.list(ctx, query, clientID, limit)
}

// ListAssessmentsByFingerprint returns assessments whose client SSN has the given fingerprint, newest first
func (r *Repository) ListAssessmentsByFingerprint(ctx context.Context, fingerprint string, limit int) ([]*AssessmentRecord, error) {
	query := `
		SELECT reviewer_id, ssn_encrypted, ssn_fingerprint, payload
		FROM loans.assessments
		WHERE ssn_fingerprint = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return r.list(ctx, query, fingerprint, limit)
}

// DeleteAssessmentsBefore removes assessments created before cutoff and returns how many were removed
func (r *Repository) DeleteAssessmentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loans.assessments WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete assessments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted assessments: %w", err)
	}
	return n, nil
}

func (r *Repository) list(ctx context.Context, query, key string, limit int) ([]*AssessmentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	var records []*AssessmentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*AssessmentRecord, error) {
	var (
		reviewerID  sql.NullInt64
		encrypted   sql.NullString
		fingerprint sql.NullString
		payload     []byte
	)
	if err := s.Scan(&reviewerID, &encrypted, &fingerprint, &payload); err != nil {
		return nil, err
	}
	rec := &AssessmentRecord{
		ReviewerID:     reviewerID.Int64,
		SSNEncrypted:   encrypted.String,
		SSNFingerprint: fingerprint.String,
	}
	if err := json.Unmarshal(payload, &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to decode assessment payload: %w", err)
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
