package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gppalanpur/portal-api/internal/models"
)

// FeedbackRepository manages persistence for feedback analysis rows.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

const feedbackColumns = `id, year, term, branch, semester, subject_code, subject_name, faculty_name,
        total_responses, average_score,
        q1_score, q2_score, q3_score, q4_score, q5_score, q6_score,
        q7_score, q8_score, q9_score, q10_score, q11_score, q12_score,
        report_data, created_at, updated_at`

// Create inserts a new feedback analysis row.
func (r *FeedbackRepository) Create(ctx context.Context, f *models.FeedbackAnalysis) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	const query = `INSERT INTO feedback_analyses (id, year, term, branch, semester, subject_code, subject_name,
        faculty_name, total_responses, average_score,
        q1_score, q2_score, q3_score, q4_score, q5_score, q6_score,
        q7_score, q8_score, q9_score, q10_score, q11_score, q12_score,
        report_data, created_at, updated_at)
        VALUES (:id, :year, :term, :branch, :semester, :subject_code, :subject_name,
        :faculty_name, :total_responses, :average_score,
        :q1_score, :q2_score, :q3_score, :q4_score, :q5_score, :q6_score,
        :q7_score, :q8_score, :q9_score, :q10_score, :q11_score, :q12_score,
        :report_data, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("create feedback analysis: %w", err)
	}
	return nil
}

// FindByID fetches a feedback analysis row by identifier.
func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*models.FeedbackAnalysis, error) {
	const query = `SELECT ` + feedbackColumns + ` FROM feedback_analyses WHERE id = $1 LIMIT 1`
	var f models.FeedbackAnalysis
	if err := r.db.GetContext(ctx, &f, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find feedback analysis: %w", err)
	}
	return &f, nil
}

// UpdateReport stores the derived analysis JSON for a feedback row.
func (r *FeedbackRepository) UpdateReport(ctx context.Context, id string, report []byte) error {
	const query = `UPDATE feedback_analyses SET report_data = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, report, time.Now().UTC()); err != nil {
		return fmt.Errorf("update feedback report: %w", err)
	}
	return nil
}
