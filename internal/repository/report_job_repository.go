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

// ReportJobRepository manages persistence for asynchronous export jobs.
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository constructs a ReportJobRepository.
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

const reportJobColumns = `id, resource, format, status, filters, file_path, file_name, file_size,
        error_message, requested_by, created_at, started_at, completed_at`

// Create inserts a new export job in pending state.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	const query = `INSERT INTO report_jobs (id, resource, format, status, filters, file_path, file_name, file_size,
        error_message, requested_by, created_at, started_at, completed_at)
        VALUES (:id, :resource, :format, :status, :filters, :file_path, :file_name, :file_size,
        :error_message, :requested_by, :created_at, :started_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID fetches an export job by identifier.
func (r *ReportJobRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT ` + reportJobColumns + ` FROM report_jobs WHERE id = $1 LIMIT 1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report job by id: %w", err)
	}
	return &job, nil
}

// ListByUser returns the most recent jobs requested by a user.
func (r *ReportJobRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM report_jobs WHERE requested_by = $1 ORDER BY created_at DESC LIMIT %d`, reportJobColumns, limit)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, userID); err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	return jobs, nil
}

// MarkProcessing transitions a job to the processing state.
func (r *ReportJobRepository) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, started_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.JobStatusProcessing, startedAt); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}
	return nil
}

// MarkCompleted records the produced artefact and completion time.
func (r *ReportJobRepository) MarkCompleted(ctx context.Context, id, filePath, fileName string, fileSize int64, completedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, file_path = $3, file_name = $4, file_size = $5, completed_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.JobStatusCompleted, filePath, fileName, fileSize, completedAt); err != nil {
		return fmt.Errorf("mark report job completed: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason for a job.
func (r *ReportJobRepository) MarkFailed(ctx context.Context, id, message string, completedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, error_message = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.JobStatusFailed, message, completedAt); err != nil {
		return fmt.Errorf("mark report job failed: %w", err)
	}
	return nil
}

// DeleteOlderThan removes completed or failed jobs older than the cutoff and
// returns their file paths for cleanup.
func (r *ReportJobRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	const selectQuery = `SELECT COALESCE(file_path, '') FROM report_jobs WHERE created_at < $1 AND status IN ($2, $3)`
	var paths []string
	if err := r.db.SelectContext(ctx, &paths, selectQuery, cutoff, models.JobStatusCompleted, models.JobStatusFailed); err != nil {
		return nil, fmt.Errorf("list stale report jobs: %w", err)
	}
	const deleteQuery = `DELETE FROM report_jobs WHERE created_at < $1 AND status IN ($2, $3)`
	if _, err := r.db.ExecContext(ctx, deleteQuery, cutoff, models.JobStatusCompleted, models.JobStatusFailed); err != nil {
		return nil, fmt.Errorf("delete stale report jobs: %w", err)
	}
	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
