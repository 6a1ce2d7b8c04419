package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gppalanpur/portal-api/internal/models"
)

// ResultRepository manages persistence for examination results.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs a ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, student_id, enrollment_no, student_name, exam, exam_id, semester, branch_name, branch_code,
        academic_year, spi, cpi, cgpa, result_status, total_credits, earned_credits, current_backlog, total_backlog,
        trials, remark, upload_batch, declaration_date, created_at`

// List returns results matching the provided filters.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, int, error) {
	baseQuery := `FROM results WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.EnrollmentNo != "" {
		conditions = append(conditions, fmt.Sprintf("enrollment_no = $%d", len(args)+1))
		args = append(args, filter.EnrollmentNo)
	}
	if filter.Exam != "" {
		conditions = append(conditions, fmt.Sprintf("exam = $%d", len(args)+1))
		args = append(args, filter.Exam)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.BranchCode != "" {
		conditions = append(conditions, fmt.Sprintf("branch_code = $%d", len(args)+1))
		args = append(args, filter.BranchCode)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.UploadBatch != "" {
		conditions = append(conditions, fmt.Sprintf("upload_batch = $%d", len(args)+1))
		args = append(args, filter.UploadBatch)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(student_name) LIKE $%d OR LOWER(enrollment_no) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"enrollment_no": true,
		"semester":      true,
		"spi":           true,
		"cpi":           true,
		"created_at":    true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", resultColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}

	return results, total, nil
}

// FindByID fetches a result with its subject rows.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	const query = `SELECT ` + resultColumns + ` FROM results WHERE id = $1 LIMIT 1`
	var res models.Result
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find result by id: %w", err)
	}
	if err := r.loadSubjects(ctx, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FindByNaturalKey fetches a result by enrollment, exam id and semester.
func (r *ResultRepository) FindByNaturalKey(ctx context.Context, enrollmentNo string, examID *int, semester int) (*models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE enrollment_no = $1 AND semester = $2`
	args := []interface{}{enrollmentNo, semester}
	if examID != nil {
		query += " AND exam_id = $3"
		args = append(args, *examID)
	} else {
		query += " AND exam_id IS NULL"
	}
	var res models.Result
	if err := r.db.GetContext(ctx, &res, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find result by natural key: %w", err)
	}
	return &res, nil
}

func (r *ResultRepository) loadSubjects(ctx context.Context, res *models.Result) error {
	const query = `SELECT id, result_id, code, name, credits, grade, is_backlog, theory_grade, practical_grade FROM result_subjects WHERE result_id = $1 ORDER BY code`
	if err := r.db.SelectContext(ctx, &res.Subjects, query, res.ID); err != nil {
		return fmt.Errorf("load result subjects: %w", err)
	}
	return nil
}

// Create inserts a result with its subject rows.
func (r *ResultRepository) Create(ctx context.Context, res *models.Result) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO results (id, student_id, enrollment_no, student_name, exam, exam_id, semester, branch_name, branch_code,
        academic_year, spi, cpi, cgpa, result_status, total_credits, earned_credits, current_backlog, total_backlog,
        trials, remark, upload_batch, declaration_date, created_at)
        VALUES (:id, :student_id, :enrollment_no, :student_name, :exam, :exam_id, :semester, :branch_name, :branch_code,
        :academic_year, :spi, :cpi, :cgpa, :result_status, :total_credits, :earned_credits, :current_backlog, :total_backlog,
        :trials, :remark, :upload_batch, :declaration_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return r.replaceSubjects(ctx, res)
}

// Update replaces an existing result and its subject rows.
func (r *ResultRepository) Update(ctx context.Context, res *models.Result) error {
	const query = `UPDATE results SET student_id = :student_id, student_name = :student_name, exam = :exam, exam_id = :exam_id,
        semester = :semester, branch_name = :branch_name, branch_code = :branch_code, academic_year = :academic_year,
        spi = :spi, cpi = :cpi, cgpa = :cgpa, result_status = :result_status, total_credits = :total_credits,
        earned_credits = :earned_credits, current_backlog = :current_backlog, total_backlog = :total_backlog,
        trials = :trials, remark = :remark, upload_batch = :upload_batch, declaration_date = :declaration_date WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	return r.replaceSubjects(ctx, res)
}

func (r *ResultRepository) replaceSubjects(ctx context.Context, res *models.Result) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM result_subjects WHERE result_id = $1`, res.ID); err != nil {
		return fmt.Errorf("clear result subjects: %w", err)
	}
	const query = `INSERT INTO result_subjects (id, result_id, code, name, credits, grade, is_backlog, theory_grade, practical_grade)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i := range res.Subjects {
		s := &res.Subjects[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.ResultID = res.ID
		if _, err := r.db.ExecContext(ctx, query, s.ID, s.ResultID, s.Code, s.Name, s.Credits, s.Grade, s.IsBacklog, s.TheoryGrade, s.PractGrade); err != nil {
			return fmt.Errorf("insert result subject: %w", err)
		}
	}
	return nil
}

// Delete removes one result and its subject rows.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM result_subjects WHERE result_id = $1`, id); err != nil {
		return fmt.Errorf("delete result subjects: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM results WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}

// DeleteBatch removes every result in an upload batch and returns the count.
func (r *ResultRepository) DeleteBatch(ctx context.Context, uploadBatch string) (int, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM result_subjects WHERE result_id IN (SELECT id FROM results WHERE upload_batch = $1)`, uploadBatch); err != nil {
		return 0, fmt.Errorf("delete batch subjects: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM results WHERE upload_batch = $1`, uploadBatch)
	if err != nil {
		return 0, fmt.Errorf("delete batch results: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete batch rows affected: %w", err)
	}
	return int(affected), nil
}

// ListBatches summarises upload batches, newest first.
func (r *ResultRepository) ListBatches(ctx context.Context) ([]models.ResultBatch, error) {
	const query = `SELECT upload_batch, COUNT(*) AS count, MAX(created_at) AS latest_at FROM results GROUP BY upload_batch ORDER BY latest_at DESC`
	var batches []models.ResultBatch
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, fmt.Errorf("list result batches: %w", err)
	}
	return batches, nil
}

// Analysis aggregates pass statistics grouped by branch and semester.
func (r *ResultRepository) Analysis(ctx context.Context, academicYear string, examID *int) ([]models.ResultAnalysisRow, error) {
	query := `SELECT COALESCE(branch_name, 'Unknown') AS branch_name, semester,
        COUNT(*) AS total_count,
        COUNT(*) FILTER (WHERE UPPER(result_status) = 'PASS') AS pass_count,
        COUNT(*) FILTER (WHERE spi >= 8.5) AS distinction_count,
        COUNT(*) FILTER (WHERE spi >= 7.0 AND spi < 8.5) AS first_class_count,
        COUNT(*) FILTER (WHERE spi >= 6.0 AND spi < 7.0) AS second_class_count,
        ROUND(100.0 * COUNT(*) FILTER (WHERE UPPER(result_status) = 'PASS') / COUNT(*), 2) AS pass_percent,
        ROUND(AVG(spi)::numeric, 2) AS avg_spi,
        ROUND(AVG(cpi)::numeric, 2) AS avg_cpi
        FROM results WHERE 1=1`
	var args []interface{}
	if academicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, academicYear)
	}
	if examID != nil {
		query += fmt.Sprintf(" AND exam_id = $%d", len(args)+1)
		args = append(args, *examID)
	}
	query += " GROUP BY branch_name, semester ORDER BY branch_name, semester"

	var rows []models.ResultAnalysisRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("result analysis: %w", err)
	}
	return rows, nil
}
