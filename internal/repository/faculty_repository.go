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

// FacultyRepository manages persistence for faculty profiles.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs a FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

const facultyColumns = `id, user_id, staff_code, gtu_faculty_id, first_name, middle_name, last_name, full_name,
        personal_email, institute_email, contact_number, gender, date_of_birth, marital_status, joining_date,
        designation, job_type, staff_category, department_id, specializations, status, is_hod,
        aadhar_number, pan_card_number, created_at, updated_at`

// List returns faculty matching the provided filters.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	baseQuery := `FROM faculties WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Designation != "" {
		conditions = append(conditions, fmt.Sprintf("designation = $%d", len(args)+1))
		args = append(args, filter.Designation)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(staff_code) LIKE $%d OR LOWER(institute_email) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "full_name"
	}
	allowedSorts := map[string]bool{
		"full_name":    true,
		"staff_code":   true,
		"joining_date": true,
		"created_at":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", facultyColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var faculty []models.Faculty
	if err := r.db.SelectContext(ctx, &faculty, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculty: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count faculty: %w", err)
	}

	for i := range faculty {
		faculty[i].SplitSpecializations()
	}

	return faculty, total, nil
}

// FindByID fetches a faculty profile and its qualifications.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	const query = `SELECT ` + facultyColumns + ` FROM faculties WHERE id = $1 LIMIT 1`
	var f models.Faculty
	if err := r.db.GetContext(ctx, &f, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty by id: %w", err)
	}
	f.SplitSpecializations()
	if err := r.loadQualifications(ctx, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindByStaffCode fetches a faculty profile by staff code.
func (r *FacultyRepository) FindByStaffCode(ctx context.Context, staffCode string) (*models.Faculty, error) {
	const query = `SELECT ` + facultyColumns + ` FROM faculties WHERE UPPER(staff_code) = UPPER($1) LIMIT 1`
	var f models.Faculty
	if err := r.db.GetContext(ctx, &f, query, staffCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty by staff code: %w", err)
	}
	f.SplitSpecializations()
	return &f, nil
}

func (r *FacultyRepository) loadQualifications(ctx context.Context, f *models.Faculty) error {
	const query = `SELECT id, faculty_id, degree, field, institution, year FROM faculty_qualifications WHERE faculty_id = $1 ORDER BY year DESC NULLS LAST`
	if err := r.db.SelectContext(ctx, &f.Qualifications, query, f.ID); err != nil {
		return fmt.Errorf("load faculty qualifications: %w", err)
	}
	return nil
}

// Create inserts a new faculty profile with qualifications.
func (r *FacultyRepository) Create(ctx context.Context, f *models.Faculty) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	f.JoinSpecializations()
	const query = `INSERT INTO faculties (id, user_id, staff_code, gtu_faculty_id, first_name, middle_name, last_name, full_name,
        personal_email, institute_email, contact_number, gender, date_of_birth, marital_status, joining_date,
        designation, job_type, staff_category, department_id, specializations, status, is_hod,
        aadhar_number, pan_card_number, created_at, updated_at)
        VALUES (:id, :user_id, :staff_code, :gtu_faculty_id, :first_name, :middle_name, :last_name, :full_name,
        :personal_email, :institute_email, :contact_number, :gender, :date_of_birth, :marital_status, :joining_date,
        :designation, :job_type, :staff_category, :department_id, :specializations, :status, :is_hod,
        :aadhar_number, :pan_card_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return r.replaceQualifications(ctx, f)
}

// Update modifies an existing faculty profile and rewrites qualifications.
func (r *FacultyRepository) Update(ctx context.Context, f *models.Faculty) error {
	f.UpdatedAt = time.Now().UTC()
	f.JoinSpecializations()
	const query = `UPDATE faculties SET user_id = :user_id, staff_code = :staff_code, gtu_faculty_id = :gtu_faculty_id,
        first_name = :first_name, middle_name = :middle_name, last_name = :last_name, full_name = :full_name,
        personal_email = :personal_email, institute_email = :institute_email, contact_number = :contact_number,
        gender = :gender, date_of_birth = :date_of_birth, marital_status = :marital_status, joining_date = :joining_date,
        designation = :designation, job_type = :job_type, staff_category = :staff_category, department_id = :department_id,
        specializations = :specializations, status = :status, is_hod = :is_hod,
        aadhar_number = :aadhar_number, pan_card_number = :pan_card_number, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	return r.replaceQualifications(ctx, f)
}

func (r *FacultyRepository) replaceQualifications(ctx context.Context, f *models.Faculty) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM faculty_qualifications WHERE faculty_id = $1`, f.ID); err != nil {
		return fmt.Errorf("clear faculty qualifications: %w", err)
	}
	const query = `INSERT INTO faculty_qualifications (id, faculty_id, degree, field, institution, year) VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range f.Qualifications {
		q := &f.Qualifications[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.FacultyID = f.ID
		if _, err := r.db.ExecContext(ctx, query, q.ID, q.FacultyID, q.Degree, q.Field, q.Institution, q.Year); err != nil {
			return fmt.Errorf("insert faculty qualification: %w", err)
		}
	}
	return nil
}

// Delete removes a faculty profile and its qualifications.
func (r *FacultyRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM faculty_qualifications WHERE faculty_id = $1`, id); err != nil {
		return fmt.Errorf("delete faculty qualifications: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM faculties WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete faculty: %w", err)
	}
	return nil
}
