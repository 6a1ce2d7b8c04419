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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, user_id, enrollment_no, first_name, middle_name, last_name, full_name,
        personal_email, institute_email, contact_number, gender, date_of_birth, department_id, program_id,
        current_semester, admission_date, category, shift, is_complete, term_close, is_cancel, is_pass_all,
        convocation_year, aadhar_number, status, guardian_name, guardian_relation, guardian_contact,
        guardian_occupation, guardian_income, address, city, state, pincode,
        sem1_status, sem2_status, sem3_status, sem4_status, sem5_status, sem6_status, sem7_status, sem8_status,
        created_at, updated_at`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	baseQuery := `FROM students WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("current_semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Shift != "" {
		conditions = append(conditions, fmt.Sprintf("shift = $%d", len(args)+1))
		args = append(args, filter.Shift)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(enrollment_no) LIKE $%d OR LOWER(institute_email) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "enrollment_no"
	}
	allowedSorts := map[string]bool{
		"enrollment_no":    true,
		"full_name":        true,
		"current_semester": true,
		"admission_date":   true,
		"created_at":       true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "enrollment_no"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return students, total, nil
}

// FindByID fetches a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE id = $1 LIMIT 1`
	var s models.Student
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &s, nil
}

// FindByEnrollmentNo fetches a student by enrollment number.
func (r *StudentRepository) FindByEnrollmentNo(ctx context.Context, enrollmentNo string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE enrollment_no = $1 LIMIT 1`
	var s models.Student
	if err := r.db.GetContext(ctx, &s, query, enrollmentNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by enrollment no: %w", err)
	}
	return &s, nil
}

// FindByUserID fetches the student record linked to a portal account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE user_id = $1 LIMIT 1`
	var s models.Student
	if err := r.db.GetContext(ctx, &s, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by user id: %w", err)
	}
	return &s, nil
}

// ListByDepartment returns all students for one department.
func (r *StudentRepository) ListByDepartment(ctx context.Context, departmentID string) ([]models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE department_id = $1 ORDER BY enrollment_no`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, departmentID); err != nil {
		return nil, fmt.Errorf("list students by department: %w", err)
	}
	return students, nil
}

// ListUnlinked returns students with no associated portal account.
func (r *StudentRepository) ListUnlinked(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE user_id IS NULL ORDER BY enrollment_no`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list unlinked students: %w", err)
	}
	return students, nil
}

// MaxEnrollmentNoForPrefix returns the highest enrollment number with the
// given year prefix, or empty string when none exist.
func (r *StudentRepository) MaxEnrollmentNoForPrefix(ctx context.Context, prefix string) (string, error) {
	const query = `SELECT COALESCE(MAX(enrollment_no), '') FROM students WHERE enrollment_no LIKE $1`
	var max string
	if err := r.db.GetContext(ctx, &max, query, prefix+"%"); err != nil {
		return "", fmt.Errorf("max enrollment no: %w", err)
	}
	return max, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, s *models.Student) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, enrollment_no, first_name, middle_name, last_name, full_name,
        personal_email, institute_email, contact_number, gender, date_of_birth, department_id, program_id,
        current_semester, admission_date, category, shift, is_complete, term_close, is_cancel, is_pass_all,
        convocation_year, aadhar_number, status, guardian_name, guardian_relation, guardian_contact,
        guardian_occupation, guardian_income, address, city, state, pincode,
        sem1_status, sem2_status, sem3_status, sem4_status, sem5_status, sem6_status, sem7_status, sem8_status,
        created_at, updated_at)
        VALUES (:id, :user_id, :enrollment_no, :first_name, :middle_name, :last_name, :full_name,
        :personal_email, :institute_email, :contact_number, :gender, :date_of_birth, :department_id, :program_id,
        :current_semester, :admission_date, :category, :shift, :is_complete, :term_close, :is_cancel, :is_pass_all,
        :convocation_year, :aadhar_number, :status, :guardian_name, :guardian_relation, :guardian_contact,
        :guardian_occupation, :guardian_income, :address, :city, :state, :pincode,
        :sem1_status, :sem2_status, :sem3_status, :sem4_status, :sem5_status, :sem6_status, :sem7_status, :sem8_status,
        :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, s *models.Student) error {
	s.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET user_id = :user_id, enrollment_no = :enrollment_no,
        first_name = :first_name, middle_name = :middle_name, last_name = :last_name, full_name = :full_name,
        personal_email = :personal_email, institute_email = :institute_email, contact_number = :contact_number,
        gender = :gender, date_of_birth = :date_of_birth, department_id = :department_id, program_id = :program_id,
        current_semester = :current_semester, admission_date = :admission_date, category = :category, shift = :shift,
        is_complete = :is_complete, term_close = :term_close, is_cancel = :is_cancel, is_pass_all = :is_pass_all,
        convocation_year = :convocation_year, aadhar_number = :aadhar_number, status = :status,
        guardian_name = :guardian_name, guardian_relation = :guardian_relation, guardian_contact = :guardian_contact,
        guardian_occupation = :guardian_occupation, guardian_income = :guardian_income,
        address = :address, city = :city, state = :state, pincode = :pincode,
        sem1_status = :sem1_status, sem2_status = :sem2_status, sem3_status = :sem3_status, sem4_status = :sem4_status,
        sem5_status = :sem5_status, sem6_status = :sem6_status, sem7_status = :sem7_status, sem8_status = :sem8_status,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// LinkUser associates a student with a portal account.
func (r *StudentRepository) LinkUser(ctx context.Context, studentID, userID string) error {
	const query = `UPDATE students SET user_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("link student user: %w", err)
	}
	return nil
}

// Delete removes a student record.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
