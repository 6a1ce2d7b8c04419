package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	"github.com/gppalanpur/portal-api/pkg/csvio"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/export"
)

type facultyRepository interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error)
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
	FindByStaffCode(ctx context.Context, staffCode string) (*models.Faculty, error)
	Create(ctx context.Context, f *models.Faculty) error
	Update(ctx context.Context, f *models.Faculty) error
	Delete(ctx context.Context, id string) error
}

type facultyDepartmentRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Department, error)
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

// FacultyRequest payload for creating or updating a faculty profile.
type FacultyRequest struct {
	StaffCode       string   `json:"staff_code" validate:"required"`
	GTUFacultyID    *string  `json:"gtu_faculty_id"`
	FirstName       *string  `json:"first_name"`
	MiddleName      *string  `json:"middle_name"`
	LastName        *string  `json:"last_name"`
	FullName        string   `json:"full_name" validate:"required"`
	PersonalEmail   *string  `json:"personal_email" validate:"omitempty,email"`
	InstituteEmail  string   `json:"institute_email" validate:"required,email"`
	ContactNumber   *string  `json:"contact_number"`
	Gender          *string  `json:"gender"`
	DateOfBirth     *string  `json:"date_of_birth"`
	MaritalStatus   *string  `json:"marital_status"`
	JoiningDate     *string  `json:"joining_date"`
	Designation     *string  `json:"designation"`
	JobType         *string  `json:"job_type"`
	StaffCategory   *string  `json:"staff_category"`
	DepartmentID    *string  `json:"department_id"`
	Specializations []string `json:"specializations"`
	Status          string   `json:"status"`
	IsHOD           bool     `json:"is_hod"`

	Qualifications []models.FacultyQualification `json:"qualifications"`
}

// FacultyService provides staff profile management use cases. Creating a
// profile also provisions the matching portal account.
type FacultyService struct {
	repo        facultyRepository
	users       accountRepository
	departments facultyDepartmentRepository
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	emailDomain string
}

// NewFacultyService constructs a FacultyService.
func NewFacultyService(repo facultyRepository, users accountRepository, departments facultyDepartmentRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, emailDomain string) *FacultyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if emailDomain == "" {
		emailDomain = "gppalanpur.in"
	}
	return &FacultyService{repo: repo, users: users, departments: departments, metrics: metrics, validator: validate, logger: logger, emailDomain: emailDomain}
}

// List returns faculty matching the filter.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, *models.Pagination, error) {
	faculty, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return faculty, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a faculty profile by ID.
func (s *FacultyService) Get(ctx context.Context, id string) (*models.Faculty, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return f, nil
}

// Create adds a new faculty profile.
func (s *FacultyService) Create(ctx context.Context, req FacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}

	if _, err := s.repo.FindByStaffCode(ctx, req.StaffCode); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "staff code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check staff code")
	}

	f, err := s.fromRequest(ctx, &models.Faculty{}, req)
	if err != nil {
		return nil, err
	}

	user, err := ensureAccount(ctx, s.users, f.InstituteEmail, f.FullName, f.DepartmentID, models.RoleFaculty)
	if err != nil {
		return nil, err
	}
	f.UserID = &user.ID

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty")
	}
	return f, nil
}

// Update modifies an existing faculty profile.
func (s *FacultyService) Update(ctx context.Context, id string, req FacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(existing.StaffCode, req.StaffCode) {
		if _, err := s.repo.FindByStaffCode(ctx, req.StaffCode); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "staff code already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check staff code")
		}
	}

	f, err := s.fromRequest(ctx, existing, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update faculty")
	}
	return f, nil
}

// Delete removes a faculty profile.
func (s *FacultyService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty")
	}
	return nil
}

// Import reads faculty rows from CSV, upserting by staff code. Department
// columns may carry either the code or the UUID.
func (s *FacultyService) Import(ctx context.Context, reader io.Reader) (*models.ImportReport, error) {
	rows, err := csvio.ReadAll(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFile.Code, appErrors.ErrInvalidFile.Status, "failed to parse csv")
	}

	report := &models.ImportReport{}
	for _, row := range rows {
		staffCode := strings.TrimSpace(row.Get("staff_code", "staffcode", "employee_id"))
		if staffCode == "" {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "missing staff code"})
			continue
		}

		fullName := strings.TrimSpace(row.Get("full_name", "name"))
		first := strings.TrimSpace(row.Get("first_name"))
		middle := strings.TrimSpace(row.Get("middle_name"))
		last := strings.TrimSpace(row.Get("last_name"))
		if fullName == "" {
			fullName = strings.TrimSpace(strings.Join([]string{first, middle, last}, " "))
		}
		if fullName == "" {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "missing name"})
			continue
		}

		f := &models.Faculty{
			StaffCode:      staffCode,
			FullName:       fullName,
			InstituteEmail: strings.ToLower(strings.TrimSpace(row.Get("institute_email", "email"))),
			Status:         "active",
		}
		if f.InstituteEmail == "" {
			f.InstituteEmail = fmt.Sprintf("%s@%s", strings.ToLower(staffCode), s.emailDomain)
			report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "institute email generated from staff code"})
		}
		setOptional(&f.FirstName, first)
		setOptional(&f.MiddleName, middle)
		setOptional(&f.LastName, last)
		setOptional(&f.GTUFacultyID, row.Get("gtu_faculty_id"))
		setOptional(&f.PersonalEmail, strings.ToLower(row.Get("personal_email")))
		setOptional(&f.ContactNumber, row.Get("contact_number", "mobile", "phone"))
		setOptional(&f.Designation, row.Get("designation"))
		setOptional(&f.JobType, row.Get("job_type"))
		setOptional(&f.StaffCategory, row.Get("staff_category"))
		setOptional(&f.MaritalStatus, row.Get("marital_status"))
		if gender := normaliseGender(row.Get("gender", "sex")); gender != "" {
			f.Gender = &gender
		}
		if raw := row.Get("date_of_birth", "dob", "birth_date"); raw != "" {
			if dob, err := parseDate(&raw); err == nil {
				f.DateOfBirth = dob
			} else {
				report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "unparseable date of birth ignored"})
			}
		}
		if raw := row.Get("joining_date", "doj"); raw != "" {
			if joined, err := parseDate(&raw); err == nil {
				f.JoiningDate = joined
			} else {
				report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "unparseable joining date ignored"})
			}
		}
		if raw := row.Get("specializations", "specialization"); raw != "" {
			for _, item := range strings.Split(raw, ";") {
				if item = strings.TrimSpace(item); item != "" {
					f.Specializations = append(f.Specializations, item)
				}
			}
		}
		if deptRaw := strings.TrimSpace(row.Get("department", "department_code", "dept")); deptRaw != "" {
			deptID, err := s.resolveDepartment(ctx, deptRaw)
			if err != nil {
				report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "unknown department, left unassigned"})
			} else {
				f.DepartmentID = &deptID
			}
		}

		existing, err := s.repo.FindByStaffCode(ctx, staffCode)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "lookup failed"})
			continue
		}

		if existing != nil {
			f.ID = existing.ID
			f.UserID = existing.UserID
			f.IsHOD = existing.IsHOD
			f.CreatedAt = existing.CreatedAt
			if err := s.repo.Update(ctx, f); err != nil {
				report.Skipped++
				report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "update failed"})
				continue
			}
			report.Updated++
			continue
		}

		if err := s.repo.Create(ctx, f); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "create failed"})
			continue
		}
		report.Created++
	}

	s.metrics.RecordImportRows("faculty", report.Created, report.Updated, report.Skipped)
	return report, nil
}

// ExportDataset collects faculty as a tabular dataset.
func (s *FacultyService) ExportDataset(ctx context.Context, filter models.FacultyFilter) (*export.Dataset, error) {
	filter.Page = 1
	filter.PageSize = 100
	ds := &export.Dataset{Headers: []string{"id", "staff_code", "full_name", "institute_email", "designation", "department_id", "gender", "joining_date", "status", "specializations"}}
	for {
		faculty, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export faculty")
		}
		for _, f := range faculty {
			ds.Rows = append(ds.Rows, map[string]string{
				"id":              f.ID,
				"staff_code":      f.StaffCode,
				"full_name":       f.FullName,
				"institute_email": f.InstituteEmail,
				"designation":     derefString(f.Designation),
				"department_id":   derefString(f.DepartmentID),
				"gender":          derefString(f.Gender),
				"joining_date":    formatDate(f.JoiningDate),
				"status":          f.Status,
				"specializations": strings.Join(f.Specializations, ";"),
			})
		}
		if len(ds.Rows) >= total || len(faculty) == 0 {
			break
		}
		filter.Page++
	}
	return ds, nil
}

func (s *FacultyService) fromRequest(ctx context.Context, f *models.Faculty, req FacultyRequest) (*models.Faculty, error) {
	if req.DepartmentID != nil && *req.DepartmentID != "" {
		if _, err := s.departments.FindByID(ctx, *req.DepartmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "department does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
		}
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date of birth, expected YYYY-MM-DD")
	}
	joining, err := parseDate(req.JoiningDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid joining date, expected YYYY-MM-DD")
	}

	f.StaffCode = req.StaffCode
	f.GTUFacultyID = req.GTUFacultyID
	f.FirstName = req.FirstName
	f.MiddleName = req.MiddleName
	f.LastName = req.LastName
	f.FullName = req.FullName
	f.PersonalEmail = req.PersonalEmail
	f.InstituteEmail = strings.ToLower(req.InstituteEmail)
	f.ContactNumber = req.ContactNumber
	if req.Gender != nil {
		if g := normaliseGender(*req.Gender); g != "" {
			f.Gender = &g
		}
	}
	f.DateOfBirth = dob
	f.MaritalStatus = req.MaritalStatus
	f.JoiningDate = joining
	f.Designation = req.Designation
	f.JobType = req.JobType
	f.StaffCategory = req.StaffCategory
	f.DepartmentID = req.DepartmentID
	f.Specializations = req.Specializations
	f.Status = req.Status
	if f.Status == "" {
		f.Status = "active"
	}
	f.IsHOD = req.IsHOD
	f.Qualifications = req.Qualifications
	return f, nil
}

func (s *FacultyService) resolveDepartment(ctx context.Context, raw string) (string, error) {
	if dept, err := s.departments.FindByCode(ctx, raw); err == nil {
		return dept.ID, nil
	}
	dept, err := s.departments.FindByID(ctx, raw)
	if err != nil {
		return "", err
	}
	return dept.ID, nil
}

func setOptional(dst **string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = &value
	}
}

var genderAliases = map[string]string{
	"m":      "male",
	"male":   "male",
	"boy":    "male",
	"f":      "female",
	"female": "female",
	"girl":   "female",
	"o":      "other",
	"other":  "other",
}

func normaliseGender(raw string) string {
	return genderAliases[strings.ToLower(strings.TrimSpace(raw))]
}
