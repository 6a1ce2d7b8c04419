package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gppalanpur/portal-api/internal/models"
	"github.com/gppalanpur/portal-api/pkg/csvio"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/export"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByEnrollmentNo(ctx context.Context, enrollmentNo string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	ListByDepartment(ctx context.Context, departmentID string) ([]models.Student, error)
	ListUnlinked(ctx context.Context) ([]models.Student, error)
	MaxEnrollmentNoForPrefix(ctx context.Context, prefix string) (string, error)
	Create(ctx context.Context, s *models.Student) error
	Update(ctx context.Context, s *models.Student) error
	LinkUser(ctx context.Context, studentID, userID string) error
	Delete(ctx context.Context, id string) error
}

type accountRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	AssignRole(ctx context.Context, userID, role string) error
}

// defaultInitialPassword is set on accounts provisioned alongside a new
// student or faculty profile. Users are expected to change it on first login.
const defaultInitialPassword = "123456"

// StudentRequest payload for creating or updating a student.
type StudentRequest struct {
	EnrollmentNo    string  `json:"enrollment_no"`
	FirstName       *string `json:"first_name"`
	MiddleName      *string `json:"middle_name"`
	LastName        *string `json:"last_name"`
	FullName        string  `json:"full_name" validate:"required"`
	PersonalEmail   *string `json:"personal_email" validate:"omitempty,email"`
	InstituteEmail  string  `json:"institute_email" validate:"omitempty,email"`
	ContactNumber   *string `json:"contact_number"`
	Gender          *string `json:"gender"`
	DateOfBirth     *string `json:"date_of_birth"`
	DepartmentID    *string `json:"department_id"`
	ProgramID       *string `json:"program_id"`
	CurrentSemester int     `json:"current_semester" validate:"min=0,max=8"`
	AdmissionDate   *string `json:"admission_date"`
	Category        *string `json:"category"`
	Shift           *string `json:"shift"`
	Status          string  `json:"status"`

	GuardianName     *string  `json:"guardian_name"`
	GuardianRelation *string  `json:"guardian_relation"`
	GuardianContact  *string  `json:"guardian_contact"`
	GuardianIncome   *float64 `json:"guardian_income"`
	Address          *string  `json:"address"`
	City             *string  `json:"city"`
	State            *string  `json:"state"`
	Pincode          *string  `json:"pincode"`

	SemStatuses map[int]string `json:"sem_statuses"`
}

// StudentService provides student record management use cases. It can also
// provision portal accounts for students lacking one.
type StudentService struct {
	repo        studentRepository
	users       accountRepository
	departments facultyDepartmentRepository
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	emailDomain string
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, users accountRepository, departments facultyDepartmentRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, emailDomain string) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if emailDomain == "" {
		emailDomain = "gppalanpur.in"
	}
	return &StudentService{repo: repo, users: users, departments: departments, metrics: metrics, validator: validate, logger: logger, emailDomain: emailDomain}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student by ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// ListByDepartment returns all students in a department.
func (s *StudentService) ListByDepartment(ctx context.Context, departmentID string) ([]models.Student, error) {
	students, err := s.repo.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list department students")
	}
	return students, nil
}

// Create adds a new student. A missing enrollment number is generated from
// the current year and the next free sequence.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	enrollmentNo := strings.TrimSpace(req.EnrollmentNo)
	if enrollmentNo == "" {
		generated, err := s.nextEnrollmentNo(ctx)
		if err != nil {
			return nil, err
		}
		enrollmentNo = generated
	} else {
		if _, err := s.repo.FindByEnrollmentNo(ctx, enrollmentNo); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment number already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment number")
		}
	}

	student, err := s.fromRequest(ctx, &models.Student{}, req)
	if err != nil {
		return nil, err
	}
	student.EnrollmentNo = enrollmentNo
	if student.InstituteEmail == "" {
		student.InstituteEmail = fmt.Sprintf("%s@%s", strings.ToLower(enrollmentNo), s.emailDomain)
	}

	user, err := ensureAccount(ctx, s.users, student.InstituteEmail, student.FullName, student.DepartmentID, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	student.UserID = &user.ID

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// ensureAccount returns the portal account for an institutional email,
// creating one with the default initial password when none exists. The
// account is guaranteed to hold the given role afterwards.
func ensureAccount(ctx context.Context, users accountRepository, email, name string, departmentID *string, role string) (*models.User, error) {
	existing, err := users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up account")
	}
	if existing != nil {
		if !existing.HasRole(role) {
			if err := users.AssignRole(ctx, existing.ID, role); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
			}
			existing.Roles = append(existing.Roles, role)
		}
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultInitialPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	selected := role
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		DepartmentID: departmentID,
		SelectedRole: &selected,
		Roles:        []string{role},
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}
	return user, nil
}

// Update modifies an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.EnrollmentNo != "" && req.EnrollmentNo != existing.EnrollmentNo {
		if _, err := s.repo.FindByEnrollmentNo(ctx, req.EnrollmentNo); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment number already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment number")
		}
		existing.EnrollmentNo = req.EnrollmentNo
	}

	student, err := s.fromRequest(ctx, existing, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student record.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// Sync reconciles portal accounts with student records. It first creates a
// student record for every user holding the student role without one, using
// a generated enrollment number and the matching institutional email. It then
// provisions accounts for student records that still lack a linked user, with
// the enrollment number as the initial password.
func (s *StudentService) Sync(ctx context.Context) (*models.StudentSyncReport, error) {
	report := &models.StudentSyncReport{}

	roleUsers, err := s.users.ListByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student accounts")
	}
	report.Scanned += len(roleUsers)
	for _, user := range roleUsers {
		if _, err := s.repo.FindByUserID(ctx, user.ID); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: record lookup failed", user.Email))
			report.Skipped++
			continue
		}

		enrollmentNo, err := s.nextEnrollmentNo(ctx)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: enrollment generation failed", user.Email))
			report.Skipped++
			continue
		}
		userID := user.ID
		student := &models.Student{
			UserID:          &userID,
			EnrollmentNo:    enrollmentNo,
			FullName:        user.Name,
			InstituteEmail:  fmt.Sprintf("%s@%s", strings.ToLower(enrollmentNo), s.emailDomain),
			DepartmentID:    user.DepartmentID,
			CurrentSemester: 1,
			Status:          models.StudentStatusActive,
		}
		student.FirstName, student.MiddleName, student.LastName = splitName(user.Name)
		ensureSemDefaults(student)
		if err := s.repo.Create(ctx, student); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: record create failed", user.Email))
			report.Skipped++
			continue
		}
		report.RecordsCreated++
	}

	unlinked, err := s.repo.ListUnlinked(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unlinked students")
	}

	report.Scanned += len(unlinked)
	for _, student := range unlinked {
		email := student.InstituteEmail
		if email == "" {
			email = fmt.Sprintf("%s@%s", student.EnrollmentNo, s.emailDomain)
		}

		existing, err := s.users.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: account lookup failed", student.EnrollmentNo))
			report.Skipped++
			continue
		}

		if existing != nil {
			if !existing.HasRole(models.RoleStudent) {
				if err := s.users.AssignRole(ctx, existing.ID, models.RoleStudent); err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("%s: role assignment failed", student.EnrollmentNo))
					report.Skipped++
					continue
				}
			}
			if err := s.repo.LinkUser(ctx, student.ID, existing.ID); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: link failed", student.EnrollmentNo))
				report.Skipped++
				continue
			}
			report.AccountsLinked++
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(student.EnrollmentNo), bcrypt.DefaultCost)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: password hash failed", student.EnrollmentNo))
			report.Skipped++
			continue
		}
		selected := models.RoleStudent
		user := &models.User{
			Name:         student.FullName,
			Email:        email,
			PasswordHash: string(hash),
			DepartmentID: student.DepartmentID,
			SelectedRole: &selected,
			Roles:        []string{models.RoleStudent},
		}
		if err := s.users.Create(ctx, user); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: account create failed", student.EnrollmentNo))
			report.Skipped++
			continue
		}
		if err := s.repo.LinkUser(ctx, student.ID, user.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: link failed", student.EnrollmentNo))
			report.Skipped++
			continue
		}
		report.Created++
	}
	return report, nil
}

// Import reads student rows from CSV, upserting by enrollment number. The
// parser accepts the university export headers as well as plain ones.
func (s *StudentService) Import(ctx context.Context, reader io.Reader) (*models.ImportReport, error) {
	rows, err := csvio.ReadAll(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFile.Code, appErrors.ErrInvalidFile.Status, "failed to parse csv")
	}

	report := &models.ImportReport{}
	for _, row := range rows {
		enrollmentNo := strings.TrimSpace(row.Get("enrollment_no", "enrollment", "map_number"))
		if enrollmentNo == "" {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "missing enrollment number"})
			continue
		}

		fullName := strings.TrimSpace(row.Get("full_name", "name", "student_name"))
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

		student := &models.Student{
			EnrollmentNo:    enrollmentNo,
			FullName:        fullName,
			InstituteEmail:  strings.ToLower(strings.TrimSpace(row.Get("institute_email"))),
			CurrentSemester: row.Int(1, "current_semester", "semester", "sem"),
			Status:          models.StudentStatusActive,
			IsComplete:      row.Bool(false, "is_complete", "iscomplete"),
			TermClose:       row.Bool(false, "term_close", "termclose"),
			IsCancel:        row.Bool(false, "is_cancel", "iscancel"),
			IsPassAll:       row.Bool(false, "is_pass_all", "ispassall"),
		}
		if student.InstituteEmail == "" {
			student.InstituteEmail = fmt.Sprintf("%s@%s", enrollmentNo, s.emailDomain)
		}
		setOptional(&student.FirstName, first)
		setOptional(&student.MiddleName, middle)
		setOptional(&student.LastName, last)
		setOptional(&student.PersonalEmail, strings.ToLower(row.Get("personal_email", "email")))
		setOptional(&student.ContactNumber, row.Get("contact_number", "mobile", "phone"))
		setOptional(&student.Category, row.Get("category"))
		setOptional(&student.Shift, row.Get("shift"))
		setOptional(&student.GuardianName, row.Get("guardian_name", "father_name"))
		setOptional(&student.GuardianContact, row.Get("guardian_contact"))
		setOptional(&student.Address, row.Get("address"))
		setOptional(&student.City, row.Get("city"))
		if gender := normaliseGender(row.Get("gender", "sex")); gender != "" {
			student.Gender = &gender
		}
		if raw := row.Get("date_of_birth", "dob", "birth_date"); raw != "" {
			if dob, err := parseDate(&raw); err == nil {
				student.DateOfBirth = dob
			} else {
				report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "unparseable date of birth ignored"})
			}
		}
		if deptRaw := strings.TrimSpace(row.Get("department", "department_code", "br_code")); deptRaw != "" {
			deptID, err := s.resolveDepartment(ctx, deptRaw)
			if err != nil {
				report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "unknown department, left unassigned"})
			} else {
				student.DepartmentID = &deptID
			}
		}
		applySemStatuses(student, row)

		existing, err := s.repo.FindByEnrollmentNo(ctx, enrollmentNo)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "lookup failed"})
			continue
		}

		if existing != nil {
			student.ID = existing.ID
			student.UserID = existing.UserID
			student.CreatedAt = existing.CreatedAt
			if err := s.repo.Update(ctx, student); err != nil {
				report.Skipped++
				report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "update failed"})
				continue
			}
			report.Updated++
			continue
		}

		if err := s.repo.Create(ctx, student); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "create failed"})
			continue
		}
		report.Created++
	}

	s.metrics.RecordImportRows("students", report.Created, report.Updated, report.Skipped)
	return report, nil
}

// ExportDataset collects students as a tabular dataset.
func (s *StudentService) ExportDataset(ctx context.Context, filter models.StudentFilter) (*export.Dataset, error) {
	filter.Page = 1
	filter.PageSize = 100
	ds := &export.Dataset{Headers: []string{"id", "enrollment_no", "full_name", "institute_email", "department_id", "current_semester", "category", "shift", "status", "gender"}}
	for {
		students, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export students")
		}
		for _, st := range students {
			ds.Rows = append(ds.Rows, map[string]string{
				"id":               st.ID,
				"enrollment_no":    st.EnrollmentNo,
				"full_name":        st.FullName,
				"institute_email":  st.InstituteEmail,
				"department_id":    derefString(st.DepartmentID),
				"current_semester": strconv.Itoa(st.CurrentSemester),
				"category":         derefString(st.Category),
				"shift":            derefString(st.Shift),
				"status":           st.Status,
				"gender":           derefString(st.Gender),
			})
		}
		if len(ds.Rows) >= total || len(students) == 0 {
			break
		}
		filter.Page++
	}
	return ds, nil
}

func (s *StudentService) fromRequest(ctx context.Context, student *models.Student, req StudentRequest) (*models.Student, error) {
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
	admission, err := parseDate(req.AdmissionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid admission date, expected YYYY-MM-DD")
	}

	student.FirstName = req.FirstName
	student.MiddleName = req.MiddleName
	student.LastName = req.LastName
	student.FullName = req.FullName
	student.PersonalEmail = req.PersonalEmail
	if req.InstituteEmail != "" {
		student.InstituteEmail = strings.ToLower(req.InstituteEmail)
	}
	student.ContactNumber = req.ContactNumber
	if req.Gender != nil {
		if g := normaliseGender(*req.Gender); g != "" {
			student.Gender = &g
		}
	}
	student.DateOfBirth = dob
	student.DepartmentID = req.DepartmentID
	student.ProgramID = req.ProgramID
	if req.CurrentSemester > 0 {
		student.CurrentSemester = req.CurrentSemester
	} else if student.CurrentSemester == 0 {
		student.CurrentSemester = 1
	}
	student.AdmissionDate = admission
	student.Category = req.Category
	student.Shift = req.Shift
	if req.Status != "" {
		student.Status = req.Status
	} else if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	student.GuardianName = req.GuardianName
	student.GuardianRelation = req.GuardianRelation
	student.GuardianContact = req.GuardianContact
	student.GuardianIncome = req.GuardianIncome
	student.Address = req.Address
	student.City = req.City
	student.State = req.State
	student.Pincode = req.Pincode

	for sem, status := range req.SemStatuses {
		if err := setSemStatus(student, sem, status); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
	}
	ensureSemDefaults(student)
	return student, nil
}

// nextEnrollmentNo generates YYYY + 4-digit sequence within the current year.
func (s *StudentService) nextEnrollmentNo(ctx context.Context) (string, error) {
	prefix := time.Now().UTC().Format("2006")
	max, err := s.repo.MaxEnrollmentNoForPrefix(ctx, prefix)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate enrollment number")
	}
	seq := 1
	if max != "" && len(max) > len(prefix) {
		if n, err := strconv.Atoi(max[len(prefix):]); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

func (s *StudentService) resolveDepartment(ctx context.Context, raw string) (string, error) {
	if dept, err := s.departments.FindByCode(ctx, raw); err == nil {
		return dept.ID, nil
	}
	dept, err := s.departments.FindByID(ctx, raw)
	if err != nil {
		return "", err
	}
	return dept.ID, nil
}

// splitName breaks a display name into first, middle and last parts. A
// two-word name carries no middle part.
func splitName(full string) (first, middle, last *string) {
	parts := strings.SplitN(strings.TrimSpace(full), " ", 3)
	switch len(parts) {
	case 3:
		return &parts[0], &parts[1], &parts[2]
	case 2:
		return &parts[0], nil, &parts[1]
	}
	if parts[0] == "" {
		return nil, nil, nil
	}
	return &parts[0], nil, nil
}

func setSemStatus(student *models.Student, sem int, status string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case models.SemStatusCleared, models.SemStatusPending, models.SemStatusNotAttempted:
	default:
		return fmt.Errorf("invalid status %q for semester %d", status, sem)
	}
	switch sem {
	case 1:
		student.Sem1Status = status
	case 2:
		student.Sem2Status = status
	case 3:
		student.Sem3Status = status
	case 4:
		student.Sem4Status = status
	case 5:
		student.Sem5Status = status
	case 6:
		student.Sem6Status = status
	case 7:
		student.Sem7Status = status
	case 8:
		student.Sem8Status = status
	default:
		return fmt.Errorf("invalid semester %d", sem)
	}
	return nil
}

func ensureSemDefaults(student *models.Student) {
	statuses := []*string{
		&student.Sem1Status, &student.Sem2Status, &student.Sem3Status, &student.Sem4Status,
		&student.Sem5Status, &student.Sem6Status, &student.Sem7Status, &student.Sem8Status,
	}
	for _, st := range statuses {
		if *st == "" {
			*st = models.SemStatusNotAttempted
		}
	}
}

func applySemStatuses(student *models.Student, row csvio.Row) {
	for sem := 1; sem <= 8; sem++ {
		raw := row.Get(fmt.Sprintf("sem%d_status", sem), fmt.Sprintf("sem%d", sem))
		if raw == "" {
			continue
		}
		// University exports use numeric credit columns; any non-zero value
		// means the semester was cleared.
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			if n > 0 {
				_ = setSemStatus(student, sem, models.SemStatusCleared)
			} else {
				_ = setSemStatus(student, sem, models.SemStatusPending)
			}
			continue
		}
		_ = setSemStatus(student, sem, raw)
	}
	ensureSemDefaults(student)
}
