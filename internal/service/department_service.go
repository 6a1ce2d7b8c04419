package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	"github.com/gppalanpur/portal-api/pkg/csvio"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/export"
)

const departmentStatsCacheKey = "departments:stats"

type departmentRepository interface {
	List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error)
	FindByID(ctx context.Context, id string) (*models.Department, error)
	FindByCode(ctx context.Context, code string) (*models.Department, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, dept *models.Department) error
	Update(ctx context.Context, dept *models.Department) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]models.DepartmentStats, error)
}

type departmentUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// DepartmentRequest payload for creating or updating a department.
type DepartmentRequest struct {
	Name            string  `json:"name" validate:"required"`
	Code            string  `json:"code" validate:"required,max=10"`
	Description     *string `json:"description"`
	HODID           *string `json:"hod_id"`
	EstablishedDate *string `json:"established_date"`
	IsActive        *bool   `json:"is_active"`
}

// DepartmentService provides department management use cases.
type DepartmentService struct {
	repo      departmentRepository
	users     departmentUserRepository
	cache     roleCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	statsTTL  time.Duration
}

// NewDepartmentService constructs a DepartmentService.
func NewDepartmentService(repo departmentRepository, users departmentUserRepository, cache roleCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, statsTTL time.Duration) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	return &DepartmentService{repo: repo, users: users, cache: cache, metrics: metrics, validator: validate, logger: logger, statsTTL: statsTTL}
}

// List returns departments matching the filter.
func (s *DepartmentService) List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, *models.Pagination, error) {
	departments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return departments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a department by ID.
func (s *DepartmentService) Get(ctx context.Context, id string) (*models.Department, error) {
	dept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return dept, nil
}

// Create adds a new department. The HOD, when given, must hold the hod role.
func (s *DepartmentService) Create(ctx context.Context, req DepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department code already exists")
	}

	if err := s.checkHOD(ctx, req.HODID); err != nil {
		return nil, err
	}

	established, err := parseDate(req.EstablishedDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid established date, expected YYYY-MM-DD")
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	dept := &models.Department{
		Name:            req.Name,
		Code:            strings.ToUpper(req.Code),
		Description:     req.Description,
		HODID:           req.HODID,
		EstablishedDate: established,
		IsActive:        active,
	}
	if err := s.repo.Create(ctx, dept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}
	s.invalidateStats(ctx)
	return dept, nil
}

// Update modifies an existing department.
func (s *DepartmentService) Update(ctx context.Context, id string, req DepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}

	dept, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department code already exists")
	}

	if err := s.checkHOD(ctx, req.HODID); err != nil {
		return nil, err
	}

	established, err := parseDate(req.EstablishedDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid established date, expected YYYY-MM-DD")
	}

	dept.Name = req.Name
	dept.Code = strings.ToUpper(req.Code)
	dept.Description = req.Description
	dept.HODID = req.HODID
	if established != nil {
		dept.EstablishedDate = established
	}
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, dept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}
	s.invalidateStats(ctx)
	return dept, nil
}

// Delete removes a department.
func (s *DepartmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete department")
	}
	s.invalidateStats(ctx)
	return nil
}

// Stats returns headcounts per department, served from cache when warm.
func (s *DepartmentService) Stats(ctx context.Context) ([]models.DepartmentStats, error) {
	if s.cache != nil {
		var cached []models.DepartmentStats
		if err := s.cache.Get(ctx, departmentStatsCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		} else if errors.Is(err, appErrors.ErrCacheMiss) {
			s.metrics.RecordCacheOperation(false)
		} else {
			s.logger.Warn("department stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute department stats")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, departmentStatsCacheKey, stats, s.statsTTL); err != nil {
			s.logger.Warn("department stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Import reads departments from CSV, upserting by code.
func (s *DepartmentService) Import(ctx context.Context, reader io.Reader) (*models.ImportReport, error) {
	rows, err := csvio.ReadAll(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFile.Code, appErrors.ErrInvalidFile.Status, "failed to parse csv")
	}

	report := &models.ImportReport{}
	for _, row := range rows {
		code := strings.ToUpper(strings.TrimSpace(row.Get("code", "dept_code")))
		name := strings.TrimSpace(row.Get("name", "department_name"))
		if code == "" || name == "" {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "missing name or code"})
			continue
		}

		var established *time.Time
		if raw := row.Get("established_date", "established"); raw != "" {
			parsed, err := parseDate(&raw)
			if err != nil {
				report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "unparseable established date ignored"})
			} else {
				established = parsed
			}
		}

		desc := strings.TrimSpace(row.Get("description"))
		existing, err := s.repo.FindByCode(ctx, code)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "lookup failed"})
			continue
		}

		if existing != nil {
			existing.Name = name
			if desc != "" {
				existing.Description = &desc
			}
			if established != nil {
				existing.EstablishedDate = established
			}
			existing.IsActive = row.Bool(existing.IsActive, "is_active", "active")
			if err := s.repo.Update(ctx, existing); err != nil {
				report.Skipped++
				report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "update failed"})
				continue
			}
			report.Updated++
			continue
		}

		dept := &models.Department{
			Name:            name,
			Code:            code,
			EstablishedDate: established,
			IsActive:        row.Bool(true, "is_active", "active"),
		}
		if desc != "" {
			dept.Description = &desc
		}
		if err := s.repo.Create(ctx, dept); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "create failed"})
			continue
		}
		report.Created++
	}

	s.metrics.RecordImportRows("departments", report.Created, report.Updated, report.Skipped)
	s.invalidateStats(ctx)
	return report, nil
}

// ExportDataset collects departments as a tabular dataset.
func (s *DepartmentService) ExportDataset(ctx context.Context, filter models.DepartmentFilter) (*export.Dataset, error) {
	filter.Page = 1
	filter.PageSize = 100
	ds := &export.Dataset{Headers: []string{"id", "name", "code", "description", "hod_id", "established_date", "is_active"}}
	for {
		departments, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export departments")
		}
		for _, d := range departments {
			ds.Rows = append(ds.Rows, map[string]string{
				"id":               d.ID,
				"name":             d.Name,
				"code":             d.Code,
				"description":      derefString(d.Description),
				"hod_id":           derefString(d.HODID),
				"established_date": formatDate(d.EstablishedDate),
				"is_active":        fmt.Sprintf("%t", d.IsActive),
			})
		}
		if len(ds.Rows) >= total || len(departments) == 0 {
			break
		}
		filter.Page++
	}
	return ds, nil
}

func (s *DepartmentService) checkHOD(ctx context.Context, hodID *string) error {
	if hodID == nil || *hodID == "" {
		return nil
	}
	user, err := s.users.FindByID(ctx, *hodID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "hod user does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check hod user")
	}
	if !user.HasRole(models.RoleHOD) {
		return appErrors.Clone(appErrors.ErrValidation, "hod user does not hold the hod role")
	}
	return nil
}

func (s *DepartmentService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "departments:*"); err != nil {
		s.logger.Warn("failed to invalidate department cache", zap.Error(err))
	}
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", "02-01-2006", "02/01/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(*raw)); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparseable date %q", *raw)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
