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
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	"github.com/gppalanpur/portal-api/pkg/csvio"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/export"
)

// maxResultSubjects bounds the folded SUB{n} column scan in GTU exports.
const maxResultSubjects = 12

type resultRepository interface {
	List(ctx context.Context, filter models.ResultFilter) ([]models.Result, int, error)
	FindByID(ctx context.Context, id string) (*models.Result, error)
	FindByNaturalKey(ctx context.Context, enrollmentNo string, examID *int, semester int) (*models.Result, error)
	Create(ctx context.Context, res *models.Result) error
	Update(ctx context.Context, res *models.Result) error
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, uploadBatch string) (int, error)
	ListBatches(ctx context.Context) ([]models.ResultBatch, error)
	Analysis(ctx context.Context, academicYear string, examID *int) ([]models.ResultAnalysisRow, error)
}

type resultStudentRepository interface {
	FindByEnrollmentNo(ctx context.Context, enrollmentNo string) (*models.Student, error)
}

// ResultImportReport extends the import report with the generated batch ID.
type ResultImportReport struct {
	models.ImportReport
	UploadBatch string `json:"upload_batch"`
}

// ResultService provides examination result use cases built around the
// university's CSV export format.
type ResultService struct {
	repo      resultRepository
	students  resultStudentRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs a ResultService.
func NewResultService(repo resultRepository, students resultStudentRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ResultService{repo: repo, students: students, metrics: metrics, validator: validate, logger: logger}
}

// List returns results matching the filter.
func (s *ResultService) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, *models.Pagination, error) {
	results, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return results, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one result with subject rows.
func (s *ResultService) Get(ctx context.Context, id string) (*models.Result, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	return res, nil
}

// ListByEnrollment returns all results of one student. Non-privileged
// callers may only read results tied to their own account.
func (s *ResultService) ListByEnrollment(ctx context.Context, enrollmentNo, requesterUserID string, privileged bool) ([]models.Result, error) {
	if !privileged {
		student, err := s.students.FindByEnrollmentNo(ctx, enrollmentNo)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if student.UserID == nil || *student.UserID != requesterUserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "results belong to another student")
		}
	}

	results, _, err := s.repo.List(ctx, models.ResultFilter{EnrollmentNo: enrollmentNo, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return results, nil
}

// Delete removes one result.
func (s *ResultService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete result")
	}
	return nil
}

// DeleteBatch removes every result uploaded in one batch.
func (s *ResultService) DeleteBatch(ctx context.Context, uploadBatch string) (int, error) {
	deleted, err := s.repo.DeleteBatch(ctx, uploadBatch)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete batch")
	}
	if deleted == 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "upload batch not found")
	}
	return deleted, nil
}

// Batches summarises past uploads.
func (s *ResultService) Batches(ctx context.Context) ([]models.ResultBatch, error) {
	batches, err := s.repo.ListBatches(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	return batches, nil
}

// Analysis aggregates pass statistics grouped by branch and semester.
func (s *ResultService) Analysis(ctx context.Context, academicYear string, examID *int) ([]models.ResultAnalysisRow, error) {
	rows, err := s.repo.Analysis(ctx, academicYear, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute analysis")
	}
	return rows, nil
}

// Import reads university result CSV rows, upserting by enrollment number,
// exam and semester. Subject columns SUB1..SUBn are folded into child rows.
// Every import run gets its own upload batch for later rollback.
func (s *ResultService) Import(ctx context.Context, reader io.Reader) (*ResultImportReport, error) {
	rows, err := csvio.ReadAll(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFile.Code, appErrors.ErrInvalidFile.Status, "failed to parse csv")
	}

	report := &ResultImportReport{UploadBatch: uuid.NewString()}
	for _, row := range rows {
		enrollmentNo := strings.TrimSpace(row.Get("enrollment_no", "map_number"))
		if enrollmentNo == "" {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "missing enrollment number"})
			continue
		}
		name := strings.TrimSpace(row.Get("name", "student_name"))
		if name == "" {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "missing student name"})
			continue
		}
		semester := row.Int(0, "sem", "semester")
		if semester < 1 || semester > 8 {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "invalid semester"})
			continue
		}

		res := &models.Result{
			EnrollmentNo:   enrollmentNo,
			StudentName:    name,
			Exam:           strings.TrimSpace(row.Get("exam", "exam_name")),
			Semester:       semester,
			SPI:            row.Float(0, "spi"),
			CPI:            row.Float(0, "cpi"),
			ResultStatus:   strings.ToUpper(strings.TrimSpace(row.Get("result", "result_status"))),
			CurrentBacklog: row.Int(0, "current_backlog", "curbackl"),
			TotalBacklog:   row.Int(0, "total_backlog", "totbackl"),
			Trials:         row.Int(1, "trials", "trial"),
			UploadBatch:    report.UploadBatch,
		}
		if res.ResultStatus == "" {
			res.ResultStatus = models.ResultStatusFail
			report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "missing result status, assumed FAIL"})
		}
		if raw := row.Get("exam_id", "examid"); raw != "" {
			if id, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				res.ExamID = &id
			}
		}
		setOptional(&res.BranchName, row.Get("branch_name", "br_name"))
		setOptional(&res.BranchCode, row.Get("branch_code", "br_code"))
		setOptional(&res.AcademicYear, row.Get("academic_year", "year"))
		setOptional(&res.Remark, row.Get("remark"))
		if cgpa := row.Float(-1, "cgpa"); cgpa >= 0 {
			res.CGPA = &cgpa
		}
		if credits := row.Float(-1, "total_credits", "spiptotal"); credits >= 0 {
			res.TotalCredits = &credits
		}
		if earned := row.Float(-1, "earned_credits", "spipearn"); earned >= 0 {
			res.EarnedCredits = &earned
		}
		if raw := strings.TrimSpace(row.Get("declaration_date", "declared_on")); raw != "" {
			if ts, perr := parseDeclarationDate(raw); perr == nil {
				res.DeclarationAt = &ts
			} else {
				report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "unrecognised declaration date"})
			}
		}
		res.Subjects = foldSubjects(row)

		if student, err := s.students.FindByEnrollmentNo(ctx, enrollmentNo); err == nil {
			res.StudentID = &student.ID
		} else if !errors.Is(err, sql.ErrNoRows) {
			report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "student lookup failed, stored unlinked"})
		}

		existing, err := s.repo.FindByNaturalKey(ctx, enrollmentNo, res.ExamID, semester)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "lookup failed"})
			continue
		}

		if existing != nil {
			res.ID = existing.ID
			res.CreatedAt = existing.CreatedAt
			if err := s.repo.Update(ctx, res); err != nil {
				report.Skipped++
				report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "update failed"})
				continue
			}
			report.Updated++
			continue
		}

		if err := s.repo.Create(ctx, res); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "create failed"})
			continue
		}
		report.Created++
	}

	s.metrics.RecordImportRows("results", report.Created, report.Updated, report.Skipped)
	return report, nil
}

// ExportDataset collects results as a tabular dataset.
func (s *ResultService) ExportDataset(ctx context.Context, filter models.ResultFilter) (*export.Dataset, error) {
	filter.Page = 1
	filter.PageSize = 100
	ds := &export.Dataset{Headers: []string{"id", "enrollment_no", "student_name", "exam", "semester", "branch_name", "spi", "cpi", "result_status", "current_backlog", "upload_batch"}}
	for {
		results, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export results")
		}
		for _, r := range results {
			ds.Rows = append(ds.Rows, map[string]string{
				"id":              r.ID,
				"enrollment_no":   r.EnrollmentNo,
				"student_name":    r.StudentName,
				"exam":            r.Exam,
				"semester":        strconv.Itoa(r.Semester),
				"branch_name":     derefString(r.BranchName),
				"spi":             strconv.FormatFloat(r.SPI, 'f', 2, 64),
				"cpi":             strconv.FormatFloat(r.CPI, 'f', 2, 64),
				"result_status":   r.ResultStatus,
				"current_backlog": strconv.Itoa(r.CurrentBacklog),
				"upload_batch":    r.UploadBatch,
			})
		}
		if len(ds.Rows) >= total || len(results) == 0 {
			break
		}
		filter.Page++
	}
	return ds, nil
}

// declarationLayouts covers the date formats seen in university result
// sheets, oldest exports first.
var declarationLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006", time.RFC3339}

func parseDeclarationDate(raw string) (time.Time, error) {
	for _, layout := range declarationLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", raw)
}

// foldSubjects walks the SUB{n} column families of the university export.
// A subject is present when its code column is non-empty.
func foldSubjects(row csvio.Row) []models.ResultSubject {
	var subjects []models.ResultSubject
	for i := 1; i <= maxResultSubjects; i++ {
		code := strings.TrimSpace(row.Get(fmt.Sprintf("sub%d", i)))
		if code == "" {
			continue
		}
		subject := models.ResultSubject{
			Code:    code,
			Name:    strings.TrimSpace(row.Get(fmt.Sprintf("sub%dna", i))),
			Credits: row.Float(0, fmt.Sprintf("sub%dcr", i)),
			Grade:   strings.ToUpper(strings.TrimSpace(row.Get(fmt.Sprintf("sub%dgr", i)))),
		}
		if theory := strings.TrimSpace(row.Get(fmt.Sprintf("sub%dgrth", i))); theory != "" {
			subject.TheoryGrade = &theory
		}
		if practical := strings.TrimSpace(row.Get(fmt.Sprintf("sub%dgrpr", i))); practical != "" {
			subject.PractGrade = &practical
		}
		subject.IsBacklog = subject.Grade == "FF"
		subjects = append(subjects, subject)
	}
	return subjects
}
