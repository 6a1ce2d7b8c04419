package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

type mockResultRepo struct {
	results map[string]*models.Result
	batches []models.ResultBatch
}

func newMockResultRepo() *mockResultRepo {
	return &mockResultRepo{results: make(map[string]*models.Result)}
}

func (m *mockResultRepo) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, int, error) {
	var out []models.Result
	for _, r := range m.results {
		out = append(out, *r)
	}
	if filter.Page > 1 {
		return nil, len(out), nil
	}
	return out, len(out), nil
}

func (m *mockResultRepo) FindByID(ctx context.Context, id string) (*models.Result, error) {
	r, ok := m.results[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r, nil
}

func (m *mockResultRepo) FindByNaturalKey(ctx context.Context, enrollmentNo string, examID *int, semester int) (*models.Result, error) {
	for _, r := range m.results {
		if r.EnrollmentNo != enrollmentNo || r.Semester != semester {
			continue
		}
		if (r.ExamID == nil) != (examID == nil) {
			continue
		}
		if examID != nil && *r.ExamID != *examID {
			continue
		}
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultRepo) Create(ctx context.Context, res *models.Result) error {
	if res.ID == "" {
		res.ID = "res-" + res.EnrollmentNo
	}
	m.results[res.ID] = res
	return nil
}

func (m *mockResultRepo) Update(ctx context.Context, res *models.Result) error {
	m.results[res.ID] = res
	return nil
}

func (m *mockResultRepo) Delete(ctx context.Context, id string) error {
	delete(m.results, id)
	return nil
}

func (m *mockResultRepo) DeleteBatch(ctx context.Context, uploadBatch string) (int, error) {
	deleted := 0
	for id, r := range m.results {
		if r.UploadBatch == uploadBatch {
			delete(m.results, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockResultRepo) ListBatches(ctx context.Context) ([]models.ResultBatch, error) {
	return m.batches, nil
}

func (m *mockResultRepo) Analysis(ctx context.Context, academicYear string, examID *int) ([]models.ResultAnalysisRow, error) {
	return nil, nil
}

type mockResultStudentRepo struct {
	byEnrollment map[string]*models.Student
}

func (m *mockResultStudentRepo) FindByEnrollmentNo(ctx context.Context, enrollmentNo string) (*models.Student, error) {
	st, ok := m.byEnrollment[enrollmentNo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return st, nil
}

func newResultService(repo *mockResultRepo, students *mockResultStudentRepo) *ResultService {
	if students == nil {
		students = &mockResultStudentRepo{byEnrollment: make(map[string]*models.Student)}
	}
	return NewResultService(repo, students, nil, validator.New(), zap.NewNop())
}

func TestResultServiceImportFoldsSubjects(t *testing.T) {
	repo := newMockResultRepo()
	students := &mockResultStudentRepo{byEnrollment: map[string]*models.Student{
		"20240010": {ID: "s1", EnrollmentNo: "20240010"},
	}}
	svc := newResultService(repo, students)

	csv := strings.Join([]string{
		"map_number,name,sem,exam,spi,cpi,result,SUB1,SUB1NA,SUB1CR,SUB1GR,SUB2,SUB2NA,SUB2CR,SUB2GR",
		"20240010,Patel Raj,3,WINTER 2025,8.2,7.9,PASS,CE0301,Structures,4,AB,CE0302,Surveying,3,FF",
	}, "\n")

	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.NotEmpty(t, report.UploadBatch)

	var stored *models.Result
	for _, r := range repo.results {
		stored = r
	}
	require.NotNil(t, stored)
	assert.Equal(t, report.UploadBatch, stored.UploadBatch)
	require.NotNil(t, stored.StudentID)
	assert.Equal(t, "s1", *stored.StudentID)
	require.Len(t, stored.Subjects, 2)
	assert.Equal(t, "CE0301", stored.Subjects[0].Code)
	assert.False(t, stored.Subjects[0].IsBacklog)
	assert.Equal(t, "CE0302", stored.Subjects[1].Code)
	assert.True(t, stored.Subjects[1].IsBacklog)
}

func TestResultServiceImportUpsertsByNaturalKey(t *testing.T) {
	repo := newMockResultRepo()
	repo.results["r1"] = &models.Result{ID: "r1", EnrollmentNo: "20240010", Semester: 3, SPI: 5.0, UploadBatch: "old-batch", CreatedAt: time.Now().Add(-time.Hour)}
	svc := newResultService(repo, nil)

	csv := "enrollment_no,name,sem,spi,result\n20240010,Patel Raj,3,8.2,PASS\n"
	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, report.Created)

	updated := repo.results["r1"]
	require.NotNil(t, updated)
	assert.Equal(t, 8.2, updated.SPI)
	assert.Equal(t, report.UploadBatch, updated.UploadBatch)
}

func TestResultServiceImportParsesDeclarationDate(t *testing.T) {
	repo := newMockResultRepo()
	svc := newResultService(repo, nil)

	csv := strings.Join([]string{
		"enrollment_no,name,sem,result,declaration_date",
		"20240010,Patel Raj,3,PASS,15-01-2026",
		"20240011,Shah Meera,3,PASS,garbled",
	}, "\n")

	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0].Message, "declaration date")

	for _, r := range repo.results {
		switch r.EnrollmentNo {
		case "20240010":
			require.NotNil(t, r.DeclarationAt)
			assert.Equal(t, time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), *r.DeclarationAt)
		case "20240011":
			assert.Nil(t, r.DeclarationAt)
		}
	}
}

func TestResultServiceImportSkipsBadRows(t *testing.T) {
	repo := newMockResultRepo()
	svc := newResultService(repo, nil)

	csv := strings.Join([]string{
		"enrollment_no,name,sem,result",
		",No Enrollment,3,PASS",
		"20240011,Bad Semester,9,PASS",
		"20240012,Missing Status,2,",
	}, "\n")

	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Warnings, 1)

	var stored *models.Result
	for _, r := range repo.results {
		stored = r
	}
	require.NotNil(t, stored)
	assert.Equal(t, models.ResultStatusFail, stored.ResultStatus)
}

func TestResultServiceDeleteBatch(t *testing.T) {
	repo := newMockResultRepo()
	repo.results["r1"] = &models.Result{ID: "r1", EnrollmentNo: "a", Semester: 1, UploadBatch: "b1"}
	repo.results["r2"] = &models.Result{ID: "r2", EnrollmentNo: "b", Semester: 1, UploadBatch: "b1"}
	repo.results["r3"] = &models.Result{ID: "r3", EnrollmentNo: "c", Semester: 1, UploadBatch: "b2"}
	svc := newResultService(repo, nil)

	deleted, err := svc.DeleteBatch(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Len(t, repo.results, 1)
}

func TestResultServiceDeleteBatchNotFound(t *testing.T) {
	svc := newResultService(newMockResultRepo(), nil)

	_, err := svc.DeleteBatch(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResultServiceExportDataset(t *testing.T) {
	repo := newMockResultRepo()
	branch := "Civil Engineering"
	repo.results["r1"] = &models.Result{ID: "r1", EnrollmentNo: "20240010", StudentName: "Patel Raj", Semester: 3, SPI: 8.25, CPI: 7.9, ResultStatus: "PASS", BranchName: &branch, UploadBatch: "b1"}
	svc := newResultService(repo, nil)

	ds, err := svc.ExportDataset(context.Background(), models.ResultFilter{})
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "8.25", ds.Rows[0]["spi"])
	assert.Equal(t, "Civil Engineering", ds.Rows[0]["branch_name"])
}

func TestResultServiceListByEnrollment(t *testing.T) {
	repo := newMockResultRepo()
	repo.results["r1"] = &models.Result{ID: "r1", EnrollmentNo: "226260311001", Semester: 3}
	owner := "u1"
	students := &mockResultStudentRepo{byEnrollment: map[string]*models.Student{
		"226260311001": {ID: "s1", EnrollmentNo: "226260311001", UserID: &owner},
	}}
	svc := newResultService(repo, students)

	results, err := svc.ListByEnrollment(context.Background(), "226260311001", "u1", false)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = svc.ListByEnrollment(context.Background(), "226260311001", "u2", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	results, err = svc.ListByEnrollment(context.Background(), "226260311001", "u2", true)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
