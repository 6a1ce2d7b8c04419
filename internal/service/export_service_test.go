package service

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/export"
	"github.com/gppalanpur/portal-api/pkg/jobs"
	"github.com/gppalanpur/portal-api/pkg/storage"
)

type mockReportJobRepo struct {
	jobs map[string]*models.ReportJob
}

func newMockReportJobRepo() *mockReportJobRepo {
	return &mockReportJobRepo{jobs: make(map[string]*models.ReportJob)}
}

func (m *mockReportJobRepo) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockReportJobRepo) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (m *mockReportJobRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range m.jobs {
		if job.RequestedBy != nil && *job.RequestedBy == userID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockReportJobRepo) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	if job, ok := m.jobs[id]; ok {
		job.Status = models.JobStatusProcessing
		job.StartedAt = &startedAt
	}
	return nil
}

func (m *mockReportJobRepo) MarkCompleted(ctx context.Context, id, filePath, fileName string, fileSize int64, completedAt time.Time) error {
	if job, ok := m.jobs[id]; ok {
		job.Status = models.JobStatusCompleted
		job.FilePath = &filePath
		job.FileName = &fileName
		job.FileSize = &fileSize
		job.CompletedAt = &completedAt
	}
	return nil
}

func (m *mockReportJobRepo) MarkFailed(ctx context.Context, id, message string, completedAt time.Time) error {
	if job, ok := m.jobs[id]; ok {
		job.Status = models.JobStatusFailed
		job.ErrorMsg = &message
		job.CompletedAt = &completedAt
	}
	return nil
}

func (m *mockReportJobRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	var paths []string
	for id, job := range m.jobs {
		if job.CreatedAt.Before(cutoff) {
			if job.FilePath != nil {
				paths = append(paths, *job.FilePath)
			}
			delete(m.jobs, id)
		}
	}
	return paths, nil
}

type datasetStub struct{}

func (datasetStub) ExportDataset(ctx context.Context, filter models.UserFilter) (*export.Dataset, error) {
	return &export.Dataset{
		Headers: []string{"id", "email"},
		Rows:    []map[string]string{{"id": "u1", "email": "a@example.com"}},
	}, nil
}

func stubSources() ExportSources {
	return ExportSources{Users: datasetStub{}}
}

func newExportServiceForTest(t *testing.T) (*ExportService, *mockReportJobRepo, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	repo := newMockReportJobRepo()
	svc := NewExportService(repo, stubSources(), store, signer, nil, validator.New(), zap.NewNop(), ExportServiceConfig{FileRetention: time.Hour})
	return svc, repo, store
}

func TestExportServiceProcessCSV(t *testing.T) {
	svc, repo, store := newExportServiceForTest(t)
	requester := "u1"
	job := &models.ReportJob{ID: "job-1", Resource: models.ExportResourceUsers, Format: models.ExportFormatCSV, RequestedBy: &requester, CreatedAt: time.Now()}
	repo.jobs[job.ID] = job

	err := svc.process(context.Background(), jobs.Job{ID: job.ID, Type: "export", Payload: job.ID})
	require.NoError(t, err)

	stored := repo.jobs[job.ID]
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.FilePath)

	info, err := os.Stat(store.Path(*stored.FilePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceProcessPDF(t *testing.T) {
	svc, repo, _ := newExportServiceForTest(t)
	job := &models.ReportJob{ID: "job-2", Resource: models.ExportResourceUsers, Format: models.ExportFormatPDF, CreatedAt: time.Now()}
	repo.jobs[job.ID] = job

	err := svc.process(context.Background(), jobs.Job{ID: job.ID, Payload: job.ID})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, repo.jobs[job.ID].Status)
}

func TestExportServiceProcessUnknownResourceFails(t *testing.T) {
	svc, repo, _ := newExportServiceForTest(t)
	job := &models.ReportJob{ID: "job-3", Resource: models.ExportResourceResults, Format: models.ExportFormatCSV, CreatedAt: time.Now()}
	repo.jobs[job.ID] = job

	err := svc.process(context.Background(), jobs.Job{ID: job.ID, Payload: job.ID})
	require.NoError(t, err)
	stored := repo.jobs[job.ID]
	assert.Equal(t, models.JobStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMsg)
}

func TestExportServiceCreateJobValidation(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	_, err := svc.CreateJob(context.Background(), ExportRequest{Resource: "users", Format: "xlsx"}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceGetJobOwnership(t *testing.T) {
	svc, repo, _ := newExportServiceForTest(t)
	owner := "u1"
	repo.jobs["job-1"] = &models.ReportJob{ID: "job-1", Resource: models.ExportResourceUsers, Format: models.ExportFormatCSV, Status: models.JobStatusPending, RequestedBy: &owner}

	_, err := svc.GetJob(context.Background(), "job-1", "someone-else", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	job, err := svc.GetJob(context.Background(), "job-1", "someone-else", true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
}

func TestExportServiceSignedDownload(t *testing.T) {
	svc, repo, store := newExportServiceForTest(t)
	owner := "u1"
	job := &models.ReportJob{ID: "job-1", Resource: models.ExportResourceUsers, Format: models.ExportFormatCSV, RequestedBy: &owner, CreatedAt: time.Now()}
	repo.jobs[job.ID] = job
	require.NoError(t, svc.process(context.Background(), jobs.Job{ID: job.ID, Payload: job.ID}))

	fetched, err := svc.GetJob(context.Background(), job.ID, owner, false)
	require.NoError(t, err)
	require.Contains(t, fetched.DownloadURL, "token=")
	token := fetched.DownloadURL[strings.Index(fetched.DownloadURL, "token=")+len("token="):]

	resolved, path, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, job.ID, resolved.ID)
	assert.Equal(t, store.Path(*resolved.FilePath), path)
}

func TestExportServiceCleanup(t *testing.T) {
	svc, repo, store := newExportServiceForTest(t)
	rel, err := store.Save("stale.csv", []byte("id\n1\n"))
	require.NoError(t, err)
	repo.jobs["old"] = &models.ReportJob{ID: "old", Resource: models.ExportResourceUsers, Format: models.ExportFormatCSV, Status: models.JobStatusCompleted, FilePath: &rel, CreatedAt: time.Now().Add(-48 * time.Hour)}

	require.NoError(t, svc.Cleanup(context.Background()))
	assert.Empty(t, repo.jobs)
	_, err = os.Stat(store.Path(rel))
	assert.True(t, os.IsNotExist(err))
}
