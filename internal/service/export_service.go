package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
	"github.com/gppalanpur/portal-api/pkg/export"
	"github.com/gppalanpur/portal-api/pkg/jobs"
	"github.com/gppalanpur/portal-api/pkg/storage"
)

type reportJobRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, id, filePath, fileName string, fileSize int64, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, completedAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type exportUserSource interface {
	ExportDataset(ctx context.Context, filter models.UserFilter) (*export.Dataset, error)
}

type exportDepartmentSource interface {
	ExportDataset(ctx context.Context, filter models.DepartmentFilter) (*export.Dataset, error)
}

type exportFacultySource interface {
	ExportDataset(ctx context.Context, filter models.FacultyFilter) (*export.Dataset, error)
}

type exportStudentSource interface {
	ExportDataset(ctx context.Context, filter models.StudentFilter) (*export.Dataset, error)
}

type exportResultSource interface {
	ExportDataset(ctx context.Context, filter models.ResultFilter) (*export.Dataset, error)
}

// ExportSources bundles the per-resource dataset builders.
type ExportSources struct {
	Users       exportUserSource
	Departments exportDepartmentSource
	Faculty     exportFacultySource
	Students    exportStudentSource
	Results     exportResultSource
}

// ExportRequest asks for an asynchronous export of one resource.
type ExportRequest struct {
	Resource string          `json:"resource" validate:"required,oneof=users departments faculty students results"`
	Format   string          `json:"format" validate:"required,oneof=csv pdf"`
	Filters  json.RawMessage `json:"filters,omitempty"`
}

// ExportServiceConfig tunes the background export pipeline.
type ExportServiceConfig struct {
	Workers       int
	QueueSize     int
	FileRetention time.Duration
	// DownloadPath is the route prefix signed download links point at,
	// e.g. "/api/v1/exports/download".
	DownloadPath string
}

// ExportService runs CSV and PDF exports in background workers, storing the
// rendered files on disk and handing out signed download links.
type ExportService struct {
	repo      reportJobRepository
	sources   ExportSources
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	queue        *jobs.Queue
	retention    time.Duration
	downloadPath string
}

// NewExportService constructs an ExportService and its worker queue. Call
// Start before enqueueing jobs and Stop during shutdown.
func NewExportService(repo reportJobRepository, sources ExportSources, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.FileRetention <= 0 {
		cfg.FileRetention = 24 * time.Hour
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/api/v1/exports/download"
	}
	s := &ExportService{
		repo:         repo,
		sources:      sources,
		store:        store,
		signer:       signer,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		retention:    cfg.FileRetention,
		downloadPath: cfg.DownloadPath,
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue and stops the workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// CreateJob records a pending export and enqueues it for processing.
func (s *ExportService) CreateJob(ctx context.Context, req ExportRequest, requestedBy string) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}

	job := &models.ReportJob{
		Resource:   req.Resource,
		Format:     req.Format,
		FiltersRaw: req.Filters,
	}
	if requestedBy != "" {
		job.RequestedBy = &requestedBy
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export", Payload: job.ID}); err != nil {
		now := time.Now().UTC()
		if markErr := s.repo.MarkFailed(ctx, job.ID, "export queue is full", now); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		s.metrics.RecordExportJob(job.Resource, models.JobStatusFailed)
		return nil, appErrors.Clone(appErrors.ErrConflict, "export queue is full, try again later")
	}
	return job, nil
}

// GetJob returns one export job. Non-admin callers only see their own jobs.
func (s *ExportService) GetJob(ctx context.Context, id, requesterID string, privileged bool) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if !privileged && (job.RequestedBy == nil || *job.RequestedBy != requesterID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export job belongs to another user")
	}
	s.attachDownloadURL(job)
	return job, nil
}

// ListJobs returns the caller's recent export jobs.
func (s *ExportService) ListJobs(ctx context.Context, requesterID string, limit int) ([]models.ReportJob, error) {
	list, err := s.repo.ListByUser(ctx, requesterID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list export jobs")
	}
	for i := range list {
		s.attachDownloadURL(&list[i])
	}
	return list, nil
}

// ResolveDownload validates a signed token and returns the job plus the
// absolute path of the rendered file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*models.ReportJob, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.JobStatusCompleted || job.FilePath == nil || *job.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file is not available")
	}
	return job, s.store.Path(relPath), nil
}

// Cleanup deletes expired jobs and their files. Intended to run on a timer.
func (s *ExportService) Cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.retention)
	paths, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired export jobs: %w", err)
	}
	for _, p := range paths {
		if err := s.store.Delete(p); err != nil {
			s.logger.Warn("failed to delete export file", zap.String("path", p), zap.Error(err))
		}
	}
	orphans, err := s.store.CleanupOlderThan(s.retention)
	if err != nil {
		return fmt.Errorf("cleanup export storage: %w", err)
	}
	if len(paths) > 0 || len(orphans) > 0 {
		s.logger.Info("export cleanup finished", zap.Int("jobs", len(paths)), zap.Int("orphan_files", len(orphans)))
	}
	return nil
}

func (s *ExportService) attachDownloadURL(job *models.ReportJob) {
	if job.Status != models.JobStatusCompleted || job.FilePath == nil {
		return
	}
	token, _, err := s.signer.Generate(job.ID, *job.FilePath)
	if err != nil {
		s.logger.Warn("failed to sign download url", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	job.DownloadURL = fmt.Sprintf("%s?token=%s", s.downloadPath, token)
}

func (s *ExportService) process(ctx context.Context, qj jobs.Job) error {
	jobID, _ := qj.Payload.(string)
	if jobID == "" {
		jobID = qj.ID
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	if err := s.repo.MarkProcessing(ctx, job.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export job processing: %w", err)
	}

	data, fileName, err := s.render(ctx, job)
	if err != nil {
		now := time.Now().UTC()
		if markErr := s.repo.MarkFailed(ctx, job.ID, err.Error(), now); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		s.metrics.RecordExportJob(job.Resource, models.JobStatusFailed)
		s.logger.Warn("export job failed", zap.String("job_id", job.ID), zap.String("resource", job.Resource), zap.Error(err))
		return nil
	}

	relPath, err := s.store.Save(fileName, data)
	if err != nil {
		now := time.Now().UTC()
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to store export file", now); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		s.metrics.RecordExportJob(job.Resource, models.JobStatusFailed)
		return nil
	}

	if err := s.repo.MarkCompleted(ctx, job.ID, relPath, fileName, int64(len(data)), time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export job completed: %w", err)
	}
	s.metrics.RecordExportJob(job.Resource, models.JobStatusCompleted)
	s.logger.Info("export job completed",
		zap.String("job_id", job.ID),
		zap.String("resource", job.Resource),
		zap.String("format", job.Format),
		zap.Int("bytes", len(data)))
	return nil
}

func (s *ExportService) render(ctx context.Context, job *models.ReportJob) ([]byte, string, error) {
	ds, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, "", err
	}

	fileName := fmt.Sprintf("%s_%s.%s", job.Resource, job.ID, job.Format)
	switch job.Format {
	case models.ExportFormatCSV:
		data, err := s.csv.Render(*ds)
		if err != nil {
			return nil, "", fmt.Errorf("render csv: %w", err)
		}
		return data, fileName, nil
	case models.ExportFormatPDF:
		data, err := s.pdf.Render(*ds, exportTitle(job.Resource))
		if err != nil {
			return nil, "", fmt.Errorf("render pdf: %w", err)
		}
		return data, fileName, nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", job.Format)
	}
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (*export.Dataset, error) {
	raw := job.FiltersRaw
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	switch job.Resource {
	case models.ExportResourceUsers:
		if s.sources.Users == nil {
			break
		}
		var filter models.UserFilter
		if err := json.Unmarshal(raw, &filter); err != nil {
			return nil, fmt.Errorf("decode filters: %w", err)
		}
		return s.sources.Users.ExportDataset(ctx, filter)
	case models.ExportResourceDepartments:
		if s.sources.Departments == nil {
			break
		}
		var filter models.DepartmentFilter
		if err := json.Unmarshal(raw, &filter); err != nil {
			return nil, fmt.Errorf("decode filters: %w", err)
		}
		return s.sources.Departments.ExportDataset(ctx, filter)
	case models.ExportResourceFaculty:
		if s.sources.Faculty == nil {
			break
		}
		var filter models.FacultyFilter
		if err := json.Unmarshal(raw, &filter); err != nil {
			return nil, fmt.Errorf("decode filters: %w", err)
		}
		return s.sources.Faculty.ExportDataset(ctx, filter)
	case models.ExportResourceStudents:
		if s.sources.Students == nil {
			break
		}
		var filter models.StudentFilter
		if err := json.Unmarshal(raw, &filter); err != nil {
			return nil, fmt.Errorf("decode filters: %w", err)
		}
		return s.sources.Students.ExportDataset(ctx, filter)
	case models.ExportResourceResults:
		if s.sources.Results == nil {
			break
		}
		var filter models.ResultFilter
		if err := json.Unmarshal(raw, &filter); err != nil {
			return nil, fmt.Errorf("decode filters: %w", err)
		}
		return s.sources.Results.ExportDataset(ctx, filter)
	}
	return nil, fmt.Errorf("unsupported export resource %q", job.Resource)
}

func exportTitle(resource string) string {
	switch resource {
	case models.ExportResourceUsers:
		return "Users Export"
	case models.ExportResourceDepartments:
		return "Departments Export"
	case models.ExportResourceFaculty:
		return "Faculty Export"
	case models.ExportResourceStudents:
		return "Students Export"
	case models.ExportResourceResults:
		return "Results Export"
	default:
		return "Export"
	}
}
