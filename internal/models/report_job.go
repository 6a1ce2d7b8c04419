package models

import "time"

// Export job statuses.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// Exportable resources.
const (
	ExportResourceUsers       = "users"
	ExportResourceDepartments = "departments"
	ExportResourceFaculty     = "faculty"
	ExportResourceStudents    = "students"
	ExportResourceResults     = "results"
)

// ReportJob tracks an asynchronous export request.
type ReportJob struct {
	ID          string     `db:"id" json:"id"`
	Resource    string     `db:"resource" json:"resource"`
	Format      string     `db:"format" json:"format"`
	Status      string     `db:"status" json:"status"`
	FiltersRaw  []byte     `db:"filters" json:"-"`
	FilePath    *string    `db:"file_path" json:"-"`
	FileName    *string    `db:"file_name" json:"file_name,omitempty"`
	FileSize    *int64     `db:"file_size" json:"file_size,omitempty"`
	ErrorMsg    *string    `db:"error_message" json:"error_message,omitempty"`
	RequestedBy *string    `db:"requested_by" json:"requested_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	DownloadURL string     `db:"-" json:"download_url,omitempty"`
}
