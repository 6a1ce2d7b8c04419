package models

import "time"

// Result represents one student's examination result for a semester.
type Result struct {
	ID             string     `db:"id" json:"id"`
	StudentID      *string    `db:"student_id" json:"student_id,omitempty"`
	EnrollmentNo   string     `db:"enrollment_no" json:"enrollment_no"`
	StudentName    string     `db:"student_name" json:"student_name"`
	Exam           string     `db:"exam" json:"exam"`
	ExamID         *int       `db:"exam_id" json:"exam_id,omitempty"`
	Semester       int        `db:"semester" json:"semester"`
	BranchName     *string    `db:"branch_name" json:"branch_name,omitempty"`
	BranchCode     *string    `db:"branch_code" json:"branch_code,omitempty"`
	AcademicYear   *string    `db:"academic_year" json:"academic_year,omitempty"`
	SPI            float64    `db:"spi" json:"spi"`
	CPI            float64    `db:"cpi" json:"cpi"`
	CGPA           *float64   `db:"cgpa" json:"cgpa,omitempty"`
	ResultStatus   string     `db:"result_status" json:"result_status"`
	TotalCredits   *float64   `db:"total_credits" json:"total_credits,omitempty"`
	EarnedCredits  *float64   `db:"earned_credits" json:"earned_credits,omitempty"`
	CurrentBacklog int        `db:"current_backlog" json:"current_backlog"`
	TotalBacklog   int        `db:"total_backlog" json:"total_backlog"`
	Trials         int        `db:"trials" json:"trials"`
	Remark         *string    `db:"remark" json:"remark,omitempty"`
	UploadBatch    string     `db:"upload_batch" json:"upload_batch"`
	DeclarationAt  *time.Time `db:"declaration_date" json:"declaration_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`

	Subjects []ResultSubject `db:"-" json:"subjects,omitempty"`
}

// Result statuses as reported by the university.
const (
	ResultStatusPass = "PASS"
	ResultStatusFail = "FAIL"
)

// ResultSubject is one subject row within a result.
type ResultSubject struct {
	ID          string  `db:"id" json:"id"`
	ResultID    string  `db:"result_id" json:"-"`
	Code        string  `db:"code" json:"code"`
	Name        string  `db:"name" json:"name"`
	Credits     float64 `db:"credits" json:"credits"`
	Grade       string  `db:"grade" json:"grade"`
	IsBacklog   bool    `db:"is_backlog" json:"is_backlog"`
	TheoryGrade *string `db:"theory_grade" json:"theory_grade,omitempty"`
	PractGrade  *string `db:"practical_grade" json:"practical_grade,omitempty"`
}

// ResultFilter holds query parameters for listing results.
type ResultFilter struct {
	Search       string `form:"search"`
	EnrollmentNo string `form:"enrollment_no"`
	Exam         string `form:"exam"`
	Semester     int    `form:"semester"`
	BranchCode   string `form:"branch_code"`
	AcademicYear string `form:"academic_year"`
	UploadBatch  string `form:"upload_batch"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	SortBy       string `form:"sort_by"`
	SortOrder    string `form:"sort_order"`
}

// ResultBatch summarises one CSV upload.
type ResultBatch struct {
	UploadBatch string    `db:"upload_batch" json:"upload_batch"`
	Count       int       `db:"count" json:"count"`
	LatestAt    time.Time `db:"latest_at" json:"latest_at"`
}

// ResultAnalysisRow aggregates pass rates per branch and semester.
type ResultAnalysisRow struct {
	BranchName       string  `db:"branch_name" json:"branch_name"`
	Semester         int     `db:"semester" json:"semester"`
	TotalCount       int     `db:"total_count" json:"total_count"`
	PassCount        int     `db:"pass_count" json:"pass_count"`
	DistinctionCount int     `db:"distinction_count" json:"distinction_count"`
	FirstClassCount  int     `db:"first_class_count" json:"first_class_count"`
	SecondClassCount int     `db:"second_class_count" json:"second_class_count"`
	PassPercent      float64 `db:"pass_percent" json:"pass_percent"`
	AvgSPI           float64 `db:"avg_spi" json:"avg_spi"`
	AvgCPI           float64 `db:"avg_cpi" json:"avg_cpi"`
}
