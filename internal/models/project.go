package models

import "time"

// Project statuses.
const (
	ProjectStatusDraft     = "draft"
	ProjectStatusSubmitted = "submitted"
	ProjectStatusApproved  = "approved"
	ProjectStatusEvaluated = "evaluated"
	ProjectStatusRejected  = "rejected"
)

// Event statuses.
const (
	EventStatusUpcoming  = "upcoming"
	EventStatusOngoing   = "ongoing"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

// Project represents a project-fair entry.
type Project struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Category      string    `db:"category" json:"category"`
	Abstract      string    `db:"abstract" json:"abstract"`
	Requirements  *string   `db:"requirements" json:"requirements,omitempty"`
	DepartmentID  string    `db:"department_id" json:"department_id"`
	TeamID        string    `db:"team_id" json:"team_id"`
	EventID       string    `db:"event_id" json:"event_id"`
	GuideUserID   *string   `db:"guide_user_id" json:"guide_user_id,omitempty"`
	PowerRequired bool      `db:"power_required" json:"power_required"`
	InternetNeed  bool      `db:"internet_required" json:"internet_required"`
	SpecialSpace  bool      `db:"special_space_required" json:"special_space_required"`
	Status        string    `db:"status" json:"status"`
	CreatedBy     *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	DeptEvaluation    *ProjectEvaluation `db:"-" json:"dept_evaluation,omitempty"`
	CentralEvaluation *ProjectEvaluation `db:"-" json:"central_evaluation,omitempty"`
}

// ProjectEvaluation holds one jury's score for a project.
type ProjectEvaluation struct {
	ProjectID   string     `db:"project_id" json:"-"`
	Stage       string     `db:"stage" json:"stage"`
	Completed   bool       `db:"completed" json:"completed"`
	Score       *float64   `db:"score" json:"score,omitempty"`
	Feedback    *string    `db:"feedback" json:"feedback,omitempty"`
	JuryUserID  *string    `db:"jury_user_id" json:"jury_user_id,omitempty"`
	EvaluatedAt *time.Time `db:"evaluated_at" json:"evaluated_at,omitempty"`
}

// Evaluation stages.
const (
	EvaluationStageDept    = "department"
	EvaluationStageCentral = "central"
)

// ProjectTeam represents a group of students behind a project.
type ProjectTeam struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	EventID      string    `db:"event_id" json:"event_id"`
	CreatedBy    *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Members []TeamMember `db:"-" json:"members,omitempty"`
}

// TeamMember represents one student in a team.
type TeamMember struct {
	ID           string `db:"id" json:"id"`
	TeamID       string `db:"team_id" json:"-"`
	UserID       string `db:"user_id" json:"user_id"`
	Name         string `db:"name" json:"name"`
	EnrollmentNo string `db:"enrollment_no" json:"enrollment_no"`
	Role         string `db:"role" json:"role"`
	IsLeader     bool   `db:"is_leader" json:"is_leader"`
}

// ProjectEvent represents a project fair edition.
type ProjectEvent struct {
	ID                string              `db:"id" json:"id"`
	Name              string              `db:"name" json:"name"`
	AcademicYear      string              `db:"academic_year" json:"academic_year"`
	EventDate         time.Time           `db:"event_date" json:"event_date"`
	RegistrationStart time.Time           `db:"registration_start" json:"registration_start"`
	RegistrationEnd   time.Time           `db:"registration_end" json:"registration_end"`
	IsActive          bool                `db:"is_active" json:"is_active"`
	Status            string              `db:"status" json:"status"`
	PublishResults    bool                `db:"publish_results" json:"publish_results"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
	ScheduleRaw       []byte              `db:"schedule" json:"-"`
	Schedule          []EventScheduleItem `db:"-" json:"schedule,omitempty"`
}

// EventScheduleItem is one slot in an event's day plan.
type EventScheduleItem struct {
	Time        string `json:"time"`
	Activity    string `json:"activity"`
	Location    string `json:"location"`
	Coordinator string `json:"coordinator,omitempty"`
}

// ProjectFilter holds query parameters for listing projects.
type ProjectFilter struct {
	Search       string `form:"search"`
	DepartmentID string `form:"department_id"`
	EventID      string `form:"event_id"`
	Category     string `form:"category"`
	Status       string `form:"status"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	SortBy       string `form:"sort_by"`
	SortOrder    string `form:"sort_order"`
}

// ProjectStatistics aggregates counts for dashboards.
type ProjectStatistics struct {
	Total        int            `json:"total"`
	Evaluated    int            `json:"evaluated"`
	Pending      int            `json:"pending"`
	AverageScore float64        `json:"average_score"`
	ByDepartment map[string]int `json:"by_department"`
	ByCategory   map[string]int `json:"by_category"`
	ByStatus     map[string]int `json:"by_status"`
}

// ProjectWinner is one ranked entry in an event's results. Score is
// omitted for callers who may not see raw jury marks.
type ProjectWinner struct {
	Rank       int      `json:"rank"`
	ProjectID  string   `json:"project_id"`
	Title      string   `json:"title"`
	TeamName   string   `json:"team_name"`
	Department string   `json:"department"`
	Score      *float64 `json:"score,omitempty"`
}
