package models

import "time"

// Semester clearance states.
const (
	SemStatusCleared      = "CLEARED"
	SemStatusPending      = "PENDING"
	SemStatusNotAttempted = "NOT_ATTEMPTED"
)

// Student statuses.
const (
	StudentStatusActive     = "active"
	StudentStatusInactive   = "inactive"
	StudentStatusGraduated  = "graduated"
	StudentStatusDroppedOut = "dropped"
)

// Student represents an enrolled student's academic profile.
type Student struct {
	ID                string     `db:"id" json:"id"`
	UserID            *string    `db:"user_id" json:"user_id,omitempty"`
	EnrollmentNo      string     `db:"enrollment_no" json:"enrollment_no"`
	FirstName         *string    `db:"first_name" json:"first_name,omitempty"`
	MiddleName        *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName          *string    `db:"last_name" json:"last_name,omitempty"`
	FullName          string     `db:"full_name" json:"full_name"`
	PersonalEmail     *string    `db:"personal_email" json:"personal_email,omitempty"`
	InstituteEmail    string     `db:"institute_email" json:"institute_email"`
	ContactNumber     *string    `db:"contact_number" json:"contact_number,omitempty"`
	Gender            *string    `db:"gender" json:"gender,omitempty"`
	DateOfBirth       *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	DepartmentID      *string    `db:"department_id" json:"department_id,omitempty"`
	ProgramID         *string    `db:"program_id" json:"program_id,omitempty"`
	CurrentSemester   int        `db:"current_semester" json:"current_semester"`
	AdmissionDate     *time.Time `db:"admission_date" json:"admission_date,omitempty"`
	Category          *string    `db:"category" json:"category,omitempty"`
	Shift             *string    `db:"shift" json:"shift,omitempty"`
	IsComplete        bool       `db:"is_complete" json:"is_complete"`
	TermClose         bool       `db:"term_close" json:"term_close"`
	IsCancel          bool       `db:"is_cancel" json:"is_cancel"`
	IsPassAll         bool       `db:"is_pass_all" json:"is_pass_all"`
	Convocation       *string    `db:"convocation_year" json:"convocation_year,omitempty"`
	AadharNumber      *string    `db:"aadhar_number" json:"aadhar_number,omitempty"`
	Status            string     `db:"status" json:"status"`
	GuardianName      *string    `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianRelation  *string    `db:"guardian_relation" json:"guardian_relation,omitempty"`
	GuardianContact   *string    `db:"guardian_contact" json:"guardian_contact,omitempty"`
	GuardianOccupaton *string    `db:"guardian_occupation" json:"guardian_occupation,omitempty"`
	GuardianIncome    *float64   `db:"guardian_income" json:"guardian_income,omitempty"`
	Address           *string    `db:"address" json:"address,omitempty"`
	City              *string    `db:"city" json:"city,omitempty"`
	State             *string    `db:"state" json:"state,omitempty"`
	Pincode           *string    `db:"pincode" json:"pincode,omitempty"`
	Sem1Status        string     `db:"sem1_status" json:"sem1_status"`
	Sem2Status        string     `db:"sem2_status" json:"sem2_status"`
	Sem3Status        string     `db:"sem3_status" json:"sem3_status"`
	Sem4Status        string     `db:"sem4_status" json:"sem4_status"`
	Sem5Status        string     `db:"sem5_status" json:"sem5_status"`
	Sem6Status        string     `db:"sem6_status" json:"sem6_status"`
	Sem7Status        string     `db:"sem7_status" json:"sem7_status"`
	Sem8Status        string     `db:"sem8_status" json:"sem8_status"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter holds query parameters for listing students.
type StudentFilter struct {
	Search       string `form:"search"`
	DepartmentID string `form:"department_id"`
	Semester     int    `form:"semester"`
	Status       string `form:"status"`
	Category     string `form:"category"`
	Shift        string `form:"shift"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	SortBy       string `form:"sort_by"`
	SortOrder    string `form:"sort_order"`
}

// StudentSyncReport summarises a sync run that creates student records for
// student-role accounts and provisions accounts for unlinked records.
type StudentSyncReport struct {
	Scanned        int      `json:"scanned"`
	RecordsCreated int      `json:"records_created"`
	AccountsLinked int      `json:"accounts_linked"`
	Created        int      `json:"created"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors,omitempty"`
}
