package models

import (
	"strings"
	"time"
)

// Faculty represents a staff member's academic profile.
type Faculty struct {
	ID                 string     `db:"id" json:"id"`
	UserID             *string    `db:"user_id" json:"user_id,omitempty"`
	StaffCode          string     `db:"staff_code" json:"staff_code"`
	GTUFacultyID       *string    `db:"gtu_faculty_id" json:"gtu_faculty_id,omitempty"`
	FirstName          *string    `db:"first_name" json:"first_name,omitempty"`
	MiddleName         *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName           *string    `db:"last_name" json:"last_name,omitempty"`
	FullName           string     `db:"full_name" json:"full_name"`
	PersonalEmail      *string    `db:"personal_email" json:"personal_email,omitempty"`
	InstituteEmail     string     `db:"institute_email" json:"institute_email"`
	ContactNumber      *string    `db:"contact_number" json:"contact_number,omitempty"`
	Gender             *string    `db:"gender" json:"gender,omitempty"`
	DateOfBirth        *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	MaritalStatus      *string    `db:"marital_status" json:"marital_status,omitempty"`
	JoiningDate        *time.Time `db:"joining_date" json:"joining_date,omitempty"`
	Designation        *string    `db:"designation" json:"designation,omitempty"`
	JobType            *string    `db:"job_type" json:"job_type,omitempty"`
	StaffCategory      *string    `db:"staff_category" json:"staff_category,omitempty"`
	DepartmentID       *string    `db:"department_id" json:"department_id,omitempty"`
	SpecializationsRaw *string    `db:"specializations" json:"-"`
	Specializations    []string   `db:"-" json:"specializations"`
	Status             string     `db:"status" json:"status"`
	IsHOD              bool       `db:"is_hod" json:"is_hod"`
	AadharNumber       *string    `db:"aadhar_number" json:"aadhar_number,omitempty"`
	PANCardNumber      *string    `db:"pan_card_number" json:"pan_card_number,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`

	Qualifications []FacultyQualification `db:"-" json:"qualifications,omitempty"`
}

// SplitSpecializations expands the stored comma-separated value.
func (f *Faculty) SplitSpecializations() {
	f.Specializations = nil
	if f.SpecializationsRaw == nil {
		return
	}
	for _, s := range strings.Split(*f.SpecializationsRaw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Specializations = append(f.Specializations, s)
		}
	}
}

// JoinSpecializations flattens the slice back to the stored form.
func (f *Faculty) JoinSpecializations() {
	if len(f.Specializations) == 0 {
		f.SpecializationsRaw = nil
		return
	}
	joined := strings.Join(f.Specializations, ",")
	f.SpecializationsRaw = &joined
}

// FacultyQualification represents one earned degree.
type FacultyQualification struct {
	ID          string  `db:"id" json:"id"`
	FacultyID   string  `db:"faculty_id" json:"-"`
	Degree      string  `db:"degree" json:"degree"`
	Field       string  `db:"field" json:"field"`
	Institution *string `db:"institution" json:"institution,omitempty"`
	Year        *int    `db:"year" json:"year,omitempty"`
}

// FacultyFilter holds query parameters for listing faculty.
type FacultyFilter struct {
	Search       string `form:"search"`
	DepartmentID string `form:"department_id"`
	Designation  string `form:"designation"`
	Status       string `form:"status"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	SortBy       string `form:"sort_by"`
	SortOrder    string `form:"sort_order"`
}
