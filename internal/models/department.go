package models

import "time"

// Department represents an academic department.
type Department struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Code            string     `db:"code" json:"code"`
	Description     *string    `db:"description" json:"description,omitempty"`
	HODID           *string    `db:"hod_id" json:"hod_id,omitempty"`
	EstablishedDate *time.Time `db:"established_date" json:"established_date,omitempty"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// DepartmentFilter holds query parameters for listing departments.
type DepartmentFilter struct {
	Search    string `form:"search"`
	IsActive  *bool  `form:"is_active"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// DepartmentStats aggregates headcounts for a department.
type DepartmentStats struct {
	DepartmentID string `db:"department_id" json:"department_id"`
	Name         string `db:"name" json:"name"`
	Code         string `db:"code" json:"code"`
	FacultyCount int    `db:"faculty_count" json:"faculty_count"`
	StudentCount int    `db:"student_count" json:"student_count"`
}
