package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ImportIssue reports a skipped or degraded row during a CSV import.
type ImportIssue struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport summarises a bulk CSV import.
type ImportReport struct {
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportIssue `json:"errors,omitempty"`
	Warnings []ImportIssue `json:"warnings,omitempty"`
}
