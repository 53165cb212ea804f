package models

import (
	"evm-report/internal/evm"
	"evm-report/internal/model"
	"evm-report/internal/report"
)

// ReportResponse is the derived report of one project.
type ReportResponse struct {
	ProjectID int                         `json:"project_id"`
	Date      string                      `json:"date"`
	Count     int                         `json:"count"`
	Rows      []model.DerivedPeriodRecord `json:"rows"`
	Remarks   []evm.Remark                `json:"remarks"`
	Totals    map[evm.Column]float64      `json:"totals"`
	Policies  map[evm.Column]evm.Policy   `json:"policies"`
}

// ChartResponse is the chart plus precomputed y-axis ticks.
type ChartResponse struct {
	report.Chart
	Ticks []report.Tick `json:"ticks,omitempty"`
}

// ProjectInfo is one project in a search result.
type ProjectInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// ProjectsResponse is a project search result. Source is "upstream" or
// "snapshot" when the upstream search failed.
type ProjectsResponse struct {
	Projects  []ProjectInfo `json:"projects"`
	Count     int           `json:"count"`
	Source    string        `json:"source"`
	UpdatedAt string        `json:"updated_at,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
