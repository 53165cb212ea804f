package models

// ReportRequest selects a report. Bound from the query string.
type ReportRequest struct {
	ProjectID int    `form:"project" binding:"required,min=1"`
	Date      string `form:"date" binding:"required"` // YYYY-MM-DD
}

// TableRequest is ReportRequest plus row ordering.
type TableRequest struct {
	ReportRequest
	Sort string `form:"sort"` // column key, e.g. "SchedulePerformanceIndex" or "Remark"
	Desc bool   `form:"desc"`
}

// ChartRequest is ReportRequest plus the wanted y-axis tick count.
type ChartRequest struct {
	ReportRequest
	Ticks int `form:"ticks" binding:"omitempty,min=2,max=50"` // default: 5
}

// ExportRequest is ReportRequest plus the download shape.
type ExportRequest struct {
	ReportRequest
	Title  string `form:"title"`  // default: report.title from config
	Format string `form:"format"` // "xlsx" (default) or "csv"
}
