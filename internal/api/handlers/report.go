package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"evm-report/internal/api/models"
	"evm-report/internal/config"
	"evm-report/internal/data"
	"evm-report/internal/evm"
	"evm-report/internal/export"
	"evm-report/internal/format"
	"evm-report/internal/model"
	"evm-report/internal/report"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
	defaultTicks    = 5
)

// ReportSource fetches the raw periods of a report.
type ReportSource interface {
	FetchReport(ctx context.Context, q data.ReportQuery) ([]model.RawPeriodRecord, error)
}

// ReportHandler serves the derived report and its presentations.
type ReportHandler struct {
	source   ReportSource
	agg      *evm.Aggregator
	num      *format.Formatter
	exporter *export.Exporter
	title    string
	log      *zap.Logger
}

// NewReportHandler creates a report handler
func NewReportHandler(source ReportSource, cfg *config.Config, log *zap.Logger) *ReportHandler {
	if log == nil {
		log = zap.NewNop()
	}
	agg := cfg.Aggregator()
	return &ReportHandler{
		source:   source,
		agg:      agg,
		num:      format.New(cfg.Report.Locale),
		exporter: export.New(agg, cfg.ExportOptions(), log),
		title:    cfg.Report.ExportTitle(),
		log:      log,
	}
}

// GetReport handles GET /api/v1/report
func (h *ReportHandler) GetReport(c *gin.Context) {
	var req models.ReportRequest
	if !bindQuery(c, &req) {
		return
	}
	rep, ok := h.load(c, req)
	if !ok {
		return
	}

	remarks := make([]evm.Remark, len(rep.Rows))
	for i, r := range rep.Rows {
		remarks[i] = evm.ClassifyRecord(r)
	}
	c.JSON(http.StatusOK, models.ReportResponse{
		ProjectID: req.ProjectID,
		Date:      req.Date,
		Count:     len(rep.Rows),
		Rows:      rep.Rows,
		Remarks:   remarks,
		Totals:    rep.Totals.Values,
		Policies:  h.agg.Policies(),
	})
}

// GetTable handles GET /api/v1/report/table
func (h *ReportHandler) GetTable(c *gin.Context) {
	var req models.TableRequest
	if !bindQuery(c, &req) {
		return
	}
	rep, ok := h.load(c, req.ReportRequest)
	if !ok {
		return
	}
	tbl, err := report.BuildTable(rep.Rows, h.agg, h.num, report.TableOptions{SortBy: req.Sort, Desc: req.Desc})
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_SORT",
				Message: err.Error(),
			},
		})
		return
	}
	c.JSON(http.StatusOK, tbl)
}

// GetChart handles GET /api/v1/report/chart
func (h *ReportHandler) GetChart(c *gin.Context) {
	var req models.ChartRequest
	if !bindQuery(c, &req) {
		return
	}
	rep, ok := h.load(c, req.ReportRequest)
	if !ok {
		return
	}
	n := req.Ticks
	if n <= 0 {
		n = defaultTicks
	}
	chart := report.BuildChart(rep.Rows)
	c.JSON(http.StatusOK, models.ChartResponse{Chart: chart, Ticks: chart.Ticks(n)})
}

// Export handles GET /api/v1/report/export
func (h *ReportHandler) Export(c *gin.Context) {
	var req models.ExportRequest
	if !bindQuery(c, &req) {
		return
	}
	kind := strings.ToLower(req.Format)
	if kind == "" {
		kind = "xlsx"
	}
	if kind != "xlsx" && kind != "csv" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_FORMAT",
				Message: "format must be xlsx or csv",
			},
		})
		return
	}
	rep, ok := h.load(c, req.ReportRequest)
	if !ok {
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = h.title
	}

	var buf bytes.Buffer
	var err error
	name := h.exporter.FileName(title)
	contentType := xlsxContentType
	if kind == "csv" {
		err = h.exporter.WriteCSV(&buf, rep.Rows)
		name = strings.TrimSuffix(name, ".xlsx") + ".csv"
		contentType = csvContentType
	} else {
		err = h.exporter.Write(&buf, rep.Rows, title)
	}
	if errors.Is(err, export.ErrNoData) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NO_DATA",
				Message: "The report has no periods to export",
			},
		})
		return
	}
	if err != nil {
		h.log.Error("export failed", zap.Int("project", req.ProjectID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "EXPORT_FAILED",
				Message: fmt.Sprintf("Failed to build export: %v", err),
			},
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ReportHandler) load(c *gin.Context, req models.ReportRequest) (evm.Report, bool) {
	date, err := data.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_DATE",
				Message: "date must be in YYYY-MM-DD format",
			},
		})
		return evm.Report{}, false
	}

	records, err := h.source.FetchReport(c.Request.Context(), data.ReportQuery{ProjectID: req.ProjectID, Date: date})
	if err != nil {
		h.log.Error("report fetch failed",
			zap.Int("project", req.ProjectID), zap.String("date", req.Date), zap.Error(err))
		writeUpstreamError(c, err)
		return evm.Report{}, false
	}
	return evm.Build(records, h.agg), true
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return false
	}
	return true
}

// writeUpstreamError maps a report service failure onto an HTTP error.
func writeUpstreamError(c *gin.Context, err error) {
	var apiErr *data.APIError
	switch {
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: map[string]interface{}{
					"status_code": apiErr.StatusCode,
				},
			},
		})
	case errors.Is(err, data.ErrMalformedPayload):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "MALFORMED_PAYLOAD",
				Message: "The report service returned an unreadable response",
			},
		})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.JSON(http.StatusGatewayTimeout, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "UPSTREAM_TIMEOUT",
				Message: "The report service did not answer in time",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: err.Error(),
			},
		})
	}
}
