package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evm-report/internal/dash"
	"evm-report/internal/data"
	"evm-report/internal/evm"
	"evm-report/internal/export"
	"evm-report/internal/format"
	"evm-report/internal/report"
)

// selection holds the --project and --date flags shared by the report
// commands.
type selection struct {
	project int
	date    string
}

func (s *selection) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&s.project, "project", "p", 0, "Project id")
	cmd.Flags().StringVarP(&s.date, "date", "d", time.Now().Format(data.DateLayout), "Report date (YYYY-MM-DD)")
}

// load fetches and derives the selected report. With --data the payload
// file stands in for every project, so --project is optional there.
func (a *app) load(cmd *cobra.Command, s *selection) (evm.Report, error) {
	date, err := data.ParseDate(s.date)
	if err != nil {
		return evm.Report{}, err
	}
	project := s.project
	if project <= 0 {
		if !a.offline() {
			return evm.Report{}, fmt.Errorf("--project is required")
		}
		project = 1
	}

	records, err := a.upstream().FetchReport(cmd.Context(), data.ReportQuery{ProjectID: project, Date: date})
	if err != nil {
		return evm.Report{}, fmt.Errorf("fetch report: %w", err)
	}
	rep := evm.Build(records, a.cfg.Aggregator())
	a.log.Debug("report loaded", zap.Int("project", project), zap.Int("rows", len(rep.Rows)))
	return rep, nil
}

func newReportCmd(a *app) *cobra.Command {
	var (
		sel    selection
		sortBy string
		desc   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the report table",
		Long: `Prints one row per period with the cumulative planned value, earned value
and actual cost, the variances and indices, and a remark. The last row is
the Total row.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.load(cmd, &sel)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			agg := a.cfg.Aggregator()
			tbl, err := report.BuildTable(rep.Rows, agg, format.New(a.cfg.Report.Locale), report.TableOptions{
				SortBy: sortBy,
				Desc:   desc,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dash.RenderTable(tbl))
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by column, e.g. SchedulePerformanceIndex or Remark")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the derived rows and totals as JSON")
	return cmd
}

func newChartCmd(a *app) *cobra.Command {
	var (
		sel   selection
		ticks int
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Print the cumulative PV, EV and AC series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.load(cmd, &sel)
			if err != nil {
				return err
			}
			c := report.BuildChart(rep.Rows)
			fmt.Fprintln(cmd.OutOrStdout(), dash.RenderChart(c, c.Ticks(ticks)))
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().IntVar(&ticks, "ticks", 5, "Approximate number of y-axis ticks")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		sel    selection
		outDir string
		kind   string
		title  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the report to an xlsx or csv file",
		Long: `Writes the report as "{title}_{DD-MM-YYYY}_{HH-MM-SS}.xlsx" (or .csv) into
--out and prints the path. Nothing is written when the report is empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind = strings.ToLower(kind)
			if kind != "xlsx" && kind != "csv" {
				return fmt.Errorf("--format must be xlsx or csv, got %q", kind)
			}
			rep, err := a.load(cmd, &sel)
			if err != nil {
				return err
			}
			if title == "" {
				title = a.cfg.Report.ExportTitle()
			}

			exp := export.New(a.cfg.Aggregator(), a.cfg.ExportOptions(), a.log)
			var path string
			if kind == "csv" {
				path, err = writeCSV(exp, outDir, title, rep)
			} else {
				path, err = exp.WriteFile(outDir, rep.Rows, title)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	sel.bind(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().StringVarP(&kind, "format", "f", "xlsx", "xlsx or csv")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Report title (default report.title)")
	return cmd
}

func writeCSV(exp *export.Exporter, dir, title string, rep evm.Report) (string, error) {
	if len(rep.Rows) == 0 {
		return "", export.ErrNoData
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, strings.TrimSuffix(exp.FileName(title), ".xlsx")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := exp.WriteCSV(f, rep.Rows); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}
