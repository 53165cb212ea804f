package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evm-report/internal/dash"
	"evm-report/internal/data"
	"evm-report/internal/export"
	"evm-report/internal/format"
	"evm-report/internal/model"
)

func newProjectsCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Search active projects by name or code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.upstream().SearchProjects(cmd.Context(), search)
			if err != nil {
				list, snapErr := data.LoadProjects(a.cfg.ProjectsFile)
				if snapErr != nil {
					return fmt.Errorf("search projects: %w", err)
				}
				a.log.Warn("project search failed, using snapshot",
					zap.String("snapshot", a.cfg.ProjectsFile),
					zap.String("updated_at", list.UpdatedAt),
					zap.Error(err))
				projects = list.Filter(search)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dash.RenderProjects(projects))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Name or code fragment")
	return cmd
}

func newDashCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Interactive report dashboard",
		Long: `Opens the terminal dashboard: search a project, pick a date, and browse
the report table or chart. Keys: tab moves between fields, s and d sort the
table, c toggles the chart, x exports to --out, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			up := a.upstream()
			agg := a.cfg.Aggregator()
			return dash.Run(cmd.Context(), dash.Deps{
				Projects:   up,
				Reports:    up,
				Exporter:   export.New(agg, a.cfg.ExportOptions(), a.log),
				Formatter:  format.New(a.cfg.Report.Locale),
				Aggregator: agg,
				Title:      a.cfg.Report.Title,
				ExportDir:  outDir,
				Log:        a.log,
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Export directory")
	cmd.Flags().StringVar(&a.dashLog, "log", "evm-dash.log", "Log file")
	return cmd
}

// fileSource serves a saved report payload for every project. Projects come
// from the snapshot, or a single entry named after the payload file when
// there is none.
type fileSource struct {
	path     string
	snapshot string
}

func (s *fileSource) FetchReport(ctx context.Context, _ data.ReportQuery) ([]model.RawPeriodRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data.LoadRecordsJSON(s.path)
}

func (s *fileSource) SearchProjects(ctx context.Context, term string) ([]model.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if list, err := data.LoadProjects(s.snapshot); err == nil {
		return list.Filter(term), nil
	}
	name := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	local := &data.ProjectList{Projects: []model.Project{{ID: 1, Name: name, Code: "local"}}}
	return local.Filter(term), nil
}
