package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evm-report/internal/config"
	"evm-report/internal/data"
	"evm-report/internal/logging"
	"evm-report/internal/model"
)

// app carries the global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath string
	dataPath   string
	verbose    bool
	dashLog    string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	defaultConfig := os.Getenv("CONFIG_FILE")
	if defaultConfig == "" {
		defaultConfig = config.DefaultPath
	}

	root := &cobra.Command{
		Use:   "evm",
		Short: "Earned value management reports",
		Long: `evm fetches the monthly earned value report of a project, derives the
cumulative values and indices, and prints, charts or exports it.

With --data the report is read from a saved payload instead of the report
service, and no baseUrl is needed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfig, "Path to config.json")
	root.PersistentFlags().StringVar(&a.dataPath, "data", "", "Read the report from a saved JSON payload")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newReportCmd(a),
		newChartCmd(a),
		newExportCmd(a),
		newProjectsCmd(a),
		newDashCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.offline() {
		a.cfg, err = config.LoadOffline(a.configPath)
	} else {
		a.cfg, err = config.Load(a.configPath)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The dashboard owns the terminal, so it logs to a file.
	if cmd.Name() == "dash" {
		a.log, err = logging.NewFile(a.dashLog, a.verbose)
	} else {
		a.log, err = logging.New(a.cfg.Server.Env, a.verbose)
	}
	return err
}

func (a *app) offline() bool {
	return a.dataPath != ""
}

// upstream is the report service or the saved payload, depending on --data.
type upstream interface {
	FetchReport(ctx context.Context, q data.ReportQuery) ([]model.RawPeriodRecord, error)
	SearchProjects(ctx context.Context, term string) ([]model.Project, error)
}

func (a *app) upstream() upstream {
	if a.offline() {
		return &fileSource{path: a.dataPath, snapshot: a.cfg.ProjectsFile}
	}
	return data.NewClient(a.cfg.BaseURL, a.cfg.Timeout, data.WithLogger(a.log))
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
