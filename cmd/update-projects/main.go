package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"evm-report/internal/config"
	"evm-report/internal/data"
	"evm-report/internal/logging"
	"evm-report/internal/model"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath    = flag.String("config", config.DefaultPath, "Path to config.json")
		outputPath = flag.String("output", "", "Output file path (default: projectsFile from the config)")
		search     = flag.String("search", "", "Only keep projects matching this name or code")
		keep       = flag.Bool("keep", true, "Keep projects from the existing snapshot that the service no longer lists")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Server.Env, false)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if *outputPath == "" {
		*outputPath = cfg.ProjectsFile
	}

	var existing []model.Project
	if *keep {
		if list, err := data.LoadProjects(*outputPath); err == nil {
			existing = list.Projects
			fmt.Printf("Loaded %d projects from existing snapshot\n", len(existing))
		}
	}

	client := data.NewClient(cfg.BaseURL, cfg.Timeout, data.WithLogger(logger))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	fmt.Printf("Querying active projects from %s...\n", cfg.BaseURL)
	fetched, err := client.SearchProjects(ctx, *search)
	if err != nil {
		logger.Error("project search failed", zap.Error(err))
		os.Exit(1)
	}

	projects := mergeProjects(existing, fetched)
	list := &data.ProjectList{
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Projects:  projects,
	}
	if err := data.SaveProjects(list, *outputPath); err != nil {
		log.Fatalf("Failed to save projects: %v", err)
	}
	fmt.Printf("Saved %d projects (%d from the service) to %s\n", len(projects), len(fetched), *outputPath)
}

// mergeProjects overlays fetched on existing by id and returns them sorted
// by name, then id.
func mergeProjects(existing, fetched []model.Project) []model.Project {
	byID := make(map[int]model.Project, len(existing)+len(fetched))
	for _, p := range existing {
		byID[p.ID] = p
	}
	for _, p := range fetched {
		byID[p.ID] = p
	}

	out := make([]model.Project, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
