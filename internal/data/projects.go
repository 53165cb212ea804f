package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"evm-report/internal/model"
)

// ProjectList is the offline project snapshot written by update-projects.
type ProjectList struct {
	UpdatedAt string          `json:"updated_at"` // RFC 3339
	Projects  []model.Project `json:"projects"`
}

// Filter returns the projects matching term, in snapshot order.
func (l *ProjectList) Filter(term string) []model.Project {
	out := []model.Project{}
	if l == nil {
		return out
	}
	for _, p := range l.Projects {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out
}

// LoadProjects loads a project snapshot from a JSON file.
func LoadProjects(filePath string) (*ProjectList, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read projects file: %w", err)
	}

	var list ProjectList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse projects file: %w", err)
	}
	return &list, nil
}

// SaveProjects writes a project snapshot, creating the directory if needed.
func SaveProjects(list *ProjectList, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal projects: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write projects file: %w", err)
	}
	return nil
}
