package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evm-report/internal/data"
	"evm-report/internal/evm"
	"evm-report/internal/export"
	"evm-report/internal/model"
)

const payload = `{"ResultData":"[{\"MonthYear\":\"Jan-24\",\"PV\":100,\"EV\":80,\"AC\":90,\"ExecutedValue\":50,\"SellingPrice\":200},{\"MonthYear\":\"Feb-24\",\"PV\":100,\"EV\":120,\"AC\":100,\"ExecutedValue\":60,\"SellingPrice\":200}]"}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("EVM_BASE_URL", "")
	t.Setenv("API_ENV", "")
	if os.Getenv("PROJECTS_FILE") == "" {
		t.Setenv("PROJECTS_FILE", filepath.Join(t.TempDir(), "projects.json"))
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func offline(t *testing.T, body string, args ...string) (string, error) {
	t.Helper()
	base := []string{
		"--config", filepath.Join(t.TempDir(), "missing.json"),
		"--data", writeFile(t, "payload.json", body),
	}
	return run(t, append(base, args...)...)
}

func TestReportFromSavedPayload(t *testing.T) {
	out, err := offline(t, payload, "report", "--date", "2024-03-01")
	require.NoError(t, err)
	for _, want := range []string{"Jan-24", "Feb-24", "Total", "Behind Schedule & Over Budget", "Ahead of Schedule & Under Budget"} {
		assert.Contains(t, out, want)
	}

	_, err = offline(t, payload, "report", "--sort", "Nope")
	assert.Error(t, err)
}

func TestReportJSON(t *testing.T) {
	out, err := offline(t, payload, "report", "--json")
	require.NoError(t, err)

	var rep evm.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, 200.0, rep.Rows[1].PlannedValue)
	assert.Equal(t, 2, rep.Totals.Rows)
	assert.Equal(t, -20.0, rep.Totals.Values[evm.ColSV])
}

func TestChart(t *testing.T) {
	out, err := offline(t, payload, "chart", "--ticks", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Planned Value (PV)")
	assert.Contains(t, out, "y-axis:")

	out, err = offline(t, `[]`, "chart")
	require.NoError(t, err)
	assert.Contains(t, out, "No data available")
}

func TestExport(t *testing.T) {
	dir := t.TempDir()

	out, err := offline(t, payload, "export", "--out", dir, "--title", "Bridge")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "Bridge_"))
	assert.Equal(t, ".xlsx", filepath.Ext(path))
	assert.FileExists(t, path)

	out, err = offline(t, payload, "export", "--out", dir, "--format", "CSV")
	require.NoError(t, err)
	path = strings.TrimSpace(out)
	assert.Equal(t, ".csv", filepath.Ext(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Jan-24,100.00")

	_, err = offline(t, payload, "export", "--format", "pdf")
	assert.Error(t, err)
}

func TestExportEmptyWritesNothing(t *testing.T) {
	dir := t.TempDir()
	_, err := offline(t, `{"ResultData":"[]"}`, "export", "--out", dir)
	assert.ErrorIs(t, err, export.ErrNoData)

	_, err = offline(t, `[]`, "export", "--out", dir, "--format", "csv")
	assert.ErrorIs(t, err, export.ErrNoData)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProjectsFromSnapshot(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "projects.json")
	require.NoError(t, data.SaveProjects(&data.ProjectList{
		UpdatedAt: "2024-03-01T00:00:00Z",
		Projects: []model.Project{
			{ID: 1, Name: "North Bridge", Code: "NB-01"},
			{ID: 2, Name: "Harbour Wall", Code: "HW-07"},
		},
	}, snapshot))
	t.Setenv("PROJECTS_FILE", snapshot)

	out, err := offline(t, payload, "projects", "--search", "hw")
	require.NoError(t, err)
	assert.Contains(t, out, "Harbour Wall")
	assert.NotContains(t, out, "North Bridge")
}

func TestProjectsWithoutSnapshotUsesPayloadName(t *testing.T) {
	out, err := offline(t, payload, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "payload")
	assert.Contains(t, out, "local")
}

func TestReportFromService(t *testing.T) {
	var gotProject, gotDate string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProject = r.URL.Query().Get("Project")
		gotDate = r.URL.Query().Get("Date")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	cfg := writeFile(t, "config.json", `{"baseUrl": "`+srv.URL+`", "report": {"locale": "en-US"}}`)

	out, err := run(t, "--config", cfg, "report", "--project", "42", "--date", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "42", gotProject)
	assert.Equal(t, "2024-03-01", gotDate)
	assert.Contains(t, out, "200.00")

	_, err = run(t, "--config", cfg, "report")
	assert.ErrorContains(t, err, "--project is required")
}

func TestMissingBaseURL(t *testing.T) {
	cfg := writeFile(t, "config.json", `{"report": {"locale": "en-US"}}`)
	_, err := run(t, "--config", cfg, "report", "--project", "1")
	assert.Error(t, err)
}
