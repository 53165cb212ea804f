package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evm-report/internal/model"
)

func TestDecodeRecordsShapes(t *testing.T) {
	envelope := []byte(reportBody)
	recs, err := DecodeRecords(envelope)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	bare := []byte(`  [{"MonthYear":"Mar-24","PV":5}]`)
	recs, err = DecodeRecords(bare)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Mar-24", recs[0].MonthYear)
}

func TestDecodeResultDataNotArray(t *testing.T) {
	_, err := DecodeResultData[model.Project]([]byte(`"42"`))
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = DecodeResultData[model.Project]([]byte(`{"a":1}`))
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = DecodeResultData[model.Project]([]byte(`"{broken"`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestLoadRecordsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(path, []byte(reportBody), 0o644))

	recs, err := LoadRecordsJSON(path)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"ResultData":""}`), 0o644))
	recs, err = LoadRecordsJSON(empty)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	_, err = LoadRecordsJSON(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestProjectSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "projects.json")
	list := &ProjectList{
		UpdatedAt: "2024-03-01T00:00:00Z",
		Projects: []model.Project{
			{ID: 1, Name: "North Bridge", Code: "NB-01"},
			{ID: 2, Name: "Harbour Wall", Code: "HW-07"},
		},
	}
	require.NoError(t, SaveProjects(list, path))

	got, err := LoadProjects(path)
	require.NoError(t, err)
	assert.Equal(t, list, got)

	assert.Len(t, got.Filter(""), 2)
	assert.Equal(t, []model.Project{list.Projects[1]}, got.Filter("hw-"))
	assert.Equal(t, []model.Project{list.Projects[0]}, got.Filter("BRIDGE"))
	assert.Empty(t, got.Filter("tunnel"))
}
