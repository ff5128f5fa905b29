package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/membench/membench/internal/model"
)

func sampleRuns() []model.StoredRun {
	return []model.StoredRun{
		{
			ID:              2,
			Timestamp:       "2026-02-01T10:30:00Z",
			ModelName:       "llama3",
			ModelProvider:   "ollama",
			MemoryMethod:    "truncation",
			Benchmark:       "smoke",
			Status:          model.RunStatusSuccess,
			DurationSeconds: 1.25,
			Results:         map[string]any{"score": 0.9},
			CreatedAt:       time.Date(2026, 2, 1, 10, 30, 1, 0, time.UTC),
		},
		{
			ID:            1,
			Timestamp:     "2026-02-01T10:29:00Z",
			ModelName:     "mistral",
			ModelProvider: "openrouter",
			MemoryMethod:  "none",
			Benchmark:     "qa",
			Status:        model.RunStatusError,
			CreatedAt:     time.Date(2026, 2, 1, 10, 29, 1, 0, time.UTC),
		},
	}
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, sampleRuns())

	out := buf.String()
	assert.Contains(t, out, "llama3")
	assert.Contains(t, out, "ollama")
	assert.Contains(t, out, "truncation")
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "mistral")
	assert.Contains(t, out, "error")
}

func TestExportXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, exportXLSX(path, sampleRuns()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 3) // header plus two runs
	assert.Equal(t, "ID", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "llama3", sheet.Rows[1].Cells[2].String())
	assert.Equal(t, "success", sheet.Rows[1].Cells[6].String())
	assert.Equal(t, "mistral", sheet.Rows[2].Cells[2].String())
}

func TestExportXLSX_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, exportXLSX(path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Len(t, f.Sheets[0].Rows, 1)
}
