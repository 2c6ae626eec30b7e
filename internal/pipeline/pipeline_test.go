package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"shop-dedup/internal/calculator"
	"shop-dedup/internal/excel"
	"shop-dedup/internal/models"
)

func registry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master.xlsx")
	rows := [][]interface{}{
		{"Customer ID", "New Shop Name", "Latitude", "Longitude", "Prospect Code"},
		{"S1", "Alpha Shop", "10.0", "10.0", "P1"},
		{"S2", "alpha shop", "10.0002", "10.0", "P2"},
		{"U1", "Alpha Shop", "10.0009", "10.0", ""},
		{"U2", "Beta Shop", "20.0", "20.0", ""},
		{"U3", "Beta Shop Annex", "20.0003", "20.0", ""},
		{"U4", "Broken", "n/a", "20.0", ""},
	}

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func options(t *testing.T) calculator.Options {
	opts := calculator.DefaultOptions()
	opts.Logger = zaptest.NewLogger(t)
	return opts
}

func outputRows(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestRunMatch(t *testing.T) {
	in := Input{Path: registry(t), Columns: excel.DefaultColumns()}
	out := filepath.Join(t.TempDir(), "out.xlsx")

	sum, err := RunMatch(in, out, options(t))
	require.NoError(t, err)
	assert.Equal(t, ModeMatch, sum.Mode)
	assert.Equal(t, 6, sum.Read)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.Secured)
	assert.Equal(t, 3, sum.Unsecured)
	assert.Equal(t, 3, sum.Rows)
	assert.Equal(t, 1, sum.Counts[models.RecommendFlagSuspicious])
	assert.Equal(t, 2, sum.Counts[models.RecommendUnsecuredDuplicate])

	rows := outputRows(t, out, excel.ResultsSheet)
	require.Len(t, rows, 4)
	assert.Equal(t, "U1", rows[1][0])
	assert.Equal(t, "Flag as Suspicious", rows[1][7])
	assert.Equal(t, "U2", rows[2][0])
	assert.Equal(t, "Flag as Unsecured Duplicate", rows[2][7])
	assert.Equal(t, "U3", rows[2][8])
	assert.Equal(t, "U3", rows[3][0])
	assert.Equal(t, "U2", rows[3][8])
}

func TestRunAudit(t *testing.T) {
	in := Input{Path: registry(t), Columns: excel.DefaultColumns()}
	out := filepath.Join(t.TempDir(), "audit.xlsx")

	sum, err := Run(ModeAudit, in, out, options(t))
	require.NoError(t, err)
	assert.Equal(t, ModeAudit, sum.Mode)
	assert.Equal(t, 2, sum.Rows)
	assert.Equal(t, excel.AuditSheet, sum.Sheet)

	rows := outputRows(t, out, excel.AuditSheet)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"S1", "Alpha Shop", "P1"}, rows[1][:3])
	assert.Equal(t, "S2", rows[1][5])
	assert.Equal(t, "S2", rows[2][0])
	assert.Equal(t, "S1", rows[2][5])
}

func TestRunMissingInput(t *testing.T) {
	_, err := RunMatch(Input{Path: filepath.Join(t.TempDir(), "nope.xlsx"), Columns: excel.DefaultColumns()},
		filepath.Join(t.TempDir(), "out.xlsx"), options(t))
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in       string
		expected Mode
		ok       bool
	}{
		{"", ModeMatch, true},
		{"match", ModeMatch, true},
		{"audit", ModeAudit, true},
		{"radius", "", false},
	}
	for _, tc := range tests {
		m, err := ParseMode(tc.in)
		if tc.ok {
			require.NoError(t, err)
			assert.Equal(t, tc.expected, m)
		} else {
			assert.Error(t, err)
		}
	}
}
