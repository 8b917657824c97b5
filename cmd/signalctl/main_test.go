package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origo/signalcheck/internal/database"
	"github.com/origo/signalcheck/internal/server"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCatalogJSON(t *testing.T) {
	out, err := execute(t, "", "catalog", "--json")
	require.NoError(t, err)

	var rows []catalogRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 19)

	for i, r := range rows {
		assert.Equal(t, i+1, r.Step)
		assert.NotEmpty(t, r.ID)
	}
}

func TestCatalogTable(t *testing.T) {
	out, err := execute(t, "", "catalog")
	require.NoError(t, err)

	assert.Contains(t, out, "STEP")
	assert.Contains(t, out, "max score: 30")
}

func TestScore(t *testing.T) {
	answers := `[
		{"questionId": "q5", "value": 0},
		{"questionId": "q5", "value": 3},
		{"questionId": "q6", "value": "Somewhat clear"}
	]`

	out, err := execute(t, answers, "score")
	require.NoError(t, err)
	assert.Contains(t, out, "score 5/30 (17%)")
	assert.Contains(t, out, "Noise-Driven Execution")

	out, err = execute(t, answers, "score", "--json")
	require.NoError(t, err)
	var res scoreOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 5, res.Raw)
	assert.Equal(t, "noise-driven", res.TierSlug)
}

func TestScoreErrors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
	}{
		{"not json", "answers"},
		{"unknown question", `[{"questionId": "nope", "value": 1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.stdin, "score")
			assert.Error(t, err)
		})
	}
}

func TestAdminSet(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "signal.db")

	_, err := execute(t, "", "--db", dbPath, "admin", "set", "--email", "ops@origo.local")
	require.Error(t, err)

	out, err := execute(t, "", "--db", dbPath, "admin", "set", "--email", "Ops@Origo.local", "--password", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "saved")

	db, err := database.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer db.Close()

	id, _, err := server.NewAdminDocStore(db).AdminByEmail(context.Background(), "ops@origo.local")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "signal.db")

	out, err := execute(t, "", "--db", dbPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version 1")
}

func TestExport(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "signal.db")

	out, err := execute(t, "", "--db", dbPath, "export")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Name,Email,Role,Industry,Score,Percentage,Tier,Date"), out)

	xlsxPath := filepath.Join(t.TempDir(), "leads.xlsx")
	_, err = execute(t, "", "--db", dbPath, "export", "--format", "xlsx", "--out", xlsxPath)
	require.NoError(t, err)
	data, err := os.ReadFile(xlsxPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")), "xlsx is a zip archive")

	_, err = execute(t, "", "--db", dbPath, "export", "--format", "pdf")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "", "--db", dbPath, "export", "--tier", "platinum")
	assert.ErrorContains(t, err, "unknown tier")
}
