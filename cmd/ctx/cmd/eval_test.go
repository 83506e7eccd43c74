package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxhq/ctx/internal/store"
)

func TestBelowThresholds_AllPass(t *testing.T) {
	app := newTestApp(t)
	app.Config.Eval.Thresholds.MRR = 0.5
	app.Config.Eval.Thresholds.HitRate = 0.5
	app.Config.Eval.Thresholds.PrecisionAtK = 0.5

	failures := belowThresholds(app, map[string]float64{
		"mrr": 0.8, "hit_rate": 0.9, "precision": 0.6,
	})

	assert.Empty(t, failures)
}

func TestBelowThresholds_SomeFail(t *testing.T) {
	app := newTestApp(t)
	app.Config.Eval.Thresholds.MRR = 0.8
	app.Config.Eval.Thresholds.HitRate = 0.5
	app.Config.Eval.Thresholds.PrecisionAtK = 0.5

	failures := belowThresholds(app, map[string]float64{
		"mrr": 0.2, "hit_rate": 0.9, "precision": 0.6,
	})

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "mrr")
}

func TestLoadDataset_MissingFile(t *testing.T) {
	_, err := loadDataset(filepath.Join(t.TempDir(), "missing.json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read golden dataset")
}

func TestLoadDataset_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := loadDataset(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse golden dataset")
}

func TestEvalExportCmd_NoRuns(t *testing.T) {
	app := newTestApp(t)
	seedProject(t, app, "alpha")

	cmd := newEvalExportCmd(app)
	cmd.SetArgs([]string{"alpha"})
	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no eval runs recorded")
}

func TestEvalExportCmd_WritesFile(t *testing.T) {
	app := newTestApp(t)
	p := seedProject(t, app, "alpha")

	run := &store.EvalRun{
		ID:               "run-1",
		ProjectID:        p.ID,
		Timestamp:        time.Now().Add(-time.Minute),
		DatasetVersion:   "v1",
		QueryCount:       5,
		AggregateMetrics: map[string]float64{"mrr": 0.7},
		Status:           "completed",
	}
	require.NoError(t, app.Store.InsertEvalRun(t.Context(), run))

	cmd := newEvalExportCmd(app)
	cmd.SetArgs([]string{"alpha"})
	err := cmd.Execute()
	require.NoError(t, err)

	out := app.Out.(*bytes.Buffer).String()
	assert.Contains(t, out, "Exported")

	exportPath := filepath.Join(app.Dir, "exports", "eval-alpha-run-1.json")
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)

	var decoded store.EvalRun
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.ID)
	assert.Equal(t, 0.7, decoded.AggregateMetrics["mrr"])
}
