package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/internal/errorkit"
	"github.com/ctxhq/ctx/internal/evalharness"
	"github.com/ctxhq/ctx/internal/store"
)

func newEvalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run or export golden-dataset retrieval evaluations",
	}
	cmd.AddCommand(newEvalRunCmd(app), newEvalExportCmd(app))
	return cmd
}

func newEvalRunCmd(app *App) *cobra.Command {
	var datasetPath string
	var tags []string

	cmd := &cobra.Command{
		Use:   "run <project>",
		Short: "Run the golden dataset against a project and score it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.retrievalStack(cmd.Context()); err != nil {
				return err
			}

			project, err := resolveProject(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			path := datasetPath
			if path == "" {
				path = app.Config.Eval.GoldenPath
			}
			if path == "" {
				return errorkit.Validation("no golden dataset path configured", nil).
					WithSuggestion("pass --dataset or set eval.golden_path in config.toml")
			}

			dataset, err := loadDataset(path)
			if err != nil {
				return err
			}

			topK := app.Config.Eval.DefaultK
			runner := evalharness.NewRunner(app.Store, app.Coordinator, app.Embedder)
			run, deltas, err := runner.Run(cmd.Context(), evalharness.RunOptions{
				ProjectID: project.ID,
				Dataset:   dataset,
				TopK:      topK,
				Tags:      tags,
			})
			if err != nil {
				return err
			}

			failures := belowThresholds(app, run.AggregateMetrics)

			if app.JSON {
				if err := app.outputJSON(map[string]any{
					"run":      run,
					"deltas":   deltas,
					"failures": failures,
				}); err != nil {
					return err
				}
			} else {
				renderEvalRun(app, run, deltas, failures)
			}

			if len(failures) > 0 {
				return errorkit.Eval(errorkit.EvalRunFailed,
					fmt.Sprintf("project %q fell below %d eval threshold(s)", project.Name, len(failures)), nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "golden dataset path (defaults to eval.golden_path)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "restrict to entries sharing at least one of these tags")
	return cmd
}

func newEvalExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Export a project's most recent eval run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			run, err := app.Store.GetLatestEvalRun(cmd.Context(), project.ID, time.Now().UTC())
			if err != nil {
				return storageErr("failed to load latest eval run", err)
			}
			if run == nil {
				return errorkit.Validation("no eval runs recorded for "+project.Name, nil)
			}

			exportDir := filepath.Join(app.Dir, "exports")
			if err := os.MkdirAll(exportDir, 0o755); err != nil {
				return errorkit.Storage("failed to create exports directory", err)
			}
			outPath := filepath.Join(exportDir, fmt.Sprintf("eval-%s-%s.json", project.Name, run.ID))

			data, err := json.MarshalIndent(run, "", "  ")
			if err != nil {
				return errorkit.Storage("failed to marshal eval run", err)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return errorkit.Storage("failed to write export file", err)
			}

			if app.JSON {
				return app.outputJSON(map[string]string{"exported": outPath})
			}
			fmt.Fprintf(app.Out, "%s %s\n", app.Styles.Success.Render("Exported"), outPath)
			return nil
		},
	}
	return cmd
}

func loadDataset(path string) (evalharness.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evalharness.Dataset{}, errorkit.Eval(errorkit.EvalDatasetNotFound, "failed to read golden dataset", err).
			WithDetail("path", path)
	}
	var dataset evalharness.Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return evalharness.Dataset{}, errorkit.Eval(errorkit.EvalDatasetInvalid, "failed to parse golden dataset", err).
			WithDetail("path", path)
	}
	return dataset, nil
}

func belowThresholds(app *App, metrics map[string]float64) []string {
	var failures []string
	thresholds := map[string]float64{
		"mrr":       app.Config.Eval.Thresholds.MRR,
		"hit_rate":  app.Config.Eval.Thresholds.HitRate,
		"precision": app.Config.Eval.Thresholds.PrecisionAtK,
	}
	for metric, min := range thresholds {
		if got, ok := metrics[metric]; ok && got < min {
			failures = append(failures, fmt.Sprintf("%s %.3f below threshold %.3f", metric, got, min))
		}
	}
	return failures
}

func renderEvalRun(app *App, run *store.EvalRun, deltas []evalharness.Delta, failures []string) {
	fmt.Fprintf(app.Out, "%s run %s — %d queries, status %s\n",
		app.Styles.Header.Render("eval"), run.ID, run.QueryCount, run.Status)
	for metric, value := range run.AggregateMetrics {
		fmt.Fprintf(app.Out, "  %-10s %.3f\n", metric, value)
	}
	for _, d := range deltas {
		sign := "+"
		if d.Change < 0 {
			sign = ""
		}
		fmt.Fprintf(app.Out, "  %-10s %s%.3f vs previous run\n", d.Metric, sign, d.Change)
	}
	if len(failures) > 0 {
		fmt.Fprintf(app.Out, "%s\n", app.Styles.Warning.Render("threshold failures:"))
		for _, f := range failures {
			fmt.Fprintf(app.Out, "  - %s\n", f)
		}
	}
}
