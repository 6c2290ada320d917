package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/datareadygo/internal/ctxlog"
	"github.com/vk/datareadygo/internal/ingest"
	"github.com/vk/datareadygo/internal/session"
)

// Run executes the main application logic: ingest the dataset, apply any
// requested transformations, run the requested stages and print the
// report payload to the output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if _, err := a.session.Ingest(ctx, ingest.JSONSource{Path: a.cfg.InputPath}); err != nil {
		return fmt.Errorf("ingest %s: %w", a.cfg.InputPath, err)
	}

	for _, tr := range a.cfg.Transforms {
		summary, err := a.session.Wrangle(ctx, tr.Op, tr.Expression)
		if err != nil {
			return fmt.Errorf("transformation %s: %w", tr.Op, err)
		}
		a.logger.Info("Transformation applied.",
			"op", summary.Op,
			"rows_before", summary.RowsBefore,
			"rows_after", summary.RowsAfter)
	}

	plan, err := a.session.Run(ctx, a.cfg.Stages...)
	if err != nil {
		return err
	}
	a.logger.Info("Stages executed.",
		"scheduled", len(plan.Stages()),
		"satisfied", len(plan.Satisfied))

	payload, err := a.session.Report(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if payload.Score != nil && session.NeedsImprovement(*payload.Score) {
		a.logger.Warn("Dataset is below the readiness threshold.",
			"score", payload.Score.Total,
			"category", payload.Score.Category,
			"threshold", session.QualityLoopThreshold)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
