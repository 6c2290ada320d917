package router

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vk/datareadygo/internal/artifact"
	"github.com/vk/datareadygo/internal/checksum"
	"github.com/vk/datareadygo/internal/ctxlog"
	"github.com/vk/datareadygo/internal/dataset"
	"github.com/vk/datareadygo/internal/describe"
	"github.com/vk/datareadygo/internal/ingest"
	"github.com/vk/datareadygo/internal/quality"
	"github.com/vk/datareadygo/internal/stage"
	"github.com/vk/datareadygo/internal/viz"
)

// Execute runs the plan level by level. Stages inside a level run
// concurrently; the level boundary preserves the dependency partial
// order. Cancellation is honored between stages: an interrupted stage
// simply never commits, so no record is ever left half-written.
func (r *Router) Execute(ctx context.Context, ds *dataset.Dataset, plan Plan) error {
	logger := ctxlog.FromContext(ctx)

	for _, level := range plan.Levels {
		if err := ctx.Err(); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, k := range level {
			k := k
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				logger.Debug("Running stage.", "stage", k, "dataset", plan.DatasetID)
				payload, err := r.runStage(gctx, k, ds, plan)
				if err != nil {
					return fmt.Errorf("router: stage %s: %w", k, err)
				}
				return r.commit(gctx, k, plan, payload)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// runStage dispatches to the closed stage set. There is no plugin
// registry; adding a stage means extending this switch and the stage
// package together.
func (r *Router) runStage(ctx context.Context, k stage.Kind, ds *dataset.Dataset, plan Plan) (any, error) {
	switch k {
	case stage.Ingestion:
		return ingest.BuildProfile(ds), nil
	case stage.Quality:
		return quality.Analyze(ctx, ds, r.cfg.Thresholds, quality.Options{}), nil
	case stage.Describe:
		return describe.Build(ds), nil
	case stage.Viz:
		return viz.Recommend(ds), nil
	case stage.Summary:
		return r.buildSummary(ctx, plan)
	default:
		return nil, fmt.Errorf("unknown stage %q", k)
	}
}

// commit fingerprints the payload, supersedes a stale prior record if
// one exists, and writes the new record. Only this method touches the
// store during execution.
func (r *Router) commit(ctx context.Context, k stage.Kind, plan Plan, payload any) error {
	inputFP, err := r.currentInputFingerprint(ctx, k, plan)
	if err != nil {
		return err
	}
	outputFP, err := checksum.JSON(payload)
	if err != nil {
		return fmt.Errorf("fingerprint %s payload: %w", k, err)
	}

	prev, err := r.store.Get(ctx, plan.DatasetID, string(k))
	switch {
	case errors.Is(err, artifact.ErrNotFound):
	case err != nil:
		return fmt.Errorf("read prior record for %s: %w", k, err)
	case prev.Valid && prev.InputFingerprint != inputFP:
		// The cached record was computed from an older ancestor output;
		// retire it before committing the replacement.
		if err := r.store.Invalidate(ctx, plan.DatasetID, string(k)); err != nil {
			return fmt.Errorf("invalidate stale record for %s: %w", k, err)
		}
	}

	return r.store.Put(ctx, artifact.Record{
		DatasetID:         plan.DatasetID,
		Stage:             string(k),
		Payload:           payload,
		InputFingerprint:  inputFP,
		OutputFingerprint: outputFP,
		CreatedAt:         r.clock.Now(),
	})
}

// currentInputFingerprint reads the now-valid upstream records and
// hashes their output fingerprints together with the dataset identity.
// A missing or invalid upstream record at this point means the plan's
// ordering was violated.
func (r *Router) currentInputFingerprint(ctx context.Context, k stage.Kind, plan Plan) (string, error) {
	deps := append([]stage.Kind{}, k.Deps()...)
	if k == stage.Summary {
		deps = append(deps, plan.SummaryInputs...)
	}

	outputFP := make(map[stage.Kind]string, len(deps))
	for _, dep := range deps {
		rec, err := r.store.Get(ctx, plan.DatasetID, string(dep))
		if err != nil || !rec.Valid {
			return "", &artifact.StaleDependencyError{Stage: string(k), Ancestor: string(dep)}
		}
		outputFP[dep] = rec.OutputFingerprint
	}
	return inputFingerprint(plan.DatasetID, deps, outputFP), nil
}
