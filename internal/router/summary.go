package router

import (
	"context"
	"fmt"

	"github.com/vk/datareadygo/internal/artifact"
	"github.com/vk/datareadygo/internal/quality"
	"github.com/vk/datareadygo/internal/report"
	"github.com/vk/datareadygo/internal/score"
	"github.com/vk/datareadygo/internal/stage"
)

// buildSummary assembles the summary stage payload from the upstream
// records of this plan. The readiness score is recomputed from the
// quality payload here rather than cached: it must always reflect the
// latest quality metrics.
func (r *Router) buildSummary(ctx context.Context, plan Plan) (any, error) {
	out := report.Summary{DatasetID: plan.DatasetID}

	for _, k := range plan.SummaryInputs {
		rec, err := r.store.Get(ctx, plan.DatasetID, string(k))
		if err != nil || !rec.Valid {
			return nil, &artifact.StaleDependencyError{Stage: string(stage.Summary), Ancestor: string(k)}
		}
		out.Includes = append(out.Includes, string(k))

		if k == stage.Quality {
			q, err := artifact.DecodePayload[quality.Result](rec.Payload)
			if err != nil {
				return nil, fmt.Errorf("decode quality payload: %w", err)
			}
			s := score.Compute(q, r.cfg.Thresholds, r.cfg.Weights)
			out.Score = s
			out.Issues = append(out.Issues, q.Issues...)
		}
	}
	return out, nil
}
