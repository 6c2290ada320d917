// Package router translates a request for stage outputs into the minimal
// ordered execution plan and runs it. The router is the only component
// that writes to or invalidates the artifact store.
//
// Staleness detection is structural: every stage record carries the
// fingerprint of its inputs (dataset identity plus the output
// fingerprints of its upstream stages), and a cached record is trusted
// only when that fingerprint matches what the router would compute now.
// Once any ancestor is scheduled for re-execution, every dependent is
// scheduled too, regardless of how its own cached record looks: its
// cached output encoded the old ancestor's result.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/vk/datareadygo/internal/artifact"
	"github.com/vk/datareadygo/internal/checksum"
	"github.com/vk/datareadygo/internal/config"
	"github.com/vk/datareadygo/internal/ctxlog"
	"github.com/vk/datareadygo/internal/dataset"
	"github.com/vk/datareadygo/internal/stage"
)

// Plan is an ordered execution plan: levels are executed in order, the
// stages inside one level are independent and may run concurrently. A
// stage appears at most once. Satisfied lists the requested or required
// stages that were served from cache.
type Plan struct {
	DatasetID string
	Levels    [][]stage.Kind
	Satisfied []stage.Kind
	// SummaryInputs records which optional inputs the summary stage
	// folds in for this plan.
	SummaryInputs []stage.Kind
}

// Stages returns every scheduled stage in execution order.
func (p Plan) Stages() []stage.Kind {
	var out []stage.Kind
	for _, level := range p.Levels {
		out = append(out, level...)
	}
	return out
}

// Empty reports whether the plan schedules nothing.
func (p Plan) Empty() bool { return len(p.Levels) == 0 }

// Router owns plan computation and execution for one artifact store.
type Router struct {
	store artifact.Store
	cfg   config.Config
	clock clockwork.Clock
}

// New creates a router over the given store.
func New(store artifact.Store, cfg config.Config, clock clockwork.Clock) *Router {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Router{store: store, cfg: cfg, clock: clock}
}

// Plan computes the minimal ordered plan satisfying the requested stage
// outputs for the dataset. It has no side effects; invalidation of stale
// records happens during Execute, just before the replacement commit.
func (r *Router) Plan(ctx context.Context, ds *dataset.Dataset, requested []stage.Kind) (Plan, error) {
	logger := ctxlog.FromContext(ctx)
	datasetID := string(ds.ID())

	needed, summaryInputs := expand(requested)

	// Walk the needed set in dependency order, deciding per node whether
	// the cached record still holds.
	scheduled := make(map[stage.Kind]bool)
	satisfied := make(map[stage.Kind]bool)
	outputFP := make(map[stage.Kind]string)

	for _, k := range ordered(needed) {
		deps := planDeps(k, needed, summaryInputs)

		ancestorScheduled := false
		for _, dep := range deps {
			if scheduled[dep] {
				ancestorScheduled = true
				break
			}
		}
		if ancestorScheduled {
			// Never trust a dependent once any ancestor re-runs.
			scheduled[k] = true
			continue
		}

		wantFP := inputFingerprint(datasetID, deps, outputFP)
		rec, err := r.store.Get(ctx, datasetID, string(k))
		switch {
		case errors.Is(err, artifact.ErrNotFound):
			scheduled[k] = true
		case err != nil:
			return Plan{}, fmt.Errorf("router: read record for %s: %w", k, err)
		case rec.Valid && rec.InputFingerprint == wantFP:
			satisfied[k] = true
			outputFP[k] = rec.OutputFingerprint
		default:
			scheduled[k] = true
		}
	}

	plan := Plan{
		DatasetID:     datasetID,
		Levels:        levels(scheduled, summaryInputs),
		SummaryInputs: summaryInputs,
	}
	for _, k := range ordered(needed) {
		if satisfied[k] {
			plan.Satisfied = append(plan.Satisfied, k)
		}
	}

	logger.Debug("Plan computed.",
		"dataset", datasetID,
		"scheduled", len(plan.Stages()),
		"satisfied", len(plan.Satisfied))
	return plan, nil
}

// expand resolves the requested stages plus their transitive hard
// dependencies, and decides the summary stage's optional inputs: the
// co-requested subset, or all of them when summary is requested alone.
func expand(requested []stage.Kind) (map[stage.Kind]bool, []stage.Kind) {
	needed := make(map[stage.Kind]bool)
	var visit func(k stage.Kind)
	visit = func(k stage.Kind) {
		if needed[k] {
			return
		}
		needed[k] = true
		for _, dep := range k.Deps() {
			visit(dep)
		}
	}
	for _, k := range requested {
		visit(k)
	}

	var summaryInputs []stage.Kind
	if needed[stage.Summary] {
		for _, opt := range stage.Summary.OptionalDeps() {
			if needed[opt] {
				summaryInputs = append(summaryInputs, opt)
			}
		}
		if len(summaryInputs) == 0 {
			summaryInputs = stage.Summary.OptionalDeps()
		}
		for _, opt := range summaryInputs {
			visit(opt)
		}
	}
	return needed, summaryInputs
}

// planDeps returns the dependencies of k that participate in this plan.
func planDeps(k stage.Kind, needed map[stage.Kind]bool, summaryInputs []stage.Kind) []stage.Kind {
	deps := append([]stage.Kind{}, k.Deps()...)
	if k == stage.Summary {
		deps = append(deps, summaryInputs...)
	}
	var out []stage.Kind
	for _, dep := range deps {
		if needed[dep] {
			out = append(out, dep)
		}
	}
	return out
}

// ordered returns the needed stages in dependency order, with
// declaration order as the stable tie-break.
func ordered(needed map[stage.Kind]bool) []stage.Kind {
	var out []stage.Kind
	for _, k := range stage.All() {
		if needed[k] {
			out = append(out, k)
		}
	}
	// Declaration order already respects the static DAG (every stage is
	// declared after its dependencies), so no further sort is needed.
	return out
}

// levels groups the scheduled stages into waves of a partial order:
// every stage lands one level after the deepest scheduled stage it
// depends on. Stages inside a level are sorted in declaration order.
func levels(scheduled map[stage.Kind]bool, summaryInputs []stage.Kind) [][]stage.Kind {
	depth := make(map[stage.Kind]int)
	var depthOf func(k stage.Kind) int
	depthOf = func(k stage.Kind) int {
		if d, ok := depth[k]; ok {
			return d
		}
		d := 0
		deps := append([]stage.Kind{}, k.Deps()...)
		if k == stage.Summary {
			deps = append(deps, summaryInputs...)
		}
		for _, dep := range deps {
			if scheduled[dep] {
				if dd := depthOf(dep) + 1; dd > d {
					d = dd
				}
			}
		}
		depth[k] = d
		return d
	}

	byDepth := make(map[int][]stage.Kind)
	maxDepth := -1
	for k := range scheduled {
		d := depthOf(k)
		byDepth[d] = append(byDepth[d], k)
		if d > maxDepth {
			maxDepth = d
		}
	}

	var out [][]stage.Kind
	for d := 0; d <= maxDepth; d++ {
		level := byDepth[d]
		if len(level) == 0 {
			continue
		}
		sort.Slice(level, func(i, j int) bool {
			return stage.Index(level[i]) < stage.Index(level[j])
		})
		out = append(out, level)
	}
	return out
}

// inputFingerprint hashes the dataset identity and the upstream output
// fingerprints in stage declaration order.
func inputFingerprint(datasetID string, deps []stage.Kind, outputFP map[stage.Kind]string) string {
	parts := []string{datasetID}
	sorted := append([]stage.Kind{}, deps...)
	sort.Slice(sorted, func(i, j int) bool {
		return stage.Index(sorted[i]) < stage.Index(sorted[j])
	})
	for _, dep := range sorted {
		parts = append(parts, string(dep)+"="+outputFP[dep])
	}
	return checksum.Sum([]byte(strings.Join(parts, "|")))
}
