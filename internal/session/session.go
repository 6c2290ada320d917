// Package session provides the per-analysis-session orchestration
// context. Each session owns its own artifact store instance and dataset
// registry; there is no process-wide singleton.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/vk/datareadygo/internal/artifact"
	"github.com/vk/datareadygo/internal/config"
	"github.com/vk/datareadygo/internal/ctxlog"
	"github.com/vk/datareadygo/internal/dataset"
	"github.com/vk/datareadygo/internal/describe"
	"github.com/vk/datareadygo/internal/ingest"
	"github.com/vk/datareadygo/internal/quality"
	"github.com/vk/datareadygo/internal/report"
	"github.com/vk/datareadygo/internal/router"
	"github.com/vk/datareadygo/internal/sandbox"
	"github.com/vk/datareadygo/internal/score"
	"github.com/vk/datareadygo/internal/stage"
	"github.com/vk/datareadygo/internal/viz"
)

// QualityLoopThreshold is the readiness score below which a quality
// improvement loop is worth offering to the user.
const QualityLoopThreshold = 85

// ErrNoDataset is returned when an operation needs a current dataset and
// none was ingested yet.
var ErrNoDataset = errors.New("session: no dataset ingested")

// Session ties together one artifact store, one configuration and the
// lineage of datasets produced by ingestion and transformations.
type Session struct {
	cfg    config.Config
	store  artifact.Store
	router *router.Router
	clock  clockwork.Clock

	mu         sync.Mutex
	datasets   map[string]*dataset.Dataset
	current    string
	transforms []sandbox.Summary
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the real clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// New validates the configuration and creates a session over the given
// artifact store. An invalid configuration fails here, before any stage
// can run.
func New(cfg config.Config, store artifact.Store, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:      cfg,
		store:    store,
		datasets: make(map[string]*dataset.Dataset),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	s.router = router.New(s.store, s.cfg, s.clock)
	return s, nil
}

// Ingest resolves the source and registers the dataset as the session's
// current one. The dataset identity is the first link of the session's
// lineage.
func (s *Session) Ingest(ctx context.Context, src ingest.Source) (string, error) {
	ds, err := src.Resolve(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	id := string(ds.ID())
	s.datasets[id] = ds
	s.current = id
	s.mu.Unlock()

	ctxlog.FromContext(ctx).Info("Dataset ingested.",
		"dataset", id, "rows", ds.NumRows(), "columns", ds.NumColumns())
	return id, nil
}

// CurrentID returns the identity of the session's current dataset.
func (s *Session) CurrentID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == "" {
		return "", ErrNoDataset
	}
	return s.current, nil
}

// Dataset returns a registered dataset by identity.
func (s *Session) Dataset(id string) (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("session: dataset %q: %w", id, artifact.ErrNotFound)
	}
	return ds, nil
}

// Plan computes the execution plan for the requested stages against the
// current dataset without running anything.
func (s *Session) Plan(ctx context.Context, requested ...stage.Kind) (router.Plan, error) {
	ds, err := s.currentDataset()
	if err != nil {
		return router.Plan{}, err
	}
	return s.router.Plan(ctx, ds, requested)
}

// Run plans and executes the requested stages against the current
// dataset, returning the executed plan.
func (s *Session) Run(ctx context.Context, requested ...stage.Kind) (router.Plan, error) {
	ds, err := s.currentDataset()
	if err != nil {
		return router.Plan{}, err
	}
	plan, err := s.router.Plan(ctx, ds, requested)
	if err != nil {
		return router.Plan{}, err
	}
	if err := s.router.Execute(ctx, ds, plan); err != nil {
		return plan, err
	}
	return plan, nil
}

// Wrangle applies a sandboxed transformation to the current dataset,
// registers the result as the new current dataset, and records the
// transformation summary. Artifacts of the prior identity stay in the
// store untouched; the new identity starts with an empty cache partition.
func (s *Session) Wrangle(ctx context.Context, op sandbox.Op, expression string) (sandbox.Summary, error) {
	ds, err := s.currentDataset()
	if err != nil {
		return sandbox.Summary{}, err
	}

	out, summary, err := sandbox.Apply(ctx, sandbox.Request{
		Source:     ds,
		Op:         op,
		Expression: expression,
	})
	if err != nil {
		return sandbox.Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[string(out.ID())] = out
	s.current = string(out.ID())
	s.transforms = append(s.transforms, summary)
	return summary, nil
}

// Transformations returns the session's transformation lineage in
// application order.
func (s *Session) Transformations() []sandbox.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sandbox.Summary, len(s.transforms))
	copy(out, s.transforms)
	return out
}

// Report assembles the read-only payload for the report collaborator
// from whatever valid records exist for the current dataset. The
// readiness score is recomputed from the quality payload on every call,
// so it can never go stale relative to the quality metrics.
func (s *Session) Report(ctx context.Context) (report.Payload, error) {
	id, err := s.CurrentID()
	if err != nil {
		return report.Payload{}, err
	}

	payload := report.Payload{
		DatasetID:       id,
		GeneratedAt:     s.clock.Now(),
		Transformations: s.Transformations(),
	}

	if q, ok := recordPayload[quality.Result](ctx, s.store, id, stage.Quality); ok {
		sc := score.Compute(q, s.cfg.Thresholds, s.cfg.Weights)
		payload.Quality = &q
		payload.Score = &sc
	}
	if d, ok := recordPayload[describe.Result](ctx, s.store, id, stage.Describe); ok {
		payload.Describe = &d
	}
	if v, ok := recordPayload[viz.Result](ctx, s.store, id, stage.Viz); ok {
		payload.Viz = &v
	}
	return payload, nil
}

// NeedsImprovement reports whether the score falls below the quality
// loop threshold.
func NeedsImprovement(sc score.Score) bool {
	return sc.Total < QualityLoopThreshold
}

func (s *Session) currentDataset() (*dataset.Dataset, error) {
	id, err := s.CurrentID()
	if err != nil {
		return nil, err
	}
	return s.Dataset(id)
}

// recordPayload fetches and decodes the valid record payload for a stage,
// reporting false when absent or invalid.
func recordPayload[T any](ctx context.Context, store artifact.Store, datasetID string, k stage.Kind) (T, bool) {
	var zero T
	rec, err := store.Get(ctx, datasetID, string(k))
	if err != nil || !rec.Valid {
		return zero, false
	}
	out, err := artifact.DecodePayload[T](rec.Payload)
	if err != nil {
		return zero, false
	}
	return out, true
}
