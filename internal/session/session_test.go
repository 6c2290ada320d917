package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/datareadygo/internal/config"
	"github.com/vk/datareadygo/internal/ingest"
	"github.com/vk/datareadygo/internal/memstore"
	"github.com/vk/datareadygo/internal/sandbox"
	"github.com/vk/datareadygo/internal/score"
	"github.com/vk/datareadygo/internal/stage"
)

const sampleDoc = `{
	"columns": [
		{"name": "age", "kind": "number", "cells": [30, null, 45, 22, 30]},
		{"name": "city", "kind": "string", "cells": ["ams", "ber", "ams", "ber", "ams"]}
	]
}`

func newSession(t *testing.T) *Session {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	sess, err := New(config.Default(), memstore.New(), WithClock(clock))
	require.NoError(t, err)
	return sess
}

func sampleSource(t *testing.T) ingest.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0600))
	return ingest.JSONSource{Path: path}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	bad := config.Default()
	bad.Thresholds.HighMissing = 3.0

	_, err := New(bad, memstore.New())
	require.Error(t, err)

	var cfgErr *config.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSession_RequiresIngestion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sess := newSession(t)

	_, err := sess.CurrentID()
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = sess.Run(ctx, stage.Quality)
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = sess.Wrangle(ctx, sandbox.OpDropDuplicates, "")
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestSession_IngestSetsCurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sess := newSession(t)

	id, err := sess.Ingest(ctx, sampleSource(t))
	require.NoError(t, err)

	current, err := sess.CurrentID()
	require.NoError(t, err)
	assert.Equal(t, id, current)

	ds, err := sess.Dataset(id)
	require.NoError(t, err)
	assert.Equal(t, 5, ds.NumRows())
}

func TestSession_RunAndReport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sess := newSession(t)

	_, err := sess.Ingest(ctx, sampleSource(t))
	require.NoError(t, err)

	plan, err := sess.Run(ctx, stage.Summary)
	require.NoError(t, err)
	assert.False(t, plan.Empty())

	payload, err := sess.Report(ctx)
	require.NoError(t, err)

	require.NotNil(t, payload.Quality)
	require.NotNil(t, payload.Describe)
	require.NotNil(t, payload.Viz)
	require.NotNil(t, payload.Score)
	assert.Equal(t, 5, payload.Quality.Rows)
	assert.NotZero(t, payload.GeneratedAt)

	// A second run against the same dataset is served from cache.
	again, err := sess.Run(ctx, stage.Summary)
	require.NoError(t, err)
	assert.True(t, again.Empty())
}

func TestSession_ReportBeforeRunIsSparse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sess := newSession(t)

	_, err := sess.Ingest(ctx, sampleSource(t))
	require.NoError(t, err)

	payload, err := sess.Report(ctx)
	require.NoError(t, err)
	assert.Nil(t, payload.Quality)
	assert.Nil(t, payload.Score)
	assert.Nil(t, payload.Describe)
	assert.Nil(t, payload.Viz)
}

func TestSession_WrangleCreatesNewLineage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sess := newSession(t)

	original, err := sess.Ingest(ctx, sampleSource(t))
	require.NoError(t, err)

	_, err = sess.Run(ctx, stage.Quality)
	require.NoError(t, err)

	summary, err := sess.Wrangle(ctx, sandbox.OpFilter, "age >= 30")
	require.NoError(t, err)
	assert.Equal(t, original, summary.SourceID)
	assert.NotEqual(t, original, summary.ResultID)
	assert.Equal(t, 3, summary.RowsAfter)

	current, err := sess.CurrentID()
	require.NoError(t, err)
	assert.Equal(t, summary.ResultID, current)

	// The original dataset stays registered; its artifacts are untouched.
	_, err = sess.Dataset(original)
	require.NoError(t, err)

	// The new identity starts cold: the next run schedules work again.
	plan, err := sess.Plan(ctx, stage.Quality)
	require.NoError(t, err)
	assert.False(t, plan.Empty())

	lineage := sess.Transformations()
	require.Len(t, lineage, 1)
	assert.Equal(t, sandbox.OpFilter, lineage[0].Op)
}

func TestSession_WrangleChainRecordsEveryStep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sess := newSession(t)

	_, err := sess.Ingest(ctx, sampleSource(t))
	require.NoError(t, err)

	_, err = sess.Wrangle(ctx, sandbox.OpDropDuplicates, "")
	require.NoError(t, err)
	_, err = sess.Wrangle(ctx, sandbox.OpImpute, "{age = coalesce(age, 0)}")
	require.NoError(t, err)

	lineage := sess.Transformations()
	require.Len(t, lineage, 2)
	assert.Equal(t, sandbox.OpDropDuplicates, lineage[0].Op)
	assert.Equal(t, sandbox.OpImpute, lineage[1].Op)
	// Each step chains off the previous result.
	assert.Equal(t, lineage[0].ResultID, lineage[1].SourceID)

	payload, err := sess.Report(ctx)
	require.NoError(t, err)
	assert.Len(t, payload.Transformations, 2)
}

func TestSession_WrangleRejectsBadExpression(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sess := newSession(t)

	id, err := sess.Ingest(ctx, sampleSource(t))
	require.NoError(t, err)

	_, err = sess.Wrangle(ctx, sandbox.OpFilter, "age.secret > 1")
	require.Error(t, err)

	var disallowed *sandbox.DisallowedExpressionError
	assert.ErrorAs(t, err, &disallowed)

	// A failed transformation leaves the current dataset untouched.
	current, err := sess.CurrentID()
	require.NoError(t, err)
	assert.Equal(t, id, current)
	assert.Empty(t, sess.Transformations())
}

func TestNeedsImprovement(t *testing.T) {
	t.Parallel()

	assert.True(t, NeedsImprovement(score.Score{Total: 84}))
	assert.False(t, NeedsImprovement(score.Score{Total: 85}))
	assert.False(t, NeedsImprovement(score.Score{Total: 100}))
}
