package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
	"columns": [
		{"name": "age", "kind": "number", "cells": [30, null, 45, 22]},
		{"name": "city", "kind": "string", "cells": ["ams", "ber", "ams", "ber"]}
	]
}`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0600))
	return path
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return shouldExit=true.
	errW := &bytes.Buffer{}
	err := run(&bytes.Buffer{}, errW, []string{"-h"})
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	assert.Contains(t, errW.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(&bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag provided but not defined")
}

func TestRun_MissingInputFile(t *testing.T) {
	t.Parallel()

	err := run(&bytes.Buffer{}, &bytes.Buffer{}, []string{filepath.Join(t.TempDir(), "absent.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest")
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, &bytes.Buffer{}, []string{"--log-level", "error", writeSample(t)})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload), "stdout must be the report payload")
	assert.NotEmpty(t, payload["dataset_id"])
	require.Contains(t, payload, "score")
	require.Contains(t, payload, "quality")

	score := payload["score"].(map[string]any)
	assert.Contains(t, score, "total")
	assert.Contains(t, score, "category")
}

func TestRun_WithTransformAndStore(t *testing.T) {
	t.Parallel()

	storePath := filepath.Join(t.TempDir(), "artifacts.db")
	out := &bytes.Buffer{}
	err := run(out, &bytes.Buffer{}, []string{
		"--log-level", "error",
		"--store", storePath,
		"--transform", "filter=age >= 30",
		"--stages", "quality",
		writeSample(t),
	})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))

	quality := payload["quality"].(map[string]any)
	assert.Equal(t, 2.0, quality["rows"], "the filter ran before the stages")

	transforms := payload["transformations"].([]any)
	require.Len(t, transforms, 1)

	_, err = os.Stat(storePath)
	assert.NoError(t, err, "the SQLite store file exists")
}
