// Package report defines the read-only structured payloads exposed to
// the report collaborator. The collaborator never writes back into the
// artifact store.
package report

import (
	"time"

	"github.com/vk/datareadygo/internal/describe"
	"github.com/vk/datareadygo/internal/quality"
	"github.com/vk/datareadygo/internal/sandbox"
	"github.com/vk/datareadygo/internal/score"
	"github.com/vk/datareadygo/internal/viz"
)

// Summary is the summary stage payload: the readiness verdict plus the
// stages it was built from.
type Summary struct {
	DatasetID string      `json:"dataset_id"`
	Score     score.Score `json:"score"`
	// Includes names the optional stages folded into this summary.
	Includes []string `json:"includes"`
	Issues   []string `json:"issues,omitempty"`
}

// Payload is the full read-only view of a session's current dataset:
// the latest readiness score, quality profiles, descriptive statistics,
// chart specs and the transformation lineage.
type Payload struct {
	DatasetID       string             `json:"dataset_id"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Score           *score.Score       `json:"score,omitempty"`
	Quality         *quality.Result    `json:"quality,omitempty"`
	Describe        *describe.Result   `json:"describe,omitempty"`
	Viz             *viz.Result        `json:"viz,omitempty"`
	Transformations []sandbox.Summary `json:"transformations,omitempty"`
}
