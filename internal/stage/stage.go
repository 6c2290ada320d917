// Package stage declares the closed set of analysis stages and their
// static dependency graph. The router operates purely on this set; there
// is no open-ended plugin registry.
package stage

import "fmt"

// Kind identifies one discrete analysis stage.
type Kind string

const (
	Ingestion Kind = "ingestion"
	Quality   Kind = "quality"
	Describe  Kind = "describe"
	Viz       Kind = "viz"
	Summary   Kind = "summary"
)

// All returns every stage kind in declaration order. Declaration order is
// the tie-break order for stages that become runnable at the same time.
func All() []Kind {
	return []Kind{Ingestion, Quality, Describe, Viz, Summary}
}

// Deps returns the hard dependencies of a stage: the stages whose outputs
// it always consumes.
func (k Kind) Deps() []Kind {
	switch k {
	case Quality, Describe, Viz:
		return []Kind{Ingestion}
	case Summary:
		return []Kind{Ingestion}
	default:
		return nil
	}
}

// OptionalDeps returns the stages whose outputs k folds in when they are
// available. Only Summary has any: it reports over whichever of quality,
// describe and viz were requested alongside it.
func (k Kind) OptionalDeps() []Kind {
	if k == Summary {
		return []Kind{Quality, Describe, Viz}
	}
	return nil
}

// Parse converts a request string into a Kind.
func Parse(s string) (Kind, error) {
	for _, k := range All() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("stage: unknown stage %q", s)
}

// Index returns the declaration-order position of k, used as the stable
// tie-break when ordering a plan level. Unknown kinds sort last.
func Index(k Kind) int {
	for i, other := range All() {
		if k == other {
			return i
		}
	}
	return len(All())
}
