package quality

import (
	"fmt"
	"math"

	"github.com/vk/datareadygo/internal/config"
	"github.com/vk/datareadygo/internal/dataset"
)

// classImbalance evaluates class balance for the designated target
// column, or for a heuristically chosen low-cardinality categorical
// column when none is designated. Returns nil when no candidate exists.
func classImbalance(ds *dataset.Dataset, profiles []ColumnProfile, th config.Thresholds, target string) *Imbalance {
	name := target
	if name == "" {
		name = pickTarget(profiles)
	}
	if name == "" {
		return nil
	}
	col, ok := ds.Column(name)
	if !ok {
		return nil
	}

	counts := make(map[string]int)
	total := 0
	for _, cell := range col.Cells {
		if cell == nil {
			continue
		}
		counts[fmt.Sprintf("%v", cell)]++
		total++
	}
	if total == 0 || len(counts) < 2 {
		return nil
	}

	imb := &Imbalance{Column: name, Frequencies: make(map[string]float64, len(counts))}
	entropy := 0.0
	for class, n := range counts {
		f := float64(n) / float64(total)
		imb.Frequencies[class] = f
		if f > imb.MajorityFraction {
			imb.MajorityFraction = f
		}
		entropy -= f * math.Log2(f)
	}
	imb.NormalizedEntropy = entropy / math.Log2(float64(len(counts)))
	imb.Imbalanced = imb.MajorityFraction > th.ImbalanceMajority
	return imb
}

// pickTarget chooses the categorical column with the fewest distinct
// classes in [2, 20]. Profile order breaks ties, which keeps the choice
// deterministic.
func pickTarget(profiles []ColumnProfile) string {
	best := ""
	bestDistinct := math.MaxInt
	for _, p := range profiles {
		if p.Unanalyzed || !p.Semantic.IsCategorical() {
			continue
		}
		if p.Distinct < 2 || p.Distinct > 20 {
			continue
		}
		if p.Distinct < bestDistinct {
			best = p.Name
			bestDistinct = p.Distinct
		}
	}
	return best
}
