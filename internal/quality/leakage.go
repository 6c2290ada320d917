package quality

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/vk/datareadygo/internal/dataset"
)

// isSequentialInts reports whether a numeric column's non-missing values
// are whole numbers forming a step-one sequence once sorted, the classic
// shape of a row identifier.
func isSequentialInts(col dataset.Column, cells []any) bool {
	if col.Kind != dataset.KindNumber || len(cells) < 2 {
		return false
	}
	values := make([]float64, 0, len(cells))
	for _, cell := range cells {
		v, ok := cell.(float64)
		if !ok || v != math.Trunc(v) {
			return false
		}
		values = append(values, v)
	}
	sort.Float64s(values)
	for i := 1; i < len(values); i++ {
		if values[i]-values[i-1] != 1 {
			return false
		}
	}
	return true
}

// isUUIDLike reports whether at least 90% of a text column's non-missing
// values parse as UUIDs.
func isUUIDLike(col dataset.Column, cells []any) bool {
	if col.Kind != dataset.KindString || len(cells) == 0 {
		return false
	}
	ok := 0
	for _, cell := range cells {
		s, isStr := cell.(string)
		if !isStr {
			continue
		}
		if _, err := uuid.Parse(s); err == nil {
			ok++
		}
	}
	return float64(ok)/float64(len(cells)) >= 0.9
}
