package dataset

// Semantic is the inferred semantic type of a column, a coarser notion
// than the physical Kind: a numeric column with a handful of distinct
// values is better treated as categorical by downstream heuristics.
type Semantic string

const (
	SemanticNumeric            Semantic = "numeric"
	SemanticNumericCategorical Semantic = "numeric_categorical"
	SemanticCategorical        Semantic = "categorical"
	SemanticDatetime           Semantic = "datetime"
	SemanticBoolean            Semantic = "boolean"
	SemanticText               Semantic = "text"
	SemanticUnknown            Semantic = "unknown"
)

// InferSemantic derives the semantic type of a column from its physical
// kind, distinct non-missing count and total row count.
func InferSemantic(kind Kind, distinct, rows int) Semantic {
	switch kind {
	case KindTime:
		return SemanticDatetime
	case KindBool:
		return SemanticBoolean
	case KindNumber:
		// Few distinct values relative to rows reads as categorical.
		if distinct <= 20 || float64(distinct) <= 0.05*float64(rows) {
			return SemanticNumericCategorical
		}
		return SemanticNumeric
	case KindString:
		if distinct <= 50 && float64(distinct) <= 0.1*float64(rows) {
			return SemanticCategorical
		}
		return SemanticText
	default:
		return SemanticUnknown
	}
}

// IsCategorical reports whether s behaves as a categorical type for
// cardinality and imbalance heuristics.
func (s Semantic) IsCategorical() bool {
	switch s {
	case SemanticCategorical, SemanticNumericCategorical, SemanticBoolean:
		return true
	}
	return false
}

// IsNumeric reports whether s carries numeric values usable for outlier
// detection and descriptive statistics.
func (s Semantic) IsNumeric() bool {
	return s == SemanticNumeric || s == SemanticNumericCategorical
}
