// Package config defines the static configuration surface of the engine:
// every analysis threshold and score weight is a named, overridable knob.
// Configuration is loaded once and validated before any stage runs.
package config

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ConfigurationError reports an invalid threshold or weight at load time.
// It is fatal: the engine refuses to run with a bad configuration.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Thresholds holds every analysis cutoff used by the quality analyzer and
// score aggregator.
type Thresholds struct {
	// HighMissing marks a column as high-missing when its missing
	// fraction exceeds this value.
	HighMissing float64 `yaml:"high_missing"`
	// IQRMultiplier scales the interquartile range when computing
	// outlier bounds.
	IQRMultiplier float64 `yaml:"iqr_multiplier"`
	// ZScoreCutoff is the absolute z-score above which a value counts
	// as an outlier.
	ZScoreCutoff float64 `yaml:"zscore_cutoff"`
	// OutlierColumn marks a numeric column as outlier-heavy when the
	// fraction of outlying values (by either method) exceeds this value.
	OutlierColumn float64 `yaml:"outlier_column"`
	// HighCardinality flags a categorical column when its distinct
	// fraction exceeds this value.
	HighCardinality float64 `yaml:"high_cardinality"`
	// LeakageDistinct flags a column as ID-like when its distinct
	// fraction exceeds this stricter value.
	LeakageDistinct float64 `yaml:"leakage_distinct"`
	// ImbalanceMajority flags class imbalance when the majority class
	// fraction exceeds this value.
	ImbalanceMajority float64 `yaml:"imbalance_majority"`
	// TypeConsistencyLow and TypeConsistencyHigh bound the coercion
	// success band that signals mixed content: a success fraction
	// strictly inside (low, high) is neither clearly one type nor
	// clearly none.
	TypeConsistencyLow  float64 `yaml:"type_consistency_low"`
	TypeConsistencyHigh float64 `yaml:"type_consistency_high"`
}

// Weights holds the relative weight of each readiness score component.
// They need not sum to one; the aggregator normalizes.
type Weights struct {
	Missingness     float64 `yaml:"missingness"`
	Duplicates      float64 `yaml:"duplicates"`
	Outliers        float64 `yaml:"outliers"`
	Cardinality     float64 `yaml:"cardinality"`
	TypeConsistency float64 `yaml:"type_consistency"`
}

// Config is the full static configuration of an analysis session.
type Config struct {
	Thresholds Thresholds `yaml:"thresholds"`
	Weights    Weights    `yaml:"weights"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Thresholds: Thresholds{
			HighMissing:         0.20,
			IQRMultiplier:       1.5,
			ZScoreCutoff:        3.0,
			OutlierColumn:       0.05,
			HighCardinality:     0.5,
			LeakageDistinct:     0.95,
			ImbalanceMajority:   0.7,
			TypeConsistencyLow:  0.10,
			TypeConsistencyHigh: 0.90,
		},
		Weights: Weights{
			Missingness:     1,
			Duplicates:      1,
			Outliers:        1,
			Cardinality:     1,
			TypeConsistency: 1,
		},
	}
}

// Validate checks every knob and returns a ConfigurationError on the
// first violation.
func (c Config) Validate() error {
	fraction := []validation.Rule{validation.Min(0.0), validation.Max(1.0)}

	err := validation.Errors{
		"thresholds.high_missing":          validation.Validate(c.Thresholds.HighMissing, fraction...),
		"thresholds.iqr_multiplier":        validation.Validate(c.Thresholds.IQRMultiplier, validation.Required, validation.Min(0.0)),
		"thresholds.zscore_cutoff":         validation.Validate(c.Thresholds.ZScoreCutoff, validation.Required, validation.Min(0.0)),
		"thresholds.outlier_column":        validation.Validate(c.Thresholds.OutlierColumn, fraction...),
		"thresholds.high_cardinality":      validation.Validate(c.Thresholds.HighCardinality, fraction...),
		"thresholds.leakage_distinct":      validation.Validate(c.Thresholds.LeakageDistinct, fraction...),
		"thresholds.imbalance_majority":    validation.Validate(c.Thresholds.ImbalanceMajority, fraction...),
		"thresholds.type_consistency_low":  validation.Validate(c.Thresholds.TypeConsistencyLow, fraction...),
		"thresholds.type_consistency_high": validation.Validate(c.Thresholds.TypeConsistencyHigh, fraction...),
		"weights.missingness":              validation.Validate(c.Weights.Missingness, validation.Min(0.0)),
		"weights.duplicates":               validation.Validate(c.Weights.Duplicates, validation.Min(0.0)),
		"weights.outliers":                 validation.Validate(c.Weights.Outliers, validation.Min(0.0)),
		"weights.cardinality":              validation.Validate(c.Weights.Cardinality, validation.Min(0.0)),
		"weights.type_consistency":         validation.Validate(c.Weights.TypeConsistency, validation.Min(0.0)),
	}.Filter()
	if err != nil {
		return &ConfigurationError{Err: err}
	}

	if c.Thresholds.TypeConsistencyLow >= c.Thresholds.TypeConsistencyHigh {
		return &ConfigurationError{Err: fmt.Errorf("type_consistency_low (%v) must be below type_consistency_high (%v)",
			c.Thresholds.TypeConsistencyLow, c.Thresholds.TypeConsistencyHigh)}
	}

	w := c.Weights
	if w.Missingness+w.Duplicates+w.Outliers+w.Cardinality+w.TypeConsistency <= 0 {
		return &ConfigurationError{Err: fmt.Errorf("score weights must not all be zero")}
	}
	return nil
}
