package quality

import (
	"github.com/vk/datareadygo/internal/config"
	"github.com/vk/datareadygo/internal/stats"
)

// detectOutliers runs both detection methods over the non-missing values
// of a numeric column. A zero standard deviation reports zero z-score
// outliers rather than failing.
func detectOutliers(values []float64, th config.Thresholds) *OutlierCounts {
	out := &OutlierCounts{}
	if len(values) == 0 {
		return out
	}

	q1 := stats.Quantile(values, 0.25)
	q3 := stats.Quantile(values, 0.75)
	iqr := q3 - q1
	out.LowerBound = q1 - th.IQRMultiplier*iqr
	out.UpperBound = q3 + th.IQRMultiplier*iqr

	mean := stats.Mean(values)
	std := stats.StdDev(values)

	either := 0
	for _, v := range values {
		iqrOut := v < out.LowerBound || v > out.UpperBound
		zOut := false
		if std > 0 {
			z := (v - mean) / std
			if z < 0 {
				z = -z
			}
			zOut = z > th.ZScoreCutoff
		}
		if iqrOut {
			out.IQR++
		}
		if zOut {
			out.ZScore++
		}
		if iqrOut || zOut {
			either++
		}
	}
	out.Fraction = float64(either) / float64(len(values))
	return out
}
