package scoring

import (
	"fmt"
	"math"
)

// DistributionBucket counts scores within [Min, Max). The last bucket also holds Max.
type DistributionBucket struct {
	Range    string   `json:"range"`
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Count    int      `json:"count"`
	Severity Severity `json:"severity"`
}

// ScoreDistribution is the histogram of response scores over the 1-5 scale.
type ScoreDistribution struct {
	Buckets []DistributionBucket `json:"buckets"`
	// Mode is the index of the fullest bucket, or -1 when there are no scores.
	Mode  int `json:"mode"`
	Total int `json:"total"`
}

const (
	scaleMin = 1.0
	scaleMax = 5.0
)

// Distribution buckets scores into one-point bands from 1 to 5. Scores outside the
// scale are counted in the nearest band; NaN is skipped.
func Distribution(scores []float64) ScoreDistribution {
	n := int(scaleMax - scaleMin)
	buckets := make([]DistributionBucket, n)
	for i := range buckets {
		lo := scaleMin + float64(i)
		buckets[i] = DistributionBucket{
			Range:    fmt.Sprintf("%.1f-%.1f", lo, lo+1),
			Min:      lo,
			Max:      lo + 1,
			Severity: Level(lo),
		}
	}

	total := 0
	for _, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		var idx int
		switch {
		case s < scaleMin:
			idx = 0
		case s >= scaleMax:
			idx = n - 1
		default:
			idx = int(s - scaleMin)
		}
		buckets[idx].Count++
		total++
	}

	mode := -1
	for i, b := range buckets {
		if b.Count > 0 && (mode < 0 || b.Count > buckets[mode].Count) {
			mode = i
		}
	}
	return ScoreDistribution{Buckets: buckets, Mode: mode, Total: total}
}
