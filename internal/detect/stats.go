package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/aggregator"

	"github.com/ANIKETSHETTY47/substation-telemetry-alerts/internal/domain"
)

// Aggregate reduces vals with the named statistic. vals must be non-empty.
func Aggregate(stat domain.Statistic, vals []float64) (float64, error) {
	if len(vals) == 0 {
		return 0, fmt.Errorf("aggregate %s: no values", stat)
	}
	switch stat {
	case domain.StatMean:
		points := make([]aggregator.Point, len(vals))
		for i, v := range vals {
			points[i] = aggregator.Point{Value: v}
		}
		return aggregator.Average(points), nil
	case domain.StatMedian:
		return median(vals), nil
	case domain.StatMax:
		return findMax(vals), nil
	}
	return 0, fmt.Errorf("aggregate: unknown statistic %q", stat)
}

func median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func findMax(vals []float64) float64 {
	m := math.Inf(-1)
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

// round2 rounds to two decimals, half to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
