package analytics

import "math"

// Slope thresholds for calling a series increasing or decreasing.
const slopeEpsilon = 0.1

// Pattern summarizes the shape of a value series for pattern-analysis
// panels.
type Pattern struct {
	Direction   TrendDirection `json:"direction"`
	Slope       float64        `json:"slope"`
	Consistency float64        `json:"consistency"` // 0..100, higher is steadier
}

// AnalyzePattern fits an ordinary least-squares line over index-vs-value
// and scores how consistent the series is. An empty series is stable
// with zero consistency.
func AnalyzePattern(values []float64) Pattern {
	p := Pattern{Direction: TrendStable}
	n := len(values)
	if n == 0 {
		return p
	}

	var sum, sumXY, sumX, sumXX float64
	for i, v := range values {
		x := float64(i)
		sum += v
		sumX += x
		sumXY += x * v
		sumXX += x * x
	}
	mean := sum / float64(n)

	if n > 1 {
		denom := float64(n)*sumXX - sumX*sumX
		if denom != 0 {
			p.Slope = (float64(n)*sumXY - sumX*sum) / denom
		}
	}
	switch {
	case p.Slope > slopeEpsilon:
		p.Direction = TrendUp
	case p.Slope < -slopeEpsilon:
		p.Direction = TrendDown
	}

	if mean == 0 {
		return p
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	stddev := math.Sqrt(variance / float64(n))
	p.Consistency = math.Max(0, math.Min(100, 100-(stddev/mean)*100))
	return p
}
