package stats

import (
	"gonum.org/v1/gonum/stat"

	"mutostats/internal/domain"
)

// RatioSeries expresses a as a percentage of b, point by point on the
// means. Points where b is zero yield zero.
func RatioSeries(a, b domain.Series) domain.Series {
	return combine(a, b, func(x, y float64) float64 {
		if y == 0 {
			return 0
		}
		return x / y * 100
	})
}

// DifferenceSeries returns a minus b, point by point on the means
func DifferenceSeries(a, b domain.Series) domain.Series {
	return combine(a, b, func(x, y float64) float64 { return x - y })
}

// combine aligns both sides by left-padding the shorter one with zeros,
// which mirrors the placeholder policy of aligned extraction, and
// applies op to each pair of means. X is taken from the longer side.
func combine(a, b domain.Series, op func(x, y float64) float64) domain.Series {
	ma, mb := means(a), means(b)
	n := max(len(ma), len(mb))
	ma, mb = padLeft(ma, n), padLeft(mb, n)

	x := a.X
	if len(b.X) > len(a.X) {
		x = b.X
	}

	out := domain.Series{
		Name:      a.Name,
		X:         append([]float64(nil), x...),
		Y:         make([][]float64, n),
		Mean:      make([]float64, n),
		HalfWidth: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		v := op(ma[i], mb[i])
		out.Y[i] = []float64{v}
		out.Mean[i] = v
	}
	return out
}

// means returns the reduced means of s, computing plain means when the
// series has not been reduced yet.
func means(s domain.Series) []float64 {
	if len(s.Mean) == len(s.Y) && len(s.Mean) > 0 {
		return s.Mean
	}
	out := make([]float64, len(s.Y))
	for i, trials := range s.Y {
		if len(trials) > 0 {
			out[i] = stat.Mean(trials, nil)
		}
	}
	return out
}

func padLeft(v []float64, n int) []float64 {
	if len(v) >= n {
		return v
	}
	out := make([]float64, n)
	copy(out[n-len(v):], v)
	return out
}
