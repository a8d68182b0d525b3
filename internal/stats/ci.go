package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"mutostats/internal/domain"
)

// DefaultConfidence is the confidence level used when none is configured
const DefaultConfidence = 0.95

// MeanAndCI returns the sample mean of values and the half-width of its
// two-sided Student-t confidence interval at the given level.
//
// A single sample yields a zero half-width. No samples, a NaN or
// infinite sample, or a level outside (0, 1) is ErrConfidenceInterval.
func MeanAndCI(values []float64, confidence float64) (mean, halfWidth float64, err error) {
	if len(values) == 0 {
		return 0, 0, fmt.Errorf("%w: insufficient samples", domain.ErrConfidenceInterval)
	}
	if !(confidence > 0 && confidence < 1) {
		return 0, 0, fmt.Errorf("%w: confidence %v outside (0, 1)", domain.ErrConfidenceInterval, confidence)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, fmt.Errorf("%w: sample %d is %v", domain.ErrConfidenceInterval, i, v)
		}
	}

	mean = stat.Mean(values, nil)
	if len(values) == 1 {
		return mean, 0, nil
	}

	n := float64(len(values))
	sem := stat.StdErr(stat.StdDev(values, nil), n)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}.Quantile((1 + confidence) / 2)
	return mean, sem * t, nil
}

// Reduce fills Mean and HalfWidth of s from its per-point trials. A
// point without trials makes the whole reduction fail, leaving s as it
// was.
func Reduce(s *domain.Series, confidence float64) error {
	means := make([]float64, len(s.Y))
	halves := make([]float64, len(s.Y))
	for i, trials := range s.Y {
		m, h, err := MeanAndCI(trials, confidence)
		if err != nil {
			return fmt.Errorf("point %d of %s: %w", i, s.Name, err)
		}
		means[i], halves[i] = m, h
	}
	s.Mean, s.HalfWidth = means, halves
	return nil
}
