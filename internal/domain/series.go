package domain

import (
	"fmt"
	"sort"
)

// SeriesKey identifies one extracted series inside an analysis session
type SeriesKey struct {
	Scenario     string `json:"scenario" yaml:"scenario"`
	Group        string `json:"group" yaml:"group"`
	TrafficClass int    `json:"traffic_class" yaml:"traffic_class"`
	Statistic    string `json:"statistic" yaml:"statistic"`
}

// String renders the key for logs
func (k SeriesKey) String() string {
	return fmt.Sprintf("%s/%s/%d/%s", k.Scenario, k.Group, k.TrafficClass, k.Statistic)
}

// Series is an ordered sequence of intensity points with their trials.
// Mean and HalfWidth are filled by the statistics engine and, once set,
// have the same length as X and Y.
type Series struct {
	Name      string      `json:"name" yaml:"name"`
	X         []float64   `json:"x" yaml:"x"`
	Y         [][]float64 `json:"y" yaml:"y"`
	Mean      []float64   `json:"mean,omitempty" yaml:"mean,omitempty"`
	HalfWidth []float64   `json:"half_width,omitempty" yaml:"half_width,omitempty"`
}

// Len returns the number of points
func (s *Series) Len() int {
	return len(s.X)
}

// Append adds one point
func (s *Series) Append(x float64, trials []float64) {
	s.X = append(s.X, x)
	s.Y = append(s.Y, trials)
}

// XRange returns the smallest and largest intensity
func (s *Series) XRange() (lo, hi float64, ok bool) {
	if len(s.X) == 0 {
		return 0, 0, false
	}
	lo, hi = s.X[0], s.X[0]
	for _, x := range s.X[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return lo, hi, true
}

// HasMultipleTrials reports whether the first point carries more than
// one trial, which is what a box plot needs
func (s *Series) HasMultipleTrials() bool {
	return len(s.Y) > 0 && len(s.Y[0]) > 1
}

// SortByX orders points by ascending intensity, keeping derived
// statistics aligned. Extraction never calls it on its own.
func (s *Series) SortByX() {
	idx := make([]int, len(s.X))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return s.X[idx[a]] < s.X[idx[b]] })

	x := make([]float64, len(idx))
	y := make([][]float64, len(idx))
	for i, j := range idx {
		x[i], y[i] = s.X[j], s.Y[j]
	}
	s.X, s.Y = x, y
	s.Mean = permute(s.Mean, idx)
	s.HalfWidth = permute(s.HalfWidth, idx)
}

func permute(v []float64, idx []int) []float64 {
	if len(v) != len(idx) {
		return v
	}
	out := make([]float64, len(v))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}

// ScenarioSeries ties a series to the scenario it was extracted from
type ScenarioSeries struct {
	Key          SeriesKey `json:"key" yaml:"key"`
	ScenarioName string    `json:"scenario_name" yaml:"scenario_name"`
	Series       Series    `json:"series" yaml:"series"`
}
