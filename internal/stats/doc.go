// Package stats reduces extracted series to means and confidence
// intervals and derives relative series between two result sets.
//
// What:
//
//   - MeanAndCI: sample mean and Student-t half-width for per-trial values.
//   - Reduce: applies MeanAndCI to every point of a Series.
//   - KeyPaths, StructurallyEqual, PathDiff, CompareTrees: structural
//     equivalence of two result trees.
//   - RatioSeries, DifferenceSeries: position-wise comparison of means.
//
// Relative series are computed even when the trees differ in structure;
// CompareTrees reports the mismatch so callers can warn about it.
//
// Errors:
//
//   - domain.ErrConfidenceInterval: no samples or invalid confidence level.
//   - domain.ErrStructuralMismatch: advisory, from CompareTrees.
package stats
