// Package extract walks scenario result trees and produces ordered series
// per (group, traffic class, statistic).
//
// Extraction is tolerant by construction. A result corpus collected from
// many independent runs routinely has intensity points where a group was
// reported per layer, or where a traffic class was never served; such a
// point is skipped with a structured warning (component, scenario,
// intensity, key, reason) and an optional SkipHandler callback, and the
// rest of the series is still produced.
//
// Series are returned in the order intensity points appear in the source
// tree. Callers that want numeric order use domain.Series.SortByX.
package extract
