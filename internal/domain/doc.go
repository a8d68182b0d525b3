// Package domain defines the core types for post-processing results of the
// overflow network simulator.
//
// # Result Trees
//
// A result file is a tree: scenario file → intensity point → group →
// traffic class → statistic → per-trial values. Table is an
// insertion-ordered mapping whose values are Nodes, a closed set of
// variants: Scalar, Trials (all-numeric sequence), List (any other
// sequence) and *Table. Codecs build this representation once, so the
// rest of the module never inspects raw decoded values.
//
// Keys starting with "_" are metadata (for example the _scenario
// description) and are skipped by Table.Entities and Table.EntityKeys.
//
// # Entity Identifiers
//
// EntityID names either a single group (atomic) or a layer aggregate
// created by the analytical model, written as "L<layer>:<g1>;<g2>;".
// ParseEntity decides the variant from the first character.
//
// # Series
//
// Series holds intensity values (X) in source order with the per-trial
// values (Y) for one SeriesKey, plus the mean and confidence half-width
// filled by the statistics engine.
//
// # Errors
//
// Sentinel errors cover the skip conditions of extraction, structural
// mismatches and the confidence interval estimator. ExtractionError
// carries the location of a skipped point and unwraps to its sentinel.
package domain
