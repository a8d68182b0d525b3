// Package repository defines the series store used to hand computed
// series to rendering tools.
//
// The store holds three kinds of records: the result files a run was
// loaded from (with their BLAKE2b fingerprints), one row per extracted
// series keyed by scenario, group, traffic class and statistic, and the
// ordered points of each series with their trials, mean and half-width.
//
// # SQLite Implementation
//
// The sqlite subpackage implements SeriesStore on modernc.org/sqlite. The
// schema is created on open. Saving a series whose key already exists
// replaces its points inside one transaction.
//
// # Testing
//
// The sqlite store is tested against in-memory databases.
package repository
