// Package service runs analysis sessions over result corpora.
//
// A CorpusLoader reads one or more result files and merges them into a
// Corpus. A Session selects scenarios from the corpus, extracts and
// reduces series on demand and caches them for its lifetime. Compare
// relates two scenarios through a Relation, and Persist hands computed
// series to a repository.SeriesStore.
//
// # Event System
//
// Loading, merging, skipped points, structural mismatches and stored
// series are published on an EventBus. Publishing never blocks and a nil
// bus drops events, so callers that do not listen pass nil.
package service
