package repository

import (
	"context"
	"errors"
	"time"

	"mutostats/internal/domain"
)

// ErrNotFound indicates no stored series matches a key
var ErrNotFound = errors.New("series not found")

// Source records one result file that contributed to stored series
type Source struct {
	Location    string
	Format      string
	Fingerprint string
	LoadedAt    time.Time
}

// Stats summarizes the store contents
type Stats struct {
	SourceCount int64 `json:"source_count"`
	SeriesCount int64 `json:"series_count"`
	PointCount  int64 `json:"point_count"`
}

// SeriesStore persists computed series for rendering collaborators
type SeriesStore interface {
	// Provenance
	RecordSource(ctx context.Context, src Source) error
	ListSources(ctx context.Context) ([]Source, error)

	// Series, keyed by domain.SeriesKey; saving an existing key replaces its points
	SaveSeries(ctx context.Context, series []domain.ScenarioSeries) error
	GetSeries(ctx context.Context, key domain.SeriesKey) (*domain.ScenarioSeries, error)
	ListSeries(ctx context.Context, scenario string) ([]domain.ScenarioSeries, error)
	DeleteScenario(ctx context.Context, scenario string) error

	Stats(ctx context.Context) (Stats, error)

	// Close releases resources
	Close() error
}
