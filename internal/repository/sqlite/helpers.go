package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mutostats/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// floatAt returns v[i] as a nullable float. Derived statistics are only
// stored when they cover every point.
func floatAt(v []float64, i, n int) sql.NullFloat64 {
	if len(v) != n {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v[i], Valid: true}
}

// parseTimestamp reads a DATETIME column scanned as text
func parseTimestamp(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ============================================================================
// Series Row Scanner
// ============================================================================

// seriesColumns MUST match seriesRow.scanArgs order
const seriesColumns = `id, scenario, scenario_name, group_id, traffic_class, statistic, name`

// seriesRow holds all columns from a series query for scanning
type seriesRow struct {
	ID           int64
	Scenario     string
	ScenarioName string
	Group        string
	TrafficClass int
	Statistic    string
	Name         string
}

func (r *seriesRow) scanArgs() []any {
	return []any{
		&r.ID,
		&r.Scenario,
		&r.ScenarioName,
		&r.Group,
		&r.TrafficClass,
		&r.Statistic,
		&r.Name,
	}
}

func (r *seriesRow) toDomain() domain.ScenarioSeries {
	return domain.ScenarioSeries{
		Key: domain.SeriesKey{
			Scenario:     r.Scenario,
			Group:        r.Group,
			TrafficClass: r.TrafficClass,
			Statistic:    r.Statistic,
		},
		ScenarioName: r.ScenarioName,
		Series:       domain.Series{Name: r.Name},
	}
}

// ============================================================================
// Point Row Scanner
// ============================================================================

// pointRow holds one stored point: position, x, mean, half_width, trials
type pointRow struct {
	Position  int
	X         float64
	Mean      sql.NullFloat64
	HalfWidth sql.NullFloat64
	Trials    string
}

func (r *pointRow) scanArgs() []any {
	return []any{&r.Position, &r.X, &r.Mean, &r.HalfWidth, &r.Trials}
}

// pointInsertArgs returns one argument list per point of s
func pointInsertArgs(seriesID int64, s *domain.Series) ([][]any, error) {
	n := s.Len()
	if len(s.Y) != n {
		return nil, fmt.Errorf("series %q has %d intensities but %d trial sets", s.Name, n, len(s.Y))
	}

	out := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		trials := s.Y[i]
		if trials == nil {
			trials = []float64{}
		}
		data, err := json.Marshal(trials)
		if err != nil {
			return nil, err
		}
		out = append(out, []any{
			seriesID,
			i,
			s.X[i],
			floatAt(s.Mean, i, n),
			floatAt(s.HalfWidth, i, n),
			string(data),
		})
	}
	return out, nil
}

// fillSeries copies points into s. Mean and HalfWidth are set only when
// every point carries them.
func fillSeries(s *domain.Series, points []pointRow) error {
	hasMean, hasHalf := len(points) > 0, len(points) > 0
	for _, p := range points {
		hasMean = hasMean && p.Mean.Valid
		hasHalf = hasHalf && p.HalfWidth.Valid
	}

	for _, p := range points {
		var trials []float64
		if err := json.Unmarshal([]byte(p.Trials), &trials); err != nil {
			return fmt.Errorf("failed to unmarshal trials of %q: %w", s.Name, err)
		}
		s.Append(p.X, trials)
		if hasMean {
			s.Mean = append(s.Mean, p.Mean.Float64)
		}
		if hasHalf {
			s.HalfWidth = append(s.HalfWidth, p.HalfWidth.Float64)
		}
	}
	return nil
}
