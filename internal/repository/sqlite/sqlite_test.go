package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"mutostats/internal/domain"
	"mutostats/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite store for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

func makeSeries(scenario, group string, tc int, x ...float64) domain.ScenarioSeries {
	s := domain.Series{Name: "t1"}
	for i, v := range x {
		s.Append(v, []float64{float64(i), float64(i) + 1})
		s.Mean = append(s.Mean, float64(i)+0.5)
		s.HalfWidth = append(s.HalfWidth, 0.25)
	}
	return domain.ScenarioSeries{
		Key:          domain.SeriesKey{Scenario: scenario, Group: group, TrafficClass: tc, Statistic: "P_block"},
		ScenarioName: scenario + "-name",
		Series:       s,
	}
}

// ============================================================================
// Series Tests
// ============================================================================

func TestSaveAndGetSeries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := makeSeries("s1", "G1", 1, 0.5, 1.0, 1.5)
	assertNoError(t, repo.SaveSeries(ctx, []domain.ScenarioSeries{in}))

	got, err := repo.GetSeries(ctx, in.Key)
	assertNoError(t, err)
	assertEqual(t, in, *got)
}

func TestSaveSeriesReplacesPoints(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assertNoError(t, repo.SaveSeries(ctx, []domain.ScenarioSeries{makeSeries("s1", "G1", 1, 0.5, 1.0)}))
	again := makeSeries("s1", "G1", 1, 2.0)
	again.Series.Name = "t1=2"
	assertNoError(t, repo.SaveSeries(ctx, []domain.ScenarioSeries{again}))

	got, err := repo.GetSeries(ctx, again.Key)
	assertNoError(t, err)
	assertEqual(t, []float64{2.0}, got.Series.X)
	assertEqual(t, "t1=2", got.Series.Name)

	stats, err := repo.Stats(ctx)
	assertNoError(t, err)
	assertEqual(t, int64(1), stats.SeriesCount)
	assertEqual(t, int64(1), stats.PointCount)
}

func TestSeriesWithoutStatistics(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	raw := makeSeries("s1", "G1", 2, 0.5, 1.0)
	raw.Series.Mean = nil
	raw.Series.HalfWidth = nil
	assertNoError(t, repo.SaveSeries(ctx, []domain.ScenarioSeries{raw}))

	got, err := repo.GetSeries(ctx, raw.Key)
	assertNoError(t, err)
	if got.Series.Mean != nil || got.Series.HalfWidth != nil {
		t.Errorf("expected no derived statistics, got mean=%v half=%v", got.Series.Mean, got.Series.HalfWidth)
	}
	assertEqual(t, raw.Series.Y, got.Series.Y)
}

func TestGetSeriesNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetSeries(context.Background(), domain.SeriesKey{Scenario: "none"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSeries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assertNoError(t, repo.SaveSeries(ctx, []domain.ScenarioSeries{
		makeSeries("s2", "G1", 1, 0.5),
		makeSeries("s1", "G2", 1, 0.5, 1.0),
		makeSeries("s2", "G1", 2, 0.5),
	}))

	all, err := repo.ListSeries(ctx, "")
	assertNoError(t, err)
	if len(all) != 3 {
		t.Fatalf("expected 3 series, got %d", len(all))
	}
	assertEqual(t, "s2", all[0].Key.Scenario)
	assertEqual(t, "s1", all[1].Key.Scenario)
	assertEqual(t, 2, all[1].Series.Len())

	s2, err := repo.ListSeries(ctx, "s2")
	assertNoError(t, err)
	assertEqual(t, 2, len(s2))
	assertEqual(t, 2, s2[1].Key.TrafficClass)
}

func TestDeleteScenarioRemovesPoints(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assertNoError(t, repo.SaveSeries(ctx, []domain.ScenarioSeries{
		makeSeries("s1", "G1", 1, 0.5, 1.0),
		makeSeries("s2", "G1", 1, 0.5),
	}))
	assertNoError(t, repo.DeleteScenario(ctx, "s1"))

	stats, err := repo.Stats(ctx)
	assertNoError(t, err)
	assertEqual(t, int64(1), stats.SeriesCount)
	assertEqual(t, int64(1), stats.PointCount)
}

func TestSaveSeriesRollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ragged := makeSeries("s1", "G2", 1, 0.5)
	ragged.Series.X = append(ragged.Series.X, 1.0)

	err := repo.SaveSeries(ctx, []domain.ScenarioSeries{makeSeries("s1", "G1", 1, 0.5), ragged})
	if err == nil {
		t.Fatal("expected error for series with mismatched lengths")
	}

	stats, err := repo.Stats(ctx)
	assertNoError(t, err)
	assertEqual(t, int64(0), stats.SeriesCount)
}

// ============================================================================
// Source Tests
// ============================================================================

func TestRecordSource(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assertNoError(t, repo.RecordSource(ctx, repository.Source{Location: "b.json", Format: "json", Fingerprint: "aa"}))
	assertNoError(t, repo.RecordSource(ctx, repository.Source{Location: "a.cbor", Format: "cbor", Fingerprint: "bb"}))
	assertNoError(t, repo.RecordSource(ctx, repository.Source{Location: "b.json", Format: "json", Fingerprint: "cc"}))

	sources, err := repo.ListSources(ctx)
	assertNoError(t, err)
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	assertEqual(t, "a.cbor", sources[0].Location)
	assertEqual(t, "cc", sources[1].Fingerprint)
	if sources[0].LoadedAt.IsZero() {
		t.Error("expected loaded_at to be set")
	}
}

func TestOpenOptions(t *testing.T) {
	repo, err := Open(":memory:", Options{JournalMode: "delete", BusyTimeoutMS: 100})
	assertNoError(t, err)
	repo.Close()

	if _, err := Open(":memory:", Options{JournalMode: "bogus"}); err == nil {
		t.Fatal("expected error for unsupported journal mode")
	}
}
