package extract_test

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"mutostats/internal/domain"
	"mutostats/internal/extract"
	"mutostats/internal/stats"
)

func point(groups ...any) *domain.Table {
	t := domain.NewTable()
	for i := 0; i < len(groups); i += 2 {
		t.Set(groups[i].(string), groups[i+1].(*domain.Table))
	}
	return t
}

func tcs(pairs ...any) *domain.Table {
	t := domain.NewTable()
	for i := 0; i < len(pairs); i += 2 {
		t.Set(pairs[i].(string), domain.NewTable().With("P_block", domain.Trials(pairs[i+1].([]float64))))
	}
	return t
}

func scenario() extract.Scenario {
	tree := domain.NewTable().
		With(domain.ScenarioKey, domain.NewTable().
			With("name", domain.Scalar{Value: "demo"}).
			With("traffic_classes", domain.NewTable().
				With("1", domain.NewTable().With("size", domain.Scalar{Value: 1.0})).
				With("2", domain.NewTable().With("size", domain.Scalar{Value: 2.0})).
				With("3", domain.NewTable().With("size", domain.Scalar{Value: 2.0})))).
		With("0.5", point("G1", tcs("1", []float64{0.1, 0.2}))).
		With("1.0", point("G1", tcs("1", []float64{0.3}, "2", []float64{0.5})))
	return extract.Scenario{Key: "demo.json", Tree: tree}
}

func newExtractor() (*extract.Extractor, *logtest.Hook, *[]*domain.ExtractionError) {
	logger, hook := logtest.NewNullLogger()
	var skipped []*domain.ExtractionError
	ex := extract.New(logger, extract.WithSkipHandler(func(err *domain.ExtractionError) {
		skipped = append(skipped, err)
	}))
	return ex, hook, &skipped
}

func TestExtractEndToEnd(t *testing.T) {
	ex, hook, skipped := newExtractor()

	s := ex.Extract(scenario(), domain.Atomic("G1"), 1, "P_block")
	require.Equal(t, "t1=1", s.Name)
	require.Equal(t, []float64{0.5, 1.0}, s.X)
	require.Equal(t, [][]float64{{0.1, 0.2}, {0.3}}, s.Y)

	require.NoError(t, stats.Reduce(&s, 0.95))
	require.InDeltaSlice(t, []float64{0.15, 0.3}, s.Mean, 1e-12)
	require.Empty(t, hook.AllEntries())
	require.Empty(t, *skipped)
}

func TestExtractKeepsSourceOrder(t *testing.T) {
	ex, _, _ := newExtractor()
	tree := domain.NewTable().
		With("2.0", point("G1", tcs("1", []float64{2}))).
		With("0.5", point("G1", tcs("1", []float64{1})))

	s := ex.Extract(extract.Scenario{Key: "k", Tree: tree}, domain.Atomic("G1"), 1, "P_block")
	require.Equal(t, []float64{2.0, 0.5}, s.X)
	require.Equal(t, "t1", s.Name)
}

func TestExtractSkipsMissing(t *testing.T) {
	ex, hook, skipped := newExtractor()

	s := ex.Extract(scenario(), domain.Atomic("G1"), 2, "P_block")
	require.Equal(t, []float64{1.0}, s.X)
	require.Len(t, *skipped, 1)
	require.True(t, errors.Is((*skipped)[0], domain.ErrTrafficClassNotFound))
	require.Equal(t, "0.5", (*skipped)[0].Intensity)

	entry := hook.LastEntry()
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "extract", entry.Data["component"])
	require.Equal(t, "2", entry.Data["key"])

	s = ex.Extract(scenario(), domain.Atomic("G9"), 1, "P_block")
	require.Zero(t, s.Len())
	require.ErrorIs(t, (*skipped)[len(*skipped)-1], domain.ErrGroupNotFound)

	s = ex.Extract(scenario(), domain.Atomic("G1"), 1, "served")
	require.Zero(t, s.Len())
	require.ErrorIs(t, (*skipped)[len(*skipped)-1], domain.ErrStatisticNotFound)
}

func TestExtractInvalidIntensity(t *testing.T) {
	ex, _, skipped := newExtractor()
	tree := domain.NewTable().
		With("high", point("G1", tcs("1", []float64{2}))).
		With("1.0", point("G1", tcs("1", []float64{1})))

	s := ex.Extract(extract.Scenario{Key: "k", Tree: tree}, domain.Atomic("G1"), 1, "P_block")
	require.Equal(t, []float64{1.0}, s.X)
	require.ErrorIs(t, (*skipped)[0], domain.ErrInvalidIntensity)
}

func TestExtractAcrossLayerShapes(t *testing.T) {
	ex, _, _ := newExtractor()
	layered := domain.NewTable().
		With("0.5", point("L0:G1;G2;", tcs("1", []float64{0.4})))

	s := ex.Extract(extract.Scenario{Key: "analytic", Tree: layered}, domain.Atomic("G2"), 1, "P_block")
	require.Equal(t, [][]float64{{0.4}}, s.Y)

	atomic := domain.NewTable().
		With("0.5", point("G2", tcs("1", []float64{0.6})))
	s = ex.Extract(extract.Scenario{Key: "sim", Tree: atomic}, domain.ParseEntity("L0:G1;G2;"), 1, "P_block")
	require.Equal(t, [][]float64{{0.6}}, s.Y)
}

func TestExtractAlignedPlaceholder(t *testing.T) {
	ex, hook, skipped := newExtractor()

	s := ex.ExtractAligned(scenario(), domain.Atomic("G1"), 2, "P_block")
	require.Equal(t, []float64{0.5, 1.0}, s.X)
	require.Equal(t, [][]float64{{0.0}, {0.5}}, s.Y)
	require.Empty(t, *skipped)
	require.Empty(t, hook.AllEntries())

	s.Y[0][0] = 7
	require.Equal(t, []float64{0.0}, extract.Placeholder)

	// groups that are absent are still skipped
	s = ex.ExtractAligned(scenario(), domain.Atomic("G9"), 2, "P_block")
	require.Zero(t, s.Len())
}

func TestExtractAlignedMissingStatistic(t *testing.T) {
	ex, hook, skipped := newExtractor()

	s := ex.ExtractAligned(scenario(), domain.Atomic("G1"), 1, "P_blokc")
	require.Zero(t, s.Len())
	require.Len(t, *skipped, 2)
	require.ErrorIs(t, (*skipped)[0], domain.ErrStatisticNotFound)
	require.Len(t, hook.AllEntries(), 2)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestUsedTrafficClasses(t *testing.T) {
	sc := scenario()
	sc.Tree.Set("2.0", point("G2", tcs("3", []float64{1}, "1", []float64{1})))

	require.Equal(t, map[string][]int{"G1": {1, 2}, "G2": {1, 3}}, extract.UsedTrafficClasses(sc.Tree, nil))
	require.Equal(t, map[string][]int{"G1": {2}, "G2": {}}, extract.UsedTrafficClasses(sc.Tree, []int{2}))
}

func TestExtractBySize(t *testing.T) {
	ex, _, _ := newExtractor()
	sc := scenario()
	sc.Tree.Set("1.5", point("G1", tcs("2", []float64{1, 2}, "3", []float64{10})))

	desc, err := domain.DescribeScenario(sc.Tree)
	require.NoError(t, err)
	bySize := ex.ExtractBySize(sc, domain.Atomic("G1"), "P_block", desc.TrafficClassSizes())

	require.Len(t, bySize, 2)
	require.Equal(t, []float64{0.5, 1.0}, bySize[1].X)
	require.Equal(t, []float64{1.0, 1.5}, bySize[2].X)
	require.Equal(t, [][]float64{{0.5}, {11, 2}}, bySize[2].Y)
	require.Equal(t, "S2", bySize[2].Name)
}

func TestCache(t *testing.T) {
	c := extract.NewCache()
	key := domain.SeriesKey{Scenario: "s", Group: "G1", TrafficClass: 1, Statistic: "P_block"}

	calls := 0
	fn := func() (domain.Series, error) {
		calls++
		return domain.Series{X: []float64{1}}, nil
	}
	_, err := c.GetOrExtract(key, fn)
	require.NoError(t, err)
	got, err := c.GetOrExtract(key, fn)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Equal(t, []float64{1}, got.X)
	hits, misses := c.Stats()
	require.Equal(t, 1, hits)
	require.Equal(t, 1, misses)

	other := key
	other.TrafficClass = 2
	_, err = c.GetOrExtract(other, func() (domain.Series, error) {
		return domain.Series{}, domain.ErrConfidenceInterval
	})
	require.ErrorIs(t, err, domain.ErrConfidenceInterval)
	require.Equal(t, 1, c.Len())
}
