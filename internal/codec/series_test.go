package codec_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mutostats/internal/codec"
	"mutostats/internal/domain"
)

func exported() []domain.ScenarioSeries {
	return []domain.ScenarioSeries{{
		Key:          domain.SeriesKey{Scenario: "s1", Group: "G1", TrafficClass: 1, Statistic: "P_block"},
		ScenarioName: "demo",
		Series: domain.Series{
			Name:      "t1=1",
			X:         []float64{0.5, 1.0},
			Y:         [][]float64{{0.1, 0.2}, {0.3}},
			Mean:      []float64{0.15, 0.3},
			HalfWidth: []float64{0.6, 0},
		},
	}}
}

func TestSeriesExporters(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			exp, err := codec.SeriesExporterFor(format, 0.95)
			require.NoError(t, err)
			assert.Equal(t, format, exp.Format())

			var buf bytes.Buffer
			require.NoError(t, exp.Export(exported(), &buf))

			confidence, series, err := codec.ReadSeries(&buf)
			require.NoError(t, err)
			assert.Equal(t, 0.95, confidence)
			assert.Equal(t, exported(), series)
		})
	}

	_, err := codec.SeriesExporterFor("csv", 0.95)
	assert.ErrorIs(t, err, domain.ErrUnknownFormat)
}
