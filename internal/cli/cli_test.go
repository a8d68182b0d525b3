package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"mutostats/internal/codec"
	"mutostats/internal/domain"
)

const runOne = `{
  "s": {
    "_scenario": {"name": "first", "traffic_classes": {"1": {"size": 1}}},
    "0.5": {"G1": {"1": {"P_block": [0.1, 0.3]}}}
  },
  "r": {
    "_scenario": {"name": "second"},
    "0.5": {"G1": {"1": {"P_block": [0.2]}}, "G2": {"2": {"P_block": [0.6]}}}
  }
}`

const runTwo = `{
  "s": {
    "_scenario": {"name": "ignored"},
    "0.5": {"G1": {"1": {"P_block": [0.5]}}}
  }
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitConfigError, ExitCode(configErrorf("bad")))
	assert.Equal(t, ExitInvalidInvocation, ExitCode(fmt.Errorf("wrapped: %w", invalidInvocationf("bad"))))
	assert.Equal(t, ExitInvalidInvocation, ExitCode(&InvocationError{Message: "no code"}))
}

func TestParseMerge(t *testing.T) {
	inv, err := ParseMerge([]string{"-manifest", "m.yaml", "a.json", "b.cbor", "out.json.sz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.cbor"}, inv.Inputs)
	assert.Equal(t, "out.json.sz", inv.Output)
	assert.Equal(t, "m.yaml", inv.Manifest)
	assert.Equal(t, "info", inv.LogLevel)

	for _, args := range [][]string{
		{"a.json", "out.json"},
		{"a.json", "b.json", "out.txt"},
		{"-bogus", "a.json", "b.json", "out.json"},
	} {
		_, err := ParseMerge(args)
		assert.Equal(t, ExitInvalidInvocation, ExitCode(err), strings.Join(args, " "))
	}
}

func TestParseStats(t *testing.T) {
	inv, err := ParseStats([]string{"extract", "-group", "L0:G1;G2;", "-tc", "1, 2", "-scenarios", "0", "-aligned", "a.json"})
	require.NoError(t, err)
	assert.Equal(t, CommandExtract, inv.Command)
	assert.Equal(t, "L0:G1;G2;", inv.Group)
	assert.Equal(t, []int{1, 2}, inv.TrafficClasses)
	assert.Equal(t, []int{0}, inv.Scenarios)
	assert.True(t, inv.Aligned)
	assert.Equal(t, []string{"a.json"}, inv.Inputs)

	inv, err = ParseStats([]string{"compare", "-group", "G1", "-against", "x.json, y.json", "-relation", "difference", "-watch", "a.json"})
	require.NoError(t, err)
	assert.True(t, inv.Watch)
	assert.Equal(t, 0, inv.First)
	assert.Equal(t, 1, inv.Second)
	assert.Equal(t, []string{"x.json", "y.json"}, inv.Against)

	invalid := [][]string{
		{},
		{"plot", "a.json"},
		{"list"},
		{"extract", "-group", "G1", "a.json"},
		{"extract", "-tc", "1,x", "a.json"},
		{"extract", "-format", "xml", "a.json"},
		{"extract", "-confidence", "1.5", "a.json"},
		{"compare", "a.json"},
		{"compare", "-group", "G1", "-relation", "quotient", "a.json"},
		{"export", "a.json"},
		{"list", "-aligned", "a.json"},
		{"extract", "-by-size", "a.json"},
		{"extract", "-group", "G1", "-by-size", "-tc", "1", "a.json"},
		{"import", "-db", "s.db"},
	}
	for _, args := range invalid {
		_, err := ParseStats(args)
		assert.Equal(t, ExitInvalidInvocation, ExitCode(err), strings.Join(args, " "))
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, "warn")
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = NewLogger(&buf, "loud")
	assert.Equal(t, ExitInvalidInvocation, ExitCode(err))
}

func TestRunMerge(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "version: 1\n")
	one := writeFile(t, dir, "one.json", runOne)
	two := writeFile(t, dir, "two.json", runTwo)
	out := filepath.Join(dir, "merged.cbor")
	manifestPath := filepath.Join(dir, "manifest.yaml")

	inv, err := ParseMerge([]string{"-config", cfg, "-manifest", manifestPath, one, two, out})
	require.NoError(t, err)
	require.NoError(t, RunMerge(context.Background(), inv, io.Discard))

	merged, err := codec.Load(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, []string{"r", "s"}, merged.Keys())

	trials, ok := merged.Lookup(domain.Path{"s", "0.5", "G1", "1", "P_block"})
	require.True(t, ok)
	assert.Equal(t, domain.Trials{0.1, 0.3, 0.5}, trials)
	name, ok := merged.Lookup(domain.Path{"s", domain.ScenarioKey, "name"})
	require.True(t, ok)
	assert.Equal(t, domain.Scalar{Value: "first"}, name)

	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	var m manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, out, m.Output)
	require.Len(t, m.Inputs, 2)
	assert.Equal(t, "json", m.Inputs[0].Format)
	assert.Len(t, m.Inputs[0].Fingerprint, 64)
	assert.Contains(t, m.Provenance, manifestEntry{Path: []string{"s", "0.5", "G1", "1", "P_block"}, Source: two})
}

func TestRunMergeMissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "version: 1\n")
	one := writeFile(t, dir, "one.json", runOne)

	inv, err := ParseMerge([]string{"-config", cfg, one, filepath.Join(dir, "missing.json"), filepath.Join(dir, "out.json")})
	require.NoError(t, err)
	err = RunMerge(context.Background(), inv, io.Discard)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func runStats(t *testing.T, args ...string) string {
	t.Helper()
	inv, err := ParseStats(args)
	require.NoError(t, err)
	var stdout bytes.Buffer
	require.NoError(t, RunStats(context.Background(), inv, &stdout, io.Discard))
	return stdout.String()
}

func TestRunStatsList(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "log_level: error\n")
	one := writeFile(t, dir, "one.json", runOne)

	out := runStats(t, "list", "-config", cfg, one)
	assert.Equal(t, "0\tr\t\tsecond (r)\t\n1\ts\t\tfirst (s)\tt1=1\n", out)

	out = runStats(t, "list", "-config", cfg, "-group", "G1", one)
	assert.Contains(t, out, "1\ts\t\tG1 - first (s)\tt1=1\n")
}

func TestRunStatsExtractBySize(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "log_level: error\n")
	one := writeFile(t, dir, "one.json", runOne)

	out := runStats(t, "extract", "-config", cfg, "-group", "G1", "-by-size", one)
	_, series, err := codec.ReadSeries(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, domain.SeriesKey{Scenario: "s", Group: "G1", TrafficClass: 1, Statistic: "P_block@size"}, series[0].Key)
	assert.InDelta(t, 0.2, series[0].Series.Mean[0], 1e-12)
}

func TestRunStatsImportReplace(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "log_level: error\n")
	one := writeFile(t, dir, "one.json", runOne)
	db := filepath.Join(dir, "series.db")
	doc := filepath.Join(dir, "r.yaml")

	runStats(t, "extract", "-config", cfg, "-format", "sqlite", "-db", db, one)
	runStats(t, "extract", "-config", cfg, "-group", "G1", "-tc", "1", "-scenarios", "0", "-format", "yaml", "-o", doc, one)

	runStats(t, "import", "-config", cfg, "-db", db, doc)
	out := runStats(t, "export", "-config", cfg, "-db", db, "-scenario", "r", "-format", "json")
	_, series, err := codec.ReadSeries(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, series, 2)

	runStats(t, "import", "-config", cfg, "-db", db, "-replace", doc)
	out = runStats(t, "export", "-config", cfg, "-db", db, "-scenario", "r", "-format", "json")
	_, series, err = codec.ReadSeries(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "G1", series[0].Key.Group)

	// other scenarios are untouched
	out = runStats(t, "export", "-config", cfg, "-db", db, "-scenario", "s", "-format", "json")
	_, series, err = codec.ReadSeries(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, series, 1)
}

func TestRunStatsExtract(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "log_level: error\nconfidence: 0.9\n")
	one := writeFile(t, dir, "one.json", runOne)

	out := runStats(t, "extract", "-config", cfg, one)
	confidence, series, err := codec.ReadSeries(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 0.9, confidence)
	require.Len(t, series, 3)
	assert.Equal(t, "r", series[0].Key.Scenario)
	assert.Equal(t, "G2", series[1].Key.Group)

	out = runStats(t, "extract", "-config", cfg, "-group", "G1", "-tc", "1", "-scenarios", "1", "-format", "yaml", one)
	_, series, err = codec.ReadSeries(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "first", series[0].ScenarioName)
	assert.InDelta(t, 0.2, series[0].Series.Mean[0], 1e-12)
}

func TestRunStatsStoreAndExport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "log_level: error\n")
	one := writeFile(t, dir, "one.json", runOne)
	db := filepath.Join(dir, "series.db")

	out := runStats(t, "extract", "-config", cfg, "-format", "sqlite", "-db", db, one)
	assert.Empty(t, out)

	out = runStats(t, "export", "-config", cfg, "-db", db, "-scenario", "s", "-format", "json")
	_, series, err := codec.ReadSeries(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, domain.SeriesKey{Scenario: "s", Group: "G1", TrafficClass: 1, Statistic: "P_block"}, series[0].Key)
	assert.Equal(t, []float64{0.5}, series[0].Series.X)
}

func TestRunStatsCompare(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "log_level: error\n")
	one := writeFile(t, dir, "one.json", runOne)

	out := runStats(t, "compare", "-config", cfg, "-group", "G1", "-a", "1", "-b", "1", one)
	_, series, err := codec.ReadSeries(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "P_block:ratio", series[0].Key.Statistic)
	assert.Equal(t, []float64{100}, series[0].Series.Mean)
}

func TestRunStatsConfigError(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "confidence: 2\n")
	one := writeFile(t, dir, "one.json", runOne)

	inv, err := ParseStats([]string{"list", "-config", cfg, one})
	require.NoError(t, err)
	err = RunStats(context.Background(), inv, io.Discard, io.Discard)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}
