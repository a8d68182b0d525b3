package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"mutostats/internal/domain"
)

// SeriesExporter writes computed series for a rendering collaborator
type SeriesExporter interface {
	Export(series []domain.ScenarioSeries, w io.Writer) error
	Format() string
}

// seriesDocument is the top-level structure of exported series files
type seriesDocument struct {
	Confidence float64                 `json:"confidence" yaml:"confidence"`
	Series     []domain.ScenarioSeries `json:"series" yaml:"series"`
}

// JSONSeriesExporter writes series as indented JSON
type JSONSeriesExporter struct {
	confidence float64
}

// NewJSONSeriesExporter creates a JSON exporter recording the confidence
// level the half-widths were computed at
func NewJSONSeriesExporter(confidence float64) *JSONSeriesExporter {
	return &JSONSeriesExporter{confidence: confidence}
}

// Format returns the exporter format identifier
func (e *JSONSeriesExporter) Format() string {
	return "json"
}

// Export writes the series document
func (e *JSONSeriesExporter) Export(series []domain.ScenarioSeries, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(seriesDocument{Confidence: e.confidence, Series: series}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// YAMLSeriesExporter writes series as YAML
type YAMLSeriesExporter struct {
	confidence float64
}

// NewYAMLSeriesExporter creates a YAML exporter
func NewYAMLSeriesExporter(confidence float64) *YAMLSeriesExporter {
	return &YAMLSeriesExporter{confidence: confidence}
}

// Format returns the exporter format identifier
func (e *YAMLSeriesExporter) Format() string {
	return "yaml"
}

// Export writes the series document
func (e *YAMLSeriesExporter) Export(series []domain.ScenarioSeries, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(seriesDocument{Confidence: e.confidence, Series: series}); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

// ReadSeries parses a document written by either exporter. YAML is a
// superset of JSON, so one decoder serves both.
func ReadSeries(r io.Reader) (confidence float64, series []domain.ScenarioSeries, err error) {
	var doc seriesDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return 0, nil, fmt.Errorf("failed to parse series document: %w", err)
	}
	return doc.Confidence, doc.Series, nil
}

// SeriesExporterFor returns the exporter for format ("json" or "yaml")
func SeriesExporterFor(format string, confidence float64) (SeriesExporter, error) {
	switch format {
	case "json":
		return NewJSONSeriesExporter(confidence), nil
	case "yaml", "yml":
		return NewYAMLSeriesExporter(confidence), nil
	}
	return nil, fmt.Errorf("%w: series format %q", domain.ErrUnknownFormat, format)
}
