package config

// OutputFormat selects where computed series go
type OutputFormat string

const (
	FormatJSON   OutputFormat = "json"   // series document on stdout or a file
	FormatYAML   OutputFormat = "yaml"   // same document as YAML
	FormatSQLite OutputFormat = "sqlite" // rows in the series store
)

// ParseOutputFormat converts a string to OutputFormat, defaulting to FormatJSON
func ParseOutputFormat(s string) OutputFormat {
	switch s {
	case "yaml", "yml":
		return FormatYAML
	case "sqlite", "db":
		return FormatSQLite
	default:
		return FormatJSON
	}
}

// IsDocument reports whether the format writes a series document
func (f OutputFormat) IsDocument() bool {
	return f == FormatJSON || f == FormatYAML
}

// Comparison selects how two result sets are related
type Comparison string

const (
	ComparisonRatio      Comparison = "ratio"      // a / b * 100
	ComparisonDifference Comparison = "difference" // a - b
)

// ParseComparison converts a string to Comparison, defaulting to ComparisonRatio
func ParseComparison(s string) Comparison {
	switch s {
	case "difference", "diff":
		return ComparisonDifference
	default:
		return ComparisonRatio
	}
}
