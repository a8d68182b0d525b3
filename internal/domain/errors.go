package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGroupNotFound indicates a group identifier has no match at an intensity point.
	ErrGroupNotFound = errors.New("group not found")
	// ErrTrafficClassNotFound indicates a traffic class is absent under a resolved group.
	ErrTrafficClassNotFound = errors.New("traffic class not found")
	// ErrStatisticNotFound indicates a statistic is absent under a traffic class.
	ErrStatisticNotFound = errors.New("statistic not found")
	// ErrInvalidIntensity indicates an intensity key that does not parse as a number.
	ErrInvalidIntensity = errors.New("invalid intensity key")
	// ErrStructuralMismatch indicates two trees do not share the same key paths.
	ErrStructuralMismatch = errors.New("result trees differ in structure")
	// ErrConfidenceInterval indicates the estimator got no samples or a bad level.
	ErrConfidenceInterval = errors.New("cannot compute confidence interval")
	// ErrUnknownFormat indicates a file extension with no registered codec.
	ErrUnknownFormat = errors.New("unknown result file format")
	// ErrScenarioIndex indicates a scenario index outside the loaded corpus.
	ErrScenarioIndex = errors.New("scenario index out of range")
	// ErrScenarioDescription indicates a missing or malformed _scenario entry.
	ErrScenarioDescription = errors.New("invalid scenario description")
)

// ExtractionError describes a point skipped while extracting a series
type ExtractionError struct {
	Kind      error
	Scenario  string
	Intensity string
	Key       string
}

func (e *ExtractionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %q at intensity %s of %s", e.Kind, e.Key, e.Intensity, e.Scenario)
}

func (e *ExtractionError) Unwrap() error { return e.Kind }
