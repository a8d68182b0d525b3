package extract

import (
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"mutostats/internal/domain"
	"mutostats/internal/resolver"
)

// Placeholder is the trial series recorded by aligned extraction when a
// group exists at an intensity point but the traffic class does not
var Placeholder = []float64{0.0}

// Scenario is one scenario table together with its key in the corpus
type Scenario struct {
	Key  string
	Tree *domain.Table
}

// SkipHandler receives every point skipped during extraction
type SkipHandler func(*domain.ExtractionError)

// Extractor turns scenario trees into series. Points that cannot be
// extracted are logged and skipped, never returned as errors.
type Extractor struct {
	log    logrus.FieldLogger
	onSkip SkipHandler
}

// Option configures an Extractor
type Option func(*Extractor)

// WithSkipHandler registers a callback for skipped points
func WithSkipHandler(h SkipHandler) Option {
	return func(e *Extractor) { e.onSkip = h }
}

// New creates an extractor logging through log
func New(log logrus.FieldLogger, opts ...Option) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Extractor{log: log.WithField("component", "extract")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract collects statistic for traffic class tc of group across every
// intensity point of the scenario, in the order the points appear.
// Points where the group or traffic class cannot be found are skipped,
// so the result may be shorter than the number of intensity points.
func (e *Extractor) Extract(sc Scenario, group domain.EntityID, tc int, statistic string) domain.Series {
	return e.extract(sc, group, tc, statistic, false)
}

// ExtractAligned is Extract with the missing-data policy applied: where
// the group exists but traffic class tc does not, the point is kept with
// Placeholder trials. A missing statistic is still skipped. This keeps series of groups with
// uneven coverage the same length, at the cost of pulling means toward
// zero for classes that were not served.
func (e *Extractor) ExtractAligned(sc Scenario, group domain.EntityID, tc int, statistic string) domain.Series {
	return e.extract(sc, group, tc, statistic, true)
}

func (e *Extractor) extract(sc Scenario, group domain.EntityID, tc int, statistic string, aligned bool) domain.Series {
	s := domain.Series{Name: seriesName(sc, tc)}
	tcKey := strconv.Itoa(tc)

	for intensity, n := range sc.Tree.Entities() {
		x, point, ok := e.intensityPoint(sc, intensity, n)
		if !ok {
			continue
		}

		groups := point.EntityKeys()
		resolved, ok := resolver.Resolve(group, groups)
		if !ok {
			e.skip(&domain.ExtractionError{Kind: domain.ErrGroupNotFound, Scenario: sc.Key, Intensity: intensity, Key: group.String()},
				logrus.Fields{"available": groups})
			continue
		}
		groupTable, ok := point.Table(resolved)
		if !ok {
			e.skip(&domain.ExtractionError{Kind: domain.ErrGroupNotFound, Scenario: sc.Key, Intensity: intensity, Key: resolved}, nil)
			continue
		}

		tcTable, ok := groupTable.Table(tcKey)
		if !ok {
			if aligned {
				s.Append(x, placeholder())
				continue
			}
			e.skip(&domain.ExtractionError{Kind: domain.ErrTrafficClassNotFound, Scenario: sc.Key, Intensity: intensity, Key: tcKey}, nil)
			continue
		}

		trials, ok := tcTable.Trials(statistic)
		if !ok {
			e.skip(&domain.ExtractionError{Kind: domain.ErrStatisticNotFound, Scenario: sc.Key, Intensity: intensity, Key: statistic}, nil)
			continue
		}
		s.Append(x, append([]float64(nil), trials...))
	}
	return s
}

func (e *Extractor) intensityPoint(sc Scenario, intensity string, n domain.Node) (float64, *domain.Table, bool) {
	point, ok := n.(*domain.Table)
	if !ok {
		e.skip(&domain.ExtractionError{Kind: domain.ErrInvalidIntensity, Scenario: sc.Key, Intensity: intensity, Key: intensity},
			logrus.Fields{"node": n.Kind().String()})
		return 0, nil, false
	}
	x, err := strconv.ParseFloat(intensity, 64)
	if err != nil {
		e.skip(&domain.ExtractionError{Kind: domain.ErrInvalidIntensity, Scenario: sc.Key, Intensity: intensity, Key: intensity}, nil)
		return 0, nil, false
	}
	return x, point, true
}

func (e *Extractor) skip(err *domain.ExtractionError, extra logrus.Fields) {
	fields := logrus.Fields{
		"scenario":  err.Scenario,
		"intensity": err.Intensity,
		"key":       err.Key,
		"reason":    err.Kind.Error(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	e.log.WithFields(fields).Warn("skipping intensity point")
	if e.onSkip != nil {
		e.onSkip(err)
	}
}

func placeholder() []float64 {
	return append([]float64(nil), Placeholder...)
}

func seriesName(sc Scenario, tc int) string {
	if desc, err := domain.DescribeScenario(sc.Tree); err == nil {
		return desc.Label(tc)
	}
	return "t" + strconv.Itoa(tc)
}

// UsedTrafficClasses reports, per group key, the sorted traffic class ids
// that appear at any intensity point. A non-empty filter restricts the
// result to the listed ids.
func UsedTrafficClasses(scenario *domain.Table, filter []int) map[string][]int {
	allowed := make(map[int]bool, len(filter))
	for _, id := range filter {
		allowed[id] = true
	}

	seen := make(map[string]map[int]bool)
	for _, n := range scenario.Entities() {
		point, ok := n.(*domain.Table)
		if !ok {
			continue
		}
		for group, gn := range point.Entities() {
			groupTable, ok := gn.(*domain.Table)
			if !ok {
				continue
			}
			if seen[group] == nil {
				seen[group] = make(map[int]bool)
			}
			for tcKey := range groupTable.Entities() {
				id, err := strconv.Atoi(tcKey)
				if err != nil {
					continue
				}
				if len(filter) > 0 && !allowed[id] {
					continue
				}
				seen[group][id] = true
			}
		}
	}

	out := make(map[string][]int, len(seen))
	for group, ids := range seen {
		list := make([]int, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		sort.Ints(list)
		out[group] = list
	}
	return out
}

// ExtractBySize sums statistic over the traffic classes of equal size,
// trial by trial, for every intensity point where the group resolves.
// The result is keyed by size. Classes missing from sizes are ignored.
func (e *Extractor) ExtractBySize(sc Scenario, group domain.EntityID, statistic string, sizes map[int]int) map[int]*domain.Series {
	out := make(map[int]*domain.Series)

	for intensity, n := range sc.Tree.Entities() {
		x, point, ok := e.intensityPoint(sc, intensity, n)
		if !ok {
			continue
		}
		groups := point.EntityKeys()
		resolved, ok := resolver.Resolve(group, groups)
		if !ok {
			e.skip(&domain.ExtractionError{Kind: domain.ErrGroupNotFound, Scenario: sc.Key, Intensity: intensity, Key: group.String()},
				logrus.Fields{"available": groups})
			continue
		}
		groupTable, _ := point.Table(resolved)

		sums := make(map[int][]float64)
		for tcKey, tn := range groupTable.Entities() {
			id, err := strconv.Atoi(tcKey)
			if err != nil {
				continue
			}
			size, ok := sizes[id]
			if !ok {
				continue
			}
			tcTable, ok := tn.(*domain.Table)
			if !ok {
				continue
			}
			trials, ok := tcTable.Trials(statistic)
			if !ok {
				continue
			}
			sums[size] = addTrials(sums[size], trials)
		}

		for size, trials := range sums {
			s, ok := out[size]
			if !ok {
				s = &domain.Series{Name: "S" + strconv.Itoa(size)}
				out[size] = s
			}
			s.Append(x, trials)
		}
	}
	return out
}

func addTrials(acc, trials []float64) []float64 {
	if len(trials) > len(acc) {
		grown := make([]float64, len(trials))
		copy(grown, acc)
		acc = grown
	}
	for i, v := range trials {
		acc[i] += v
	}
	return acc
}
