package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"mutostats/internal/codec"
	"mutostats/internal/domain"
	"mutostats/internal/extract"
	"mutostats/internal/stats"
)

// BySizeSuffix marks the statistic of series summed over traffic classes
// of equal size
const BySizeSuffix = "@size"

// Options configures an analysis session
type Options struct {
	Confidence float64
	// Aligned keeps points where a group exists but the traffic class does
	// not, with placeholder trials
	Aligned bool
	// SortByX orders prepared series by intensity instead of source order
	SortByX bool
}

// Selection picks one scenario of the current selection by index, and
// the statistic to extract from it
type Selection struct {
	Index     int
	Statistic string
}

// Session holds a corpus, the scenarios selected from it and the series
// computed so far. Series are cached per session and never persisted
// through the cache.
type Session struct {
	all      *domain.Table
	selected *domain.Table

	extractor *extract.Extractor
	cache     *extract.Cache
	aligned   *extract.Cache
	events    *EventBus
	log       logrus.FieldLogger
	opts      Options
}

// NewSession starts a session over corpus with every scenario selected
func NewSession(corpus *domain.Table, events *EventBus, log logrus.FieldLogger, opts Options) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Confidence == 0 {
		opts.Confidence = stats.DefaultConfidence
	}

	s := &Session{
		all:      corpus,
		selected: corpus,
		cache:    extract.NewCache(),
		aligned:  extract.NewCache(),
		events:   events,
		log:      log.WithField("component", "session"),
		opts:     opts,
	}
	s.extractor = extract.New(log, extract.WithSkipHandler(func(err *domain.ExtractionError) {
		events.Publish(Event{Type: EventPointSkipped, Payload: err})
	}))
	return s
}

// AllScenarioKeys lists every scenario of the corpus
func (s *Session) AllScenarioKeys() []string {
	return s.all.Keys()
}

// ScenarioKeys lists the selected scenarios; indices refer to this list
func (s *Session) ScenarioKeys() []string {
	return s.selected.Keys()
}

// RemovePrefix strips prefix from every scenario key and resets the
// selection. Keys that become equal keep the later scenario.
func (s *Session) RemovePrefix(prefix string) {
	if prefix == "" {
		return
	}
	renamed := domain.NewTable()
	for key, n := range s.all.All() {
		renamed.Set(strings.TrimPrefix(key, prefix), n)
	}
	s.all = renamed
	s.selected = renamed
	s.cache = extract.NewCache()
	s.aligned = extract.NewCache()
}

// SelectScenarios narrows the selection to the given indices of the full
// corpus. No indices selects everything.
func (s *Session) SelectScenarios(indices []int) error {
	selected, err := codec.FilterByIndex(s.all, indices)
	if err != nil {
		return err
	}
	s.selected = selected
	return nil
}

// ScenarioKey returns the key of the selected scenario at index
func (s *Session) ScenarioKey(index int) (string, error) {
	keys := s.selected.Keys()
	if index < 0 || index >= len(keys) {
		return "", fmt.Errorf("%w: %d not in [0, %d)", domain.ErrScenarioIndex, index, len(keys))
	}
	return keys[index], nil
}

func (s *Session) scenario(index int) (extract.Scenario, error) {
	key, err := s.ScenarioKey(index)
	if err != nil {
		return extract.Scenario{}, err
	}
	tree, ok := s.selected.Table(key)
	if !ok {
		return extract.Scenario{}, fmt.Errorf("scenario %q is not a table", key)
	}
	return extract.Scenario{Key: key, Tree: tree}, nil
}

// Describe parses the description of the selected scenario at index
func (s *Session) Describe(index int) (*domain.ScenarioDescription, error) {
	sc, err := s.scenario(index)
	if err != nil {
		return nil, err
	}
	desc, err := domain.DescribeScenario(sc.Tree)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Key, err)
	}
	return desc, nil
}

// ScenarioName returns the name recorded in the scenario description
func (s *Session) ScenarioName(index int) (string, error) {
	desc, err := s.Describe(index)
	if err != nil {
		return "", err
	}
	return desc.Name, nil
}

// Title describes a plot of group in the scenario at index, in the form
// "group - name (key)". Without a group it is "name (key)".
func (s *Session) Title(index int, group string) (string, error) {
	key, err := s.ScenarioKey(index)
	if err != nil {
		return "", err
	}
	name, err := s.ScenarioName(index)
	if err != nil {
		return "", err
	}
	if group == "" {
		return fmt.Sprintf("%s (%s)", name, key), nil
	}
	return fmt.Sprintf("%s - %s (%s)", group, name, key), nil
}

// Variant returns the part of a scenario key after the first ';', which
// run scripts use to tell variants of one scenario apart
func Variant(key string) string {
	_, variant, _ := strings.Cut(key, ";")
	return variant
}

// Prepare extracts and reduces the series of group for every traffic
// class and selection, traffic class major, reusing series computed
// earlier in the session.
func (s *Session) Prepare(selections []Selection, group domain.EntityID, trafficClasses []int) ([]domain.ScenarioSeries, error) {
	var out []domain.ScenarioSeries
	for _, tc := range trafficClasses {
		for _, sel := range selections {
			ss, err := s.series(sel, group, tc, s.opts.Aligned)
			if err != nil {
				return nil, err
			}
			out = append(out, ss)
		}
	}
	return out, nil
}

// PrepareAll extracts statistic for every group and used traffic class
// of every selected scenario. A non-empty filter restricts the traffic
// classes. Groups are visited in key order.
func (s *Session) PrepareAll(statistic string, filter []int) ([]domain.ScenarioSeries, error) {
	var out []domain.ScenarioSeries
	for i := range s.selected.Keys() {
		sc, err := s.scenario(i)
		if err != nil {
			return nil, err
		}
		used := extract.UsedTrafficClasses(sc.Tree, filter)
		groups := make([]string, 0, len(used))
		for g := range used {
			groups = append(groups, g)
		}
		sort.Strings(groups)

		for _, g := range groups {
			for _, tc := range used[g] {
				ss, err := s.series(Selection{Index: i, Statistic: statistic}, domain.ParseEntity(g), tc, s.opts.Aligned)
				if err != nil {
					return nil, err
				}
				out = append(out, ss)
			}
		}
	}
	return out, nil
}

func (s *Session) series(sel Selection, group domain.EntityID, tc int, aligned bool) (domain.ScenarioSeries, error) {
	sc, err := s.scenario(sel.Index)
	if err != nil {
		return domain.ScenarioSeries{}, err
	}

	key := domain.SeriesKey{
		Scenario:     sc.Key,
		Group:        group.String(),
		TrafficClass: tc,
		Statistic:    sel.Statistic,
	}
	name := sc.Key
	if desc, err := domain.DescribeScenario(sc.Tree); err == nil && desc.Name != "" {
		name = desc.Name
	}

	cache := s.cache
	if aligned {
		cache = s.aligned
	}
	series, err := cache.GetOrExtract(key, func() (domain.Series, error) {
		var series domain.Series
		if aligned {
			series = s.extractor.ExtractAligned(sc, group, tc, sel.Statistic)
		} else {
			series = s.extractor.Extract(sc, group, tc, sel.Statistic)
		}
		if err := s.reduce(key, &series); err != nil {
			return domain.Series{}, err
		}
		s.events.Publish(Event{Type: EventSeriesComputed, Payload: key})
		return series, nil
	})
	if err != nil {
		return domain.ScenarioSeries{}, err
	}

	hits, misses := cache.Stats()
	s.log.WithFields(logrus.Fields{
		"key":    key.String(),
		"hits":   hits,
		"misses": misses,
	}).Trace("series lookup")

	return domain.ScenarioSeries{Key: key, ScenarioName: name, Series: series}, nil
}

func (s *Session) reduce(key domain.SeriesKey, series *domain.Series) error {
	if err := stats.Reduce(series, s.opts.Confidence); err != nil {
		return fmt.Errorf("series %s: %w", key, err)
	}
	if s.opts.SortByX {
		series.SortByX()
	}
	s.log.WithFields(logrus.Fields{
		"key":             key.String(),
		"points":          series.Len(),
		"multiple_trials": series.HasMultipleTrials(),
	}).Debug("computed series")
	return nil
}

// PrepareBySize sums the statistic of group over traffic classes of equal
// size in the scenario of sel, one series per size in ascending order.
// The series keys carry the size as traffic class and the statistic
// suffixed with BySizeSuffix. They are not cached.
func (s *Session) PrepareBySize(sel Selection, group domain.EntityID) ([]domain.ScenarioSeries, error) {
	sc, err := s.scenario(sel.Index)
	if err != nil {
		return nil, err
	}
	desc, err := s.Describe(sel.Index)
	if err != nil {
		return nil, err
	}

	bySize := s.extractor.ExtractBySize(sc, group, sel.Statistic, desc.TrafficClassSizes())
	sizes := make([]int, 0, len(bySize))
	for size := range bySize {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)

	out := make([]domain.ScenarioSeries, 0, len(sizes))
	for _, size := range sizes {
		key := domain.SeriesKey{
			Scenario:     sc.Key,
			Group:        group.String(),
			TrafficClass: size,
			Statistic:    sel.Statistic + BySizeSuffix,
		}
		series := bySize[size]
		if err := s.reduce(key, series); err != nil {
			return nil, err
		}
		out = append(out, domain.ScenarioSeries{Key: key, ScenarioName: desc.Name, Series: *series})
	}
	return out, nil
}

// Cached returns the number of series computed so far
func (s *Session) Cached() int {
	return s.cache.Len() + s.aligned.Len()
}
