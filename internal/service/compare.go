package service

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"mutostats/internal/domain"
	"mutostats/internal/resolver"
	"mutostats/internal/stats"
)

// Relation derives one series from a pair of reduced series
type Relation struct {
	Name  string
	Apply func(a, b domain.Series) domain.Series
}

var (
	// Ratio expresses the first result set as a percentage of the second
	Ratio = Relation{Name: "ratio", Apply: stats.RatioSeries}
	// Difference subtracts the second result set from the first
	Difference = Relation{Name: "difference", Apply: stats.DifferenceSeries}
)

// RelationFor returns the relation named name
func RelationFor(name string) (Relation, error) {
	switch name {
	case Ratio.Name:
		return Ratio, nil
	case Difference.Name:
		return Difference, nil
	}
	return Relation{}, fmt.Errorf("unknown comparison %q", name)
}

// Comparison is the outcome of comparing two scenarios
type Comparison struct {
	Series []domain.ScenarioSeries
	// Mismatch is non-nil when the scenario trees differ in structure. The
	// series are computed regardless.
	Mismatch error
}

// Compare relates group of scenario a in this session to group of
// scenario b in other, for every traffic class used by either side.
// Both sides are extracted aligned so points line up where coverage is
// uneven. Groups are matched across naming schemes through the resolver.
func (s *Session) Compare(other *Session, a, b int, group domain.EntityID, statistic string, rel Relation) (*Comparison, error) {
	left, err := s.scenario(a)
	if err != nil {
		return nil, err
	}
	right, err := other.scenario(b)
	if err != nil {
		return nil, err
	}

	out := &Comparison{}
	if err := stats.CompareTrees(left.Tree, right.Tree); err != nil {
		out.Mismatch = err
		s.log.WithFields(logrus.Fields{
			"first":  left.Key,
			"second": right.Key,
		}).WithError(err).Warn("comparing result trees of different structure")
		s.events.Publish(Event{Type: EventStructuralMismatch, Payload: err.Error()})
	}

	classes := usedBy(left.Tree, group)
	classes = union(classes, usedBy(right.Tree, group))

	name := fmt.Sprintf("%s %s %s", left.Key, rel.Name, right.Key)
	for _, tc := range classes {
		x, err := s.series(Selection{Index: a, Statistic: statistic}, group, tc, true)
		if err != nil {
			return nil, err
		}
		y, err := other.series(Selection{Index: b, Statistic: statistic}, group, tc, true)
		if err != nil {
			return nil, err
		}

		derived := rel.Apply(x.Series, y.Series)
		out.Series = append(out.Series, domain.ScenarioSeries{
			Key: domain.SeriesKey{
				Scenario:     left.Key + "|" + right.Key,
				Group:        group.String(),
				TrafficClass: tc,
				Statistic:    statistic + ":" + rel.Name,
			},
			ScenarioName: name,
			Series:       derived,
		})
	}
	return out, nil
}

// usedBy returns the traffic classes used by whichever group of the
// scenario corresponds to group, resolved point by point in document
// order the way extraction resolves it
func usedBy(scenario *domain.Table, group domain.EntityID) []int {
	var out []int
	for _, n := range scenario.Entities() {
		point, ok := n.(*domain.Table)
		if !ok {
			continue
		}
		resolved, ok := resolver.Resolve(group, point.EntityKeys())
		if !ok {
			continue
		}
		groupTable, ok := point.Table(resolved)
		if !ok {
			continue
		}
		for tcKey := range groupTable.Entities() {
			if id, err := strconv.Atoi(tcKey); err == nil {
				out = append(out, id)
			}
		}
	}
	return union(out, nil)
}

func union(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, v := range append(append([]int(nil), a...), b...) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
