package domain

import (
	"fmt"
	"sort"
	"strconv"
)

// ScenarioKey is the metadata entry holding a scenario description
const ScenarioKey = "_scenario"

// TrafficClass describes one request type of a scenario
type TrafficClass struct {
	ID   int
	Size int
}

// GroupInfo describes one simulated resource pool
type GroupInfo struct {
	Name      string
	Capacity  int
	Layer     int
	Connected []string
}

// ScenarioDescription is the decoded form of a scenario's _scenario entry
type ScenarioDescription struct {
	Name           string
	TrafficClasses map[int]TrafficClass
	Groups         map[string]GroupInfo
}

// DescribeScenario decodes the _scenario entry of a scenario table
func DescribeScenario(scenario *Table) (*ScenarioDescription, error) {
	meta, ok := scenario.Table(ScenarioKey)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrScenarioDescription, ScenarioKey)
	}

	desc := &ScenarioDescription{
		TrafficClasses: make(map[int]TrafficClass),
		Groups:         make(map[string]GroupInfo),
	}
	if n, ok := meta.Get("name"); ok {
		if s, ok := n.(Scalar); ok {
			desc.Name, _ = s.String()
		}
	}

	if tcs, ok := meta.Table("traffic_classes"); ok {
		for key, n := range tcs.Entities() {
			id, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("%w: traffic class id %q", ErrScenarioDescription, key)
			}
			tc := TrafficClass{ID: id}
			if body, ok := n.(*Table); ok {
				tc.Size = intField(body, "size")
			}
			desc.TrafficClasses[id] = tc
		}
	}

	if groups, ok := meta.Table("groups"); ok {
		for name, n := range groups.Entities() {
			g := GroupInfo{Name: name}
			if body, ok := n.(*Table); ok {
				g.Capacity = intField(body, "capacity")
				g.Layer = intField(body, "layer")
				g.Connected = stringsField(body, "connected")
			}
			desc.Groups[name] = g
		}
	}

	return desc, nil
}

// TrafficClassSizes maps traffic class ids to their sizes
func (d *ScenarioDescription) TrafficClassSizes() map[int]int {
	out := make(map[int]int, len(d.TrafficClasses))
	for id, tc := range d.TrafficClasses {
		out[id] = tc.Size
	}
	return out
}

// TrafficClassIDs returns all declared ids in ascending order
func (d *ScenarioDescription) TrafficClassIDs() []int {
	out := make([]int, 0, len(d.TrafficClasses))
	for id := range d.TrafficClasses {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Label names a series for traffic class id, e.g. "t1=3"
func (d *ScenarioDescription) Label(tcID int) string {
	if tc, ok := d.TrafficClasses[tcID]; ok {
		return fmt.Sprintf("t%d=%d", tcID, tc.Size)
	}
	return fmt.Sprintf("t%d", tcID)
}

func intField(t *Table, key string) int {
	n, ok := t.Get(key)
	if !ok {
		return 0
	}
	s, ok := n.(Scalar)
	if !ok {
		return 0
	}
	f, _ := s.Float()
	return int(f)
}

func stringsField(t *Table, key string) []string {
	n, ok := t.Get(key)
	if !ok {
		return nil
	}
	l, ok := n.(List)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		if s, ok := item.(Scalar); ok {
			if v, ok := s.String(); ok {
				out = append(out, v)
			}
		}
	}
	return out
}
