package domain

import "strings"

// Layer identifiers are written by the analytical model as
// "L<layer>:<group>;<group>;...".
const (
	LayerMarker    = 'L'
	layerFieldSep  = ":"
	layerMemberSep = ";"
)

// EntityKind distinguishes a single group from a layer aggregate
type EntityKind int

const (
	EntityAtomic EntityKind = iota
	EntityLayer
)

// EntityID names either one simulated group or a layer of groups.
// The zero value is an empty atomic identifier.
type EntityID struct {
	raw     string
	kind    EntityKind
	members []string
}

// ParseEntity classifies id by its first character and, for layers,
// extracts the embedded member list. It never fails.
func ParseEntity(id string) EntityID {
	if id == "" || id[0] != LayerMarker {
		return EntityID{raw: id, kind: EntityAtomic}
	}
	return EntityID{raw: id, kind: EntityLayer, members: parseLayerMembers(id)}
}

// Atomic builds an identifier for a single group
func Atomic(name string) EntityID {
	return EntityID{raw: name, kind: EntityAtomic}
}

// NewLayer builds a layer identifier in the analytical model's format
func NewLayer(layer string, members ...string) EntityID {
	var b strings.Builder
	b.WriteByte(LayerMarker)
	b.WriteString(layer)
	b.WriteString(layerFieldSep)
	for _, m := range members {
		b.WriteString(m)
		b.WriteString(layerMemberSep)
	}
	return ParseEntity(b.String())
}

func parseLayerMembers(id string) []string {
	_, list, found := strings.Cut(id, layerFieldSep)
	if !found {
		return nil
	}
	var out []string
	for _, m := range strings.Split(list, layerMemberSep) {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// String returns the identifier exactly as it appears in result files
func (e EntityID) String() string { return e.raw }

// Kind returns the identifier variant
func (e EntityID) Kind() EntityKind { return e.kind }

// IsLayer reports whether the identifier is a layer aggregate
func (e EntityID) IsLayer() bool { return e.kind == EntityLayer }

// Members returns a copy of the layer's member groups in declared order
func (e EntityID) Members() []string {
	out := make([]string, len(e.members))
	copy(out, e.members)
	return out
}

// HasMember reports whether group belongs to the layer
func (e EntityID) HasMember(group string) bool {
	for _, m := range e.members {
		if m == group {
			return true
		}
	}
	return false
}
