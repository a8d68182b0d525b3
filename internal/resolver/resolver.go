// Package resolver matches group and layer identifiers against the group
// vocabulary of a result tree.
//
// One run may report results per group while another, produced after the
// analytical model merged groups into layers, reports them per layer. The
// functions here map "the same real entity" across both shapes without
// the simulator knowing anything about layers.
package resolver

import "mutostats/internal/domain"

// IsLayer reports whether id is a layer identifier
func IsLayer(id string) bool {
	return domain.ParseEntity(id).IsLayer()
}

// LayerMembers returns the groups embedded in a layer identifier.
// Malformed or atomic identifiers yield an empty slice.
func LayerMembers(id string) []string {
	return domain.ParseEntity(id).Members()
}

// ResolveAgainst finds wanted among available. An atomic identifier
// matches itself; a layer matches its first member, in declared order,
// that is available.
func ResolveAgainst(wanted domain.EntityID, available []string) (string, bool) {
	set := make(map[string]struct{}, len(available))
	for _, a := range available {
		set[a] = struct{}{}
	}

	if !wanted.IsLayer() {
		_, ok := set[wanted.String()]
		return wanted.String(), ok && wanted.String() != ""
	}
	for _, m := range wanted.Members() {
		if _, ok := set[m]; ok {
			return m, true
		}
	}
	return "", false
}

// FindCorresponding scans available in order for needle. A plain
// candidate matches on equality. The first layer candidate met ends the
// scan: it is returned when needle is one of its members, otherwise
// nothing is found even if a later candidate would match.
func FindCorresponding(needle string, available []string) (string, bool) {
	for _, candidate := range available {
		if e := domain.ParseEntity(candidate); e.IsLayer() {
			if e.HasMember(needle) {
				return candidate, true
			}
			return "", false
		}
		if candidate == needle {
			return candidate, true
		}
	}
	return "", false
}

// Contains reports whether wanted is represented in available: directly
// for an atomic identifier, through any member for a layer.
func Contains(wanted domain.EntityID, available []string) bool {
	_, ok := ResolveAgainst(wanted, available)
	return ok
}

// Resolve picks the key under which wanted is stored among available
// groups. A direct hit wins; otherwise a layer identifier goes through
// ResolveAgainst and an atomic one through FindCorresponding, so a group
// can be located inside a layer of a differently shaped run.
func Resolve(wanted domain.EntityID, available []string) (string, bool) {
	for _, a := range available {
		if a == wanted.String() {
			return a, true
		}
	}
	if wanted.IsLayer() {
		return ResolveAgainst(wanted, available)
	}
	return FindCorresponding(wanted.String(), available)
}
