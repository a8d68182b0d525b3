package stats

import (
	"fmt"
	"slices"

	"mutostats/internal/domain"
)

// KeyPaths lists every key path of tree, descending into tables only,
// in sorted order.
func KeyPaths(tree *domain.Table) []domain.Path {
	var out []domain.Path
	var walk func(t *domain.Table, prefix domain.Path)
	walk = func(t *domain.Table, prefix domain.Path) {
		for key, n := range t.All() {
			p := prefix.Append(key)
			out = append(out, p)
			if sub, ok := n.(*domain.Table); ok {
				walk(sub, p)
			}
		}
	}
	walk(tree, domain.Path{})
	slices.SortFunc(out, domain.Path.Compare)
	return out
}

// StructurallyEqual reports whether a and b have identical key path sets
func StructurallyEqual(a, b *domain.Table) bool {
	pa, pb := KeyPaths(a), KeyPaths(b)
	return slices.EqualFunc(pa, pb, func(x, y domain.Path) bool { return x.Compare(y) == 0 })
}

// PathDiff returns the paths present only in a and only in b
func PathDiff(a, b *domain.Table) (onlyA, onlyB []domain.Path) {
	pa := KeyPaths(a)
	inA := make(map[domain.PathKey]struct{}, len(pa))
	for _, p := range pa {
		inA[p.Key()] = struct{}{}
	}
	inB := make(map[domain.PathKey]struct{})
	for _, p := range KeyPaths(b) {
		inB[p.Key()] = struct{}{}
		if _, ok := inA[p.Key()]; !ok {
			onlyB = append(onlyB, p)
		}
	}
	for _, p := range pa {
		if _, ok := inB[p.Key()]; !ok {
			onlyA = append(onlyA, p)
		}
	}
	return onlyA, onlyB
}

// CompareTrees returns nil for structurally equal trees and otherwise an
// error wrapping ErrStructuralMismatch. The error is advisory: relative
// series can still be computed.
func CompareTrees(a, b *domain.Table) error {
	onlyA, onlyB := PathDiff(a, b)
	if len(onlyA) == 0 && len(onlyB) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d paths only in first, %d only in second",
		domain.ErrStructuralMismatch, len(onlyA), len(onlyB))
}
