// Package merge combines several result trees into one.
//
// Trees are applied in order and later trees win per key. Sequences are
// additive: when both sides hold a sequence at the same path the incoming
// trials are appended, so merging two runs of the same scenario pools
// their trials. Tables merge recursively. Scalars and type conflicts are
// resolved by letting the incoming value replace the old one; a merge
// never fails.
package merge

import (
	"fmt"

	"mutostats/internal/domain"
)

// Source is one input tree with an optional name used for attribution
type Source struct {
	Name string
	Tree *domain.Table
}

// Merge combines trees in order and returns a new tree. Inputs are not
// modified.
func Merge(trees ...*domain.Table) *domain.Table {
	acc := domain.NewTable()
	for _, t := range trees {
		mergeInto(acc, t, nil, "", nil)
	}
	return acc
}

// MergeSourced behaves like Merge and additionally records, for every
// leaf path, the name of the last source that wrote it. Appended
// sequence elements are not attributed individually: a sequence path
// carries the name of the last source that contributed to it.
// Sources without a name are called "#<index>".
func MergeSourced(sources []Source) (*domain.Table, domain.SourceMap) {
	acc := domain.NewTable()
	sm := make(domain.SourceMap)
	for i, src := range sources {
		name := src.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		mergeInto(acc, src.Tree, domain.Path{}, name, sm)
	}
	return acc, sm
}

func mergeInto(acc, in *domain.Table, path domain.Path, name string, sm domain.SourceMap) {
	for key, value := range in.All() {
		cur, exists := acc.Get(key)

		if incoming, ok := value.(*domain.Table); ok {
			sub, ok := cur.(*domain.Table)
			if !exists || !ok {
				sub = domain.NewTable()
				acc.Set(key, sub)
				if sm != nil {
					delete(sm, path.Append(key).Key())
				}
			}
			mergeInto(sub, incoming, path.Append(key), name, sm)
			continue
		}

		if exists && domain.IsSequence(cur) && domain.IsSequence(value) {
			acc.Set(key, domain.AppendSequence(cur, value))
		} else {
			acc.Set(key, value.Clone())
		}
		if sm != nil {
			if _, wasTable := cur.(*domain.Table); wasTable {
				forgetBelow(sm, path.Append(key))
			}
			sm[path.Append(key).Key()] = name
		}
	}
}

// forgetBelow drops the attribution of every path strictly under prefix
func forgetBelow(sm domain.SourceMap, prefix domain.Path) {
	for k := range sm {
		if k.Path().HasPrefix(prefix) && len(k.Path()) > len(prefix) {
			delete(sm, k)
		}
	}
}

// StripMetadata returns a copy of a corpus with the metadata entry key
// removed from every scenario.
func StripMetadata(corpus *domain.Table, key string) *domain.Table {
	out := corpus.CloneTable()
	for _, scenario := range out.Keys() {
		if tbl, ok := out.Table(scenario); ok {
			tbl.Delete(key)
		}
	}
	return out
}

// MergeCorpora merges result files the way the merge tool does: the first
// source keeps its scenario descriptions, later ones are stripped of
// theirs so they cannot reintroduce conflicting metadata. Attribution
// follows MergeSourced.
func MergeCorpora(sources []Source) (*domain.Table, domain.SourceMap) {
	stripped := make([]Source, len(sources))
	for i, src := range sources {
		if i > 0 {
			src.Tree = StripMetadata(src.Tree, domain.ScenarioKey)
		}
		stripped[i] = src
	}
	return MergeSourced(stripped)
}
