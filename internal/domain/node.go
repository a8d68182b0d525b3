package domain

import (
	"iter"
	"strings"
)

// NodeKind identifies the variant held by a Node
type NodeKind int

const (
	KindScalar NodeKind = iota
	KindTrials
	KindList
	KindTable
)

// String returns a readable name of the kind
func (k NodeKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindTrials:
		return "trials"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	}
	return "unknown"
}

// MetadataPrefix marks keys that describe a node rather than hold results
const MetadataPrefix = "_"

// IsMetadataKey reports whether key names a metadata entry
func IsMetadataKey(key string) bool {
	return strings.HasPrefix(key, MetadataPrefix)
}

// Node is one value of a result tree: Scalar, Trials, List or *Table
type Node interface {
	Kind() NodeKind
	Clone() Node
}

// Scalar holds a string, float64, bool or nil value
type Scalar struct {
	Value any
}

// Kind implements Node
func (Scalar) Kind() NodeKind { return KindScalar }

// Clone implements Node
func (s Scalar) Clone() Node { return s }

// Float returns the scalar as a number when it is one
func (s Scalar) Float() (float64, bool) {
	switch v := s.Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

// String returns the scalar as a string when it is one
func (s Scalar) String() (string, bool) {
	v, ok := s.Value.(string)
	return v, ok
}

// Trials is a sequence of per-trial measurements
type Trials []float64

// Kind implements Node
func (Trials) Kind() NodeKind { return KindTrials }

// Clone implements Node
func (t Trials) Clone() Node {
	out := make(Trials, len(t))
	copy(out, t)
	return out
}

// List is a sequence holding at least one non-numeric element
type List []Node

// Kind implements Node
func (List) Kind() NodeKind { return KindList }

// Clone implements Node
func (l List) Clone() Node {
	out := make(List, len(l))
	for i, n := range l {
		out[i] = n.Clone()
	}
	return out
}

// IsSequence reports whether n is Trials or List
func IsSequence(n Node) bool {
	if n == nil {
		return false
	}
	k := n.Kind()
	return k == KindTrials || k == KindList
}

// AppendSequence concatenates two sequences. Two Trials stay Trials,
// anything else degrades to a List.
func AppendSequence(acc, incoming Node) Node {
	at, aok := acc.(Trials)
	it, iok := incoming.(Trials)
	if aok && iok {
		out := make(Trials, 0, len(at)+len(it))
		out = append(out, at...)
		return append(out, it...)
	}
	out := append(toList(acc), toList(incoming)...)
	return out
}

func toList(n Node) List {
	switch v := n.(type) {
	case Trials:
		out := make(List, len(v))
		for i, f := range v {
			out[i] = Scalar{Value: f}
		}
		return out
	case List:
		return v.Clone().(List)
	}
	return List{n.Clone()}
}

// Table is an insertion-ordered mapping from keys to nodes
type Table struct {
	keys    []string
	entries map[string]Node
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{entries: make(map[string]Node)}
}

// Kind implements Node
func (*Table) Kind() NodeKind { return KindTable }

// Clone implements Node with a deep copy
func (t *Table) Clone() Node {
	return t.CloneTable()
}

// CloneTable returns a deep copy of the table
func (t *Table) CloneTable() *Table {
	out := &Table{
		keys:    make([]string, len(t.keys)),
		entries: make(map[string]Node, len(t.entries)),
	}
	copy(out.keys, t.keys)
	for k, v := range t.entries {
		out.entries[k] = v.Clone()
	}
	return out
}

// Len returns the number of entries
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns all keys in insertion order
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// EntityKeys returns the non-metadata keys in insertion order
func (t *Table) EntityKeys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.keys))
	for _, k := range t.keys {
		if !IsMetadataKey(k) {
			out = append(out, k)
		}
	}
	return out
}

// Get returns the node stored under key
func (t *Table) Get(key string) (Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.entries[key]
	return n, ok
}

// Table returns the sub-table stored under key
func (t *Table) Table(key string) (*Table, bool) {
	n, ok := t.Get(key)
	if !ok {
		return nil, false
	}
	sub, ok := n.(*Table)
	return sub, ok
}

// Trials returns the trial sequence stored under key
func (t *Table) Trials(key string) (Trials, bool) {
	n, ok := t.Get(key)
	if !ok {
		return nil, false
	}
	tr, ok := n.(Trials)
	return tr, ok
}

// Has reports whether key is present
func (t *Table) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Set stores n under key, appending key when it is new
func (t *Table) Set(key string, n Node) {
	if _, ok := t.entries[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = n
}

// With sets key and returns the table, for building trees inline
func (t *Table) With(key string, n Node) *Table {
	t.Set(key, n)
	return t
}

// Delete removes key from the table
func (t *Table) Delete(key string) {
	if _, ok := t.entries[key]; !ok {
		return
	}
	delete(t.entries, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

// All iterates over every entry in insertion order
func (t *Table) All() iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		if t == nil {
			return
		}
		for _, k := range t.keys {
			if !yield(k, t.entries[k]) {
				return
			}
		}
	}
}

// Entities iterates over non-metadata entries in insertion order
func (t *Table) Entities() iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		for k, n := range t.All() {
			if IsMetadataKey(k) {
				continue
			}
			if !yield(k, n) {
				return
			}
		}
	}
}

// Lookup follows path from t and returns the node at its end
func (t *Table) Lookup(path Path) (Node, bool) {
	var cur Node = t
	for _, key := range path {
		tbl, ok := cur.(*Table)
		if !ok {
			return nil, false
		}
		cur, ok = tbl.Get(key)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
