package types

import (
	"strings"

	"github.com/cedar-policy/cedar-schema-go/internal/sets"
)

// A Set is an immutable collection of values that can be of the same or
// different types.
type Set struct {
	sets.HashSet[Value]
	hashVal uint64
}

// NewSet returns an immutable Set given a Go slice of Values. Duplicates are
// removed and order is not preserved.
func NewSet(v []Value) Set {
	set := sets.NewHashSet(v)

	// The hash of a set is the sum of its element hashes, so that Set{} and
	// NewSet(nil) hash identically.
	var hashVal uint64
	set.Iterate(func(v Value) bool {
		hashVal += v.Hash()
		return true
	})

	return Set{HashSet: set, hashVal: hashVal}
}

// Equal returns true if the sets contain the same values.
func (as Set) Equal(o Value) bool {
	bs, ok := o.(Set)
	if !ok {
		return false
	}
	return as.HashSet.Equal(bs.HashSet)
}

func (v Set) Hash() uint64 { return v.hashVal }

// String produces a string representation of the Set, e.g. `[1,2,3]`.
// Elements are ordered lexicographically by their representations so the
// output is deterministic.
func (v Set) String() string {
	elems := v.SortedSlice(func(a, b Value) bool { return a.String() < b.String() })
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
