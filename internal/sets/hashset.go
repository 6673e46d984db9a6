package sets

import (
	"sort"

	"golang.org/x/exp/maps"
)

type item[T any] interface {
	Equal(T) bool
	Hash() uint64
}

// A HashSet is an immutable collection of hashable elements that are
// themselves immutable.
type HashSet[T item[T]] struct {
	s map[uint64]T
}

// NewHashSet returns an immutable HashSet given a Go slice of values.
// Duplicates are removed and order is not preserved.
func NewHashSet[T item[T]](i []T) HashSet[T] {
	var set map[uint64]T
	if len(i) > 0 {
		set = make(map[uint64]T)
	}
	for _, ii := range i {
		hash := ii.Hash()

		// Insert the item into the map. Deal with collisions via open
		// addressing by simply incrementing the hash value. This is safe so
		// long as HashSet is immutable because nothing can be removed from
		// the map.
		for {
			existing, ok := set[hash]
			if !ok {
				set[hash] = ii
				break
			} else if ii.Equal(existing) {
				// found duplicate in slice
				break
			}
			hash++
		}
	}

	return HashSet[T]{s: set}
}

// Len returns the number of unique items in the HashSet.
func (s HashSet[T]) Len() int {
	return len(s.s)
}

// Iterate calls iter for each item in the set. Returning false from the iter
// function causes iteration to cease. Iteration order is non-deterministic.
func (s HashSet[T]) Iterate(iter func(i T) bool) {
	for _, v := range s.s {
		if !iter(v) {
			break
		}
	}
}

// Contains returns true if the item i is present in the set.
func (s HashSet[T]) Contains(i item[T]) bool {
	hash := i.Hash()

	for {
		existing, ok := s.s[hash]
		if !ok {
			return false
		} else if i.Equal(existing) {
			return true
		}
		hash++
	}
}

// Slice returns a slice of the items in the HashSet which is safe to mutate.
// The order of the values is non-deterministic.
func (s HashSet[T]) Slice() []T {
	if s.s == nil {
		return nil
	}
	return maps.Values(s.s)
}

// SortedSlice returns a slice of the items in the HashSet ordered by less.
func (s HashSet[T]) SortedSlice(less func(a, b T) bool) []T {
	out := s.Slice()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Equal returns true if the HashSets contain the same items.
func (as HashSet[T]) Equal(bs HashSet[T]) bool {
	if len(as.s) != len(bs.s) {
		return false
	}

	for _, v := range as.s {
		if !bs.Contains(v) {
			return false
		}
	}
	return true
}
