package types

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// A Record is an immutable collection of attributes keyed by name.
type Record struct {
	m       map[String]Value
	hashVal uint64
}

// NewRecord returns an immutable Record given a Go map of attribute names to
// Values. The input map is copied.
func NewRecord(attrs map[String]Value) Record {
	var m map[String]Value
	if len(attrs) > 0 {
		m = make(map[String]Value, len(attrs))
	}
	var hashVal uint64
	for k, v := range attrs {
		m[k] = v
		hashVal += k.Hash() ^ v.Hash()
	}
	return Record{m: m, hashVal: hashVal}
}

// Len returns the number of attributes in the Record.
func (v Record) Len() int { return len(v.m) }

// Get returns the value of the named attribute, if present.
func (v Record) Get(key String) (Value, bool) {
	res, ok := v.m[key]
	return res, ok
}

// Keys returns the attribute names in sorted order.
func (v Record) Keys() []String {
	keys := maps.Keys(v.m)
	slices.Sort(keys)
	return keys
}

// Iterate calls iter for each attribute in sorted key order. Returning false
// from the iter function causes iteration to cease.
func (v Record) Iterate(iter func(key String, val Value) bool) {
	for _, k := range v.Keys() {
		if !iter(k, v.m[k]) {
			break
		}
	}
}

// Equal returns true if the records have the same attributes with equal
// values.
func (v Record) Equal(o Value) bool {
	o2, ok := o.(Record)
	if !ok || len(v.m) != len(o2.m) || v.hashVal != o2.hashVal {
		return false
	}
	for k, val := range v.m {
		oval, ok := o2.m[k]
		if !ok || !val.Equal(oval) {
			return false
		}
	}
	return true
}

func (v Record) Hash() uint64 { return v.hashVal }

// String produces a string representation of the Record,
// e.g. `{"age":21,"name":"alice"}`, with keys in sorted order.
func (v Record) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range v.Keys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k.String())
		sb.WriteByte(':')
		sb.WriteString(v.m[k].String())
	}
	sb.WriteByte('}')
	return sb.String()
}
