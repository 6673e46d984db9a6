// Package types defines the identifiers and the immutable value algebra used
// to hold decoded entity and context attribute data: primitives, sets,
// records, entity references, and extension values.
package types

import "strconv"

// Value is an immutable Cedar attribute value.
type Value interface {
	// Equal reports structural equality with another Value.
	Equal(Value) bool
	// Hash returns a hash consistent with Equal.
	Hash() uint64
	// String produces a Cedar-literal-style representation, used primarily
	// in error messages.
	String() string
}

// ExtensionValue is a Value produced by an extension-function constructor.
// It knows how to describe the call that (re)constructs it.
type ExtensionValue interface {
	Value
	// ExtnFn is the name of the constructing extension function.
	ExtnFn() Path
	// ExtnArgs are the literal arguments of the constructing call.
	ExtnArgs() []Value
}

// A Boolean is a value that is true or false.
type Boolean bool

const (
	True  = Boolean(true)
	False = Boolean(false)
)

func (v Boolean) Equal(o Value) bool {
	o2, ok := o.(Boolean)
	return ok && v == o2
}

func (v Boolean) Hash() uint64 {
	if v {
		return hashBytes([]byte{1})
	}
	return hashBytes([]byte{0})
}

func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }

// A Long is a whole number.
type Long int64

func (v Long) Equal(o Value) bool {
	o2, ok := o.(Long)
	return ok && v == o2
}

func (v Long) Hash() uint64 { return hashUint64(uint64(v)) }

func (v Long) String() string { return strconv.FormatInt(int64(v), 10) }

// A String is a sequence of characters.
type String string

func (v String) Equal(o Value) bool {
	o2, ok := o.(String)
	return ok && v == o2
}

func (v String) Hash() uint64 { return hashBytes([]byte(v)) }

func (v String) String() string { return strconv.Quote(string(v)) }

// fnv-1a
const (
	fnvOffsetBasis = 0xcbf29ce484222325
	fnvPrime       = 0x00000100000001b3
)

func hashBytes(b []byte) uint64 {
	h := uint64(fnvOffsetBasis)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime
	}
	return h
}

func hashUint64(u uint64) uint64 {
	h := uint64(fnvOffsetBasis)
	for i := 0; i < 8; i++ {
		h ^= u & 0xff
		h *= fnvPrime
		u >>= 8
	}
	return h
}
