// Package extensions is the registry of Cedar extension functions consulted
// for function signatures, lookup by name and arity, and implicit
// single-argument constructor inference.
package extensions

import (
	"fmt"

	"github.com/cedar-policy/cedar-schema-go/types"
)

// ArgKind classifies the primitive argument a constructor accepts. It is the
// key used for implicit-constructor inference: a bare primitive literal in a
// position expecting an extension type is fed to the constructor registered
// for (extension type, primitive kind), if any.
type ArgKind int

const (
	ArgString ArgKind = iota
	ArgLong
	ArgBool
)

func (k ArgKind) String() string {
	switch k {
	case ArgString:
		return "String"
	case ArgLong:
		return "Long"
	default:
		return "Bool"
	}
}

// Function describes one extension function.
type Function struct {
	// Name of the function, e.g. `ip`.
	Name types.Path
	// Arity is the number of arguments. Every registered function is a
	// single-argument constructor; the field exists so lookups can be
	// arity-qualified.
	Arity int
	// Arg is the accepted argument kind.
	Arg ArgKind
	// Returns is the extension type the function produces, e.g. `ipaddr`.
	Returns types.Path
	// Construct builds the extension value from the literal argument.
	Construct func(arg types.Value) (types.Value, error)
}

var funcs = []Function{
	{
		Name:    "decimal",
		Arity:   1,
		Arg:     ArgString,
		Returns: "decimal",
		Construct: func(arg types.Value) (types.Value, error) {
			s, ok := arg.(types.String)
			if !ok {
				return nil, fmt.Errorf("decimal: expected String argument, got %s", arg)
			}
			return types.ParseDecimal(string(s))
		},
	},
	{
		Name:    "ip",
		Arity:   1,
		Arg:     ArgString,
		Returns: "ipaddr",
		Construct: func(arg types.Value) (types.Value, error) {
			s, ok := arg.(types.String)
			if !ok {
				return nil, fmt.Errorf("ip: expected String argument, got %s", arg)
			}
			return types.ParseIPAddr(string(s))
		},
	},
}

// Lookup finds the extension function with the given name and arity.
func Lookup(name types.Path, arity int) (Function, bool) {
	for _, f := range funcs {
		if f.Name == name && f.Arity == arity {
			return f, true
		}
	}
	return Function{}, false
}

// ImpliedConstructor finds the single-argument constructor producing the
// given extension type from the given argument kind.
func ImpliedConstructor(returns types.Path, arg ArgKind) (Function, bool) {
	for _, f := range funcs {
		if f.Returns == returns && f.Arity == 1 && f.Arg == arg {
			return f, true
		}
	}
	return Function{}, false
}

// IsExtensionType reports whether name is a known extension type.
func IsExtensionType(name types.Path) bool {
	for _, f := range funcs {
		if f.Returns == name {
			return true
		}
	}
	return false
}
