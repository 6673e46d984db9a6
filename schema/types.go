package schema

import (
	"sort"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cedar-policy/cedar-schema-go/types"
)

// Type is the recursive representation of a schema type. It is implemented
// by [TypeBool], [TypeLong], [TypeString], [TypeSet], [TypeRecord],
// [TypeEntity], [TypeExtension], and, transiently during fragment merging,
// [TypeCommonRef].
type Type interface {
	isSchemaType()
	// String renders the type for error messages.
	String() string
}

func (TypeBool) isSchemaType()      {}
func (TypeLong) isSchemaType()      {}
func (TypeString) isSchemaType()    {}
func (TypeSet) isSchemaType()       {}
func (TypeRecord) isSchemaType()    {}
func (TypeEntity) isSchemaType()    {}
func (TypeExtension) isSchemaType() {}
func (TypeCommonRef) isSchemaType() {}

// TypeBool is the Cedar Bool type.
type TypeBool struct{}

func (TypeBool) String() string { return "Bool" }

// TypeLong is the Cedar Long type.
type TypeLong struct{}

func (TypeLong) String() string { return "Long" }

// TypeString is the Cedar String type.
type TypeString struct{}

func (TypeString) String() string { return "String" }

// TypeSet is a set type. A nil Element denotes the type of the empty set,
// whose element type is unconstrained.
type TypeSet struct {
	Element Type
}

func (t TypeSet) String() string {
	if t.Element == nil {
		return "Set<?>"
	}
	return "Set<" + t.Element.String() + ">"
}

// AttributeType is the type of one record attribute together with whether
// the attribute must be present.
type AttributeType struct {
	Type     Type
	Required bool
}

// TypeRecord is a record type. Open records tolerate attributes beyond the
// declared ones; closed records do not.
type TypeRecord struct {
	Attributes map[string]AttributeType
	Open       bool
}

func (t TypeRecord) String() string {
	keys := maps.Keys(t.Attributes)
	slices.Sort(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		at := t.Attributes[k]
		sb.WriteString(k)
		if !at.Required {
			sb.WriteByte('?')
		}
		sb.WriteString(": ")
		sb.WriteString(at.Type.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// TypeEntity is an entity-reference type: any entity whose declared type is
// one of the names in the least-upper-bound set.
type TypeEntity struct {
	LUB []types.Path
}

// EntityOf returns a TypeEntity over the given names, sorted and
// deduplicated.
func EntityOf(names ...types.Path) TypeEntity {
	lub := slices.Clone(names)
	slices.Sort(lub)
	return TypeEntity{LUB: slices.Compact(lub)}
}

func (t TypeEntity) String() string {
	parts := make([]string, len(t.LUB))
	for i, n := range t.LUB {
		parts[i] = string(n)
	}
	return "Entity<" + strings.Join(parts, ", ") + ">"
}

// TypeExtension is an extension type such as ipaddr or decimal.
type TypeExtension struct {
	Name types.Path
}

func (t TypeExtension) String() string { return string(t.Name) }

// TypeCommonRef is an unresolved reference to a common-type definition. It
// only exists between fragment merging and common-type resolution; a
// constructed Schema never contains one.
type TypeCommonRef struct {
	Name types.Path
}

func (t TypeCommonRef) String() string { return string(t.Name) }

// EqualTypes reports structural equality of two types.
func EqualTypes(a, b Type) bool {
	switch av := a.(type) {
	case TypeBool:
		_, ok := b.(TypeBool)
		return ok
	case TypeLong:
		_, ok := b.(TypeLong)
		return ok
	case TypeString:
		_, ok := b.(TypeString)
		return ok
	case TypeSet:
		bv, ok := b.(TypeSet)
		if !ok {
			return false
		}
		if av.Element == nil || bv.Element == nil {
			return av.Element == nil && bv.Element == nil
		}
		return EqualTypes(av.Element, bv.Element)
	case TypeRecord:
		bv, ok := b.(TypeRecord)
		if !ok || av.Open != bv.Open || len(av.Attributes) != len(bv.Attributes) {
			return false
		}
		for k, at := range av.Attributes {
			bt, ok := bv.Attributes[k]
			if !ok || at.Required != bt.Required || !EqualTypes(at.Type, bt.Type) {
				return false
			}
		}
		return true
	case TypeEntity:
		bv, ok := b.(TypeEntity)
		return ok && slices.Equal(av.LUB, bv.LUB)
	case TypeExtension:
		bv, ok := b.(TypeExtension)
		return ok && av.Name == bv.Name
	case TypeCommonRef:
		bv, ok := b.(TypeCommonRef)
		return ok && av.Name == bv.Name
	}
	return false
}

// ConsistentTypes reports whether a value of type a could also inhabit type
// b. It differs from EqualTypes in that the unconstrained empty-set type is
// consistent with every set type and entity lub sets are consistent when
// they intersect.
func ConsistentTypes(a, b Type) bool {
	if as, ok := a.(TypeSet); ok {
		if bs, ok := b.(TypeSet); ok {
			if as.Element == nil || bs.Element == nil {
				return true
			}
			return ConsistentTypes(as.Element, bs.Element)
		}
		return false
	}
	if ae, ok := a.(TypeEntity); ok {
		be, ok := b.(TypeEntity)
		if !ok {
			return false
		}
		for _, n := range ae.LUB {
			if slices.Contains(be.LUB, n) {
				return true
			}
		}
		return false
	}
	return EqualTypes(a, b)
}

// InferType derives the schema type a decoded value inhabits. Entity
// references infer to a singleton lub, empty sets to the unconstrained
// empty-set type, and records to a closed record over the present
// attributes.
func InferType(v types.Value) Type {
	switch val := v.(type) {
	case types.Boolean:
		return TypeBool{}
	case types.Long:
		return TypeLong{}
	case types.String:
		return TypeString{}
	case types.EntityUID:
		return EntityOf(val.Type.Name)
	case types.Set:
		var elem Type
		val.Iterate(func(e types.Value) bool {
			elem = InferType(e)
			return false
		})
		return TypeSet{Element: elem}
	case types.Record:
		attrs := make(map[string]AttributeType, val.Len())
		val.Iterate(func(k types.String, av types.Value) bool {
			attrs[string(k)] = AttributeType{Type: InferType(av), Required: true}
			return true
		})
		return TypeRecord{Attributes: attrs}
	case types.ExtensionValue:
		return TypeExtension{Name: extensionTypeOf(val)}
	}
	return TypeRecord{}
}

func extensionTypeOf(v types.ExtensionValue) types.Path {
	switch v.ExtnFn() {
	case "decimal":
		return "decimal"
	case "ip":
		return "ipaddr"
	}
	return v.ExtnFn()
}

// resolveTypeDefs substitutes common-type references in t using defs. The
// second result names any referenced common types that were never declared.
func resolveTypeDefs(t Type, defs map[types.Path]Type) (Type, []types.Path) {
	switch tv := t.(type) {
	case TypeCommonRef:
		if def, ok := defs[tv.Name]; ok {
			return def, nil
		}
		return tv, []types.Path{tv.Name}
	case TypeSet:
		if tv.Element == nil {
			return tv, nil
		}
		elem, missing := resolveTypeDefs(tv.Element, defs)
		return TypeSet{Element: elem}, missing
	case TypeRecord:
		attrs := make(map[string]AttributeType, len(tv.Attributes))
		var missing []types.Path
		for k, at := range tv.Attributes {
			rt, m := resolveTypeDefs(at.Type, defs)
			attrs[k] = AttributeType{Type: rt, Required: at.Required}
			missing = append(missing, m...)
		}
		return TypeRecord{Attributes: attrs, Open: tv.Open}, missing
	default:
		return t, nil
	}
}

// commonRefsIn lists the common-type references occurring in t, in
// deterministic order, for dependency ordering of common-type definitions.
func commonRefsIn(t Type) []types.Path {
	switch tv := t.(type) {
	case TypeCommonRef:
		return []types.Path{tv.Name}
	case TypeSet:
		if tv.Element == nil {
			return nil
		}
		return commonRefsIn(tv.Element)
	case TypeRecord:
		var refs []types.Path
		keys := maps.Keys(tv.Attributes)
		sort.Strings(keys)
		for _, k := range keys {
			refs = append(refs, commonRefsIn(tv.Attributes[k].Type)...)
		}
		return refs
	default:
		return nil
	}
}
