package types

import (
	"sort"
	"strconv"
)

// EntityType identifies the declared type of an entity. It is either a
// concrete, namespace-qualified name or the unspecified entity type (the
// zero value). Unspecified entities can appear in authorization requests but
// are never declarable in a schema.
type EntityType struct {
	Name Path
}

// NewEntityType returns the concrete entity type with the given name.
func NewEntityType(name Path) EntityType { return EntityType{Name: name} }

// IsUnspecified reports whether this is the unspecified entity type.
func (t EntityType) IsUnspecified() bool { return t.Name == "" }

func (t EntityType) String() string {
	if t.IsUnspecified() {
		return "<unspecified>"
	}
	return string(t.Name)
}

// An EntityUID identifies a specific entity: a pair of its declared type and
// its id. EntityUID is a Value; a literal entity reference decodes to one.
type EntityUID struct {
	Type EntityType
	ID   String
}

// NewEntityUID returns an EntityUID with the given concrete type name and id.
func NewEntityUID(typ Path, id String) EntityUID {
	return EntityUID{Type: NewEntityType(typ), ID: id}
}

func (v EntityUID) Equal(o Value) bool {
	o2, ok := o.(EntityUID)
	return ok && v == o2
}

func (v EntityUID) Hash() uint64 {
	return hashBytes([]byte(v.Type.Name)) ^ hashBytes([]byte(v.ID))
}

// String produces the canonical representation, e.g. `NS::Type::"id"`.
func (v EntityUID) String() string {
	return v.Type.String() + "::" + strconv.Quote(string(v.ID))
}

// An Entity is an instance of an entity type: its uid, its attribute values,
// and the uids of its ancestors in the entity hierarchy. Entities are
// immutable once constructed and safe to share by reference.
type Entity struct {
	UID        EntityUID
	Parents    []EntityUID
	Attributes Record
}

// NewEntity constructs an Entity. The parents slice is sorted for
// deterministic iteration and is owned by the Entity afterwards.
func NewEntity(uid EntityUID, parents []EntityUID, attrs Record) *Entity {
	sort.Slice(parents, func(i, j int) bool {
		return parents[i].String() < parents[j].String()
	})
	return &Entity{UID: uid, Parents: parents, Attributes: attrs}
}

// HasParent reports whether uid is among the entity's ancestors.
func (e *Entity) HasParent(uid EntityUID) bool {
	for _, p := range e.Parents {
		if p == uid {
			return true
		}
	}
	return false
}

// EntityMap is a collection of entities keyed by uid.
type EntityMap map[EntityUID]*Entity
