package schema

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cedar-policy/cedar-schema-go/types"
)

// EntityTypeInfo is the constructed form of one declared entity type: its
// fully-qualified name, its attribute types, and the transitively-closed set
// of entity types that are (directly or indirectly) members of it.
type EntityTypeInfo struct {
	Name        types.Path
	Attributes  map[string]AttributeType
	Open        bool
	Descendants map[types.Path]struct{}
}

// Attr returns the type of the named attribute, if declared.
func (e *EntityTypeInfo) Attr(name string) (AttributeType, bool) {
	at, ok := e.Attributes[name]
	return at, ok
}

// RequiredAttributes returns the names of the attributes that must be
// present on entities of this type, in sorted order.
func (e *EntityTypeInfo) RequiredAttributes() []string {
	var req []string
	for name, at := range e.Attributes {
		if at.Required {
			req = append(req, name)
		}
	}
	slices.Sort(req)
	return req
}

// HasDescendant reports whether name is transitively a member of this entity
// type.
func (e *EntityTypeInfo) HasDescendant(name types.Path) bool {
	_, ok := e.Descendants[name]
	return ok
}

// DescendantNames returns the descendant set in sorted order.
func (e *EntityTypeInfo) DescendantNames() []types.Path {
	names := maps.Keys(e.Descendants)
	slices.Sort(names)
	return names
}
