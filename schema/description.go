package schema

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cedar-policy/cedar-schema-go/types"
)

// EntityTypeDescription is the validation-time view of one entity type: the
// attribute types entities of that type must carry and the set of entity
// types their parents are allowed to have. An entity type B is an allowed
// parent of A exactly when A is in B's descendant set.
type EntityTypeDescription struct {
	Type               types.EntityType
	Attributes         map[string]AttributeType
	Open               bool
	AllowedParentTypes map[types.EntityType]struct{}
}

// AttributeType returns the declared type of the named attribute.
func (d *EntityTypeDescription) AttributeType(name string) (AttributeType, bool) {
	at, ok := d.Attributes[name]
	return at, ok
}

// RequiredAttributes returns the names of the attributes that must be
// present, in sorted order.
func (d *EntityTypeDescription) RequiredAttributes() []string {
	var req []string
	for name, at := range d.Attributes {
		if at.Required {
			req = append(req, name)
		}
	}
	slices.Sort(req)
	return req
}

// AllowsParent reports whether entities of this type may declare a parent of
// the given entity type.
func (d *EntityTypeDescription) AllowsParent(et types.EntityType) bool {
	_, ok := d.AllowedParentTypes[et]
	return ok
}

// AllowedParents returns the allowed parent types in sorted order.
func (d *EntityTypeDescription) AllowedParents() []types.EntityType {
	parents := maps.Keys(d.AllowedParentTypes)
	slices.SortFunc(parents, func(x, y types.EntityType) int {
		return strings.Compare(string(x.Name), string(y.Name))
	})
	return parents
}
