package schema

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cedar-policy/cedar-schema-go/types"
)

// ApplySpec records which principal and resource entity types an action may
// be used with. An unspecified entity type (the zero types.EntityType) means
// the action places no constraint on that slot; an empty list means the
// action applies to nothing in that slot.
type ApplySpec struct {
	PrincipalTypes []types.EntityType
	ResourceTypes  []types.EntityType
}

func applies(allowed []types.EntityType, et types.EntityType) bool {
	for _, a := range allowed {
		if a.IsUnspecified() || a == et {
			return true
		}
	}
	return false
}

// ActionInfo is the constructed form of one declared action.
type ActionInfo struct {
	Name        types.EntityUID
	AppliesTo   ApplySpec
	Context     TypeRecord
	Descendants map[types.EntityUID]struct{}

	// Attributes holds the action's literal attribute values, present only
	// when the schema was built with WithActionAttributes. AttributeTypes
	// holds the type inferred for each literal.
	Attributes     map[types.String]types.Value
	AttributeTypes map[types.String]Type
}

// AppliesToPrincipal reports whether the action may be used with the given
// principal entity type.
func (a *ActionInfo) AppliesToPrincipal(et types.EntityType) bool {
	return applies(a.AppliesTo.PrincipalTypes, et)
}

// AppliesToResource reports whether the action may be used with the given
// resource entity type.
func (a *ActionInfo) AppliesToResource(et types.EntityType) bool {
	return applies(a.AppliesTo.ResourceTypes, et)
}

// HasDescendant reports whether uid is transitively a member of this action
// group.
func (a *ActionInfo) HasDescendant(uid types.EntityUID) bool {
	_, ok := a.Descendants[uid]
	return ok
}

// DescendantUIDs returns the descendant set sorted by string form.
func (a *ActionInfo) DescendantUIDs() []types.EntityUID {
	uids := maps.Keys(a.Descendants)
	slices.SortFunc(uids, compareUIDs)
	return uids
}

func compareUIDs(x, y types.EntityUID) int {
	if c := strings.Compare(string(x.Type.Name), string(y.Type.Name)); c != 0 {
		return c
	}
	return strings.Compare(string(x.ID), string(y.ID))
}
