package schema

import (
	"encoding/json"
	"fmt"

	"github.com/cedar-policy/cedar-schema-go/types"
)

// A Fragment is one bundle of per-namespace declarations in the JSON schema
// format: namespace name (the empty string for the top-level namespace) to
// common type, entity type, and action declarations. Multiple fragments are
// merged into a single [Schema] by [FromFragments].
type Fragment struct {
	Namespaces map[types.Path]*NamespaceDefinition
}

// ParseFragment reads a fragment from its JSON representation.
func ParseFragment(data []byte) (*Fragment, error) {
	var f Fragment
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// UnmarshalJSON parses a fragment from the namespace → declarations JSON
// object form.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var raw map[string]*NamespaceDefinition
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrJSON, err)
	}
	f.Namespaces = make(map[types.Path]*NamespaceDefinition, len(raw))
	for ns, def := range raw {
		if ns != "" {
			if _, err := types.ParsePath(ns); err != nil {
				return fmt.Errorf("%w: %w", ErrJSON, err)
			}
		}
		if def == nil {
			def = &NamespaceDefinition{}
		}
		f.Namespaces[types.Path(ns)] = def
	}
	return nil
}

// MarshalJSON renders the fragment in the namespace → declarations JSON
// object form.
func (f *Fragment) MarshalJSON() ([]byte, error) {
	raw := make(map[string]*NamespaceDefinition, len(f.Namespaces))
	for ns, def := range f.Namespaces {
		raw[string(ns)] = def
	}
	return json.Marshal(raw)
}

// NamespaceDefinition holds the raw declarations of one namespace.
type NamespaceDefinition struct {
	CommonTypes map[string]*JSONType       `json:"commonTypes,omitempty"`
	EntityTypes map[string]*JSONEntityType `json:"entityTypes,omitempty"`
	Actions     map[string]*JSONAction     `json:"actions,omitempty"`
}

// JSONEntityType is the raw declaration of one entity type.
type JSONEntityType struct {
	MemberOfTypes []string  `json:"memberOfTypes,omitempty"`
	Shape         *JSONType `json:"shape,omitempty"`
}

// JSONAction is the raw declaration of one action.
type JSONAction struct {
	MemberOf   []JSONActionRef            `json:"memberOf,omitempty"`
	AppliesTo  *JSONAppliesTo             `json:"appliesTo,omitempty"`
	Attributes map[string]json.RawMessage `json:"attributes,omitempty"`
}

// JSONActionRef names another action, optionally qualifying the action
// entity type (defaulting to `Action` in the declaring namespace).
type JSONActionRef struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// JSONAppliesTo declares the principal and resource types an action applies
// to. A nil PrincipalTypes or ResourceTypes list (absent or JSON null) means
// the action applies to the unspecified entity; an explicitly empty list
// means the action applies to nothing of that kind.
type JSONAppliesTo struct {
	PrincipalTypes *[]string `json:"principalTypes,omitempty"`
	ResourceTypes  *[]string `json:"resourceTypes,omitempty"`
	Context        *JSONType `json:"context,omitempty"`
}

// JSONType is the raw JSON form of a schema type. Type is one of `Boolean`,
// `Long`, `String`, `Set`, `Record`, `Entity`, or `Extension`; any other
// value is a reference to a common type declared elsewhere.
type JSONType struct {
	Type                 string                    `json:"type"`
	Element              *JSONType                 `json:"element,omitempty"`
	Name                 string                    `json:"name,omitempty"`
	Attributes           map[string]*JSONAttribute `json:"attributes,omitempty"`
	AdditionalAttributes bool                      `json:"additionalAttributes,omitempty"`
}

// JSONAttribute is the raw JSON form of one record attribute. Required
// defaults to true when absent.
type JSONAttribute struct {
	Type                 string                    `json:"type"`
	Element              *JSONType                 `json:"element,omitempty"`
	Name                 string                    `json:"name,omitempty"`
	Attributes           map[string]*JSONAttribute `json:"attributes,omitempty"`
	AdditionalAttributes bool                      `json:"additionalAttributes,omitempty"`
	Required             *bool                     `json:"required,omitempty"`
}

func (a *JSONAttribute) required() bool {
	return a.Required == nil || *a.Required
}

func (a *JSONAttribute) typ() *JSONType {
	return &JSONType{
		Type:                 a.Type,
		Element:              a.Element,
		Name:                 a.Name,
		Attributes:           a.Attributes,
		AdditionalAttributes: a.AdditionalAttributes,
	}
}
