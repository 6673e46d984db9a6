package schema

import (
	"fmt"

	"github.com/cedar-policy/cedar-schema-go/extensions"
	"github.com/cedar-policy/cedar-schema-go/internal/valuejson"
	"github.com/cedar-policy/cedar-schema-go/types"
)

// actionEntityBasename is the entity type basename shared by all actions.
const actionEntityBasename = "Action"

// namespaceDef carries one namespace's declarations after every name in it
// has been fully qualified. Types may still contain unresolved common-type
// references.
type namespaceDef struct {
	typeDefs    map[types.Path]Type
	entityTypes map[types.Path]*entityTypeDecl
	actions     map[types.EntityUID]*actionDecl
}

type entityTypeDecl struct {
	parents []types.Path
	shape   Type
}

type actionDecl struct {
	parents        []types.EntityUID
	context        Type
	appliesTo      applySpec
	attributes     map[types.String]types.Value
	attributeTypes map[types.String]Type
}

// applySpec is the declared set of permissible principal and resource entity
// types for an action. Either list may contain the unspecified entity type.
type applySpec struct {
	principalTypes []types.EntityType
	resourceTypes  []types.EntityType
}

// convertNamespace qualifies every declared and referenced name in def with
// the namespace ns and converts raw JSON declarations into typed ones.
func convertNamespace(ns types.Path, def *NamespaceDefinition, behavior ActionBehavior) (*namespaceDef, error) {
	out := &namespaceDef{
		typeDefs:    make(map[types.Path]Type, len(def.CommonTypes)),
		entityTypes: make(map[types.Path]*entityTypeDecl, len(def.EntityTypes)),
		actions:     make(map[types.EntityUID]*actionDecl, len(def.Actions)),
	}

	for name, jt := range def.CommonTypes {
		ident, err := types.ParseIdent(name)
		if err != nil {
			return nil, fmt.Errorf("common type %q: %w", name, err)
		}
		t, err := convertType(ns, jt)
		if err != nil {
			return nil, fmt.Errorf("common type %q: %w", name, err)
		}
		out.typeDefs[types.Qualify(ns, types.Path(ident))] = t
	}

	for name, jet := range def.EntityTypes {
		ident, err := types.ParseIdent(name)
		if err != nil {
			return nil, fmt.Errorf("entity type %q: %w", name, err)
		}
		decl, err := convertEntityType(ns, jet)
		if err != nil {
			return nil, fmt.Errorf("entity type %q: %w", name, err)
		}
		out.entityTypes[types.Qualify(ns, types.Path(ident))] = decl
	}

	actionType := types.Qualify(ns, actionEntityBasename)
	for name, ja := range def.Actions {
		decl, err := convertAction(ns, ja, behavior)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", name, err)
		}
		out.actions[types.NewEntityUID(actionType, types.String(name))] = decl
	}

	return out, nil
}

func convertEntityType(ns types.Path, jet *JSONEntityType) (*entityTypeDecl, error) {
	decl := &entityTypeDecl{}
	for _, parent := range jet.MemberOfTypes {
		p, err := types.ParsePath(parent)
		if err != nil {
			return nil, fmt.Errorf("memberOfTypes: %w", err)
		}
		decl.parents = append(decl.parents, types.Qualify(ns, p))
	}
	if jet.Shape != nil {
		shape, err := convertType(ns, jet.Shape)
		if err != nil {
			return nil, fmt.Errorf("shape: %w", err)
		}
		decl.shape = shape
	} else {
		decl.shape = TypeRecord{Attributes: map[string]AttributeType{}}
	}
	return decl, nil
}

func convertAction(ns types.Path, ja *JSONAction, behavior ActionBehavior) (*actionDecl, error) {
	decl := &actionDecl{}

	for _, ref := range ja.MemberOf {
		aet := types.Qualify(ns, actionEntityBasename)
		if ref.Type != "" {
			p, err := types.ParsePath(ref.Type)
			if err != nil {
				return nil, fmt.Errorf("memberOf: %w", err)
			}
			aet = types.Qualify(ns, p)
		}
		decl.parents = append(decl.parents, types.NewEntityUID(aet, types.String(ref.ID)))
	}

	decl.appliesTo, decl.context = defaultApplySpec()
	if ja.AppliesTo != nil {
		var err error
		if decl.appliesTo.principalTypes, err = convertApplyList(ns, ja.AppliesTo.PrincipalTypes); err != nil {
			return nil, fmt.Errorf("principalTypes: %w", err)
		}
		if decl.appliesTo.resourceTypes, err = convertApplyList(ns, ja.AppliesTo.ResourceTypes); err != nil {
			return nil, fmt.Errorf("resourceTypes: %w", err)
		}
		if ja.AppliesTo.Context != nil {
			if decl.context, err = convertType(ns, ja.AppliesTo.Context); err != nil {
				return nil, fmt.Errorf("context: %w", err)
			}
		}
	}

	if len(ja.Attributes) > 0 {
		if behavior == ProhibitActionAttributes {
			return nil, ErrActionAttributes
		}
		decl.attributes = make(map[types.String]types.Value, len(ja.Attributes))
		decl.attributeTypes = make(map[types.String]Type, len(ja.Attributes))
		for attr, raw := range ja.Attributes {
			v, err := valuejson.DecodeBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", attr, err)
			}
			if err := checkAttrSets(v); err != nil {
				return nil, fmt.Errorf("attribute %q: %w", attr, err)
			}
			decl.attributes[types.String(attr)] = v
			decl.attributeTypes[types.String(attr)] = InferType(v)
		}
	}

	return decl, nil
}

// checkAttrSets rejects literal values containing empty or heterogeneous
// sets, since no attribute type can be inferred for those.
func checkAttrSets(v types.Value) error {
	switch val := v.(type) {
	case types.Set:
		if val.Len() == 0 {
			return ErrActionAttributeSets
		}
		var first Type
		var err error
		val.Iterate(func(e types.Value) bool {
			if err = checkAttrSets(e); err != nil {
				return false
			}
			it := InferType(e)
			if first == nil {
				first = it
			} else if !ConsistentTypes(first, it) {
				err = ErrActionAttributeSets
				return false
			}
			return true
		})
		return err
	case types.Record:
		var err error
		val.Iterate(func(_ types.String, av types.Value) bool {
			err = checkAttrSets(av)
			return err == nil
		})
		return err
	}
	return nil
}

// defaultApplySpec is the meaning of a missing appliesTo clause: the action
// applies to unspecified principals and resources with an empty context.
func defaultApplySpec() (applySpec, Type) {
	return applySpec{
		principalTypes: []types.EntityType{{}},
		resourceTypes:  []types.EntityType{{}},
	}, TypeRecord{Attributes: map[string]AttributeType{}}
}

func convertApplyList(ns types.Path, names *[]string) ([]types.EntityType, error) {
	if names == nil {
		// Absent or null: the action applies to the unspecified entity.
		return []types.EntityType{{}}, nil
	}
	out := make([]types.EntityType, 0, len(*names))
	for _, name := range *names {
		p, err := types.ParsePath(name)
		if err != nil {
			return nil, err
		}
		out = append(out, types.NewEntityType(types.Qualify(ns, p)))
	}
	return out, nil
}

func convertType(ns types.Path, jt *JSONType) (Type, error) {
	switch jt.Type {
	case "Boolean":
		return TypeBool{}, nil
	case "Long":
		return TypeLong{}, nil
	case "String":
		return TypeString{}, nil
	case "Set":
		if jt.Element == nil {
			return nil, fmt.Errorf("%w: Set type requires an element type", ErrJSON)
		}
		elem, err := convertType(ns, jt.Element)
		if err != nil {
			return nil, err
		}
		return TypeSet{Element: elem}, nil
	case "Record":
		attrs := make(map[string]AttributeType, len(jt.Attributes))
		for name, ja := range jt.Attributes {
			at, err := convertType(ns, ja.typ())
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", name, err)
			}
			attrs[name] = AttributeType{Type: at, Required: ja.required()}
		}
		return TypeRecord{Attributes: attrs, Open: jt.AdditionalAttributes}, nil
	case "Entity":
		if jt.Name == "" {
			return nil, fmt.Errorf("%w: Entity type requires a name", ErrJSON)
		}
		p, err := types.ParsePath(jt.Name)
		if err != nil {
			return nil, err
		}
		return EntityOf(types.Qualify(ns, p)), nil
	case "Extension":
		p, err := types.ParsePath(jt.Name)
		if err != nil {
			return nil, err
		}
		if !extensions.IsExtensionType(p) {
			return nil, fmt.Errorf("%w: unknown extension type %q", ErrJSON, jt.Name)
		}
		return TypeExtension{Name: p}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrJSON)
	default:
		// Any other name is a reference to a common type.
		p, err := types.ParsePath(jt.Type)
		if err != nil {
			return nil, err
		}
		return TypeCommonRef{Name: types.Qualify(ns, p)}, nil
	}
}
