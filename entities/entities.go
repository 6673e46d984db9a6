// Package entities decodes and encodes entity data in the JSON entities
// format. A Parser built with a schema checks entities as it decodes them:
// attribute values must conform to the declared shape, parents must be of
// allowed types, and extension values may be written as bare JSON primitives
// when the schema makes the constructor unambiguous. A Parser built without
// a schema decodes the same format with no checking.
package entities

import (
	"fmt"

	"github.com/cedar-policy/cedar-schema-go/internal/jsonval"
	"github.com/cedar-policy/cedar-schema-go/internal/valuejson"
	"github.com/cedar-policy/cedar-schema-go/schema"
	"github.com/cedar-policy/cedar-schema-go/types"
)

// Schema is the part of a validator schema that entity decoding consults.
// *schema.Schema satisfies it.
type Schema interface {
	Description(types.EntityType) (*schema.EntityTypeDescription, bool)
	IsDeclaredAction(types.EntityUID) bool
	ContextType(types.EntityUID) (schema.TypeRecord, bool)
	EntityTypesWithBasename(types.Ident) []types.EntityType
}

var _ Schema = (*schema.Schema)(nil)

// Parser decodes entities JSON. A nil schema disables checking.
type Parser struct {
	schema Schema
}

func NewParser(s Schema) *Parser {
	return &Parser{schema: s}
}

// ParseEntities decodes a JSON array of entities.
func (p *Parser) ParseEntities(data []byte) (types.EntityMap, error) {
	v, err := jsonval.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
	}
	arr, ok := v.(jsonval.Array)
	if !ok {
		return nil, fmt.Errorf("%w: expected an array of entities, got `%s`", ErrJSON, jsonval.Describe(v))
	}
	out := make(types.EntityMap, len(arr))
	for _, ev := range arr {
		e, err := p.parseEntity(ev)
		if err != nil {
			return nil, err
		}
		if _, ok := out[e.UID]; ok {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateEntity, e.UID)
		}
		out[e.UID] = e
	}
	return out, nil
}

// ParseEntity decodes a single entity object.
func (p *Parser) ParseEntity(data []byte) (*types.Entity, error) {
	v, err := jsonval.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
	}
	return p.parseEntity(v)
}

func (p *Parser) parseEntity(v jsonval.Value) (*types.Entity, error) {
	o, ok := v.(*jsonval.Object)
	if !ok {
		return nil, fmt.Errorf("%w: expected an entity object, got `%s`", ErrJSON, jsonval.Describe(v))
	}
	for _, k := range o.Keys {
		switch k {
		case "uid", "attrs", "parents":
		default:
			return nil, fmt.Errorf("%w: unexpected field %q in entity", ErrJSON, k)
		}
	}
	if len(o.Dups) > 0 {
		return nil, fmt.Errorf("%w: `%s`", ErrDuplicateKey, o.Dups[0])
	}

	uidVal, ok := o.Get("uid")
	if !ok {
		return nil, fmt.Errorf("%w: entity is missing the uid field", ErrJSON)
	}
	uid, err := valuejson.EntityRef(uidVal)
	if err != nil {
		return nil, inUID(err)
	}

	// Action entities are declared by the schema rather than described by an
	// entity type, so they are matched against the action table instead.
	var desc *schema.EntityTypeDescription
	isAction := false
	if p.schema != nil {
		isAction = p.schema.IsDeclaredAction(uid)
		if d, ok := p.schema.Description(uid.Type); ok {
			desc = d
		} else if !isAction {
			return nil, &UnknownEntityTypeError{
				Type:        uid.Type.Name,
				Suggestions: p.schema.EntityTypesWithBasename(uid.Type.Name.Basename()),
			}
		}
	}

	var attrs map[types.String]types.Value
	if av, ok := o.Get("attrs"); ok {
		ao, ok := av.(*jsonval.Object)
		if !ok {
			return nil, fmt.Errorf("%w: expected attrs to be a record, got `%s`", ErrJSON, jsonval.Describe(av))
		}
		if len(ao.Dups) > 0 {
			return nil, inAttr(uid, ao.Dups[0], ErrDuplicateKey)
		}
		attrs = make(map[types.String]types.Value, len(ao.Keys))
		for _, k := range ao.Keys {
			var expected schema.Type
			if desc != nil {
				at, ok := desc.AttributeType(k)
				switch {
				case ok:
					expected = at.Type
				case !desc.Open:
					return nil, inAttr(uid, k, &AttributeError{Kind: ErrUnexpectedAttr, Attr: k})
				}
			}
			val, err := p.decodeValue(ao.Fields[k], expected)
			if err != nil {
				return nil, inAttr(uid, k, err)
			}
			attrs[types.String(k)] = val
		}
	}
	if desc != nil {
		for _, req := range desc.RequiredAttributes() {
			if _, ok := attrs[types.String(req)]; !ok {
				return nil, inAttr(uid, req, &AttributeError{Kind: ErrMissingAttr, Attr: req})
			}
		}
	}

	var parents []types.EntityUID
	if pv, ok := o.Get("parents"); ok {
		pa, ok := pv.(jsonval.Array)
		if !ok {
			return nil, inParents(uid, fmt.Errorf("%w: expected an array, got `%s`", ErrJSON, jsonval.Describe(pv)))
		}
		for _, pe := range pa {
			parent, err := valuejson.EntityRef(pe)
			if err != nil {
				return nil, inParents(uid, err)
			}
			if isAction && !p.schema.IsDeclaredAction(parent) {
				return nil, inParents(uid, &ActionParentError{Action: uid, Parent: parent})
			}
			if desc != nil && !desc.AllowsParent(parent.Type) {
				return nil, inParents(uid, &DisallowedParentError{Entity: uid, Parent: parent})
			}
			parents = append(parents, parent)
		}
	}

	return types.NewEntity(uid, parents, types.NewRecord(attrs)), nil
}
