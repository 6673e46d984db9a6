package entities

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cedar-policy/cedar-schema-go/extensions"
	"github.com/cedar-policy/cedar-schema-go/internal/jsonval"
	"github.com/cedar-policy/cedar-schema-go/internal/valuejson"
	"github.com/cedar-policy/cedar-schema-go/schema"
	"github.com/cedar-policy/cedar-schema-go/types"
)

// decodeValue decodes v against an expected type. A nil expected type means
// no schema guidance; the value decodes by its JSON shape alone.
func (p *Parser) decodeValue(v jsonval.Value, expected schema.Type) (types.Value, error) {
	if expected == nil {
		return valuejson.Decode(v)
	}
	switch t := expected.(type) {
	case schema.TypeBool:
		if b, ok := v.(jsonval.Bool); ok {
			return types.Boolean(b), nil
		}
	case schema.TypeLong:
		if n, ok := v.(jsonval.Number); ok {
			i, ok := n.Int()
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNotLong, string(n))
			}
			return types.Long(i), nil
		}
	case schema.TypeString:
		if s, ok := v.(jsonval.String); ok {
			return types.String(s), nil
		}
	case schema.TypeSet:
		if arr, ok := v.(jsonval.Array); ok {
			return p.decodeSet(arr, t.Element)
		}
	case schema.TypeRecord:
		if o, ok := v.(*jsonval.Object); ok && !isEscape(o) {
			return p.decodeRecord(o, t)
		}
	case schema.TypeEntity:
		uid, err := valuejson.EntityRef(v)
		if err != nil {
			return nil, err
		}
		if len(t.LUB) > 0 && !slices.Contains(t.LUB, uid.Type.Name) {
			return nil, &TypeMismatchError{Expected: t, Got: uid}
		}
		return uid, nil
	case schema.TypeExtension:
		return p.decodeExtension(v, t)
	}

	got, err := valuejson.Decode(v)
	if err != nil {
		return nil, err
	}
	return nil, &TypeMismatchError{Expected: expected, Got: got}
}

func isEscape(o *jsonval.Object) bool {
	if len(o.Keys) != 1 {
		return false
	}
	return o.Keys[0] == valuejson.EntityEscape || o.Keys[0] == valuejson.ExtnEscape
}

func (p *Parser) decodeSet(arr jsonval.Array, elem schema.Type) (types.Value, error) {
	vals := make([]types.Value, len(arr))
	if elem == nil {
		// No element type declared. The elements still have to agree among
		// themselves.
		var first schema.Type
		for i, e := range arr {
			v, err := valuejson.Decode(e)
			if err != nil {
				return nil, err
			}
			it := schema.InferType(v)
			if first == nil {
				first = it
			} else if !schema.ConsistentTypes(first, it) {
				return nil, &HeterogeneousSetError{First: first, Second: it}
			}
			vals[i] = v
		}
		return types.NewSet(vals), nil
	}
	for i, e := range arr {
		v, err := p.decodeValue(e, elem)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return types.NewSet(vals), nil
}

func (p *Parser) decodeRecord(o *jsonval.Object, t schema.TypeRecord) (types.Value, error) {
	if o.Has(valuejson.ExprEscape) {
		return nil, ErrExprEscape
	}
	if len(o.Dups) > 0 {
		return nil, fmt.Errorf("%w: `%s`", ErrDuplicateKey, o.Dups[0])
	}
	attrs := make(map[types.String]types.Value, len(o.Keys))
	for _, k := range o.Keys {
		var expected schema.Type
		if at, ok := t.Attributes[k]; ok {
			expected = at.Type
		} else if !t.Open {
			return nil, &AttributeError{Kind: ErrUnexpectedAttr, Attr: k}
		}
		val, err := p.decodeValue(o.Fields[k], expected)
		if err != nil {
			return nil, err
		}
		attrs[types.String(k)] = val
	}
	names := maps.Keys(t.Attributes)
	slices.Sort(names)
	for _, name := range names {
		if t.Attributes[name].Required && !o.Has(name) {
			return nil, &AttributeError{Kind: ErrMissingAttr, Attr: name}
		}
	}
	return types.NewRecord(attrs), nil
}

// decodeExtension accepts the `__extn` escape, a bare `{fn, arg}` object,
// or a plain JSON primitive when a constructor for the expected extension
// type is implied.
func (p *Parser) decodeExtension(v jsonval.Value, t schema.TypeExtension) (types.Value, error) {
	switch jv := v.(type) {
	case *jsonval.Object:
		payload := jsonval.Value(jv)
		if len(jv.Keys) == 1 && len(jv.Dups) == 0 && jv.Keys[0] == valuejson.ExtnEscape {
			payload = jv.Fields[valuejson.ExtnEscape]
		}
		val, err := valuejson.Extn(payload)
		if err != nil {
			return nil, err
		}
		if it := schema.InferType(val); !schema.EqualTypes(it, t) {
			return nil, &TypeMismatchError{Expected: t, Got: val}
		}
		return val, nil
	case jsonval.String:
		return implied(t.Name, extensions.ArgString, types.String(jv))
	case jsonval.Number:
		i, ok := jv.Int()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotLong, string(jv))
		}
		return implied(t.Name, extensions.ArgLong, types.Long(i))
	case jsonval.Bool:
		return implied(t.Name, extensions.ArgBool, types.Boolean(jv))
	}
	return nil, fmt.Errorf("%w, but got `%s`", ErrExtnEscape, jsonval.Describe(v))
}

func implied(returns types.Path, kind extensions.ArgKind, arg types.Value) (types.Value, error) {
	f, ok := extensions.ImpliedConstructor(returns, kind)
	if !ok {
		return nil, &MissingImpliedConstructorError{Return: returns, Arg: kind}
	}
	return f.Construct(arg)
}
