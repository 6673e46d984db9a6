// Package valuejson converts between parsed JSON and the value algebra
// without consulting a schema: primitives map directly, arrays become sets,
// objects become records unless they use one of the escape forms `__entity`
// (a literal entity reference) or `__extn` (an extension-function call).
// The legacy `__expr` escape is rejected everywhere.
package valuejson

import (
	"errors"
	"fmt"

	"github.com/cedar-policy/cedar-schema-go/extensions"
	"github.com/cedar-policy/cedar-schema-go/internal/jsonval"
	"github.com/cedar-policy/cedar-schema-go/types"
)

const (
	EntityEscape = "__entity"
	ExtnEscape   = "__extn"
	ExprEscape   = "__expr"
)

var (
	ErrNullValue       = errors.New("null is not a valid attribute value")
	ErrNotLong         = errors.New("JSON number is not representable as a Long")
	ErrDuplicateKey    = errors.New("duplicate key in record literal")
	ErrExprEscape      = errors.New("invalid escape. The `__expr` escape is no longer supported")
	ErrEntityEscape    = errors.New("expected a literal entity reference")
	ErrExtnEscape      = errors.New("expected an extension value")
	ErrExtensionLookup = errors.New("error looking up extension function")
)

// Decode converts a parsed JSON value into a typed value with no schema
// guidance.
func Decode(v jsonval.Value) (types.Value, error) {
	switch jv := v.(type) {
	case jsonval.Null:
		return nil, ErrNullValue
	case jsonval.Bool:
		return types.Boolean(jv), nil
	case jsonval.Number:
		i, ok := jv.Int()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotLong, string(jv))
		}
		return types.Long(i), nil
	case jsonval.String:
		return types.String(jv), nil
	case jsonval.Array:
		elems := make([]types.Value, len(jv))
		for i, e := range jv {
			var err error
			if elems[i], err = Decode(e); err != nil {
				return nil, err
			}
		}
		return types.NewSet(elems), nil
	case *jsonval.Object:
		return decodeObject(jv)
	}
	return nil, fmt.Errorf("unsupported JSON value")
}

// DecodeBytes parses data and decodes it with no schema guidance.
func DecodeBytes(data []byte) (types.Value, error) {
	j, err := jsonval.Parse(data)
	if err != nil {
		return nil, err
	}
	return Decode(j)
}

func decodeObject(o *jsonval.Object) (types.Value, error) {
	if o.Has(ExprEscape) {
		return nil, ErrExprEscape
	}
	if inner, ok := escape(o, EntityEscape); ok {
		return EntityRef(inner)
	}
	if inner, ok := escape(o, ExtnEscape); ok {
		return Extn(inner)
	}
	for _, dup := range o.Dups {
		return nil, fmt.Errorf("%w: `%s`", ErrDuplicateKey, dup)
	}
	attrs := make(map[types.String]types.Value, len(o.Keys))
	for _, k := range o.Keys {
		v, err := Decode(o.Fields[k])
		if err != nil {
			return nil, err
		}
		attrs[types.String(k)] = v
	}
	return types.NewRecord(attrs), nil
}

// escape returns the inner value when o is exactly the single-key escape
// object for key.
func escape(o *jsonval.Object, key string) (jsonval.Value, bool) {
	if len(o.Keys) == 1 && len(o.Dups) == 0 && o.Keys[0] == key {
		return o.Fields[key], true
	}
	return nil, false
}

// EntityRef decodes the payload of an `__entity` escape, or a bare
// `{type, id}` object, into an entity reference.
func EntityRef(v jsonval.Value) (types.EntityUID, error) {
	o, ok := v.(*jsonval.Object)
	if !ok {
		return types.EntityUID{}, fmt.Errorf("%w, but got `%s`", ErrEntityEscape, jsonval.Describe(v))
	}
	if inner, ok := escape(o, EntityEscape); ok {
		return EntityRef(inner)
	}
	if len(o.Keys) != 2 || !o.Has("type") || !o.Has("id") || len(o.Dups) != 0 {
		return types.EntityUID{}, fmt.Errorf("%w, but got `%s`", ErrEntityEscape, jsonval.Describe(v))
	}
	typStr, tok := o.Fields["type"].(jsonval.String)
	idStr, iok := o.Fields["id"].(jsonval.String)
	if !tok || !iok {
		return types.EntityUID{}, fmt.Errorf("%w, but got `%s`", ErrEntityEscape, jsonval.Describe(v))
	}
	path, err := types.ParsePath(string(typStr))
	if err != nil {
		return types.EntityUID{}, fmt.Errorf("failed to parse escape `%s`: %w", EntityEscape, err)
	}
	return types.NewEntityUID(path, types.String(idStr)), nil
}

// Extn decodes the payload of an `__extn` escape: an object with exactly the
// keys `fn` and `arg`, naming a single-argument extension function.
func Extn(v jsonval.Value) (types.Value, error) {
	o, ok := v.(*jsonval.Object)
	if !ok {
		return nil, fmt.Errorf("%w, but got `%s`", ErrExtnEscape, jsonval.Describe(v))
	}
	if len(o.Keys) != 2 || !o.Has("fn") || !o.Has("arg") || len(o.Dups) != 0 {
		return nil, fmt.Errorf("%w, but got `%s`", ErrExtnEscape, jsonval.Describe(v))
	}
	fnStr, ok := o.Fields["fn"].(jsonval.String)
	if !ok {
		return nil, fmt.Errorf("%w, but got `%s`", ErrExtnEscape, jsonval.Describe(v))
	}
	fn, err := types.ParsePath(string(fnStr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse escape `%s`: %w", ExtnEscape, err)
	}
	f, ok := extensions.Lookup(fn, 1)
	if !ok {
		return nil, fmt.Errorf("%w: `%s` with 1 argument not found", ErrExtensionLookup, fn)
	}
	arg, err := Decode(o.Fields["arg"])
	if err != nil {
		return nil, err
	}
	return f.Construct(arg)
}
