package valuejson

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cedar-policy/cedar-schema-go/types"
)

var (
	ErrReservedKey         = errors.New("record uses reserved key")
	ErrExtnCall0Arguments  = errors.New("extension function calls with 0 arguments are not supported in the JSON format")
	ErrExtnCall2OrMoreArgs = errors.New("extension function calls with 2 or more arguments are not supported in the JSON format")
	ErrUnsupportedValue    = errors.New("value cannot be serialized to JSON")
)

// Encode converts a typed value back to its JSON representation, using the
// `__entity` and `__extn` escape forms for entity references and extension
// values.
func Encode(v types.Value) ([]byte, error) {
	tree, err := encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

func encode(v types.Value) (any, error) {
	switch val := v.(type) {
	case types.Boolean:
		return bool(val), nil
	case types.Long:
		return int64(val), nil
	case types.String:
		return string(val), nil
	case types.EntityUID:
		return map[string]any{EntityEscape: map[string]any{
			"type": string(val.Type.Name),
			"id":   string(val.ID),
		}}, nil
	case types.ExtensionValue:
		return encodeExtn(val.ExtnFn(), val.ExtnArgs())
	case types.Set:
		// Sorted by representation so the output is deterministic.
		elems := val.SortedSlice(func(a, b types.Value) bool { return a.String() < b.String() })
		out := make([]any, len(elems))
		for i, e := range elems {
			var err error
			if out[i], err = encode(e); err != nil {
				return nil, err
			}
		}
		return out, nil
	case types.Record:
		out := make(map[string]any, val.Len())
		var err error
		val.Iterate(func(k types.String, av types.Value) bool {
			if k == EntityEscape || k == ExtnEscape || k == ExprEscape {
				err = fmt.Errorf("%w `%s`", ErrReservedKey, k)
				return false
			}
			var ev any
			if ev, err = encode(av); err != nil {
				return false
			}
			out[string(k)] = ev
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, v)
}

func encodeExtn(fn types.Path, args []types.Value) (any, error) {
	switch {
	case len(args) == 0:
		return nil, fmt.Errorf("unsupported call to `%s`: %w", fn, ErrExtnCall0Arguments)
	case len(args) >= 2:
		return nil, fmt.Errorf("unsupported call to `%s`: %w", fn, ErrExtnCall2OrMoreArgs)
	}
	arg, err := encode(args[0])
	if err != nil {
		return nil, err
	}
	return map[string]any{ExtnEscape: map[string]any{
		"fn":  string(fn),
		"arg": arg,
	}}, nil
}
