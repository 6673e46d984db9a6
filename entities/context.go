package entities

import (
	"fmt"

	"github.com/cedar-policy/cedar-schema-go/internal/jsonval"
	"github.com/cedar-policy/cedar-schema-go/schema"
	"github.com/cedar-policy/cedar-schema-go/types"
)

// ParseContext decodes a request context against the context type the
// schema declares for the given action. Without a schema any record is
// accepted.
func (p *Parser) ParseContext(action types.EntityUID, data []byte) (types.Record, error) {
	var expected schema.Type
	if p.schema != nil {
		rt, ok := p.schema.ContextType(action)
		if !ok {
			return types.Record{}, fmt.Errorf("%w: %v", ErrUndeclaredAction, action)
		}
		expected = rt
	}
	v, err := jsonval.Parse(data)
	if err != nil {
		return types.Record{}, inContext(action, fmt.Errorf("%w: %v", ErrJSON, err))
	}
	val, err := p.decodeValue(v, expected)
	if err != nil {
		return types.Record{}, inContext(action, err)
	}
	rec, ok := val.(types.Record)
	if !ok {
		return types.Record{}, inContext(action, &TypeMismatchError{Expected: schema.TypeRecord{}, Got: val})
	}
	return rec, nil
}
