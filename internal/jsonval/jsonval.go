// Package jsonval provides a token-level JSON parser that preserves the
// information an encoding/json map unmarshal throws away: key order and
// duplicate keys within one object literal. The decoder layers build on it
// so that duplicate keys can be rejected rather than silently last-one-wins.
package jsonval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Value is a parsed JSON value: Null, Bool, Number, String, Array or
// *Object.
type Value interface {
	isJSONValue()
}

type Null struct{}

type Bool bool

type Number json.Number

type String string

type Array []Value

// Object preserves key order and records keys that appeared more than once.
type Object struct {
	Keys   []string
	Fields map[string]Value
	Dups   []string
}

func (Null) isJSONValue()    {}
func (Bool) isJSONValue()    {}
func (Number) isJSONValue()  {}
func (String) isJSONValue()  {}
func (Array) isJSONValue()   {}
func (*Object) isJSONValue() {}

// Get returns the value of the named field, if present. For duplicated keys
// it returns the last occurrence, matching encoding/json behavior.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.Fields[key]
	return v, ok
}

// Has reports whether the named field is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Fields[key]
	return ok
}

// Int returns the number as an int64 if it is representable as one.
func (n Number) Int() (int64, bool) {
	i, err := json.Number(n).Int64()
	return i, err == nil
}

// Parse reads a single JSON value from data, rejecting trailing input.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return parseFromToken(dec, tok)
}

func parseFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			arr := Array{}
			for dec.More() {
				elem, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, elem)
			}
			if _, err := dec.Token(); err != nil { // closing ]
				return nil, err
			}
			return arr, nil
		case '{':
			obj := &Object{Fields: make(map[string]Value)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				if _, seen := obj.Fields[key]; seen {
					obj.Dups = append(obj.Dups, key)
				} else {
					obj.Keys = append(obj.Keys, key)
				}
				obj.Fields[key] = val
			}
			if _, err := dec.Token(); err != nil { // closing }
				return nil, err
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

// Describe renders a parsed value compactly for error messages, with object
// keys in their original order.
func Describe(v Value) string {
	switch t := v.(type) {
	case Null:
		return "null"
	case Bool:
		if t {
			return "true"
		}
		return "false"
	case Number:
		return string(t)
	case String:
		b, _ := json.Marshal(string(t))
		return string(b)
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(Describe(e))
		}
		buf.WriteByte(']')
		return buf.String()
	case *Object:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range t.Keys {
			if i > 0 {
				buf.WriteString(",")
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			buf.WriteString(Describe(t.Fields[k]))
		}
		buf.WriteByte('}')
		return buf.String()
	}
	return "<unknown>"
}
