package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cedar-policy/cedar-schema-go/extensions"
	"github.com/cedar-policy/cedar-schema-go/internal/valuejson"
	"github.com/cedar-policy/cedar-schema-go/schema"
	"github.com/cedar-policy/cedar-schema-go/types"
)

// Sentinels shared with schema-less value decoding.
var (
	ErrNullValue           = valuejson.ErrNullValue
	ErrNotLong             = valuejson.ErrNotLong
	ErrDuplicateKey        = valuejson.ErrDuplicateKey
	ErrExprEscape          = valuejson.ErrExprEscape
	ErrEntityEscape        = valuejson.ErrEntityEscape
	ErrExtnEscape          = valuejson.ErrExtnEscape
	ErrExtensionLookup     = valuejson.ErrExtensionLookup
	ErrReservedKey         = valuejson.ErrReservedKey
	ErrExtnCall0Arguments  = valuejson.ErrExtnCall0Arguments
	ErrExtnCall2OrMoreArgs = valuejson.ErrExtnCall2OrMoreArgs
)

var (
	ErrJSON                      = errors.New("error parsing entities JSON")
	ErrDuplicateEntity           = errors.New("duplicate entity entry")
	ErrUnknownEntityType         = errors.New("entity type is not declared in the schema")
	ErrUndeclaredAction          = errors.New("action is not declared in the schema")
	ErrActionParentIsNotAction   = errors.New("action parent is not an action")
	ErrDisallowedParentType      = errors.New("parent type is not allowed by the schema")
	ErrUnexpectedAttr            = errors.New("attribute is not declared for this type")
	ErrMissingAttr               = errors.New("missing required attribute")
	ErrTypeMismatch              = errors.New("type mismatch")
	ErrHeterogeneousSet          = errors.New("set elements have different types")
	ErrMissingImpliedConstructor = errors.New("missing implied extension constructor")
)

// DecodeError pins a decoding failure to the place in the entities document
// where it happened.
type DecodeError struct {
	In  string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("in %s, %v", e.In, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

func inUID(err error) error {
	return &DecodeError{In: "uid field of entity", Err: err}
}

func inAttr(uid types.EntityUID, attr string, err error) error {
	return &DecodeError{In: fmt.Sprintf("attribute %q on %v", attr, uid), Err: err}
}

func inParents(uid types.EntityUID, err error) error {
	return &DecodeError{In: fmt.Sprintf("parents field of %v", uid), Err: err}
}

func inContext(action types.EntityUID, err error) error {
	return &DecodeError{In: fmt.Sprintf("context for action %v", action), Err: err}
}

// TypeMismatchError reports a value that decoded cleanly but does not have
// the type the schema requires.
type TypeMismatchError struct {
	Expected schema.Type
	Got      types.Value
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%v: expected value of type %v, got %v", ErrTypeMismatch, e.Expected, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// HeterogeneousSetError reports a set literal whose elements do not share a
// type, when the schema places no element type on the set.
type HeterogeneousSetError struct {
	First  schema.Type
	Second schema.Type
}

func (e *HeterogeneousSetError) Error() string {
	return fmt.Sprintf("%v: %v and %v", ErrHeterogeneousSet, e.First, e.Second)
}

func (e *HeterogeneousSetError) Unwrap() error { return ErrHeterogeneousSet }

// MissingImpliedConstructorError reports a bare JSON value in a position
// where the schema expects an extension type, but no single-argument
// constructor produces that type from the value's kind.
type MissingImpliedConstructorError struct {
	Return types.Path
	Arg    extensions.ArgKind
}

func (e *MissingImpliedConstructorError) Error() string {
	return fmt.Sprintf("%v: no constructor returns %s from a %v argument", ErrMissingImpliedConstructor, e.Return, e.Arg)
}

func (e *MissingImpliedConstructorError) Unwrap() error { return ErrMissingImpliedConstructor }

// UnknownEntityTypeError reports an entity whose type the schema does not
// declare, suggesting declared types that share its basename.
type UnknownEntityTypeError struct {
	Type        types.Path
	Suggestions []types.EntityType
}

func (e *UnknownEntityTypeError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("%v: %q", ErrUnknownEntityType, e.Type)
	}
	names := make([]string, len(e.Suggestions))
	for i, s := range e.Suggestions {
		names[i] = string(s.Name)
	}
	return fmt.Sprintf("%v: %q, did you mean %s?", ErrUnknownEntityType, e.Type, strings.Join(names, " or "))
}

func (e *UnknownEntityTypeError) Unwrap() error { return ErrUnknownEntityType }

// DisallowedParentError reports an entity parent whose type the schema's
// hierarchy does not allow for the child's type.
type DisallowedParentError struct {
	Entity types.EntityUID
	Parent types.EntityUID
}

func (e *DisallowedParentError) Error() string {
	return fmt.Sprintf("%v: %v is not an allowed parent type for %v", ErrDisallowedParentType, e.Parent.Type, e.Entity.Type)
}

func (e *DisallowedParentError) Unwrap() error { return ErrDisallowedParentType }

// ActionParentError reports an action entity listing a parent that is not a
// declared action.
type ActionParentError struct {
	Action types.EntityUID
	Parent types.EntityUID
}

func (e *ActionParentError) Error() string {
	return fmt.Sprintf("%v: %v lists parent %v", ErrActionParentIsNotAction, e.Action, e.Parent)
}

func (e *ActionParentError) Unwrap() error { return ErrActionParentIsNotAction }

// AttributeError reports an unexpected or missing record attribute. Kind is
// ErrUnexpectedAttr or ErrMissingAttr.
type AttributeError struct {
	Kind error
	Attr string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%v: %q", e.Kind, e.Attr)
}

func (e *AttributeError) Unwrap() error { return e.Kind }
