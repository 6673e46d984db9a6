package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrJSON                   = errors.New("error parsing schema JSON")
	ErrDuplicateCommonType    = errors.New("duplicate common type declaration")
	ErrDuplicateEntityType    = errors.New("duplicate entity type declaration")
	ErrDuplicateAction        = errors.New("duplicate action declaration")
	ErrCycleInCommonTypes     = errors.New("cycle detected in common type definitions")
	ErrCycleInActionHierarchy = errors.New("cycle detected in action hierarchy")
	ErrUndeclaredCommonTypes  = errors.New("undeclared common types")
	ErrUndeclaredEntityTypes  = errors.New("undeclared entity types")
	ErrUndeclaredActions      = errors.New("undeclared actions")
	ErrNotRecord              = errors.New("type must be a record")
	ErrActionAttributes       = errors.New("action declared with attributes")
	ErrActionAttributeSets    = errors.New("action attribute values may not contain empty or heterogeneous sets")
)

// DuplicateDeclarationError reports a common type, entity type, or action
// declared more than once across the fragments being merged. Kind is one of
// the ErrDuplicate sentinels.
type DuplicateDeclarationError struct {
	Kind error
	Name string
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("%v: %q", e.Kind, e.Name)
}

func (e *DuplicateDeclarationError) Unwrap() error { return e.Kind }

// UndeclaredError reports every entity type, action, or common type that is
// referenced somewhere in the schema but never declared. Kind is one of the
// ErrUndeclared sentinels.
type UndeclaredError struct {
	Kind  error
	Names []string // sorted
}

func (e *UndeclaredError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, strings.Join(e.Names, ", "))
}

func (e *UndeclaredError) Unwrap() error { return e.Kind }

// NotRecordError reports an entity type shape or action context that
// resolved to something other than a record.
type NotRecordError struct {
	// What identifies the offending declaration, e.g. `shape of entity type
	// "User"` or `context of action "Action::\"view\""`.
	What string
}

func (e *NotRecordError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNotRecord, e.What)
}

func (e *NotRecordError) Unwrap() error { return ErrNotRecord }
