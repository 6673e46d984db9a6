// Package schema builds validator schemas from JSON schema fragments.
//
// A schema is constructed by merging one or more fragments, resolving
// common-type references, computing the transitive closure of the entity
// and action hierarchies, and checking that every referenced entity type
// and action was actually declared. The resulting Schema is immutable and
// safe for concurrent use.
package schema

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cedar-policy/cedar-schema-go/types"
)

// ActionBehavior controls whether action declarations may carry literal
// attributes. Attributes on actions are an unstable feature and are rejected
// unless explicitly permitted.
type ActionBehavior int

const (
	ProhibitActionAttributes ActionBehavior = iota
	PermitActionAttributes
)

type config struct {
	behavior ActionBehavior
}

// Option configures schema construction.
type Option func(*config)

// WithActionAttributes permits literal attributes on action declarations.
func WithActionAttributes() Option {
	return func(c *config) { c.behavior = PermitActionAttributes }
}

// Schema is a fully constructed validator schema. All lookups read
// precomputed tables; no method mutates the receiver.
type Schema struct {
	entityTypes map[types.Path]*EntityTypeInfo
	actions     map[types.EntityUID]*ActionInfo

	descriptions   map[types.EntityType]*EntityTypeDescription
	actionEntities types.EntityMap

	entityTypeNames []types.Path      // sorted
	actionUIDs      []types.EntityUID // sorted
}

// FromJSON constructs a schema from a single JSON fragment.
func FromJSON(data []byte, opts ...Option) (*Schema, error) {
	frag, err := ParseFragment(data)
	if err != nil {
		return nil, err
	}
	return FromFragments([]*Fragment{frag}, opts...)
}

// FromFragments merges fragments into one schema. Fragments are independent
// and may be combined in any order; a declaration appearing in more than one
// fragment is an error.
func FromFragments(fragments []*Fragment, opts ...Option) (*Schema, error) {
	cfg := config{behavior: ProhibitActionAttributes}
	for _, opt := range opts {
		opt(&cfg)
	}

	typeDefs := make(map[types.Path]Type)
	entityDecls := make(map[types.Path]*entityTypeDecl)
	actionDecls := make(map[types.EntityUID]*actionDecl)
	for _, frag := range fragments {
		namespaces := maps.Keys(frag.Namespaces)
		slices.Sort(namespaces)
		for _, ns := range namespaces {
			nd, err := convertNamespace(ns, frag.Namespaces[ns], cfg.behavior)
			if err != nil {
				return nil, err
			}
			if err := merge(typeDefs, nd.typeDefs, ErrDuplicateCommonType); err != nil {
				return nil, err
			}
			if err := merge(entityDecls, nd.entityTypes, ErrDuplicateEntityType); err != nil {
				return nil, err
			}
			if err := merge(actionDecls, nd.actions, ErrDuplicateAction); err != nil {
				return nil, err
			}
		}
	}

	if err := resolveCommonTypes(typeDefs); err != nil {
		return nil, err
	}

	shapes, contexts, err := resolveShapes(typeDefs, entityDecls, actionDecls)
	if err != nil {
		return nil, err
	}

	entityDesc, danglingEntities := hierarchy(entityDecls, func(d *entityTypeDecl) []types.Path {
		return d.parents
	})
	actionDesc, danglingActions := hierarchy(actionDecls, func(d *actionDecl) []types.EntityUID {
		return d.parents
	})
	closeDescendants(entityDesc)
	closeDescendants(actionDesc)
	if findCycle(actionDesc) {
		return nil, ErrCycleInActionHierarchy
	}

	s := &Schema{
		entityTypes: make(map[types.Path]*EntityTypeInfo, len(entityDecls)),
		actions:     make(map[types.EntityUID]*ActionInfo, len(actionDecls)),
	}
	for name := range entityDecls {
		s.entityTypes[name] = &EntityTypeInfo{
			Name:        name,
			Attributes:  shapes[name].Attributes,
			Open:        shapes[name].Open,
			Descendants: entityDesc[name],
		}
	}
	for uid, decl := range actionDecls {
		s.actions[uid] = &ActionInfo{
			Name: uid,
			AppliesTo: ApplySpec{
				PrincipalTypes: decl.appliesTo.principalTypes,
				ResourceTypes:  decl.appliesTo.resourceTypes,
			},
			Context:        contexts[uid],
			Descendants:    actionDesc[uid],
			Attributes:     decl.attributes,
			AttributeTypes: decl.attributeTypes,
		}
	}

	if err := s.checkUndeclared(danglingEntities, danglingActions); err != nil {
		return nil, err
	}

	s.entityTypeNames = maps.Keys(s.entityTypes)
	slices.Sort(s.entityTypeNames)
	s.actionUIDs = maps.Keys(s.actions)
	slices.SortFunc(s.actionUIDs, compareUIDs)
	s.buildDescriptions()
	s.buildActionEntities()
	return s, nil
}

func merge[K comparable, V any](dst, src map[K]V, kind error) error {
	keys := maps.Keys(src)
	slices.SortFunc(keys, func(x, y K) int {
		return strings.Compare(fmt.Sprint(x), fmt.Sprint(y))
	})
	for _, k := range keys {
		if _, ok := dst[k]; ok {
			return &DuplicateDeclarationError{Kind: kind, Name: fmt.Sprint(k)}
		}
		dst[k] = src[k]
	}
	return nil
}

// resolveCommonTypes rewrites every common-type definition into a closed
// form, processing definitions in dependency order. Definitions that depend
// on each other in a cycle cannot be closed and are an error, as are
// references to definitions that do not exist.
func resolveCommonTypes(typeDefs map[types.Path]Type) error {
	deps := make(map[types.Path][]types.Path)
	var undeclared []string
	for name, body := range typeDefs {
		for _, ref := range commonRefsIn(body) {
			if _, ok := typeDefs[ref]; !ok {
				undeclared = append(undeclared, string(ref))
				continue
			}
			deps[name] = append(deps[name], ref)
		}
	}
	if len(undeclared) > 0 {
		return &UndeclaredError{Kind: ErrUndeclaredCommonTypes, Names: sortUnique(undeclared)}
	}

	indegree := make(map[types.Path]int, len(typeDefs))
	dependents := make(map[types.Path][]types.Path)
	for name := range typeDefs {
		indegree[name] = 0
	}
	for name, ds := range deps {
		indegree[name] = len(ds)
		for _, d := range ds {
			dependents[d] = append(dependents[d], name)
		}
	}
	var ready []types.Path
	for name, n := range indegree {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	slices.Sort(ready)
	resolved := 0
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		resolved++
		body, _ := resolveTypeDefs(typeDefs[name], typeDefs)
		typeDefs[name] = body
		for _, dep := range dependents[name] {
			if indegree[dep]--; indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	if resolved != len(typeDefs) {
		var stuck []string
		for name, n := range indegree {
			if n > 0 {
				stuck = append(stuck, string(name))
			}
		}
		return fmt.Errorf("%w: %s", ErrCycleInCommonTypes, strings.Join(sortUnique(stuck), ", "))
	}
	return nil
}

// resolveShapes substitutes common types into every entity shape and action
// context and checks that each resolves to a record.
func resolveShapes(typeDefs map[types.Path]Type, entityDecls map[types.Path]*entityTypeDecl, actionDecls map[types.EntityUID]*actionDecl) (map[types.Path]TypeRecord, map[types.EntityUID]TypeRecord, error) {
	var undeclared []string

	shapes := make(map[types.Path]TypeRecord, len(entityDecls))
	entityNames := maps.Keys(entityDecls)
	slices.Sort(entityNames)
	for _, name := range entityNames {
		shape, missing := resolveTypeDefs(entityDecls[name].shape, typeDefs)
		for _, m := range missing {
			undeclared = append(undeclared, string(m))
		}
		rec, ok := shape.(TypeRecord)
		if !ok && len(missing) == 0 {
			return nil, nil, &NotRecordError{What: fmt.Sprintf("shape of entity type %q", name)}
		}
		shapes[name] = rec
	}

	contexts := make(map[types.EntityUID]TypeRecord, len(actionDecls))
	actionUIDs := maps.Keys(actionDecls)
	slices.SortFunc(actionUIDs, compareUIDs)
	for _, uid := range actionUIDs {
		context, missing := resolveTypeDefs(actionDecls[uid].context, typeDefs)
		for _, m := range missing {
			undeclared = append(undeclared, string(m))
		}
		rec, ok := context.(TypeRecord)
		if !ok && len(missing) == 0 {
			return nil, nil, &NotRecordError{What: fmt.Sprintf("context of action %v", uid)}
		}
		contexts[uid] = rec
	}

	if len(undeclared) > 0 {
		return nil, nil, &UndeclaredError{Kind: ErrUndeclaredCommonTypes, Names: sortUnique(undeclared)}
	}
	return shapes, contexts, nil
}

// hierarchy inverts memberOf edges into per-declaration descendant sets.
// Parents that were never declared come back separately; edges into them are
// dropped from the closure input.
func hierarchy[K comparable, D any](decls map[K]D, parents func(D) []K) (map[K]map[K]struct{}, []K) {
	edges := make(map[K][]K, len(decls))
	for name, decl := range decls {
		edges[name] = parents(decl)
	}
	children := invertParents(edges)
	descendants := make(map[K]map[K]struct{}, len(decls))
	for name := range decls {
		d := children[name]
		delete(children, name)
		if d == nil {
			d = make(map[K]struct{})
		}
		descendants[name] = d
	}
	dangling := maps.Keys(children)
	return descendants, dangling
}

// checkUndeclared walks every type reference in the schema and accumulates
// the entity types and actions that were referenced but never declared, so
// one error reports them all. Undeclared entity types take precedence over
// undeclared actions.
func (s *Schema) checkUndeclared(danglingEntities []types.Path, danglingActions []types.EntityUID) error {
	entities := make(map[string]struct{})
	for _, name := range danglingEntities {
		entities[string(name)] = struct{}{}
	}
	for _, info := range s.entityTypes {
		for _, at := range info.Attributes {
			s.collectUndeclaredEntities(at.Type, entities)
		}
	}
	for _, a := range s.actions {
		for _, at := range a.Context.Attributes {
			s.collectUndeclaredEntities(at.Type, entities)
		}
		for _, et := range a.AppliesTo.PrincipalTypes {
			s.noteUndeclaredEntity(et, entities)
		}
		for _, et := range a.AppliesTo.ResourceTypes {
			s.noteUndeclaredEntity(et, entities)
		}
	}
	if len(entities) > 0 {
		return &UndeclaredError{Kind: ErrUndeclaredEntityTypes, Names: sortUnique(maps.Keys(entities))}
	}

	if len(danglingActions) > 0 {
		names := make([]string, len(danglingActions))
		for i, uid := range danglingActions {
			names[i] = uid.String()
		}
		return &UndeclaredError{Kind: ErrUndeclaredActions, Names: sortUnique(names)}
	}
	return nil
}

func (s *Schema) collectUndeclaredEntities(t Type, out map[string]struct{}) {
	switch tv := t.(type) {
	case TypeEntity:
		for _, name := range tv.LUB {
			if _, ok := s.entityTypes[name]; !ok {
				out[string(name)] = struct{}{}
			}
		}
	case TypeSet:
		if tv.Element != nil {
			s.collectUndeclaredEntities(tv.Element, out)
		}
	case TypeRecord:
		for _, at := range tv.Attributes {
			s.collectUndeclaredEntities(at.Type, out)
		}
	}
}

func (s *Schema) noteUndeclaredEntity(et types.EntityType, out map[string]struct{}) {
	if et.IsUnspecified() {
		return
	}
	if _, ok := s.entityTypes[et.Name]; !ok {
		out[string(et.Name)] = struct{}{}
	}
}

func (s *Schema) buildDescriptions() {
	s.descriptions = make(map[types.EntityType]*EntityTypeDescription, len(s.entityTypes))
	for name, info := range s.entityTypes {
		allowed := make(map[types.EntityType]struct{})
		for parent, pinfo := range s.entityTypes {
			if pinfo.HasDescendant(name) {
				allowed[types.EntityType{Name: parent}] = struct{}{}
			}
		}
		et := types.EntityType{Name: name}
		s.descriptions[et] = &EntityTypeDescription{
			Type:               et,
			Attributes:         info.Attributes,
			Open:               info.Open,
			AllowedParentTypes: allowed,
		}
	}
}

// buildActionEntities materializes each declared action as an entity whose
// ancestor set is the inversion of the descendant relation and whose
// attributes are the action's literal attributes.
func (s *Schema) buildActionEntities() {
	ancestors := make(map[types.EntityUID][]types.EntityUID)
	for uid, info := range s.actions {
		for d := range info.Descendants {
			ancestors[d] = append(ancestors[d], uid)
		}
	}
	s.actionEntities = make(types.EntityMap, len(s.actions))
	for uid, info := range s.actions {
		attrs := make(map[types.String]types.Value, len(info.Attributes))
		for k, v := range info.Attributes {
			attrs[k] = v
		}
		s.actionEntities[uid] = types.NewEntity(uid, ancestors[uid], types.NewRecord(attrs))
	}
}

// EntityType looks up a declared entity type by fully-qualified name.
func (s *Schema) EntityType(name types.Path) (*EntityTypeInfo, bool) {
	info, ok := s.entityTypes[name]
	return info, ok
}

// Action looks up a declared action by entity UID.
func (s *Schema) Action(uid types.EntityUID) (*ActionInfo, bool) {
	info, ok := s.actions[uid]
	return info, ok
}

// IsDeclaredEntityType reports whether the named entity type was declared.
func (s *Schema) IsDeclaredEntityType(name types.Path) bool {
	_, ok := s.entityTypes[name]
	return ok
}

// IsDeclaredAction reports whether the action was declared.
func (s *Schema) IsDeclaredAction(uid types.EntityUID) bool {
	_, ok := s.actions[uid]
	return ok
}

// EntityTypeNames returns the declared entity type names in sorted order.
func (s *Schema) EntityTypeNames() []types.Path {
	return slices.Clone(s.entityTypeNames)
}

// ActionUIDs returns the declared action UIDs in sorted order.
func (s *Schema) ActionUIDs() []types.EntityUID {
	return slices.Clone(s.actionUIDs)
}

// ContextType returns the context record type of the given action. The
// second result is false when the action was never declared.
func (s *Schema) ContextType(uid types.EntityUID) (TypeRecord, bool) {
	info, ok := s.actions[uid]
	if !ok {
		return TypeRecord{}, false
	}
	return info.Context, true
}

// Description returns the validation-time description of an entity type.
// The unspecified entity type has no description.
func (s *Schema) Description(et types.EntityType) (*EntityTypeDescription, bool) {
	d, ok := s.descriptions[et]
	return d, ok
}

// ActionEntity returns the materialized entity for a declared action.
func (s *Schema) ActionEntity(uid types.EntityUID) (*types.Entity, bool) {
	e, ok := s.actionEntities[uid]
	return e, ok
}

// ActionEntities returns every declared action in entity form. The returned
// map is shared and must not be modified.
func (s *Schema) ActionEntities() types.EntityMap {
	return s.actionEntities
}

// EntityTypesWithBasename returns, in sorted order, the declared entity
// types whose final path component is base. Used to suggest candidates when
// an unqualified or misqualified entity type shows up in entity data.
func (s *Schema) EntityTypesWithBasename(base types.Ident) []types.EntityType {
	var out []types.EntityType
	for _, name := range s.entityTypeNames {
		if name.Basename() == base {
			out = append(out, types.EntityType{Name: name})
		}
	}
	return out
}

func sortUnique(names []string) []string {
	slices.Sort(names)
	return slices.Compact(names)
}
