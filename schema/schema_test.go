package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cedar-policy/cedar-schema-go/schema"
	"github.com/cedar-policy/cedar-schema-go/types"
)

const photoAppJSON = `{
	"PhotoApp": {
		"commonTypes": {
			"Meta": {
				"type": "Record",
				"attributes": {
					"owner": {"type": "Entity", "name": "User"},
					"tags": {"type": "Set", "element": {"type": "String"}, "required": false}
				}
			}
		},
		"entityTypes": {
			"User": {
				"memberOfTypes": ["Group"],
				"shape": {
					"type": "Record",
					"attributes": {
						"name": {"type": "String"},
						"age": {"type": "Long", "required": false},
						"addr": {"type": "Extension", "name": "ipaddr", "required": false}
					}
				}
			},
			"Group": {},
			"Album": {},
			"Photo": {
				"memberOfTypes": ["Album"],
				"shape": {"type": "Meta"}
			}
		},
		"actions": {
			"readOnly": {},
			"view": {
				"memberOf": [{"id": "readOnly"}],
				"appliesTo": {
					"principalTypes": ["User"],
					"resourceTypes": ["Photo"],
					"context": {
						"type": "Record",
						"attributes": {"authenticated": {"type": "Boolean"}}
					}
				}
			}
		}
	}
}`

func mustSchema(t *testing.T, src string, opts ...schema.Option) *schema.Schema {
	t.Helper()
	s, err := schema.FromJSON([]byte(src), opts...)
	require.NoError(t, err)
	return s
}

func TestFromJSONPhotoApp(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, photoAppJSON)

	require.Equal(t, []types.Path{
		"PhotoApp::Album", "PhotoApp::Group", "PhotoApp::Photo", "PhotoApp::User",
	}, s.EntityTypeNames())

	user, ok := s.EntityType("PhotoApp::User")
	require.True(t, ok)
	require.Equal(t, schema.AttributeType{Type: schema.TypeString{}, Required: true}, user.Attributes["name"])
	require.Equal(t, schema.AttributeType{Type: schema.TypeLong{}, Required: false}, user.Attributes["age"])
	require.Equal(t, schema.AttributeType{Type: schema.TypeExtension{Name: "ipaddr"}, Required: false}, user.Attributes["addr"])
	require.Equal(t, []string{"name"}, user.RequiredAttributes())

	// Common type substitution with namespace qualification.
	photo, ok := s.EntityType("PhotoApp::Photo")
	require.True(t, ok)
	require.Equal(t, schema.EntityOf("PhotoApp::User"), photo.Attributes["owner"].Type)
	require.Equal(t, schema.TypeSet{Element: schema.TypeString{}}, photo.Attributes["tags"].Type)

	group, ok := s.EntityType("PhotoApp::Group")
	require.True(t, ok)
	require.True(t, group.HasDescendant("PhotoApp::User"))
	require.False(t, group.HasDescendant("PhotoApp::Photo"))

	view, ok := s.Action(types.NewEntityUID("PhotoApp::Action", "view"))
	require.True(t, ok)
	require.Equal(t, []types.EntityType{types.NewEntityType("PhotoApp::User")}, view.AppliesTo.PrincipalTypes)
	require.True(t, view.AppliesToPrincipal(types.NewEntityType("PhotoApp::User")))
	require.False(t, view.AppliesToPrincipal(types.NewEntityType("PhotoApp::Group")))

	readOnly, ok := s.Action(types.NewEntityUID("PhotoApp::Action", "readOnly"))
	require.True(t, ok)
	require.True(t, readOnly.HasDescendant(view.Name))

	ctx, ok := s.ContextType(view.Name)
	require.True(t, ok)
	require.Equal(t, schema.AttributeType{Type: schema.TypeBool{}, Required: true}, ctx.Attributes["authenticated"])

	_, ok = s.ContextType(types.NewEntityUID("PhotoApp::Action", "nope"))
	require.False(t, ok)
}

func TestActionWithoutAppliesTo(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, `{"NS": {"actions": {"ping": {}}}}`)
	a, ok := s.Action(types.NewEntityUID("NS::Action", "ping"))
	require.True(t, ok)
	require.Equal(t, []types.EntityType{{}}, a.AppliesTo.PrincipalTypes)
	require.True(t, a.AppliesToPrincipal(types.NewEntityType("Anything")))
	require.True(t, a.AppliesToResource(types.NewEntityType("Anything")))
	require.Empty(t, a.Context.Attributes)
}

func TestEmptyAppliesToLists(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, `{"NS": {"actions": {"ping": {"appliesTo": {"principalTypes": [], "resourceTypes": []}}}}}`)
	a, _ := s.Action(types.NewEntityUID("NS::Action", "ping"))
	require.False(t, a.AppliesToPrincipal(types.NewEntityType("Anything")))
	require.False(t, a.AppliesToResource(types.NewEntityType("Anything")))
}

func TestEmptyNamespace(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, `{"": {"entityTypes": {"User": {}}, "actions": {"view": {"appliesTo": {"principalTypes": ["User"]}}}}}`)
	require.True(t, s.IsDeclaredEntityType("User"))
	require.True(t, s.IsDeclaredAction(types.NewEntityUID("Action", "view")))
}

func TestDuplicateDeclarations(t *testing.T) {
	t.Parallel()
	frag := func(src string) *schema.Fragment {
		f, err := schema.ParseFragment([]byte(src))
		require.NoError(t, err)
		return f
	}
	tests := []struct {
		name string
		a, b string
		want error
	}{
		{
			name: "entity type",
			a:    `{"NS": {"entityTypes": {"User": {}}}}`,
			b:    `{"NS": {"entityTypes": {"User": {}}}}`,
			want: schema.ErrDuplicateEntityType,
		},
		{
			name: "action",
			a:    `{"NS": {"actions": {"view": {}}}}`,
			b:    `{"NS": {"actions": {"view": {}}}}`,
			want: schema.ErrDuplicateAction,
		},
		{
			name: "common type",
			a:    `{"NS": {"commonTypes": {"T": {"type": "Long"}}}}`,
			b:    `{"NS": {"commonTypes": {"T": {"type": "String"}}}}`,
			want: schema.ErrDuplicateCommonType,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := schema.FromFragments([]*schema.Fragment{frag(tt.a), frag(tt.b)})
			require.ErrorIs(t, err, tt.want)
			var dup *schema.DuplicateDeclarationError
			require.ErrorAs(t, err, &dup)
		})
	}
}

func TestSameBasenameAcrossNamespaces(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, `{
		"NS1": {"entityTypes": {"User": {}}, "actions": {"view": {}}},
		"NS2": {"entityTypes": {"User": {}}, "actions": {"view": {}}}
	}`)
	require.True(t, s.IsDeclaredEntityType("NS1::User"))
	require.True(t, s.IsDeclaredEntityType("NS2::User"))
	require.True(t, s.IsDeclaredAction(types.NewEntityUID("NS1::Action", "view")))
	require.True(t, s.IsDeclaredAction(types.NewEntityUID("NS2::Action", "view")))
	require.Equal(t, []types.EntityType{
		types.NewEntityType("NS1::User"),
		types.NewEntityType("NS2::User"),
	}, s.EntityTypesWithBasename("User"))
}

func TestEntityHierarchyTransitiveClosure(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, `{"NS": {"entityTypes": {
		"A": {"memberOfTypes": ["B"]},
		"B": {"memberOfTypes": ["C"]},
		"C": {}
	}}}`)
	c, _ := s.EntityType("NS::C")
	require.True(t, c.HasDescendant("NS::B"))
	require.True(t, c.HasDescendant("NS::A"))
	require.Equal(t, []types.Path{"NS::A", "NS::B"}, c.DescendantNames())
	a, _ := s.EntityType("NS::A")
	require.Empty(t, a.DescendantNames())
}

func TestEntityHierarchyCycleAllowed(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, `{"NS": {"entityTypes": {
		"A": {"memberOfTypes": ["B"]},
		"B": {"memberOfTypes": ["A"]}
	}}}`)
	a, _ := s.EntityType("NS::A")
	require.True(t, a.HasDescendant("NS::A"))
	require.True(t, a.HasDescendant("NS::B"))
}

func TestActionHierarchyCycleRejected(t *testing.T) {
	t.Parallel()
	_, err := schema.FromJSON([]byte(`{"NS": {"actions": {
		"a": {"memberOf": [{"id": "a"}]}
	}}}`))
	require.ErrorIs(t, err, schema.ErrCycleInActionHierarchy)

	// A longer cycle is still a cycle, even with an uninvolved action
	// hanging off it.
	_, err = schema.FromJSON([]byte(`{"NS": {"actions": {
		"a": {"memberOf": [{"id": "b"}]},
		"b": {"memberOf": [{"id": "c"}]},
		"c": {"memberOf": [{"id": "a"}]},
		"d": {"memberOf": [{"id": "a"}]}
	}}}`))
	require.ErrorIs(t, err, schema.ErrCycleInActionHierarchy)
}

func TestUndeclaredEntityTypesAccumulate(t *testing.T) {
	t.Parallel()
	_, err := schema.FromJSON([]byte(`{"NS": {
		"entityTypes": {
			"User": {
				"memberOfTypes": ["MissingParent"],
				"shape": {"type": "Record", "attributes": {
					"boss": {"type": "Entity", "name": "MissingRef"},
					"peers": {"type": "Set", "element": {"type": "Entity", "name": "MissingElem"}}
				}}
			}
		},
		"actions": {
			"view": {"appliesTo": {"principalTypes": ["MissingPrincipal"], "resourceTypes": ["User"]}}
		}
	}}`))
	require.ErrorIs(t, err, schema.ErrUndeclaredEntityTypes)
	var undeclared *schema.UndeclaredError
	require.ErrorAs(t, err, &undeclared)
	require.Equal(t, []string{
		"NS::MissingElem", "NS::MissingParent", "NS::MissingPrincipal", "NS::MissingRef",
	}, undeclared.Names)
}

func TestUndeclaredPrincipalInPhotoApp(t *testing.T) {
	t.Parallel()
	src := strings.Replace(photoAppJSON, `"principalTypes": ["User"]`, `"principalTypes": ["User", "Admin"]`, 1)
	_, err := schema.FromJSON([]byte(src))
	require.ErrorIs(t, err, schema.ErrUndeclaredEntityTypes)
	var undeclared *schema.UndeclaredError
	require.ErrorAs(t, err, &undeclared)
	require.Equal(t, []string{"PhotoApp::Admin"}, undeclared.Names)
}

func TestUndeclaredActions(t *testing.T) {
	t.Parallel()
	_, err := schema.FromJSON([]byte(`{"NS": {"actions": {
		"view": {"memberOf": [{"id": "missing"}, {"type": "Other::Action", "id": "alsoMissing"}]}
	}}}`))
	require.ErrorIs(t, err, schema.ErrUndeclaredActions)
	var undeclared *schema.UndeclaredError
	require.ErrorAs(t, err, &undeclared)
	require.Equal(t, []string{
		`NS::Action::"missing"`, `Other::Action::"alsoMissing"`,
	}, undeclared.Names)
}

func TestUndeclaredEntityTypesReportedBeforeActions(t *testing.T) {
	t.Parallel()
	_, err := schema.FromJSON([]byte(`{"NS": {
		"entityTypes": {"User": {"memberOfTypes": ["Missing"]}},
		"actions": {"view": {"memberOf": [{"id": "missingAction"}]}}
	}}`))
	require.ErrorIs(t, err, schema.ErrUndeclaredEntityTypes)
	require.NotErrorIs(t, err, schema.ErrUndeclaredActions)
}

func TestUndeclaredCommonType(t *testing.T) {
	t.Parallel()
	_, err := schema.FromJSON([]byte(`{"NS": {"entityTypes": {
		"User": {"shape": {"type": "Missing"}}
	}}}`))
	require.ErrorIs(t, err, schema.ErrUndeclaredCommonTypes)

	_, err = schema.FromJSON([]byte(`{"NS": {
		"commonTypes": {"T": {"type": "Record", "attributes": {"x": {"type": "Missing"}}}},
		"entityTypes": {"User": {"shape": {"type": "T"}}}
	}}`))
	require.ErrorIs(t, err, schema.ErrUndeclaredCommonTypes)
}

func TestCommonTypeCycleRejected(t *testing.T) {
	t.Parallel()
	_, err := schema.FromJSON([]byte(`{"NS": {"commonTypes": {
		"A": {"type": "B"},
		"B": {"type": "A"}
	}}}`))
	require.ErrorIs(t, err, schema.ErrCycleInCommonTypes)
}

func TestCommonTypeChainResolves(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, `{"NS": {
		"commonTypes": {
			"A": {"type": "Long"},
			"B": {"type": "A"},
			"C": {"type": "Record", "attributes": {"x": {"type": "B"}}}
		},
		"entityTypes": {"User": {"shape": {"type": "C"}}}
	}}`)
	user, _ := s.EntityType("NS::User")
	require.Equal(t, schema.TypeLong{}, user.Attributes["x"].Type)
}

func TestShapeMustBeRecord(t *testing.T) {
	t.Parallel()
	_, err := schema.FromJSON([]byte(`{"NS": {"entityTypes": {"User": {"shape": {"type": "Long"}}}}}`))
	require.ErrorIs(t, err, schema.ErrNotRecord)

	_, err = schema.FromJSON([]byte(`{"NS": {"actions": {"view": {"appliesTo": {"context": {"type": "String"}}}}}}`))
	require.ErrorIs(t, err, schema.ErrNotRecord)

	// A common type indirection resolving to a record is fine.
	mustSchema(t, `{"NS": {
		"commonTypes": {"T": {"type": "Record", "attributes": {}}},
		"entityTypes": {"User": {"shape": {"type": "T"}}}
	}}`)
}

func TestActionAttributes(t *testing.T) {
	t.Parallel()
	src := `{"NS": {"actions": {"view": {"attributes": {"isReadOnly": true, "version": 3}}}}}`
	_, err := schema.FromJSON([]byte(src))
	require.ErrorIs(t, err, schema.ErrActionAttributes)

	s := mustSchema(t, src, schema.WithActionAttributes())
	a, _ := s.Action(types.NewEntityUID("NS::Action", "view"))
	require.True(t, a.Attributes["isReadOnly"].Equal(types.True))
	require.True(t, a.Attributes["version"].Equal(types.Long(3)))
	require.Equal(t, schema.TypeBool{}, a.AttributeTypes["isReadOnly"])
	require.Equal(t, schema.TypeLong{}, a.AttributeTypes["version"])

	e, ok := s.ActionEntity(a.Name)
	require.True(t, ok)
	v, ok := e.Attributes.Get("isReadOnly")
	require.True(t, ok)
	require.True(t, v.Equal(types.True))
}

func TestActionAttributeSetRestrictions(t *testing.T) {
	t.Parallel()
	_, err := schema.FromJSON(
		[]byte(`{"NS": {"actions": {"view": {"attributes": {"xs": []}}}}}`),
		schema.WithActionAttributes())
	require.ErrorIs(t, err, schema.ErrActionAttributeSets)

	_, err = schema.FromJSON(
		[]byte(`{"NS": {"actions": {"view": {"attributes": {"xs": [1, "a"]}}}}}`),
		schema.WithActionAttributes())
	require.ErrorIs(t, err, schema.ErrActionAttributeSets)

	s := mustSchema(t,
		`{"NS": {"actions": {"view": {"attributes": {"xs": [1, 2]}}}}}`,
		schema.WithActionAttributes())
	a, _ := s.Action(types.NewEntityUID("NS::Action", "view"))
	require.Equal(t, schema.TypeSet{Element: schema.TypeLong{}}, a.AttributeTypes["xs"])
}

func TestActionEntities(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, photoAppJSON)
	em := s.ActionEntities()
	require.Len(t, em, 2)

	viewUID := types.NewEntityUID("PhotoApp::Action", "view")
	readOnlyUID := types.NewEntityUID("PhotoApp::Action", "readOnly")

	view := em[viewUID]
	require.NotNil(t, view)
	require.Equal(t, []types.EntityUID{readOnlyUID}, view.Parents)

	readOnly := em[readOnlyUID]
	require.NotNil(t, readOnly)
	require.Empty(t, readOnly.Parents)
	require.Equal(t, 0, readOnly.Attributes.Len())
}

func TestDescriptions(t *testing.T) {
	t.Parallel()
	s := mustSchema(t, photoAppJSON)

	d, ok := s.Description(types.NewEntityType("PhotoApp::User"))
	require.True(t, ok)
	require.True(t, d.AllowsParent(types.NewEntityType("PhotoApp::Group")))
	require.False(t, d.AllowsParent(types.NewEntityType("PhotoApp::Album")))
	require.Equal(t, []types.EntityType{types.NewEntityType("PhotoApp::Group")}, d.AllowedParents())
	require.Equal(t, []string{"name"}, d.RequiredAttributes())

	_, ok = s.Description(types.EntityType{})
	require.False(t, ok)
	_, ok = s.Description(types.NewEntityType("PhotoApp::Nope"))
	require.False(t, ok)
}

func TestFromJSONBadInput(t *testing.T) {
	t.Parallel()
	_, err := schema.FromJSON([]byte(`not json`))
	require.ErrorIs(t, err, schema.ErrJSON)

	_, err = schema.FromJSON([]byte(`{"Bad Namespace!": {}}`))
	require.ErrorIs(t, err, schema.ErrJSON)

	_, err = schema.FromJSON([]byte(`{"NS": {"entityTypes": {"User": {"shape": {"type": "Entity"}}}}}`))
	require.Error(t, err)
}
