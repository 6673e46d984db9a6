package entities_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cedar-policy/cedar-schema-go/entities"
	"github.com/cedar-policy/cedar-schema-go/schema"
	"github.com/cedar-policy/cedar-schema-go/types"
)

const photoAppJSON = `{
	"PhotoApp": {
		"entityTypes": {
			"User": {
				"memberOfTypes": ["Group"],
				"shape": {
					"type": "Record",
					"attributes": {
						"name": {"type": "String"},
						"age": {"type": "Long", "required": false},
						"addr": {"type": "Extension", "name": "ipaddr", "required": false},
						"manager": {"type": "Entity", "name": "User", "required": false},
						"labels": {"type": "Set", "element": {"type": "String"}, "required": false},
						"extra": {"type": "Record", "attributes": {}, "additionalAttributes": true, "required": false}
					}
				}
			},
			"Group": {},
			"Album": {}
		},
		"actions": {
			"readOnly": {},
			"view": {
				"memberOf": [{"id": "readOnly"}],
				"appliesTo": {
					"principalTypes": ["User"],
					"resourceTypes": ["Album"],
					"context": {
						"type": "Record",
						"attributes": {"authenticated": {"type": "Boolean"}}
					}
				}
			}
		}
	}
}`

func photoApp(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.FromJSON([]byte(photoAppJSON))
	require.NoError(t, err)
	return s
}

func TestParseEntitiesConforming(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(photoApp(t))
	em, err := p.ParseEntities([]byte(`[
		{
			"uid": {"type": "PhotoApp::User", "id": "alice"},
			"attrs": {
				"name": "Alice",
				"age": 30,
				"addr": "192.168.0.1",
				"manager": {"__entity": {"type": "PhotoApp::User", "id": "bob"}},
				"labels": ["a", "b"]
			},
			"parents": [{"type": "PhotoApp::Group", "id": "admins"}]
		},
		{
			"uid": {"__entity": {"type": "PhotoApp::User", "id": "bob"}},
			"attrs": {"name": "Bob"}
		}
	]`))
	require.NoError(t, err)
	require.Len(t, em, 2)

	alice := em[types.NewEntityUID("PhotoApp::User", "alice")]
	require.NotNil(t, alice)
	require.True(t, alice.HasParent(types.NewEntityUID("PhotoApp::Group", "admins")))

	// Bare string with an expected ipaddr type goes through the implied
	// constructor.
	addr, ok := alice.Attributes.Get("addr")
	require.True(t, ok)
	want, _ := types.ParseIPAddr("192.168.0.1")
	require.True(t, addr.Equal(want))

	mgr, ok := alice.Attributes.Get("manager")
	require.True(t, ok)
	require.True(t, mgr.Equal(types.NewEntityUID("PhotoApp::User", "bob")))

	labels, ok := alice.Attributes.Get("labels")
	require.True(t, ok)
	require.True(t, labels.Equal(types.NewSet([]types.Value{types.String("a"), types.String("b")})))
}

func TestParseEntitiesSchemaless(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(nil)
	em, err := p.ParseEntities([]byte(`[
		{"uid": {"type": "Whatever", "id": "x"}, "attrs": {"anything": [1, 2]}}
	]`))
	require.NoError(t, err)
	require.Len(t, em, 1)
}

func TestUnknownEntityTypeSuggestions(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(photoApp(t))
	_, err := p.ParseEntities([]byte(`[{"uid": {"type": "User", "id": "alice"}}]`))
	require.ErrorIs(t, err, entities.ErrUnknownEntityType)
	var unknown *entities.UnknownEntityTypeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, []types.EntityType{types.NewEntityType("PhotoApp::User")}, unknown.Suggestions)
}

func TestAttributeErrors(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(photoApp(t))

	_, err := p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"name": "A", "nickname": "al"}
	}`))
	require.ErrorIs(t, err, entities.ErrUnexpectedAttr)

	_, err = p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"age": 30}
	}`))
	require.ErrorIs(t, err, entities.ErrMissingAttr)

	_, err = p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"name": 5}
	}`))
	require.ErrorIs(t, err, entities.ErrTypeMismatch)
	var decodeErr *entities.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	// Open records accept attributes the schema does not name.
	_, err = p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"name": "A", "extra": {"anything": true}}
	}`))
	require.NoError(t, err)
}

func TestEntityLUBMismatch(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(photoApp(t))
	_, err := p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"name": "A", "manager": {"type": "PhotoApp::Group", "id": "g"}}
	}`))
	require.ErrorIs(t, err, entities.ErrTypeMismatch)
}

func TestExtensionDecoding(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(photoApp(t))

	e, err := p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"name": "A", "addr": {"__extn": {"fn": "ip", "arg": "10.0.0.0/8"}}}
	}`))
	require.NoError(t, err)
	addr, _ := e.Attributes.Get("addr")
	want, _ := types.ParseIPAddr("10.0.0.0/8")
	require.True(t, addr.Equal(want))

	// The escape may be omitted when the schema expects an extension type.
	_, err = p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"name": "A", "addr": {"fn": "ip", "arg": "10.0.0.1"}}
	}`))
	require.NoError(t, err)

	// No constructor builds an ipaddr from a Long.
	_, err = p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"name": "A", "addr": 5}
	}`))
	require.ErrorIs(t, err, entities.ErrMissingImpliedConstructor)

	// A decimal where an ipaddr is expected is a mismatch.
	_, err = p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"name": "A", "addr": {"__extn": {"fn": "decimal", "arg": "1.5"}}}
	}`))
	require.ErrorIs(t, err, entities.ErrTypeMismatch)
}

func TestParentChecks(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(photoApp(t))

	_, err := p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::User", "id": "a"},
		"attrs": {"name": "A"},
		"parents": [{"type": "PhotoApp::Album", "id": "x"}]
	}`))
	require.ErrorIs(t, err, entities.ErrDisallowedParentType)

	// Action entities may only have action parents.
	_, err = p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::Action", "id": "view"},
		"parents": [{"type": "PhotoApp::Action", "id": "readOnly"}]
	}`))
	require.NoError(t, err)

	_, err = p.ParseEntity([]byte(`{
		"uid": {"type": "PhotoApp::Action", "id": "view"},
		"parents": [{"type": "PhotoApp::Group", "id": "admins"}]
	}`))
	require.ErrorIs(t, err, entities.ErrActionParentIsNotAction)
}

func TestMalformedEntities(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(nil)

	_, err := p.ParseEntities([]byte(`{}`))
	require.ErrorIs(t, err, entities.ErrJSON)

	_, err = p.ParseEntities([]byte(`[{"attrs": {}}]`))
	require.ErrorIs(t, err, entities.ErrJSON)

	_, err = p.ParseEntities([]byte(`[{"uid": "NS::User::\"a\""}]`))
	require.ErrorIs(t, err, entities.ErrEntityEscape)

	_, err = p.ParseEntities([]byte(`[{"uid": {"type": "NS::User", "id": "a"}, "banana": 1}]`))
	require.ErrorIs(t, err, entities.ErrJSON)

	_, err = p.ParseEntities([]byte(`[
		{"uid": {"type": "NS::User", "id": "a"}},
		{"uid": {"type": "NS::User", "id": "a"}}
	]`))
	require.ErrorIs(t, err, entities.ErrDuplicateEntity)

	_, err = p.ParseEntities([]byte(`[{"uid": {"type": "NS::User", "id": "a"}, "attrs": {"x": 1, "x": 2}}]`))
	require.ErrorIs(t, err, entities.ErrDuplicateKey)

	_, err = p.ParseEntities([]byte(`[{"uid": {"type": "NS::User", "id": "a"}, "attrs": {"x": {"__expr": "1+1"}}}]`))
	require.ErrorIs(t, err, entities.ErrExprEscape)
}

// stubSchema exposes a single entity type whose one attribute is a set with
// no element type, something the JSON schema format cannot express.
type stubSchema struct{}

func (stubSchema) Description(et types.EntityType) (*schema.EntityTypeDescription, bool) {
	if et != types.NewEntityType("Stub") {
		return nil, false
	}
	return &schema.EntityTypeDescription{
		Type: et,
		Attributes: map[string]schema.AttributeType{
			"xs": {Type: schema.TypeSet{}, Required: true},
		},
		AllowedParentTypes: map[types.EntityType]struct{}{},
	}, true
}

func (stubSchema) IsDeclaredAction(types.EntityUID) bool { return false }

func (stubSchema) ContextType(types.EntityUID) (schema.TypeRecord, bool) {
	return schema.TypeRecord{}, false
}

func (stubSchema) EntityTypesWithBasename(types.Ident) []types.EntityType { return nil }

func TestHeterogeneousSet(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(stubSchema{})

	_, err := p.ParseEntity([]byte(`{"uid": {"type": "Stub", "id": "a"}, "attrs": {"xs": [1, "a"]}}`))
	require.ErrorIs(t, err, entities.ErrHeterogeneousSet)

	_, err = p.ParseEntity([]byte(`{"uid": {"type": "Stub", "id": "a"}, "attrs": {"xs": [1, 2]}}`))
	require.NoError(t, err)

	_, err = p.ParseEntity([]byte(`{"uid": {"type": "Stub", "id": "a"}, "attrs": {"xs": []}}`))
	require.NoError(t, err)
}

func TestParseContext(t *testing.T) {
	t.Parallel()
	p := entities.NewParser(photoApp(t))
	view := types.NewEntityUID("PhotoApp::Action", "view")

	ctx, err := p.ParseContext(view, []byte(`{"authenticated": true}`))
	require.NoError(t, err)
	v, ok := ctx.Get("authenticated")
	require.True(t, ok)
	require.True(t, v.Equal(types.True))

	_, err = p.ParseContext(view, []byte(`{"authenticated": true, "extra": 1}`))
	require.ErrorIs(t, err, entities.ErrUnexpectedAttr)

	_, err = p.ParseContext(view, []byte(`{}`))
	require.ErrorIs(t, err, entities.ErrMissingAttr)

	_, err = p.ParseContext(types.NewEntityUID("PhotoApp::Action", "nope"), []byte(`{}`))
	require.ErrorIs(t, err, entities.ErrUndeclaredAction)

	free := entities.NewParser(nil)
	_, err = free.ParseContext(view, []byte(`{"anything": "goes"}`))
	require.NoError(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()
	s := photoApp(t)
	p := entities.NewParser(s)
	em, err := p.ParseEntities([]byte(`[
		{
			"uid": {"type": "PhotoApp::User", "id": "alice"},
			"attrs": {"name": "Alice", "addr": "10.0.0.1", "labels": ["x", "y"]},
			"parents": [{"type": "PhotoApp::Group", "id": "admins"}]
		},
		{"uid": {"type": "PhotoApp::Group", "id": "admins"}}
	]`))
	require.NoError(t, err)

	data, err := entities.MarshalEntities(em)
	require.NoError(t, err)

	back, err := p.ParseEntities(data)
	require.NoError(t, err)
	require.Len(t, back, len(em))
	for uid, e := range em {
		got := back[uid]
		require.NotNil(t, got, uid.String())
		require.True(t, e.Attributes.Equal(got.Attributes), uid.String())
		require.Equal(t, e.Parents, got.Parents, uid.String())
	}
}

func TestMarshalValue(t *testing.T) {
	t.Parallel()
	b, err := entities.MarshalValue(types.NewEntityUID("NS::User", "alice"))
	require.NoError(t, err)
	require.JSONEq(t, `{"__entity": {"type": "NS::User", "id": "alice"}}`, string(b))

	_, err = entities.MarshalValue(types.NewRecord(map[types.String]types.Value{
		"__extn": types.Long(1),
	}))
	require.ErrorIs(t, err, entities.ErrReservedKey)
}
