package schema_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/reoring/docbind/schema"
)

func projectType() *schema.Type {
	return schema.Object().
		Field("name", schema.String().NonEmpty()).Required().
		Field("description", schema.String()).Required().
		Field("typechecked", schema.Bool()).Required().
		Done()
}

func TestValidate_MaterializesNormalizedRecord(t *testing.T) {
	ty := schema.Object().
		Field("name", schema.String()).Required().
		Field("port", schema.Int().Min(1).Max(65535)).Required().
		Field("ratio", schema.Float()).
		Field("tags", schema.ListOf(schema.String())).
		Done()

	rec, iss := ty.Validate(map[string]any{
		"name":  "docbind",
		"port":  8080,
		"ratio": 1, // int input widens to float64
		"tags":  []any{"a", "b"},
	})
	require.Nil(t, iss)

	v, ok := rec.Get("port")
	require.True(t, ok)
	require.Equal(t, int64(8080), v)

	v, _ = rec.Get("ratio")
	require.Equal(t, float64(1), v)

	v, _ = rec.Get("tags")
	require.Equal(t, []any{"a", "b"}, v)
}

func TestValidate_FieldsEnumerateInDeclarationOrder(t *testing.T) {
	rec, iss := projectType().Validate(map[string]any{
		"name":        "a",
		"description": "b",
		"typechecked": true,
	})
	require.Nil(t, iss)

	names := []string{}
	for _, fv := range rec.Fields() {
		names = append(names, fv.Name)
	}
	require.Equal(t, []string{"name", "description", "typechecked"}, names)
}

func TestValidate_MissingRequired(t *testing.T) {
	_, iss := projectType().Validate(map[string]any{"name": "a"})
	require.Len(t, iss, 2)
	for _, it := range iss {
		require.Equal(t, schema.CodeMissing, it.Code)
	}
	require.Equal(t, []string{"description"}, iss[0].Path)
	require.Equal(t, []string{"typechecked"}, iss[1].Path)
}

func TestValidate_ClosedRejectsExtras(t *testing.T) {
	ty := schema.Object().Field("a", schema.String()).Closed()
	_, iss := ty.Validate(map[string]any{"a": "x", "z": 1, "b": 2})
	require.Len(t, iss, 2)
	// extras report in sorted order for determinism
	require.Equal(t, schema.CodeExtraForbidden, iss[0].Code)
	require.Equal(t, []string{"b"}, iss[0].Path)
	require.Equal(t, []string{"z"}, iss[1].Path)
}

func TestValidate_OpenTypeStripsExtras(t *testing.T) {
	ty := schema.Object().Field("a", schema.String()).Done()
	rec, iss := ty.Validate(map[string]any{"a": "x", "z": 1})
	require.Nil(t, iss)
	_, ok := rec.Get("z")
	require.False(t, ok)
}

func TestValidate_NestedIssuePathsAreRebased(t *testing.T) {
	root := schema.Object().
		Field("project", schema.RecordOf(projectType())).Required().
		Done()

	_, iss := root.Validate(map[string]any{
		"project": map[string]any{"name": "a", "description": "b", "typechecked": "nope"},
	})
	require.Len(t, iss, 1, spew.Sdump(iss))
	require.Equal(t, schema.CodeInvalidType, iss[0].Code)
	require.Equal(t, []string{"project", "typechecked"}, iss[0].Path)
}

func TestValidate_DefaultsApply(t *testing.T) {
	ty := schema.Object().
		Field("level", schema.String().Enum("debug", "info", "warn")).Default("info").
		Done()
	rec, iss := ty.Validate(map[string]any{})
	require.Nil(t, iss)
	v, _ := rec.Get("level")
	require.Equal(t, "info", v)
}

func TestValidate_OptionalAbsentIsNil(t *testing.T) {
	ty := schema.Object().Field("homepage", schema.String()).Done()
	rec, iss := ty.Validate(map[string]any{})
	require.Nil(t, iss)
	v, ok := rec.Get("homepage")
	require.True(t, ok)
	require.Nil(t, v)
}

func TestValidate_SeqOfRecords(t *testing.T) {
	item := schema.Object().Field("id", schema.Int()).Required().Done()
	ty := schema.Object().Field("items", schema.SeqOf(item)).Done()

	rec, iss := ty.Validate(map[string]any{
		"items": []any{
			map[string]any{"id": 1},
			map[string]any{"id": 2},
		},
	})
	require.Nil(t, iss)
	v, _ := rec.Get("items")
	recs := v.([]*schema.Record)
	require.Len(t, recs, 2)

	_, iss = ty.Validate(map[string]any{
		"items": []any{map[string]any{"id": "x"}},
	})
	require.Len(t, iss, 1)
	require.Equal(t, []string{"items", "0", "id"}, iss[0].Path)
}

func TestValidate_MapOfRecordsAndSelfReference(t *testing.T) {
	// subcommand-like recursive shape: a record containing a mapping of itself
	sub := schema.Object()
	sub.Field("description", schema.String()).Required()
	sub.Field("subcommands", schema.MapOf(sub))

	ty := schema.Object().Field("subcommand", schema.MapOf(sub)).Done()
	rec, iss := ty.Validate(map[string]any{
		"subcommand": map[string]any{
			"generate": map[string]any{
				"description": "top",
				"subcommands": map[string]any{
					"fix": map[string]any{"description": "nested"},
				},
			},
		},
	})
	require.Nil(t, iss, spew.Sdump(iss))

	v, _ := rec.Get("subcommand")
	m := v.(map[string]*schema.Record)
	gen := m["generate"]
	nested, _ := gen.Get("subcommands")
	fix := nested.(map[string]*schema.Record)["fix"]
	d, _ := fix.Get("description")
	require.Equal(t, "nested", d)
}

func TestSet_RevalidatesField(t *testing.T) {
	rec, iss := projectType().Validate(map[string]any{
		"name": "a", "description": "b", "typechecked": false,
	})
	require.Nil(t, iss)

	require.Nil(t, rec.Set("typechecked", true))
	v, _ := rec.Get("typechecked")
	require.Equal(t, true, v)

	iss = rec.Set("typechecked", "nope")
	require.Len(t, iss, 1)
	require.Equal(t, schema.CodeInvalidType, iss[0].Code)

	iss = rec.Set("name", "")
	require.Len(t, iss, 1)
	require.Equal(t, schema.CodeStringTooShort, iss[0].Code)
}

func TestSet_FrozenFieldAndInstance(t *testing.T) {
	ty := schema.Object().
		Field("id", schema.String()).Frozen().
		Field("note", schema.String()).
		Done()
	rec, iss := ty.Validate(map[string]any{"id": "x", "note": "y"})
	require.Nil(t, iss)

	iss = rec.Set("id", "z")
	require.Len(t, iss, 1)
	require.Equal(t, schema.CodeFrozenField, iss[0].Code)

	frozen := schema.Object().Field("a", schema.String()).FrozenType()
	rec2, iss := frozen.Validate(map[string]any{"a": "x"})
	require.Nil(t, iss)
	iss = rec2.Set("a", "y")
	require.Len(t, iss, 1)
	require.Equal(t, schema.CodeFrozenInstance, iss[0].Code)
}

func TestSet_UnknownName(t *testing.T) {
	ty := schema.Object().Field("a", schema.String()).Done()
	rec, _ := ty.Validate(map[string]any{"a": "x"})
	iss := rec.Set("nope", 1)
	require.Len(t, iss, 1)
	require.Equal(t, schema.CodeNoSuchAttribute, iss[0].Code)
}

func TestSet_WholeRecordAssignment(t *testing.T) {
	inner := schema.Object().Field("v", schema.Int()).Required().Done()
	ty := schema.Object().Field("sub", schema.RecordOf(inner)).Required().Done()
	rec, iss := ty.Validate(map[string]any{"sub": map[string]any{"v": 1}})
	require.Nil(t, iss)

	other, iss := inner.Validate(map[string]any{"v": 2})
	require.Nil(t, iss)
	require.Nil(t, rec.Set("sub", other))

	got, _ := rec.Get("sub")
	v, _ := got.(*schema.Record).Get("v")
	require.Equal(t, int64(2), v)

	// the stored record is a copy, not an alias
	require.Nil(t, other.Set("v", 3))
	v, _ = got.(*schema.Record).Get("v")
	require.Equal(t, int64(2), v)
}

func TestDeepCopy_IsIndependentAtDepth(t *testing.T) {
	root := schema.Object().
		Field("project", schema.RecordOf(projectType())).Required().
		Done()
	rec, iss := root.Validate(map[string]any{
		"project": map[string]any{"name": "a", "description": "b", "typechecked": false},
	})
	require.Nil(t, iss)

	cp := rec.DeepCopy()
	sub, _ := rec.Get("project")
	require.Nil(t, sub.(*schema.Record).Set("name", "changed"))

	cpSub, _ := cp.Get("project")
	v, _ := cpSub.(*schema.Record).Get("name")
	require.Equal(t, "a", v)
	require.False(t, rec.Equal(cp))
}

func TestValueEqual(t *testing.T) {
	require.True(t, schema.ValueEqual(int64(1), int64(1)))
	require.False(t, schema.ValueEqual(int64(1), float64(1)))
	require.True(t, schema.ValueEqual([]any{"a"}, []any{"a"}))
	require.False(t, schema.ValueEqual([]any{"a", "b"}, []any{"b", "a"}))
	require.True(t, schema.ValueEqual(nil, nil))
}

func TestMarshalJSON_DeclarationOrder(t *testing.T) {
	rec, iss := projectType().Validate(map[string]any{
		"name": "a", "description": "b", "typechecked": true,
	})
	require.Nil(t, iss)
	b, err := rec.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"a","description":"b","typechecked":true}`, string(b))
	require.Equal(t, `{"name":"a","description":"b","typechecked":true}`, string(b))
}

func TestIssues_ErrorSummary(t *testing.T) {
	iss := schema.Issues{
		{Path: []string{"a"}, Code: schema.CodeInvalidType},
		{Path: []string{"b"}, Code: schema.CodeMissing},
		{Path: []string{"c"}, Code: schema.CodeTooBig},
		{Path: []string{"d"}, Code: schema.CodeTooSmall},
	}
	s := iss.Error()
	require.Contains(t, s, "invalid_type at a")
	require.Contains(t, s, "(total 4)")

	got, ok := schema.AsIssues(error(iss))
	require.True(t, ok)
	require.Len(t, got, 4)
}

func TestValidate_OversizedUnsignedIntRejected(t *testing.T) {
	ty := schema.Object().Field("offset", schema.Int()).Required().Done()

	_, iss := ty.Validate(map[string]any{"offset": uint64(1) << 63})
	require.Len(t, iss, 1)
	require.Equal(t, schema.CodeInvalidType, iss[0].Code)

	rec, iss := ty.Validate(map[string]any{"offset": uint64(7)})
	require.Nil(t, iss)
	v, _ := rec.Get("offset")
	require.Equal(t, int64(7), v)
}
