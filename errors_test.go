package docbind_test

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	docbind "github.com/reoring/docbind"
	"github.com/reoring/docbind/schema"
)

func TestClassify_Taxonomy(t *testing.T) {
	iss := schema.Issues{
		{Path: []string{"a"}, Code: schema.CodeMissing, Message: "gone"},
		{Path: []string{"b"}, Code: schema.CodeFrozenField},
		{Path: []string{"c"}, Code: schema.CodeFrozenInstance},
		{Path: []string{"d"}, Code: schema.CodeNoSuchAttribute},
		{Path: []string{"e"}, Code: schema.CodeExtraForbidden},
		{Path: []string{"f"}, Code: schema.CodeInvalidType, Message: "expected bool, got string"},
		{Path: []string{"g"}, Code: schema.CodeTooBig},
		{Path: []string{"h"}, Code: ""}, // code-less issues are skipped
	}

	err := docbind.Classify(iss, nil)
	ve, ok := docbind.AsValidation(err)
	require.True(t, ok)
	require.Len(t, ve.Errors, 7)

	kinds := []docbind.Kind{}
	for _, fe := range ve.Errors {
		kinds = append(kinds, fe.Kind)
	}
	require.Equal(t, []docbind.Kind{
		docbind.KindMissingField,
		docbind.KindFrozenField,
		docbind.KindFrozenField,
		docbind.KindUnknownField,
		docbind.KindUnknownField,
		docbind.KindInvalidValue,
		docbind.KindInvalidValue,
	}, kinds)

	// every record keeps its originating raw issue
	require.Equal(t, schema.CodeTooBig, ve.Errors[6].Raw.Code)
}

func TestClassify_LocationOverride(t *testing.T) {
	iss := schema.Issues{{Path: []string{"typechecked"}, Code: schema.CodeInvalidType, Message: "nope"}}
	err := docbind.Classify(iss, docbind.ParsePath("project.typechecked"))
	ve, _ := docbind.AsValidation(err)
	require.Equal(t, "project.typechecked", ve.Errors[0].Path.String())
}

func TestClassify_UnknownLocationFallback(t *testing.T) {
	iss := schema.Issues{{Code: schema.CodeInvalidType}}
	err := docbind.Classify(iss, nil)
	ve, _ := docbind.AsValidation(err)
	require.Equal(t, "unknown", ve.Errors[0].Path.String())
	require.Equal(t, "unknown value error", ve.Errors[0].Message)
}

func TestValidationError_MessageShape(t *testing.T) {
	iss := schema.Issues{
		{Path: []string{"project", "name"}, Code: schema.CodeMissing, Message: "the required field is missing from the document"},
	}
	err := docbind.Classify(iss, nil)

	msg := err.Error()
	require.True(t, strings.HasPrefix(msg, "1 error occurred while validating the document:"), msg)
	require.Contains(t, msg, `Field "project.name": the required field is missing from the document (missing)`)

	iss = append(iss, schema.Issue{Path: []string{"x"}, Code: schema.CodeTooSmall, Message: "too small"})
	require.True(t, strings.HasPrefix(docbind.Classify(iss, nil).Error(), "2 errors occurred"), "plural form")
}

func TestValidationError_MarshalJSON(t *testing.T) {
	iss := schema.Issues{{Path: []string{"a"}, Code: schema.CodeMissing, Message: "m"}}
	ve, _ := docbind.AsValidation(docbind.Classify(iss, nil))

	b, err := json.Marshal(ve)
	require.NoError(t, err)

	var decoded struct {
		Errors []struct {
			Kind string   `json:"kind"`
			Path []string `json:"path"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded.Errors, 1)
	require.Equal(t, "missing_field", decoded.Errors[0].Kind)
	require.Equal(t, []string{"a"}, decoded.Errors[0].Path)
}

func TestClassify_AllSkippedBatchIsNil(t *testing.T) {
	iss := schema.Issues{
		{Path: []string{"a"}},
		{Path: []string{"b"}},
	}
	require.NoError(t, docbind.Classify(iss, nil))
}
