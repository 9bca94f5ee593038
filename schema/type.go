package schema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

type specKind int

const (
	specScalar specKind = iota
	specList
	specRecord
	specSeqOf
	specMapOf
)

type scalarKind int

const (
	scalarString scalarKind = iota
	scalarInt
	scalarFloat
	scalarBool
)

func (k scalarKind) name() string {
	switch k {
	case scalarString:
		return "string"
	case scalarInt:
		return "int"
	case scalarFloat:
		return "float"
	default:
		return "bool"
	}
}

// Spec describes the shape and constraints of a single field value. Specs are
// built with String/Int/Float/Bool/ListOf/RecordOf/SeqOf/MapOf and refined via
// the chainable constraint methods.
type Spec struct {
	kind   specKind
	scalar scalarKind
	elem   *Type // record type for specRecord/specSeqOf/specMapOf

	min, max  *int64
	nonEmpty  bool
	maxLen    int
	hasMaxLen bool
	enum      []any
}

// String declares a string-valued field.
func String() *Spec { return &Spec{kind: specScalar, scalar: scalarString} }

// Int declares an integer-valued field. Integers normalize to int64.
func Int() *Spec { return &Spec{kind: specScalar, scalar: scalarInt} }

// Float declares a float-valued field. Floats normalize to float64; integer
// input is accepted and widened.
func Float() *Spec { return &Spec{kind: specScalar, scalar: scalarFloat} }

// Bool declares a boolean-valued field.
func Bool() *Spec { return &Spec{kind: specScalar, scalar: scalarBool} }

// ListOf declares a homogeneous list of the given scalar spec. Lists are leaf
// values: they are compared and replaced wholesale, never element-patched.
func ListOf(elem *Spec) *Spec {
	if elem == nil || elem.kind != specScalar {
		panic("schema: ListOf requires a scalar element spec")
	}
	c := *elem
	c.kind = specList
	return &c
}

// RecordOf declares a nested record field of the given type. The pointer may
// refer to a type still under construction, which keeps self-referential
// shapes legal.
func RecordOf(t *Type) *Spec { return &Spec{kind: specRecord, elem: t} }

// SeqOf declares a sequence of records. Sequences are leaf values for
// diff/dump purposes and compare index-aligned.
func SeqOf(t *Type) *Spec { return &Spec{kind: specSeqOf, elem: t} }

// MapOf declares a keyed mapping of records. Mappings are leaf values for
// diff/dump purposes.
func MapOf(t *Type) *Spec { return &Spec{kind: specMapOf, elem: t} }

// Min sets an inclusive lower bound for int/float scalars.
func (s *Spec) Min(v int64) *Spec { s.min = &v; return s }

// Max sets an inclusive upper bound for int/float scalars.
func (s *Spec) Max(v int64) *Spec { s.max = &v; return s }

// NonEmpty requires string scalars to be non-empty.
func (s *Spec) NonEmpty() *Spec { s.nonEmpty = true; return s }

// MaxLen caps the rune length of string scalars.
func (s *Spec) MaxLen(n int) *Spec { s.maxLen = n; s.hasMaxLen = true; return s }

// Enum restricts the scalar to one of the given values.
func (s *Spec) Enum(vs ...any) *Spec { s.enum = vs; return s }

type fieldDef struct {
	spec       *Spec
	required   bool
	frozen     bool
	hasDefault bool
	def        any
}

// Type is a tagged-variant record type: an ordered set of named fields, each
// described by a Spec. Field order is declaration order and is the ordering
// contract record traversal relies on.
type Type struct {
	names  []string
	fields map[string]*fieldDef
	closed bool
	frozen bool
}

// Object creates a new record type builder. Unknown keys are ignored by
// default; call Closed to forbid them.
func Object() *Type {
	return &Type{fields: map[string]*fieldDef{}}
}

// FieldStep scopes chained field modifiers to the most recently added field.
type FieldStep struct {
	t    *Type
	name string
}

// Field registers a field with its spec and returns a step for chaining
// per-field modifiers.
func (t *Type) Field(name string, s *Spec) *FieldStep {
	if _, dup := t.fields[name]; !dup {
		t.names = append(t.names, name)
	}
	t.fields[name] = &fieldDef{spec: s}
	return &FieldStep{t: t, name: name}
}

// Closed forbids keys not declared on the type.
func (t *Type) Closed() *Type { t.closed = true; return t }

// Frozen makes every instance of the type immutable after construction.
func (t *Type) Frozen() *Type { t.frozen = true; return t }

// Required marks the field as required.
func (f *FieldStep) Required() *FieldStep {
	f.t.fields[f.name].required = true
	return f
}

// Frozen forbids assignment to the field after construction.
func (f *FieldStep) Frozen() *FieldStep {
	f.t.fields[f.name].frozen = true
	return f
}

// Default supplies a value used when the field is absent from the input. The
// default passes the field's own validation at Validate time.
func (f *FieldStep) Default(v any) *FieldStep {
	fd := f.t.fields[f.name]
	fd.hasDefault = true
	fd.def = v
	return f
}

// Field delegates to the type builder so chains keep flowing.
func (f *FieldStep) Field(name string, s *Spec) *FieldStep { return f.t.Field(name, s) }

// Closed delegates to the type builder.
func (f *FieldStep) Closed() *Type { return f.t.Closed() }

// FrozenType delegates to the type builder's Frozen.
func (f *FieldStep) FrozenType() *Type { return f.t.Frozen() }

// Done returns the finished type.
func (f *FieldStep) Done() *Type { return f.t }

// Validate checks a plain mapping against the type and materializes a Record.
// Validation is all-or-nothing: any issue means no Record is returned.
func (t *Type) Validate(src map[string]any) (*Record, Issues) {
	var iss Issues
	values := make(map[string]any, len(t.names))

	for _, name := range t.names {
		fd := t.fields[name]
		if v, ok := src[name]; ok {
			nv, i2 := validateSpec([]string{name}, fd.spec, v)
			if len(i2) > 0 {
				iss = AppendIssues(iss, i2...)
				continue
			}
			values[name] = nv
			continue
		}
		if fd.hasDefault {
			nv, i2 := validateSpec([]string{name}, fd.spec, fd.def)
			if len(i2) > 0 {
				iss = AppendIssues(iss, i2...)
				continue
			}
			values[name] = nv
			continue
		}
		if fd.required {
			iss = AppendIssues(iss, Issue{
				Path:    []string{name},
				Code:    CodeMissing,
				Message: "required field is missing from the document",
			})
			continue
		}
		values[name] = nil
	}

	if t.closed {
		extras := make([]string, 0)
		for k := range src {
			if _, known := t.fields[k]; !known {
				extras = append(extras, k)
			}
		}
		sort.Strings(extras)
		for _, k := range extras {
			iss = AppendIssues(iss, Issue{
				Path:    []string{k},
				Code:    CodeExtraForbidden,
				Message: "extra field is not permitted",
			})
		}
	}

	if len(iss) > 0 {
		return nil, iss
	}
	return &Record{typ: t, values: values}, nil
}

// validateSpec normalizes and checks a single value against a spec. The
// returned value is the stored form (int64/float64 scalars, []any lists,
// *Record / []*Record / map[string]*Record structures).
func validateSpec(path []string, s *Spec, v any) (any, Issues) {
	switch s.kind {
	case specScalar:
		return validateScalar(path, s, v)
	case specList:
		items, ok := anySlice(v)
		if !ok {
			return nil, Issues{{Path: path, Code: CodeInvalidType, Message: fmt.Sprintf("expected a list of %s, got %T", s.scalar.name(), v)}}
		}
		out := make([]any, 0, len(items))
		var iss Issues
		es := &Spec{kind: specScalar, scalar: s.scalar, min: s.min, max: s.max, nonEmpty: s.nonEmpty, maxLen: s.maxLen, hasMaxLen: s.hasMaxLen, enum: s.enum}
		for i, it := range items {
			nv, i2 := validateScalar(append(append([]string{}, path...), strconv.Itoa(i)), es, it)
			if len(i2) > 0 {
				iss = AppendIssues(iss, i2...)
				continue
			}
			out = append(out, nv)
		}
		if len(iss) > 0 {
			return nil, iss
		}
		return out, nil
	case specRecord:
		if rec, ok := v.(*Record); ok {
			if rec.typ != s.elem {
				return nil, Issues{{Path: path, Code: CodeInvalidType, Message: "record instance is of a different type"}}
			}
			return rec.DeepCopy(), nil
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, Issues{{Path: path, Code: CodeInvalidType, Message: fmt.Sprintf("expected a mapping, got %T", v)}}
		}
		rec, i2 := s.elem.Validate(m)
		if len(i2) > 0 {
			for i := len(path) - 1; i >= 0; i-- {
				i2 = rebase(i2, path[i])
			}
			return nil, i2
		}
		return rec, nil
	case specSeqOf:
		if recs, ok := v.([]*Record); ok {
			out := make([]*Record, len(recs))
			for i, rec := range recs {
				if rec.typ != s.elem {
					return nil, Issues{{Path: append(append([]string{}, path...), strconv.Itoa(i)), Code: CodeInvalidType, Message: "record instance is of a different type"}}
				}
				out[i] = rec.DeepCopy()
			}
			return out, nil
		}
		items, ok := anySlice(v)
		if !ok {
			return nil, Issues{{Path: path, Code: CodeInvalidType, Message: fmt.Sprintf("expected a sequence of mappings, got %T", v)}}
		}
		out := make([]*Record, 0, len(items))
		var iss Issues
		for i, it := range items {
			ep := append(append([]string{}, path...), strconv.Itoa(i))
			rv, i2 := validateSpec(ep, &Spec{kind: specRecord, elem: s.elem}, it)
			if len(i2) > 0 {
				iss = AppendIssues(iss, i2...)
				continue
			}
			out = append(out, rv.(*Record))
		}
		if len(iss) > 0 {
			return nil, iss
		}
		return out, nil
	case specMapOf:
		if recs, ok := v.(map[string]*Record); ok {
			out := make(map[string]*Record, len(recs))
			for k, rec := range recs {
				if rec.typ != s.elem {
					return nil, Issues{{Path: append(append([]string{}, path...), k), Code: CodeInvalidType, Message: "record instance is of a different type"}}
				}
				out[k] = rec.DeepCopy()
			}
			return out, nil
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, Issues{{Path: path, Code: CodeInvalidType, Message: fmt.Sprintf("expected a mapping of mappings, got %T", v)}}
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]*Record, len(m))
		var iss Issues
		for _, k := range keys {
			ep := append(append([]string{}, path...), k)
			rv, i2 := validateSpec(ep, &Spec{kind: specRecord, elem: s.elem}, m[k])
			if len(i2) > 0 {
				iss = AppendIssues(iss, i2...)
				continue
			}
			out[k] = rv.(*Record)
		}
		if len(iss) > 0 {
			return nil, iss
		}
		return out, nil
	}
	return nil, Issues{{Path: path, Code: CodeInvalidType, Message: "unsupported field spec"}}
}

func validateScalar(path []string, s *Spec, v any) (any, Issues) {
	bad := func(code, msg string) (any, Issues) {
		return nil, Issues{{Path: path, Code: code, Message: msg}}
	}
	switch s.scalar {
	case scalarString:
		sv, ok := v.(string)
		if !ok {
			return bad(CodeInvalidType, fmt.Sprintf("expected string, got %T", v))
		}
		if s.nonEmpty && sv == "" {
			return bad(CodeStringTooShort, "string must not be empty")
		}
		if s.hasMaxLen && len([]rune(sv)) > s.maxLen {
			return bad(CodeStringTooLong, fmt.Sprintf("string longer than %d characters", s.maxLen))
		}
		if len(s.enum) > 0 && !enumHas(s.enum, sv) {
			return bad(CodeInvalidEnum, fmt.Sprintf("%q is not a permitted value", sv))
		}
		return sv, nil
	case scalarInt:
		iv, ok := asInt64(v)
		if !ok {
			return bad(CodeInvalidType, fmt.Sprintf("expected int, got %T", v))
		}
		if s.min != nil && iv < *s.min {
			return bad(CodeTooSmall, fmt.Sprintf("%d is less than the minimum of %d", iv, *s.min))
		}
		if s.max != nil && iv > *s.max {
			return bad(CodeTooBig, fmt.Sprintf("%d is greater than the maximum of %d", iv, *s.max))
		}
		if len(s.enum) > 0 && !enumHas(s.enum, iv) {
			return bad(CodeInvalidEnum, fmt.Sprintf("%d is not a permitted value", iv))
		}
		return iv, nil
	case scalarFloat:
		fv, ok := asFloat64(v)
		if !ok {
			return bad(CodeInvalidType, fmt.Sprintf("expected float, got %T", v))
		}
		if s.min != nil && fv < float64(*s.min) {
			return bad(CodeTooSmall, fmt.Sprintf("%v is less than the minimum of %d", fv, *s.min))
		}
		if s.max != nil && fv > float64(*s.max) {
			return bad(CodeTooBig, fmt.Sprintf("%v is greater than the maximum of %d", fv, *s.max))
		}
		return fv, nil
	default:
		bv, ok := v.(bool)
		if !ok {
			return bad(CodeInvalidType, fmt.Sprintf("expected bool, got %T", v))
		}
		return bv, nil
	}
}

func enumHas(enum []any, v any) bool {
	for _, e := range enum {
		ne := e
		if iv, ok := asInt64(e); ok {
			ne = iv
		}
		if ne == v {
			return true
		}
	}
	return false
}

func anySlice(v any) ([]any, bool) {
	switch vv := v.(type) {
	case []any:
		return vv, true
	case []string:
		out := make([]any, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(vv))
		for i, n := range vv {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(vv))
		for i, n := range vv {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(vv))
		for i, n := range vv {
			out[i] = n
		}
		return out, true
	case []bool:
		out := make([]any, len(vv))
		for i, b := range vv {
			out[i] = b
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(vv))
		for i, m := range vv {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if iv, ok := asInt64(v); ok {
		return float64(iv), true
	}
	return 0, false
}
