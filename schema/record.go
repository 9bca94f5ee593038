package schema

import (
	"bytes"
	"sort"

	json "github.com/goccy/go-json"
)

// Record is a validated instance of a Type. Values are stored in normalized
// form: int64/float64/bool/string scalars, []any lists, and nested *Record,
// []*Record or map[string]*Record structures. Every declared field is present;
// optional fields that were absent hold nil.
type Record struct {
	typ    *Type
	values map[string]any
}

// FieldView pairs a field name with its current value.
type FieldView struct {
	Name  string
	Value any
}

// Type returns the record's type.
func (r *Record) Type() *Type { return r.typ }

// Fields returns (name, value) pairs in declaration order. Two records of the
// same type always enumerate in the same order, which lockstep tree walks
// depend on.
func (r *Record) Fields() []FieldView {
	out := make([]FieldView, 0, len(r.typ.names))
	for _, name := range r.typ.names {
		out = append(out, FieldView{Name: name, Value: r.values[name]})
	}
	return out
}

// Get returns the value of a declared field.
func (r *Record) Get(name string) (any, bool) {
	if _, ok := r.typ.fields[name]; !ok {
		return nil, false
	}
	return r.values[name], true
}

// Set assigns a field after re-validating just that field. Frozen instances
// and frozen fields reject assignment; unknown names are reported rather than
// silently created.
func (r *Record) Set(name string, v any) Issues {
	if r.typ.frozen {
		return Issues{{Path: []string{name}, Code: CodeFrozenInstance, Message: "instance is frozen and cannot be mutated"}}
	}
	fd, ok := r.typ.fields[name]
	if !ok {
		return Issues{{Path: []string{name}, Code: CodeNoSuchAttribute, Message: "field is not declared on the type"}}
	}
	if fd.frozen {
		return Issues{{Path: []string{name}, Code: CodeFrozenField, Message: "field is frozen and cannot be mutated"}}
	}
	nv, iss := validateSpec([]string{name}, fd.spec, v)
	if len(iss) > 0 {
		return iss
	}
	r.values[name] = nv
	return nil
}

// DeepCopy returns an independent copy of the record. Mutating the copy never
// affects the original at any depth.
func (r *Record) DeepCopy() *Record {
	values := make(map[string]any, len(r.values))
	for k, v := range r.values {
		values[k] = deepCopyValue(v)
	}
	return &Record{typ: r.typ, values: values}
}

func deepCopyValue(v any) any {
	switch vv := v.(type) {
	case *Record:
		if vv == nil {
			return (*Record)(nil)
		}
		return vv.DeepCopy()
	case []*Record:
		out := make([]*Record, len(vv))
		for i, rec := range vv {
			out[i] = rec.DeepCopy()
		}
		return out
	case map[string]*Record:
		out := make(map[string]*Record, len(vv))
		for k, rec := range vv {
			out[k] = rec.DeepCopy()
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports structural equality of two records of the same type.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.typ != o.typ {
		return false
	}
	for _, name := range r.typ.names {
		if !ValueEqual(r.values[name], o.values[name]) {
			return false
		}
	}
	return true
}

// ValueEqual compares two normalized field values, descending into records,
// sequences and mappings. Sequences compare index-aligned.
func ValueEqual(a, b any) bool {
	switch av := a.(type) {
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	case []*Record:
		bv, ok := b.([]*Record)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	case map[string]*Record:
		bv, ok := b.(map[string]*Record)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ar := range av {
			br, ok := bv[k]
			if !ok || !ar.Equal(br) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// AsMap renders the record as a plain nested mapping, the shape Validate
// accepts. Absent optional fields are omitted, so the result re-validates and
// compares cleanly against decoded document values.
func (r *Record) AsMap() map[string]any {
	out := make(map[string]any, len(r.typ.names))
	for _, name := range r.typ.names {
		if r.values[name] == nil {
			continue
		}
		out[name] = plainValue(r.values[name])
	}
	return out
}

func plainValue(v any) any {
	switch vv := v.(type) {
	case *Record:
		if vv == nil {
			return nil
		}
		return vv.AsMap()
	case []*Record:
		out := make([]any, len(vv))
		for i, rec := range vv {
			out[i] = rec.AsMap()
		}
		return out
	case map[string]*Record:
		out := make(map[string]any, len(vv))
		for k, rec := range vv {
			out[k] = rec.AsMap()
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON renders the record with fields in declaration order.
func (r *Record) MarshalJSON() ([]byte, error) {
	b := &bytes.Buffer{}
	b.WriteByte('{')
	for i, name := range r.typ.names {
		if i > 0 {
			b.WriteByte(',')
		}
		nk, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		b.Write(nk)
		b.WriteByte(':')
		nv, err := marshalValue(r.values[name])
		if err != nil {
			return nil, err
		}
		b.Write(nv)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	switch vv := v.(type) {
	case *Record:
		if vv == nil {
			return []byte("null"), nil
		}
		return vv.MarshalJSON()
	case []*Record:
		b := &bytes.Buffer{}
		b.WriteByte('[')
		for i, rec := range vv {
			if i > 0 {
				b.WriteByte(',')
			}
			e, err := rec.MarshalJSON()
			if err != nil {
				return nil, err
			}
			b.Write(e)
		}
		b.WriteByte(']')
		return b.Bytes(), nil
	case map[string]*Record:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b := &bytes.Buffer{}
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			nk, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			b.Write(nk)
			b.WriteByte(':')
			e, err := vv[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			b.Write(e)
		}
		b.WriteByte('}')
		return b.Bytes(), nil
	default:
		return json.Marshal(v)
	}
}

// String renders the record as its JSON form; handy in logs and test output.
func (r *Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return "schema.Record(unprintable)"
	}
	return string(b)
}
