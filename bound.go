package docbind

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/reoring/docbind/schema"
)

// Difference holds the outcome of a model-vs-document comparison. Paths are
// dotted with no leading separator and are computed per call, never persisted.
type Difference struct {
	// IncomingChanged lists fields where the compared document disagrees with
	// the current model.
	IncomingChanged []string
	// OutgoingChanged lists fields where the current model has content the
	// compared document lacks.
	OutgoingChanged []string
}

// BoundDocument glues a validated record instance to the document it was read
// from. It owns the model, an immutable snapshot taken at bind time (the diff
// baseline: what the document already reflects), and the original document
// tree, which is never mutated in place.
//
// A BoundDocument holds exclusive single-owner mutable state and provides no
// internal locking; callers needing concurrent access must serialize
// externally.
type BoundDocument struct {
	model    *schema.Record
	snapshot *schema.Record
	doc      *yaml.Node
}

// Bind validates the document against the type and constructs a BoundDocument.
// Validation happens once, eagerly; this is the only point at which an invalid
// document is rejected wholesale. Failures are classified into a
// ValidationError unless Opt.RawErrors is set, in which case the raw issue
// batch surfaces unmodified.
func Bind(t *schema.Type, doc *yaml.Node, opts ...Opt) (*BoundDocument, error) {
	opt := lastOpt(opts)
	src, err := documentMapping(doc)
	if err != nil {
		return nil, err
	}
	rec, iss := t.Validate(src)
	if len(iss) > 0 {
		return nil, failWith(iss, nil, opt)
	}
	return &BoundDocument{model: rec, snapshot: rec.DeepCopy(), doc: doc}, nil
}

func documentMapping(doc *yaml.Node) (map[string]any, error) {
	v, err := nodeToValue(doc)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("docbind: document root is not a mapping")
	}
	return m, nil
}

// Model returns the direct mutable handle to the live record instance. The
// internal snapshot is never aliased to it.
func (b *BoundDocument) Model() *schema.Record { return b.model }

func (b *BoundDocument) String() string {
	return fmt.Sprintf("BoundDocument(model=%s)", b.model)
}

// Dump returns a deep copy of the document with every field that changed since
// bind time patched in. Fields whose value still equals the snapshot are left
// untouched, which is what preserves the original formatting and comments.
// The stored document is never mutated.
func (b *BoundDocument) Dump() (*yaml.Node, error) {
	out := DeepCopyNode(b.doc)
	m := ensureRootMapping(out)
	if m == nil {
		return nil, fmt.Errorf("docbind: document root is not a mapping")
	}
	if err := applyModelDifferences(b.snapshot, b.model, m); err != nil {
		return nil, err
	}
	return out, nil
}

// applyModelDifferences walks the snapshot and the current model in lockstep
// (field order is identical because both share the schema type) and patches
// changed leaves into the mapping.
func applyModelDifferences(original, current *schema.Record, m *yaml.Node) error {
	og := original.Fields()
	cu := current.Fields()
	for i := range cu {
		name := cu[i].Name
		ogv, cuv := og[i].Value, cu[i].Value

		ogRec, ogIsRec := ogv.(*schema.Record)
		cuRec, cuIsRec := cuv.(*schema.Record)
		if ogIsRec && cuIsRec && ogRec != nil && cuRec != nil {
			sub := mapGet(m, name)
			if sub == nil {
				sub = newMapping()
				mapSet(m, name, sub)
			} else if sub = deref(sub); sub.Kind != yaml.MappingNode {
				// A scalar where a table belongs is a changed-field case, not
				// a crash: rewrite the whole subtree from the current model.
				nn, err := encodeValue(cuRec)
				if err != nil {
					return err
				}
				mapSet(m, name, nn)
				continue
			}
			if err := applyModelDifferences(ogRec, cuRec, sub); err != nil {
				return err
			}
			continue
		}

		if !schema.ValueEqual(ogv, cuv) {
			nn, err := encodeValue(cuv)
			if err != nil {
				return err
			}
			mapSet(m, name, nn)
		}
	}
	return nil
}

// GetField safely retrieves a model field by its dotted location, returning
// def when any segment is absent. A present field holding nil returns nil,
// not def.
func (b *BoundDocument) GetField(location string, def any) any {
	return recordField(b.model, location, def)
}

func recordField(rec *schema.Record, location string, def any) any {
	var cur any = rec
	for _, seg := range ParsePath(location) {
		r, ok := cur.(*schema.Record)
		if !ok || r == nil {
			return def
		}
		v, ok := r.Get(seg)
		if !ok {
			return def
		}
		cur = v
	}
	return cur
}

// SetField assigns a model field by its dotted location. The assignment
// re-validates just that field via the schema engine's assignment hook; a
// failure is classified with the known location (the raw issue's own path may
// not reflect the full dotted path) unless Opt.RawErrors is set. A missing
// intermediate segment is a plain error: model intermediates are schema-
// defined and are never created on the fly.
func (b *BoundDocument) SetField(location string, value any, opts ...Opt) error {
	opt := lastOpt(opts)
	segs := ParsePath(location)
	var cur any = b.model
	for _, seg := range segs[:len(segs)-1] {
		r, ok := cur.(*schema.Record)
		if !ok || r == nil {
			return fmt.Errorf("docbind: no such field %q", location)
		}
		v, ok := r.Get(seg)
		if !ok {
			return fmt.Errorf("docbind: no such field %q", location)
		}
		cur = v
	}
	r, ok := cur.(*schema.Record)
	if !ok || r == nil {
		return fmt.Errorf("docbind: no such field %q", location)
	}
	if iss := r.Set(segs[len(segs)-1], value); len(iss) > 0 {
		return failWith(iss, Path(segs), opt)
	}
	return nil
}

// Diff walks the current model against an incoming document in lockstep by
// field and classifies every discrepancy. The model's shape is the reference:
// a field absent from the incoming side is outgoing-changed, a present but
// unequal (or structurally mismatched) field is incoming-changed.
//
// Sequence- and mapping-of-record fields compare as whole leaves, index-
// aligned; a reordered sequence therefore reports as an incoming change of
// the whole field.
func (b *BoundDocument) Diff(incoming *yaml.Node) Difference {
	d := Difference{IncomingChanged: []string{}, OutgoingChanged: []string{}}
	findDifferences(Path{}, b.model, rootMapping(incoming), &d)
	return d
}

func findDifferences(base Path, outgoing *schema.Record, incoming *yaml.Node, d *Difference) {
	for _, fv := range outgoing.Fields() {
		p := base.child(fv.Name)

		if rec, ok := fv.Value.(*schema.Record); ok && rec != nil {
			if incoming == nil || !mapHas(incoming, fv.Name) {
				d.OutgoingChanged = append(d.OutgoingChanged, p.String())
				continue
			}
			in := deref(mapGet(incoming, fv.Name))
			if in.Kind != yaml.MappingNode {
				// The model is the source of truth; a non-mapping where a
				// record lives means the incoming side changed.
				d.IncomingChanged = append(d.IncomingChanged, p.String())
				continue
			}
			findDifferences(p, rec, in, d)
			continue
		}

		if incoming == nil || !mapHas(incoming, fv.Name) {
			d.OutgoingChanged = append(d.OutgoingChanged, p.String())
			continue
		}
		if !leafEqual(fv.Value, mapGet(incoming, fv.Name)) {
			d.IncomingChanged = append(d.IncomingChanged, p.String())
		}
	}
}

// LoadFrom merges fields from an incoming document into the model. By default
// the merge is selective: a field that was modified locally since bind time
// (or that the diff reports as outgoing-changed) is never clobbered. Pass
// Opt{All: true} to override every incoming-changed field regardless.
//
// The merge is two-phase: every assignment runs against a trial copy, and the
// live model adopts the trial state only after the full loop validated. A
// failed merge leaves the live state untouched.
func (b *BoundDocument) LoadFrom(incoming *yaml.Node, opts ...Opt) error {
	opt := lastOpt(opts)
	d := b.Diff(incoming)

	outgoing := make(map[string]struct{}, len(d.OutgoingChanged))
	for _, p := range d.OutgoingChanged {
		outgoing[p] = struct{}{}
	}

	trial := &BoundDocument{
		model:    b.model.DeepCopy(),
		snapshot: b.snapshot.DeepCopy(),
		doc:      DeepCopyNode(b.doc),
	}

	for _, loc := range d.IncomingChanged {
		if !opt.All {
			if _, also := outgoing[loc]; also {
				continue
			}
			if !schema.ValueEqual(b.GetField(loc, nil), recordField(b.snapshot, loc, nil)) {
				continue
			}
		}
		if b.GetField(loc, nil) == nil {
			continue
		}
		if err := trial.SetField(loc, GetAt(incoming, loc, nil), opts...); err != nil {
			return err
		}
	}

	b.model = trial.model
	return nil
}
