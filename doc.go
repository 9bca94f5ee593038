// Package docbind binds schema-validated record instances to comment- and
// order-preserving YAML documents, and keeps the two synchronized:
//
//   - Bind validates a document against a schema type once, eagerly, and owns
//     the resulting model together with an immutable snapshot and the document.
//   - Dump patches only the fields that changed since bind time into a deep
//     copy of the document, so untouched formatting and comments survive.
//   - Diff classifies every leaf as incoming-changed (the document disagrees
//     with the model) or outgoing-changed (the model has content the document
//     lacks).
//   - LoadFrom selectively merges an incoming document, never clobbering local
//     edits, and commits all-or-nothing via a trial copy.
//
// Design policy:
//   - Keep only public APIs in the root package; the validation engine lives
//     under schema/.
//   - The document engine is gopkg.in/yaml.v3's Node tree; the core performs
//     no I/O of its own.
//   - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	t := schema.Object().
//		Field("project", schema.RecordOf(project)).Required().Done()
//	doc, err := docbind.Parse(data)
//	bound, err := docbind.Bind(t, doc)
//	err = bound.SetField("project.name", "renamed")
//	out, err := bound.Dump()
//	text, err := docbind.Marshal(out)
package docbind
