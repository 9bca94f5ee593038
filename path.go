package docbind

import "strings"

// Path is an ordered sequence of field-name segments addressing a node in
// either tree: the model or the document. Paths render dotted with no leading
// separator.
type Path []string

// ParsePath splits a dotted location into its segments.
func ParsePath(location string) Path {
	return Path(strings.Split(location, "."))
}

// String renders the path in dotted form.
func (p Path) String() string { return strings.Join(p, ".") }

// Equal reports segment-wise equality; equal paths address the same node
// identity across trees.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// child extends the path by one segment without sharing backing storage.
func (p Path) child(seg string) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)
	return append(out, seg)
}
