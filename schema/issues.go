package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Raw issue codes emitted by the validation engine. The docbind classifier maps
// these onto its closed document-error taxonomy; everything not listed in its
// table is treated as a value error.
const (
	CodeMissing         = "missing"
	CodeFrozenField     = "frozen_field"
	CodeFrozenInstance  = "frozen_instance"
	CodeNoSuchAttribute = "no_such_attribute"
	CodeExtraForbidden  = "extra_forbidden"
	CodeInvalidType     = "invalid_type"
	CodeTooSmall        = "too_small"
	CodeTooBig          = "too_big"
	CodeInvalidEnum     = "invalid_enum"
	CodeStringTooShort  = "string_too_short"
	CodeStringTooLong   = "string_too_long"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    []string // Field-name segments from the record root.
	Code    string   // One of the codes listed above.
	Message string
}

// Issues is a collection of validation entries that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(iss)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s at %s", it.Code, strings.Join(it.Path, "."))
	}
	if n := len(iss); n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// rebase prefixes every issue path with the given field segment.
func rebase(iss Issues, seg string) Issues {
	out := make(Issues, 0, len(iss))
	for _, it := range iss {
		p := make([]string, 0, len(it.Path)+1)
		p = append(p, seg)
		p = append(p, it.Path...)
		out = append(out, Issue{Path: p, Code: it.Code, Message: it.Message})
	}
	return out
}
