package docbind

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/docbind/schema"
)

// Kind is the closed taxonomy of document-oriented error kinds.
type Kind string

const (
	KindMissingField      Kind = "missing_field"       // required field absent from the document
	KindInvalidValue      Kind = "invalid_value"       // present value fails a type/constraint check
	KindFrozenField       Kind = "frozen_field"        // assignment to an immutable field or instance
	KindUnknownField      Kind = "unknown_field"       // undeclared field rejected by a closed type
	KindNonContainerWrite Kind = "non_container_write" // path-set through a scalar intermediate
)

// FieldError is a single classified validation failure. It is immutable once
// constructed and always carries the originating raw issue.
type FieldError struct {
	Kind    Kind         `json:"kind"`
	Path    Path         `json:"path"`
	Message string       `json:"message"`
	Raw     schema.Issue `json:"raw"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
}

// ValidationError aggregates one or more classified failures. It is produced
// at bind time, at SetField time, and at merge time, and is always raised as a
// unit: partial acceptance of a subset of fields is never possible.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	n := len(e.Errors)
	noun := "errors"
	if n == 1 {
		noun = "error"
	}
	b := &strings.Builder{}
	fmt.Fprintf(b, "%d %s occurred while validating the document:", n, noun)
	for _, fe := range e.Errors {
		fmt.Fprintf(b, "\n  Field %q: %s (%s)", fe.Path.String(), fe.Message, fe.Raw.Code)
	}
	return b.String()
}

// MarshalJSON renders the structured error list for programmatic inspection.
func (e *ValidationError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Errors []FieldError `json:"errors"`
	}{Errors: e.Errors})
}

// AsValidation extracts a ValidationError using errors.As internally.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NonContainerWriteError reports a path-set that ran into a scalar where a
// mapping was needed. Path names the offending intermediate. It is always
// raised untranslated: there is no schema context to translate against.
type NonContainerWriteError struct {
	Path Path
}

func (e *NonContainerWriteError) Error() string {
	return fmt.Sprintf("attempting to set a field inside a non-mapping at location '%s'", e.Path)
}

// Kind returns KindNonContainerWrite for uniform handling with FieldError.
func (e *NonContainerWriteError) Kind() Kind { return KindNonContainerWrite }

// AsNonContainerWrite extracts a NonContainerWriteError via errors.As.
func AsNonContainerWrite(err error) (*NonContainerWriteError, bool) {
	var ne *NonContainerWriteError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// defaultMessages backfills human text for raw issues that arrive without one.
var defaultMessages = map[Kind]string{
	KindMissingField: "the required field is missing from the document",
	KindFrozenField:  "attempting to override a field that is frozen or an instance that is frozen",
	KindUnknownField: "the field does not exist or is an extra field not declared on the type",
	KindInvalidValue: "unknown value error",
}

// Classify translates a batch of raw issues into a ValidationError.
//
// override carries the known full path when the batch arose from a direct
// path-addressed assignment, where the raw issue's own location may not
// reflect the full dotted path. Issues without a code are skipped. First
// match wins; anything unlisted classifies as an invalid value. A batch in
// which every issue was skipped yields nil, not an empty ValidationError.
func Classify(iss schema.Issues, override Path) error {
	errs := make([]FieldError, 0, len(iss))
	for _, raw := range iss {
		loc := Path{"unknown"}
		if override != nil {
			loc = override
		} else if segs, err := TypedSlice[string](raw.Path); err == nil && len(segs) > 0 {
			loc = Path(segs)
		}

		var kind Kind
		switch raw.Code {
		case "":
			continue
		case schema.CodeMissing:
			kind = KindMissingField
		case schema.CodeFrozenField, schema.CodeFrozenInstance:
			kind = KindFrozenField
		case schema.CodeNoSuchAttribute, schema.CodeExtraForbidden:
			kind = KindUnknownField
		default:
			kind = KindInvalidValue
		}

		msg := raw.Message
		if msg == "" {
			msg = defaultMessages[kind]
		}
		errs = append(errs, FieldError{Kind: kind, Path: loc, Message: msg, Raw: raw})
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// failWith picks between the classified and the raw error shape per the
// caller's option.
func failWith(iss schema.Issues, override Path, opt Opt) error {
	if opt.RawErrors {
		return iss
	}
	return Classify(iss, override)
}

// Opt bundles per-call options. The last option in a variadic list wins.
type Opt struct {
	// RawErrors surfaces the schema engine's raw issue batch instead of the
	// classified ValidationError.
	RawErrors bool
	// All disables selective merging in LoadFrom: every incoming change is
	// applied, including fields modified locally since bind time.
	All bool
}

func lastOpt(opts []Opt) Opt {
	if len(opts) > 0 {
		return opts[len(opts)-1]
	}
	return Opt{}
}
