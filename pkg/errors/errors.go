// Package errors provides the error types shared by the artifact SDK.
// Every failure raised by the schema layer carries a Kind so callers can
// tell a bad field value from a malformed collection without parsing
// messages.
package errors

import (
	"errors"
	"strings"
)

// Kind is the category of an Error.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindFieldConstraint is a single field violating its type, length, pattern or range rule.
	KindFieldConstraint
	// KindStructural is a collection cardinality or variant discrimination failure.
	KindStructural
	// KindSchemaResource is a schema description that cannot be located.
	KindSchemaResource
	// KindDecode is content that cannot be decoded in the expected encoding.
	KindDecode
	// KindMissingKey is a key lookup for a field the document type does not declare.
	KindMissingKey
	KindInvalidInput
	KindInternal
)

var kindNames = map[Kind]string{
	KindFieldConstraint: "field_constraint",
	KindStructural:      "structural",
	KindSchemaResource:  "schema_resource",
	KindDecode:          "decode",
	KindMissingKey:      "missing_key",
	KindInvalidInput:    "invalid_input",
	KindInternal:        "internal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the error type of the SDK.
type Error struct {
	Kind Kind

	// Op is the operation or field path being processed (e.g., "schema.ParseBounty", "[0].mimetype")
	Op string

	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error renders the non-empty parts of e as "op: message: cause".
func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the sentinels below work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Kind == t.Kind
}

// E constructs an Error from its arguments, in any order: a Kind, up to
// two strings (the first is Op, the second Message) and an underlying
// error. Arguments of other types are ignored.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// Wrap records op on err and keeps its Kind. A nil err stays nil.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: GetKind(err), Op: op, Err: err}
}

// GetKind returns the Kind of the first *Error in the chain of err, or
// KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsFieldConstraint reports whether err is, or aggregates, a field constraint violation.
func IsFieldConstraint(err error) bool {
	return errors.Is(err, ErrFieldConstraint)
}

// IsStructural reports whether err is, or aggregates, a structural violation.
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructural)
}

func IsMissingKey(err error) bool {
	return GetKind(err) == KindMissingKey
}

func IsSchemaResource(err error) bool {
	return GetKind(err) == KindSchemaResource
}

func IsDecode(err error) bool {
	return GetKind(err) == KindDecode
}

// Sentinels, one per kind the schema layer raises.
var (
	ErrFieldConstraint = &Error{Kind: KindFieldConstraint, Message: "field constraint violated"}
	ErrStructural      = &Error{Kind: KindStructural, Message: "structural constraint violated"}
	ErrMissingKey      = &Error{Kind: KindMissingKey, Message: "missing key"}
	ErrSchemaNotFound  = &Error{Kind: KindSchemaResource, Message: "schema not found"}
	ErrDecode          = &Error{Kind: KindDecode, Message: "content could not be decoded"}
)
