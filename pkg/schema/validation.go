package schema

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/exploopio/artifact/pkg/errors"
)

// FieldError is one offending field of a document.
type FieldError struct {
	// Path locates the field, e.g. "mimetype", "stix[0].schema" or "[3].uri".
	// An empty path refers to the document itself.
	Path    string
	Kind    errors.Kind
	Message string
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationError aggregates every field that failed validation.
type ValidationError struct {
	Document Kind
	Errors   []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Error())
	}
	noun := "errors"
	if len(e.Errors) == 1 {
		noun = "error"
	}
	return fmt.Sprintf("%d validation %s for %s: %s", len(e.Errors), noun, e.Document, strings.Join(msgs, "; "))
}

// Unwrap exposes each field failure as an *errors.Error so callers can
// match categories with errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, fe := range e.Errors {
		errs = append(errs, &errors.Error{Kind: fe.Kind, Op: fe.Path, Message: fe.Message})
	}
	return errs
}

// Fields returns the paths of the offending fields, in report order.
func (e *ValidationError) Fields() []string {
	paths := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		paths = append(paths, fe.Path)
	}
	return paths
}

// AsValidationError extracts a *ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// validator accumulates field errors while a document is checked.
type validator struct {
	errs []FieldError
}

func (v *validator) add(path string, kind errors.Kind, format string, args ...interface{}) {
	v.errs = append(v.errs, FieldError{Path: path, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// addErr records err, keeping the message of an *errors.Error without its Op.
func (v *validator) addErr(path string, err error) {
	var e *errors.Error
	if stderrors.As(err, &e) {
		v.errs = append(v.errs, FieldError{Path: path, Kind: e.Kind, Message: e.Message})
		return
	}
	v.errs = append(v.errs, FieldError{Path: path, Kind: errors.KindFieldConstraint, Message: err.Error()})
}

// merge re-roots the failures of a nested document under prefix.
func (v *validator) merge(prefix string, err error) {
	if ve, ok := AsValidationError(err); ok {
		for _, fe := range ve.Errors {
			fe.Path = joinPath(prefix, fe.Path)
			v.errs = append(v.errs, fe)
		}
		return
	}
	if err != nil {
		v.addErr(prefix, err)
	}
}

func (v *validator) required(path, value string) *validator {
	if value == "" {
		v.add(path, errors.KindFieldConstraint, "field required")
	}
	return v
}

// constraint checks value against c when the value is set.
func (v *validator) constraint(path, value string, c StringConstraint) *validator {
	if value == "" {
		return v
	}
	if err := c.Check(value); err != nil {
		v.addErr(path, err)
	}
	return v
}

func (v *validator) items(path string, n, min, max int) *validator {
	if n < min {
		v.add(path, errors.KindStructural, "ensure this value has at least %d items", min)
	}
	if n > max {
		v.add(path, errors.KindStructural, "ensure this value has at most %d items", max)
	}
	return v
}

func (v *validator) ok() bool { return len(v.errs) == 0 }

func (v *validator) err(doc Kind) error {
	if len(v.errs) == 0 {
		return nil
	}
	return &ValidationError{Document: doc, Errors: append([]FieldError(nil), v.errs...)}
}

func joinPath(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	case strings.HasPrefix(field, "["):
		return prefix + field
	default:
		return prefix + "." + field
	}
}

func indexPath(prefix string, i int) string {
	return prefix + "[" + strconv.Itoa(i) + "]"
}
