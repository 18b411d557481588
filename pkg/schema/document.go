// Package schema defines the documents exchanged in a bounty workflow:
// bounties of file or URL artifacts and assertions of verdicts.
//
// Documents are plain Go values. Parse functions validate fully keyed
// input immediately; builders accept fields incrementally and defer the
// required-field checks to Build. Serialization emits only the fields
// that are set, in declaration order, and never emits a document that
// fails its own consistency check.
package schema

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/exploopio/artifact/pkg/core"
	"github.com/exploopio/artifact/pkg/errors"
	"github.com/exploopio/artifact/pkg/metrics"
)

// Kind names a document type.
type Kind string

const (
	KindFileArtifact  Kind = "file_artifact"
	KindURLArtifact   Kind = "url_artifact"
	KindScanner       Kind = "scanner"
	KindStixSignature Kind = "stix_signature"
	KindVerdict       Kind = "verdict"
	KindBounty        Kind = "bounty"
	KindAssertion     Kind = "assertion"
)

// Kinds returns every document kind, leaves first.
func Kinds() []Kind {
	return []Kind{
		KindFileArtifact, KindURLArtifact, KindScanner, KindStixSignature,
		KindVerdict, KindBounty, KindAssertion,
	}
}

func (k Kind) String() string { return string(k) }

// Document is implemented by every document type of this package.
type Document interface {
	Kind() Kind

	// CheckConsistency re-runs every field rule against the current values.
	// It returns nil or a *ValidationError naming each offending field.
	CheckConsistency() error

	// canonical returns the pruned output form of the document.
	canonical() any
}

// =============================================================================
// Canonical form
// =============================================================================

// object is an ordered JSON object.
type object []member

type member struct {
	key   string
	value any
}

// set appends key unless value is absent: nil, "", 0, an empty list or an
// empty object.
func (o *object) set(key string, value any) {
	if isEmpty(value) {
		return
	}
	*o = append(*o, member{key: key, value: value})
}

// MarshalJSON keeps member order.
func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case int64:
		return t == 0
	case *bool:
		return t == nil
	case object:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case object:
		buf.WriteByte('{')
		for i, m := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeScalar(buf, m.key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeCanonical(buf, m.value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case *bool:
		return encodeScalar(buf, *t)
	}
	return encodeScalar(buf, v)
}

// encodeScalar writes compact JSON without HTML escaping.
func encodeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return errors.E(errors.KindInternal, "schema.encode", "value is not representable as JSON", err)
	}
	// Encode terminates each value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// =============================================================================
// Serialization
// =============================================================================

// Marshal checks doc and returns its canonical compact JSON.
func Marshal(doc Document) ([]byte, error) {
	if doc == nil || reflect.ValueOf(doc).IsNil() {
		return nil, errors.E(errors.KindInvalidInput, "schema.Marshal", "nil document")
	}
	if err := doc.CheckConsistency(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, doc.canonical()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToValue checks doc and returns its canonical form as plain values:
// map[string]any, []any, string, int64, float64 and bool.
func ToValue(doc Document) (any, error) {
	data, err := Marshal(doc)
	if err != nil {
		return nil, err
	}
	v, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

// DecodeJSON decodes one JSON value into plain values for Parse. Numbers
// are kept as json.Number so integers survive exactly; trailing data is a
// Decode error.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.E(errors.KindDecode, "schema.DecodeJSON", "invalid JSON", err)
	}
	if dec.More() {
		return nil, errors.E(errors.KindDecode, "schema.DecodeJSON", "trailing data after JSON value")
	}
	return v, nil
}

// =============================================================================
// Parsing and validation
// =============================================================================

// Parse builds a document of the given kind from a decoded JSON value
// and validates it.
func Parse(kind Kind, value any) (Document, error) {
	switch kind {
	case KindFileArtifact:
		return ParseFileArtifact(value)
	case KindURLArtifact:
		return ParseURLArtifact(value)
	case KindScanner:
		return ParseScanner(value)
	case KindStixSignature:
		return ParseStixSignature(value)
	case KindVerdict:
		return ParseVerdict(value)
	case KindBounty:
		return ParseBounty(value)
	case KindAssertion:
		return ParseAssertion(value)
	}
	return nil, errors.E(errors.KindInvalidInput, "schema.Parse", "unknown document kind "+string(kind))
}

// ParseJSON decodes data, preserving number precision, then parses it.
func ParseJSON(kind Kind, data []byte) (Document, error) {
	v, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return Parse(kind, v)
}

// Check is Parse with the outcome recorded: rejections are logged at
// debug level and every call is counted and timed.
func Check(kind Kind, value any) (Document, error) {
	timer := startTimer(kind)
	doc, err := Parse(kind, value)
	observe(kind, timer, err)
	return doc, err
}

// Validate is the non-failing form of Check: it returns the document and
// true, or nil and false.
func Validate(kind Kind, value any) (Document, bool) {
	doc, err := Check(kind, value)
	if err != nil {
		return nil, false
	}
	return doc, true
}

// parseTyped runs parse and narrows the result for the typed entry points.
func parseTyped[T Document](kind Kind, value any, parse func(*validator, any, string) T) (T, error) {
	var zero T
	v := &validator{}
	doc := parse(v, value, "")
	if !v.ok() {
		return zero, v.err(kind)
	}
	if err := doc.CheckConsistency(); err != nil {
		return zero, err
	}
	return doc, nil
}

func validateTyped[T Document](kind Kind, value any, parse func(any) (T, error)) (T, bool) {
	timer := startTimer(kind)
	doc, err := parse(value)
	observe(kind, timer, err)
	if err != nil {
		var zero T
		return zero, false
	}
	return doc, true
}

// startTimer times one finalization of kind.
func startTimer(kind Kind) *metrics.Timer {
	return metrics.NewTimer(metrics.GetDefaultCollector(), metrics.ValidationDuration.Name, "kind", string(kind))
}

// observe logs and counts one finalization.
func observe(kind Kind, timer *metrics.Timer, err error) {
	timer.ObserveDuration()

	result := metrics.ResultAccepted
	if err != nil {
		result = metrics.ResultRejected
		core.GetDefaultLogger().Debug("%s rejected: %v", kind, err)
	}
	metrics.GetDefaultCollector().CounterInc(metrics.ValidationsTotal.Name, "kind", string(kind), "result", result)
}

// =============================================================================
// Equality
// =============================================================================

// Equal reports whether doc has exactly the fields of other. other may be
// a Document, a map[string]any or a []any. Members of a plain mapping
// that a document never emits (nulls, empty strings, zero numbers, empty
// lists and empty objects) are ignored. Equality does not require doc to
// be valid.
func Equal(doc Document, other any) bool {
	if doc == nil || reflect.ValueOf(doc).IsNil() {
		return other == nil
	}
	left, err := plain(doc.canonical())
	if err != nil {
		return false
	}

	var right any
	if d, ok := other.(Document); ok {
		if d == nil || reflect.ValueOf(d).IsNil() {
			return false
		}
		right, err = plain(d.canonical())
	} else {
		right, err = plain(other)
		right = pruneDefaults(right)
	}
	if err != nil {
		return false
	}
	return reflect.DeepEqual(left, right)
}

// plain round-trips v through JSON so both sides share one representation.
func plain(v any) (any, error) {
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return DecodeJSON(buf.Bytes())
}

// pruneDefaults drops the members of plain mappings that a document
// would not emit: nulls, empty strings, zero numbers, empty lists and
// objects left empty after pruning. List elements are pruned but never
// removed.
func pruneDefaults(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			e = pruneDefaults(e)
			if isDefault(e) {
				delete(t, k)
				continue
			}
			t[k] = e
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = pruneDefaults(e)
		}
		return t
	}
	return v
}

// isDefault is isEmpty for values decoded from JSON.
func isDefault(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case json.Number:
		return t == "0"
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// missingKey is returned by Get for keys a document type does not declare.
func missingKey(kind Kind, key string) error {
	return errors.E(errors.KindMissingKey, string(kind)+".Get", "no field named "+key, errors.ErrMissingKey)
}
