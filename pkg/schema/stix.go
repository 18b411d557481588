package schema

import "github.com/exploopio/artifact/pkg/errors"

// StixSignature references a STIX indicator: the schema it conforms to
// and the signature payload, which may be any JSON value.
type StixSignature struct {
	Schema    string
	Signature any
}

func (s *StixSignature) Kind() Kind { return KindStixSignature }

func (s *StixSignature) check(v *validator, path string) {
	v.required(joinPath(path, "schema"), s.Schema)
	if s.Signature == nil {
		v.add(joinPath(path, "signature"), errors.KindFieldConstraint, "field required")
	}
}

func (s *StixSignature) CheckConsistency() error {
	v := &validator{}
	s.check(v, "")
	return v.err(KindStixSignature)
}

func (s *StixSignature) canonical() any { return s.object() }

func (s *StixSignature) object() object {
	var o object
	o.set("schema", s.Schema)
	if s.Signature != nil {
		o = append(o, member{key: "signature", value: s.Signature})
	}
	return o
}

// JSON returns the canonical JSON of the signature.
func (s *StixSignature) JSON() ([]byte, error) { return Marshal(s) }

// Get returns the value of a declared field, or nil when it is unset.
func (s *StixSignature) Get(key string) (any, error) {
	switch key {
	case "schema":
		if s.Schema == "" {
			return nil, nil
		}
		return s.Schema, nil
	case "signature":
		return s.Signature, nil
	}
	return nil, missingKey(KindStixSignature, key)
}

func (s StixSignature) clone() StixSignature {
	return StixSignature{Schema: s.Schema, Signature: cloneValue(s.Signature)}
}

func parseStixSignature(v *validator, value any, path string) *StixSignature {
	m, ok := asObject(value)
	if !ok {
		v.add(path, errors.KindFieldConstraint, "value is not a valid dict")
		return nil
	}
	s := &StixSignature{Schema: v.str(m, path, "schema")}
	if raw, ok := field(m, "signature"); ok {
		s.Signature = cloneValue(raw)
	}
	return s
}

// ParseStixSignature validates a decoded JSON object as a STIX signature.
func ParseStixSignature(value any) (*StixSignature, error) {
	return parseTyped(KindStixSignature, value, parseStixSignature)
}

// ValidateStixSignature is the non-failing form of ParseStixSignature.
func ValidateStixSignature(value any) (*StixSignature, bool) {
	return validateTyped(KindStixSignature, value, ParseStixSignature)
}
