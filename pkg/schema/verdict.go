package schema

import (
	"bytes"
	"sort"

	"github.com/exploopio/artifact/pkg/errors"
)

// ExtraField is an extension field of a verdict: any key outside the
// declared set, with any JSON value.
type ExtraField struct {
	Key   string
	Value any
}

// Verdict is one scanner's analysis result for one artifact.
type Verdict struct {
	// MalwareFamily is the name of the malware family. Required.
	MalwareFamily string
	Domains       []string
	IPAddresses   []string
	Stix          []StixSignature
	Scanner       *Scanner
	// Heuristic marks verdicts reached by heuristics rather than signatures.
	Heuristic *bool

	extras []ExtraField
}

var verdictFields = []string{"malware_family", "domains", "ip_addresses", "stix", "scanner", "heuristic"}

func isVerdictField(key string) bool {
	for _, f := range verdictFields {
		if f == key {
			return true
		}
	}
	return false
}

func (vd *Verdict) Kind() Kind { return KindVerdict }

// Extra returns the extension fields in insertion order.
func (vd *Verdict) Extra() []ExtraField {
	out := make([]ExtraField, len(vd.extras))
	for i, e := range vd.extras {
		out[i] = ExtraField{Key: e.Key, Value: cloneValue(e.Value)}
	}
	return out
}

// setExtra adds key or replaces its value in place.
func (vd *Verdict) setExtra(key string, value any) {
	for i := range vd.extras {
		if vd.extras[i].Key == key {
			vd.extras[i].Value = value
			return
		}
	}
	vd.extras = append(vd.extras, ExtraField{Key: key, Value: value})
}

func checkExtraKey(key string) error {
	if key == "" {
		return errors.E(errors.KindFieldConstraint, "extra", "key must not be empty")
	}
	if isVerdictField(key) {
		return errors.E(errors.KindFieldConstraint, "extra", key+" is a declared verdict field")
	}
	return nil
}

// check validates the declared fields. Extension fields only have to be
// representable in JSON.
func (vd *Verdict) check(v *validator, path string) {
	v.required(joinPath(path, "malware_family"), vd.MalwareFamily)
	for i, d := range vd.Domains {
		p := indexPath(joinPath(path, "domains"), i)
		v.required(p, d).constraint(p, d, Domain)
	}
	for i, ip := range vd.IPAddresses {
		p := indexPath(joinPath(path, "ip_addresses"), i)
		v.required(p, ip).constraint(p, ip, IPAddress)
	}
	for i := range vd.Stix {
		vd.Stix[i].check(v, indexPath(joinPath(path, "stix"), i))
	}
	if vd.Scanner != nil {
		vd.Scanner.check(v, joinPath(path, "scanner"))
	}
	for _, e := range vd.extras {
		if e.Value == nil {
			continue
		}
		var buf bytes.Buffer
		if err := encodeCanonical(&buf, e.Value); err != nil {
			v.add(joinPath(path, e.Key), errors.KindFieldConstraint, "value is not representable in JSON")
		}
	}
}

func (vd *Verdict) CheckConsistency() error {
	v := &validator{}
	vd.check(v, "")
	return v.err(KindVerdict)
}

func (vd *Verdict) canonical() any {
	var o object
	o.set("malware_family", vd.MalwareFamily)
	o.set("domains", vd.Domains)
	o.set("ip_addresses", vd.IPAddresses)
	if len(vd.Stix) > 0 {
		stix := make([]any, len(vd.Stix))
		for i := range vd.Stix {
			stix[i] = vd.Stix[i].object()
		}
		o.set("stix", stix)
	}
	if vd.Scanner != nil {
		o.set("scanner", vd.Scanner.object())
	}
	o.set("heuristic", vd.Heuristic)
	for _, e := range vd.extras {
		if e.Value != nil {
			o = append(o, member{key: e.Key, value: e.Value})
		}
	}
	return o
}

// JSON returns the canonical JSON of the verdict.
func (vd *Verdict) JSON() ([]byte, error) { return Marshal(vd) }

// Get returns the value of a declared or extension field, or nil when a
// declared field is unset.
func (vd *Verdict) Get(key string) (any, error) {
	switch key {
	case "malware_family":
		if vd.MalwareFamily == "" {
			return nil, nil
		}
		return vd.MalwareFamily, nil
	case "domains":
		return append([]string(nil), vd.Domains...), nil
	case "ip_addresses":
		return append([]string(nil), vd.IPAddresses...), nil
	case "stix":
		out := make([]StixSignature, len(vd.Stix))
		for i, s := range vd.Stix {
			out[i] = s.clone()
		}
		return out, nil
	case "scanner":
		if vd.Scanner == nil {
			return nil, nil
		}
		return vd.Scanner.clone(), nil
	case "heuristic":
		if vd.Heuristic == nil {
			return nil, nil
		}
		return *vd.Heuristic, nil
	}
	for _, e := range vd.extras {
		if e.Key == key {
			return cloneValue(e.Value), nil
		}
	}
	return nil, missingKey(KindVerdict, key)
}

func (vd *Verdict) clone() *Verdict {
	if vd == nil {
		return nil
	}
	c := &Verdict{
		MalwareFamily: vd.MalwareFamily,
		Domains:       append([]string(nil), vd.Domains...),
		IPAddresses:   append([]string(nil), vd.IPAddresses...),
		Scanner:       vd.Scanner.clone(),
	}
	if vd.Stix != nil {
		c.Stix = make([]StixSignature, len(vd.Stix))
		for i, s := range vd.Stix {
			c.Stix[i] = s.clone()
		}
	}
	if vd.Heuristic != nil {
		c.Heuristic = boolPtr(*vd.Heuristic)
	}
	for _, e := range vd.extras {
		c.extras = append(c.extras, ExtraField{Key: e.Key, Value: cloneValue(e.Value)})
	}
	return c
}

// parseVerdict reads the declared fields and keeps every other non-null
// key as an extension field, sorted by key.
func parseVerdict(v *validator, value any, path string) *Verdict {
	m, ok := asObject(value)
	if !ok {
		v.add(path, errors.KindFieldConstraint, "value is not a valid dict")
		return nil
	}
	vd := &Verdict{
		MalwareFamily: v.str(m, path, "malware_family"),
		Domains:       v.stringList(m, path, "domains"),
		IPAddresses:   v.stringList(m, path, "ip_addresses"),
		Heuristic:     v.boolean(m, path, "heuristic"),
	}

	if raw, ok := field(m, "stix"); ok {
		stixPath := joinPath(path, "stix")
		list, ok := asList(raw)
		if !ok {
			v.add(stixPath, errors.KindFieldConstraint, "value is not a valid list")
		}
		for i, item := range list {
			if s := parseStixSignature(v, item, indexPath(stixPath, i)); s != nil {
				vd.Stix = append(vd.Stix, *s)
			}
		}
	}

	if raw, ok := field(m, "scanner"); ok {
		vd.Scanner = parseScanner(v, raw, joinPath(path, "scanner"))
	}

	var keys []string
	for k := range m {
		if !isVerdictField(k) && m[k] != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		vd.extras = append(vd.extras, ExtraField{Key: k, Value: cloneValue(m[k])})
	}
	return vd
}

// ParseVerdict validates a decoded JSON object as a verdict.
func ParseVerdict(value any) (*Verdict, error) {
	return parseTyped(KindVerdict, value, parseVerdict)
}

// ValidateVerdict is the non-failing form of ParseVerdict.
func ValidateVerdict(value any) (*Verdict, bool) {
	return validateTyped(KindVerdict, value, ParseVerdict)
}
