package schema

import "github.com/exploopio/artifact/pkg/errors"

// Assertion is the ordered list of verdicts returned for a bounty.
type Assertion struct {
	verdicts []*Verdict
}

// NewAssertion returns an assertion holding copies of verdicts. It is not
// validated; call CheckConsistency or JSON.
func NewAssertion(verdicts ...*Verdict) *Assertion {
	a := &Assertion{}
	for _, vd := range verdicts {
		a.verdicts = append(a.verdicts, vd.clone())
	}
	return a
}

func (a *Assertion) Kind() Kind { return KindAssertion }

// Len returns the number of verdicts.
func (a *Assertion) Len() int { return len(a.verdicts) }

// At returns the i-th verdict.
func (a *Assertion) At(i int) *Verdict { return a.verdicts[i] }

// Verdicts returns the verdicts in order.
func (a *Assertion) Verdicts() []*Verdict {
	return append([]*Verdict(nil), a.verdicts...)
}

func (a *Assertion) check(v *validator) {
	v.items("", len(a.verdicts), MinItems, MaxItems)
	for i, vd := range a.verdicts {
		if vd == nil {
			v.add(indexPath("", i), errors.KindStructural, "verdict is nil")
			continue
		}
		vd.check(v, indexPath("", i))
	}
}

func (a *Assertion) CheckConsistency() error {
	v := &validator{}
	a.check(v)
	return v.err(KindAssertion)
}

func (a *Assertion) canonical() any {
	out := make([]any, 0, len(a.verdicts))
	for _, vd := range a.verdicts {
		if vd != nil {
			out = append(out, vd.canonical())
		}
	}
	return out
}

// JSON returns the canonical JSON of the assertion.
func (a *Assertion) JSON() ([]byte, error) { return Marshal(a) }

func (a *Assertion) clone() *Assertion {
	return NewAssertion(a.verdicts...)
}

func parseAssertion(v *validator, value any, path string) *Assertion {
	list, ok := asList(value)
	if !ok {
		v.add(path, errors.KindStructural, "value is not a valid list")
		return nil
	}
	a := &Assertion{}
	for i, item := range list {
		if vd := parseVerdict(v, item, indexPath(path, i)); vd != nil {
			a.verdicts = append(a.verdicts, vd)
		}
	}
	return a
}

// ParseAssertion validates a decoded JSON list as an assertion.
func ParseAssertion(value any) (*Assertion, error) {
	return parseTyped(KindAssertion, value, parseAssertion)
}

// ValidateAssertion is the non-failing form of ParseAssertion.
func ValidateAssertion(value any) (*Assertion, bool) {
	return validateTyped(KindAssertion, value, ParseAssertion)
}
