package schema

import (
	"github.com/exploopio/artifact/pkg/errors"
)

// Builders accumulate a document call by call. Each method checks its own
// arguments; a rejected argument is recorded and leaves the document
// untouched. Required fields and collection bounds are only enforced by
// Build, which reports recorded failures together with the document's own
// consistency errors.

// recorder holds argument failures seen by a builder.
type recorder struct {
	errs []FieldError
}

func (r *recorder) record(path string, err error) {
	v := &validator{}
	v.merge(path, err)
	r.errs = append(r.errs, v.errs...)
}

func (r *recorder) recordf(path string, kind errors.Kind, format string, args ...interface{}) {
	v := &validator{}
	v.add(path, kind, format, args...)
	r.errs = append(r.errs, v.errs...)
}

// finish validates doc and merges recorded failures ahead of its own.
func (r *recorder) finish(kind Kind, doc Document) error {
	timer := startTimer(kind)
	v := &validator{errs: append([]FieldError(nil), r.errs...)}
	v.merge("", doc.CheckConsistency())
	err := v.err(kind)
	observe(kind, timer, err)
	return err
}

// =============================================================================
// BountyBuilder
// =============================================================================

// BountyBuilder builds a Bounty.
type BountyBuilder struct {
	recorder
	bounty Bounty
}

// NewBountyBuilder returns an empty bounty builder.
func NewBountyBuilder() *BountyBuilder {
	return &BountyBuilder{}
}

func (b *BountyBuilder) nextPath() string {
	return indexPath("", len(b.bounty.artifacts))
}

// AddFileArtifact appends a file artifact if it is valid on its own.
func (b *BountyBuilder) AddFileArtifact(a FileArtifact) *BountyBuilder {
	if err := a.CheckConsistency(); err != nil {
		b.record(b.nextPath(), err)
		return b
	}
	b.bounty.artifacts = append(b.bounty.artifacts, &a)
	return b
}

// AddURLArtifact appends a URL artifact. A non-empty protocol replaces the
// scheme of uri before it is stored.
func (b *BountyBuilder) AddURLArtifact(uri, protocol string) *BountyBuilder {
	if uri == "" {
		b.recordf(joinPath(b.nextPath(), "uri"), errors.KindFieldConstraint, "field required")
		return b
	}
	a := &URLArtifact{URI: withProtocol(uri, protocol)}
	if err := a.CheckConsistency(); err != nil {
		b.record(b.nextPath(), err)
		return b
	}
	b.bounty.artifacts = append(b.bounty.artifacts, a)
	return b
}

// AddArtifact appends a copy of an already typed artifact.
func (b *BountyBuilder) AddArtifact(a Artifact) *BountyBuilder {
	if a == nil {
		b.recordf(b.nextPath(), errors.KindStructural, "artifact is nil")
		return b
	}
	b.bounty.artifacts = append(b.bounty.artifacts, a.clone())
	return b
}

// AddArtifacts appends each artifact in order.
func (b *BountyBuilder) AddArtifacts(artifacts []Artifact) *BountyBuilder {
	for _, a := range artifacts {
		b.AddArtifact(a)
	}
	return b
}

// Draft returns a copy of the bounty as built so far, without validation.
func (b *BountyBuilder) Draft() *Bounty {
	return b.bounty.clone()
}

// Build validates the bounty and returns a copy of it.
func (b *BountyBuilder) Build() (*Bounty, error) {
	draft := b.Draft()
	if err := b.finish(KindBounty, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// JSON builds the bounty and returns its canonical JSON.
func (b *BountyBuilder) JSON() ([]byte, error) {
	bounty, err := b.Build()
	if err != nil {
		return nil, err
	}
	return Marshal(bounty)
}

// =============================================================================
// AssertionBuilder
// =============================================================================

// AssertionBuilder builds an Assertion.
type AssertionBuilder struct {
	recorder
	assertion Assertion
}

// NewAssertionBuilder returns an empty assertion builder.
func NewAssertionBuilder() *AssertionBuilder {
	return &AssertionBuilder{}
}

// AddVerdict appends a copy of vd. The verdict itself is checked by Build.
func (b *AssertionBuilder) AddVerdict(vd *Verdict) *AssertionBuilder {
	if vd == nil {
		b.recordf(indexPath("", len(b.assertion.verdicts)), errors.KindStructural, "verdict is nil")
		return b
	}
	b.assertion.verdicts = append(b.assertion.verdicts, vd.clone())
	return b
}

// AddVerdicts appends each verdict in order.
func (b *AssertionBuilder) AddVerdicts(verdicts []*Verdict) *AssertionBuilder {
	for _, vd := range verdicts {
		b.AddVerdict(vd)
	}
	return b
}

// Draft returns a copy of the assertion as built so far, without validation.
func (b *AssertionBuilder) Draft() *Assertion {
	return b.assertion.clone()
}

// Build validates the assertion and returns a copy of it.
func (b *AssertionBuilder) Build() (*Assertion, error) {
	draft := b.Draft()
	if err := b.finish(KindAssertion, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// JSON builds the assertion and returns its canonical JSON.
func (b *AssertionBuilder) JSON() ([]byte, error) {
	assertion, err := b.Build()
	if err != nil {
		return nil, err
	}
	return Marshal(assertion)
}

// =============================================================================
// VerdictBuilder
// =============================================================================

// VerdictBuilder builds a Verdict.
type VerdictBuilder struct {
	recorder
	verdict Verdict
}

// NewVerdictBuilder returns an empty verdict builder.
func NewVerdictBuilder() *VerdictBuilder {
	return &VerdictBuilder{}
}

// SetMalwareFamily sets or replaces the malware family.
func (b *VerdictBuilder) SetMalwareFamily(family string) *VerdictBuilder {
	if family == "" {
		b.recordf("malware_family", errors.KindFieldConstraint, "must not be empty")
		return b
	}
	b.verdict.MalwareFamily = family
	return b
}

// AddDomain appends a domain name.
func (b *VerdictBuilder) AddDomain(domain string) *VerdictBuilder {
	path := indexPath("domains", len(b.verdict.Domains))
	if err := Domain.Check(domain); err != nil {
		b.record(path, err)
		return b
	}
	b.verdict.Domains = append(b.verdict.Domains, domain)
	return b
}

// AddDomains appends each domain in order.
func (b *VerdictBuilder) AddDomains(domains []string) *VerdictBuilder {
	for _, d := range domains {
		b.AddDomain(d)
	}
	return b
}

// AddIPAddress appends an IPv4 or IPv6 address.
func (b *VerdictBuilder) AddIPAddress(ip string) *VerdictBuilder {
	path := indexPath("ip_addresses", len(b.verdict.IPAddresses))
	if err := IPAddress.Check(ip); err != nil {
		b.record(path, err)
		return b
	}
	b.verdict.IPAddresses = append(b.verdict.IPAddresses, ip)
	return b
}

// AddIPAddresses appends each address in order.
func (b *VerdictBuilder) AddIPAddresses(ips []string) *VerdictBuilder {
	for _, ip := range ips {
		b.AddIPAddress(ip)
	}
	return b
}

// AddStixSignature appends a STIX signature.
func (b *VerdictBuilder) AddStixSignature(schema string, signature any) *VerdictBuilder {
	s := StixSignature{Schema: schema, Signature: cloneValue(signature)}
	if err := s.CheckConsistency(); err != nil {
		b.record(indexPath("stix", len(b.verdict.Stix)), err)
		return b
	}
	b.verdict.Stix = append(b.verdict.Stix, s)
	return b
}

// AddStixSignatures appends each signature in order.
func (b *VerdictBuilder) AddStixSignatures(signatures []StixSignature) *VerdictBuilder {
	for _, s := range signatures {
		b.AddStixSignature(s.Schema, s.Signature)
	}
	return b
}

// SetAnalysisConclusion records whether the verdict came from heuristics.
func (b *VerdictBuilder) SetAnalysisConclusion(heuristic bool) *VerdictBuilder {
	b.verdict.Heuristic = boolPtr(heuristic)
	return b
}

// SetScanner replaces the scanner metadata. WithOperatingSystem and
// WithArchitecture are stored under the scanner environment.
func (b *VerdictBuilder) SetScanner(opts ...ScannerOption) *VerdictBuilder {
	s := NewScanner(opts...)
	if err := s.CheckConsistency(); err != nil {
		b.record("scanner", err)
		return b
	}
	b.verdict.Scanner = s
	return b
}

// AddExtra attaches an extension field. Adding an existing key replaces
// its value; declared field names are rejected.
func (b *VerdictBuilder) AddExtra(key string, value any) *VerdictBuilder {
	if err := checkExtraKey(key); err != nil {
		b.record(key, err)
		return b
	}
	b.verdict.setExtra(key, cloneValue(value))
	return b
}

// AddExtras attaches each extension field in order.
func (b *VerdictBuilder) AddExtras(extras []ExtraField) *VerdictBuilder {
	for _, e := range extras {
		b.AddExtra(e.Key, e.Value)
	}
	return b
}

// Draft returns a copy of the verdict as built so far, without validation.
func (b *VerdictBuilder) Draft() *Verdict {
	return b.verdict.clone()
}

// Build validates the verdict and returns a copy of it.
func (b *VerdictBuilder) Build() (*Verdict, error) {
	draft := b.Draft()
	if err := b.finish(KindVerdict, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// JSON builds the verdict and returns its canonical JSON.
func (b *VerdictBuilder) JSON() ([]byte, error) {
	verdict, err := b.Build()
	if err != nil {
		return nil, err
	}
	return Marshal(verdict)
}
