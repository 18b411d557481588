package schema

import (
	"github.com/exploopio/artifact/pkg/artifacttype"
	"github.com/exploopio/artifact/pkg/errors"
)

// Collection bounds shared by bounties and assertions.
const (
	MinItems = 1
	MaxItems = 256
)

// Bounty is the ordered list of artifacts offered for analysis. All of
// its artifacts are of the same type.
type Bounty struct {
	artifacts []Artifact
}

// NewBounty returns a bounty holding copies of artifacts. It is not
// validated; call CheckConsistency or JSON.
func NewBounty(artifacts ...Artifact) *Bounty {
	b := &Bounty{}
	for _, a := range artifacts {
		b.artifacts = append(b.artifacts, cloneArtifact(a))
	}
	return b
}

func cloneArtifact(a Artifact) Artifact {
	if a == nil {
		return nil
	}
	return a.clone()
}

func (b *Bounty) Kind() Kind { return KindBounty }

// Len returns the number of artifacts.
func (b *Bounty) Len() int { return len(b.artifacts) }

// At returns the i-th artifact.
func (b *Bounty) At(i int) Artifact { return b.artifacts[i] }

// Artifacts returns the artifacts in order.
func (b *Bounty) Artifacts() []Artifact {
	return append([]Artifact(nil), b.artifacts...)
}

// Type returns the artifact type of the bounty and false when it is
// empty or mixed.
func (b *Bounty) Type() (artifacttype.ArtifactType, bool) {
	if len(b.artifacts) == 0 {
		return 0, false
	}
	var t artifacttype.ArtifactType
	for i, a := range b.artifacts {
		if a == nil {
			return 0, false
		}
		if i == 0 {
			t = a.Type()
		} else if a.Type() != t {
			return 0, false
		}
	}
	return t, true
}

func (b *Bounty) check(v *validator) {
	v.items("", len(b.artifacts), MinItems, MaxItems)
	types := make(map[artifacttype.ArtifactType]bool)
	for i, a := range b.artifacts {
		if a == nil {
			v.add(indexPath("", i), errors.KindStructural, "artifact is nil")
			continue
		}
		types[a.Type()] = true
		a.check(v, indexPath("", i))
	}
	if len(types) > 1 {
		v.add("", errors.KindStructural, "bounty mixes file and url artifacts")
	}
}

func (b *Bounty) CheckConsistency() error {
	v := &validator{}
	b.check(v)
	return v.err(KindBounty)
}

func (b *Bounty) canonical() any {
	out := make([]any, 0, len(b.artifacts))
	for _, a := range b.artifacts {
		if a != nil {
			out = append(out, a.canonical())
		}
	}
	return out
}

// JSON returns the canonical JSON of the bounty.
func (b *Bounty) JSON() ([]byte, error) { return Marshal(b) }

func (b *Bounty) clone() *Bounty {
	return NewBounty(b.artifacts...)
}

func parseBounty(v *validator, value any, path string) *Bounty {
	list, ok := asList(value)
	if !ok {
		v.add(path, errors.KindStructural, "value is not a valid list")
		return nil
	}
	b := &Bounty{}
	for i, item := range list {
		if a := parseArtifact(v, item, indexPath(path, i)); a != nil {
			b.artifacts = append(b.artifacts, a)
		}
	}
	return b
}

// ParseBounty validates a decoded JSON list as a bounty, discriminating
// each element into a file or URL artifact.
func ParseBounty(value any) (*Bounty, error) {
	return parseTyped(KindBounty, value, parseBounty)
}

// ValidateBounty is the non-failing form of ParseBounty.
func ValidateBounty(value any) (*Bounty, bool) {
	return validateTyped(KindBounty, value, ParseBounty)
}
