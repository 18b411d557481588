package schema

import (
	"net/url"
	"strings"

	"github.com/exploopio/artifact/pkg/artifacttype"
	"github.com/exploopio/artifact/pkg/errors"
)

// URLArtifact describes a URL offered in a bounty. Its protocol is always
// derived from URI and never stored.
type URLArtifact struct {
	URI string
}

var urlArtifactFields = []string{"protocol", "uri"}

func (u *URLArtifact) Kind() Kind { return KindURLArtifact }

// Type reports artifacttype.URL.
func (u *URLArtifact) Type() artifacttype.ArtifactType { return artifacttype.URL }

func (u *URLArtifact) isArtifact() {}

// Protocol returns the URI scheme with its separator, e.g. "https://",
// or "" when the URI has no scheme.
func (u *URLArtifact) Protocol() string {
	parsed, err := url.Parse(u.URI)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	return parsed.Scheme + "://"
}

func (u *URLArtifact) check(v *validator, path string) {
	v.required(joinPath(path, "uri"), u.URI).
		constraint(joinPath(path, "uri"), u.URI, URI)
}

func (u *URLArtifact) CheckConsistency() error {
	v := &validator{}
	u.check(v, "")
	return v.err(KindURLArtifact)
}

func (u *URLArtifact) canonical() any {
	var o object
	o.set("protocol", u.Protocol())
	o.set("uri", u.URI)
	return o
}

// JSON returns the canonical JSON of the artifact.
func (u *URLArtifact) JSON() ([]byte, error) { return Marshal(u) }

// Get returns the value of a declared field, or nil when it is unset.
func (u *URLArtifact) Get(key string) (any, error) {
	var value string
	switch key {
	case "protocol":
		value = u.Protocol()
	case "uri":
		value = u.URI
	default:
		return nil, missingKey(KindURLArtifact, key)
	}
	if value == "" {
		return nil, nil
	}
	return value, nil
}

func (u *URLArtifact) clone() Artifact {
	c := *u
	return &c
}

// withProtocol replaces the scheme of uri by the one named in protocol,
// so "google.com/" with "https://" becomes "https://google.com/".
func withProtocol(uri, protocol string) string {
	if protocol == "" {
		return uri
	}
	scheme := protocol
	if i := strings.LastIndex(protocol, "://"); i >= 0 {
		scheme = protocol[:i]
	}
	rest := uri
	if i := strings.Index(uri, "://"); i >= 0 {
		rest = uri[i+len("://"):]
	}
	return scheme + "://" + rest
}

func parseURLArtifact(v *validator, value any, path string) *URLArtifact {
	m, ok := asObject(value)
	if !ok {
		v.add(path, errors.KindFieldConstraint, "value is not a valid dict")
		return nil
	}
	u := &URLArtifact{URI: v.str(m, path, "uri")}
	if protocol := v.str(m, path, "protocol"); protocol != "" && u.URI != "" {
		want := strings.TrimSuffix(u.Protocol(), "://")
		if !strings.EqualFold(strings.TrimSuffix(protocol, "://"), want) {
			v.add(joinPath(path, "protocol"), errors.KindFieldConstraint, "protocol %q does not match uri scheme", protocol)
		}
	}
	return u
}

// ParseURLArtifact validates a decoded JSON object as a URL artifact.
func ParseURLArtifact(value any) (*URLArtifact, error) {
	return parseTyped(KindURLArtifact, value, parseURLArtifact)
}

// ValidateURLArtifact is the non-failing form of ParseURLArtifact.
func ValidateURLArtifact(value any) (*URLArtifact, bool) {
	return validateTyped(KindURLArtifact, value, ParseURLArtifact)
}
