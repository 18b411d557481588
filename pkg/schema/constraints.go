package schema

import (
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"unicode/utf8"

	"github.com/exploopio/artifact/pkg/errors"
)

// StringConstraint is a reusable rule for a scalar string field.
type StringConstraint struct {
	// Name identifies the constraint in error messages.
	Name string

	pattern   *regexp.Regexp
	source    string // pattern as published in the schema
	minLength int
	maxLength int
	format    string
	note      string // published as the schema description
	check     func(string) error
}

func (c StringConstraint) fail(format string, args ...interface{}) error {
	return errors.E(errors.KindFieldConstraint, c.Name, fmt.Sprintf(format, args...))
}

// Check reports whether s satisfies the constraint.
func (c StringConstraint) Check(s string) error {
	n := utf8.RuneCountInString(s)
	if c.minLength > 0 && n < c.minLength {
		return c.fail("ensure this value has at least %d characters", c.minLength)
	}
	if c.maxLength > 0 && n > c.maxLength {
		return c.fail("ensure this value has at most %d characters", c.maxLength)
	}
	if c.pattern != nil && !c.pattern.MatchString(s) {
		return c.fail("string does not match regex %q", c.source)
	}
	if c.check != nil {
		return c.check(s)
	}
	return nil
}

// Schema returns the schema fragment describing the constraint.
func (c StringConstraint) Schema() *JSONSchema {
	s := &JSONSchema{Type: "string", Pattern: c.source, Format: c.format, Description: c.note}
	if c.minLength > 0 {
		s.MinLength = intPtr(c.minLength)
	}
	if c.maxLength > 0 {
		s.MaxLength = intPtr(c.maxLength)
	}
	return s
}

func hexDigest(name string, n int) StringConstraint {
	source := fmt.Sprintf("^[0-9a-fA-F]{%d}$", n)
	return StringConstraint{
		Name:      name,
		pattern:   regexp.MustCompile(source),
		source:    source,
		minLength: n,
		maxLength: n,
	}
}

const (
	domainChunk  = `[_0-9a-\x{40000}](?:[-_0-9a-\x{40000}]{0,61}[_0-9a-\x{40000}])?`
	domainEnding = `(?:(?:\.\p{L}{2,63})|(?:\.xn--[_0-9a-z-]{2,63}))?\.?`
)

var domainSource = `^(?:` + domainChunk + `\.)*?` + domainChunk + domainEnding + `$`

var (
	// SHA256 is a 64 character hex digest.
	SHA256 = hexDigest("sha256", 64)
	// SHA1 is a 40 character hex digest.
	SHA1 = hexDigest("sha1", 40)
	// MD5 is a 32 character hex digest.
	MD5 = hexDigest("md5", 32)

	// Domain is an internationalised domain name with an optional TLD.
	// The rule is case-sensitive: ASCII capitals are only accepted in a
	// letter-only final label, as the published pattern does.
	Domain = StringConstraint{
		Name:      "domain",
		pattern:   regexp.MustCompile(domainSource),
		source:    domainSource,
		note:      `domain name; pattern uses RE2 syntax (\x{...} code point escapes)`,
		minLength: 3,
		maxLength: 61 + 63 + 3,
	}

	// Version is a dotted numeral such as 1.2.3.
	Version = StringConstraint{
		Name:    "version",
		pattern: regexp.MustCompile(`^[0-9]+([.][0-9]+)*$`),
		source:  `^[0-9]+([.][0-9]+)*$`,
	}

	// IPAddress is a textual IPv4 or IPv6 address.
	IPAddress = StringConstraint{
		Name:   "ip_address",
		format: "ipvanyaddress",
		check: func(s string) error {
			if _, err := netip.ParseAddr(s); err != nil {
				return errors.E(errors.KindFieldConstraint, "ip_address", "value is not a valid IPv4 or IPv6 address")
			}
			return nil
		},
	}

	// URI is an absolute URI with a scheme and a host.
	URI = StringConstraint{
		Name:      "uri",
		format:    "uri",
		minLength: 1,
		check: func(s string) error {
			u, err := url.Parse(s)
			if err != nil {
				return errors.E(errors.KindFieldConstraint, "uri", "invalid or missing URL scheme", err)
			}
			if u.Scheme == "" {
				return errors.E(errors.KindFieldConstraint, "uri", "invalid or missing URL scheme")
			}
			if u.Host == "" {
				return errors.E(errors.KindFieldConstraint, "uri", "URL host invalid")
			}
			return nil
		},
	}
)

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }
