package schema

import "github.com/exploopio/artifact/pkg/errors"

// Environment describes where a scanner ran.
type Environment struct {
	OperatingSystem string
	Architecture    string
}

// IsZero reports whether no field is set.
func (e Environment) IsZero() bool { return e == Environment{} }

func (e Environment) canonical() object {
	var o object
	o.set("operating_system", e.OperatingSystem)
	o.set("architecture", e.Architecture)
	return o
}

// Scanner is version and environment metadata about the engine that
// produced a verdict. Every field is optional.
type Scanner struct {
	// Version of the microengine that generated the assertion.
	Version string
	// PolyswarmClientVersion is the version of polyswarmclient.
	PolyswarmClientVersion string
	// VendorVersion of the engine that generated the assertion.
	VendorVersion string
	// SignaturesVersion of the engine's antimalware signatures.
	SignaturesVersion string
	Environment       Environment
}

var scannerFields = []string{"version", "polyswarmclient_version", "vendor_version", "signatures_version", "environment"}

func (s *Scanner) Kind() Kind { return KindScanner }

// IsZero reports whether no field is set. A zero scanner is omitted from
// verdict output.
func (s *Scanner) IsZero() bool { return s == nil || *s == Scanner{} }

func (s *Scanner) check(v *validator, path string) {
	v.constraint(joinPath(path, "version"), s.Version, Version).
		constraint(joinPath(path, "polyswarmclient_version"), s.PolyswarmClientVersion, Version)
}

func (s *Scanner) CheckConsistency() error {
	v := &validator{}
	s.check(v, "")
	return v.err(KindScanner)
}

func (s *Scanner) canonical() any { return s.object() }

func (s *Scanner) object() object {
	var o object
	o.set("version", s.Version)
	o.set("polyswarmclient_version", s.PolyswarmClientVersion)
	o.set("vendor_version", s.VendorVersion)
	o.set("signatures_version", s.SignaturesVersion)
	o.set("environment", s.Environment.canonical())
	return o
}

// JSON returns the canonical JSON of the scanner.
func (s *Scanner) JSON() ([]byte, error) { return Marshal(s) }

// Get returns the value of a declared field, or nil when it is unset.
// The environment is returned as a map with only its set keys.
func (s *Scanner) Get(key string) (any, error) {
	var value string
	switch key {
	case "version":
		value = s.Version
	case "polyswarmclient_version":
		value = s.PolyswarmClientVersion
	case "vendor_version":
		value = s.VendorVersion
	case "signatures_version":
		value = s.SignaturesVersion
	case "environment":
		if s.Environment.IsZero() {
			return nil, nil
		}
		env := make(map[string]any, 2)
		for _, m := range s.Environment.canonical() {
			env[m.key] = m.value
		}
		return env, nil
	default:
		return nil, missingKey(KindScanner, key)
	}
	if value == "" {
		return nil, nil
	}
	return value, nil
}

func (s *Scanner) clone() *Scanner {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func parseScanner(v *validator, value any, path string) *Scanner {
	m, ok := asObject(value)
	if !ok {
		v.add(path, errors.KindFieldConstraint, "value is not a valid dict")
		return nil
	}
	s := &Scanner{
		Version:                v.str(m, path, "version"),
		PolyswarmClientVersion: v.str(m, path, "polyswarmclient_version"),
		VendorVersion:          v.str(m, path, "vendor_version"),
		SignaturesVersion:      v.str(m, path, "signatures_version"),
	}
	if raw, ok := field(m, "environment"); ok {
		envPath := joinPath(path, "environment")
		env, ok := asObject(raw)
		if !ok {
			v.add(envPath, errors.KindFieldConstraint, "value is not a valid dict")
		} else {
			s.Environment = Environment{
				OperatingSystem: v.str(env, envPath, "operating_system"),
				Architecture:    v.str(env, envPath, "architecture"),
			}
		}
	}
	return s
}

// ParseScanner validates a decoded JSON object as scanner metadata.
func ParseScanner(value any) (*Scanner, error) {
	return parseTyped(KindScanner, value, parseScanner)
}

// ValidateScanner is the non-failing form of ParseScanner.
func ValidateScanner(value any) (*Scanner, bool) {
	return validateTyped(KindScanner, value, ParseScanner)
}

// ScannerOption sets one field of a Scanner.
type ScannerOption func(*Scanner)

// WithVersion sets the microengine version.
func WithVersion(version string) ScannerOption {
	return func(s *Scanner) { s.Version = version }
}

// WithPolyswarmClientVersion sets the polyswarmclient version.
func WithPolyswarmClientVersion(version string) ScannerOption {
	return func(s *Scanner) { s.PolyswarmClientVersion = version }
}

// WithVendorVersion sets the engine vendor version.
func WithVendorVersion(version string) ScannerOption {
	return func(s *Scanner) { s.VendorVersion = version }
}

// WithSignaturesVersion sets the signatures version.
func WithSignaturesVersion(version string) ScannerOption {
	return func(s *Scanner) { s.SignaturesVersion = version }
}

// WithOperatingSystem sets environment.operating_system.
func WithOperatingSystem(os string) ScannerOption {
	return func(s *Scanner) { s.Environment.OperatingSystem = os }
}

// WithArchitecture sets environment.architecture.
func WithArchitecture(arch string) ScannerOption {
	return func(s *Scanner) { s.Environment.Architecture = arch }
}

// NewScanner returns a scanner with opts applied.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
