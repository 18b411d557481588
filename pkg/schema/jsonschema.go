package schema

import (
	"embed"
	"encoding/json"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/exploopio/artifact/pkg/errors"
)

// JSONSchema is the subset of JSON Schema used to describe the documents
// of this package. It is a description for external tooling; validation
// is done by the document types themselves.
type JSONSchema struct {
	ID          string `json:"$id,omitempty"`
	Ref         string `json:"$ref,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type             string `json:"type,omitempty"`
	Format           string `json:"format,omitempty"`
	Pattern          string `json:"pattern,omitempty"`
	MinLength        *int   `json:"minLength,omitempty"`
	MaxLength        *int   `json:"maxLength,omitempty"`
	ExclusiveMinimum *int   `json:"exclusiveMinimum,omitempty"`

	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`

	Items    *JSONSchema `json:"items,omitempty"`
	MinItems *int        `json:"minItems,omitempty"`
	MaxItems *int        `json:"maxItems,omitempty"`

	AnyOf []*JSONSchema `json:"anyOf,omitempty"`
}

// Refs returns the distinct $ref values found anywhere in s, sorted.
func (s *JSONSchema) Refs() []string {
	seen := make(map[string]struct{})
	s.collectRefs(seen)
	refs := make([]string, 0, len(seen))
	for r := range seen {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return refs
}

func (s *JSONSchema) collectRefs(seen map[string]struct{}) {
	if s == nil {
		return
	}
	if s.Ref != "" {
		seen[s.Ref] = struct{}{}
	}
	for _, p := range s.Properties {
		p.collectRefs(seen)
	}
	s.Items.collectRefs(seen)
	for _, a := range s.AnyOf {
		a.collectRefs(seen)
	}
}

//go:embed schemas/*.json
var schemaFS embed.FS

// SchemaFile returns the file name a kind's schema is published under.
func SchemaFile(kind Kind) string { return string(kind) + ".json" }

// GetSchema returns the declared schema of kind. Each call returns a
// fresh copy.
func GetSchema(kind Kind) (*JSONSchema, error) {
	data, err := fs.ReadFile(schemaFS, path.Join("schemas", SchemaFile(kind)))
	if err != nil {
		return nil, errors.E(errors.KindSchemaResource, "schema.GetSchema", "no schema for "+string(kind), errors.ErrSchemaNotFound)
	}
	var s JSONSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.E(errors.KindSchemaResource, "schema.GetSchema", "schema for "+string(kind)+" is malformed", err)
	}
	return &s, nil
}

// RawSchema returns the declared schema of kind as published.
func RawSchema(kind Kind) ([]byte, error) {
	data, err := fs.ReadFile(schemaFS, path.Join("schemas", SchemaFile(kind)))
	if err != nil {
		return nil, errors.E(errors.KindSchemaResource, "schema.RawSchema", "no schema for "+string(kind), errors.ErrSchemaNotFound)
	}
	return data, nil
}

// ResolveRef returns the schema a $ref such as "verdict.json" points to.
// JSON pointer fragments are not supported; the whole document is returned.
func ResolveRef(ref string) (*JSONSchema, error) {
	name := ref
	if i := strings.IndexByte(name, '#'); i >= 0 {
		name = name[:i]
	}
	name = path.Base(name)
	for _, kind := range Kinds() {
		if SchemaFile(kind) == name {
			return GetSchema(kind)
		}
	}
	return nil, errors.E(errors.KindSchemaResource, "schema.ResolveRef", "unresolvable reference "+ref, errors.ErrSchemaNotFound)
}

// =============================================================================
// Generation
// =============================================================================

// GenerateSchema derives the schema of kind from the field rules the
// document types enforce.
func GenerateSchema(kind Kind) (*JSONSchema, error) {
	var s *JSONSchema
	switch kind {
	case KindFileArtifact:
		s = fileArtifactSchema()
	case KindURLArtifact:
		s = urlArtifactSchema()
	case KindScanner:
		s = scannerSchema()
	case KindStixSignature:
		s = stixSignatureSchema()
	case KindVerdict:
		s = verdictSchema()
	case KindBounty:
		s = collectionSchema("Bounty", &JSONSchema{AnyOf: []*JSONSchema{
			{Ref: SchemaFile(KindFileArtifact)},
			{Ref: SchemaFile(KindURLArtifact)},
		}})
	case KindAssertion:
		s = collectionSchema("Assertion", &JSONSchema{Ref: SchemaFile(KindVerdict)})
	default:
		return nil, errors.E(errors.KindSchemaResource, "schema.GenerateSchema", "no schema for "+string(kind), errors.ErrSchemaNotFound)
	}
	s.ID = SchemaFile(kind)
	return s, nil
}

func stringSchema() *JSONSchema { return &JSONSchema{Type: "string"} }

func nonEmptyString() *JSONSchema { return &JSONSchema{Type: "string", MinLength: intPtr(1)} }

func describe(s *JSONSchema, description string) *JSONSchema {
	s.Description = description
	return s
}

func fileArtifactSchema() *JSONSchema {
	return &JSONSchema{
		Title: "FileArtifact",
		Type:  "object",
		Properties: map[string]*JSONSchema{
			"filename": stringSchema(),
			"filesize": describe(&JSONSchema{Type: "integer", ExclusiveMinimum: intPtr(0)},
				"size in bytes; decimal strings such as \"68\" are accepted and coerced on parse"),
			"mimetype": nonEmptyString(),
			"sha256":   SHA256.Schema(),
			"sha1":     SHA1.Schema(),
			"md5":      MD5.Schema(),
		},
		Required: []string{"mimetype"},
	}
}

func urlArtifactSchema() *JSONSchema {
	return &JSONSchema{
		Title: "URLArtifact",
		Type:  "object",
		Properties: map[string]*JSONSchema{
			"protocol": describe(stringSchema(), "scheme of uri, derived on output"),
			"uri":      URI.Schema(),
		},
		Required: []string{"uri"},
	}
}

func scannerSchema() *JSONSchema {
	return &JSONSchema{
		Title: "Scanner",
		Type:  "object",
		Properties: map[string]*JSONSchema{
			"version":                 describe(Version.Schema(), "version of the microengine that generated the assertion"),
			"polyswarmclient_version": describe(Version.Schema(), "version of polyswarmclient"),
			"vendor_version":          describe(stringSchema(), "version of the engine that generated the assertion"),
			"signatures_version":      describe(stringSchema(), "version of the engine's antimalware signatures"),
			"environment": describe(&JSONSchema{
				Type: "object",
				Properties: map[string]*JSONSchema{
					"operating_system": stringSchema(),
					"architecture":     stringSchema(),
				},
			}, "analysis environment metadata"),
		},
	}
}

func stixSignatureSchema() *JSONSchema {
	return &JSONSchema{
		Title: "StixSignature",
		Type:  "object",
		Properties: map[string]*JSONSchema{
			"schema":    nonEmptyString(),
			"signature": {},
		},
		Required: []string{"schema", "signature"},
	}
}

func verdictSchema() *JSONSchema {
	return &JSONSchema{
		Title: "Verdict",
		Type:  "object",
		Properties: map[string]*JSONSchema{
			"malware_family": describe(nonEmptyString(), "name of the malware family specified by this microengine"),
			"domains":        {Type: "array", Items: Domain.Schema()},
			"ip_addresses":   {Type: "array", Items: IPAddress.Schema()},
			"stix":           {Type: "array", Items: &JSONSchema{Ref: SchemaFile(KindStixSignature)}},
			"scanner":        {Ref: SchemaFile(KindScanner)},
			"heuristic":      {Type: "boolean", Description: "indicator for assertions generated from heuristics"},
		},
		Required:             []string{"malware_family"},
		AdditionalProperties: boolPtr(true),
	}
}

func collectionSchema(title string, items *JSONSchema) *JSONSchema {
	return &JSONSchema{
		Title:    title,
		Type:     "array",
		Items:    items,
		MinItems: intPtr(MinItems),
		MaxItems: intPtr(MaxItems),
	}
}
