package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/exploopio/artifact/pkg/codec"
	"github.com/exploopio/artifact/pkg/schema"
)

// Format is an input file format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
	FormatCBOR  Format = "cbor"
)

func parseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatJSONC, FormatYAML, FormatCBOR:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported input format %q", s)
}

// formatFor returns the configured format, or the one implied by the
// extension of path. Standard input and unknown extensions are JSON.
func formatFor(configured, path string) Format {
	if configured != "" {
		if f, err := parseFormat(configured); err == nil {
			return f
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc":
		return FormatJSONC
	case ".yaml", ".yml":
		return FormatYAML
	case ".cbor":
		return FormatCBOR
	}
	return FormatJSON
}

// decode turns the raw bytes of one input into a plain value for
// schema.Parse.
func decode(format Format, data []byte) (any, error) {
	switch format {
	case FormatJSONC:
		// Strip comments and trailing commas, then decode as JSON
		return schema.DecodeJSON(jsonc.ToJSON(data))
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return v, nil
	case FormatCBOR:
		return codec.Decode(data)
	}
	return schema.DecodeJSON(data)
}
