// Package artifacttype defines the two kinds of artifact a bounty can carry
// and how their raw content is decoded.
package artifacttype

import (
	"strings"
	"unicode/utf8"

	"github.com/exploopio/artifact/pkg/core"
	"github.com/exploopio/artifact/pkg/errors"
)

// ArtifactType identifies whether an artifact is a file or a URL.
type ArtifactType int

const (
	// File is an uploaded file; its content is opaque bytes.
	File ArtifactType = 0
	// URL is a web location; its content is the UTF-8 text of the URL.
	URL ArtifactType = 1
)

var names = map[ArtifactType]string{
	File: "file",
	URL:  "url",
}

// String returns the lowercase name of the type.
func (t ArtifactType) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether t is one of the declared types.
func (t ArtifactType) Valid() bool {
	_, ok := names[t]
	return ok
}

// FromString parses a type name case-insensitively. Unknown names are
// logged at error level and reported with ok=false; an empty name is
// reported the same way without logging.
func FromString(value string) (ArtifactType, bool) {
	if value == "" {
		return 0, false
	}
	switch strings.ToUpper(value) {
	case "FILE":
		return File, true
	case "URL":
		return URL, true
	}
	core.GetDefaultLogger().Error("%s is not a supported artifact type", value)
	return 0, false
}

// FromInt maps the wire integer back to a type.
func FromInt(value int) (ArtifactType, bool) {
	t := ArtifactType(value)
	return t, t.Valid()
}

// DecodeContent converts raw artifact content according to the type.
// URL content is returned as a string, file content as the original bytes.
// Empty content yields nil.
func (t ArtifactType) DecodeContent(content []byte) (any, error) {
	if len(content) == 0 {
		return nil, nil
	}
	if t != URL {
		return content, nil
	}
	if !utf8.Valid(content) {
		return nil, errors.E(errors.KindDecode, "artifacttype.DecodeContent", "url content is not valid utf-8", errors.ErrDecode)
	}
	return string(content), nil
}
