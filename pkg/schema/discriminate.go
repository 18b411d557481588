package schema

import (
	"sort"
	"strings"

	"github.com/exploopio/artifact/pkg/artifacttype"
	"github.com/exploopio/artifact/pkg/errors"
)

// Artifact is a FileArtifact or a URLArtifact. The variant is fixed when
// the value is created and is never inferred again.
type Artifact interface {
	Document
	Type() artifacttype.ArtifactType
	JSON() ([]byte, error)
	Get(key string) (any, error)

	check(v *validator, path string)
	clone() Artifact
	isArtifact()
}

// kindArtifact labels failures that happen before the variant is known.
const kindArtifact Kind = "artifact"

var (
	_ Artifact = (*FileArtifact)(nil)
	_ Artifact = (*URLArtifact)(nil)
)

type artifactVariant struct {
	typ    artifacttype.ArtifactType
	fields []string
	parse  func(*validator, any, string) Artifact
}

var artifactVariants = []artifactVariant{
	{
		typ:    artifacttype.File,
		fields: fileArtifactFields,
		parse: func(v *validator, value any, path string) Artifact {
			if f := parseFileArtifact(v, value, path); f != nil {
				return f
			}
			return nil
		},
	},
	{
		typ:    artifacttype.URL,
		fields: urlArtifactFields,
		parse: func(v *validator, value any, path string) Artifact {
			if u := parseURLArtifact(v, value, path); u != nil {
				return u
			}
			return nil
		},
	},
}

// exclusiveFields holds, per variant, the fields no other variant declares.
var exclusiveFields = computeExclusive(artifactVariants)

func computeExclusive(variants []artifactVariant) []map[string]struct{} {
	counts := make(map[string]int)
	for _, vr := range variants {
		for _, f := range vr.fields {
			counts[f]++
		}
	}
	out := make([]map[string]struct{}, len(variants))
	for i, vr := range variants {
		out[i] = make(map[string]struct{})
		for _, f := range vr.fields {
			if counts[f] == 1 {
				out[i][f] = struct{}{}
			}
		}
	}
	return out
}

// Discriminate decides which artifact variant a decoded JSON object is,
// from the variant-exclusive keys it carries. Exactly one variant must
// match.
func Discriminate(value any) (artifacttype.ArtifactType, error) {
	v := &validator{}
	i := discriminate(v, value, "")
	if i < 0 {
		return 0, v.err(kindArtifact)
	}
	return artifactVariants[i].typ, nil
}

func discriminate(v *validator, value any, path string) int {
	m, ok := asObject(value)
	if !ok {
		v.add(path, errors.KindStructural, "value is not a valid dict")
		return -1
	}
	var matched []int
	for i := range artifactVariants {
		for key := range m {
			if _, ok := exclusiveFields[i][key]; ok {
				matched = append(matched, i)
				break
			}
		}
	}
	switch len(matched) {
	case 1:
		return matched[0]
	case 0:
		v.add(path, errors.KindStructural, "value matches no artifact type (keys: %s)", keyList(m))
	default:
		v.add(path, errors.KindStructural, "value matches more than one artifact type (keys: %s)", keyList(m))
	}
	return -1
}

func keyList(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func parseArtifact(v *validator, value any, path string) Artifact {
	i := discriminate(v, value, path)
	if i < 0 {
		return nil
	}
	return artifactVariants[i].parse(v, value, path)
}

// ParseArtifact discriminates a decoded JSON object and validates it as
// the matching artifact variant.
func ParseArtifact(value any) (Artifact, error) {
	v := &validator{}
	i := discriminate(v, value, "")
	if i < 0 {
		return nil, v.err(kindArtifact)
	}
	a := artifactVariants[i].parse(v, value, "")
	if !v.ok() {
		return nil, v.err(a.Kind())
	}
	if err := a.CheckConsistency(); err != nil {
		return nil, err
	}
	return a, nil
}

// ValidateArtifact is the non-failing form of ParseArtifact.
func ValidateArtifact(value any) (Artifact, bool) {
	a, err := ParseArtifact(value)
	if err != nil {
		return nil, false
	}
	return a, true
}
