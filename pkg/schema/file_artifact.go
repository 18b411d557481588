package schema

import (
	"github.com/exploopio/artifact/pkg/artifacttype"
	"github.com/exploopio/artifact/pkg/errors"
)

// FileArtifact describes a file offered in a bounty.
// Zero values mean the field is not set.
type FileArtifact struct {
	Filename string
	Filesize int64
	MIMEType string
	SHA256   string
	SHA1     string
	MD5      string
}

var fileArtifactFields = []string{"filename", "filesize", "mimetype", "sha256", "sha1", "md5"}

func (f *FileArtifact) Kind() Kind { return KindFileArtifact }

// Type reports artifacttype.File.
func (f *FileArtifact) Type() artifacttype.ArtifactType { return artifacttype.File }

func (f *FileArtifact) isArtifact() {}

func (f *FileArtifact) check(v *validator, path string) {
	if f.Filesize < 0 {
		v.add(joinPath(path, "filesize"), errors.KindFieldConstraint, "ensure this value is greater than 0")
	}
	v.required(joinPath(path, "mimetype"), f.MIMEType).
		constraint(joinPath(path, "sha256"), f.SHA256, SHA256).
		constraint(joinPath(path, "sha1"), f.SHA1, SHA1).
		constraint(joinPath(path, "md5"), f.MD5, MD5)
}

func (f *FileArtifact) CheckConsistency() error {
	v := &validator{}
	f.check(v, "")
	return v.err(KindFileArtifact)
}

func (f *FileArtifact) canonical() any {
	var o object
	o.set("filename", f.Filename)
	o.set("filesize", f.Filesize)
	o.set("mimetype", f.MIMEType)
	o.set("sha256", f.SHA256)
	o.set("sha1", f.SHA1)
	o.set("md5", f.MD5)
	return o
}

// JSON returns the canonical JSON of the artifact.
func (f *FileArtifact) JSON() ([]byte, error) { return Marshal(f) }

// Get returns the value of a declared field, or nil when it is unset.
func (f *FileArtifact) Get(key string) (any, error) {
	var value any
	switch key {
	case "filename":
		value = f.Filename
	case "filesize":
		if f.Filesize != 0 {
			return f.Filesize, nil
		}
		return nil, nil
	case "mimetype":
		value = f.MIMEType
	case "sha256":
		value = f.SHA256
	case "sha1":
		value = f.SHA1
	case "md5":
		value = f.MD5
	default:
		return nil, missingKey(KindFileArtifact, key)
	}
	if value == "" {
		return nil, nil
	}
	return value, nil
}

func (f *FileArtifact) clone() Artifact {
	c := *f
	return &c
}

func parseFileArtifact(v *validator, value any, path string) *FileArtifact {
	m, ok := asObject(value)
	if !ok {
		v.add(path, errors.KindFieldConstraint, "value is not a valid dict")
		return nil
	}
	return &FileArtifact{
		Filename: v.str(m, path, "filename"),
		Filesize: v.positiveInt(m, path, "filesize"),
		MIMEType: v.str(m, path, "mimetype"),
		SHA256:   v.str(m, path, "sha256"),
		SHA1:     v.str(m, path, "sha1"),
		MD5:      v.str(m, path, "md5"),
	}
}

// ParseFileArtifact validates a decoded JSON object as a file artifact.
func ParseFileArtifact(value any) (*FileArtifact, error) {
	return parseTyped(KindFileArtifact, value, parseFileArtifact)
}

// ValidateFileArtifact is the non-failing form of ParseFileArtifact.
func ValidateFileArtifact(value any) (*FileArtifact, bool) {
	return validateTyped(KindFileArtifact, value, ParseFileArtifact)
}
