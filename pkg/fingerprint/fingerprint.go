// Package fingerprint provides deterministic fingerprints of documents and
// artifacts for deduplication.
//
// Document fingerprints hash the canonical form, so two documents with the
// same meaningful fields share a fingerprint regardless of how they were
// built. Artifact keys identify the thing analysed rather than its
// description: a file by its strongest hash, a URL by host and path.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/exploopio/artifact/pkg/errors"
	"github.com/exploopio/artifact/pkg/schema"
)

// Document returns the SHA-256 (64 hex characters) of the canonical form
// of doc, encoded as JSON with sorted keys. Member order does not change
// the fingerprint, so a verdict keeps its fingerprint through a parse that
// reorders its extension fields. It fails when doc does not pass its
// consistency check.
func Document(doc schema.Document) (string, error) {
	v, err := schema.ToValue(doc)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.E(errors.KindInternal, "fingerprint.Document", "value is not representable as JSON", err)
	}
	return HashBytes(data), nil
}

// Artifact returns the deduplication key of an artifact.
//
// The key is chosen by the strongest identity available:
//   - File: sha256, then sha1, then md5, else filename + size + mimetype
//   - URL: host (default port dropped) + path
func Artifact(a schema.Artifact) string {
	var data string

	switch t := a.(type) {
	case *schema.FileArtifact:
		switch {
		case t.SHA256 != "":
			data = "file:sha256:" + normalize(t.SHA256)
		case t.SHA1 != "":
			data = "file:sha1:" + normalize(t.SHA1)
		case t.MD5 != "":
			data = "file:md5:" + normalize(t.MD5)
		default:
			data = fmt.Sprintf("file:%s:%d:%s",
				normalize(t.Filename),
				t.Filesize,
				normalize(t.MIMEType),
			)
		}

	case *schema.URLArtifact:
		host, path := splitURI(t.URI)
		data = fmt.Sprintf("url:%s:%s", host, path)

	default:
		data = "unknown"
	}

	return Hash(data)
}

// Dedupe returns artifacts without repeats, keeping the first artifact of
// each key and the original order.
func Dedupe(artifacts []schema.Artifact) []schema.Artifact {
	seen := make(map[string]struct{}, len(artifacts))
	out := make([]schema.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if a == nil {
			continue
		}
		key := Artifact(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// DedupeBounty returns a new bounty holding the distinct artifacts of b.
func DedupeBounty(b *schema.Bounty) *schema.Bounty {
	return schema.NewBounty(Dedupe(b.Artifacts())...)
}

// Hash computes SHA256 hash of the input string.
// Returns 64 hex characters.
func Hash(s string) string {
	return HashBytes([]byte(s))
}

// HashBytes computes SHA256 hash of b as 64 hex characters.
func HashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// normalize trims and lowercases a value.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// splitURI returns the normalised host and path of uri. Unparseable input
// falls back to the raw string as host.
func splitURI(uri string) (string, string) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || u.Host == "" {
		return normalize(uri), ""
	}
	return normalizeHost(u.Scheme, u.Host), normalizePath(u.Path)
}

// normalizeHost cleans up a hostname.
// - Converts to lowercase
// - Removes the port when it is the scheme default
// - Removes a trailing dot
func normalizeHost(scheme, host string) string {
	host = strings.ToLower(host)

	switch strings.ToLower(scheme) {
	case "https":
		host = strings.TrimSuffix(host, ":443")
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "ftp":
		host = strings.TrimSuffix(host, ":21")
	}

	return strings.TrimSuffix(host, ".")
}

// normalizePath cleans up a URL path.
// - Ensures a leading slash
// - Removes the trailing slash (except for root)
func normalizePath(path string) string {
	path = strings.TrimSpace(path)

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	return path
}
