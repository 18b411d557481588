package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/artifact/pkg/compress"
	"github.com/exploopio/artifact/pkg/envelope"
)

const eicarSHA256 = "275a021bbfb6489e54d471899f7db9d1663fc695ec2fe2a2c4538aabf651fd0f"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runLint(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Validate(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		input string
	}{
		{"json", "verdict.json", `{"malware_family": "Eicar", "domains": []}`},
		{"jsonc", "verdict.jsonc", "{\n  // family only\n  \"malware_family\": \"Eicar\",\n}"},
		{"yaml", "verdict.yaml", "malware_family: Eicar\nscanner:\n  vendor_version: \"2\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.input)
			code, stdout, stderr := runLint(t, "", "-canonical", path)
			assert.Equal(t, exitOK, code, stderr)
			assert.True(t, strings.HasPrefix(stdout, `{"malware_family":"Eicar"`), stdout)
		})
	}
}

func TestRun_Rejected(t *testing.T) {
	good := writeFile(t, "good.json", `{"malware_family":"Eicar"}`)
	bad := writeFile(t, "bad.json", `{"ip_addresses":["asdf"]}`)

	code, _, stderr := runLint(t, "", good, bad)
	assert.Equal(t, exitRejected, code)
	assert.Contains(t, stderr, bad)
	assert.Contains(t, stderr, "malware_family")
	assert.Contains(t, stderr, "ip_addresses[0]")
	assert.NotContains(t, stderr, good)
}

func TestRun_Stdin(t *testing.T) {
	input := `[{"mimetype":"text/plain","sha256":"` + eicarSHA256 + `"}]`
	code, stdout, stderr := runLint(t, input, "-kind", "bounty", "-canonical")
	assert.Equal(t, exitOK, code, stderr)
	assert.Equal(t, `[{"mimetype":"text/plain","sha256":"`+eicarSHA256+`"}]`+"\n", stdout)

	code, _, _ = runLint(t, "{", "-kind", "bounty")
	assert.Equal(t, exitRejected, code)
}

func TestRun_Dedupe(t *testing.T) {
	input := `[{"uri":"https://polyswarm.io/"},{"uri":"https://POLYSWARM.io:443"}]`
	code, stdout, stderr := runLint(t, input, "-kind", "bounty", "-dedupe", "-canonical")
	assert.Equal(t, exitOK, code, stderr)
	assert.Equal(t, `[{"protocol":"https://","uri":"https://polyswarm.io/"}]`+"\n", stdout)
}

func TestRun_SealOpen(t *testing.T) {
	input := `[{"malware_family":"Eicar"},{"malware_family":"Nidar","domains":["polyswarm.io"]}]`
	code, sealed, stderr := runLint(t, input, "-kind", "assertion", "-seal", "-encoding", "cbor", "-compression", "zstd")
	require.Equal(t, exitOK, code, stderr)

	env, err := envelope.Unmarshal([]byte(strings.TrimSpace(sealed)))
	require.NoError(t, err)
	assert.Equal(t, envelope.EncodingCBOR, env.Encoding)
	assert.Equal(t, compress.AlgorithmZSTD, env.Compression)

	code, opened, stderr := runLint(t, sealed, "-open")
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, `[{"malware_family":"Eicar"},{"malware_family":"Nidar","domains":["polyswarm.io"]}]`+"\n", opened)

	code, _, _ = runLint(t, sealed, "-seal", "-open")
	assert.Equal(t, exitUsage, code)
}

func TestRun_FingerprintAndDiag(t *testing.T) {
	path := writeFile(t, "verdict.json", `{"malware_family":"Eicar"}`)
	code, stdout, stderr := runLint(t, "", "-fingerprint", "-diag", path)
	require.Equal(t, exitOK, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, strings.Fields(lines[0])[0], 64)
	assert.True(t, strings.HasSuffix(lines[0], path))
	assert.Contains(t, lines[1], "malware_family")
}

func TestRun_Schema(t *testing.T) {
	code, stdout, _ := runLint(t, "", "-kind", "url_artifact", "-schema")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, `"uri"`)

	code, _, stderr := runLint(t, "", "-kind", "sample", "-schema")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "unknown document kind")
}

func TestRun_MetricsFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "artifact.prom")
	code, _, stderr := runLint(t, `{"malware_family":"Eicar"}`, "-metrics-file", out)
	require.Equal(t, exitOK, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `artifact_validations_total{kind="verdict",result="accepted"} 1`)
}

func TestRun_Verbose(t *testing.T) {
	code, _, stderr := runLint(t, `{"malware_family":"Eicar"}`, "-verbose")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "valid verdict")

	code, _, stderr = runLint(t, `{"malware_family":"Eicar"}`)
	assert.Equal(t, exitOK, code)
	assert.Empty(t, stderr)
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runLint(t, "", "-version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "artifact-lint version 1.0.0\n", stdout)
}

func TestRun_MetricsFileCountsEachInputOnce(t *testing.T) {
	good := writeFile(t, "good.json", `{"malware_family":"Eicar"}`)
	bad := writeFile(t, "bad.json", `{"ip_addresses":["asdf"]}`)
	out := filepath.Join(t.TempDir(), "artifact.prom")

	code, _, _ := runLint(t, "", "-metrics-file", out, good, bad)
	require.Equal(t, exitRejected, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `artifact_validations_total{kind="verdict",result="accepted"} 1`)
	assert.Contains(t, string(data), `artifact_validations_total{kind="verdict",result="rejected"} 1`)
}
