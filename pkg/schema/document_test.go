package schema

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/artifact/pkg/core"
	"github.com/exploopio/artifact/pkg/errors"
	"github.com/exploopio/artifact/pkg/metrics"
)

func useCollector(t *testing.T) *metrics.InMemoryCollector {
	t.Helper()
	c := metrics.NewInMemoryCollector()
	metrics.SetDefaultCollector(c)
	t.Cleanup(func() { metrics.SetDefaultCollector(nil) })
	return c
}

func TestMarshal_Nil(t *testing.T) {
	_, err := Marshal(nil)
	assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))

	_, err = Marshal((*Verdict)(nil))
	assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	data, err := (&URLArtifact{URI: "https://polyswarm.io/?a=1&b=<2>"}).JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"protocol":"https://","uri":"https://polyswarm.io/?a=1&b=<2>"}`, string(data))
}

func TestToValue(t *testing.T) {
	v, err := ToValue(&FileArtifact{MIMEType: "text/plain", Filesize: 42})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"mimetype": "text/plain", "filesize": int64(42)}, v)

	_, err = ToValue(&FileArtifact{})
	assert.Error(t, err)
}

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		kind  Kind
		value any
	}{
		{KindFileArtifact, map[string]any{"mimetype": "text/plain"}},
		{KindURLArtifact, map[string]any{"uri": "https://polyswarm.io"}},
		{KindScanner, map[string]any{"version": "1.0"}},
		{KindStixSignature, map[string]any{"schema": killChainSchema, "signature": 1}},
		{KindVerdict, map[string]any{"malware_family": "Eicar"}},
		{KindBounty, []any{map[string]any{"mimetype": "text/plain"}}},
		{KindAssertion, []any{map[string]any{"malware_family": "Eicar"}}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			doc, err := Parse(tt.kind, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, doc.Kind())

			data, err := Marshal(doc)
			require.NoError(t, err)
			again, err := ParseJSON(tt.kind, data)
			require.NoError(t, err)
			assert.True(t, Equal(doc, again))
		})
	}
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := Parse("microengine", map[string]any{})
	assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))

	_, ok := Validate("microengine", map[string]any{})
	assert.False(t, ok)
}

func TestParseJSON_Decode(t *testing.T) {
	_, err := ParseJSON(KindVerdict, []byte(`{"malware_family":`))
	assert.True(t, errors.IsDecode(err))

	_, err = ParseJSON(KindVerdict, []byte(`{"malware_family":"Eicar"} {}`))
	assert.True(t, errors.IsDecode(err))
}

func TestParseJSON_LargeFilesize(t *testing.T) {
	doc, err := ParseJSON(KindFileArtifact, []byte(`{"mimetype":"application/zip","filesize":9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), doc.(*FileArtifact).Filesize)
}

func TestValidationError(t *testing.T) {
	_, err := ParseVerdict(map[string]any{"ip_addresses": []any{"asdf"}})
	require.Error(t, err)

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"malware_family", "ip_addresses[0]"}, ve.Fields())
	assert.Contains(t, err.Error(), "2 validation errors for verdict")
	assert.True(t, errors.IsFieldConstraint(err))
	assert.False(t, errors.IsStructural(err))
}

func TestValidate_Observes(t *testing.T) {
	c := useCollector(t)

	var buf bytes.Buffer
	logger := core.NewDefaultLogger("artifact", core.LogLevelDebug)
	logger.SetOutput(&buf)
	core.SetDefaultLogger(logger)
	t.Cleanup(func() { core.SetDefaultLogger(nil) })

	_, ok := ValidateVerdict(map[string]any{"malware_family": "Eicar"})
	require.True(t, ok)
	_, ok = ValidateVerdict(map[string]any{})
	require.False(t, ok)
	_, ok = Validate(KindBounty, []any{})
	require.False(t, ok)

	assert.Equal(t, 1.0, c.GetCounter(metrics.ValidationsTotal.Name, "kind", "verdict", "result", metrics.ResultAccepted))
	assert.Equal(t, 1.0, c.GetCounter(metrics.ValidationsTotal.Name, "kind", "verdict", "result", metrics.ResultRejected))
	assert.Equal(t, 1.0, c.GetCounter(metrics.ValidationsTotal.Name, "kind", "bounty", "result", metrics.ResultRejected))
	assert.Len(t, c.GetHistogram(metrics.ValidationDuration.Name, "kind", "verdict"), 2)

	assert.Contains(t, buf.String(), "verdict rejected")
	assert.Contains(t, buf.String(), "bounty rejected")
}

func TestBuild_Observes(t *testing.T) {
	c := useCollector(t)

	_, err := NewVerdictBuilder().Build()
	require.Error(t, err)
	_, err = NewBountyBuilder().AddURLArtifact("https://polyswarm.io", "").Build()
	require.NoError(t, err)

	assert.Equal(t, 1.0, c.GetCounter(metrics.ValidationsTotal.Name, "kind", "verdict", "result", metrics.ResultRejected))
	assert.Equal(t, 1.0, c.GetCounter(metrics.ValidationsTotal.Name, "kind", "bounty", "result", metrics.ResultAccepted))
}

func TestCheck_ReturnsFieldErrors(t *testing.T) {
	c := useCollector(t)

	doc, err := Check(KindVerdict, map[string]any{"ip_addresses": []any{"asdf"}})
	require.Error(t, err)
	assert.Nil(t, doc)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"malware_family", "ip_addresses[0]"}, ve.Fields())

	doc, err = Check(KindVerdict, map[string]any{"malware_family": "Eicar"})
	require.NoError(t, err)
	assert.Equal(t, KindVerdict, doc.Kind())

	assert.Equal(t, 1.0, c.GetCounter(metrics.ValidationsTotal.Name, "kind", "verdict", "result", metrics.ResultRejected))
	assert.Equal(t, 1.0, c.GetCounter(metrics.ValidationsTotal.Name, "kind", "verdict", "result", metrics.ResultAccepted))
}

func TestDecodeJSON(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"filesize": 9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", v.(map[string]any)["filesize"].(interface{ String() string }).String())

	_, err = DecodeJSON([]byte(`{} {}`))
	assert.True(t, errors.IsDecode(err))
	_, err = DecodeJSON([]byte(`{`))
	assert.True(t, errors.IsDecode(err))
}
