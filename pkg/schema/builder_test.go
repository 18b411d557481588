package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/artifact/pkg/errors"
)

func TestBountyBuilder_FileArtifact(t *testing.T) {
	data, err := NewBountyBuilder().
		AddFileArtifact(FileArtifact{
			MIMEType: "text/plain",
			Filename: "file",
			Filesize: 1,
			SHA256:   testSHA256,
			SHA1:     testSHA1,
			MD5:      testMD5,
		}).
		JSON()
	require.NoError(t, err)
	assert.Equal(t,
		`[{"filename":"file","filesize":1,"mimetype":"text/plain","sha256":"`+testSHA256+`","sha1":"`+testSHA1+`","md5":"`+testMD5+`"}]`,
		string(data))
}

func TestBountyBuilder_URLArtifact(t *testing.T) {
	b, err := NewBountyBuilder().AddURLArtifact("google.com/", "https://").Build()
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())

	data, err := b.At(0).JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"protocol":"https://","uri":"https://google.com/"}`, string(data))
}

func TestBountyBuilder_Empty(t *testing.T) {
	_, err := NewBountyBuilder().Build()
	require.Error(t, err)
	assert.True(t, errors.IsStructural(err))

	_, err = NewBountyBuilder().JSON()
	assert.Error(t, err)
}

func TestBountyBuilder_Limit(t *testing.T) {
	b := NewBountyBuilder()
	for i := 0; i < MaxItems; i++ {
		b.AddFileArtifact(FileArtifact{MIMEType: "text/plain"})
	}
	_, err := b.Build()
	require.NoError(t, err)

	b.AddFileArtifact(FileArtifact{MIMEType: "text/plain"})
	_, err = b.Build()
	assert.True(t, errors.IsStructural(err))
}

func TestBountyBuilder_Mixed(t *testing.T) {
	_, err := NewBountyBuilder().
		AddURLArtifact("https://polyswarm.io", "").
		AddFileArtifact(FileArtifact{MIMEType: "text/plain"}).
		Build()
	require.Error(t, err)
	assert.True(t, errors.IsStructural(err))
}

func TestBountyBuilder_RecordsRejectedArguments(t *testing.T) {
	b := NewBountyBuilder().
		AddFileArtifact(FileArtifact{MIMEType: "text/plain"}).
		AddFileArtifact(FileArtifact{Filename: "no-mime"}).
		AddArtifact(nil)

	assert.Equal(t, 1, b.Draft().Len())

	_, err := b.Build()
	require.Error(t, err)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"[1].mimetype", "[1]"}, ve.Fields())

	_, err = NewBountyBuilder().AddURLArtifact("", "https://").Build()
	ve, _ = AsValidationError(err)
	assert.Contains(t, ve.Fields(), "[0].uri")
}

func TestBountyBuilder_AddArtifacts(t *testing.T) {
	a, err := ParseArtifact(map[string]any{"uri": "https://polyswarm.io"})
	require.NoError(t, err)

	b, err := NewBountyBuilder().AddArtifacts([]Artifact{a, &URLArtifact{URI: "http://x.io"}}).Build()
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())
}

func TestVerdictBuilder_RequiresFamily(t *testing.T) {
	_, err := NewVerdictBuilder().AddDomain("polyswarm.io").Build()
	require.Error(t, err)
	ve, _ := AsValidationError(err)
	assert.Equal(t, []string{"malware_family"}, ve.Fields())

	_, err = NewVerdictBuilder().SetMalwareFamily("").Build()
	assert.Error(t, err)
}

func TestVerdictBuilder_Minimal(t *testing.T) {
	data, err := NewVerdictBuilder().SetMalwareFamily("Eicar").JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"malware_family":"Eicar"}`, string(data))

	doc, err := ParseJSON(KindVerdict, data)
	require.NoError(t, err)
	_, ok := Validate(KindVerdict, map[string]any{"malware_family": "Eicar"})
	assert.True(t, ok)
	assert.True(t, Equal(doc, map[string]any{"malware_family": "Eicar"}))
}

func TestVerdictBuilder_Full(t *testing.T) {
	b := NewVerdictBuilder().
		SetMalwareFamily("Eicar").
		AddDomain("polyswarm.io").
		AddIPAddress("192.168.0.1").
		AddStixSignature(killChainSchema, "a0").
		SetScanner(
			WithOperatingSystem("windows"),
			WithArchitecture("x86"),
			WithVersion("1.0.0"),
			WithPolyswarmClientVersion("2.0.2"),
			WithVendorVersion("1.0.0"),
			WithSignaturesVersion("2019"),
		).
		AddExtra("new_key", map[string]any{"other_key": "string_value"}).
		AddExtra("new_key1", []any{"string_value"}).
		AddExtra("new_key2", "string_value")

	data, err := b.JSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"malware_family":"Eicar","domains":["polyswarm.io"],"ip_addresses":["192.168.0.1"],`+
			`"stix":[{"schema":"`+killChainSchema+`","signature":"a0"}],`+
			`"scanner":{"version":"1.0.0","polyswarmclient_version":"2.0.2","vendor_version":"1.0.0","signatures_version":"2019",`+
			`"environment":{"operating_system":"windows","architecture":"x86"}},`+
			`"new_key":{"other_key":"string_value"},"new_key1":["string_value"],"new_key2":"string_value"}`,
		string(data))

	doc, err := ParseJSON(KindVerdict, data)
	require.NoError(t, err)
	assert.True(t, Equal(doc, b.Draft()))
}

func TestVerdictBuilder_ScannerEnvironment(t *testing.T) {
	data, err := NewVerdictBuilder().
		SetMalwareFamily("Eicar").
		SetScanner(WithOperatingSystem("windows"), WithArchitecture("x86")).
		JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"malware_family":"Eicar","scanner":{"environment":{"operating_system":"windows","architecture":"x86"}}}`, string(data))
}

func TestVerdictBuilder_RejectedArguments(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*VerdictBuilder)
		field string
	}{
		{"ip", func(b *VerdictBuilder) { b.AddIPAddress("asdf") }, "ip_addresses[0]"},
		{"domain", func(b *VerdictBuilder) { b.AddDomains([]string{"polyswarm.io", "bad..io"}) }, "domains[1]"},
		{"scanner version", func(b *VerdictBuilder) { b.SetScanner(WithVersion("asdf")) }, "scanner.version"},
		{"stix", func(b *VerdictBuilder) { b.AddStixSignature("", "a0") }, "stix[0].schema"},
		{"declared extra", func(b *VerdictBuilder) { b.AddExtra("domains", []any{"x"}) }, "domains"},
		{"empty extra key", func(b *VerdictBuilder) { b.AddExtra("", 1) }, ""},
		{"channel extra", func(b *VerdictBuilder) { b.AddExtra("debug", make(chan int)) }, "debug"},
		{"NaN extra", func(b *VerdictBuilder) { b.AddExtra("score", math.NaN()) }, "score"},
		{"nested infinite extra", func(b *VerdictBuilder) { b.AddExtra("scores", map[string]any{"a": math.Inf(1)}) }, "scores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewVerdictBuilder().SetMalwareFamily("Eicar")
			tt.apply(b)

			_, err := b.Build()
			require.Error(t, err)
			ve, ok := AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, []string{tt.field}, ve.Fields())
			assert.True(t, errors.IsFieldConstraint(err))
		})
	}
}

func TestVerdict_UnencodableExtra(t *testing.T) {
	vd := &Verdict{MalwareFamily: "Eicar"}
	vd.setExtra("callback", func() {})

	err := vd.CheckConsistency()
	require.Error(t, err)
	assert.True(t, errors.IsFieldConstraint(err))

	_, err = Marshal(vd)
	assert.True(t, errors.IsFieldConstraint(err), "Marshal must fail on the consistency check, not the encoder")
}

func TestVerdictBuilder_RejectedArgumentLeavesDraft(t *testing.T) {
	b := NewVerdictBuilder().
		SetMalwareFamily("Eicar").
		AddIPAddress("asdf").
		AddIPAddress("10.0.0.1").
		SetScanner(WithVersion("asdf"))

	d := b.Draft()
	assert.Equal(t, []string{"10.0.0.1"}, d.IPAddresses)
	assert.Nil(t, d.Scanner)
}

func TestVerdictBuilder_Extras(t *testing.T) {
	b := NewVerdictBuilder().
		SetMalwareFamily("Eicar").
		AddExtras([]ExtraField{{Key: "b", Value: 1}, {Key: "a", Value: 2}}).
		AddExtra("b", 3)

	assert.Equal(t, []ExtraField{{Key: "b", Value: 3}, {Key: "a", Value: 2}}, b.Draft().Extra())

	data, err := b.JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"malware_family":"Eicar","b":3,"a":2}`, string(data))
}

func TestVerdictBuilder_Heuristic(t *testing.T) {
	data, err := NewVerdictBuilder().SetMalwareFamily("Eicar").SetAnalysisConclusion(false).JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"malware_family":"Eicar","heuristic":false}`, string(data))
}

func TestVerdictBuilder_DraftIsACopy(t *testing.T) {
	b := NewVerdictBuilder().SetMalwareFamily("Eicar").AddDomain("polyswarm.io")
	d := b.Draft()
	d.MalwareFamily = "Other"
	d.Domains[0] = "changed.io"

	again := b.Draft()
	assert.Equal(t, "Eicar", again.MalwareFamily)
	assert.Equal(t, []string{"polyswarm.io"}, again.Domains)
}

func TestAssertionBuilder(t *testing.T) {
	vd, err := NewVerdictBuilder().SetMalwareFamily("Eicar").Build()
	require.NoError(t, err)

	b := NewAssertionBuilder()
	for i := 0; i < MaxItems; i++ {
		b.AddVerdict(vd)
	}
	a, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, MaxItems, a.Len())

	b.AddVerdict(vd)
	_, err = b.Build()
	assert.True(t, errors.IsStructural(err))
}

func TestAssertionBuilder_InvalidVerdict(t *testing.T) {
	_, err := NewAssertionBuilder().
		AddVerdicts([]*Verdict{{MalwareFamily: "Eicar"}, {Domains: []string{"polyswarm.io"}}}).
		Build()
	require.Error(t, err)
	ve, _ := AsValidationError(err)
	assert.Equal(t, []string{"[1].malware_family"}, ve.Fields())

	_, err = NewAssertionBuilder().AddVerdict(nil).Build()
	assert.True(t, errors.IsStructural(err))
}

func TestAssertionBuilder_JSON(t *testing.T) {
	data, err := NewAssertionBuilder().
		AddVerdict(&Verdict{MalwareFamily: "Eicar", IPAddresses: []string{"::1"}}).
		JSON()
	require.NoError(t, err)
	assert.Equal(t, `[{"malware_family":"Eicar","ip_addresses":["::1"]}]`, string(data))
}
