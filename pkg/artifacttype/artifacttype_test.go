package artifacttype

import (
	"bytes"
	"strings"
	"testing"

	"github.com/exploopio/artifact/pkg/core"
	"github.com/exploopio/artifact/pkg/errors"
)

func TestFromString(t *testing.T) {
	tests := []struct {
		in     string
		want   ArtifactType
		wantOK bool
	}{
		{"file", File, true},
		{"FILE", File, true},
		{"url", URL, true},
		{"URL", URL, true},
		{"Url", URL, true},
		{"fake", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := FromString(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("FromString(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("FromString(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromString_LogsUnknown(t *testing.T) {
	var buf bytes.Buffer
	l := core.NewDefaultLogger("", core.LogLevelDebug)
	l.SetOutput(&buf)
	core.SetDefaultLogger(l)
	t.Cleanup(func() { core.SetDefaultLogger(nil) })

	FromString("fake")
	if !strings.Contains(buf.String(), "fake is not a supported artifact type") {
		t.Errorf("expected log line, got %q", buf.String())
	}

	buf.Reset()
	FromString("")
	if buf.Len() != 0 {
		t.Errorf("empty value should not log, got %q", buf.String())
	}
}

func TestString(t *testing.T) {
	if File.String() != "file" {
		t.Errorf("File.String() = %q", File.String())
	}
	if URL.String() != "url" {
		t.Errorf("URL.String() = %q", URL.String())
	}
	if ArtifactType(7).String() != "unknown" {
		t.Errorf("ArtifactType(7).String() = %q", ArtifactType(7).String())
	}
}

func TestFromInt(t *testing.T) {
	if got, ok := FromInt(0); !ok || got != File {
		t.Errorf("FromInt(0) = %v, %v", got, ok)
	}
	if got, ok := FromInt(1); !ok || got != URL {
		t.Errorf("FromInt(1) = %v, %v", got, ok)
	}
	if _, ok := FromInt(2); ok {
		t.Error("FromInt(2) should not be ok")
	}
	if int(File) != 0 || int(URL) != 1 {
		t.Error("wire values changed")
	}
}

func TestDecodeContent(t *testing.T) {
	t.Run("file returns bytes", func(t *testing.T) {
		got, err := File.DecodeContent([]byte("test string"))
		if err != nil {
			t.Fatal(err)
		}
		b, ok := got.([]byte)
		if !ok || string(b) != "test string" {
			t.Errorf("DecodeContent() = %#v", got)
		}
	})

	t.Run("url returns string", func(t *testing.T) {
		got, err := URL.DecodeContent([]byte("test string"))
		if err != nil {
			t.Fatal(err)
		}
		if got != "test string" {
			t.Errorf("DecodeContent() = %#v", got)
		}
	})

	t.Run("empty is nil", func(t *testing.T) {
		for _, in := range [][]byte{nil, {}} {
			got, err := URL.DecodeContent(in)
			if err != nil || got != nil {
				t.Errorf("DecodeContent(%v) = %#v, %v", in, got, err)
			}
		}
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		_, err := URL.DecodeContent([]byte{0xff, 0xfe})
		if !errors.IsDecode(err) {
			t.Errorf("expected decode error, got %v", err)
		}
	})
}
