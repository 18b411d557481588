package compress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/exploopio/artifact/pkg/errors"
	"github.com/exploopio/artifact/pkg/schema"
)

const verdictJSON = `[{"malware_family":"Eicar","domains":["polyswarm.io"],"ip_addresses":["192.168.0.1"]}]`

func TestCompressor_RoundTrip(t *testing.T) {
	for _, algorithm := range []Algorithm{AlgorithmZSTD, AlgorithmGzip, AlgorithmNone} {
		t.Run(string(algorithm), func(t *testing.T) {
			compressor := NewCompressor(algorithm, LevelDefault)
			testData := []byte(verdictJSON)

			compressed, err := compressor.Compress(testData)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			t.Logf("Original size: %d, Compressed size: %d", len(testData), len(compressed))

			if got := Detect(compressed); got != algorithm {
				t.Errorf("Detect() = %v, want %v", got, algorithm)
			}

			decompressed, err := compressor.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}

			if !bytes.Equal(testData, decompressed) {
				t.Errorf("Decompressed data doesn't match original")
			}
		})
	}
}

func TestCompressor_Unsupported(t *testing.T) {
	compressor := NewCompressor("lz4", LevelDefault)

	if _, err := compressor.Compress([]byte("x")); errors.GetKind(err) != errors.KindInvalidInput {
		t.Errorf("Compress() error = %v, want invalid input", err)
	}
	if _, err := compressor.Decompress([]byte("x")); errors.GetKind(err) != errors.KindInvalidInput {
		t.Errorf("Decompress() error = %v, want invalid input", err)
	}
}

func TestCompressor_Corrupt(t *testing.T) {
	for _, c := range []*Compressor{DefaultZSTD, DefaultGzip} {
		t.Run(string(c.Algorithm()), func(t *testing.T) {
			_, err := c.Decompress([]byte("definitely not compressed"))
			if !errors.IsDecode(err) {
				t.Errorf("Decompress() error = %v, want decode error", err)
			}
		})
	}
}

func TestCompressor_MaxDecodedSize(t *testing.T) {
	payload := bytes.Repeat([]byte{'a'}, 4096)

	for _, algorithm := range []Algorithm{AlgorithmZSTD, AlgorithmGzip} {
		t.Run(string(algorithm), func(t *testing.T) {
			compressed, err := NewCompressor(algorithm, LevelDefault).Compress(payload)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			if _, err := NewCompressor(algorithm, LevelDefault).WithMaxDecodedSize(1024).Decompress(compressed); !errors.IsDecode(err) {
				t.Errorf("Decompress() error = %v, want decode error", err)
			}

			out, err := NewCompressor(algorithm, LevelDefault).WithMaxDecodedSize(len(payload)).Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress at the limit failed: %v", err)
			}
			if !bytes.Equal(out, payload) {
				t.Error("Decompressed data does not match original")
			}
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"zstd", AlgorithmZSTD, false},
		{"GZIP", AlgorithmGzip, false},
		{" none ", AlgorithmNone, false},
		{"", AlgorithmNone, false},
		{"brotli", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFor(t *testing.T) {
	if c, err := For(AlgorithmZSTD); err != nil || c != DefaultZSTD {
		t.Errorf("For(zstd) = %v, %v", c, err)
	}
	if c, err := For(""); err != nil || c.Algorithm() != AlgorithmNone {
		t.Errorf("For(\"\") = %v, %v", c, err)
	}
	if _, err := For("lz4"); err == nil {
		t.Errorf("For(lz4) should fail")
	}
}

func TestCompressor_CompressWithStats(t *testing.T) {
	compressor := NewCompressor(AlgorithmZSTD, LevelDefault)

	// Create large repetitive data (compresses well)
	testData := []byte(strings.Repeat(`{"mimetype":"text/plain","filesize":68},`, 1000))

	compressed, stats, err := compressor.CompressWithStats(testData)
	if err != nil {
		t.Fatalf("CompressWithStats failed: %v", err)
	}

	if stats.OriginalSize != len(testData) {
		t.Errorf("OriginalSize = %d, want %d", stats.OriginalSize, len(testData))
	}

	if stats.CompressedSize != len(compressed) {
		t.Errorf("CompressedSize = %d, want %d", stats.CompressedSize, len(compressed))
	}

	if stats.Ratio <= 0 || stats.Ratio > 1 {
		t.Errorf("Ratio = %f, expected between 0 and 1", stats.Ratio)
	}

	if stats.Savings < 50 {
		t.Errorf("Expected >50%% savings on repetitive data, got %f%%", stats.Savings)
	}
}

func TestCompressor_EmptyStats(t *testing.T) {
	_, stats, err := NewCompressor(AlgorithmNone, LevelDefault).CompressWithStats(nil)
	if err != nil {
		t.Fatalf("CompressWithStats failed: %v", err)
	}
	if stats.Ratio != 1 || stats.Savings != 0 {
		t.Errorf("empty payload stats = %+v", stats)
	}
}

func TestQuickCompress(t *testing.T) {
	testData := []byte(`{"malware_family":"Eicar"}`)

	compressed, err := QuickCompress(testData)
	if err != nil {
		t.Fatalf("QuickCompress failed: %v", err)
	}

	decompressed, err := QuickDecompress(compressed)
	if err != nil {
		t.Fatalf("QuickDecompress failed: %v", err)
	}

	if !bytes.Equal(testData, decompressed) {
		t.Error("Data mismatch")
	}
}

func fileBounty(t *testing.T, n int) *schema.Bounty {
	t.Helper()
	b := schema.NewBountyBuilder()
	for i := 0; i < n; i++ {
		b.AddFileArtifact(schema.FileArtifact{
			MIMEType: "application/octet-stream",
			Filename: "sample.bin",
			SHA256:   strings.Repeat("ab", 32),
		})
	}
	bounty, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return bounty
}

func TestAnalyzer_Small(t *testing.T) {
	result, err := NewAnalyzer(nil).Analyze(fileBounty(t, 2))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Strategy != StrategyDirect || result.Algorithm != AlgorithmNone {
		t.Errorf("small bounty: strategy = %v/%v, want direct/none", result.Strategy, result.Algorithm)
	}
	if result.Kind != schema.KindBounty || result.ItemsCount != 2 {
		t.Errorf("unexpected metrics: %+v", result)
	}
	if result.EstimatedCompressedSize != 0 {
		t.Errorf("direct strategy should not estimate compression")
	}
}

func TestAnalyzer_ManyItems(t *testing.T) {
	result, err := DefaultAnalyzer.Analyze(fileBounty(t, schema.MaxItems))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Strategy != StrategyCompress || result.Algorithm != AlgorithmZSTD {
		t.Errorf("full bounty: strategy = %v/%v, want compress/zstd", result.Strategy, result.Algorithm)
	}
	if result.EstimatedRatio <= 0 || result.EstimatedRatio >= 1 {
		t.Errorf("EstimatedRatio = %f", result.EstimatedRatio)
	}
	if result.Reason != "items count exceeds compression threshold" {
		t.Errorf("Reason = %q", result.Reason)
	}
}

func TestAnalyzer_PoorRatio(t *testing.T) {
	a := NewAnalyzer(&AnalyzerConfig{MinSizeForCompression: 1, MinItemsForCompression: 1000, MinSavingsPercent: 99.9})
	result, err := a.Analyze(&schema.Verdict{MalwareFamily: "Eicar"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Strategy != StrategyDirect {
		t.Errorf("Strategy = %v, want direct", result.Strategy)
	}
	if result.Reason != "compression saves too little" {
		t.Errorf("Reason = %q", result.Reason)
	}
}

func TestAnalyzer_Invalid(t *testing.T) {
	if _, err := DefaultAnalyzer.Analyze(&schema.Bounty{}); err == nil {
		t.Error("Analyze should reject an invalid document")
	}
}

func TestShouldCompress(t *testing.T) {
	a := NewAnalyzer(nil)
	if a.ShouldCompress(1, 100) {
		t.Error("small payload should not be compressed")
	}
	if !a.ShouldCompress(64, 100) {
		t.Error("64 items should be compressed")
	}
	if !a.ShouldCompress(1, 4096) {
		t.Error("4KB payload should be compressed")
	}
}

func BenchmarkCompressor_ZSTD(b *testing.B) {
	compressor := NewCompressor(AlgorithmZSTD, LevelDefault)
	testData := []byte(strings.Repeat(verdictJSON, 256))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := compressor.Compress(testData)
		if err != nil {
			b.Fatal(err)
		}
	}

	b.SetBytes(int64(len(testData)))
}

func BenchmarkCompressor_Gzip(b *testing.B) {
	compressor := NewCompressor(AlgorithmGzip, LevelDefault)
	testData := []byte(strings.Repeat(verdictJSON, 256))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := compressor.Compress(testData)
		if err != nil {
			b.Fatal(err)
		}
	}

	b.SetBytes(int64(len(testData)))
}
