// Package compress provides compression for encoded document payloads.
//
// ZSTD is the default; gzip is offered for consumers that can only
// inflate. Decompression output is bounded, so a sealed payload can not
// expand without limit when it is opened. The analyzer decides whether a
// document is worth compressing at all.
//
// Example usage:
//
//	compressor := compress.NewCompressor(compress.AlgorithmZSTD, compress.LevelDefault)
//	compressed, err := compressor.Compress(payload)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Later, decompress
//	original, err := compressor.Decompress(compressed)
package compress

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/exploopio/artifact/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// AlgorithmZSTD is the Zstandard compression algorithm.
	AlgorithmZSTD Algorithm = "zstd"

	// AlgorithmGzip is the gzip compression algorithm.
	AlgorithmGzip Algorithm = "gzip"

	// AlgorithmNone indicates no compression.
	AlgorithmNone Algorithm = "none"
)

// ParseAlgorithm returns the algorithm named by s. An empty name is
// AlgorithmNone.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case AlgorithmZSTD, AlgorithmGzip, AlgorithmNone:
		return a, nil
	case "":
		return AlgorithmNone, nil
	}
	return "", errors.E(errors.KindInvalidInput, "compress.ParseAlgorithm", "unsupported compression algorithm: "+s)
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// Detect reports the algorithm of data from its magic bytes, or
// AlgorithmNone when it carries neither frame header. JSON and CBOR
// documents never start with either.
func Detect(data []byte) Algorithm {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return AlgorithmZSTD
	case bytes.HasPrefix(data, gzipMagic):
		return AlgorithmGzip
	}
	return AlgorithmNone
}

// Level is a compression level on the zstd scale (1 fastest, 9 best).
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 3
	LevelBetter  Level = 6
	LevelBest    Level = 9
)

// gzip maps the level onto the three gzip presets.
func (l Level) gzip() int {
	switch {
	case l <= LevelDefault:
		return gzip.BestSpeed
	case l >= 7:
		return gzip.BestCompression
	}
	return gzip.DefaultCompression
}

// MaxDecodedSize is the default bound on Decompress output. A bounty of
// 256 artifacts encodes to a few tens of kilobytes; anything near this
// size is not a document.
const MaxDecodedSize = 16 << 20

// Compressor compresses and decompresses payloads with one algorithm.
// It is safe for concurrent use: the zstd encoder and decoder are shared
// and only used through EncodeAll and DecodeAll.
type Compressor struct {
	algorithm Algorithm
	level     Level
	maxSize   int

	once    sync.Once
	initErr error
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a compressor for algorithm at level. Decompressed
// output is bounded by MaxDecodedSize.
func NewCompressor(algorithm Algorithm, level Level) *Compressor {
	return &Compressor{algorithm: algorithm, level: level, maxSize: MaxDecodedSize}
}

// WithMaxDecodedSize returns a compressor like c whose Decompress output
// is bounded by n bytes.
func (c *Compressor) WithMaxDecodedSize(n int) *Compressor {
	return &Compressor{algorithm: c.algorithm, level: c.level, maxSize: n}
}

// Algorithm returns the compression algorithm.
func (c *Compressor) Algorithm() Algorithm {
	return c.algorithm
}

// Compress compresses data.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case AlgorithmZSTD:
		if err := c.initZSTD(); err != nil {
			return nil, err
		}
		return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case AlgorithmGzip:
		return c.compressGzip(data)
	case AlgorithmNone:
		return data, nil
	}
	return nil, errors.E(errors.KindInvalidInput, "compress.Compress", "unsupported compression algorithm: "+string(c.algorithm))
}

// Decompress reverses Compress. Corrupt input and output larger than the
// size bound are Decode errors.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case AlgorithmZSTD:
		if err := c.initZSTD(); err != nil {
			return nil, err
		}
		out, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.E(errors.KindDecode, "compress.zstd", "invalid zstd payload", err)
		}
		return out, nil
	case AlgorithmGzip:
		return c.decompressGzip(data)
	case AlgorithmNone:
		return data, nil
	}
	return nil, errors.E(errors.KindInvalidInput, "compress.Decompress", "unsupported compression algorithm: "+string(c.algorithm))
}

func (c *Compressor) initZSTD() error {
	c.once.Do(func() {
		c.encoder, c.initErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(int(c.level))))
		if c.initErr != nil {
			return
		}
		c.decoder, c.initErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(uint64(c.maxSize)))
	})
	if c.initErr != nil {
		return errors.E(errors.KindInternal, "compress.zstd", "zstd setup failed", c.initErr)
	}
	return nil
}

func (c *Compressor) compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level.gzip())
	if err != nil {
		return nil, errors.E(errors.KindInternal, "compress.gzip", "gzip writer error", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.E(errors.KindInternal, "compress.gzip", "gzip write error", err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.E(errors.KindInternal, "compress.gzip", "gzip close error", err)
	}
	return buf.Bytes(), nil
}

func (c *Compressor) decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.E(errors.KindDecode, "compress.gzip", "invalid gzip payload", err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, int64(c.maxSize)+1))
	if err != nil {
		return nil, errors.E(errors.KindDecode, "compress.gzip", "invalid gzip payload", err)
	}
	if len(out) > c.maxSize {
		return nil, errors.E(errors.KindDecode, "compress.gzip", fmt.Sprintf("payload expands beyond %d bytes", c.maxSize))
	}
	return out, nil
}

// CompressionStats describes one compression.
type CompressionStats struct {
	OriginalSize   int     `json:"original_size"`
	CompressedSize int     `json:"compressed_size"`
	Ratio          float64 `json:"ratio"`           // compressed/original
	Savings        float64 `json:"savings_percent"` // (1 - ratio) * 100
	Algorithm      string  `json:"algorithm"`
}

// CompressWithStats compresses data and reports the sizes. An empty input
// has ratio 1.
func (c *Compressor) CompressWithStats(data []byte) ([]byte, *CompressionStats, error) {
	compressed, err := c.Compress(data)
	if err != nil {
		return nil, nil, err
	}

	ratio := 1.0
	if len(data) > 0 {
		ratio = float64(len(compressed)) / float64(len(data))
	}
	return compressed, &CompressionStats{
		OriginalSize:   len(data),
		CompressedSize: len(compressed),
		Ratio:          ratio,
		Savings:        (1 - ratio) * 100,
		Algorithm:      string(c.algorithm),
	}, nil
}

// Shared compressors, one per algorithm.
var (
	DefaultZSTD = NewCompressor(AlgorithmZSTD, LevelDefault)
	DefaultGzip = NewCompressor(AlgorithmGzip, LevelDefault)

	noCompression = NewCompressor(AlgorithmNone, LevelDefault)
)

// For returns the shared compressor of algorithm. An empty algorithm is
// AlgorithmNone.
func For(algorithm Algorithm) (*Compressor, error) {
	switch algorithm {
	case AlgorithmZSTD:
		return DefaultZSTD, nil
	case AlgorithmGzip:
		return DefaultGzip, nil
	case AlgorithmNone, "":
		return noCompression, nil
	}
	return nil, errors.E(errors.KindInvalidInput, "compress.For", "unsupported compression algorithm: "+string(algorithm))
}

// QuickCompress compresses data using the default ZSTD compressor.
func QuickCompress(data []byte) ([]byte, error) {
	return DefaultZSTD.Compress(data)
}

// QuickDecompress decompresses ZSTD data using the default decompressor.
func QuickDecompress(data []byte) ([]byte, error) {
	return DefaultZSTD.Decompress(data)
}
