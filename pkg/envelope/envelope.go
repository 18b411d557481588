// Package envelope wraps a validated document in a self-describing
// transport record.
//
// An envelope carries everything needed to get the document back: its
// kind, the payload encoding and compression, and the document
// fingerprint. Open re-validates the payload and checks the digest, so
// an opened document is always one that could have been sealed.
//
// Example usage:
//
//	env, err := envelope.Seal(bounty,
//	    envelope.WithEncoding(envelope.EncodingCBOR),
//	    envelope.WithCompression(compress.AlgorithmZSTD),
//	)
//	data, err := env.Marshal()
//
//	// Later
//	env, err = envelope.Unmarshal(data)
//	doc, err := envelope.Open(env)
package envelope

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/exploopio/artifact/pkg/codec"
	"github.com/exploopio/artifact/pkg/compress"
	"github.com/exploopio/artifact/pkg/core"
	"github.com/exploopio/artifact/pkg/errors"
	"github.com/exploopio/artifact/pkg/fingerprint"
	"github.com/exploopio/artifact/pkg/metrics"
	"github.com/exploopio/artifact/pkg/schema"
)

// Encoding names the payload serialization.
type Encoding string

const (
	// EncodingJSON is the canonical compact JSON of the document.
	EncodingJSON Encoding = "json"

	// EncodingCBOR is the deterministic CBOR of the document.
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding returns the encoding named by s. An empty name is JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(s))); e {
	case EncodingJSON, EncodingCBOR:
		return e, nil
	case "":
		return EncodingJSON, nil
	}
	return "", errors.E(errors.KindInvalidInput, "envelope.ParseEncoding", "unsupported encoding: "+s)
}

// Envelope is a sealed document.
type Envelope struct {
	ID          uuid.UUID          `json:"id"`
	Kind        schema.Kind        `json:"kind"`
	Encoding    Encoding           `json:"encoding"`
	Compression compress.Algorithm `json:"compression"`
	// Digest is the fingerprint of the document, whatever the payload
	// encoding.
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
	Payload   []byte    `json:"payload"`
}

type options struct {
	encoding    Encoding
	compression compress.Algorithm
	analyzer    *compress.Analyzer
	id          uuid.UUID
	now         func() time.Time
}

// Option configures Seal.
type Option func(*options)

// WithEncoding sets the payload encoding. Default: EncodingJSON.
func WithEncoding(e Encoding) Option {
	return func(o *options) {
		o.encoding = e
	}
}

// WithCompression compresses the payload with algorithm.
// Default: compress.AlgorithmNone.
func WithCompression(algorithm compress.Algorithm) Option {
	return func(o *options) {
		o.compression = algorithm
		o.analyzer = nil
	}
}

// WithAutoCompression lets analyzer decide whether to compress the
// payload. A nil analyzer uses compress.DefaultAnalyzer.
func WithAutoCompression(analyzer *compress.Analyzer) Option {
	return func(o *options) {
		if analyzer == nil {
			analyzer = compress.DefaultAnalyzer
		}
		o.analyzer = analyzer
	}
}

// WithID sets the envelope id instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithClock sets the time source for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Seal validates doc and wraps it in an envelope.
func Seal(doc schema.Document, opts ...Option) (*Envelope, error) {
	o := &options{
		encoding:    EncodingJSON,
		compression: compress.AlgorithmNone,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	env, err := seal(doc, o)
	record(metrics.OperationSeal, err)
	if err != nil {
		return nil, err
	}

	metrics.GetDefaultCollector().HistogramObserve(metrics.PayloadBytes.Name, float64(len(env.Payload)),
		"encoding", string(env.Encoding), "compression", string(env.Compression))
	core.GetDefaultLogger().Debug("sealed %s %s (%s/%s, %d bytes)", env.Kind, env.ID, env.Encoding, env.Compression, len(env.Payload))
	return env, nil
}

func seal(doc schema.Document, o *options) (*Envelope, error) {
	canonical, err := schema.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch o.encoding {
	case EncodingJSON:
		payload = canonical
	case EncodingCBOR:
		if payload, err = codec.Marshal(doc); err != nil {
			return nil, err
		}
	default:
		return nil, errors.E(errors.KindInvalidInput, "envelope.Seal", "unsupported encoding: "+string(o.encoding))
	}

	algorithm := o.compression
	if o.analyzer != nil {
		algorithm = o.analyzer.AnalyzePayload(doc.Kind(), compress.ItemsCount(doc), payload).Algorithm
	}
	compressor, err := compress.For(algorithm)
	if err != nil {
		return nil, err
	}
	if payload, err = compressor.Compress(payload); err != nil {
		return nil, err
	}

	digest, err := fingerprint.Document(doc)
	if err != nil {
		return nil, err
	}

	id := o.id
	if id == uuid.Nil {
		id = uuid.New()
	}

	return &Envelope{
		ID:          id,
		Kind:        doc.Kind(),
		Encoding:    o.encoding,
		Compression: compressor.Algorithm(),
		Digest:      digest,
		CreatedAt:   o.now().UTC(),
		Payload:     payload,
	}, nil
}

// Open decompresses and decodes the payload of env, validates it as a
// document of env.Kind and verifies the digest.
func Open(env *Envelope) (schema.Document, error) {
	doc, err := open(env)
	record(metrics.OperationOpen, err)
	if err != nil {
		core.GetDefaultLogger().Debug("open rejected: %v", err)
		return nil, err
	}
	return doc, nil
}

func open(env *Envelope) (schema.Document, error) {
	if env == nil {
		return nil, errors.E(errors.KindInvalidInput, "envelope.Open", "nil envelope")
	}

	compressor, err := compress.For(env.Compression)
	if err != nil {
		return nil, err
	}
	payload, err := compressor.Decompress(env.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "envelope.Open")
	}

	var doc schema.Document
	switch env.Encoding {
	case EncodingJSON, "":
		doc, err = schema.ParseJSON(env.Kind, payload)
	case EncodingCBOR:
		doc, err = codec.Unmarshal(env.Kind, payload)
	default:
		return nil, errors.E(errors.KindInvalidInput, "envelope.Open", "unsupported encoding: "+string(env.Encoding))
	}
	if err != nil {
		return nil, errors.Wrap(err, "envelope.Open")
	}

	digest, err := fingerprint.Document(doc)
	if err != nil {
		return nil, err
	}
	if env.Digest != "" && !strings.EqualFold(digest, env.Digest) {
		return nil, errors.E(errors.KindDecode, "envelope.Open", "digest mismatch: payload hashes to "+digest)
	}
	return doc, nil
}

func record(operation string, err error) {
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	metrics.GetDefaultCollector().CounterInc(metrics.EnvelopesTotal.Name, "operation", operation, "status", status)
}

// Marshal returns the JSON form of the envelope. The payload is base64.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.E(errors.KindInternal, "envelope.Marshal", "envelope is not representable as JSON", err)
	}
	return data, nil
}

// Unmarshal decodes the JSON form of an envelope. Unknown fields are
// rejected.
func Unmarshal(data []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, errors.E(errors.KindDecode, "envelope.Unmarshal", "invalid envelope", err)
	}
	return &env, nil
}
