// Package codec encodes validated documents as CBOR.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. A document
// encodes from its canonical form, so two equal documents always produce
// identical bytes. Decoding always re-validates:
//
//	data, err := codec.Marshal(bounty)
//	doc, err := codec.Unmarshal(schema.KindBounty, data)
package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/exploopio/artifact/pkg/errors"
	"github.com/exploopio/artifact/pkg/schema"
)

var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Documents only have string keys; any-typed targets must decode
		// to the map type the schema parsers accept.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Integers decode to int64 where they fit, like the JSON path.
		IntDec: cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal checks doc and encodes its canonical form as deterministic CBOR.
func Marshal(doc schema.Document) ([]byte, error) {
	v, err := schema.ToValue(doc)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, errors.E(errors.KindInternal, "codec.Marshal", "CBOR encoding failed", err)
	}
	return data, nil
}

// Unmarshal decodes CBOR data and validates it as a document of kind.
func Unmarshal(kind schema.Kind, data []byte) (schema.Document, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return schema.Parse(kind, v)
}

// Decode decodes CBOR data into plain values without validating them.
func Decode(data []byte) (any, error) {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, errors.E(errors.KindDecode, "codec.Decode", "invalid CBOR", err)
	}
	return v, nil
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) of data.
func Diagnose(data []byte) (string, error) {
	s, err := cbor.Diagnose(data)
	if err != nil {
		return "", errors.E(errors.KindDecode, "codec.Diagnose", "invalid CBOR", err)
	}
	return s, nil
}
