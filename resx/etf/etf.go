// Package etf implements the "ETF-compatible" self-delimiting binary term
// format the spec calls for in the file store's .meta sidecar and in
// resx-transform: URI option encoding. Per the glossary, any canonical format
// that round-trips the same values is acceptable; this implementation uses
// msgpack (via the teacher's already-latent hashicorp/go-msgpack dependency,
// pulled in transitively through hashicorp/raft in services/mesh) rather than
// inventing a bespoke term encoder.
package etf

import (
	"bytes"
	"fmt"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

var handle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.RawToString = true
	return h
}()

// Encode serialises v into a self-delimiting byte sequence.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, handle)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("etf: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserialises data into v, which must be a pointer.
func Decode(data []byte, v interface{}) error {
	dec := codec.NewDecoder(bytes.NewReader(data), handle)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("etf: decode: %w", err)
	}
	return nil
}

// EncodeMap is a convenience for the common case of encoding a string-keyed
// option or meta mapping.
func EncodeMap(m map[string]interface{}) ([]byte, error) {
	return Encode(m)
}

// DecodeMap decodes data into a fresh string-keyed mapping.
func DecodeMap(data []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if len(data) == 0 {
		return out, nil
	}
	if err := Decode(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
