package viewstate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects how field values are serialized in the settings store.
type Encoding int

const (
	MsgPack Encoding = iota
	JSON

	defaultValueEncoding = MsgPack
)

func (enc Encoding) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("Encoding(%d)", int(enc))
	}
}

// EncodeValue appends the serialized form of a raw settings value to buf.
func (enc Encoding) EncodeValue(buf []byte, v any) ([]byte, error) {
	switch enc {
	case MsgPack:
		bb := bytesBuilder{buf}
		enc := msgpack.GetEncoder()
		enc.Reset(&bb)
		enc.SetSortMapKeys(true)
		err := enc.Encode(v)
		msgpack.PutEncoder(enc)
		if err != nil {
			return buf, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
		}
		return bb.Buf, nil
	case JSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return buf, fmt.Errorf("failed to encode %T to JSON: %w", v, err)
		}
		return append(buf, raw...), nil
	default:
		panic("unsupported encoding")
	}
}

// DecodeValue decodes a raw settings value: maps come back as
// map[string]any, arrays as []any.
func (enc Encoding) DecodeValue(buf []byte) (any, error) {
	switch enc {
	case MsgPack:
		var r bytes.Reader
		r.Reset(buf)
		dec := msgpack.GetDecoder()
		dec.Reset(&r)
		v, err := dec.DecodeInterface()
		msgpack.PutDecoder(dec)
		if err != nil {
			return nil, dataErrf(buf, 0, err, "failed to decode msgpack")
		}
		return v, nil
	case JSON:
		var v any
		err := json.Unmarshal(buf, &v)
		if err != nil {
			return nil, dataErrf(buf, 0, err, "failed to decode JSON")
		}
		return v, nil
	default:
		panic("unsupported encoding")
	}
}

type bytesBuilder struct {
	Buf []byte
}

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = append(bb.Buf, b...)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(v byte) error {
	bb.Buf = append(bb.Buf, v)
	return nil
}
