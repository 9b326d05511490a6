package viewstate

import (
	"encoding/binary"
	"fmt"
)

// settingsSchemaVer is the version of the settings schema written into every
// stored field value. Bump it when a field changes meaning.
const settingsSchemaVer = 1

type valueFlags uint64

const (
	vfVerBit0 = valueFlags(1 << iota)
	vfVerBit1
	vfVerBit2
	vfVerBit3
	vfEncodingBit0

	vfVerMask       = (vfVerBit0 | vfVerBit1 | vfVerBit2 | vfVerBit3)
	vfVer1          = vfVerBit0
	vfJSON          = vfEncodingBit0
	vfSupportedMask = (vfVer1 | vfJSON)
	vfDefault       = vfVer1

	minValueSize       = 4
	maxValueHeaderSize = binary.MaxVarintLen64 * 4
	maxSchemaVersion   = 32768 // just a sanity value, can be increased
)

func (vf valueFlags) ver() valueFlags {
	return vf & vfVerMask
}

func (vf valueFlags) encoding() Encoding {
	if vf&vfJSON != 0 {
		return JSON
	}
	return MsgPack
}

func flagsForEncoding(enc Encoding) valueFlags {
	if enc == JSON {
		return vfDefault | vfJSON
	}
	return vfDefault
}

// ValueMeta is the bookkeeping stored alongside each settings field.
type ValueMeta struct {
	SchemaVer uint64
	ModCount  uint64
}

type value struct {
	Flags     valueFlags
	SchemaVer uint64
	ModCount  uint64
	Data      []byte
}

func (vle value) ValueMeta() ValueMeta {
	return ValueMeta{
		SchemaVer: vle.SchemaVer,
		ModCount:  vle.ModCount,
	}
}

func reserveValueHeader(buf []byte) []byte {
	if len(buf) != 0 {
		panic("value must be written to an empty buffer")
	}
	return append(buf, make([]byte, maxValueHeaderSize)...)
}

// putValueHeader fills in the header of a value whose data has been
// appended after reserveValueHeader, and returns the complete value.
func putValueHeader(buf []byte, flags valueFlags, schemaVer uint64, modCount uint64) []byte {
	if len(buf) < maxValueHeaderSize {
		panic(fmt.Errorf("invalid value buffer of %d bytes", len(buf))) // sanity check
	}
	if (flags &^ vfSupportedMask) != 0 {
		panic(fmt.Errorf("invalid flags %x", flags))
	}
	dataSize := len(buf) - maxValueHeaderSize

	var off = 0
	n := binary.PutUvarint(buf[off:], uint64(flags))
	off += n
	n = binary.PutUvarint(buf[off:], schemaVer)
	off += n
	n = binary.PutUvarint(buf[off:], modCount)
	off += n
	n = binary.PutUvarint(buf[off:], uint64(dataSize))
	off += n
	headerSize := off
	if headerSize > maxValueHeaderSize {
		panic("internal error")
	}
	if headerSize < maxValueHeaderSize {
		// move the header closer to data
		start := maxValueHeaderSize - headerSize
		copy(buf[start:maxValueHeaderSize], buf[:headerSize])
		return buf[start:]
	} else {
		return buf
	}
}

func (vle *value) decode(data []byte) error {
	orig := data
	if len(data) < minValueSize {
		return dataErrf(orig, 0, nil, "invalid value: at least %d bytes required", minValueSize)
	}

	v, n := binary.Uvarint(data)
	if n <= 0 {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: bad flags")
	}
	if (v & ^uint64(vfSupportedMask)) != 0 {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: unsupported flags %x", v)
	}
	vle.Flags, data = valueFlags(v), data[n:]
	if vle.Flags.ver() != vfVer1 {
		return dataErrf(orig, 0, nil, "invalid value: unsupported format version %d", vle.Flags.ver())
	}

	v, n = binary.Uvarint(data)
	if n <= 0 || v > maxSchemaVersion {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: bad schema version")
	}
	vle.SchemaVer, data = v, data[n:]

	v, n = binary.Uvarint(data)
	if n <= 0 {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: bad mod count")
	}
	vle.ModCount, data = v, data[n:]

	dataSize, n := binary.Uvarint(data)
	if n <= 0 {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: bad data size")
	}
	data = data[n:]

	if uint64(len(data)) != dataSize {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: got %d bytes of data, expected %d bytes", len(data), dataSize)
	}
	vle.Data = data
	return nil
}
