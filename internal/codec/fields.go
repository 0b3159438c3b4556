package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FieldType tags the wire representation of a single payload field.
type FieldType uint8

const (
	FieldString FieldType = iota + 1
	FieldBytes
	FieldU8
	FieldU16
	FieldU32
	FieldU64
	FieldDouble
	FieldSub    // nested typed-field substructure
	FieldPacket // recursive sub-frame (e.g. a DATA event carrying a captured packet)
)

// Field is one (name, type, value) tuple inside a frame's payload.
// Value holds the Go-native representation selected by Type:
//
//	FieldString -> string
//	FieldBytes  -> []byte
//	FieldU8     -> uint8
//	FieldU16    -> uint16
//	FieldU32    -> uint32
//	FieldU64    -> uint64
//	FieldDouble -> float64
//	FieldSub    -> []Field
//	FieldPacket -> Frame
type Field struct {
	Name  string
	Type  FieldType
	Value interface{}
}

func encodeFields(fields []Field) []byte {
	var buf []byte
	for _, f := range fields {
		buf = append(buf, encodeField(f)...)
	}
	return buf
}

func encodeField(f Field) []byte {
	var valueBytes []byte
	switch f.Type {
	case FieldString:
		valueBytes = []byte(f.Value.(string))
	case FieldBytes:
		valueBytes = f.Value.([]byte)
	case FieldU8:
		valueBytes = []byte{f.Value.(uint8)}
	case FieldU16:
		valueBytes = make([]byte, 2)
		binary.BigEndian.PutUint16(valueBytes, f.Value.(uint16))
	case FieldU32:
		valueBytes = make([]byte, 4)
		binary.BigEndian.PutUint32(valueBytes, f.Value.(uint32))
	case FieldU64:
		valueBytes = make([]byte, 8)
		binary.BigEndian.PutUint64(valueBytes, f.Value.(uint64))
	case FieldDouble:
		valueBytes = make([]byte, 8)
		binary.BigEndian.PutUint64(valueBytes, math.Float64bits(f.Value.(float64)))
	case FieldSub:
		valueBytes = encodeFields(f.Value.([]Field))
	case FieldPacket:
		valueBytes = Encode(f.Value.(Frame))
	}

	name := []byte(f.Name)
	// name: zstring (length-prefixed, not NUL-terminated, to keep names
	// binary-safe); type: u8; length: u32; bytes: value
	out := make([]byte, 0, 4+len(name)+1+4+len(valueBytes))
	nameLen := make([]byte, 4)
	binary.BigEndian.PutUint32(nameLen, uint32(len(name)))
	out = append(out, nameLen...)
	out = append(out, name...)
	out = append(out, byte(f.Type))
	lenBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBytes, uint32(len(valueBytes)))
	out = append(out, lenBytes...)
	out = append(out, valueBytes...)
	return out
}

func decodeFields(data []byte) ([]Field, error) {
	var fields []Field
	offset := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("codec: truncated field name length at offset %d", offset)
		}
		nameLen := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if offset+nameLen > len(data) {
			return nil, fmt.Errorf("codec: truncated field name at offset %d", offset)
		}
		name := string(data[offset : offset+nameLen])
		offset += nameLen

		if offset+1 > len(data) {
			return nil, fmt.Errorf("codec: truncated field type at offset %d", offset)
		}
		typ := FieldType(data[offset])
		offset++

		if offset+4 > len(data) {
			return nil, fmt.Errorf("codec: truncated field length at offset %d", offset)
		}
		valLen := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if offset+valLen > len(data) {
			return nil, fmt.Errorf("codec: truncated field value at offset %d", offset)
		}
		valBytes := data[offset : offset+valLen]
		offset += valLen

		value, err := decodeValue(typ, valBytes)
		if err != nil {
			return nil, fmt.Errorf("codec: field %q: %w", name, err)
		}

		fields = append(fields, Field{Name: name, Type: typ, Value: value})
	}
	return fields, nil
}

func decodeValue(typ FieldType, b []byte) (interface{}, error) {
	switch typ {
	case FieldString:
		return string(b), nil
	case FieldBytes:
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp, nil
	case FieldU8:
		if len(b) != 1 {
			return nil, fmt.Errorf("u8 field has %d bytes", len(b))
		}
		return b[0], nil
	case FieldU16:
		if len(b) != 2 {
			return nil, fmt.Errorf("u16 field has %d bytes", len(b))
		}
		return binary.BigEndian.Uint16(b), nil
	case FieldU32:
		if len(b) != 4 {
			return nil, fmt.Errorf("u32 field has %d bytes", len(b))
		}
		return binary.BigEndian.Uint32(b), nil
	case FieldU64:
		if len(b) != 8 {
			return nil, fmt.Errorf("u64 field has %d bytes", len(b))
		}
		return binary.BigEndian.Uint64(b), nil
	case FieldDouble:
		if len(b) != 8 {
			return nil, fmt.Errorf("double field has %d bytes", len(b))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case FieldSub:
		sub, err := decodeFields(b)
		if err != nil {
			return nil, err
		}
		return sub, nil
	case FieldPacket:
		res, err := Parse(b, len(b))
		if err != nil {
			return nil, err
		}
		if res.Consumed == 0 {
			return nil, fmt.Errorf("sub-packet frame truncated")
		}
		return res.Frame, nil
	default:
		return nil, fmt.Errorf("unknown field type %d", typ)
	}
}

// Get returns the first field with the given name, or ok=false.
func (f Frame) Get(name string) (Field, bool) {
	for _, fl := range f.Fields {
		if fl.Name == name {
			return fl, true
		}
	}
	return Field{}, false
}

// String is a convenience accessor for a FieldString value.
func (f Frame) String(name string) (string, bool) {
	fl, ok := f.Get(name)
	if !ok || fl.Type != FieldString {
		return "", false
	}
	s, _ := fl.Value.(string)
	return s, true
}

// Bytes is a convenience accessor for a FieldBytes value.
func (f Frame) Bytes(name string) ([]byte, bool) {
	fl, ok := f.Get(name)
	if !ok || fl.Type != FieldBytes {
		return nil, false
	}
	b, _ := fl.Value.([]byte)
	return b, true
}

// U32 is a convenience accessor for a FieldU32 value.
func (f Frame) U32(name string) (uint32, bool) {
	fl, ok := f.Get(name)
	if !ok || fl.Type != FieldU32 {
		return 0, false
	}
	v, _ := fl.Value.(uint32)
	return v, true
}
