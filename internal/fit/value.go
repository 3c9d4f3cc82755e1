package fit

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// KindInvalid marks a missing value: an invalid-sentinel bit pattern,
	// an undecodable string, or a padded-out column slot.
	KindInvalid Kind = iota
	KindInt
	KindUint
	KindFloat
	KindString
)

// Value is a decoded field value. Immutable once produced.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	s    string
}

func Invalid() Value             { return Value{kind: KindInvalid} }
func IntValue(v int64) Value     { return Value{kind: KindInt, i: v} }
func UintValue(v uint64) Value   { return Value{kind: KindUint, u: v} }
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) Valid() bool    { return v.kind != KindInvalid }
func (v Value) Int() int64     { return v.i }
func (v Value) Uint() uint64   { return v.u }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }

// AsFloat converts any numeric value to float64. Returns false for strings
// and missing values.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Render returns a textual form of the value for string-typed columns.
func (v Value) Render() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// ScaleOffset holds a profile-declared scale and offset for one field.
// Applied as value/Scale - Offset.
type ScaleOffset struct {
	Scale  float64
	Offset float64
}

// ScaleLookup resolves an optional scale/offset for a field of a global
// message. A nil lookup leaves raw decoded values unchanged.
type ScaleLookup func(globalNum uint16, fieldNum uint8) (ScaleOffset, bool)

// interpretField maps a raw byte span plus its declared base type to a typed
// value. Invalid sentinels, undecodable strings and unknown base types all
// degrade per-value; this function never fails the decode.
func interpretField(def FieldDefinition, raw []byte, bigEndian bool, globalNum uint16, scale ScaleLookup) Value {
	switch def.Base {
	case BaseString:
		return interpretString(raw)
	case BaseByte:
		return interpretOpaque(raw)
	}
	info, ok := baseTypes[def.Base]
	if !ok {
		// Unrecognized base type: keep the bytes visible as text so the
		// field number never drops out of the output schema.
		return interpretOpaque(raw)
	}
	count := len(raw) / info.size
	if count == 0 || len(raw)%info.size != 0 {
		return interpretOpaque(raw)
	}
	if count > 1 {
		return interpretArray(info, raw, bigEndian)
	}
	v := interpretScalar(info, raw, bigEndian)
	if !v.Valid() || scale == nil {
		return v
	}
	if so, ok := scale(globalNum, def.Number); ok && so.Scale != 0 {
		f, _ := v.AsFloat()
		return FloatValue(f/so.Scale - so.Offset)
	}
	return v
}

func interpretScalar(info baseTypeInfo, raw []byte, bigEndian bool) Value {
	bits := readBits(raw, bigEndian)
	if bits == info.invalid {
		return Invalid()
	}
	switch {
	case info.float:
		if info.size == 4 {
			return FloatValue(float64(math.Float32frombits(uint32(bits))))
		}
		return FloatValue(math.Float64frombits(bits))
	case info.signed:
		return IntValue(signExtend(bits, info.size))
	default:
		return UintValue(bits)
	}
}

func interpretArray(info baseTypeInfo, raw []byte, bigEndian bool) Value {
	// Arrays render as a decimal-list string, matching the single display
	// type a column can hold.
	parts := make([]string, 0, len(raw)/info.size)
	for off := 0; off+info.size <= len(raw); off += info.size {
		parts = append(parts, interpretScalar(info, raw[off:off+info.size], bigEndian).Render())
	}
	return StringValue("[" + strings.Join(parts, ",") + "]")
}

func interpretString(raw []byte) Value {
	end := len(raw)
	for i, b := range raw {
		if b == 0 {
			end = i
			break
		}
	}
	if end == 0 {
		return Invalid()
	}
	s := raw[:end]
	if !utf8.Valid(s) {
		return Invalid()
	}
	return StringValue(string(s))
}

func interpretOpaque(raw []byte) Value {
	allInvalid := true
	parts := make([]string, len(raw))
	for i, b := range raw {
		if b != 0xFF {
			allInvalid = false
		}
		parts[i] = strconv.Itoa(int(b))
	}
	if len(raw) == 0 || allInvalid {
		return Invalid()
	}
	return StringValue("[" + strings.Join(parts, ",") + "]")
}

func readBits(raw []byte, bigEndian bool) uint64 {
	var bits uint64
	if bigEndian {
		for _, b := range raw {
			bits = bits<<8 | uint64(b)
		}
		return bits
	}
	for i := len(raw) - 1; i >= 0; i-- {
		bits = bits<<8 | uint64(raw[i])
	}
	return bits
}

func signExtend(bits uint64, size int) int64 {
	shift := uint(64 - size*8)
	return int64(bits<<shift) >> shift
}
