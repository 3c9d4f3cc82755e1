package fit

// BaseType is the FIT base type byte from a field definition. Bit 7 flags
// endianness-sensitive types; the low 5 bits are the base type number.
type BaseType uint8

const (
	BaseEnum    BaseType = 0x00
	BaseSint8   BaseType = 0x01
	BaseUint8   BaseType = 0x02
	BaseSint16  BaseType = 0x83
	BaseUint16  BaseType = 0x84
	BaseSint32  BaseType = 0x85
	BaseUint32  BaseType = 0x86
	BaseString  BaseType = 0x07
	BaseFloat32 BaseType = 0x88
	BaseFloat64 BaseType = 0x89
	BaseUint8z  BaseType = 0x0A
	BaseUint16z BaseType = 0x8B
	BaseUint32z BaseType = 0x8C
	BaseByte    BaseType = 0x0D
	BaseSint64  BaseType = 0x8E
	BaseUint64  BaseType = 0x8F
	BaseUint64z BaseType = 0x90
)

type baseTypeInfo struct {
	name    string
	size    int
	signed  bool
	float   bool
	integer bool
	// invalid is the reserved "no value" bit pattern, compared against the
	// raw bits zero-extended to 64 bits.
	invalid uint64
}

var baseTypes = map[BaseType]baseTypeInfo{
	BaseEnum:    {name: "enum", size: 1, integer: true, invalid: 0xFF},
	BaseSint8:   {name: "sint8", size: 1, integer: true, signed: true, invalid: 0x7F},
	BaseUint8:   {name: "uint8", size: 1, integer: true, invalid: 0xFF},
	BaseSint16:  {name: "sint16", size: 2, integer: true, signed: true, invalid: 0x7FFF},
	BaseUint16:  {name: "uint16", size: 2, integer: true, invalid: 0xFFFF},
	BaseSint32:  {name: "sint32", size: 4, integer: true, signed: true, invalid: 0x7FFFFFFF},
	BaseUint32:  {name: "uint32", size: 4, integer: true, invalid: 0xFFFFFFFF},
	BaseString:  {name: "string", size: 1},
	BaseFloat32: {name: "float32", size: 4, float: true, invalid: 0xFFFFFFFF},
	BaseFloat64: {name: "float64", size: 8, float: true, invalid: 0xFFFFFFFFFFFFFFFF},
	BaseUint8z:  {name: "uint8z", size: 1, integer: true, invalid: 0x00},
	BaseUint16z: {name: "uint16z", size: 2, integer: true, invalid: 0x0000},
	BaseUint32z: {name: "uint32z", size: 4, integer: true, invalid: 0x00000000},
	BaseByte:    {name: "byte", size: 1},
	BaseSint64:  {name: "sint64", size: 8, integer: true, signed: true, invalid: 0x7FFFFFFFFFFFFFFF},
	BaseUint64:  {name: "uint64", size: 8, integer: true, invalid: 0xFFFFFFFFFFFFFFFF},
	BaseUint64z: {name: "uint64z", size: 8, integer: true, invalid: 0x0000000000000000},
}

// Known reports whether bt is a base type this decoder understands.
func (bt BaseType) Known() bool {
	_, ok := baseTypes[bt]
	return ok
}

// Size returns the unit size in bytes of the base type, or 1 for unknown
// types so that raw byte spans can still be carried through.
func (bt BaseType) Size() int {
	if info, ok := baseTypes[bt]; ok {
		return info.size
	}
	return 1
}

func (bt BaseType) String() string {
	if info, ok := baseTypes[bt]; ok {
		return info.name
	}
	return "unknown"
}
