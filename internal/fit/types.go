package fit

// FileHeader is the fixed-size header at the start of every FIT file.
type FileHeader struct {
	Size            uint8
	ProtocolVersion uint8
	ProfileVersion  uint16
	DataSize        uint32
	DataTag         string
	CRC             uint16
}

// FieldDefinition describes one field slot inside a message definition.
type FieldDefinition struct {
	Number uint8
	Size   uint8
	Base   BaseType
}

// DevFieldDefinition describes one developer field slot.
type DevFieldDefinition struct {
	Number   uint8
	Size     uint8
	DevIndex uint8
}

// MessageDefinition is the live field layout for one local message type.
// Redefinitions overwrite it in place; at most sixteen are live at once.
type MessageDefinition struct {
	LocalID   uint8
	GlobalNum uint16
	BigEndian bool
	Fields    []FieldDefinition
	DevFields []DevFieldDefinition
}

// DataSize returns the number of data-record bytes this definition declares.
func (d *MessageDefinition) DataSize() int {
	total := 0
	for _, f := range d.Fields {
		total += int(f.Size)
	}
	for _, f := range d.DevFields {
		total += int(f.Size)
	}
	return total
}

// definitionTable holds the currently active definitions indexed by local
// message type id. Scoped to one decode call, never shared.
type definitionTable struct {
	slots [maxLocalMessageTypes]*MessageDefinition
}

func (t *definitionTable) define(def *MessageDefinition) {
	t.slots[def.LocalID&0x0F] = def
}

func (t *definitionTable) lookup(localID uint8) (*MessageDefinition, bool) {
	def := t.slots[localID&0x0F]
	return def, def != nil
}

// Field is one decoded field of a data record.
type Field struct {
	Number uint8
	Value  Value
	// IsDeveloper marks fields declared through a developer field
	// definition rather than the regular field list.
	IsDeveloper bool
}

// Message is one decoded data record.
type Message struct {
	LocalID   uint8
	GlobalNum uint16
	Fields    []Field
}

// FieldByNumber returns the first field with the given number.
func (m *Message) FieldByNumber(num uint8) (Field, bool) {
	for _, f := range m.Fields {
		if f.Number == num {
			return f, true
		}
	}
	return Field{}, false
}
