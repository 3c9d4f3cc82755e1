package fit

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"example.com/fitscan/internal/common"
)

const (
	maxLocalMessageTypes = 16

	hdrBitCompressed = 0x80
	hdrBitDefinition = 0x40
	hdrBitDevFields  = 0x20
	hdrMaskLocalID   = 0x0F

	compressedMaskLocalID = 0x60
	compressedMaskOffset  = 0x1F

	archLittleEndian = 0x00
	archBigEndian    = 0x01

	// TimestampFieldNum is the profile-wide field number carrying the
	// uint32 timestamp; compressed-timestamp records synthesize it.
	TimestampFieldNum = 253
)

// Options configures a decode pass.
type Options struct {
	// Scale resolves optional profile scale/offset declarations.
	Scale ScaleLookup
	// VerifyFileCRC checks the optional trailing CRC once the data section
	// has been consumed. A mismatch is surfaced as a warning, not an
	// error; every record is already decoded by then.
	VerifyFileCRC bool
}

// Decoder walks the data section of a FIT file one record at a time,
// maintaining the live definition table and the running compressed-timestamp
// base. All state is scoped to the decoder; independent files may be decoded
// concurrently with one Decoder each.
type Decoder struct {
	buf  []byte
	cur  *cursor
	opts Options

	hdr       FileHeader
	dataStart int
	dataEnd   int

	defs definitionTable

	timestamp uint32

	warnings []string
	finished bool

	metrics *common.Metrics
}

// NewDecoder validates the file header of buf and prepares a decoder
// positioned at the start of the data section.
func NewDecoder(buf []byte, opts Options) (*Decoder, error) {
	hdr, dataStart, dataLen, err := ParseFileHeader(buf)
	if err != nil {
		return nil, err
	}
	d := &Decoder{
		buf:       buf,
		cur:       newCursor(buf),
		opts:      opts,
		hdr:       hdr,
		dataStart: dataStart,
		dataEnd:   dataStart + dataLen,
	}
	if err := d.cur.seek(dataStart); err != nil {
		return nil, err
	}
	return d, nil
}

// Header returns the parsed file header.
func (d *Decoder) Header() FileHeader {
	return d.hdr
}

// Warnings returns soft findings accumulated so far (trailing CRC mismatch,
// unknown base types). Never fatal.
func (d *Decoder) Warnings() []string {
	out := make([]string, len(d.warnings))
	copy(out, d.warnings)
	return out
}

// SetMetrics attaches a metrics recorder to the decoder.
func (d *Decoder) SetMetrics(m *common.Metrics) {
	d.metrics = m
	if d.metrics != nil {
		d.metrics.SetTotalBytes(int64(d.dataEnd - d.dataStart))
	}
}

// Next decodes records until it produces the next data record. Definition
// records update the definition table and are not returned. It returns io.EOF
// once the data section is exhausted.
func (d *Decoder) Next() (*Message, error) {
	for {
		if d.cur.pos >= d.dataEnd {
			d.finish()
			return nil, io.EOF
		}
		start := d.cur.pos
		recHdr, err := d.readWithin(1)
		if err != nil {
			return nil, err
		}
		h := recHdr[0]
		switch {
		case h&hdrBitCompressed != 0:
			msg, err := d.readCompressedData(h)
			if err != nil {
				return nil, err
			}
			d.countRecord(start)
			return msg, nil
		case h&hdrBitDefinition != 0:
			if err := d.readDefinition(h); err != nil {
				return nil, err
			}
			d.countRecord(start)
		default:
			msg, err := d.readData(h&hdrMaskLocalID, false, 0)
			if err != nil {
				return nil, err
			}
			d.countRecord(start)
			return msg, nil
		}
	}
}

func (d *Decoder) countRecord(start int) {
	if d.metrics != nil {
		d.metrics.AddRecord(int64(d.cur.pos - start))
	}
}

// readWithin reads n bytes, failing when the record would run past the data
// section declared by the file header.
func (d *Decoder) readWithin(n int) ([]byte, error) {
	if d.cur.pos+n > d.dataEnd {
		return nil, fmt.Errorf("%w: record at offset %d needs %d bytes, %d remain in data section",
			ErrTruncatedInput, d.cur.pos, n, d.dataEnd-d.cur.pos)
	}
	return d.cur.read(n)
}

func (d *Decoder) readDefinition(h uint8) error {
	localID := h & hdrMaskLocalID
	fixed, err := d.readWithin(5)
	if err != nil {
		return err
	}
	// fixed[0] is reserved.
	arch := fixed[1]
	bigEndian := arch == archBigEndian
	var globalNum uint16
	if bigEndian {
		globalNum = binary.BigEndian.Uint16(fixed[2:4])
	} else {
		globalNum = binary.LittleEndian.Uint16(fixed[2:4])
	}
	fieldCount := int(fixed[4])

	def := &MessageDefinition{
		LocalID:   localID,
		GlobalNum: globalNum,
		BigEndian: bigEndian,
		Fields:    make([]FieldDefinition, 0, fieldCount),
	}
	for i := 0; i < fieldCount; i++ {
		triple, err := d.readWithin(3)
		if err != nil {
			return err
		}
		fd := FieldDefinition{Number: triple[0], Size: triple[1], Base: BaseType(triple[2])}
		if !fd.Base.Known() {
			d.warnf("definition for local type %d field %d declares unknown base type 0x%02X",
				localID, fd.Number, uint8(fd.Base))
		}
		def.Fields = append(def.Fields, fd)
	}
	if h&hdrBitDevFields != 0 {
		countBuf, err := d.readWithin(1)
		if err != nil {
			return err
		}
		devCount := int(countBuf[0])
		def.DevFields = make([]DevFieldDefinition, 0, devCount)
		for i := 0; i < devCount; i++ {
			triple, err := d.readWithin(3)
			if err != nil {
				return err
			}
			def.DevFields = append(def.DevFields, DevFieldDefinition{
				Number: triple[0], Size: triple[1], DevIndex: triple[2],
			})
		}
	}
	d.defs.define(def)
	if d.metrics != nil {
		d.metrics.IncDefinition()
	}
	return nil
}

func (d *Decoder) readData(localID uint8, compressed bool, tsOffset uint8) (*Message, error) {
	def, ok := d.defs.lookup(localID)
	if !ok {
		return nil, fmt.Errorf("%w: local type %d at offset %d", ErrUndefinedLocalMessageType, localID, d.cur.pos-1)
	}
	msg := &Message{
		LocalID:   localID,
		GlobalNum: def.GlobalNum,
		Fields:    make([]Field, 0, len(def.Fields)+len(def.DevFields)+1),
	}
	for _, fd := range def.Fields {
		raw, err := d.readWithin(int(fd.Size))
		if err != nil {
			return nil, err
		}
		v := interpretField(fd, raw, def.BigEndian, def.GlobalNum, d.opts.Scale)
		if fd.Number == TimestampFieldNum && v.Kind() == KindUint {
			d.timestamp = uint32(v.Uint())
		}
		msg.Fields = append(msg.Fields, Field{Number: fd.Number, Value: v})
	}
	for _, fd := range def.DevFields {
		raw, err := d.readWithin(int(fd.Size))
		if err != nil {
			return nil, err
		}
		// Developer fields carry no base type in the definition record;
		// their bytes stay visible as an opaque span.
		msg.Fields = append(msg.Fields, Field{Number: fd.Number, Value: interpretOpaque(raw), IsDeveloper: true})
	}
	if compressed {
		d.advanceTimestamp(tsOffset)
		if _, ok := msg.FieldByNumber(TimestampFieldNum); !ok {
			msg.Fields = append(msg.Fields, Field{Number: TimestampFieldNum, Value: UintValue(uint64(d.timestamp))})
		}
	}
	return msg, nil
}

func (d *Decoder) readCompressedData(h uint8) (*Message, error) {
	localID := (h & compressedMaskLocalID) >> 5
	return d.readData(localID, true, h&compressedMaskOffset)
}

// advanceTimestamp folds a 5-bit offset into the running timestamp base.
// The base wraps naturally at the 32-bit boundary.
func (d *Decoder) advanceTimestamp(offset uint8) {
	prev := d.timestamp
	next := (prev &^ uint32(compressedMaskOffset)) | uint32(offset)
	if uint32(offset) < prev&compressedMaskOffset {
		next += compressedMaskOffset + 1
	}
	d.timestamp = next
}

// finish runs the optional trailing-CRC check exactly once.
func (d *Decoder) finish() {
	if d.finished {
		return
	}
	d.finished = true
	if !d.opts.VerifyFileCRC {
		return
	}
	if len(d.buf) < d.dataEnd+2 {
		return
	}
	stored := binary.LittleEndian.Uint16(d.buf[d.dataEnd : d.dataEnd+2])
	if computed := Checksum(d.buf[:d.dataEnd]); computed != stored {
		d.warnf("file CRC 0x%04X does not match computed 0x%04X", stored, computed)
	}
}

func (d *Decoder) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	common.Logf("%s", msg)
	d.warnings = append(d.warnings, msg)
}

// DecodeBytes decodes every data record in buf.
func DecodeBytes(buf []byte, opts Options) ([]*Message, []string, error) {
	dec, err := NewDecoder(buf, opts)
	if err != nil {
		return nil, nil, err
	}
	var msgs []*Message
	for {
		msg, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dec.Warnings(), err
		}
		msgs = append(msgs, msg)
	}
	return msgs, dec.Warnings(), nil
}

// DecodeFile loads path into memory and decodes it.
func DecodeFile(path string, opts Options) ([]*Message, []string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return DecodeBytes(buf, opts)
}

// MessageCounts decodes buf and tallies data records per global message
// number.
func MessageCounts(buf []byte, opts Options) (map[uint16]int, error) {
	msgs, _, err := DecodeBytes(buf, opts)
	if err != nil {
		return nil, err
	}
	counts := make(map[uint16]int)
	for _, m := range msgs {
		counts[m.GlobalNum]++
	}
	return counts, nil
}
