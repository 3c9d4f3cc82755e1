package fit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// buildFile frames a data section with a 14-byte header and trailing CRC.
func buildFile(t *testing.T, body []byte) []byte {
	t.Helper()
	hdr := make([]byte, 14)
	hdr[0] = 14
	hdr[1] = 0x20
	binary.LittleEndian.PutUint16(hdr[2:4], 2195)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(body)))
	copy(hdr[8:12], ".FIT")
	binary.LittleEndian.PutUint16(hdr[12:14], Checksum(hdr[:12]))

	out := append(hdr, body...)
	crc := Checksum(out)
	return append(out, byte(crc), byte(crc>>8))
}

type testFieldDef struct {
	num  uint8
	size uint8
	base BaseType
}

func writeDef(w *bytes.Buffer, localID uint8, globalNum uint16, fields []testFieldDef) {
	w.WriteByte(0x40 | localID)
	w.WriteByte(0x00)
	w.WriteByte(0x00)
	var g [2]byte
	binary.LittleEndian.PutUint16(g[:], globalNum)
	w.Write(g[:])
	w.WriteByte(uint8(len(fields)))
	for _, fd := range fields {
		w.WriteByte(fd.num)
		w.WriteByte(fd.size)
		w.WriteByte(uint8(fd.base))
	}
}

func putU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func putI32(w *bytes.Buffer, v int32) {
	putU32(w, uint32(v))
}

var recordDef = []testFieldDef{
	{num: 253, size: 4, base: BaseUint32},
	{num: 0, size: 4, base: BaseSint32},
	{num: 1, size: 4, base: BaseSint32},
	{num: 3, size: 1, base: BaseUint8},
}

func TestDecodeRecords(t *testing.T) {
	var body bytes.Buffer
	writeDef(&body, 0, 20, recordDef)

	rows := []struct {
		ts  uint32
		lat int32
		lon int32
		hr  uint8
	}{
		{1000, 495000000, -835000000, 120},
		{1001, 495000100, -835000100, 0xFF},
		{1002, 495000200, -835000200, 124},
	}
	for _, row := range rows {
		body.WriteByte(0x00)
		putU32(&body, row.ts)
		putI32(&body, row.lat)
		putI32(&body, row.lon)
		body.WriteByte(row.hr)
	}

	msgs, warnings, err := DecodeBytes(buildFile(t, body.Bytes()), Options{VerifyFileCRC: true})
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(msgs) != len(rows) {
		t.Fatalf("messages = %d, want %d", len(msgs), len(rows))
	}
	for i, msg := range msgs {
		if msg.GlobalNum != 20 {
			t.Fatalf("msg %d global = %d, want 20", i, msg.GlobalNum)
		}
		ts, ok := msg.FieldByNumber(253)
		if !ok || ts.Value.Uint() != uint64(rows[i].ts) {
			t.Fatalf("msg %d timestamp = %v", i, ts.Value)
		}
		lat, _ := msg.FieldByNumber(0)
		if lat.Value.Int() != int64(rows[i].lat) {
			t.Fatalf("msg %d lat = %v, want %d", i, lat.Value, rows[i].lat)
		}
	}
	hr, _ := msgs[1].FieldByNumber(3)
	if hr.Value.Valid() {
		t.Fatalf("sentinel heart rate decoded as %v, want missing", hr.Value)
	}
}

func TestDecodeUndefinedLocalType(t *testing.T) {
	body := []byte{0x02} // data record for a local type never defined
	_, _, err := DecodeBytes(buildFile(t, body), Options{})
	if !errors.Is(err, ErrUndefinedLocalMessageType) {
		t.Fatalf("err = %v, want ErrUndefinedLocalMessageType", err)
	}
}

func TestDecodeRedefinedLocalType(t *testing.T) {
	var body bytes.Buffer
	writeDef(&body, 0, 20, []testFieldDef{{num: 3, size: 1, base: BaseUint8}})
	body.WriteByte(0x00)
	body.WriteByte(120)
	// Same local slot, new global message.
	writeDef(&body, 0, 18, []testFieldDef{{num: 9, size: 4, base: BaseUint32}})
	body.WriteByte(0x00)
	putU32(&body, 300)

	msgs, _, err := DecodeBytes(buildFile(t, body.Bytes()), Options{})
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if len(msgs) != 2 || msgs[0].GlobalNum != 20 || msgs[1].GlobalNum != 18 {
		t.Fatalf("globals = %v", []uint16{msgs[0].GlobalNum, msgs[1].GlobalNum})
	}
}

func TestCompressedTimestamp(t *testing.T) {
	var body bytes.Buffer
	writeDef(&body, 0, 20, []testFieldDef{
		{num: 253, size: 4, base: BaseUint32},
		{num: 3, size: 1, base: BaseUint8},
	})
	// Seed the rolling base: low 5 bits of 1000 are 8.
	body.WriteByte(0x00)
	putU32(&body, 1000)
	body.WriteByte(120)

	writeDef(&body, 1, 20, []testFieldDef{{num: 3, size: 1, base: BaseUint8}})
	// Offset 9 > 8: same 32-second window.
	body.WriteByte(0x80 | 1<<5 | 9)
	body.WriteByte(121)
	// Offset 2 < 9: next window.
	body.WriteByte(0x80 | 1<<5 | 2)
	body.WriteByte(122)

	msgs, _, err := DecodeBytes(buildFile(t, body.Bytes()), Options{})
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	want := []uint64{1000, 1001, 1026}
	for i, msg := range msgs {
		ts, ok := msg.FieldByNumber(253)
		if !ok {
			t.Fatalf("msg %d missing synthesized timestamp", i)
		}
		if ts.Value.Uint() != want[i] {
			t.Fatalf("msg %d timestamp = %d, want %d", i, ts.Value.Uint(), want[i])
		}
	}
}

func TestCompressedTimestampWraps(t *testing.T) {
	var body bytes.Buffer
	writeDef(&body, 0, 20, []testFieldDef{
		{num: 253, size: 4, base: BaseUint32},
		{num: 3, size: 1, base: BaseUint8},
	})
	body.WriteByte(0x00)
	putU32(&body, 0xFFFFFFF8) // low 5 bits: 24
	body.WriteByte(120)

	writeDef(&body, 1, 20, []testFieldDef{{num: 3, size: 1, base: BaseUint8}})
	body.WriteByte(0x80 | 1<<5 | 3) // 3 < 24: rolls over the 32-bit boundary
	body.WriteByte(121)

	msgs, _, err := DecodeBytes(buildFile(t, body.Bytes()), Options{})
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	ts, _ := msgs[1].FieldByNumber(253)
	if ts.Value.Uint() != 3 {
		t.Fatalf("wrapped timestamp = %d, want 3", ts.Value.Uint())
	}
}

func TestDecodeTruncatedRecord(t *testing.T) {
	var body bytes.Buffer
	writeDef(&body, 0, 20, recordDef)
	body.WriteByte(0x00)
	putU32(&body, 1000)
	// Record needs 13 bytes of payload; only the timestamp is present.

	_, _, err := DecodeBytes(buildFile(t, body.Bytes()), Options{})
	if !errors.Is(err, ErrTruncatedInput) {
		t.Fatalf("err = %v, want ErrTruncatedInput", err)
	}
}

func TestTrailingCRCMismatchIsWarning(t *testing.T) {
	var body bytes.Buffer
	writeDef(&body, 0, 20, []testFieldDef{{num: 3, size: 1, base: BaseUint8}})
	body.WriteByte(0x00)
	body.WriteByte(120)

	buf := buildFile(t, body.Bytes())
	buf[len(buf)-1] ^= 0xFF

	msgs, warnings, err := DecodeBytes(buf, Options{VerifyFileCRC: true})
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one CRC warning", warnings)
	}
}

func TestUnknownBaseTypeIsWarning(t *testing.T) {
	var body bytes.Buffer
	writeDef(&body, 0, 20, []testFieldDef{{num: 7, size: 2, base: BaseType(0x1F)}})
	body.WriteByte(0x00)
	body.Write([]byte{5, 6})

	msgs, warnings, err := DecodeBytes(buildFile(t, body.Bytes()), Options{})
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one unknown-base-type warning", warnings)
	}
	f, _ := msgs[0].FieldByNumber(7)
	if f.Value.Str() != "[5,6]" {
		t.Fatalf("field value = %v, want [5,6]", f.Value)
	}
}

func TestDecodeDeveloperFields(t *testing.T) {
	var body bytes.Buffer
	// Definition with the developer-data flag: one regular field, one
	// developer field of two bytes.
	body.WriteByte(0x40 | 0x20)
	body.WriteByte(0x00)
	body.WriteByte(0x00)
	var g [2]byte
	binary.LittleEndian.PutUint16(g[:], 20)
	body.Write(g[:])
	body.WriteByte(1)
	body.Write([]byte{3, 1, uint8(BaseUint8)})
	body.WriteByte(1)           // one developer field
	body.Write([]byte{0, 2, 0}) // number 0, size 2, developer index 0

	body.WriteByte(0x00)
	body.WriteByte(120)
	body.Write([]byte{7, 8})

	msgs, _, err := DecodeBytes(buildFile(t, body.Bytes()), Options{})
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	var dev *Field
	for i := range msgs[0].Fields {
		if msgs[0].Fields[i].IsDeveloper {
			dev = &msgs[0].Fields[i]
		}
	}
	if dev == nil {
		t.Fatalf("no developer field decoded: %+v", msgs[0].Fields)
	}
	if dev.Value.Str() != "[7,8]" {
		t.Fatalf("developer field value = %v, want [7,8]", dev.Value)
	}
}

func TestMessageCounts(t *testing.T) {
	var body bytes.Buffer
	writeDef(&body, 0, 20, []testFieldDef{{num: 3, size: 1, base: BaseUint8}})
	writeDef(&body, 1, 18, []testFieldDef{{num: 9, size: 4, base: BaseUint32}})
	for i := 0; i < 3; i++ {
		body.WriteByte(0x00)
		body.WriteByte(uint8(120 + i))
	}
	body.WriteByte(0x01)
	putU32(&body, 300)

	counts, err := MessageCounts(buildFile(t, body.Bytes()), Options{})
	if err != nil {
		t.Fatalf("MessageCounts: %v", err)
	}
	if counts[20] != 3 || counts[18] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestDecoderEOFAfterDataSection(t *testing.T) {
	var body bytes.Buffer
	writeDef(&body, 0, 20, []testFieldDef{{num: 3, size: 1, base: BaseUint8}})
	body.WriteByte(0x00)
	body.WriteByte(120)

	dec, err := NewDecoder(buildFile(t, body.Bytes()), Options{})
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := dec.Next(); err != io.EOF {
			t.Fatalf("Next after end = %v, want io.EOF", err)
		}
	}
}
