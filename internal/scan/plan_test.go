package scan

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"example.com/fitscan/internal/fit"
	"example.com/fitscan/internal/profile"
)

func writeTestDef(w *bytes.Buffer, localID uint8, globalNum uint16, fields [][3]uint8) {
	w.WriteByte(0x40 | localID)
	w.WriteByte(0x00)
	w.WriteByte(0x00)
	var g [2]byte
	binary.LittleEndian.PutUint16(g[:], globalNum)
	w.Write(g[:])
	w.WriteByte(uint8(len(fields)))
	for _, fd := range fields {
		w.Write([]byte{fd[0], fd[1], fd[2]})
	}
}

func putU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

// writeActivity generates a small activity file: one file_id message, four
// record messages with timestamp/heart rate/distance, one session message.
func writeActivity(t *testing.T) string {
	t.Helper()
	var body bytes.Buffer

	writeTestDef(&body, 0, 0, [][3]uint8{{0, 1, uint8(fit.BaseEnum)}})
	body.WriteByte(0x00)
	body.WriteByte(4)

	writeTestDef(&body, 1, 20, [][3]uint8{
		{253, 4, uint8(fit.BaseUint32)},
		{3, 1, uint8(fit.BaseUint8)},
		{5, 4, uint8(fit.BaseUint32)},
	})
	heartRates := []uint8{120, 130, 0xFF, 140}
	for i, hr := range heartRates {
		body.WriteByte(0x01)
		putU32(&body, uint32(1000+i))
		body.WriteByte(hr)
		putU32(&body, uint32(500*(i+1)))
	}

	writeTestDef(&body, 2, 18, [][3]uint8{{9, 4, uint8(fit.BaseUint32)}})
	body.WriteByte(0x02)
	putU32(&body, 2000)

	hdr := make([]byte, 14)
	hdr[0] = 14
	hdr[1] = 0x20
	binary.LittleEndian.PutUint16(hdr[2:4], 2195)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(body.Len()))
	copy(hdr[8:12], ".FIT")
	binary.LittleEndian.PutUint16(hdr[12:14], fit.Checksum(hdr[:12]))

	buf := append(hdr, body.Bytes()...)
	crc := fit.Checksum(buf)
	buf = append(buf, byte(crc), byte(crc>>8))

	path := filepath.Join(t.TempDir(), "activity.fit")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestNewPerformsNoIO(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "missing.fit"), "record")
	if p.State() != StatePlanned {
		t.Fatalf("state = %v, want planned", p.State())
	}
	if _, err := p.Collect(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Collect err = %v, want not-exist", err)
	}
	if p.State() != StateFailed {
		t.Fatalf("state after failed collect = %v", p.State())
	}
	// A failed plan keeps returning its failure.
	if _, err := p.Collect(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("second Collect err = %v", err)
	}
}

func TestBadSelectorDeferredToCollect(t *testing.T) {
	p := New(writeActivity(t), "no_such_message")
	if p.State() != StatePlanned {
		t.Fatalf("state = %v, want planned", p.State())
	}
	if _, err := p.Collect(); err == nil {
		t.Fatalf("Collect with bad selector should fail")
	}
}

func TestCollectConsumesPlan(t *testing.T) {
	p := New(writeActivity(t), "record")
	if _, err := p.Collect(); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if p.State() != StateMaterialized {
		t.Fatalf("state = %v, want materialized", p.State())
	}
	if _, err := p.Collect(); !errors.Is(err, ErrPlanConsumed) {
		t.Fatalf("second Collect err = %v, want ErrPlanConsumed", err)
	}
}

func TestCollectRecords(t *testing.T) {
	tbl, err := Read(writeActivity(t), "record")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tbl.NumRows() != 4 {
		t.Fatalf("rows = %d, want 4", tbl.NumRows())
	}
	if got := tbl.ColumnNames(); !reflect.DeepEqual(got, []string{"field_253", "field_3", "field_5"}) {
		t.Fatalf("columns = %v", got)
	}
	hr, _ := tbl.Column("field_3")
	if !hr.IsNull(2) {
		t.Fatalf("sentinel heart rate should be missing")
	}
}

func TestDefaultAndCustomMapping(t *testing.T) {
	tbl, err := Read(writeActivity(t), "record",
		WithDefaultMapping(),
		WithMapping(map[string]string{"heart_rate": "hr"}),
	)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := tbl.ColumnNames(); !reflect.DeepEqual(got, []string{"timestamp", "hr", "distance"}) {
		t.Fatalf("columns = %v", got)
	}
}

func TestFilterSelectLimitOrder(t *testing.T) {
	tbl, err := New(writeActivity(t), "record").
		Filter(Ge("field_3", 125)).
		Select("field_253", "field_3").
		Limit(1).
		Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if tbl.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", tbl.NumRows())
	}
	if got := tbl.ColumnNames(); !reflect.DeepEqual(got, []string{"field_253", "field_3"}) {
		t.Fatalf("columns = %v", got)
	}
	ts, _ := tbl.Column("field_253")
	if v, _ := ts.Int(0); v != 1001 {
		t.Fatalf("first kept timestamp = %d, want 1001", v)
	}
}

func TestFilterNullsNeverMatch(t *testing.T) {
	// field_3 row 2 is the invalid sentinel; neither the predicate nor its
	// negation keeps it.
	tbl, err := New(writeActivity(t), "record").Filter(Lt("field_3", 1000)).Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if tbl.NumRows() != 3 {
		t.Fatalf("rows = %d, want 3 (missing row dropped)", tbl.NumRows())
	}
}

func TestFilterUnknownColumn(t *testing.T) {
	_, err := New(writeActivity(t), "record").Filter(Eq("bogus", 1)).Collect()
	if err == nil {
		t.Fatalf("filter on unknown column should fail")
	}
}

func TestScaleOption(t *testing.T) {
	tbl, err := Read(writeActivity(t), "record", WithScale(profile.Scale))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	// Distance carries scale 100 (cm to m) in the profile.
	dist, ok := tbl.Column("field_5")
	if !ok {
		t.Fatalf("distance column missing")
	}
	if v, _ := dist.Float(0); v != 5.0 {
		t.Fatalf("scaled distance = %v, want 5", v)
	}
}

func TestMessageTypesFirstAppearanceOrder(t *testing.T) {
	types, err := MessageTypes(writeActivity(t))
	if err != nil {
		t.Fatalf("MessageTypes: %v", err)
	}
	if !reflect.DeepEqual(types, []string{"file_id", "record", "session"}) {
		t.Fatalf("types = %v", types)
	}
}
