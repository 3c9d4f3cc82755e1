package export

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"example.com/fitscan/internal/fit"
	"example.com/fitscan/internal/table"
)

func testTable(t *testing.T) *table.Table {
	t.Helper()
	acc := table.NewAccumulator()
	acc.Append(&fit.Message{GlobalNum: 20, Fields: []fit.Field{
		{Number: 253, Value: fit.UintValue(1000)},
		{Number: 6, Value: fit.FloatValue(2.5)},
		{Number: 3, Value: fit.UintValue(120)},
	}})
	acc.Append(&fit.Message{GlobalNum: 20, Fields: []fit.Field{
		{Number: 253, Value: fit.UintValue(1001)},
		{Number: 6, Value: fit.FloatValue(2.75)},
		{Number: 3, Value: fit.Invalid()},
	}})
	tbl := acc.Table()
	tbl.Rename(map[string]string{"field_253": "timestamp", "field_6": "speed", "field_3": "heart_rate"})
	return tbl
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(testTable(t), &buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "timestamp,speed,heart_rate\n" +
		"1000,2.5,120\n" +
		"1001,2.75,\n"
	if buf.String() != want {
		t.Fatalf("csv output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteNDJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNDJSON(testTable(t), &buf); err != nil {
		t.Fatalf("WriteNDJSON: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var row map[string]any
	if err := json.Unmarshal(lines[1], &row); err != nil {
		t.Fatalf("parse line 2: %v", err)
	}
	if _, present := row["heart_rate"]; present {
		t.Fatalf("missing value should be omitted from JSON row: %v", row)
	}
	if row["speed"] != 2.75 {
		t.Fatalf("speed = %v, want 2.75", row["speed"])
	}
}

func TestRowMap(t *testing.T) {
	tbl := testTable(t)
	row := RowMap(tbl, 0)
	want := map[string]interface{}{
		"timestamp":  int64(1000),
		"speed":      2.5,
		"heart_rate": int64(120),
	}
	if !reflect.DeepEqual(row, want) {
		t.Fatalf("row = %v, want %v", row, want)
	}
}

func TestWriteFileUnsupportedFormat(t *testing.T) {
	if err := WriteFile(testTable(t), "out.bin", "xml"); err == nil {
		t.Fatalf("unsupported format should fail")
	}
}
