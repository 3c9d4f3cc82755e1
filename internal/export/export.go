// Package export writes a decoded table to interchange formats: CSV, NDJSON
// and Parquet.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"example.com/fitscan/internal/table"
)

// RowMap returns row i as a name-to-value map. Missing values are omitted so
// JSON consumers see explicit absence rather than zero values.
func RowMap(tbl *table.Table, i int) map[string]interface{} {
	row := make(map[string]interface{}, tbl.NumCols())
	for c := 0; c < tbl.NumCols(); c++ {
		col := tbl.ColumnAt(c)
		if col.IsNull(i) {
			continue
		}
		switch col.Type() {
		case table.TypeInt:
			v, _ := col.Int(i)
			row[col.Name] = v
		case table.TypeFloat:
			v, _ := col.Float(i)
			row[col.Name] = v
		case table.TypeString:
			v, _ := col.Str(i)
			row[col.Name] = v
		}
	}
	return row
}

// WriteCSV writes the table with a header row. Missing values render as
// empty cells.
func WriteCSV(tbl *table.Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.ColumnNames()); err != nil {
		return err
	}
	record := make([]string, tbl.NumCols())
	for i := 0; i < tbl.NumRows(); i++ {
		for c := 0; c < tbl.NumCols(); c++ {
			record[c] = tbl.ColumnAt(c).Render(i)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNDJSON writes one JSON object per row.
func WriteNDJSON(tbl *table.Table, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < tbl.NumRows(); i++ {
		b, err := json.Marshal(RowMap(tbl, i))
		if err != nil {
			return err
		}
		if _, err := bw.Write(b); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteCSVFile writes CSV to path.
func WriteCSVFile(tbl *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(tbl, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteNDJSONFile writes NDJSON to path.
func WriteNDJSONFile(tbl *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteNDJSON(tbl, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteFile dispatches on format: "csv", "ndjson" or "parquet".
func WriteFile(tbl *table.Table, path, format string) error {
	switch format {
	case "csv":
		return WriteCSVFile(tbl, path)
	case "ndjson":
		return WriteNDJSONFile(tbl, path)
	case "parquet":
		return WriteParquetFile(tbl, path)
	default:
		return fmt.Errorf("unsupported format %q (expected csv|ndjson|parquet)", format)
	}
}
