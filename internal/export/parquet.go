package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"example.com/fitscan/internal/table"
)

// The table's column set is only known after decode, so the Parquet schema
// is built dynamically and rows go through the JSON writer.

func parquetSchema(tbl *table.Table) (string, error) {
	type tag struct {
		Tag string `json:"Tag"`
	}
	doc := struct {
		Tag    string `json:"Tag"`
		Fields []tag  `json:"Fields"`
	}{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}

	for i := 0; i < tbl.NumCols(); i++ {
		col := tbl.ColumnAt(i)
		var typ string
		switch col.Type() {
		case table.TypeInt:
			typ = "type=INT64"
		case table.TypeFloat:
			typ = "type=DOUBLE"
		default:
			// String columns and never-written columns both land as UTF8.
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		}
		if strings.ContainsAny(col.Name, ",=") {
			return "", fmt.Errorf("column name %q not representable in parquet schema tag", col.Name)
		}
		doc.Fields = append(doc.Fields, tag{
			Tag: fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", col.Name, typ),
		})
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteParquetFile writes the table to path as snappy-compressed Parquet.
func WriteParquetFile(tbl *table.Table, path string) error {
	schema, err := parquetSchema(tbl)
	if err != nil {
		return err
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := 0; i < tbl.NumRows(); i++ {
		b, err := json.Marshal(RowMap(tbl, i))
		if err != nil {
			pw.WriteStop()
			fw.Close()
			return err
		}
		if err := pw.Write(string(b)); err != nil {
			pw.WriteStop()
			fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}
