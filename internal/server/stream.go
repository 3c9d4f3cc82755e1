package server

import (
	"encoding/json"
	"net/http"

	"example.com/fitscan/internal/export"
	"example.com/fitscan/internal/table"
)

// rowStream emits newline-delimited JSON over an HTTP response, flushing
// after every line so clients see rows while the decode is still running.
// One stream serves one request; it is not safe for concurrent writers.
type rowStream struct {
	enc     *json.Encoder
	flusher http.Flusher
}

func newRowStream(w http.ResponseWriter) *rowStream {
	rs := &rowStream{enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		rs.flusher = f
	}
	return rs
}

// row emits one table row, nulls omitted, as a single line.
func (rs *rowStream) row(tbl *table.Table, i int) error {
	return rs.object(export.RowMap(tbl, i))
}

func (rs *rowStream) object(v any) error {
	if err := rs.enc.Encode(v); err != nil {
		return err
	}
	if rs.flusher != nil {
		rs.flusher.Flush()
	}
	return nil
}
