// Package report builds and renders decode summary artifacts: what was
// decoded, from which file, with which findings.
package report

import (
	"encoding/json"
	"os"
	"time"

	"example.com/fitscan/internal/common"
	"example.com/fitscan/internal/fit"
	"example.com/fitscan/internal/profile"
	"example.com/fitscan/internal/table"
)

// ColumnSummary describes one output column.
type ColumnSummary struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Nulls int    `json:"nulls"`
}

// Summary is the decode summary artifact.
type Summary struct {
	CreatedAt       time.Time       `json:"createdAt"`
	File            string          `json:"file"`
	Sha256          string          `json:"sha256"`
	SizeBytes       int64           `json:"sizeBytes"`
	ProtocolVersion uint8           `json:"protocolVersion"`
	ProfileVersion  uint16          `json:"profileVersion"`
	DataSize        uint32          `json:"dataSize"`
	MessageType     string          `json:"messageType"`
	Rows            int             `json:"rows"`
	Columns         []ColumnSummary `json:"columns"`
	MessageCounts   map[string]int  `json:"messageCounts"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// Build assembles a summary for a decoded table. The file is re-hashed so
// the artifact pins the exact input bytes.
func Build(path, messageType string, hdr fit.FileHeader, tbl *table.Table, counts map[uint16]int, warnings []string) (Summary, error) {
	hash, size, err := common.Sha256OfFile(path)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		CreatedAt:       time.Now().UTC(),
		File:            path,
		Sha256:          hash,
		SizeBytes:       size,
		ProtocolVersion: hdr.ProtocolVersion,
		ProfileVersion:  hdr.ProfileVersion,
		DataSize:        hdr.DataSize,
		MessageType:     messageType,
		Rows:            tbl.NumRows(),
		MessageCounts:   make(map[string]int, len(counts)),
		Warnings:        warnings,
	}
	for i := 0; i < tbl.NumCols(); i++ {
		col := tbl.ColumnAt(i)
		s.Columns = append(s.Columns, ColumnSummary{
			Name:  col.Name,
			Type:  col.Type().String(),
			Nulls: col.NullCount(),
		})
	}
	for num, n := range counts {
		s.MessageCounts[profile.MessageName(num)] = n
	}
	return s, nil
}

func SaveJSON(s Summary, out string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadJSON(path string) (Summary, error) {
	var s Summary
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(b, &s)
	return s, err
}
