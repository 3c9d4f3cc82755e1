package report

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"example.com/fitscan/internal/common"
)

// SavePDF renders the decode summary into a PDF document with a QR code of
// the source file hash.
func SavePDF(s Summary, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Decode Summary", false)
	pdf.SetAuthor("fitscan", false)
	pdf.SetCreator("fitscan", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "FIT Decode Summary")
	addFileSection(pdf, s)
	addQRCode(pdf, s)
	addColumnsSection(pdf, s.Columns)
	addMessageCountsSection(pdf, s.MessageCounts)
	addWarningsSection(pdf, s.Warnings)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addFileSection(pdf *gofpdf.Fpdf, s Summary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "File")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Path", value: s.File},
		{label: "Size", value: common.FormatBytes(s.SizeBytes)},
		{label: "SHA-256", value: s.Sha256},
		{label: "Protocol Version", value: strconv.Itoa(int(s.ProtocolVersion))},
		{label: "Profile Version", value: strconv.Itoa(int(s.ProfileVersion))},
		{label: "Data Section", value: common.FormatBytes(int64(s.DataSize))},
		{label: "Message Type", value: s.MessageType},
		{label: "Rows", value: strconv.Itoa(s.Rows)},
	}
	for _, item := range items {
		pdf.CellFormat(45, 6, item.label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}
	pdf.Ln(4)
}

func addQRCode(pdf *gofpdf.Fpdf, s Summary) {
	png, err := FileHashToQR(s.Sha256, 256)
	if err != nil {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("filehash-qr", opts, bytes.NewReader(png))
	x := pdf.GetX()
	y := pdf.GetY()
	pdf.ImageOptions("filehash-qr", 160, 20, 30, 30, false, opts, 0, "")
	pdf.SetXY(x, y)
}

func addColumnsSection(pdf *gofpdf.Fpdf, cols []ColumnSummary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Columns")
	pdf.Ln(9)

	if len(cols) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No columns decoded.", "", "L", false)
		return
	}

	headers := []string{"Column", "Type", "Nulls"}
	widths := []float64{100, 40, 30}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, col := range cols {
		pdf.CellFormat(widths[0], 6, col.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, col.Type, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, strconv.Itoa(col.Nulls), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func addMessageCountsSection(pdf *gofpdf.Fpdf, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Message Counts")
	pdf.Ln(9)

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	pdf.SetFont("Helvetica", "", 10)
	for _, name := range names {
		pdf.CellFormat(100, 5, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, strconv.Itoa(counts[name]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addWarningsSection(pdf *gofpdf.Fpdf, warnings []string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Warnings")
	pdf.Ln(9)

	if len(warnings) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No warnings recorded.", "", "L", false)
		return
	}
	for i, w := range warnings {
		pdf.SetFont("Helvetica", "", 10)
		msg := fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(w))
		pdf.MultiCell(0, 5, msg, "", "L", false)
		pdf.Ln(1)
	}
}
