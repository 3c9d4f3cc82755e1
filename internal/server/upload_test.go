package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"example.com/fitscan/internal/fit"
)

func postUpload(t *testing.T, handler http.Handler, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleUpload(t *testing.T) {
	_, handler := newTestServer(t)
	data, err := os.ReadFile(writeFixture(t))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	rec := postUpload(t, handler, "activity.fit", data)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Files []ArtifactRef `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(resp.Files) != 1 {
		t.Fatalf("files = %v", resp.Files)
	}
	if resp.Files[0].Kind != "upload" || resp.Files[0].Name != "activity.fit" {
		t.Fatalf("ref = %+v", resp.Files[0])
	}

	// The uploaded artifact decodes by its ID.
	types := postJSON(t, handler, "/types", map[string]any{"input": resp.Files[0].ID})
	if types.Code != http.StatusOK {
		t.Fatalf("types status = %d, body %s", types.Code, types.Body.String())
	}
	var typesResp struct {
		Types []string `json:"types"`
	}
	if err := json.Unmarshal(types.Body.Bytes(), &typesResp); err != nil {
		t.Fatalf("parse types: %v", err)
	}
	if len(typesResp.Types) != 1 || typesResp.Types[0] != "record" {
		t.Fatalf("types = %v", typesResp.Types)
	}
}

func TestHandleUploadRejectsNonFIT(t *testing.T) {
	_, handler := newTestServer(t)

	truncated := func() []byte {
		hdr := make([]byte, 14)
		hdr[0] = 14
		hdr[1] = 0x20
		binary.LittleEndian.PutUint16(hdr[2:4], 2195)
		binary.LittleEndian.PutUint32(hdr[4:8], 1000) // claims more data than the file holds
		copy(hdr[8:12], ".FIT")
		binary.LittleEndian.PutUint16(hdr[12:14], fit.Checksum(hdr[:12]))
		return hdr
	}
	badCRC := func() []byte {
		b := truncated()
		binary.LittleEndian.PutUint32(b[4:8], 0)
		b[13] ^= 0xFF
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"text payload", []byte("definitely not telemetry")},
		{"empty file", nil},
		{"data section exceeds file", truncated()},
		{"corrupted header crc", badCRC()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postUpload(t, handler, "bogus.fit", tt.data)
			if rec.Code != http.StatusUnsupportedMediaType {
				t.Fatalf("status = %d, want 415 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleUploadWithoutFiles(t *testing.T) {
	_, handler := newTestServer(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("note", "no file attached")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRejectedUploadLeavesNoArtifact(t *testing.T) {
	srv, handler := newTestServer(t)
	rec := postUpload(t, handler, "bogus.fit", []byte("garbage"))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
	if refs := srv.listArtifacts(); len(refs) != 0 {
		t.Fatalf("artifacts after rejected upload: %v", refs)
	}
	entries, err := os.ReadDir(srv.uploadsDir)
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("uploads dir not cleaned: %v", entries)
	}
}
