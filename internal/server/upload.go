package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"example.com/fitscan/internal/fit"
)

const maxUploadBytes = 512 << 20

// handleUpload accepts multipart FIT uploads. Each file is vetted against
// the FIT header checks before it becomes a decodable artifact; anything
// that cannot be a FIT file is rejected and never registered.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("parse multipart: %v", err), http.StatusBadRequest)
		return
	}
	if r.MultipartForm == nil {
		http.Error(w, "no files provided", http.StatusBadRequest)
		return
	}
	var refs []ArtifactRef
	for _, files := range r.MultipartForm.File {
		for _, fh := range files {
			ref, err := s.saveUploadedFIT(fh)
			if err != nil {
				status := http.StatusBadRequest
				if isNotFIT(err) {
					status = http.StatusUnsupportedMediaType
				}
				http.Error(w, fmt.Sprintf("upload %s: %v", fh.Filename, err), status)
				return
			}
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}
	resp := struct {
		Files []ArtifactRef `json:"files"`
	}{Files: refs}
	writeJSON(w, http.StatusOK, resp)
}

// saveUploadedFIT copies one multipart part into the uploads directory and
// registers it as an upload artifact once the FIT header checks pass.
func (s *Server) saveUploadedFIT(fh *multipart.FileHeader) (ArtifactRef, error) {
	if fh == nil {
		return ArtifactRef{}, errors.New("nil file header")
	}
	src, err := fh.Open()
	if err != nil {
		return ArtifactRef{}, err
	}
	defer src.Close()
	dest, err := os.CreateTemp(s.uploadsDir, "upload-*.fit")
	if err != nil {
		return ArtifactRef{}, err
	}
	size, err := io.Copy(dest, src)
	if err != nil {
		dest.Close()
		os.Remove(dest.Name())
		return ArtifactRef{}, err
	}
	dest.Close()
	if err := verifyFITUpload(dest.Name(), size); err != nil {
		os.Remove(dest.Name())
		return ArtifactRef{}, err
	}
	art, err := s.addArtifact(dest.Name(), fh.Filename, "application/octet-stream", "upload")
	if err != nil {
		os.Remove(dest.Name())
		return ArtifactRef{}, err
	}
	return toRef(art), nil
}

// verifyFITUpload runs the fixed-size header checks against the start of the
// stored upload: size byte, ".FIT" tag, stored header CRC and whether the
// file can hold the declared data section.
func verifyFITUpload(path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	prefix := make([]byte, fit.HeaderPrefixLen)
	n, err := io.ReadFull(f, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if _, err := fit.CheckHeaderPrefix(prefix[:n], size); err != nil {
		return err
	}
	return nil
}

func isNotFIT(err error) bool {
	return errors.Is(err, fit.ErrInvalidHeader) ||
		errors.Is(err, fit.ErrChecksumMismatch) ||
		errors.Is(err, fit.ErrTruncatedInput)
}
